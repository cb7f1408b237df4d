package feed

import (
	"context"
	"testing"
	"time"

	"github.com/RoadRescue/RoadRescue/internal/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(id string, status booking.Status) booking.Event {
	return booking.NewEvent(&booking.Booking{ID: id, Status: status})
}

func recv(t *testing.T, ch <-chan booking.Event) booking.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		return booking.Event{}
	}
}

func TestMemoryFeedDeliversInOrder(t *testing.T) {
	f := NewMemoryFeed()
	defer f.Close()
	ctx := context.Background()

	sub, err := f.Subscribe(ctx, "b1")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, f.Publish(ctx, testEvent("b1", booking.StatusPending)))
	require.NoError(t, f.Publish(ctx, testEvent("b1", booking.StatusAccepted)))

	assert.Equal(t, booking.StatusPending, recv(t, sub.C()).Status)
	assert.Equal(t, booking.StatusAccepted, recv(t, sub.C()).Status)
}

func TestMemoryFeedIsolatesBookings(t *testing.T) {
	f := NewMemoryFeed()
	defer f.Close()
	ctx := context.Background()

	sub, err := f.Subscribe(ctx, "b1")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, f.Publish(ctx, testEvent("b2", booking.StatusAccepted)))
	require.NoError(t, f.Publish(ctx, testEvent("b1", booking.StatusPending)))

	evt := recv(t, sub.C())
	assert.Equal(t, "b1", evt.BookingID)
	select {
	case extra := <-sub.C():
		t.Fatalf("unexpected event for %s", extra.BookingID)
	default:
	}
}

func TestMemoryFeedUnsubscribeIdempotent(t *testing.T) {
	f := NewMemoryFeed()
	defer f.Close()

	sub, err := f.Subscribe(context.Background(), "b1")
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe() // 重复调用不应 panic

	_, ok := <-sub.C()
	assert.False(t, ok, "channel must be closed after unsubscribe")
}

func TestMemoryFeedPublishAfterUnsubscribe(t *testing.T) {
	f := NewMemoryFeed()
	defer f.Close()
	ctx := context.Background()

	sub, err := f.Subscribe(ctx, "b1")
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, f.Publish(ctx, testEvent("b1", booking.StatusPending)))
}

func TestMemoryFeedFanout(t *testing.T) {
	f := NewMemoryFeed()
	defer f.Close()
	ctx := context.Background()

	s1, err := f.Subscribe(ctx, "b1")
	require.NoError(t, err)
	defer s1.Unsubscribe()
	s2, err := f.Subscribe(ctx, "b1")
	require.NoError(t, err)
	defer s2.Unsubscribe()

	require.NoError(t, f.Publish(ctx, testEvent("b1", booking.StatusPending)))
	assert.Equal(t, "b1", recv(t, s1.C()).BookingID)
	assert.Equal(t, "b1", recv(t, s2.C()).BookingID)
}

func TestMemoryFeedOverflowBreaksSubscription(t *testing.T) {
	f := NewMemoryFeed()
	defer f.Close()
	ctx := context.Background()

	sub, err := f.Subscribe(ctx, "b1")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// 不消费，把缓冲灌满后再多发一条终态事件
	for i := 0; i < subscriptionBuffer; i++ {
		require.NoError(t, f.Publish(ctx, testEvent("b1", booking.StatusInProgress)))
	}
	require.NoError(t, f.Publish(ctx, testEvent("b1", booking.StatusCompleted)))

	// 缓冲内的事件仍可读出，之后必须看到通道关闭（断流信号），
	// 绝不能是"通道开着但事件没了"
	var drained int
	closed := false
	for !closed {
		select {
		case _, ok := <-sub.C():
			if !ok {
				closed = true
				break
			}
			drained++
		case <-time.After(time.Second):
			t.Fatalf("channel neither delivered nor closed after overflow")
		}
	}
	assert.Equal(t, subscriptionBuffer, drained)

	// 断流后重新订阅可以继续收事件
	resub, err := f.Subscribe(ctx, "b1")
	require.NoError(t, err)
	defer resub.Unsubscribe()
	require.NoError(t, f.Publish(ctx, testEvent("b1", booking.StatusCompleted)))
	assert.Equal(t, booking.StatusCompleted, recv(t, resub.C()).Status)
}

func TestMemoryFeedCloseClosesSubscribers(t *testing.T) {
	f := NewMemoryFeed()
	sub, err := f.Subscribe(context.Background(), "b1")
	require.NoError(t, err)

	require.NoError(t, f.Close())
	_, ok := <-sub.C()
	assert.False(t, ok)
}
