package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/RoadRescue/RoadRescue/internal/booking"
	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/RoadRescue/RoadRescue/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLifecycle struct {
	mu   sync.Mutex
	seq  int
	byID map[string]*booking.Booking
}

func newFakeLifecycle() *fakeLifecycle {
	return &fakeLifecycle{byID: make(map[string]*booking.Booking)}
}

func (f *fakeLifecycle) Create(ctx context.Context, in booking.CreateInput) (*booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	b := &booking.Booking{
		ID:     fmt.Sprintf("b%d", f.seq),
		UserID: in.UserID,
		Status: booking.StatusPending,
	}
	f.byID[b.ID] = b.Clone()
	return b, nil
}

func (f *fakeLifecycle) Cancel(ctx context.Context, bookingID, reason string) (*booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[bookingID]
	if !ok {
		return nil, domain.NotFoundError{Resource: "booking", ID: bookingID}
	}
	b.Status = booking.StatusCancelled
	b.CancelReason = reason
	return b.Clone(), nil
}

func (f *fakeLifecycle) Get(ctx context.Context, bookingID string) (*booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[bookingID]
	if !ok {
		return nil, domain.NotFoundError{Resource: "booking", ID: bookingID}
	}
	return b.Clone(), nil
}

func (f *fakeLifecycle) Active(ctx context.Context, userID string) (*booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.UserID == userID && b.IsActive() {
			return b.Clone(), nil
		}
	}
	return nil, nil
}

// setStatus 模拟服务端推进状态（绕过会话）。
func (f *fakeLifecycle) setStatus(id string, status booking.Status) *booking.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.byID[id]
	b.Status = status
	return b.Clone()
}

func newTestSession(t *testing.T) (*Session, *fakeLifecycle, *feed.MemoryFeed) {
	t.Helper()
	lc := newFakeLifecycle()
	f := feed.NewMemoryFeed()
	t.Cleanup(func() { _ = f.Close() })
	s := NewSession("u1", lc, f, nil)
	t.Cleanup(s.Close)
	return s, lc, f
}

func event(b *booking.Booking) booking.Event {
	return booking.NewEvent(b)
}

// trackedSession 直接灌入当前订单，不经过存储和订阅，
// 用于单测合并规则本身。
func trackedSession(b *booking.Booking) *Session {
	s := NewSession(b.UserID, nil, nil, nil)
	s.current = b.Clone()
	return s
}

func pendingBooking(id string) *booking.Booking {
	return &booking.Booking{ID: id, UserID: "u1", Status: booking.StatusPending}
}

func TestCreateTracksBooking(t *testing.T) {
	s, _, _ := newTestSession(t)

	b, err := s.Create(context.Background(), booking.CreateInput{ServiceType: "Towing"})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, b.Status)

	cur := s.Current()
	require.NotNil(t, cur)
	assert.Equal(t, b.ID, cur.ID)
}

func TestCreateRejectsWhileActive(t *testing.T) {
	s, _, _ := newTestSession(t)

	_, err := s.Create(context.Background(), booking.CreateInput{})
	require.NoError(t, err)

	_, err = s.Create(context.Background(), booking.CreateInput{})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestOnEventForwardMerge(t *testing.T) {
	s := trackedSession(pendingBooking("b1"))

	accepted := pendingBooking("b1")
	accepted.Status = booking.StatusAccepted
	assert.True(t, s.OnEvent(event(accepted)))
	assert.Equal(t, booking.StatusAccepted, s.Current().Status)
}

func TestOnEventDuplicateIsIdempotent(t *testing.T) {
	s := trackedSession(pendingBooking("b1"))

	accepted := pendingBooking("b1")
	accepted.Status = booking.StatusAccepted
	evt := event(accepted)

	require.True(t, s.OnEvent(evt))
	before := s.Current()
	s.OnEvent(evt)
	after := s.Current()
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.ID, after.ID)
}

func TestOnEventDiscardsStale(t *testing.T) {
	s := trackedSession(pendingBooking("b1"))

	inProgress := pendingBooking("b1")
	inProgress.Status = booking.StatusInProgress
	require.True(t, s.OnEvent(event(inProgress)))

	// 迟到的 accepted 事件必须被丢弃
	stale := pendingBooking("b1")
	stale.Status = booking.StatusAccepted
	assert.False(t, s.OnEvent(event(stale)))
	assert.Equal(t, booking.StatusInProgress, s.Current().Status)
}

func TestOnEventIgnoresOtherBookings(t *testing.T) {
	s := trackedSession(pendingBooking("b1"))

	other := &booking.Booking{ID: "other", Status: booking.StatusAccepted}
	assert.False(t, s.OnEvent(event(other)))
	assert.Equal(t, booking.StatusPending, s.Current().Status)
}

func TestTerminalEventClearsSlot(t *testing.T) {
	s := trackedSession(pendingBooking("b1"))

	completed := pendingBooking("b1")
	completed.Status = booking.StatusCompleted
	require.True(t, s.OnEvent(event(completed)))

	assert.Nil(t, s.Current())
	last := s.Last()
	require.NotNil(t, last)
	assert.Equal(t, booking.StatusCompleted, last.Status)
}

func TestTerminalStateDoesNotFlip(t *testing.T) {
	s := trackedSession(pendingBooking("b1"))

	completed := pendingBooking("b1")
	completed.Status = booking.StatusCompleted
	require.True(t, s.OnEvent(event(completed)))

	cancelled := pendingBooking("b1")
	cancelled.Status = booking.StatusCancelled
	assert.False(t, s.OnEvent(event(cancelled)), "terminal slot already cleared")
	assert.Equal(t, booking.StatusCompleted, s.Last().Status)
}

func TestCancelFreesSlot(t *testing.T) {
	s, _, _ := newTestSession(t)
	_, err := s.Create(context.Background(), booking.CreateInput{})
	require.NoError(t, err)

	got, err := s.Cancel(context.Background(), "changed mind")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.Nil(t, s.Current())

	_, err = s.Create(context.Background(), booking.CreateInput{})
	require.NoError(t, err)
}

func TestCancelWithoutActiveBooking(t *testing.T) {
	s, _, _ := newTestSession(t)
	_, err := s.Cancel(context.Background(), "")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestResumeAdoptsServerSideBooking(t *testing.T) {
	lc := newFakeLifecycle()
	f := feed.NewMemoryFeed()
	defer f.Close()

	// 服务端已有活跃订单（换端/重连前创建）
	existing, err := lc.Create(context.Background(), booking.CreateInput{UserID: "u1"})
	require.NoError(t, err)

	s := NewSession("u1", lc, f, nil)
	defer s.Close()

	b, err := s.Resume(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, existing.ID, b.ID)
	assert.Equal(t, existing.ID, s.Current().ID)
}

func TestResumeWithoutActiveBooking(t *testing.T) {
	s, _, _ := newTestSession(t)
	b, err := s.Resume(context.Background())
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestWatchMergesPublishedEvents(t *testing.T) {
	s, lc, f := newTestSession(t)
	b, err := s.Create(context.Background(), booking.CreateInput{})
	require.NoError(t, err)

	accepted := lc.setStatus(b.ID, booking.StatusAccepted)
	require.NoError(t, f.Publish(context.Background(), event(accepted)))

	require.Eventually(t, func() bool {
		cur := s.Current()
		return cur != nil && cur.Status == booking.StatusAccepted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchResyncsOnFeedLoss(t *testing.T) {
	s, lc, f := newTestSession(t)
	b, err := s.Create(context.Background(), booking.CreateInput{})
	require.NoError(t, err)

	// 通道断流期间服务端推进了状态
	lc.setStatus(b.ID, booking.StatusInProgress)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		cur := s.Current()
		return cur != nil && cur.Status == booking.StatusInProgress
	}, 5*time.Second, 20*time.Millisecond)
}
