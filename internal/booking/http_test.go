package booking

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubscription struct {
	ch chan Event
}

func (s *stubSubscription) C() <-chan Event { return s.ch }
func (s *stubSubscription) Unsubscribe()    {}

// transitionOnSubscribeFeed 在 Subscribe 被调用的瞬间把订单推进到
// completed，且不投递任何事件：模拟流转恰好落在订阅建立前的窗口里。
type transitionOnSubscribeFeed struct {
	svc *Service
}

func (f *transitionOnSubscribeFeed) Subscribe(ctx context.Context, bookingID string) (EventSubscription, error) {
	price := int64(1200)
	if _, err := f.svc.Transition(ctx, bookingID, StatusCompleted, TransitionInput{Price: &price}); err != nil {
		return nil, err
	}
	return &stubSubscription{ch: make(chan Event)}, nil
}

func TestStreamEventsSeesTransitionInSubscribeWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := newTestService(newFakeRepo(), newFakeDirectory(availableMechanic("m1")), &capturePublisher{})
	ctx := context.Background()

	b, err := svc.Create(ctx, baseInput())
	require.NoError(t, err)
	_, err = svc.Transition(ctx, b.ID, StatusAccepted, TransitionInput{})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, b.ID, StatusInProgress, TransitionInput{})
	require.NoError(t, err)

	h := NewHandler(svc, &transitionOnSubscribeFeed{svc: svc})
	engine := gin.New()
	h.Register(engine)

	// 带超时兜底：快照落后于订阅窗口内的终态时流会挂死
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req := httptest.NewRequest("GET", "/api/v1/bookings/"+b.ID+"/events", nil).WithContext(reqCtx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		engine.ServeHTTP(w, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("stream did not terminate")
	}

	// 快照帧必须已经包含订阅窗口里提交的终态
	body := w.Body.String()
	assert.True(t, strings.Contains(body, string(StatusCompleted)),
		"stream must carry the terminal status, got: %s", body)
	assert.NoError(t, reqCtx.Err(), "stream must end on the terminal frame, not on timeout")
}
