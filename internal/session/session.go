// Package session 用户侧订单协调器：
// 维护"同一用户至多一个活跃订单"的槽位，订阅事件通道并合并快照，
// 断流时回源权威读路径补齐状态。
package session

import (
	"context"
	"sync"
	"time"

	"github.com/RoadRescue/RoadRescue/internal/booking"
	"github.com/RoadRescue/RoadRescue/internal/common/logger"
	"github.com/RoadRescue/RoadRescue/internal/domain"
)

// Lifecycle 会话对订单服务的依赖。
type Lifecycle interface {
	Create(ctx context.Context, in booking.CreateInput) (*booking.Booking, error)
	Cancel(ctx context.Context, bookingID, reason string) (*booking.Booking, error)
	Get(ctx context.Context, bookingID string) (*booking.Booking, error)
	Active(ctx context.Context, userID string) (*booking.Booking, error)
}

// resyncBackoff 重订阅/回源的间隔。
const resyncBackoff = 2 * time.Second

// Session 单用户订单会话。
// 事件按"状态只进不退"合并：嵌入状态落后于当前持有状态的事件直接丢弃，
// 同状态事件用更新的快照整体替换（重复投递因此幂等）。
type Session struct {
	userID string
	lc     Lifecycle
	feed   booking.EventSource
	log    logger.Logger

	mu      sync.RWMutex
	current *booking.Booking // 活跃订单槽位，终态后清空
	last    *booking.Booking // 最近一次到达终态的订单

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

func NewSession(userID string, lc Lifecycle, feed booking.EventSource, log logger.Logger) *Session {
	return &Session{userID: userID, lc: lc, feed: feed, log: log}
}

// Create 创建订单并开始跟踪：会话已有活跃订单时直接拒绝，
// 不落到服务层的存储查重。
func (s *Session) Create(ctx context.Context, in booking.CreateInput) (*booking.Booking, error) {
	s.mu.Lock()
	if s.current != nil && s.current.IsActive() {
		s.mu.Unlock()
		return nil, domain.ConflictError{Resource: "booking", Msg: "an active booking already exists"}
	}
	s.mu.Unlock()

	in.UserID = s.userID
	b, err := s.lc.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	s.track(b)
	return b.Clone(), nil
}

// Resume 接管服务端已存在的活跃订单（重连/换端场景）。
// 没有活跃订单时返回 (nil, nil)。
func (s *Session) Resume(ctx context.Context) (*booking.Booking, error) {
	s.mu.RLock()
	if s.current != nil && s.current.IsActive() {
		b := s.current.Clone()
		s.mu.RUnlock()
		return b, nil
	}
	s.mu.RUnlock()

	b, err := s.lc.Active(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}

	s.track(b)
	return b.Clone(), nil
}

// Cancel 取消当前活跃订单并回收槽位。
func (s *Session) Cancel(ctx context.Context, reason string) (*booking.Booking, error) {
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if cur == nil {
		return nil, domain.NotFoundError{Resource: "active booking", ID: s.userID}
	}

	b, err := s.lc.Cancel(ctx, cur.ID, reason)
	if err != nil {
		return nil, err
	}

	s.OnEvent(booking.NewEvent(b))
	return b.Clone(), nil
}

// Current 当前活跃订单快照；没有返回 nil。
func (s *Session) Current() *booking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Last 最近到达终态的订单快照。
func (s *Session) Last() *booking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last.Clone()
}

// OnEvent 合并一条变更事件。返回是否采纳。
func (s *Session) OnEvent(evt booking.Event) bool {
	if evt.Booking == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.ID != evt.BookingID {
		return false
	}

	curRank := booking.Rank(s.current.Status)
	evtRank := booking.Rank(evt.Status)
	switch {
	case evtRank > curRank:
		// 前进
	case evtRank == curRank && evt.Status == s.current.Status:
		// 同状态快照刷新（位置更新、重复投递）
	default:
		return false
	}

	merged := evt.Booking.Clone()
	if booking.IsTerminal(merged.Status) {
		s.last = merged
		s.current = nil
		s.stopWatchLocked()
		return true
	}
	s.current = merged
	return true
}

// Close 停止跟踪并释放订阅。
func (s *Session) Close() {
	s.mu.Lock()
	s.stopWatchLocked()
	s.mu.Unlock()
}

// track 占用槽位并启动事件跟踪。
func (s *Session) track(b *booking.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopWatchLocked()
	s.current = b.Clone()
	if booking.IsTerminal(b.Status) {
		s.last = s.current
		s.current = nil
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.watchCancel = cancel
	s.watchDone = done
	go s.watch(ctx, b.ID, done)
}

func (s *Session) stopWatchLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
		s.watchDone = nil
	}
}

// watch 订阅事件流并持续合并；通道关闭或订阅失败时回源 resync，
// 订单仍活跃则重新订阅。
func (s *Session) watch(ctx context.Context, bookingID string, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil || !s.tracking(bookingID) {
			return
		}

		sub, err := s.feed.Subscribe(ctx, bookingID)
		if err != nil {
			if s.log != nil {
				s.log.Warnf("booking %s subscribe failed, falling back to resync: %v", bookingID, err)
			}
			if !s.resync(ctx, bookingID) {
				return
			}
			if !sleepCtx(ctx, resyncBackoff) {
				return
			}
			continue
		}

		// 订阅建立与本地状态之间可能有空窗，先补一次
		if !s.resync(ctx, bookingID) {
			sub.Unsubscribe()
			return
		}

		if !s.drain(ctx, bookingID, sub) {
			return
		}

		// 通道断流：回源后重订阅
		if !s.resync(ctx, bookingID) {
			return
		}
		if !sleepCtx(ctx, resyncBackoff) {
			return
		}
	}
}

// drain 消费订阅直到断流；返回 false 表示跟踪已结束。
func (s *Session) drain(ctx context.Context, bookingID string, sub booking.EventSubscription) bool {
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return false
		case evt, ok := <-sub.C():
			if !ok {
				return s.tracking(bookingID)
			}
			s.OnEvent(evt)
			if !s.tracking(bookingID) {
				return false
			}
		}
	}
}

// resync 回源权威读路径；返回 false 表示订单已终态或跟踪已结束。
func (s *Session) resync(ctx context.Context, bookingID string) bool {
	b, err := s.lc.Get(ctx, bookingID)
	if err != nil {
		if s.log != nil {
			s.log.Warnf("booking %s resync failed: %v", bookingID, err)
		}
		// 读不到就保持本地状态，下一轮再试
		return s.tracking(bookingID)
	}
	s.OnEvent(booking.NewEvent(b))
	return s.tracking(bookingID)
}

func (s *Session) tracking(bookingID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.ID == bookingID
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
