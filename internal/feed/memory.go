package feed

import (
	"context"
	"sync"

	"github.com/RoadRescue/RoadRescue/internal/booking"
)

// MemoryFeed 进程内事件通道，供单机部署和测试使用。
type MemoryFeed struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySubscription
	closed bool
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[string][]*memorySubscription)}
}

func (f *MemoryFeed) Publish(ctx context.Context, evt booking.Event) error {
	f.mu.RLock()
	subs := make([]*memorySubscription, len(f.subs[evt.BookingID]))
	copy(subs, f.subs[evt.BookingID])
	f.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(evt)
	}
	return nil
}

func (f *MemoryFeed) Subscribe(ctx context.Context, bookingID string) (booking.EventSubscription, error) {
	sub := &memorySubscription{
		feed:      f,
		bookingID: bookingID,
		out:       make(chan booking.Event, subscriptionBuffer),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(sub.out)
		return sub, nil
	}
	f.subs[bookingID] = append(f.subs[bookingID], sub)
	f.mu.Unlock()
	return sub, nil
}

func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for _, subs := range f.subs {
		for _, sub := range subs {
			sub.closeOut()
		}
	}
	f.subs = make(map[string][]*memorySubscription)
	return nil
}

func (f *MemoryFeed) remove(sub *memorySubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := f.subs[sub.bookingID]
	for i, s := range subs {
		if s == sub {
			f.subs[sub.bookingID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(f.subs[sub.bookingID]) == 0 {
		delete(f.subs, sub.bookingID)
	}
}

type memorySubscription struct {
	feed      *MemoryFeed
	bookingID string
	out       chan booking.Event
	once      sync.Once

	mu     sync.Mutex
	closed bool
}

func (s *memorySubscription) C() <-chan booking.Event { return s.out }

func (s *memorySubscription) Unsubscribe() {
	s.once.Do(func() {
		s.feed.remove(s)
		s.closeOut()
	})
}

// deliver 非阻塞投递。缓冲打满说明消费侧已经跟不上，
// 此时直接断开订阅（关闭通道并移除），订阅方以通道关闭感知断流，
// 回源 resync 补齐；静默丢弃会让断流不可见，事件就真的丢了。
func (s *memorySubscription) deliver(evt booking.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	select {
	case s.out <- evt:
		s.mu.Unlock()
	default:
		s.closed = true
		close(s.out)
		s.mu.Unlock()
		s.feed.remove(s)
	}
}

func (s *memorySubscription) closeOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}
