package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/RoadRescue/RoadRescue/internal/booking"
	"github.com/RoadRescue/RoadRescue/internal/common/logger"
	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/redis/go-redis/v9"
)

// subscriptionBuffer 订阅通道缓冲；订单事件稀疏，64 足够覆盖突发。
const subscriptionBuffer = 64

// eventChannel 单订单独占一个 Redis 频道，订阅天然按订单隔离。
func eventChannel(bookingID string) string {
	return fmt.Sprintf("booking:%s:events", bookingID)
}

// RedisFeed 基于 Redis pub/sub 的事件通道。
// Redis 对单频道内的消息保序，满足同订单事件的顺序要求；
// pub/sub 本身不落盘，断连丢失的事件由订阅侧 resync 补齐。
type RedisFeed struct {
	rdb *redis.Client
	log logger.Logger
}

func NewRedisFeed(rdb *redis.Client, log logger.Logger) *RedisFeed {
	return &RedisFeed{rdb: rdb, log: log}
}

func (f *RedisFeed) Publish(ctx context.Context, evt booking.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}
	if err := f.rdb.Publish(ctx, eventChannel(evt.BookingID), payload).Err(); err != nil {
		return domain.ConnectivityError{Op: "feed publish", Err: err}
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, bookingID string) (booking.EventSubscription, error) {
	pubsub := f.rdb.Subscribe(ctx, eventChannel(bookingID))

	// 确认订阅已建立，避免丢掉紧随其后的事件
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, domain.ConnectivityError{Op: "feed subscribe", Err: err}
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan booking.Event, subscriptionBuffer),
		done:   make(chan struct{}),
	}
	go sub.run(f.log)
	return sub, nil
}

func (f *RedisFeed) Close() error {
	return f.rdb.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan booking.Event
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) C() <-chan booking.Event { return s.out }

// Unsubscribe 幂等；关闭后 C() 随之关闭，订阅方以通道关闭感知断流。
func (s *redisSubscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		_ = s.pubsub.Close()
	})
}

func (s *redisSubscription) run(log logger.Logger) {
	defer close(s.out)
	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var evt booking.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				if log != nil {
					log.Warnf("failed to decode booking event on %s: %v", msg.Channel, err)
				}
				continue
			}
			select {
			case s.out <- evt:
			case <-s.done:
				return
			}
		}
	}
}
