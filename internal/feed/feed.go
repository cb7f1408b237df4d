// Package feed 订单变更事件通道。
//
// 通道语义为至少一次投递：同一订单的事件按发布顺序到达，
// 事件携带流转后的完整快照，订阅侧据此做幂等合并；
// 跨订单之间不保证任何顺序。
package feed

import (
	"context"

	"github.com/RoadRescue/RoadRescue/internal/booking"
)

// ChangeFeed 事件通道：写侧发布，读侧按订单 ID 订阅。
// Publish 在存储提交之后调用，失败由调用方记日志并靠 resync 兜底。
type ChangeFeed interface {
	Publish(ctx context.Context, evt booking.Event) error
	Subscribe(ctx context.Context, bookingID string) (booking.EventSubscription, error)
	Close() error
}

var (
	_ booking.Publisher   = (ChangeFeed)(nil)
	_ booking.EventSource = (ChangeFeed)(nil)
)
