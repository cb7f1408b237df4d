package booking

import "time"

// Event 订单变更事件：携带流转后的完整订单快照（而非 diff），
// 订阅侧的合并因此是无状态且幂等的。
type Event struct {
	BookingID   string    `json:"booking_id"`
	Status      Status    `json:"status"`
	Booking     *Booking  `json:"booking"`
	PublishedAt time.Time `json:"published_at"`
}

// NewEvent 从订单快照构造事件。
func NewEvent(b *Booking) Event {
	return Event{
		BookingID:   b.ID,
		Status:      b.Status,
		Booking:     b.Clone(),
		PublishedAt: time.Now(),
	}
}
