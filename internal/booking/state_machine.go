package booking

import (
	"time"

	"github.com/RoadRescue/RoadRescue/internal/domain"
)

// AllowTransition 定义订单状态机的允许流转关系。
// cancelled 可从任意非终态进入；终态不再流转。
var AllowTransition = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// statusRank 用于单调合并：只接受比当前状态更靠前（rank 更大）的更新。
var statusRank = map[Status]int{
	StatusPending:    1,
	StatusAccepted:   2,
	StatusInProgress: 3,
	StatusCompleted:  4,
	StatusCancelled:  4,
}

// IsTerminal 是否终态。
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValidStatus 是否五个合法状态之一。
func IsValidStatus(s Status) bool {
	_, ok := statusRank[s]
	return ok
}

// Rank 状态在生命周期中的序号（非法状态返回 0）。
func Rank(s Status) int {
	return statusRank[s]
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
// 自环不允许：重复流转由上层按幂等语义处理（目前只有 cancel）。
func CanTransition(from, to Status) bool {
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition 对订单应用状态变更，并维护关键时间字段。
func ApplyTransition(b *Booking, to Status, now time.Time) error {
	if b == nil {
		return domain.ValidationError{Field: "booking", Msg: "is nil"}
	}
	from := b.Status
	if !CanTransition(from, to) {
		return domain.InvalidTransitionError{From: string(from), To: string(to)}
	}

	b.Status = to
	b.UpdatedAt = now

	switch to {
	case StatusInProgress:
		if b.StartedAt == nil {
			t := now
			b.StartedAt = &t
		}
	case StatusCompleted:
		if b.CompletedAt == nil {
			t := now
			b.CompletedAt = &t
		}
	case StatusCancelled:
		if b.CancelledAt == nil {
			t := now
			b.CancelledAt = &t
		}
	}
	return nil
}
