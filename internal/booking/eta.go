package booking

import (
	"math/rand"
	"sync"
	"time"
)

// ETAPolicy 下单时的预估到达策略。
// 独立成接口是为了后续换成基于距离/路况的估计时不动状态机。
type ETAPolicy interface {
	Estimate(pickupLat, pickupLng *float64) int
}

// BoundedRandomETA 固定区间内的随机估计（分钟），当前线上行为。
type BoundedRandomETA struct {
	MinMinutes int
	MaxMinutes int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBoundedRandomETA 创建随机 ETA 策略；min/max 非法时回退到 5-15。
func NewBoundedRandomETA(minMinutes, maxMinutes int) *BoundedRandomETA {
	if minMinutes <= 0 || maxMinutes < minMinutes {
		minMinutes, maxMinutes = 5, 15
	}
	return &BoundedRandomETA{
		MinMinutes: minMinutes,
		MaxMinutes: maxMinutes,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *BoundedRandomETA) Estimate(pickupLat, pickupLng *float64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.MinMinutes + p.rng.Intn(p.MaxMinutes-p.MinMinutes+1)
}

// FixedETA 固定值策略（测试用）。
type FixedETA int

func (p FixedETA) Estimate(pickupLat, pickupLng *float64) int {
	return int(p)
}
