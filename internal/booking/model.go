package booking

import (
	"time"

	"github.com/RoadRescue/RoadRescue/internal/directory"
	"github.com/RoadRescue/RoadRescue/internal/vehicle"
)

// Status 订单状态枚举（持久化为字符串）。
type Status string

const (
	StatusPending    Status = "pending"     // 已下单，等待技师确认
	StatusAccepted   Status = "accepted"    // 技师已接单，赶往现场
	StatusInProgress Status = "in_progress" // 服务进行中
	StatusCompleted  Status = "completed"   // 已完成
	StatusCancelled  Status = "cancelled"   // 已取消（用户/技师）
)

// Booking 救援订单 GORM 模型。
// 一个用户同一时刻最多只有一个活跃订单（pending/accepted/in_progress）。
type Booking struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	// 业务关联
	UserID     string  `gorm:"index;size:36;not null" json:"user_id"`           // 下单用户
	MechanicID *string `gorm:"index;size:36" json:"mechanic_id,omitempty"`      // 技师；一旦写入不再变更
	VehicleID  *string `gorm:"index;size:36" json:"vehicle_id,omitempty"`       // 可选：关联车辆
	Status     Status  `gorm:"type:varchar(16);index;not null" json:"status"` // 当前状态

	// 服务信息
	ServiceType string `gorm:"size:64;not null" json:"service_type"` // 服务类型（Battery / Towing / ...）
	Notes       string `gorm:"size:512" json:"notes"`

	// 位置信息
	PickupLocation string   `gorm:"size:255;not null" json:"pickup_location"` // 人类可读地址
	PickupLat      *float64 `gorm:"type:double" json:"pickup_lat,omitempty"`
	PickupLng      *float64 `gorm:"type:double" json:"pickup_lng,omitempty"`
	MechanicLat    *float64 `gorm:"type:double" json:"mechanic_lat,omitempty"` // 技师实时位置，随流转更新
	MechanicLng    *float64 `gorm:"type:double" json:"mechanic_lng,omitempty"`

	// 预估到达（分钟），下单时由 ETA 策略给出，仅用于展示
	ETAMinutes int `gorm:"not null;default:0" json:"eta_minutes"`

	// 金额（完成时写入，一旦写入不再变更）
	Price    *int64 `gorm:"type:bigint" json:"price,omitempty"`
	Currency string `gorm:"size:8;not null;default:'PKR'" json:"currency"`

	// 取消原因（cancelled 时写入）
	CancelReason string `gorm:"size:255" json:"cancel_reason,omitempty"`

	// 幂等键：客户端重试 create 时带上，唯一索引兜底
	IdempotencyKey *string `gorm:"uniqueIndex;size:64" json:"-"`

	// 时间信息
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	// 冗余快照，展示用（不落库，查询时填充）
	Mechanic *directory.Mechanic `gorm:"-" json:"mechanic,omitempty"`
	Vehicle  *vehicle.Vehicle    `gorm:"-" json:"vehicle,omitempty"`
}

// IsActive 是否处于活跃状态（未到终态）。
func (b *Booking) IsActive() bool {
	if b == nil {
		return false
	}
	return !IsTerminal(b.Status)
}

// Clone 浅拷贝一份订单快照（事件发布 / 本地视图合并用）。
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	cp := *b
	return &cp
}
