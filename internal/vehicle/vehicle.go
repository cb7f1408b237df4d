package vehicle

import "time"

// Vehicle 用户车辆 GORM 模型。
// 每个用户同一时刻最多一辆 is_primary=true 的车，
// 由写路径（先全部清零再置一）保证，而非仅靠数据库约束。
type Vehicle struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID            string    `gorm:"index;size:36;not null" json:"owner_id"`
	VehicleType        string    `gorm:"size:32;not null" json:"vehicle_type"` // car / bike / rickshaw（开放集合）
	Brand              string    `gorm:"size:64" json:"brand"`
	Model              string    `gorm:"size:64" json:"model"`
	RegistrationNumber string    `gorm:"size:32;not null" json:"registration_number"` // 车牌（自由文本，不校验地区格式）
	Color              *string   `gorm:"size:32" json:"color,omitempty"`
	Year               *int      `gorm:"type:int" json:"year,omitempty"`
	IsPrimary          bool      `gorm:"index;not null" json:"is_primary"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Clone 浅拷贝（订单冗余快照用）。
func (v *Vehicle) Clone() *Vehicle {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
