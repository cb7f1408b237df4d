package directory

import "time"

// Mechanic 技师目录 GORM 模型。
// 可用性由技师侧开关；评分与完单数在订单完成时累计。
type Mechanic struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:64;not null" json:"name"`
	Phone        string    `gorm:"size:32" json:"phone"`                    // 联系方式（不透明字符串）
	Specialty    string    `gorm:"size:64" json:"specialty"`                // 专长标签
	Rating       float64   `gorm:"not null;default:0" json:"rating"`        // 0.0 - 5.0，评分累计的算术平均
	TotalRatings int       `gorm:"not null;default:0" json:"total_ratings"` // 评分次数
	TotalJobs    int       `gorm:"not null;default:0" json:"total_jobs"`    // 完单数
	Area         string    `gorm:"size:128" json:"area"`                    // 服务区域
	PriceRange   string    `gorm:"size:32" json:"price_range"`              // 价格区间标签
	IsAvailable  bool      `gorm:"index;not null" json:"is_available"`      // 当前是否可接单
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Clone 浅拷贝（订单冗余快照用）。
func (m *Mechanic) Clone() *Mechanic {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}
