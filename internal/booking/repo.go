package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoadRescue/RoadRescue/internal/domain"
	"gorm.io/gorm"
)

// activeStatuses 活跃订单状态集合。
var activeStatuses = []Status{StatusPending, StatusAccepted, StatusInProgress}

type GormRepo struct {
	db *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

func (r *GormRepo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *GormRepo) Create(ctx context.Context, b *Booking) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(b).Error
}

func (r *GormRepo) Update(ctx context.Context, b *Booking) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(b).Error
}

func (r *GormRepo) GetByID(ctx context.Context, id string) (*Booking, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var b Booking
	if err := db.Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError{Resource: "booking", ID: id, Err: err}
		}
		return nil, err
	}
	return &b, nil
}

// FindActiveByUser 查用户当前的活跃订单；没有则返回 (nil, nil)。
func (r *GormRepo) FindActiveByUser(ctx context.Context, userID string) (*Booking, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var b Booking
	err := db.Where("user_id = ? AND status IN ?", userID, activeStatuses).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// FindByIdempotencyKey 按幂等键查该用户的历史创建结果；没有返回 (nil, nil)。
func (r *GormRepo) FindByIdempotencyKey(ctx context.Context, userID, key string) (*Booking, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var b Booking
	err := db.Where("user_id = ? AND idempotency_key = ?", userID, key).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// List 用户历史订单，按创建时间倒序 + 分页。
func (r *GormRepo) List(ctx context.Context, userID string, offset, limit int) ([]Booking, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := db.Model(&Booking{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []Booking
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// SumCompletedPrice 历史消费总额：已完成订单 price 求和（统一口径）。
func (r *GormRepo) SumCompletedPrice(ctx context.Context, userID string) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	var total int64
	err := db.Model(&Booking{}).
		Where("user_id = ? AND status = ?", userID, StatusCompleted).
		Select("COALESCE(SUM(price), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
