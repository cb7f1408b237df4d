package vehicle

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoadRescue/RoadRescue/internal/domain"
	"gorm.io/gorm"
)

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

func (r *GormRepo) Create(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(v).Error
}

func (r *GormRepo) GetByID(ctx context.Context, id, ownerID string) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	err := db.Where("id = ? AND owner_id = ?", id, ownerID).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError{Resource: "vehicle", ID: id, Err: err}
		}
		return nil, err
	}
	return &v, nil
}

// ListByOwner 主车辆排前面，其余按创建时间倒序。
func (r *GormRepo) ListByOwner(ctx context.Context, ownerID string) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var vehicles []Vehicle
	err := db.Where("owner_id = ?", ownerID).
		Order("is_primary DESC, created_at DESC").
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

// CountByOwner 用户名下车辆数（第一辆车自动设为主车辆时用）。
func (r *GormRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	var n int64
	err := db.Model(&Vehicle{}).Where("owner_id = ?", ownerID).Count(&n).Error
	return n, err
}

// SetPrimary 切换主车辆：同一事务内先清掉该用户全部主车辆标记，再置目标车辆。
// 并发的两次 SetPrimary 串行化到事务级别，不会出现双主。
func (r *GormRepo) SetPrimary(ctx context.Context, id, ownerID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Vehicle{}).
			Where("owner_id = ?", ownerID).
			Update("is_primary", false).Error; err != nil {
			return err
		}
		res := tx.Model(&Vehicle{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Update("is_primary", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFoundError{Resource: "vehicle", ID: id}
		}
		return nil
	})
}

func (r *GormRepo) Delete(ctx context.Context, id, ownerID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&Vehicle{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "vehicle", ID: id}
	}
	return nil
}
