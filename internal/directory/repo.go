package directory

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

func (r *GormRepo) GetByID(ctx context.Context, id string) (*Mechanic, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var m Mechanic
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError{Resource: "mechanic", ID: id, Err: err}
		}
		return nil, err
	}
	return &m, nil
}

// ListAvailable 分页查询当前可接单的技师。
func (r *GormRepo) ListAvailable(ctx context.Context, offset, limit int) ([]Mechanic, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var mechanics []Mechanic
	err := db.Model(&Mechanic{}).
		Where("is_available = ?", true).
		Order("id").
		Offset(offset).Limit(limit).
		Find(&mechanics).Error
	if err != nil {
		return nil, err
	}
	return mechanics, nil
}

// SetAvailability 切换可用性，立即对后续查询生效。
func (r *GormRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Model(&Mechanic{}).Where("id = ?", id).Update("is_available", available)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "mechanic", ID: id}
	}
	return nil
}

// RecordJobCompleted 完单计数 +1（单条 UPDATE，避免读改写竞态）。
func (r *GormRepo) RecordJobCompleted(ctx context.Context, id string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Model(&Mechanic{}).Where("id = ?", id).
		Update("total_jobs", gorm.Expr("total_jobs + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "mechanic", ID: id}
	}
	return nil
}

// RecordRating 累计一次评分并维护算术平均。
// 单条 UPDATE 原子完成；MySQL 的 SET 从左到右求值，
// 必须先用旧的 total_ratings 算均值，再做计数 +1。
func (r *GormRepo) RecordRating(ctx context.Context, id string, stars int) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Exec(
		"UPDATE mechanics SET rating = (rating * total_ratings + ?) / (total_ratings + 1), total_ratings = total_ratings + 1 WHERE id = ?",
		stars, id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "mechanic", ID: id}
	}
	return nil
}

// Upsert 写入/更新技师（目录管理 / 运营后台导入用）。
func (r *GormRepo) Upsert(ctx context.Context, m *Mechanic) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(m).Error
}
