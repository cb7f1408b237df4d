package directory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/RoadRescue/RoadRescue/internal/common/logger"
	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	availableCacheKey = "mechanics:available"
	availableCacheTTL = 30 * time.Second

	// 迭代器每批拉取的条数
	iterBatchSize = 50
)

// Repo 目录存储接口（服务层只依赖这组能力，便于测试替换）。
type Repo interface {
	GetByID(ctx context.Context, id string) (*Mechanic, error)
	ListAvailable(ctx context.Context, offset, limit int) ([]Mechanic, error)
	SetAvailability(ctx context.Context, id string, available bool) error
	RecordJobCompleted(ctx context.Context, id string) error
	RecordRating(ctx context.Context, id string, stars int) error
}

// Service 技师目录服务：可用技师查询 + 可用性开关。
// Redis 只作为快照缓存，写路径（SetAvailability）立即失效缓存，
// 读到的快照最多落后一次写。
type Service struct {
	repo  Repo
	redis *redis.Client
	log   logger.Logger
}

func NewService(repo Repo, redisClient *redis.Client, log logger.Logger) *Service {
	return &Service{repo: repo, redis: redisClient, log: log}
}

// GetMechanic 按 ID 查询技师。
func (s *Service) GetMechanic(ctx context.Context, id string) (*Mechanic, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAvailable 返回可用技师的惰性迭代器：按批从存储分页拉取，
// 不强制一次性物化；每次调用得到一个可从头重放的新迭代器。
func (s *Service) ListAvailable(ctx context.Context) *Iterator {
	return &Iterator{
		ctx:  ctx,
		repo: s.repo,
	}
}

// AvailableSnapshot 物化一份当前可用技师列表（HTTP 层用），
// 优先读 Redis 快照缓存，未命中则遍历迭代器并回填。
func (s *Service) AvailableSnapshot(ctx context.Context) ([]Mechanic, error) {
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, availableCacheKey).Result(); err == nil && raw != "" {
			var cached []Mechanic
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		}
	}

	var out []Mechanic
	it := s.ListAvailable(ctx)
	for it.Next() {
		out = append(out, *it.Mechanic())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(out); err == nil {
			if err := s.redis.Set(ctx, availableCacheKey, data, availableCacheTTL).Err(); err != nil && s.log != nil {
				s.log.Warnf("failed to cache available mechanics: %v", err)
			}
		}
	}
	return out, nil
}

// SetAvailability 技师侧唯一的写操作：切换可用性并失效缓存。
func (s *Service) SetAvailability(ctx context.Context, id string, available bool) error {
	if err := s.repo.SetAvailability(ctx, id, available); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RecordJobCompleted 订单完成时累计完单数，并失效快照缓存。
func (s *Service) RecordJobCompleted(ctx context.Context, id string) error {
	if err := s.repo.RecordJobCompleted(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RateMechanic 服务结束后的用户评分，1-5 星，累计进算术平均。
func (s *Service) RateMechanic(ctx context.Context, id string, stars int) error {
	if stars < 1 || stars > 5 {
		return domain.ValidationError{Field: "stars", Msg: "must be between 1 and 5"}
	}
	if err := s.repo.RecordRating(ctx, id, stars); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, availableCacheKey).Err(); err != nil && s.log != nil {
		s.log.Warnf("failed to invalidate mechanic cache: %v", err)
	}
}

// Iterator 可用技师的惰性迭代器。
// 用法：
//
//	it := svc.ListAvailable(ctx)
//	for it.Next() { m := it.Mechanic(); ... }
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	ctx  context.Context
	repo Repo

	batch  []Mechanic
	idx    int
	offset int
	done   bool
	err    error
}

// Next 推进到下一个技师；没有更多数据或出错时返回 false。
func (it *Iterator) Next() bool {
	if it.done || it.err != nil {
		return false
	}
	it.idx++
	if it.idx < len(it.batch) {
		return true
	}

	// 当前批耗尽，拉下一批
	batch, err := it.repo.ListAvailable(it.ctx, it.offset, iterBatchSize)
	if err != nil {
		it.err = err
		return false
	}
	if len(batch) == 0 {
		it.done = true
		return false
	}
	it.offset += len(batch)
	it.batch = batch
	it.idx = 0
	return true
}

// Mechanic 当前位置的技师（仅在 Next 返回 true 后有效）。
func (it *Iterator) Mechanic() *Mechanic {
	if it.idx < 0 || it.idx >= len(it.batch) {
		return nil
	}
	return &it.batch[it.idx]
}

// Err 迭代过程中的错误。
func (it *Iterator) Err() error {
	return it.err
}
