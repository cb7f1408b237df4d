package booking

import (
	"context"
	"strings"
	"time"

	"github.com/RoadRescue/RoadRescue/internal/common/logger"
	"github.com/RoadRescue/RoadRescue/internal/common/middleware"
	"github.com/RoadRescue/RoadRescue/internal/directory"
	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/RoadRescue/RoadRescue/internal/vehicle"
	"github.com/google/uuid"
)

// Repo 订单存储接口。
type Repo interface {
	Create(ctx context.Context, b *Booking) error
	Update(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	FindActiveByUser(ctx context.Context, userID string) (*Booking, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*Booking, error)
	List(ctx context.Context, userID string, offset, limit int) ([]Booking, int64, error)
	SumCompletedPrice(ctx context.Context, userID string) (int64, error)
}

// MechanicDirectory 订单服务对技师目录的依赖。
type MechanicDirectory interface {
	GetMechanic(ctx context.Context, id string) (*directory.Mechanic, error)
	RecordJobCompleted(ctx context.Context, id string) error
}

// VehicleStore 订单服务对车辆存储的依赖。
type VehicleStore interface {
	Get(ctx context.Context, id, ownerID string) (*vehicle.Vehicle, error)
}

// Publisher 变更事件发布接口（由 feed 包实现）。
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Service 订单生命周期的唯一写入口：
// - 校验并应用状态流转（见 state_machine.go）
// - 同一订单的并发流转按订单 ID 串行（keyedMutex），不同订单互不阻塞
// - 先提交存储，再发布事件；发布失败不回滚已提交的状态
type Service struct {
	repo      Repo
	mechanics MechanicDirectory
	vehicles  VehicleStore
	publisher Publisher
	eta       ETAPolicy
	breaker   *middleware.CircuitBreaker
	log       logger.Logger
	locks     *keyedMutex
}

func NewService(repo Repo, mechanics MechanicDirectory, vehicles VehicleStore, publisher Publisher, eta ETAPolicy, log logger.Logger) *Service {
	if eta == nil {
		eta = NewBoundedRandomETA(5, 15)
	}
	return &Service{
		repo:      repo,
		mechanics: mechanics,
		vehicles:  vehicles,
		publisher: publisher,
		eta:       eta,
		breaker:   middleware.NewCircuitBreaker("booking-feed-publish", 5, 30*time.Second),
		log:       log,
		locks:     newKeyedMutex(),
	}
}

// CreateInput 创建订单的入参。
type CreateInput struct {
	UserID         string
	MechanicID     string
	VehicleID      *string
	ServiceType    string
	PickupLocation string
	PickupLat      *float64
	PickupLng      *float64
	Notes          string

	// 客户端重试用的幂等键，可空。
	// 网络抖动下盲目重试 create 会破坏"至多一个活跃订单"，
	// 带幂等键的重试返回首次创建的结果。
	IdempotencyKey string
}

// Create 创建订单：进入 pending，返回含技师/车辆冗余快照的完整记录。
// 前置条件：用户没有活跃订单；技师存在且当前可接单。
func (s *Service) Create(ctx context.Context, in CreateInput) (*Booking, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, domain.ValidationError{Field: "user_id", Msg: "required"}
	}
	mechanicID := strings.TrimSpace(in.MechanicID)
	if mechanicID == "" {
		return nil, domain.ValidationError{Field: "mechanic_id", Msg: "required"}
	}
	serviceType := strings.TrimSpace(in.ServiceType)
	if serviceType == "" {
		return nil, domain.ValidationError{Field: "service_type", Msg: "required"}
	}
	pickup := strings.TrimSpace(in.PickupLocation)
	if pickup == "" {
		return nil, domain.ValidationError{Field: "pickup_location", Msg: "required"}
	}

	// 同一用户的并发 create 串行化，避免双活跃订单
	userKey := "user:" + userID
	s.locks.Lock(userKey)
	defer s.locks.Unlock(userKey)

	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return nil, wrapStoreErr("booking lookup", err)
		}
		if existing != nil {
			s.attachSnapshots(ctx, existing)
			return existing, nil
		}
	}

	active, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, wrapStoreErr("booking lookup", err)
	}
	if active != nil {
		return nil, domain.ConflictError{Resource: "booking", Msg: "an active booking already exists"}
	}

	mech, err := s.mechanics.GetMechanic(ctx, mechanicID)
	if err != nil {
		return nil, err
	}
	if !mech.IsAvailable {
		return nil, domain.NotFoundError{Resource: "available mechanic", ID: mechanicID}
	}

	var veh *vehicle.Vehicle
	if in.VehicleID != nil && strings.TrimSpace(*in.VehicleID) != "" {
		veh, err = s.vehicles.Get(ctx, strings.TrimSpace(*in.VehicleID), userID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	b := &Booking{
		ID:             uuid.NewString(),
		UserID:         userID,
		MechanicID:     &mechanicID,
		Status:         StatusPending,
		ServiceType:    serviceType,
		Notes:          strings.TrimSpace(in.Notes),
		PickupLocation: pickup,
		PickupLat:      in.PickupLat,
		PickupLng:      in.PickupLng,
		ETAMinutes:     s.eta.Estimate(in.PickupLat, in.PickupLng),
		Currency:       "PKR",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if veh != nil {
		id := veh.ID
		b.VehicleID = &id
	}
	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		b.IdempotencyKey = &key
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, wrapStoreErr("booking create", err)
	}

	b.Mechanic = mech.Clone()
	b.Vehicle = veh.Clone()
	s.publish(ctx, b)
	return b, nil
}

// TransitionInput 状态流转的附加字段。
type TransitionInput struct {
	// completed 时必填（已有值则可省略；不允许改写已写入的价格）
	Price *int64

	// 技师实时位置，可随任意一次流转带上
	MechanicLat *float64
	MechanicLng *float64
}

// Transition 按状态机规则流转订单。
// completed 的订单在同一次提交里必须带上价格，不会出现完成且无价格的记录。
func (s *Service) Transition(ctx context.Context, bookingID string, to Status, in TransitionInput) (*Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return nil, domain.ValidationError{Field: "booking_id", Msg: "required"}
	}
	if !IsValidStatus(to) {
		return nil, domain.ValidationError{Field: "status", Msg: "unknown status"}
	}
	if to == StatusCancelled {
		// 取消有独立语义（原因 + 幂等），走 Cancel
		return nil, domain.ValidationError{Field: "status", Msg: "use cancel endpoint"}
	}

	s.locks.Lock(bookingID)
	defer s.locks.Unlock(bookingID)

	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.Price != nil && in.Price != nil && *in.Price != *b.Price {
		return nil, domain.ConflictError{Resource: "price", Msg: "price already set"}
	}
	if to == StatusCompleted && b.Price == nil && in.Price == nil {
		return nil, domain.ValidationError{Field: "price", Msg: "required when completing"}
	}

	if err := ApplyTransition(b, to, time.Now()); err != nil {
		return nil, err
	}

	if in.Price != nil && b.Price == nil {
		b.Price = in.Price
	}
	if in.MechanicLat != nil {
		b.MechanicLat = in.MechanicLat
	}
	if in.MechanicLng != nil {
		b.MechanicLng = in.MechanicLng
	}

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, wrapStoreErr("booking update", err)
	}

	if to == StatusCompleted && b.MechanicID != nil {
		// 完单数累计失败不影响订单本身
		if err := s.mechanics.RecordJobCompleted(ctx, *b.MechanicID); err != nil && s.log != nil {
			s.log.Warnf("failed to record completed job for mechanic %s: %v", *b.MechanicID, err)
		}
	}

	s.attachSnapshots(ctx, b)
	s.publish(ctx, b)
	return b, nil
}

// Cancel 取消订单：任意非终态可取消；重复取消幂等返回成功且不重复发事件。
func (s *Service) Cancel(ctx context.Context, bookingID, reason string) (*Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return nil, domain.ValidationError{Field: "booking_id", Msg: "required"}
	}

	s.locks.Lock(bookingID)
	defer s.locks.Unlock(bookingID)

	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.Status == StatusCancelled {
		s.attachSnapshots(ctx, b)
		return b, nil
	}

	if err := ApplyTransition(b, StatusCancelled, time.Now()); err != nil {
		return nil, err
	}
	b.CancelReason = strings.TrimSpace(reason)

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, wrapStoreErr("booking update", err)
	}

	s.attachSnapshots(ctx, b)
	s.publish(ctx, b)
	return b, nil
}

// UpdateMechanicPosition 更新技师实时位置（不改状态），同样走事件通道。
func (s *Service) UpdateMechanicPosition(ctx context.Context, bookingID string, lat, lng float64) (*Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return nil, domain.ValidationError{Field: "booking_id", Msg: "required"}
	}

	s.locks.Lock(bookingID)
	defer s.locks.Unlock(bookingID)

	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if IsTerminal(b.Status) {
		return nil, domain.InvalidTransitionError{From: string(b.Status), To: string(b.Status)}
	}

	b.MechanicLat = &lat
	b.MechanicLng = &lng
	b.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, wrapStoreErr("booking update", err)
	}

	s.attachSnapshots(ctx, b)
	s.publish(ctx, b)
	return b, nil
}

// Get 权威读路径：订阅断开后的 resync 走这里。
func (s *Service) Get(ctx context.Context, bookingID string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.attachSnapshots(ctx, b)
	return b, nil
}

// Active 用户当前活跃订单；没有返回 (nil, nil)。
func (s *Service) Active(ctx context.Context, userID string) (*Booking, error) {
	b, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, wrapStoreErr("booking lookup", err)
	}
	if b == nil {
		return nil, nil
	}
	s.attachSnapshots(ctx, b)
	return b, nil
}

// History 历史订单 + 消费总额（已完成订单 price 求和的统一口径）。
func (s *Service) History(ctx context.Context, userID string, offset, limit int) ([]Booking, int64, int64, error) {
	bookings, total, err := s.repo.List(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, 0, wrapStoreErr("booking list", err)
	}
	spent, err := s.repo.SumCompletedPrice(ctx, userID)
	if err != nil {
		return nil, 0, 0, wrapStoreErr("booking sum", err)
	}
	return bookings, total, spent, nil
}

// publish 状态已提交后发布事件；失败只记日志，由订阅侧 resync 兜底。
func (s *Service) publish(ctx context.Context, b *Booking) {
	if s.publisher == nil {
		return
	}
	evt := NewEvent(b)
	err := s.breaker.Call(ctx, func() error {
		return s.publisher.Publish(ctx, evt)
	})
	if err != nil && s.log != nil {
		s.log.Warnf("failed to publish booking event id=%s status=%s: %v", b.ID, b.Status, err)
	}
}

// attachSnapshots 填充展示用的技师/车辆冗余快照，失败不阻塞主流程。
func (s *Service) attachSnapshots(ctx context.Context, b *Booking) {
	if b == nil {
		return
	}
	if b.Mechanic == nil && b.MechanicID != nil && s.mechanics != nil {
		if m, err := s.mechanics.GetMechanic(ctx, *b.MechanicID); err == nil {
			b.Mechanic = m
		}
	}
	if b.Vehicle == nil && b.VehicleID != nil && s.vehicles != nil {
		if v, err := s.vehicles.Get(ctx, *b.VehicleID, b.UserID); err == nil {
			b.Vehicle = v
		}
	}
}

// wrapStoreErr 存储层错误统一归为连接类错误（领域错误原样透传）。
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsNotFound(err) || domain.IsConflict(err) || domain.IsValidation(err) || domain.IsInvalidTransition(err) {
		return err
	}
	return domain.ConnectivityError{Op: op, Err: err}
}
