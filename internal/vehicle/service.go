package vehicle

import (
	"context"
	"strings"

	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/google/uuid"
)

// Repo 车辆存储接口。
type Repo interface {
	Create(ctx context.Context, v *Vehicle) error
	GetByID(ctx context.Context, id, ownerID string) (*Vehicle, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Vehicle, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	SetPrimary(ctx context.Context, id, ownerID string) error
	Delete(ctx context.Context, id, ownerID string) error
}

// Service 车辆管理。
type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// CreateVehicleInput 新增车辆入参。
type CreateVehicleInput struct {
	OwnerID            string
	VehicleType        string
	Brand              string
	Model              string
	RegistrationNumber string
	Color              *string
	Year               *int
}

// Create 新增车辆；用户的第一辆车自动成为主车辆。
func (s *Service) Create(ctx context.Context, in CreateVehicleInput) (*Vehicle, error) {
	ownerID := strings.TrimSpace(in.OwnerID)
	if ownerID == "" {
		return nil, domain.ValidationError{Field: "owner_id", Msg: "required"}
	}
	vt := strings.TrimSpace(in.VehicleType)
	if vt == "" {
		return nil, domain.ValidationError{Field: "vehicle_type", Msg: "required"}
	}
	reg := strings.TrimSpace(in.RegistrationNumber)
	if reg == "" {
		return nil, domain.ValidationError{Field: "registration_number", Msg: "required"}
	}

	count, err := s.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	v := &Vehicle{
		ID:                 uuid.NewString(),
		OwnerID:            ownerID,
		VehicleType:        vt,
		Brand:              strings.TrimSpace(in.Brand),
		Model:              strings.TrimSpace(in.Model),
		RegistrationNumber: reg,
		Color:              in.Color,
		Year:               in.Year,
		IsPrimary:          count == 0,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, id, ownerID string) (*Vehicle, error) {
	return s.repo.GetByID(ctx, id, ownerID)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]Vehicle, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// SetPrimary 切换主车辆（先清零再置一，见 repo）。
func (s *Service) SetPrimary(ctx context.Context, id, ownerID string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ValidationError{Field: "id", Msg: "required"}
	}
	return s.repo.SetPrimary(ctx, id, ownerID)
}

func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	return s.repo.Delete(ctx, id, ownerID)
}
