package vehicle

import (
	"context"
	"testing"

	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	vehicles []Vehicle
}

func (r *fakeRepo) Create(ctx context.Context, v *Vehicle) error {
	r.vehicles = append(r.vehicles, *v)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id, ownerID string) (*Vehicle, error) {
	for i := range r.vehicles {
		if r.vehicles[i].ID == id && r.vehicles[i].OwnerID == ownerID {
			return r.vehicles[i].Clone(), nil
		}
	}
	return nil, domain.NotFoundError{Resource: "vehicle", ID: id}
}

func (r *fakeRepo) ListByOwner(ctx context.Context, ownerID string) ([]Vehicle, error) {
	var out []Vehicle
	for _, v := range r.vehicles {
		if v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	for _, v := range r.vehicles {
		if v.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

// SetPrimary 先全部清零再置一，与 GORM 实现同一写路径语义。
func (r *fakeRepo) SetPrimary(ctx context.Context, id, ownerID string) error {
	found := false
	for i := range r.vehicles {
		if r.vehicles[i].OwnerID == ownerID {
			r.vehicles[i].IsPrimary = false
		}
	}
	for i := range r.vehicles {
		if r.vehicles[i].ID == id && r.vehicles[i].OwnerID == ownerID {
			r.vehicles[i].IsPrimary = true
			found = true
		}
	}
	if !found {
		return domain.NotFoundError{Resource: "vehicle", ID: id}
	}
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id, ownerID string) error {
	for i := range r.vehicles {
		if r.vehicles[i].ID == id && r.vehicles[i].OwnerID == ownerID {
			r.vehicles = append(r.vehicles[:i], r.vehicles[i+1:]...)
			return nil
		}
	}
	return domain.NotFoundError{Resource: "vehicle", ID: id}
}

func createInput() CreateVehicleInput {
	return CreateVehicleInput{
		OwnerID:            "u1",
		VehicleType:        "car",
		Brand:              "Suzuki",
		Model:              "Mehran",
		RegistrationNumber: "LEB-1234",
	}
}

func TestFirstVehicleBecomesPrimary(t *testing.T) {
	svc := NewService(&fakeRepo{})
	ctx := context.Background()

	v1, err := svc.Create(ctx, createInput())
	require.NoError(t, err)
	assert.True(t, v1.IsPrimary)

	in := createInput()
	in.RegistrationNumber = "LEB-5678"
	v2, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.False(t, v2.IsPrimary)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(&fakeRepo{})
	ctx := context.Background()

	in := createInput()
	in.VehicleType = ""
	_, err := svc.Create(ctx, in)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	in = createInput()
	in.RegistrationNumber = "  "
	_, err = svc.Create(ctx, in)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestSetPrimaryMovesFlag(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	v1, err := svc.Create(ctx, createInput())
	require.NoError(t, err)
	in := createInput()
	in.RegistrationNumber = "LEB-5678"
	v2, err := svc.Create(ctx, in)
	require.NoError(t, err)

	require.NoError(t, svc.SetPrimary(ctx, v2.ID, "u1"))

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	var primaries int
	for _, v := range list {
		if v.IsPrimary {
			primaries++
			assert.Equal(t, v2.ID, v.ID)
		}
	}
	assert.Equal(t, 1, primaries, "exactly one primary per owner")
	_ = v1
}

func TestSetPrimaryUnknownVehicle(t *testing.T) {
	svc := NewService(&fakeRepo{})
	err := svc.SetPrimary(context.Background(), "missing", "u1")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteScopedToOwner(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	v, err := svc.Create(ctx, createInput())
	require.NoError(t, err)

	err = svc.Delete(ctx, v.ID, "someone-else")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, v.ID, "u1"))
}
