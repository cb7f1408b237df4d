package directory

import (
	"context"
	"fmt"
	"testing"

	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mechanics []Mechanic
	calls     int
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*Mechanic, error) {
	for i := range r.mechanics {
		if r.mechanics[i].ID == id {
			return r.mechanics[i].Clone(), nil
		}
	}
	return nil, domain.NotFoundError{Resource: "mechanic", ID: id}
}

func (r *fakeRepo) ListAvailable(ctx context.Context, offset, limit int) ([]Mechanic, error) {
	r.calls++
	var avail []Mechanic
	for _, m := range r.mechanics {
		if m.IsAvailable {
			avail = append(avail, m)
		}
	}
	if offset >= len(avail) {
		return nil, nil
	}
	end := offset + limit
	if end > len(avail) {
		end = len(avail)
	}
	return avail[offset:end], nil
}

func (r *fakeRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	for i := range r.mechanics {
		if r.mechanics[i].ID == id {
			r.mechanics[i].IsAvailable = available
			return nil
		}
	}
	return domain.NotFoundError{Resource: "mechanic", ID: id}
}

func (r *fakeRepo) RecordJobCompleted(ctx context.Context, id string) error {
	for i := range r.mechanics {
		if r.mechanics[i].ID == id {
			r.mechanics[i].TotalJobs++
			return nil
		}
	}
	return domain.NotFoundError{Resource: "mechanic", ID: id}
}

func (r *fakeRepo) RecordRating(ctx context.Context, id string, stars int) error {
	for i := range r.mechanics {
		if r.mechanics[i].ID == id {
			m := &r.mechanics[i]
			m.Rating = (m.Rating*float64(m.TotalRatings) + float64(stars)) / float64(m.TotalRatings+1)
			m.TotalRatings++
			return nil
		}
	}
	return domain.NotFoundError{Resource: "mechanic", ID: id}
}

func seedRepo(n int) *fakeRepo {
	r := &fakeRepo{}
	for i := 0; i < n; i++ {
		r.mechanics = append(r.mechanics, Mechanic{
			ID:          fmt.Sprintf("m%03d", i),
			Name:        fmt.Sprintf("Mechanic %d", i),
			IsAvailable: true,
		})
	}
	return r
}

func TestIteratorWalksAllBatches(t *testing.T) {
	// 超过一批的量，验证跨批翻页
	repo := seedRepo(iterBatchSize*2 + 7)
	svc := NewService(repo, nil, nil)

	it := svc.ListAvailable(context.Background())
	var seen []string
	for it.Next() {
		seen = append(seen, it.Mechanic().ID)
	}
	require.NoError(t, it.Err())
	assert.Len(t, seen, iterBatchSize*2+7)

	// 无重复
	uniq := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		uniq[id] = struct{}{}
	}
	assert.Len(t, uniq, len(seen))
}

func TestIteratorEmpty(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil, nil)
	it := svc.ListAvailable(context.Background())
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
	assert.Nil(t, it.Mechanic())
}

func TestIteratorRestartable(t *testing.T) {
	repo := seedRepo(3)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	first := svc.ListAvailable(ctx)
	var a []string
	for first.Next() {
		a = append(a, first.Mechanic().ID)
	}
	require.NoError(t, first.Err())

	// 新迭代器从头重放
	second := svc.ListAvailable(ctx)
	var b []string
	for second.Next() {
		b = append(b, second.Mechanic().ID)
	}
	require.NoError(t, second.Err())
	assert.Equal(t, a, b)
}

func TestIteratorSkipsUnavailable(t *testing.T) {
	repo := seedRepo(4)
	repo.mechanics[1].IsAvailable = false
	svc := NewService(repo, nil, nil)

	it := svc.ListAvailable(context.Background())
	for it.Next() {
		assert.True(t, it.Mechanic().IsAvailable)
		assert.NotEqual(t, "m001", it.Mechanic().ID)
	}
	require.NoError(t, it.Err())
}

func TestAvailableSnapshotWithoutCache(t *testing.T) {
	repo := seedRepo(5)
	svc := NewService(repo, nil, nil)

	out, err := svc.AvailableSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 5)
}

func TestSetAvailability(t *testing.T) {
	repo := seedRepo(1)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.SetAvailability(ctx, "m000", false))
	m, err := svc.GetMechanic(ctx, "m000")
	require.NoError(t, err)
	assert.False(t, m.IsAvailable)

	err = svc.SetAvailability(ctx, "missing", true)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestRecordJobCompleted(t *testing.T) {
	repo := seedRepo(1)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.RecordJobCompleted(ctx, "m000"))
	m, err := svc.GetMechanic(ctx, "m000")
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalJobs)
}

func TestRateMechanic(t *testing.T) {
	repo := seedRepo(1)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	for _, stars := range []int{0, 6, -1} {
		err := svc.RateMechanic(ctx, "m000", stars)
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err), "stars=%d must be rejected", stars)
	}

	require.NoError(t, svc.RateMechanic(ctx, "m000", 5))
	require.NoError(t, svc.RateMechanic(ctx, "m000", 4))

	m, err := svc.GetMechanic(ctx, "m000")
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalRatings)
	assert.InDelta(t, 4.5, m.Rating, 1e-9)

	err = svc.RateMechanic(ctx, "missing", 3)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}
