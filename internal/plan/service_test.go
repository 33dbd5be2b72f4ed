package plan

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
)

type fakeStore struct {
	plans map[string]*db.Plan
}

func newFakeStore() *fakeStore {
	return &fakeStore{plans: make(map[string]*db.Plan)}
}

func (f *fakeStore) CreatePlan(p *db.Plan) error {
	if _, ok := f.plans[p.Code]; ok {
		return &core.ConflictError{Field: "plan code", Value: p.Code}
	}
	cp := *p
	f.plans[p.Code] = &cp
	return nil
}

func (f *fakeStore) GetPlan(code string) (*db.Plan, error) {
	p, ok := f.plans[code]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListPlans(includeArchived bool) ([]*db.Plan, error) {
	var out []*db.Plan
	for _, p := range f.plans {
		if !includeArchived && !p.Active {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) UpdatePlan(p *db.Plan) error {
	if _, ok := f.plans[p.Code]; !ok {
		return core.ErrNotFound
	}
	cp := *p
	f.plans[p.Code] = &cp
	return nil
}

func newService(store Store) *Service {
	clock := core.FixedClock{T: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewService(store, zap.NewNop(), clock)
}

func TestCreatePlan(t *testing.T) {
	t.Run("derives yearly price from monthly", func(t *testing.T) {
		svc := newService(newFakeStore())

		p, err := svc.Create("basic", Spec{
			Name:         "Basic",
			MaxUsers:     10,
			MaxStorageGB: 5.0,
			PriceMonthly: decimal.NewFromInt(29),
		})

		require.NoError(t, err)
		assert.True(t, p.PriceYearly.Equal(decimal.NewFromInt(290)))
		assert.True(t, p.Active)
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		svc := newService(newFakeStore())
		spec := Spec{Name: "Basic", PriceMonthly: decimal.NewFromInt(29)}

		_, err := svc.Create("basic", spec)
		require.NoError(t, err)

		_, err = svc.Create("basic", spec)
		var conflict *core.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "basic", conflict.Value)
	})

	t.Run("rejects missing name", func(t *testing.T) {
		svc := newService(newFakeStore())

		_, err := svc.Create("basic", Spec{})
		var invalid *core.ValidationError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "name", invalid.Field)
	})

	t.Run("rejects empty code", func(t *testing.T) {
		svc := newService(newFakeStore())

		_, err := svc.Create("", Spec{Name: "Basic"})
		var invalid *core.ValidationError
		require.ErrorAs(t, err, &invalid)
	})
}

func TestUpdatePlan(t *testing.T) {
	t.Run("recomputes yearly price on every monthly change", func(t *testing.T) {
		svc := newService(newFakeStore())

		_, err := svc.Create("basic", Spec{Name: "Basic", PriceMonthly: decimal.NewFromInt(29)})
		require.NoError(t, err)

		p, err := svc.Update("basic", Spec{Name: "Basic", PriceMonthly: decimal.NewFromFloat(49.50)})
		require.NoError(t, err)
		assert.True(t, p.PriceYearly.Equal(decimal.NewFromInt(495)), "got %s", p.PriceYearly)
	})

	t.Run("unknown plan", func(t *testing.T) {
		svc := newService(newFakeStore())

		_, err := svc.Update("missing", Spec{Name: "X"})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestArchivePlan(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	_, err := svc.Create("legacy", Spec{Name: "Legacy", PriceMonthly: decimal.NewFromInt(9)})
	require.NoError(t, err)

	require.NoError(t, svc.Archive("legacy"))

	p, err := svc.Get("legacy")
	require.NoError(t, err)
	assert.False(t, p.Active)

	active, err := svc.List(false)
	require.NoError(t, err)
	assert.Empty(t, active)
}
