package tenant

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
)

type fakeStore struct {
	seq     int64
	tenants map[string]*db.Tenant
	plans   map[string]*db.Plan
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants: make(map[string]*db.Tenant),
		plans: map[string]*db.Plan{
			"basic": {Code: "basic", Name: "Basic", MaxUsers: 10, MaxStorageGB: 5},
		},
	}
}

func (f *fakeStore) NextTenantCode() (string, error) {
	f.seq++
	return fmt.Sprintf("CL%05d", f.seq), nil
}

func (f *fakeStore) CreateTenant(t *db.Tenant) error {
	for _, existing := range f.tenants {
		if existing.Code == t.Code {
			return &core.ConflictError{Field: "tenant code", Value: t.Code}
		}
		if existing.DBName == t.DBName {
			return &core.ConflictError{Field: "database name", Value: t.DBName}
		}
		if t.DomainSlug != "" && existing.DomainSlug == t.DomainSlug {
			return &core.ConflictError{Field: "domain slug", Value: t.DomainSlug}
		}
	}
	cp := *t
	f.tenants[t.ID] = &cp
	return nil
}

func (f *fakeStore) GetTenant(id string) (*db.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) GetTenantByCode(code string) (*db.Tenant, error) {
	for _, t := range f.tenants {
		if t.Code == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeStore) ListTenants(limit, offset int) ([]*db.Tenant, error) {
	var out []*db.Tenant
	for _, t := range f.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) CountTenants() (int, error) { return len(f.tenants), nil }

func (f *fakeStore) UpdateTenant(t *db.Tenant) error {
	if _, ok := f.tenants[t.ID]; !ok {
		return core.ErrNotFound
	}
	cp := *t
	f.tenants[t.ID] = &cp
	return nil
}

func (f *fakeStore) GetPlan(code string) (*db.Plan, error) {
	p, ok := f.plans[code]
	if !ok {
		return nil, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) CountInvoicesByTenant(string) (int, error) { return 0, nil }

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newService(store Store) *Service {
	return NewService(store, zap.NewNop(), core.FixedClock{T: testNow})
}

func validSpec() Spec {
	return Spec{
		Name:          "Royal Academy",
		ContactRef:    "partner-17",
		DomainSlug:    "royal",
		DBName:        "royal_prod",
		InstancePort:  8069,
		ServerAddress: "10.0.0.4",
		PlanCode:      "basic",
	}
}

func TestCreateTenant(t *testing.T) {
	t.Run("assigns sequential codes when none supplied", func(t *testing.T) {
		svc := newService(newFakeStore())

		spec := validSpec()
		first, err := svc.Create(spec)
		require.NoError(t, err)

		spec.DBName = "other_prod"
		spec.DomainSlug = "other"
		second, err := svc.Create(spec)
		require.NoError(t, err)

		assert.Equal(t, "CL00001", first.Code)
		assert.Equal(t, "CL00002", second.Code)
	})

	t.Run("derives trial end and full domain", func(t *testing.T) {
		svc := newService(newFakeStore())

		created, err := svc.Create(validSpec())
		require.NoError(t, err)

		assert.Equal(t, db.StatusDraft, created.Status)
		assert.Equal(t, "royal.dc-edux.com", created.FullDomain)
		assert.Equal(t, testNow.AddDate(0, 0, 14), created.TrialEndDate)
	})

	t.Run("keeps explicit code", func(t *testing.T) {
		svc := newService(newFakeStore())

		spec := validSpec()
		spec.Code = "CL99999"
		created, err := svc.Create(spec)
		require.NoError(t, err)
		assert.Equal(t, "CL99999", created.Code)
	})

	t.Run("rejects missing plan", func(t *testing.T) {
		svc := newService(newFakeStore())

		spec := validSpec()
		spec.PlanCode = ""
		_, err := svc.Create(spec)

		var invalid *core.ValidationError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "plan_code", invalid.Field)
	})

	t.Run("rejects unknown plan", func(t *testing.T) {
		svc := newService(newFakeStore())

		spec := validSpec()
		spec.PlanCode = "enterprise"
		_, err := svc.Create(spec)

		var invalid *core.ValidationError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("rejects missing contact", func(t *testing.T) {
		svc := newService(newFakeStore())

		spec := validSpec()
		spec.ContactRef = ""
		_, err := svc.Create(spec)

		var invalid *core.ValidationError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "contact_ref", invalid.Field)
	})

	t.Run("duplicate db name conflicts", func(t *testing.T) {
		svc := newService(newFakeStore())

		_, err := svc.Create(validSpec())
		require.NoError(t, err)

		spec := validSpec()
		spec.DomainSlug = "second"
		_, err = svc.Create(spec)

		var conflict *core.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "database name", conflict.Field)
	})
}

func TestGetByCode(t *testing.T) {
	svc := newService(newFakeStore())

	created, err := svc.Create(validSpec())
	require.NoError(t, err)

	found, err := svc.GetByCode(created.Code)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.GetByCode("CL00042")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateTenant(t *testing.T) {
	svc := newService(newFakeStore())

	created, err := svc.Create(validSpec())
	require.NoError(t, err)

	spec := validSpec()
	spec.DomainSlug = ""
	updated, err := svc.Update(created.ID, spec)
	require.NoError(t, err)

	assert.Empty(t, updated.FullDomain, "clearing the slug clears the full domain")
}
