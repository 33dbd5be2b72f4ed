// Package tenant manages the tenant records of the fleet.
package tenant

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
)

type Store interface {
	NextTenantCode() (string, error)
	CreateTenant(t *db.Tenant) error
	GetTenant(id string) (*db.Tenant, error)
	GetTenantByCode(code string) (*db.Tenant, error)
	ListTenants(limit, offset int) ([]*db.Tenant, error)
	CountTenants() (int, error)
	UpdateTenant(t *db.Tenant) error
	GetPlan(code string) (*db.Plan, error)
	CountInvoicesByTenant(tenantID string) (int, error)
}

type Service struct {
	store  Store
	logger *zap.Logger
	clock  core.Clock
}

func NewService(store Store, logger *zap.Logger, clock core.Clock) *Service {
	return &Service{store: store, logger: logger, clock: clock}
}

type Spec struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	ContactRef    string `json:"contact_ref"`
	DomainSlug    string `json:"domain_slug"`
	DBName        string `json:"db_name"`
	DBPort        int    `json:"db_port"`
	InstancePort  int    `json:"instance_port"`
	ServerAddress string `json:"server_address"`
	PlanCode      string `json:"plan_code"`
	Notes         string `json:"notes"`
}

func (s *Service) validate(spec Spec) error {
	switch {
	case spec.Name == "":
		return &core.ValidationError{Field: "name", Reason: "required"}
	case spec.ContactRef == "":
		return &core.ValidationError{Field: "contact_ref", Reason: "required"}
	case spec.PlanCode == "":
		return &core.ValidationError{Field: "plan_code", Reason: "required"}
	case spec.DBName == "":
		return &core.ValidationError{Field: "db_name", Reason: "required"}
	case spec.InstancePort <= 0:
		return &core.ValidationError{Field: "instance_port", Reason: "required"}
	case spec.ServerAddress == "":
		return &core.ValidationError{Field: "server_address", Reason: "required"}
	}
	if _, err := s.store.GetPlan(spec.PlanCode); err != nil {
		return &core.ValidationError{Field: "plan_code", Reason: "unknown plan"}
	}
	return nil
}

// Create registers a new tenant in draft status. When no code is
// supplied one is drawn from the system sequence.
func (s *Service) Create(spec Spec) (*db.Tenant, error) {
	if err := s.validate(spec); err != nil {
		return nil, err
	}

	code := spec.Code
	if code == "" {
		var err error
		if code, err = s.store.NextTenantCode(); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	dbPort := spec.DBPort
	if dbPort == 0 {
		dbPort = 5432
	}

	t := &db.Tenant{
		ID:            uuid.New().String(),
		Code:          code,
		Name:          spec.Name,
		ContactRef:    spec.ContactRef,
		DBName:        spec.DBName,
		DBPort:        dbPort,
		InstancePort:  spec.InstancePort,
		ServerAddress: spec.ServerAddress,
		PlanCode:      spec.PlanCode,
		Status:        db.StatusDraft,
		Notes:         spec.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	t.SetDomainSlug(spec.DomainSlug)
	t.SetStartDate(now)

	if err := s.store.CreateTenant(t); err != nil {
		return nil, err
	}

	s.logger.Info("Tenant created",
		zap.String("tenant_id", t.ID),
		zap.String("tenant_code", t.Code),
		zap.String("plan_code", t.PlanCode),
	)
	return t, nil
}

func (s *Service) Get(id string) (*db.Tenant, error) {
	return s.store.GetTenant(id)
}

// GetByCode looks a tenant up by its fleet code, e.g. CL00042.
func (s *Service) GetByCode(code string) (*db.Tenant, error) {
	return s.store.GetTenantByCode(code)
}

func (s *Service) List(limit, offset int) ([]*db.Tenant, int, error) {
	tenants, err := s.store.ListTenants(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountTenants()
	if err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

// Update rewrites the admin-editable fields and re-runs the derived
// recomputes their inputs feed.
func (s *Service) Update(id string, spec Spec) (*db.Tenant, error) {
	if err := s.validate(spec); err != nil {
		return nil, err
	}

	t, err := s.store.GetTenant(id)
	if err != nil {
		return nil, err
	}

	t.Name = spec.Name
	t.ContactRef = spec.ContactRef
	t.DBName = spec.DBName
	if spec.DBPort > 0 {
		t.DBPort = spec.DBPort
	}
	t.InstancePort = spec.InstancePort
	t.ServerAddress = spec.ServerAddress
	t.PlanCode = spec.PlanCode
	t.Notes = spec.Notes
	t.SetDomainSlug(spec.DomainSlug)
	t.UpdatedAt = s.clock.Now()

	if err := s.store.UpdateTenant(t); err != nil {
		return nil, err
	}
	return t, nil
}

// InvoiceCount reports how many invoices are mirrored for a tenant.
func (s *Service) InvoiceCount(id string) (int, error) {
	return s.store.CountInvoicesByTenant(id)
}
