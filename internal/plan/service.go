// Package plan manages the subscription plan catalog.
package plan

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
)

// Store is the slice of the repository the catalog needs.
type Store interface {
	CreatePlan(p *db.Plan) error
	GetPlan(code string) (*db.Plan, error)
	ListPlans(includeArchived bool) ([]*db.Plan, error)
	UpdatePlan(p *db.Plan) error
}

type Service struct {
	store  Store
	logger *zap.Logger
	clock  core.Clock
}

func NewService(store Store, logger *zap.Logger, clock core.Clock) *Service {
	return &Service{store: store, logger: logger, clock: clock}
}

// Spec carries the writable plan fields. The yearly price is absent
// on purpose: it is always derived from the monthly price.
type Spec struct {
	Name               string          `json:"name"`
	Sequence           int             `json:"sequence"`
	MaxUsers           int             `json:"max_users"`
	MaxStorageGB       float64         `json:"max_storage_gb"`
	MaxStudents        int             `json:"max_students"`
	PriceMonthly       decimal.Decimal `json:"price_monthly"`
	Features           string          `json:"features"`
	HasAPIAccess       bool            `json:"has_api_access"`
	HasCustomDomain    bool            `json:"has_custom_domain"`
	HasPrioritySupport bool            `json:"has_priority_support"`
	HasAdvancedReports bool            `json:"has_advanced_reports"`
}

func (s *Service) Create(code string, spec Spec) (*db.Plan, error) {
	if code == "" {
		return nil, &core.ValidationError{Field: "code", Reason: "required"}
	}
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	p := &db.Plan{
		Code:               code,
		Name:               spec.Name,
		Sequence:           spec.Sequence,
		Active:             true,
		MaxUsers:           spec.MaxUsers,
		MaxStorageGB:       spec.MaxStorageGB,
		MaxStudents:        spec.MaxStudents,
		Features:           spec.Features,
		HasAPIAccess:       spec.HasAPIAccess,
		HasCustomDomain:    spec.HasCustomDomain,
		HasPrioritySupport: spec.HasPrioritySupport,
		HasAdvancedReports: spec.HasAdvancedReports,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	p.SetMonthlyPrice(spec.PriceMonthly)

	if err := s.store.CreatePlan(p); err != nil {
		return nil, err
	}

	s.logger.Info("Plan created",
		zap.String("plan_code", p.Code),
		zap.String("price_monthly", p.PriceMonthly.String()),
	)
	return p, nil
}

func (s *Service) Get(code string) (*db.Plan, error) {
	return s.store.GetPlan(code)
}

func (s *Service) List(includeArchived bool) ([]*db.Plan, error) {
	return s.store.ListPlans(includeArchived)
}

func (s *Service) Update(code string, spec Spec) (*db.Plan, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	p, err := s.store.GetPlan(code)
	if err != nil {
		return nil, err
	}

	p.Name = spec.Name
	p.Sequence = spec.Sequence
	p.MaxUsers = spec.MaxUsers
	p.MaxStorageGB = spec.MaxStorageGB
	p.MaxStudents = spec.MaxStudents
	p.Features = spec.Features
	p.HasAPIAccess = spec.HasAPIAccess
	p.HasCustomDomain = spec.HasCustomDomain
	p.HasPrioritySupport = spec.HasPrioritySupport
	p.HasAdvancedReports = spec.HasAdvancedReports
	p.SetMonthlyPrice(spec.PriceMonthly)
	p.UpdatedAt = s.clock.Now()

	if err := s.store.UpdatePlan(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Archive soft-deletes a plan. Tenants already on it keep their
// reference; it just stops being offered.
func (s *Service) Archive(code string) error {
	p, err := s.store.GetPlan(code)
	if err != nil {
		return err
	}
	if !p.Active {
		return nil
	}
	p.Active = false
	p.UpdatedAt = s.clock.Now()
	if err := s.store.UpdatePlan(p); err != nil {
		return fmt.Errorf("failed to archive plan: %w", err)
	}
	s.logger.Info("Plan archived", zap.String("plan_code", code))
	return nil
}

func validateSpec(spec Spec) error {
	if spec.Name == "" {
		return &core.ValidationError{Field: "name", Reason: "required"}
	}
	if spec.MaxUsers < 0 {
		return &core.ValidationError{Field: "max_users", Reason: "must not be negative"}
	}
	if spec.MaxStorageGB < 0 {
		return &core.ValidationError{Field: "max_storage_gb", Reason: "must not be negative"}
	}
	if spec.PriceMonthly.IsNegative() {
		return &core.ValidationError{Field: "price_monthly", Reason: "must not be negative"}
	}
	return nil
}
