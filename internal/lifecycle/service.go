// Package lifecycle implements the tenant status state machine.
//
// States: draft, trial, active, suspended, cancelled. The table is
// deliberately permissive: activate and suspend are reachable from
// any non-terminal state, and starting a trial again resets the trial
// window. Cancelled is terminal.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/audit"
	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
)

// ErrTerminal is returned when an action other than cancel targets a
// cancelled tenant.
var ErrTerminal = errors.New("lifecycle: tenant subscription is cancelled")

type Store interface {
	GetTenant(id string) (*db.Tenant, error)
	StartTenantTrial(id string, startDate, trialEnd, now time.Time) error
	ActivateTenant(id string, nextBilling, now time.Time) error
	SetTenantStatus(id string, status db.TenantStatus, now time.Time) error
	CancelTenant(id string, now time.Time) error
}

type Service struct {
	store  Store
	sink   audit.Sink
	logger *zap.Logger
	clock  core.Clock
}

func NewService(store Store, sink audit.Sink, logger *zap.Logger, clock core.Clock) *Service {
	return &Service{store: store, sink: sink, logger: logger, clock: clock}
}

// StartTrial moves the tenant to trial and resets the trial window to
// fourteen days from today.
func (s *Service) StartTrial(ctx context.Context, id string) (*db.Tenant, error) {
	t, err := s.nonTerminal(id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	t.Status = db.StatusTrial
	t.SetStartDate(now)
	if err := s.store.StartTenantTrial(id, t.StartDate, t.TrialEndDate, now); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, id, fmt.Sprintf("Trial period started for %d days.", db.TrialDays))
	s.logTransition(t, db.StatusTrial)
	return t, nil
}

// Activate moves the tenant to active and schedules the next billing
// date thirty days out.
func (s *Service) Activate(ctx context.Context, id string) (*db.Tenant, error) {
	t, err := s.nonTerminal(id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	nextBilling := now.AddDate(0, 0, db.BillingCycleDays)
	t.Status = db.StatusActive
	t.NextBillingDate = &nextBilling
	if err := s.store.ActivateTenant(id, nextBilling, now); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, id, "Tenant activated.")
	s.logTransition(t, db.StatusActive)
	return t, nil
}

// Suspend parks the tenant, typically for non-payment.
func (s *Service) Suspend(ctx context.Context, id string) (*db.Tenant, error) {
	t, err := s.nonTerminal(id)
	if err != nil {
		return nil, err
	}

	t.Status = db.StatusSuspended
	if err := s.store.SetTenantStatus(id, db.StatusSuspended, s.clock.Now()); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, id, "Tenant suspended.")
	s.logTransition(t, db.StatusSuspended)
	return t, nil
}

// Cancel terminates the subscription. Legal from any status and
// irreversible.
func (s *Service) Cancel(ctx context.Context, id string) (*db.Tenant, error) {
	t, err := s.store.GetTenant(id)
	if err != nil {
		return nil, err
	}

	t.Status = db.StatusCancelled
	if err := s.store.CancelTenant(id, s.clock.Now()); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, id, "Tenant subscription cancelled.")
	s.logTransition(t, db.StatusCancelled)
	return t, nil
}

func (s *Service) nonTerminal(id string) (*db.Tenant, error) {
	t, err := s.store.GetTenant(id)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, ErrTerminal
	}
	return t, nil
}

func (s *Service) logTransition(t *db.Tenant, to db.TenantStatus) {
	s.logger.Info("Tenant status changed",
		zap.String("tenant_id", t.ID),
		zap.String("tenant_code", t.Code),
		zap.String("status", string(to)),
	)
}
