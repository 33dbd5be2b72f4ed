// Package billing creates subscription invoices through the accounting
// collaborator and maintains per-tenant billing aggregates derived
// from the posted invoices it mirrors locally.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/audit"
	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
	"github.com/dc-edux/sysedux-fleet/internal/metrics"
	"github.com/dc-edux/sysedux-fleet/pkg/accounting"
)

type Store interface {
	GetTenant(id string) (*db.Tenant, error)
	GetPlan(code string) (*db.Plan, error)
	InsertInvoice(inv *db.Invoice) error
	RefreshInvoice(inv *db.Invoice) error
	GetInvoice(id string) (*db.Invoice, error)
	ListInvoicesByTenant(tenantID string) ([]*db.Invoice, error)
	UpdateBillingAggregates(t *db.Tenant, now time.Time) error
}

// Accounting is the slice of the accounting client the service needs.
type Accounting interface {
	CreateInvoice(ctx context.Context, partnerRef string, lines []accounting.InvoiceLine) (*accounting.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*accounting.Invoice, error)
}

type Service struct {
	store      Store
	accounting Accounting
	audit      audit.Sink
	metrics    *metrics.Collector
	logger     *zap.Logger
	clock      core.Clock
}

func NewService(store Store, acc Accounting, sink audit.Sink, collector *metrics.Collector, logger *zap.Logger, clock core.Clock) *Service {
	return &Service{
		store:      store,
		accounting: acc,
		audit:      sink,
		metrics:    collector,
		logger:     logger,
		clock:      clock,
	}
}

// CreateInvoice bills one monthly subscription cycle for the tenant:
// a single line at the plan's monthly price, created in the accounting
// system and mirrored locally. When accounting is unreachable the
// error surfaces to the caller and nothing is recorded.
func (s *Service) CreateInvoice(ctx context.Context, tenantID string) (*db.Invoice, error) {
	t, err := s.store.GetTenant(tenantID)
	if err != nil {
		return nil, err
	}
	plan, err := s.store.GetPlan(t.PlanCode)
	if err != nil {
		return nil, err
	}

	line := accounting.InvoiceLine{
		Description: fmt.Sprintf("%s Subscription - %s", plan.Name, t.Name),
		Quantity:    1,
		UnitPrice:   plan.PriceMonthly,
	}
	remote, err := s.accounting.CreateInvoice(ctx, t.ContactRef, []accounting.InvoiceLine{line})
	if err != nil {
		s.logger.Error("Invoice creation failed",
			zap.String("tenant_id", t.ID),
			zap.String("tenant_code", t.Code),
			zap.Error(err))
		return nil, err
	}

	now := s.clock.Now()
	inv := &db.Invoice{
		ID:             uuid.New().String(),
		TenantID:       t.ID,
		AccountingRef:  remote.ID,
		Number:         remote.Number,
		State:          db.InvoiceState(remote.State),
		AmountTotal:    remote.AmountTotal,
		AmountResidual: remote.AmountResidual,
		InvoiceDate:    now,
		CreatedAt:      now,
	}
	if err := s.store.InsertInvoice(inv); err != nil {
		return nil, err
	}

	s.metrics.RecordInvoiceCreated(t)
	s.audit.Record(ctx, t.ID, fmt.Sprintf("Invoice %s created for %s.", inv.Number, line.Description))

	if err := s.RecomputeAggregates(ctx, t.ID); err != nil {
		s.logger.Warn("Aggregate recompute after invoice creation failed",
			zap.String("tenant_id", t.ID), zap.Error(err))
	}
	return inv, nil
}

// SyncInvoice refreshes one mirrored invoice from accounting, then
// recomputes the tenant's aggregates. Payments registered over there
// become visible here only through this path.
func (s *Service) SyncInvoice(ctx context.Context, invoiceID string) (*db.Invoice, error) {
	inv, err := s.store.GetInvoice(invoiceID)
	if err != nil {
		return nil, err
	}

	remote, err := s.accounting.GetInvoice(ctx, inv.AccountingRef)
	if err != nil {
		return nil, err
	}

	inv.Number = remote.Number
	inv.State = db.InvoiceState(remote.State)
	inv.AmountTotal = remote.AmountTotal
	inv.AmountResidual = remote.AmountResidual
	if err := s.store.RefreshInvoice(inv); err != nil {
		return nil, err
	}

	if err := s.RecomputeAggregates(ctx, inv.TenantID); err != nil {
		return nil, err
	}
	return inv, nil
}

// RecomputeAggregates rebuilds the tenant's billing totals from its
// posted invoices. Draft and cancelled invoices carry no weight; paid
// equals posted total minus what remains unpaid.
func (s *Service) RecomputeAggregates(ctx context.Context, tenantID string) error {
	t, err := s.store.GetTenant(tenantID)
	if err != nil {
		return err
	}
	invoices, err := s.store.ListInvoicesByTenant(tenantID)
	if err != nil {
		return err
	}

	total := decimal.Zero
	residual := decimal.Zero
	for _, inv := range invoices {
		if inv.State != db.InvoicePosted {
			continue
		}
		total = total.Add(inv.AmountTotal)
		residual = residual.Add(inv.AmountResidual)
	}

	t.TotalInvoiced = total
	t.TotalPaid = total.Sub(residual)
	t.BalanceDue = residual
	return s.store.UpdateBillingAggregates(t, s.clock.Now())
}

// Summary is one tenant's billing view: its mirrored invoices, newest
// first, and the aggregates derived from them.
type Summary struct {
	Invoices      []*db.Invoice
	TotalInvoiced decimal.Decimal
	TotalPaid     decimal.Decimal
	BalanceDue    decimal.Decimal
}

// GetSummary recomputes the tenant's aggregates before reading them,
// so the totals always match the invoices returned alongside.
func (s *Service) GetSummary(ctx context.Context, tenantID string) (*Summary, error) {
	if err := s.RecomputeAggregates(ctx, tenantID); err != nil {
		return nil, err
	}
	t, err := s.store.GetTenant(tenantID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.store.ListInvoicesByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Invoices:      invoices,
		TotalInvoiced: t.TotalInvoiced,
		TotalPaid:     t.TotalPaid,
		BalanceDue:    t.BalanceDue,
	}, nil
}
