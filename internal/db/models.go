package db

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DomainSuffix is appended to a tenant's subdomain slug to form its
// full instance domain.
const DomainSuffix = ".dc-edux.com"

// TrialDays is the length of the trial window started by StartTrial.
const TrialDays = 14

// BillingCycleDays separates two billing dates after activation.
const BillingCycleDays = 30

// OnlineWindow is how recent the last health check must be for a
// tenant to count as online. The probe's pass/fail outcome is not
// persisted; only the timestamp matters.
const OnlineWindow = 300 * time.Second

type TenantStatus string

const (
	StatusDraft     TenantStatus = "draft"
	StatusTrial     TenantStatus = "trial"
	StatusActive    TenantStatus = "active"
	StatusSuspended TenantStatus = "suspended"
	StatusCancelled TenantStatus = "cancelled"
)

// Terminal reports whether no lifecycle action may leave this status.
func (s TenantStatus) Terminal() bool { return s == StatusCancelled }

type InvoiceState string

const (
	InvoiceDraft     InvoiceState = "draft"
	InvoicePosted    InvoiceState = "posted"
	InvoiceCancelled InvoiceState = "cancel"
)

// Plan is a subscription tier: resource limits, pricing and feature
// flags. Referenced by tenants, owned by the catalog.
type Plan struct {
	Code               string          `json:"code" db:"code"`
	Name               string          `json:"name" db:"name"`
	Sequence           int             `json:"sequence" db:"sequence"`
	Active             bool            `json:"active" db:"active"`
	MaxUsers           int             `json:"max_users" db:"max_users"`
	MaxStorageGB       float64         `json:"max_storage_gb" db:"max_storage_gb"`
	MaxStudents        int             `json:"max_students" db:"max_students"`
	PriceMonthly       decimal.Decimal `json:"price_monthly" db:"price_monthly"`
	PriceYearly        decimal.Decimal `json:"price_yearly" db:"price_yearly"`
	Features           string          `json:"features" db:"features"`
	HasAPIAccess       bool            `json:"has_api_access" db:"has_api_access"`
	HasCustomDomain    bool            `json:"has_custom_domain" db:"has_custom_domain"`
	HasPrioritySupport bool            `json:"has_priority_support" db:"has_priority_support"`
	HasAdvancedReports bool            `json:"has_advanced_reports" db:"has_advanced_reports"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// SetMonthlyPrice writes the monthly price and recomputes the yearly
// price. The yearly price is ten times the monthly one (two months
// free) and is never set independently.
func (p *Plan) SetMonthlyPrice(price decimal.Decimal) {
	p.PriceMonthly = price
	p.PriceYearly = price.Mul(decimal.NewFromInt(10))
}

// DisplayName renders the plan the way it is shown in pickers, e.g.
// "Standard (25 users / 10GB)".
func (p *Plan) DisplayName() string {
	return fmt.Sprintf("%s (%d users / %gGB)", p.Name, p.MaxUsers, p.MaxStorageGB)
}

// Tenant is one managed instance of the downstream platform.
type Tenant struct {
	ID         string `json:"id" db:"id"`
	Code       string `json:"code" db:"code"`
	Name       string `json:"name" db:"name"`
	ContactRef string `json:"contact_ref" db:"contact_ref"`

	// Instance location
	DomainSlug    string `json:"domain_slug" db:"domain_slug"`
	FullDomain    string `json:"full_domain" db:"full_domain"`
	DBName        string `json:"db_name" db:"db_name"`
	DBPort        int    `json:"db_port" db:"db_port"`
	InstancePort  int    `json:"instance_port" db:"instance_port"`
	ServerAddress string `json:"server_address" db:"server_address"`

	// Subscription
	PlanCode string       `json:"plan_code" db:"plan_code"`
	Status   TenantStatus `json:"status" db:"status"`

	// Dates
	StartDate       time.Time  `json:"start_date" db:"start_date"`
	TrialEndDate    time.Time  `json:"trial_end_date" db:"trial_end_date"`
	NextBillingDate *time.Time `json:"next_billing_date" db:"next_billing_date"`
	ExpiryDate      *time.Time `json:"expiry_date" db:"expiry_date"`

	// Usage snapshot, written only by the usage collector.
	CurrentUsers     int     `json:"current_users" db:"current_users"`
	CurrentStorageGB float64 `json:"current_storage_gb" db:"current_storage_gb"`
	CurrentStudents  int     `json:"current_students" db:"current_students"`

	// Derived from snapshot and plan limits. May exceed 100 to signal
	// over-quota; never clamped.
	UsersUsagePercent   float64 `json:"users_usage_percent" db:"users_usage_percent"`
	StorageUsagePercent float64 `json:"storage_usage_percent" db:"storage_usage_percent"`

	// Health snapshot, written only by the health prober.
	CPUUsagePercent   float64    `json:"cpu_usage_percent" db:"cpu_usage_percent"`
	MemoryUsageMB     float64    `json:"memory_usage_mb" db:"memory_usage_mb"`
	LastHealthCheckAt *time.Time `json:"last_health_check_at" db:"last_health_check_at"`

	// Billing aggregates, derived from posted invoices.
	TotalInvoiced decimal.Decimal `json:"total_invoiced" db:"total_invoiced"`
	TotalPaid     decimal.Decimal `json:"total_paid" db:"total_paid"`
	BalanceDue    decimal.Decimal `json:"balance_due" db:"balance_due"`

	Notes     string    `json:"notes" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SetDomainSlug writes the subdomain slug and recomputes the full
// domain. An empty slug clears the full domain.
func (t *Tenant) SetDomainSlug(slug string) {
	t.DomainSlug = slug
	if slug == "" {
		t.FullDomain = ""
		return
	}
	t.FullDomain = slug + DomainSuffix
}

// SetStartDate writes the start date and recomputes the trial end
// date, which is always start date plus fourteen days.
func (t *Tenant) SetStartDate(d time.Time) {
	t.StartDate = d
	t.TrialEndDate = d.AddDate(0, 0, TrialDays)
}

// RecomputeUsagePercents derives the usage percentages from the
// current snapshot against the plan limits. A zero limit yields zero
// percent rather than a division error.
func (t *Tenant) RecomputeUsagePercents(plan *Plan) {
	if plan.MaxUsers > 0 {
		t.UsersUsagePercent = float64(t.CurrentUsers) / float64(plan.MaxUsers) * 100
	} else {
		t.UsersUsagePercent = 0
	}
	if plan.MaxStorageGB > 0 {
		t.StorageUsagePercent = t.CurrentStorageGB / plan.MaxStorageGB * 100
	} else {
		t.StorageUsagePercent = 0
	}
}

// Online reports whether the last health check happened within the
// online window. It is insensitive to whether that probe succeeded.
func (t *Tenant) Online(now time.Time) bool {
	if t.LastHealthCheckAt == nil {
		return false
	}
	return now.Sub(*t.LastHealthCheckAt) < OnlineWindow
}

// Probeable reports whether the fleet batches should visit this
// tenant.
func (t *Tenant) Probeable() bool {
	return t.Status == StatusTrial || t.Status == StatusActive
}

// Invoice mirrors an invoice held by the accounting collaborator,
// keyed to the tenant it bills. The collaborator stays the system of
// record for state and residual amount.
type Invoice struct {
	ID             string          `json:"id" db:"id"`
	TenantID       string          `json:"tenant_id" db:"tenant_id"`
	AccountingRef  string          `json:"accounting_ref" db:"accounting_ref"`
	Number         string          `json:"number" db:"number"`
	State          InvoiceState    `json:"state" db:"state"`
	AmountTotal    decimal.Decimal `json:"amount_total" db:"amount_total"`
	AmountResidual decimal.Decimal `json:"amount_residual" db:"amount_residual"`
	InvoiceDate    time.Time       `json:"invoice_date" db:"invoice_date"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// AuditEvent is one append-only, human-readable entry recorded
// against a tenant.
type AuditEvent struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Admin is an operator account for the management API.
type Admin struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
