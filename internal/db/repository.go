package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dc-edux/sysedux-fleet/internal/core"
)

type Repository struct {
	db *sqlx.DB
}

func NewConnection(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Ping() error {
	return r.db.Ping()
}

// conflictField maps a Postgres unique-violation to the offending
// field name for the error taxonomy.
func conflictField(err error, value string) error {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return err
	}
	field := "record"
	switch {
	case strings.Contains(pqErr.Constraint, "plans_code"):
		field = "plan code"
	case strings.Contains(pqErr.Constraint, "tenants_code"):
		field = "tenant code"
	case strings.Contains(pqErr.Constraint, "tenants_db_name"):
		field = "database name"
	case strings.Contains(pqErr.Constraint, "tenants_domain_slug"):
		field = "domain slug"
	}
	return &core.ConflictError{Field: field, Value: value}
}

// Plan operations

func (r *Repository) CreatePlan(p *Plan) error {
	query := `
		INSERT INTO plans (
			code, name, sequence, active, max_users, max_storage_gb,
			max_students, price_monthly, price_yearly, features,
			has_api_access, has_custom_domain, has_priority_support,
			has_advanced_reports, created_at, updated_at
		) VALUES (
			:code, :name, :sequence, :active, :max_users, :max_storage_gb,
			:max_students, :price_monthly, :price_yearly, :features,
			:has_api_access, :has_custom_domain, :has_priority_support,
			:has_advanced_reports, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExec(query, p); err != nil {
		return conflictField(err, p.Code)
	}
	return nil
}

func (r *Repository) GetPlan(code string) (*Plan, error) {
	var p Plan
	err := r.db.Get(&p, `SELECT * FROM plans WHERE code = $1`, code)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	return &p, err
}

func (r *Repository) ListPlans(includeArchived bool) ([]*Plan, error) {
	plans := []*Plan{}
	query := `SELECT * FROM plans ORDER BY sequence, code`
	if !includeArchived {
		query = `SELECT * FROM plans WHERE active = true ORDER BY sequence, code`
	}
	err := r.db.Select(&plans, query)
	return plans, err
}

func (r *Repository) UpdatePlan(p *Plan) error {
	query := `
		UPDATE plans SET
			name = :name,
			sequence = :sequence,
			active = :active,
			max_users = :max_users,
			max_storage_gb = :max_storage_gb,
			max_students = :max_students,
			price_monthly = :price_monthly,
			price_yearly = :price_yearly,
			features = :features,
			has_api_access = :has_api_access,
			has_custom_domain = :has_custom_domain,
			has_priority_support = :has_priority_support,
			has_advanced_reports = :has_advanced_reports,
			updated_at = :updated_at
		WHERE code = :code`

	res, err := r.db.NamedExec(query, p)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) CountTenantsByPlan(planCode string) (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM tenants WHERE plan_code = $1`, planCode)
	return count, err
}

// Tenant operations

// NextTenantCode draws the next system-generated tenant code from the
// database sequence.
func (r *Repository) NextTenantCode() (string, error) {
	var n int64
	if err := r.db.Get(&n, `SELECT nextval('tenant_code_seq')`); err != nil {
		return "", err
	}
	return fmt.Sprintf("CL%05d", n), nil
}

func (r *Repository) CreateTenant(t *Tenant) error {
	query := `
		INSERT INTO tenants (
			id, code, name, contact_ref, domain_slug, full_domain,
			db_name, db_port, instance_port, server_address, plan_code,
			status, start_date, trial_end_date, next_billing_date,
			expiry_date, current_users, current_storage_gb,
			current_students, users_usage_percent, storage_usage_percent,
			cpu_usage_percent, memory_usage_mb, last_health_check_at,
			total_invoiced, total_paid, balance_due, notes,
			created_at, updated_at
		) VALUES (
			:id, :code, :name, :contact_ref, :domain_slug, :full_domain,
			:db_name, :db_port, :instance_port, :server_address, :plan_code,
			:status, :start_date, :trial_end_date, :next_billing_date,
			:expiry_date, :current_users, :current_storage_gb,
			:current_students, :users_usage_percent, :storage_usage_percent,
			:cpu_usage_percent, :memory_usage_mb, :last_health_check_at,
			:total_invoiced, :total_paid, :balance_due, :notes,
			:created_at, :updated_at
		)`

	if _, err := r.db.NamedExec(query, t); err != nil {
		return conflictField(err, t.Code)
	}
	return nil
}

func (r *Repository) GetTenant(id string) (*Tenant, error) {
	var t Tenant
	err := r.db.Get(&t, `SELECT * FROM tenants WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	return &t, err
}

func (r *Repository) GetTenantByCode(code string) (*Tenant, error) {
	var t Tenant
	err := r.db.Get(&t, `SELECT * FROM tenants WHERE code = $1`, code)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	return &t, err
}

func (r *Repository) ListTenants(limit, offset int) ([]*Tenant, error) {
	tenants := []*Tenant{}
	query := `
		SELECT * FROM tenants
		ORDER BY name
		LIMIT $1 OFFSET $2`
	err := r.db.Select(&tenants, query, limit, offset)
	return tenants, err
}

func (r *Repository) CountTenantsByStatus() (map[TenantStatus]int, error) {
	rows := []struct {
		Status TenantStatus `db:"status"`
		Count  int          `db:"count"`
	}{}
	err := r.db.Select(&rows, `SELECT status, COUNT(*) AS count FROM tenants GROUP BY status`)
	if err != nil {
		return nil, err
	}
	counts := make(map[TenantStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *Repository) CountTenants() (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM tenants`)
	return count, err
}

// GetFleetToCheck returns every tenant the fleet batches must visit:
// those in trial or active status.
func (r *Repository) GetFleetToCheck() ([]*Tenant, error) {
	tenants := []*Tenant{}
	query := `
		SELECT * FROM tenants
		WHERE status IN ('trial', 'active')
		ORDER BY code`
	err := r.db.Select(&tenants, query)
	return tenants, err
}

// UpdateTenant writes the admin-editable fields. Lifecycle status and
// the batch-owned snapshots have their own statements so concurrent
// writers cannot drop each other's columns.
func (r *Repository) UpdateTenant(t *Tenant) error {
	query := `
		UPDATE tenants SET
			name = :name,
			contact_ref = :contact_ref,
			domain_slug = :domain_slug,
			full_domain = :full_domain,
			db_name = :db_name,
			db_port = :db_port,
			instance_port = :instance_port,
			server_address = :server_address,
			plan_code = :plan_code,
			start_date = :start_date,
			trial_end_date = :trial_end_date,
			expiry_date = :expiry_date,
			notes = :notes,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := r.db.NamedExec(query, t)
	if err != nil {
		return conflictField(err, t.DomainSlug)
	}
	return requireRow(res)
}

// SetTenantStatus writes only the status column, refusing to leave
// the terminal cancelled state. Optional date columns accompany the
// transitions that reset them.
func (r *Repository) SetTenantStatus(id string, status TenantStatus, now time.Time) error {
	res, err := r.db.Exec(`
		UPDATE tenants SET status = $2, updated_at = $3
		WHERE id = $1 AND status <> 'cancelled'`,
		id, status, now)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CancelTenant moves a tenant to cancelled from any status.
func (r *Repository) CancelTenant(id string, now time.Time) error {
	res, err := r.db.Exec(`
		UPDATE tenants SET status = 'cancelled', updated_at = $2
		WHERE id = $1`,
		id, now)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// StartTenantTrial sets trial status and resets the trial window in
// one statement.
func (r *Repository) StartTenantTrial(id string, startDate, trialEnd, now time.Time) error {
	res, err := r.db.Exec(`
		UPDATE tenants SET
			status = 'trial',
			start_date = $2,
			trial_end_date = $3,
			updated_at = $4
		WHERE id = $1 AND status <> 'cancelled'`,
		id, startDate, trialEnd, now)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ActivateTenant sets active status and the next billing date in one
// statement.
func (r *Repository) ActivateTenant(id string, nextBilling, now time.Time) error {
	res, err := r.db.Exec(`
		UPDATE tenants SET
			status = 'active',
			next_billing_date = $2,
			updated_at = $3
		WHERE id = $1 AND status <> 'cancelled'`,
		id, nextBilling, now)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateHealthCheck stamps the health snapshot. Owned by the health
// prober; touches no other columns.
func (r *Repository) UpdateHealthCheck(id string, cpuPercent, memoryMB float64, checkedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE tenants SET
			cpu_usage_percent = $2,
			memory_usage_mb = $3,
			last_health_check_at = $4,
			updated_at = $4
		WHERE id = $1`,
		id, cpuPercent, memoryMB, checkedAt)
	return err
}

// UpdateUsageSnapshot writes the usage counters and their derived
// percentages. Owned by the usage collector.
func (r *Repository) UpdateUsageSnapshot(t *Tenant, now time.Time) error {
	_, err := r.db.Exec(`
		UPDATE tenants SET
			current_users = $2,
			current_storage_gb = $3,
			current_students = $4,
			users_usage_percent = $5,
			storage_usage_percent = $6,
			updated_at = $7
		WHERE id = $1`,
		t.ID, t.CurrentUsers, t.CurrentStorageGB, t.CurrentStudents,
		t.UsersUsagePercent, t.StorageUsagePercent, now)
	return err
}

// UpdateBillingAggregates writes the invoice-derived totals. Owned by
// the billing orchestrator.
func (r *Repository) UpdateBillingAggregates(t *Tenant, now time.Time) error {
	_, err := r.db.Exec(`
		UPDATE tenants SET
			total_invoiced = $2,
			total_paid = $3,
			balance_due = $4,
			updated_at = $5
		WHERE id = $1`,
		t.ID, t.TotalInvoiced, t.TotalPaid, t.BalanceDue, now)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
