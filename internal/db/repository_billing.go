package db

import (
	"database/sql"

	"github.com/dc-edux/sysedux-fleet/internal/core"
)

// Invoice mirror operations

func (r *Repository) InsertInvoice(inv *Invoice) error {
	query := `
		INSERT INTO invoices (
			id, tenant_id, accounting_ref, number, state,
			amount_total, amount_residual, invoice_date, created_at
		) VALUES (
			:id, :tenant_id, :accounting_ref, :number, :state,
			:amount_total, :amount_residual, :invoice_date, :created_at
		)`
	_, err := r.db.NamedExec(query, inv)
	return err
}

// RefreshInvoice overwrites the mirrored state and amounts of one
// invoice from the accounting collaborator.
func (r *Repository) RefreshInvoice(inv *Invoice) error {
	res, err := r.db.Exec(`
		UPDATE invoices SET
			number = $2,
			state = $3,
			amount_total = $4,
			amount_residual = $5
		WHERE id = $1`,
		inv.ID, inv.Number, inv.State, inv.AmountTotal, inv.AmountResidual)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) GetInvoice(id string) (*Invoice, error) {
	var inv Invoice
	err := r.db.Get(&inv, `SELECT * FROM invoices WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	return &inv, err
}

func (r *Repository) ListInvoicesByTenant(tenantID string) ([]*Invoice, error) {
	invoices := []*Invoice{}
	query := `
		SELECT * FROM invoices
		WHERE tenant_id = $1
		ORDER BY invoice_date DESC, created_at DESC`
	err := r.db.Select(&invoices, query, tenantID)
	return invoices, err
}

func (r *Repository) CountInvoicesByTenant(tenantID string) (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM invoices WHERE tenant_id = $1`, tenantID)
	return count, err
}

// Audit trail

func (r *Repository) InsertAuditEvent(ev *AuditEvent) error {
	query := `
		INSERT INTO audit_events (id, tenant_id, message, created_at)
		VALUES (:id, :tenant_id, :message, :created_at)`
	_, err := r.db.NamedExec(query, ev)
	return err
}

func (r *Repository) ListAuditEvents(tenantID string, limit int) ([]*AuditEvent, error) {
	events := []*AuditEvent{}
	query := `
		SELECT * FROM audit_events
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	err := r.db.Select(&events, query, tenantID, limit)
	return events, err
}

// Admin accounts

func (r *Repository) GetAdminByEmail(email string) (*Admin, error) {
	var a Admin
	err := r.db.Get(&a, `SELECT * FROM admins WHERE email = $1`, email)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	return &a, err
}
