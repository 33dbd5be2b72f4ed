package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
)

// PostgresSource reads a tenant's consumption straight from its
// instance database, using the connection details on the tenant
// record. Every tenant gets a fresh short-lived connection; the fleet
// is small enough that pooling per tenant is not worth carrying.
type PostgresSource struct {
	user     string
	password string
	timeout  time.Duration
}

func NewPostgresSource(user, password string, timeout time.Duration) *PostgresSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresSource{user: user, password: password, timeout: timeout}
}

func (s *PostgresSource) Fetch(ctx context.Context, t *db.Tenant) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=disable connect_timeout=5",
		t.ServerAddress, t.DBPort, t.DBName, s.user, s.password,
	)

	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return Snapshot{}, &core.TransientFetchError{TenantCode: t.Code, Err: err}
	}
	defer conn.Close()

	var snap Snapshot

	if err := conn.GetContext(ctx, &snap.Users,
		`SELECT COUNT(*) FROM res_users WHERE active`); err != nil {
		return Snapshot{}, &core.TransientFetchError{TenantCode: t.Code, Err: err}
	}

	var sizeBytes int64
	if err := conn.GetContext(ctx, &sizeBytes,
		`SELECT pg_database_size(current_database())`); err != nil {
		return Snapshot{}, &core.TransientFetchError{TenantCode: t.Code, Err: err}
	}
	snap.StorageGB = float64(sizeBytes) / (1 << 30)

	// Not every instance ships the student module.
	var hasStudents bool
	if err := conn.GetContext(ctx, &hasStudents,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'op_student')`); err != nil {
		return Snapshot{}, &core.TransientFetchError{TenantCode: t.Code, Err: err}
	}
	if hasStudents {
		if err := conn.GetContext(ctx, &snap.Students,
			`SELECT COUNT(*) FROM op_student`); err != nil {
			return Snapshot{}, &core.TransientFetchError{TenantCode: t.Code, Err: err}
		}
	}

	return snap, nil
}
