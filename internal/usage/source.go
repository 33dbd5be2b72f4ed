// Package usage defines how current resource consumption is fetched
// from a tenant's own data store.
package usage

import (
	"context"

	"github.com/dc-edux/sysedux-fleet/internal/db"
)

// Snapshot is one reading of a tenant's resource consumption.
type Snapshot struct {
	Users     int
	StorageGB float64
	Students  int
}

// Source fetches the current snapshot for one tenant. A failure is a
// transient condition: the caller zeroes the tenant's snapshot and
// moves on, it never aborts a batch.
type Source interface {
	Fetch(ctx context.Context, t *db.Tenant) (Snapshot, error)
}
