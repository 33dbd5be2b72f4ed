// Package audit appends human-readable events to a tenant's trail.
// Recording is best-effort: a failed write is logged and swallowed so
// it never blocks the operation that produced it.
package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
)

type Sink interface {
	Record(ctx context.Context, tenantID, message string)
}

type dbSink struct {
	repo   *db.Repository
	logger *zap.Logger
	clock  core.Clock
}

func NewDBSink(repo *db.Repository, logger *zap.Logger, clock core.Clock) Sink {
	return &dbSink{repo: repo, logger: logger, clock: clock}
}

func (s *dbSink) Record(ctx context.Context, tenantID, message string) {
	ev := &db.AuditEvent{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Message:   message,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertAuditEvent(ev); err != nil {
		s.logger.Warn("Failed to record audit event",
			zap.Error(err),
			zap.String("tenant_id", tenantID),
			zap.String("message", message),
		)
	}
}

// Nop discards every event. Used in tests.
type Nop struct{}

func (Nop) Record(context.Context, string, string) {}
