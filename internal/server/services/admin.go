package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/logging"
	"github.com/dmitrijs2005/webxfer/internal/server/lifecycle"
	"github.com/dmitrijs2005/webxfer/internal/server/repositories/repomanager"
)

// DefaultAuditRetention is how long access log entries are kept.
const DefaultAuditRetention = 30 * 24 * time.Hour

// AdminService runs periodic maintenance on behalf of the operator.
type AdminService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	lifecycle *lifecycle.Manager
	log       logging.Logger
	now       func() time.Time
}

func NewAdminService(db *sql.DB, repos repomanager.RepositoryManager, lc *lifecycle.Manager, log logging.Logger) *AdminService {
	return &AdminService{
		db:        db,
		repos:     repos,
		lifecycle: lc,
		log:       log.With("module", "admin"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Sweep removes expired files.
func (s *AdminService) Sweep(ctx context.Context) (*lifecycle.SweepReport, error) {
	return s.lifecycle.SweepExpired(ctx)
}

// PruneAudit deletes access log entries older than retention. A
// non-positive retention uses DefaultAuditRetention.
func (s *AdminService) PruneAudit(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultAuditRetention
	}
	n, err := s.repos.Audit(s.db).DeleteOlderThan(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "audit pruned", "deleted", n, "retention", retention.String())
	return n, nil
}
