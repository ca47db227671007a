// Package audit persists the append-only access log.
package audit

import (
	"context"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, e *models.AuditEntry) error
	// ListByFile returns a file's entries, newest first.
	ListByFile(ctx context.Context, fileID string) ([]*models.AuditEntry, error)
	// DeleteOlderThan removes entries created before cutoff and reports how
	// many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
