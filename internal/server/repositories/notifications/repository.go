// Package notifications persists download notification targets.
package notifications

import (
	"context"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, n *models.Notification) error
	// GetByFileID returns common.ErrorNotFound when the file has no target.
	GetByFileID(ctx context.Context, fileID string) (*models.Notification, error)
	// Claim sets notified_at iff it is still unset. Exactly one caller per
	// file ever gets ok == true.
	Claim(ctx context.Context, fileID string, now time.Time) (n *models.Notification, ok bool, err error)
}
