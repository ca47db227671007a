// Package lifecycle owns every mutation of a file record: creation, the
// download counter, notification claims and expiry sweeps.
//
//	Active -> Exhausted | Expired -> Deleted
//
// Per-record serialization is delegated to the database: the counter and
// the notification claim are single conditional UPDATE statements.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/dmitrijs2005/webxfer/internal/dbx"
	"github.com/dmitrijs2005/webxfer/internal/logging"
	"github.com/dmitrijs2005/webxfer/internal/server/blobstore"
	"github.com/dmitrijs2005/webxfer/internal/server/models"
	"github.com/dmitrijs2005/webxfer/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Policy limits how a file may be downloaded.
type Policy struct {
	MaxDownloads int64
	// ExpiresAt is optional; nil never expires.
	ExpiresAt *time.Time
}

// NewRecord carries everything needed to register an uploaded blob.
type NewRecord struct {
	TokenHash        []byte
	Salt             []byte
	Metadata         []byte
	StorageKey       string
	CiphertextLength int64
	Policy           Policy
	// NotifyEmail is optional.
	NotifyEmail string
}

// Increment is the outcome of an accepted download.
type Increment struct {
	// DownloadCount is the counter value after this download.
	DownloadCount int64
	Record        *models.FileRecord
}

// SweepReport summarizes one SweepExpired run.
type SweepReport struct {
	Deleted int
	Failed  int
}

type Manager struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	blobs blobstore.Store
	log   logging.Logger
	now   func() time.Time
}

func NewManager(db *sql.DB, repos repomanager.RepositoryManager, blobs blobstore.Store, log logging.Logger) *Manager {
	return &Manager{
		db:    db,
		repos: repos,
		blobs: blobs,
		log:   log.With("module", "lifecycle"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ValidatePolicy checks p without writing anything.
func (m *Manager) ValidatePolicy(p Policy) error {
	if p.MaxDownloads < 1 {
		return fmt.Errorf("%w: max downloads must be at least 1", common.ErrInvalidPolicy)
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(m.now()) {
		return fmt.Errorf("%w: expiry must be in the future", common.ErrInvalidPolicy)
	}
	return nil
}

// CreateRecord validates the policy and inserts the record together with its
// optional notification target in one transaction. It returns the new id.
func (m *Manager) CreateRecord(ctx context.Context, r NewRecord) (string, error) {
	if err := m.ValidatePolicy(r.Policy); err != nil {
		return "", err
	}

	now := m.now()
	rec := &models.FileRecord{
		ID:               uuid.NewString(),
		TokenHash:        r.TokenHash,
		Salt:             r.Salt,
		Metadata:         r.Metadata,
		StorageKey:       r.StorageKey,
		CiphertextLength: r.CiphertextLength,
		MaxDownloads:     r.Policy.MaxDownloads,
		ExpiresAt:        r.Policy.ExpiresAt,
		CreatedAt:        now,
	}

	err := dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.repos.Files(tx).Create(ctx, rec); err != nil {
			return fmt.Errorf("create file: %w", err)
		}
		if r.NotifyEmail == "" {
			return nil
		}
		n := &models.Notification{
			ID:        uuid.NewString(),
			FileID:    rec.ID,
			Email:     r.NotifyEmail,
			CreatedAt: now,
		}
		if err := m.repos.Notifications(tx).Create(ctx, n); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	m.log.Info(ctx, "record created", "file_id", rec.ID, "max_downloads", rec.MaxDownloads)
	return rec.ID, nil
}

// Lookup returns a live record, or common.ErrorNotFound.
func (m *Manager) Lookup(ctx context.Context, id string) (*models.FileRecord, error) {
	return m.repos.Files(m.db).Get(ctx, id)
}

// CheckAndIncrement consumes one download if the record is active.
// Exactly MaxDownloads calls ever succeed, however many run concurrently.
// An accepted call is decided and loaded by the same statement. A refused
// call reports common.ErrExhausted, common.ErrExpired or common.ErrorNotFound.
func (m *Manager) CheckAndIncrement(ctx context.Context, id string) (*Increment, error) {
	now := m.now()
	files := m.repos.Files(m.db)

	rec, ok, err := files.ConditionalIncrement(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if ok {
		return &Increment{DownloadCount: rec.DownloadCount, Record: rec}, nil
	}

	// Refused: nothing was consumed, so reading the state back is safe.
	rec, err = files.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch rec.State(now) {
	case models.StateExpired:
		return nil, common.ErrExpired
	case models.StateExhausted:
		return nil, common.ErrExhausted
	default:
		return nil, fmt.Errorf("%w: increment refused for active record %s", common.ErrorInternal, id)
	}
}

// GetStatus reports remaining downloads and expiry of a live record.
func (m *Manager) GetStatus(ctx context.Context, id string) (*models.Status, error) {
	rec, err := m.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.Status{
		DownloadsRemaining: rec.Remaining(),
		ExpiresAt:          rec.ExpiresAt,
		CreatedAt:          rec.CreatedAt,
		State:              rec.State(m.now()),
	}, nil
}

// ClaimNotification performs the one-time unset-to-set transition of the
// file's notification. ok is true for exactly one caller.
func (m *Manager) ClaimNotification(ctx context.Context, fileID string) (*models.Notification, bool, error) {
	return m.repos.Notifications(m.db).Claim(ctx, fileID, m.now())
}

// SweepExpired deletes the blobs of expired records and soft-deletes them.
// A failing item is logged and left for the next run.
func (m *Manager) SweepExpired(ctx context.Context) (*SweepReport, error) {
	now := m.now()
	files := m.repos.Files(m.db)

	expired, err := files.ListExpired(ctx, now)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{}
	for _, e := range expired {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := m.blobs.Delete(ctx, e.StorageKey); err != nil {
			m.log.Warn(ctx, "sweep: blob delete failed", "file_id", e.ID, "error", err)
			report.Failed++
			continue
		}

		if err := files.SoftDelete(ctx, e.ID, now); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// swept concurrently
				continue
			}
			m.log.Warn(ctx, "sweep: soft delete failed", "file_id", e.ID, "error", err)
			report.Failed++
			continue
		}
		report.Deleted++
	}

	m.log.Info(ctx, "sweep finished", "deleted", report.Deleted, "failed", report.Failed)
	return report, nil
}
