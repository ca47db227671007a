package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/dmitrijs2005/webxfer/internal/dbx"
	"github.com/dmitrijs2005/webxfer/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications (id, file_id, email, created_at) VALUES ($1, $2, $3, $4)`

	res, err := r.db.ExecContext(ctx, query, n.ID, n.FileID, n.Email, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: db error: %w", common.ErrStorageFailure, err)
	}
	return dbx.AffectedOne(res)
}

func (r *PostgresRepository) GetByFileID(ctx context.Context, fileID string) (*models.Notification, error) {
	query := `SELECT id, file_id, email, notified_at, created_at FROM notifications WHERE file_id = $1`

	var (
		n        models.Notification
		notified sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, fileID).Scan(&n.ID, &n.FileID, &n.Email, &notified, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: failed to select notification: %w", common.ErrStorageFailure, err)
	}
	n.NotifiedAt = dbx.FromNullTime(notified)
	return &n, nil
}

func (r *PostgresRepository) Claim(ctx context.Context, fileID string, now time.Time) (*models.Notification, bool, error) {
	query := `
		UPDATE notifications SET notified_at = $2
		WHERE file_id = $1 AND notified_at IS NULL
		RETURNING id, file_id, email, notified_at, created_at
	`
	var (
		n        models.Notification
		notified sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, fileID, now).Scan(&n.ID, &n.FileID, &n.Email, &notified, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: failed to claim notification: %w", common.ErrStorageFailure, err)
	}
	n.NotifiedAt = dbx.FromNullTime(notified)
	return &n, true, nil
}
