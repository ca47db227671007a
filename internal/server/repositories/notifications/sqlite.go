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

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, n *models.Notification) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, file_id, email, created_at) VALUES (?, ?, ?, ?)`,
		n.ID, n.FileID, n.Email, dbx.Millis(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("%w: db error: %w", common.ErrStorageFailure, err)
	}
	return dbx.AffectedOne(res)
}

func (r *SQLiteRepository) scan(row *sql.Row) (*models.Notification, error) {
	var (
		n        models.Notification
		notified sql.NullInt64
		created  int64
	)
	if err := row.Scan(&n.ID, &n.FileID, &n.Email, &notified, &created); err != nil {
		return nil, err
	}
	n.NotifiedAt = dbx.FromNullMillis(notified)
	n.CreatedAt = dbx.FromMillis(created)
	return &n, nil
}

func (r *SQLiteRepository) GetByFileID(ctx context.Context, fileID string) (*models.Notification, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, file_id, email, notified_at, created_at FROM notifications WHERE file_id = ?`, fileID)
	n, err := r.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: failed to select notification: %w", common.ErrStorageFailure, err)
	}
	return n, nil
}

func (r *SQLiteRepository) Claim(ctx context.Context, fileID string, now time.Time) (*models.Notification, bool, error) {
	query := `
		UPDATE notifications SET notified_at = ?
		WHERE file_id = ? AND notified_at IS NULL
		RETURNING id, file_id, email, notified_at, created_at
	`
	n, err := r.scan(r.db.QueryRowContext(ctx, query, dbx.Millis(now), fileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: failed to claim notification: %w", common.ErrStorageFailure, err)
	}
	return n, true, nil
}
