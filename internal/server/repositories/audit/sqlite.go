package audit

import (
	"context"
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

func (r *SQLiteRepository) Append(ctx context.Context, e *models.AuditEntry) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO access_log (id, file_id, event_type, actor, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.FileID, string(e.Type), e.Actor, e.Details, dbx.Millis(e.Time))
	if err != nil {
		return fmt.Errorf("%w: db error: %w", common.ErrStorageFailure, err)
	}
	return dbx.AffectedOne(res)
}

func (r *SQLiteRepository) ListByFile(ctx context.Context, fileID string) ([]*models.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, file_id, event_type, actor, details, created_at
		FROM access_log WHERE file_id = ?
		ORDER BY created_at DESC`, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select audit entries: %w", common.ErrStorageFailure, err)
	}
	defer rows.Close()

	var result []*models.AuditEntry
	for rows.Next() {
		var (
			e       models.AuditEntry
			tp      string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.FileID, &tp, &e.Actor, &e.Details, &created); err != nil {
			return nil, fmt.Errorf("%w: failed to scan audit entry: %w", common.ErrStorageFailure, err)
		}
		e.Type = models.AuditEventType(tp)
		e.Time = dbx.FromMillis(created)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM access_log WHERE created_at < ?`, dbx.Millis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to prune audit entries: %w", common.ErrStorageFailure, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected error: %w", common.ErrStorageFailure, err)
	}
	return n, nil
}
