package audit

import (
	"context"
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

func (r *PostgresRepository) Append(ctx context.Context, e *models.AuditEntry) error {
	query := `INSERT INTO access_log (id, file_id, event_type, actor, details, created_at) VALUES ($1, $2, $3, $4, $5, $6)`

	res, err := r.db.ExecContext(ctx, query, e.ID, e.FileID, string(e.Type), e.Actor, e.Details, e.Time)
	if err != nil {
		return fmt.Errorf("%w: db error: %w", common.ErrStorageFailure, err)
	}
	return dbx.AffectedOne(res)
}

func (r *PostgresRepository) ListByFile(ctx context.Context, fileID string) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, file_id, event_type, actor, details, created_at
		FROM access_log WHERE file_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select audit entries: %w", common.ErrStorageFailure, err)
	}
	defer rows.Close()

	var result []*models.AuditEntry
	for rows.Next() {
		var (
			e  models.AuditEntry
			tp string
		)
		if err := rows.Scan(&e.ID, &e.FileID, &tp, &e.Actor, &e.Details, &e.Time); err != nil {
			return nil, fmt.Errorf("%w: failed to scan audit entry: %w", common.ErrStorageFailure, err)
		}
		e.Type = models.AuditEventType(tp)
		e.Time = e.Time.UTC()
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	return result, nil
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM access_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to prune audit entries: %w", common.ErrStorageFailure, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected error: %w", common.ErrStorageFailure, err)
	}
	return n, nil
}
