package files

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

// SQLiteRepository implements Repository for SQLite. Times are stored as
// Unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, f *models.FileRecord) error {
	query := `
		INSERT INTO files (id, token_hash, salt, encrypted_metadata, storage_key, ciphertext_length,
			max_downloads, download_count, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		f.ID, f.TokenHash, f.Salt, f.Metadata, f.StorageKey, f.CiphertextLength,
		f.MaxDownloads, dbx.NullMillis(f.ExpiresAt), dbx.Millis(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("%w: db error: %w", common.ErrStorageFailure, err)
	}
	return dbx.AffectedOne(res)
}

func (r *SQLiteRepository) Candidates(ctx context.Context) ([]models.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, salt, token_hash FROM files WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select candidates: %w", common.ErrStorageFailure, err)
	}
	defer rows.Close()

	var result []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.Salt, &c.Hash); err != nil {
			return nil, fmt.Errorf("%w: failed to scan candidate: %w", common.ErrStorageFailure, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	return result, nil
}

func scanSQLite(row *sql.Row) (*models.FileRecord, error) {
	var (
		f       models.FileRecord
		expires sql.NullInt64
		created int64
	)
	err := row.Scan(
		&f.ID, &f.TokenHash, &f.Salt, &f.Metadata, &f.StorageKey, &f.CiphertextLength,
		&f.MaxDownloads, &f.DownloadCount, &expires, &created)
	if err != nil {
		return nil, err
	}
	f.ExpiresAt = dbx.FromNullMillis(expires)
	f.CreatedAt = dbx.FromMillis(created)
	return &f, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = ? AND deleted_at IS NULL`

	f, err := scanSQLite(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: failed to select file: %w", common.ErrStorageFailure, err)
	}
	return f, nil
}

func (r *SQLiteRepository) ConditionalIncrement(ctx context.Context, id string, now time.Time) (*models.FileRecord, bool, error) {
	query := `
		UPDATE files
		SET download_count = download_count + 1
		WHERE id = ?
			AND deleted_at IS NULL
			AND download_count < max_downloads
			AND (expires_at IS NULL OR expires_at > ?)
		RETURNING ` + fileColumns

	f, err := scanSQLite(r.db.QueryRowContext(ctx, query, id, dbx.Millis(now)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: failed to increment download count: %w", common.ErrStorageFailure, err)
	}
	return f, true, nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE files SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, dbx.Millis(now), id)
	if err != nil {
		return fmt.Errorf("%w: failed to soft delete file: %w", common.ErrStorageFailure, err)
	}
	if err := dbx.AffectedOne(res); err != nil {
		if errors.Is(err, dbx.ErrNoRowsAffected) {
			return common.ErrorNotFound
		}
		return err
	}
	return nil
}

func (r *SQLiteRepository) ListExpired(ctx context.Context, now time.Time) ([]models.ExpiredFile, error) {
	query := `
		SELECT id, storage_key FROM files
		WHERE expires_at IS NOT NULL AND expires_at <= ? AND deleted_at IS NULL
		ORDER BY expires_at
	`
	rows, err := r.db.QueryContext(ctx, query, dbx.Millis(now))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select expired files: %w", common.ErrStorageFailure, err)
	}
	defer rows.Close()

	var result []models.ExpiredFile
	for rows.Next() {
		var e models.ExpiredFile
		if err := rows.Scan(&e.ID, &e.StorageKey); err != nil {
			return nil, fmt.Errorf("%w: failed to scan expired file: %w", common.ErrStorageFailure, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	return result, nil
}
