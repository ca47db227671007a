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

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.FileRecord) error {
	query := `
		INSERT INTO files (id, token_hash, salt, encrypted_metadata, storage_key, ciphertext_length,
			max_downloads, download_count, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9)
	`
	var expires sql.NullTime
	if f.ExpiresAt != nil {
		expires = sql.NullTime{Time: *f.ExpiresAt, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query,
		f.ID, f.TokenHash, f.Salt, f.Metadata, f.StorageKey, f.CiphertextLength,
		f.MaxDownloads, expires, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: db error: %w", common.ErrStorageFailure, err)
	}
	if err := dbx.AffectedOne(res); err != nil {
		return err
	}
	return nil
}

func (r *PostgresRepository) Candidates(ctx context.Context) ([]models.Candidate, error) {
	query := `SELECT id, salt, token_hash FROM files WHERE deleted_at IS NULL`

	rows, err := r.db.QueryContext(ctx, query)
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

func scanPostgres(row *sql.Row) (*models.FileRecord, error) {
	var (
		f       models.FileRecord
		expires sql.NullTime
	)
	err := row.Scan(
		&f.ID, &f.TokenHash, &f.Salt, &f.Metadata, &f.StorageKey, &f.CiphertextLength,
		&f.MaxDownloads, &f.DownloadCount, &expires, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	f.ExpiresAt = dbx.FromNullTime(expires)
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND deleted_at IS NULL`

	f, err := scanPostgres(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: failed to select file: %w", common.ErrStorageFailure, err)
	}
	return f, nil
}

// ConditionalIncrement decides and loads in one statement, so an accepted
// download never needs a second read.
func (r *PostgresRepository) ConditionalIncrement(ctx context.Context, id string, now time.Time) (*models.FileRecord, bool, error) {
	query := `
		UPDATE files
		SET download_count = download_count + 1
		WHERE id = $1
			AND deleted_at IS NULL
			AND download_count < max_downloads
			AND (expires_at IS NULL OR expires_at > $2)
		RETURNING ` + fileColumns

	f, err := scanPostgres(r.db.QueryRowContext(ctx, query, id, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: failed to increment download count: %w", common.ErrStorageFailure, err)
	}
	return f, true, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id string, now time.Time) error {
	query := `UPDATE files SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id, now)
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

func (r *PostgresRepository) ListExpired(ctx context.Context, now time.Time) ([]models.ExpiredFile, error) {
	query := `
		SELECT id, storage_key FROM files
		WHERE expires_at IS NOT NULL AND expires_at <= $1 AND deleted_at IS NULL
		ORDER BY expires_at
	`
	rows, err := r.db.QueryContext(ctx, query, now)
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
