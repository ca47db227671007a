package files

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/dmitrijs2005/webxfer/internal/dbx"
	"github.com/dmitrijs2005/webxfer/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var (
	insertQ    = `(?s)^\s*INSERT\s+INTO\s+files\b.*VALUES\s*\(\$1,.*\$9\)\s*$`
	candQ      = `^SELECT id, salt, token_hash FROM files WHERE deleted_at IS NULL$`
	getQ       = `(?s)^\s*SELECT\s+id,\s*token_hash.*FROM\s+files\s+WHERE\s+id\s*=\s*\$1\s+AND\s+deleted_at\s+IS\s+NULL\s*$`
	incrementQ = `(?s)^\s*UPDATE\s+files\s+SET\s+download_count\s*=\s*download_count\s*\+\s*1.*download_count\s*<\s*max_downloads.*expires_at\s*>\s*\$2\).*RETURNING\s+id,\s*token_hash.*created_at\s*$`
	softDelQ   = `^UPDATE files SET deleted_at = \$2 WHERE id = \$1 AND deleted_at IS NULL$`
	expiredQ   = `(?s)^\s*SELECT\s+id,\s*storage_key\s+FROM\s+files\s+WHERE\s+expires_at\s+IS\s+NOT\s+NULL\s+AND\s+expires_at\s*<=\s*\$1.*ORDER\s+BY\s+expires_at\s*$`
)

func sampleRecord() *models.FileRecord {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.FileRecord{
		ID:               "f1",
		TokenHash:        []byte("hash"),
		Salt:             []byte("salt"),
		Metadata:         []byte("meta"),
		StorageKey:       "f1.bin",
		CiphertextLength: 42,
		MaxDownloads:     3,
		ExpiresAt:        &exp,
		CreatedAt:        time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	f := sampleRecord()
	mock.ExpectExec(insertQ).
		WithArgs("f1", []byte("hash"), []byte("salt"), []byte("meta"), "f1.bin", int64(42), int64(3),
			sql.NullTime{Time: *f.ExpiresAt, Valid: true}, f.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_NoExpiry(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	f := sampleRecord()
	f.ExpiresAt = nil
	mock.ExpectExec(insertQ).
		WithArgs("f1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "f1.bin", int64(42), int64(3),
			sql.NullTime{}, f.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), sampleRecord())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestCreate_UnexpectedRowsAffected(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.Create(context.Background(), sampleRecord())
	if err == nil || !regexp.MustCompile(`unexpected rows affected: 2`).MatchString(err.Error()) {
		t.Fatalf("expected unexpected rows affected, got %v", err)
	}
}

func TestCandidates_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "salt", "token_hash"}).
		AddRow("a", []byte("s1"), []byte("h1")).
		AddRow("b", []byte("s2"), []byte("h2"))
	mock.ExpectQuery(candQ).WillReturnRows(rows)

	got, err := repo.Candidates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || string(got[1].Salt) != "s2" || string(got[1].Hash) != "h2" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
}

func TestCandidates_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(candQ).WillReturnError(errors.New("boom"))

	_, err := repo.Candidates(context.Background())
	if err == nil || !regexp.MustCompile(`failed to select candidates: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestCandidates_RowError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "salt", "token_hash"}).
		AddRow("a", []byte("s1"), []byte("h1")).
		RowError(0, errors.New("row-broken"))
	mock.ExpectQuery(candQ).WillReturnRows(rows)

	if _, err := repo.Candidates(context.Background()); err == nil {
		t.Fatal("expected row error")
	}
}

func TestGet_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "token_hash", "salt", "encrypted_metadata", "storage_key",
		"ciphertext_length", "max_downloads", "download_count", "expires_at", "created_at"}).
		AddRow("f1", []byte("h"), []byte("s"), []byte("m"), "f1.bin", int64(10), int64(3), int64(1), nil, created)
	mock.ExpectQuery(getQ).WithArgs("f1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "f1" || got.DownloadCount != 1 || got.MaxDownloads != 3 || got.ExpiresAt != nil || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQ).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func fileRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "token_hash", "salt", "encrypted_metadata", "storage_key",
		"ciphertext_length", "max_downloads", "download_count", "expires_at", "created_at"})
}

func TestConditionalIncrement(t *testing.T) {
	now := time.Date(2029, 6, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("allowed", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(incrementQ).WithArgs("f1", now).
			WillReturnRows(fileRows().AddRow("f1", []byte("h"), []byte("s"), []byte("m"), "f1.bin", int64(10), int64(3), int64(2), nil, created))

		f, ok, err := repo.ConditionalIncrement(context.Background(), "f1", now)
		if err != nil || !ok {
			t.Fatalf("got ok=%v err=%v", ok, err)
		}
		if f.DownloadCount != 2 || f.StorageKey != "f1.bin" || string(f.Salt) != "s" || f.CiphertextLength != 10 {
			t.Fatalf("unexpected record: %+v", f)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})

	t.Run("denied", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(incrementQ).WithArgs("f1", now).WillReturnRows(fileRows())

		f, ok, err := repo.ConditionalIncrement(context.Background(), "f1", now)
		if err != nil || ok || f != nil {
			t.Fatalf("got f=%v ok=%v err=%v", f, ok, err)
		}
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(incrementQ).WillReturnError(errors.New("lock timeout"))

		_, ok, err := repo.ConditionalIncrement(context.Background(), "f1", now)
		if ok || err == nil || !regexp.MustCompile(`failed to increment download count: .*lock timeout`).MatchString(err.Error()) {
			t.Fatalf("expected wrapped error, got ok=%v err=%v", ok, err)
		}
		if !errors.Is(err, common.ErrStorageFailure) {
			t.Fatalf("want ErrStorageFailure in chain, got %v", err)
		}
	})
}

func TestQueryErrors_AreStorageFailures(t *testing.T) {
	now := time.Now().UTC()
	down := errors.New("connection reset")

	calls := map[string]struct {
		query string
		exec  bool
		call  func(r *PostgresRepository) error
	}{
		"create": {insertQ, true, func(r *PostgresRepository) error {
			return r.Create(context.Background(), sampleRecord())
		}},
		"candidates": {candQ, false, func(r *PostgresRepository) error {
			_, err := r.Candidates(context.Background())
			return err
		}},
		"get": {getQ, false, func(r *PostgresRepository) error {
			_, err := r.Get(context.Background(), "f1")
			return err
		}},
		"soft delete": {softDelQ, true, func(r *PostgresRepository) error {
			return r.SoftDelete(context.Background(), "f1", now)
		}},
		"list expired": {expiredQ, false, func(r *PostgresRepository) error {
			_, err := r.ListExpired(context.Background(), now)
			return err
		}},
	}

	for name, tc := range calls {
		t.Run(name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			if tc.exec {
				mock.ExpectExec(tc.query).WillReturnError(down)
			} else {
				mock.ExpectQuery(tc.query).WillReturnError(down)
			}

			err := tc.call(repo)
			if !errors.Is(err, common.ErrStorageFailure) || !errors.Is(err, down) {
				t.Fatalf("want storage failure wrapping the driver error, got %v", err)
			}
		})
	}
}

func TestSoftDelete(t *testing.T) {
	now := time.Now().UTC()

	t.Run("ok", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(softDelQ).WithArgs("f1", now).WillReturnResult(sqlmock.NewResult(0, 1))
		if err := repo.SoftDelete(context.Background(), "f1", now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("already deleted", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(softDelQ).WithArgs("f1", now).WillReturnResult(sqlmock.NewResult(0, 0))
		if err := repo.SoftDelete(context.Background(), "f1", now); !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("want ErrorNotFound, got %v", err)
		}
	})

	t.Run("rows affected error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(softDelQ).WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))
		err := repo.SoftDelete(context.Background(), "f1", now)
		if err == nil || errors.Is(err, dbx.ErrNoRowsAffected) {
			t.Fatalf("expected rows affected error, got %v", err)
		}
	})
}

func TestListExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "storage_key"}).
		AddRow("a", "a.bin").
		AddRow("b", "b.bin")
	mock.ExpectQuery(expiredQ).WithArgs(now).WillReturnRows(rows)

	got, err := repo.ListExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []models.ExpiredFile{{ID: "a", StorageKey: "a.bin"}, {ID: "b", StorageKey: "b.bin"}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
