package files

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/dmitrijs2005/webxfer/internal/server/models"
	"github.com/dmitrijs2005/webxfer/internal/server/repositories/repotest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRecord(maxDownloads int64, expires *time.Time) *models.FileRecord {
	id := uuid.NewString()
	return &models.FileRecord{
		ID:               id,
		TokenHash:        []byte("hash-" + id),
		Salt:             []byte("salt-" + id),
		Metadata:         []byte("meta"),
		StorageKey:       id + ".bin",
		CiphertextLength: 128,
		MaxDownloads:     maxDownloads,
		ExpiresAt:        expires,
		CreatedAt:        time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestSQLite_CreateGet(t *testing.T) {
	repo := NewSQLiteRepository(repotest.OpenSQLite(t))
	ctx := context.Background()

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
	f := newSQLiteRecord(2, &exp)
	require.NoError(t, repo.Create(ctx, f))

	got, err := repo.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.TokenHash, got.TokenHash)
	assert.Equal(t, f.Salt, got.Salt)
	assert.Equal(t, f.StorageKey, got.StorageKey)
	assert.Equal(t, int64(0), got.DownloadCount)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, exp.Equal(*got.ExpiresAt))
	assert.True(t, f.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_RejectsZeroMaxDownloads(t *testing.T) {
	repo := NewSQLiteRepository(repotest.OpenSQLite(t))
	assert.Error(t, repo.Create(context.Background(), newSQLiteRecord(0, nil)))
}

func TestSQLite_ConditionalIncrement_StopsAtMax(t *testing.T) {
	repo := NewSQLiteRepository(repotest.OpenSQLite(t))
	ctx := context.Background()
	now := time.Now()

	f := newSQLiteRecord(2, nil)
	require.NoError(t, repo.Create(ctx, f))

	got, ok, err := repo.ConditionalIncrement(ctx, f.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), got.DownloadCount)
	assert.Equal(t, f.StorageKey, got.StorageKey)
	assert.Equal(t, f.Salt, got.Salt)
	assert.Equal(t, f.CiphertextLength, got.CiphertextLength)

	got, ok, err = repo.ConditionalIncrement(ctx, f.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), got.DownloadCount)

	_, ok, err = repo.ConditionalIncrement(ctx, f.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_ConditionalIncrement_ExpiryBoundary(t *testing.T) {
	repo := NewSQLiteRepository(repotest.OpenSQLite(t))
	ctx := context.Background()

	exp := time.Now().Add(time.Minute).UTC().Truncate(time.Millisecond)
	f := newSQLiteRecord(5, &exp)
	require.NoError(t, repo.Create(ctx, f))

	_, ok, err := repo.ConditionalIncrement(ctx, f.ID, exp.Add(-time.Millisecond))
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = repo.ConditionalIncrement(ctx, f.ID, exp)
	require.NoError(t, err)
	assert.False(t, ok, "expires_at == now is expired")

	_, ok, err = repo.ConditionalIncrement(ctx, f.ID, exp.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_ConditionalIncrement_Concurrent(t *testing.T) {
	repo := NewSQLiteRepository(repotest.OpenSQLite(t))
	ctx := context.Background()

	const limit, extra = 5, 15
	f := newSQLiteRecord(limit, nil)
	require.NoError(t, repo.Create(ctx, f))

	var (
		wg      sync.WaitGroup
		success atomic.Int64
		failed  atomic.Int64
	)
	start := make(chan struct{})
	for i := 0; i < limit+extra; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, ok, err := repo.ConditionalIncrement(ctx, f.ID, time.Now())
			if err != nil {
				failed.Add(1)
				return
			}
			if ok {
				success.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(0), failed.Load())
	assert.Equal(t, int64(limit), success.Load())

	got, err := repo.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(limit), got.DownloadCount)
}

func TestSQLite_SoftDeleteAndCandidates(t *testing.T) {
	repo := NewSQLiteRepository(repotest.OpenSQLite(t))
	ctx := context.Background()

	a := newSQLiteRecord(1, nil)
	b := newSQLiteRecord(1, nil)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	cands, err := repo.Candidates(ctx)
	require.NoError(t, err)
	assert.Len(t, cands, 2)

	require.NoError(t, repo.SoftDelete(ctx, a.ID, time.Now()))
	assert.ErrorIs(t, repo.SoftDelete(ctx, a.ID, time.Now()), common.ErrorNotFound)

	cands, err = repo.Candidates(ctx)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, b.ID, cands[0].ID)
	assert.Equal(t, b.Salt, cands[0].Salt)
	assert.Equal(t, b.TokenHash, cands[0].Hash)

	_, err = repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, ok, err := repo.ConditionalIncrement(ctx, a.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_ListExpired(t *testing.T) {
	repo := NewSQLiteRepository(repotest.OpenSQLite(t))
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := newSQLiteRecord(1, &past)
	live := newSQLiteRecord(1, &future)
	forever := newSQLiteRecord(1, nil)
	gone := newSQLiteRecord(1, &past)
	for _, f := range []*models.FileRecord{expired, live, forever, gone} {
		require.NoError(t, repo.Create(ctx, f))
	}
	require.NoError(t, repo.SoftDelete(ctx, gone.ID, now))

	got, err := repo.ListExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []models.ExpiredFile{{ID: expired.ID, StorageKey: expired.StorageKey}}, got)
}
