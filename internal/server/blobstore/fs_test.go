package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey_Format(t *testing.T) {
	k := NewKey()
	re := regexp.MustCompile(`^files/\d{4}/\d{2}/\d{2}/[0-9a-f-]{36}\.bin$`)
	assert.Regexp(t, re, k)
	assert.NotEqual(t, k, NewKey())
}

func TestFSStore_WriteOpenDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	key := NewKey()
	data := bytes.Repeat([]byte{0xAB}, 100_000)
	require.NoError(t, s.Write(ctx, key, bytes.NewReader(data), int64(len(data))))

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, data, got)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Open(ctx, key)
	assert.ErrorIs(t, err, common.ErrStorageFailure)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// already gone
	assert.NoError(t, s.Delete(ctx, key))
}

func TestFSStore_ShortWrite(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	err = s.Write(ctx, "a.bin", strings.NewReader("abc"), 10)
	assert.ErrorIs(t, err, common.ErrStorageFailure)

	_, err = s.Open(ctx, "a.bin")
	assert.Error(t, err, "partial blob must not be visible")
}

func TestFSStore_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../x", "/etc/passwd", ""} {
		assert.ErrorIs(t, s.Write(ctx, key, strings.NewReader("x"), 1), common.ErrStorageFailure, key)
		_, err := s.Open(ctx, key)
		assert.ErrorIs(t, err, common.ErrStorageFailure, key)
		assert.ErrorIs(t, s.Delete(ctx, key), common.ErrStorageFailure, key)
	}
}

func TestFSStore_UnknownSize(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "x/y.bin", strings.NewReader("hello"), -1))
	rc, err := s.Open(ctx, "x/y.bin")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(b))
}
