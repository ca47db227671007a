// Package services contains server-side business logic. TransferService
// orchestrates uploads and downloads; AdminService runs maintenance.
package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/dmitrijs2005/webxfer/internal/cryptox"
	"github.com/dmitrijs2005/webxfer/internal/logging"
	"github.com/dmitrijs2005/webxfer/internal/server/blobstore"
	"github.com/dmitrijs2005/webxfer/internal/server/lifecycle"
	"github.com/dmitrijs2005/webxfer/internal/server/models"
	"github.com/dmitrijs2005/webxfer/internal/server/notify"
	"github.com/dmitrijs2005/webxfer/internal/server/ratelimit"
	"github.com/dmitrijs2005/webxfer/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/webxfer/internal/server/tokenindex"
	"github.com/google/uuid"
)

// UploadRequest is what a client sends to share a file. Payload and
// metadata are already encrypted.
type UploadRequest struct {
	Token             cryptox.Token
	Salt              cryptox.Salt
	EncryptedPayload  []byte
	EncryptedMetadata []byte
	MaxDownloads      int64
	ExpiresAt         *time.Time
	NotifyEmail       string
}

// ShareReference identifies the stored file without revealing the token.
type ShareReference struct {
	ID string
}

// Download is an accepted download. The caller must close Body.
type Download struct {
	FileID string
	Body   io.ReadCloser
	Salt   cryptox.Salt
	Length int64
}

// SealedMetadata is the encrypted metadata of a file plus the salt needed
// to derive its key.
type SealedMetadata struct {
	EncryptedMetadata []byte
	Salt              cryptox.Salt
}

type TransferService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	index     *tokenindex.Index
	lifecycle *lifecycle.Manager
	blobs     blobstore.Store
	limiter   ratelimit.Limiter
	sink      notify.Sink
	log       logging.Logger
	now       func() time.Time
}

func NewTransferService(
	db *sql.DB,
	repos repomanager.RepositoryManager,
	lc *lifecycle.Manager,
	blobs blobstore.Store,
	limiter ratelimit.Limiter,
	sink notify.Sink,
	log logging.Logger,
) *TransferService {
	return &TransferService{
		db:        db,
		repos:     repos,
		index:     tokenindex.New(repos.Files(db), log),
		lifecycle: lc,
		blobs:     blobs,
		limiter:   limiter,
		sink:      sink,
		log:       log.With("module", "transfer"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores the ciphertext and registers the record. The blob is written
// first and removed again if the record cannot be created.
func (s *TransferService) Upload(ctx context.Context, req UploadRequest) (*ShareReference, error) {
	actor := ActorFromContext(ctx)

	ok, err := s.limiter.Allow(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Warn(ctx, "upload rate limited", "actor", actor)
		return nil, common.ErrRateLimited
	}

	policy := lifecycle.Policy{MaxDownloads: req.MaxDownloads, ExpiresAt: req.ExpiresAt}
	if err := s.lifecycle.ValidatePolicy(policy); err != nil {
		return nil, err
	}

	fp := tokenindex.Fingerprint(req.Token, req.Salt)
	key := blobstore.NewKey()
	size := int64(len(req.EncryptedPayload))

	if err := s.blobs.Write(ctx, key, bytes.NewReader(req.EncryptedPayload), size); err != nil {
		return nil, err
	}

	metadata := req.EncryptedMetadata
	if metadata == nil {
		metadata = []byte{}
	}

	id, err := s.lifecycle.CreateRecord(ctx, lifecycle.NewRecord{
		TokenHash:        fp[:],
		Salt:             req.Salt[:],
		Metadata:         metadata,
		StorageKey:       key,
		CiphertextLength: size,
		Policy:           policy,
		NotifyEmail:      req.NotifyEmail,
	})
	if err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.log.Error(ctx, "orphaned blob after failed upload", "storage_key", key, "error", derr)
		}
		return nil, err
	}

	s.audit(ctx, id, models.AuditUpload, fmt.Sprintf("File uploaded, size: %d bytes", size))
	s.log.Info(ctx, "file uploaded", "file_id", id, "size", size)

	return &ShareReference{ID: id}, nil
}

// Download consumes one download and opens the ciphertext stream.
// The download counts even if streaming later fails.
func (s *TransferService) Download(ctx context.Context, token cryptox.Token) (*Download, error) {
	id, err := s.index.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	inc, err := s.lifecycle.CheckAndIncrement(ctx, id)
	if err != nil {
		if common.IsUnavailable(err) {
			s.log.Info(ctx, "download refused", "file_id", id, "reason", err)
		}
		return nil, err
	}
	rec := inc.Record

	salt, err := cryptox.SaltFromBytes(rec.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: stored salt: %w", common.ErrorInternal, err)
	}

	body, err := s.blobs.Open(ctx, rec.StorageKey)
	if err != nil {
		s.log.Error(ctx, "blob open failed", "file_id", id, "error", err)
		return nil, err
	}

	s.audit(ctx, id, models.AuditDownload, "File downloaded")
	s.notify(ctx, id, inc.DownloadCount)

	s.log.Info(ctx, "download started", "file_id", id, "download_count", inc.DownloadCount)
	return &Download{FileID: id, Body: body, Salt: salt, Length: rec.CiphertextLength}, nil
}

// Status reports the remaining capacity of the file behind token.
func (s *TransferService) Status(ctx context.Context, token cryptox.Token) (*models.Status, error) {
	id, err := s.index.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	st, err := s.lifecycle.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := unavailable(st.State); err != nil {
		return nil, err
	}
	return st, nil
}

// PeekMetadata returns the encrypted metadata without consuming a download.
func (s *TransferService) PeekMetadata(ctx context.Context, token cryptox.Token) (*SealedMetadata, error) {
	id, err := s.index.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	rec, err := s.lifecycle.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := unavailable(rec.State(s.now())); err != nil {
		return nil, err
	}
	salt, err := cryptox.SaltFromBytes(rec.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: stored salt: %w", common.ErrorInternal, err)
	}
	return &SealedMetadata{EncryptedMetadata: rec.Metadata, Salt: salt}, nil
}

// Ping reports whether the database is reachable.
func (s *TransferService) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func unavailable(st models.State) error {
	switch st {
	case models.StateExpired:
		return common.ErrExpired
	case models.StateExhausted:
		return common.ErrExhausted
	case models.StateDeleted:
		return common.ErrorNotFound
	}
	return nil
}

// audit appends an access log entry. Failures are logged only.
func (s *TransferService) audit(ctx context.Context, fileID string, tp models.AuditEventType, details string) {
	e := &models.AuditEntry{
		ID:      uuid.NewString(),
		FileID:  fileID,
		Type:    tp,
		Actor:   ActorFromContext(ctx),
		Details: details,
		Time:    s.now(),
	}
	if err := s.repos.Audit(s.db).Append(ctx, e); err != nil {
		s.log.Warn(ctx, "audit append failed", "file_id", fileID, "type", string(tp), "error", err)
	}
}

// notify claims the file's notification and, if this call won the claim,
// sends it. The claim happens before sending, so a failed send is not retried.
func (s *TransferService) notify(ctx context.Context, fileID string, downloadCount int64) {
	n, ok, err := s.lifecycle.ClaimNotification(ctx, fileID)
	if err != nil {
		s.log.Warn(ctx, "notification claim failed", "file_id", fileID, "error", err)
		return
	}
	if !ok {
		return
	}
	if err := s.sink.Notify(ctx, n.Email, fileID, downloadCount); err != nil {
		s.log.Warn(ctx, "notification send failed", "file_id", fileID, "error", err)
		return
	}
	s.log.Info(ctx, "notification sent", "file_id", fileID)
}
