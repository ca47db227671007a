package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/client/client"
	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/dmitrijs2005/webxfer/internal/cryptox"
	"github.com/dmitrijs2005/webxfer/internal/rpc"
	"github.com/gabriel-vasile/mimetype"
)

// TransferAPI is the part of client.GRPCClient the workflows use.
type TransferAPI interface {
	Upload(ctx context.Context, req *rpc.UploadRequest) (string, error)
	Status(ctx context.Context, token string) (*rpc.StatusResponse, error)
	PeekMetadata(ctx context.Context, token string) (*rpc.MetadataResponse, error)
	Download(ctx context.Context, token string, w io.Writer) (*client.Download, error)
}

type TransferService struct {
	api     TransferAPI
	baseURL string
}

func NewTransferService(api TransferAPI, baseURL string) *TransferService {
	return &TransferService{api: api, baseURL: strings.TrimRight(baseURL, "/")}
}

// SendOptions describe one file to share.
type SendOptions struct {
	Name         string
	Content      []byte
	ModTime      time.Time
	MaxDownloads int64
	// TTL of zero means the file never expires.
	TTL         time.Duration
	NotifyEmail string
}

type SendResult struct {
	ShareReference string
	Token          cryptox.Token
	Link           string
}

// Received is a downloaded and decrypted file.
type Received struct {
	Metadata cryptox.Metadata
	Content  []byte
}

// Send encrypts the file under a fresh token and uploads it.
func (s *TransferService) Send(ctx context.Context, opts SendOptions) (*SendResult, error) {
	token := cryptox.GenerateToken()
	salt := cryptox.GenerateSalt()

	key, err := cryptox.DeriveKey(token, salt, common.KDFContext)
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	meta := cryptox.Metadata{
		Name:         opts.Name,
		Type:         mimetype.Detect(opts.Content).String(),
		Size:         int64(len(opts.Content)),
		LastModified: opts.ModTime.UnixMilli(),
	}

	sealedMeta, err := cryptox.EncryptMetadata(meta, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt metadata: %w", err)
	}
	sealed, err := cryptox.Encrypt(opts.Content, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}

	req := &rpc.UploadRequest{
		EncryptedPayload:  sealed,
		EncryptedMetadata: sealedMeta,
		Salt:              salt.String(),
		Token:             token.Encode(),
		MaxDownloads:      opts.MaxDownloads,
		NotifyEmail:       opts.NotifyEmail,
	}
	if opts.TTL > 0 {
		exp := time.Now().Add(opts.TTL).UTC()
		req.ExpiresAt = &exp
	}

	ref, err := s.api.Upload(ctx, req)
	if err != nil {
		return nil, err
	}

	return &SendResult{
		ShareReference: ref,
		Token:          token,
		Link:           s.baseURL + "/download/" + token.Encode(),
	}, nil
}

// Receive reads the metadata first, so a wrong token fails before a
// download is consumed, then downloads and decrypts the content.
func (s *TransferService) Receive(ctx context.Context, token cryptox.Token) (*Received, error) {
	enc := token.Encode()

	m, err := s.api.PeekMetadata(ctx, enc)
	if err != nil {
		return nil, err
	}
	salt, err := cryptox.ParseSalt(m.Salt)
	if err != nil {
		return nil, err
	}

	key, err := cryptox.DeriveKey(token, salt, common.KDFContext)
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	meta, err := cryptox.DecryptMetadata(m.EncryptedMetadata, key)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	d, err := s.api.Download(ctx, enc, &buf)
	if err != nil {
		return nil, err
	}
	if d.Salt != m.Salt {
		return nil, fmt.Errorf("%w: salt changed between metadata and download", common.ErrAuthenticationFailed)
	}

	content, err := cryptox.Decrypt(buf.Bytes(), key)
	if err != nil {
		return nil, err
	}

	return &Received{Metadata: *meta, Content: content}, nil
}

func (s *TransferService) Status(ctx context.Context, token cryptox.Token) (*rpc.StatusResponse, error) {
	return s.api.Status(ctx, token.Encode())
}

// ParseShare accepts a bare token or a share link ending in /download/<token>.
func ParseShare(s string) (cryptox.Token, error) {
	s = strings.TrimSpace(s)
	if u, err := url.Parse(s); err == nil && u.Scheme != "" {
		s = path.Base(u.Path)
	}
	return cryptox.ParseToken(s)
}
