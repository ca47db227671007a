package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/dmitrijs2005/webxfer/internal/cryptox"
	"github.com/dmitrijs2005/webxfer/internal/logging"
	"github.com/dmitrijs2005/webxfer/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const multipartMemory = 32 << 20

type Handler struct {
	transfer transferSvc
	log      logging.Logger
	opts     Options
	now      func() time.Time
}

func NewHandler(ts transferSvc, log logging.Logger, opts Options) *Handler {
	return &Handler{
		transfer: ts,
		log:      log.With("module", "http_gateway"),
		opts:     opts,
		now:      time.Now,
	}
}

// UploadRequest is the JSON upload body. Form uploads use the same field names.
type UploadRequest struct {
	EncryptedData     string      `json:"encryptedData"`
	EncryptedMetadata string      `json:"encryptedMetadata"`
	Salt              string      `json:"salt"`
	Token             string      `json:"token"`
	MaxDownloads      json.Number `json:"maxDownloads,omitempty"`
	ExpiresAt         string      `json:"expiresAt,omitempty"`
	SenderEmail       string      `json:"senderEmail,omitempty"`
}

type UploadResponse struct {
	Success        bool   `json:"success"`
	ShareReference string `json:"share_reference"`
	DownloadURL    string `json:"download_url"`
	TokenDisplay   string `json:"token_display"`
}

type StatusResponse struct {
	DownloadsRemaining int64      `json:"downloads_remaining"`
	ExpiresAt          *time.Time `json:"expires_at"`
	CreatedAt          time.Time  `json:"created_at"`
}

type MetadataResponse struct {
	EncryptedMetadataBase64 string `json:"encrypted_metadata_base64"`
	SaltBase64              string `json:"salt_base64"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

// bodyLimit allows for the base64 expansion of the payload plus the other fields.
func bodyLimit(maxUploadSize int64) int64 {
	return maxUploadSize/3*4 + 1<<20
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit(h.opts.MaxUploadSize))

	body, err := readUploadRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	req, err := body.toService(h.opts.MaxUploadSize)
	if err != nil {
		writeError(w, err)
		return
	}

	ref, err := h.transfer.Upload(r.Context(), req)
	if err != nil {
		if !errors.Is(err, common.ErrRateLimited) && !errors.Is(err, common.ErrInvalidPolicy) {
			h.log.Error(r.Context(), "upload failed", "error", err)
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:        true,
		ShareReference: ref.ID,
		DownloadURL:    strings.TrimRight(h.opts.BaseURL, "/") + "/download/" + req.Token.Encode(),
		TokenDisplay:   req.Token.Display(),
	})
}

func readUploadRequest(r *http.Request) (*UploadRequest, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if ct == "application/json" {
		var body UploadRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				return nil, err
			}
			return nil, badRequest("Invalid request body")
		}
		return &body, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, badRequest("Invalid request body")
	}

	return &UploadRequest{
		EncryptedData:     r.FormValue("encryptedData"),
		EncryptedMetadata: r.FormValue("encryptedMetadata"),
		Salt:              r.FormValue("salt"),
		Token:             r.FormValue("token"),
		MaxDownloads:      json.Number(r.FormValue("maxDownloads")),
		ExpiresAt:         r.FormValue("expiresAt"),
		SenderEmail:       r.FormValue("senderEmail"),
	}, nil
}

// toService validates the fields and decodes them. A missing maxDownloads
// means a single download.
func (b *UploadRequest) toService(maxUploadSize int64) (services.UploadRequest, error) {
	var req services.UploadRequest

	if b.EncryptedData == "" || b.EncryptedMetadata == "" || b.Salt == "" || b.Token == "" {
		return req, badRequest("Missing required fields")
	}

	token, err := cryptox.ParseToken(b.Token)
	if err != nil {
		return req, err
	}
	salt, err := cryptox.ParseSalt(b.Salt)
	if err != nil {
		return req, err
	}

	payload, err := base64.StdEncoding.DecodeString(b.EncryptedData)
	if err != nil {
		return req, badRequest("Invalid encrypted data")
	}
	if int64(len(payload)) > maxUploadSize {
		return req, common.ErrPayloadTooLarge
	}
	meta, err := base64.StdEncoding.DecodeString(b.EncryptedMetadata)
	if err != nil {
		return req, badRequest("Invalid encrypted metadata")
	}

	maxDownloads := int64(1)
	if b.MaxDownloads != "" {
		maxDownloads, err = strconv.ParseInt(string(b.MaxDownloads), 10, 64)
		if err != nil {
			return req, common.ErrInvalidPolicy
		}
	}

	var expiresAt *time.Time
	if b.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339Nano, b.ExpiresAt)
		if err != nil {
			return req, common.ErrInvalidPolicy
		}
		t = t.UTC()
		expiresAt = &t
	}

	return services.UploadRequest{
		Token:             token,
		Salt:              salt,
		EncryptedPayload:  payload,
		EncryptedMetadata: meta,
		MaxDownloads:      maxDownloads,
		ExpiresAt:         expiresAt,
		NotifyEmail:       strings.TrimSpace(b.SenderEmail),
	}, nil
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	token, err := cryptox.ParseToken(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}

	d, err := h.transfer.Download(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	defer d.Body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(d.Length, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="encrypted_file.bin"`)
	w.Header().Set(common.SaltHeaderName, d.Salt.String())
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, d.Body); err != nil {
		h.log.Error(r.Context(), "download stream failed", "file_id", d.FileID, "error", err)
	}
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	token, err := cryptox.ParseToken(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}

	st, err := h.transfer.Status(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		DownloadsRemaining: st.DownloadsRemaining,
		ExpiresAt:          st.ExpiresAt,
		CreatedAt:          st.CreatedAt,
	})
}

// Metadata returns the sealed metadata without consuming a download.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	token, err := cryptox.ParseToken(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := h.transfer.PeekMetadata(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, MetadataResponse{
		EncryptedMetadataBase64: base64.StdEncoding.EncodeToString(m.EncryptedMetadata),
		SaltBase64:              m.Salt.String(),
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	db := "connected"
	if err := h.transfer.Ping(r.Context()); err != nil {
		h.log.Warn(r.Context(), "database ping failed", "error", err)
		db = "disconnected"
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Database: db, Timestamp: h.now().UTC()})
}
