// Package httpapi serves the browser-facing HTTP gateway on top of the
// transfer service.
package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/cryptox"
	"github.com/dmitrijs2005/webxfer/internal/logging"
	"github.com/dmitrijs2005/webxfer/internal/server/models"
	"github.com/dmitrijs2005/webxfer/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type transferSvc interface {
	Upload(ctx context.Context, req services.UploadRequest) (*services.ShareReference, error)
	Download(ctx context.Context, token cryptox.Token) (*services.Download, error)
	Status(ctx context.Context, token cryptox.Token) (*models.Status, error)
	PeekMetadata(ctx context.Context, token cryptox.Token) (*services.SealedMetadata, error)
	Ping(ctx context.Context) error
}

// Options tune the gateway.
type Options struct {
	// BaseURL prefixes the download links returned by upload.
	BaseURL       string
	MaxUploadSize int64
}

func NewRouter(ts transferSvc, log logging.Logger, opts Options) *chi.Mux {
	h := NewHandler(ts, log, opts)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(withActor)

	r.Get("/health", h.Health)

	r.With(middleware.Timeout(2*time.Minute)).Post("/api/upload", h.Upload)

	r.Get("/download/{token}", h.Download)
	r.Get("/status/{token}", h.Status)
	r.Get("/metadata/{token}", h.Metadata)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found"})
	})

	return r
}

// withActor records the client address for auditing and rate limiting.
// RealIP has already replaced RemoteAddr when a proxy header was present.
func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := r.RemoteAddr
		if host, _, err := net.SplitHostPort(actor); err == nil {
			actor = host
		}
		next.ServeHTTP(w, r.WithContext(services.WithActor(r.Context(), actor)))
	})
}

// logRequests logs the route pattern rather than the path, which carries the token.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.log.Info(r.Context(), "http request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
