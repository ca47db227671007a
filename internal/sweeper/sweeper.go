// Package sweeper is the operator-side cleanup job. It authenticates to the
// Admin service with a short-lived token, removes expired files and prunes
// old audit entries, either once or on an interval.
package sweeper

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/client/client"
	"github.com/dmitrijs2005/webxfer/internal/flagx"
	"github.com/dmitrijs2005/webxfer/internal/logging"
	"github.com/dmitrijs2005/webxfer/internal/rpc"
	"github.com/dmitrijs2005/webxfer/internal/server/auth"
)

const tokenValidity = time.Minute

type Config struct {
	ServerAddr string
	SecretKey  string
	Retention  time.Duration
	// Interval of zero runs a single pass.
	Interval time.Duration
	LogLevel string
}

var knownFlags = []string{"a", "s", "retention", "interval", "log-level"}

func ParseConfig(args []string) (*Config, error) {
	c := &Config{}

	fs := flag.NewFlagSet("sweeper", flag.ContinueOnError)
	fs.StringVar(&c.ServerAddr, "a", "127.0.0.1:50051", "gRPC server address")
	fs.StringVar(&c.SecretKey, "s", "secretKey", "operator token signing key")
	fs.DurationVar(&c.Retention, "retention", 30*24*time.Hour, "audit retention")
	fs.DurationVar(&c.Interval, "interval", 0, "repeat every interval; 0 runs once")
	fs.StringVar(&c.LogLevel, "log-level", "info", "log level")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return nil, err
	}
	if c.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", c.Retention)
	}
	return c, nil
}

// AdminAPI is the part of client.GRPCClient the sweeper calls.
type AdminAPI interface {
	Sweep(ctx context.Context) (*rpc.SweepResponse, error)
	PruneAudit(ctx context.Context, retention time.Duration) (int64, error)
	Close() error
}

// Dialer opens an AdminAPI authenticated with accessToken.
type Dialer func(addr, accessToken string) (AdminAPI, error)

func DialGRPC(addr, accessToken string) (AdminAPI, error) {
	return client.NewGRPCClient(addr, accessToken)
}

type Sweeper struct {
	cfg    *Config
	dial   Dialer
	logger logging.Logger
}

func New(cfg *Config, dial Dialer, l logging.Logger) *Sweeper {
	return &Sweeper{cfg: cfg, dial: dial, logger: l}
}

// Run performs one pass, then repeats every Interval until ctx is done.
// With no interval the first error is returned; otherwise errors are logged.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return s.Once(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.Once(ctx); err != nil {
			s.logger.Error(ctx, "sweep pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Once mints a fresh token and runs Sweep followed by PruneAudit.
func (s *Sweeper) Once(ctx context.Context) error {
	token, err := auth.GenerateToken("sweeper", []byte(s.cfg.SecretKey), tokenValidity)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}

	api, err := s.dial(s.cfg.ServerAddr, token)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.ServerAddr, err)
	}
	defer api.Close()

	swept, err := api.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	s.logger.Info(ctx, "expired files swept", "deleted", swept.Deleted, "failed", swept.Failed)

	pruned, err := api.PruneAudit(ctx, s.cfg.Retention)
	if err != nil {
		return fmt.Errorf("prune audit: %w", err)
	}
	s.logger.Info(ctx, "audit pruned", "deleted", pruned, "retention", s.cfg.Retention.String())

	return nil
}
