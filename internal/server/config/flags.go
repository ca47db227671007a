package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/webxfer/internal/flagx"
)

var knownFlags = []string{
	"-a", "-l", "-base-url", "-driver", "-d", "-s",
	"-blob", "-storage", "-u", "-p", "-b", "-g", "-e",
	"-ratelimit", "-rl-requests", "-rl-window",
	"-redis", "-redis-password", "-redis-db",
	"-notify", "-notify-from", "-notify-channel", "-smtp", "-smtp-user", "-smtp-password",
	"-max-upload", "-log-level",
}

// parseFlags populates server Config fields from command-line flags.
//
// The function first filters os.Args to the flags it recognizes using
// flagx.FilterArgs, so -c/-config and flags of other components pass through.
// Durations use Go syntax ("15m").
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.BaseURL, "base-url", config.BaseURL, "public base URL for download links")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver (postgres, sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key for operator tokens")

	fs.StringVar(&config.BlobBackend, "blob", config.BlobBackend, "blob backend (fs, s3)")
	fs.StringVar(&config.StoragePath, "storage", config.StoragePath, "blob directory for the fs backend")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.RateLimitBackend, "ratelimit", config.RateLimitBackend, "upload rate limit backend (memory, redis, none)")
	fs.IntVar(&config.RateLimitRequests, "rl-requests", config.RateLimitRequests, "uploads allowed per window")
	fs.DurationVar(&config.RateLimitWindow, "rl-window", config.RateLimitWindow, "rate limit window")

	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "Redis address")
	fs.StringVar(&config.RedisPassword, "redis-password", config.RedisPassword, "Redis password")
	fs.IntVar(&config.RedisDB, "redis-db", config.RedisDB, "Redis database")

	fs.StringVar(&config.NotifyBackend, "notify", config.NotifyBackend, "notification sink (log, smtp, redis)")
	fs.StringVar(&config.NotifyFrom, "notify-from", config.NotifyFrom, "notification sender address")
	fs.StringVar(&config.NotifyChannel, "notify-channel", config.NotifyChannel, "Redis notification channel")
	fs.StringVar(&config.SMTPAddr, "smtp", config.SMTPAddr, "SMTP server address")
	fs.StringVar(&config.SMTPUser, "smtp-user", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "smtp-password", config.SMTPPassword, "SMTP password")

	fs.Int64Var(&config.MaxUploadSize, "max-upload", config.MaxUploadSize, "largest accepted ciphertext in bytes")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
