package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/webxfer/internal/flagx"
	"github.com/dmitrijs2005/webxfer/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of Config. Durations use timex.Duration so
// both "15m" and integer nanoseconds are accepted. It is filled from the
// current Config before decoding, so keys absent from the file keep their
// previous values.
type FileConfig struct {
	EndpointAddrGRPC  string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	EndpointAddrHTTP  string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	BaseURL           string         `json:"base_url" yaml:"base_url"`
	DatabaseDriver    string         `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN       string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey         string         `json:"secret_key" yaml:"secret_key"`
	BlobBackend       string         `json:"blob_backend" yaml:"blob_backend"`
	StoragePath       string         `json:"storage_path" yaml:"storage_path"`
	S3RootUser        string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region          string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	RateLimitBackend  string         `json:"rate_limit_backend" yaml:"rate_limit_backend"`
	RateLimitRequests int            `json:"rate_limit_requests" yaml:"rate_limit_requests"`
	RateLimitWindow   timex.Duration `json:"rate_limit_window" yaml:"rate_limit_window"`
	RedisAddr         string         `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword     string         `json:"redis_password" yaml:"redis_password"`
	RedisDB           int            `json:"redis_db" yaml:"redis_db"`
	NotifyBackend     string         `json:"notify_backend" yaml:"notify_backend"`
	NotifyFrom        string         `json:"notify_from" yaml:"notify_from"`
	NotifyChannel     string         `json:"notify_channel" yaml:"notify_channel"`
	SMTPAddr          string         `json:"smtp_addr" yaml:"smtp_addr"`
	SMTPUser          string         `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword      string         `json:"smtp_password" yaml:"smtp_password"`
	MaxUploadSize     int64          `json:"max_upload_size" yaml:"max_upload_size"`
	LogLevel          string         `json:"log_level" yaml:"log_level"`
}

func fromConfig(c *Config) *FileConfig {
	return &FileConfig{
		EndpointAddrGRPC:  c.EndpointAddrGRPC,
		EndpointAddrHTTP:  c.EndpointAddrHTTP,
		BaseURL:           c.BaseURL,
		DatabaseDriver:    c.DatabaseDriver,
		DatabaseDSN:       c.DatabaseDSN,
		SecretKey:         c.SecretKey,
		BlobBackend:       c.BlobBackend,
		StoragePath:       c.StoragePath,
		S3RootUser:        c.S3RootUser,
		S3RootPassword:    c.S3RootPassword,
		S3Bucket:          c.S3Bucket,
		S3Region:          c.S3Region,
		S3BaseEndpoint:    c.S3BaseEndpoint,
		RateLimitBackend:  c.RateLimitBackend,
		RateLimitRequests: c.RateLimitRequests,
		RateLimitWindow:   timex.Duration{Duration: c.RateLimitWindow},
		RedisAddr:         c.RedisAddr,
		RedisPassword:     c.RedisPassword,
		RedisDB:           c.RedisDB,
		NotifyBackend:     c.NotifyBackend,
		NotifyFrom:        c.NotifyFrom,
		NotifyChannel:     c.NotifyChannel,
		SMTPAddr:          c.SMTPAddr,
		SMTPUser:          c.SMTPUser,
		SMTPPassword:      c.SMTPPassword,
		MaxUploadSize:     c.MaxUploadSize,
		LogLevel:          c.LogLevel,
	}
}

func (f *FileConfig) apply(c *Config) {
	c.EndpointAddrGRPC = f.EndpointAddrGRPC
	c.EndpointAddrHTTP = f.EndpointAddrHTTP
	c.BaseURL = f.BaseURL
	c.DatabaseDriver = f.DatabaseDriver
	c.DatabaseDSN = f.DatabaseDSN
	c.SecretKey = f.SecretKey
	c.BlobBackend = f.BlobBackend
	c.StoragePath = f.StoragePath
	c.S3RootUser = f.S3RootUser
	c.S3RootPassword = f.S3RootPassword
	c.S3Bucket = f.S3Bucket
	c.S3Region = f.S3Region
	c.S3BaseEndpoint = f.S3BaseEndpoint
	c.RateLimitBackend = f.RateLimitBackend
	c.RateLimitRequests = f.RateLimitRequests
	c.RateLimitWindow = f.RateLimitWindow.Duration
	c.RedisAddr = f.RedisAddr
	c.RedisPassword = f.RedisPassword
	c.RedisDB = f.RedisDB
	c.NotifyBackend = f.NotifyBackend
	c.NotifyFrom = f.NotifyFrom
	c.NotifyChannel = f.NotifyChannel
	c.SMTPAddr = f.SMTPAddr
	c.SMTPUser = f.SMTPUser
	c.SMTPPassword = f.SMTPPassword
	c.MaxUploadSize = f.MaxUploadSize
	c.LogLevel = f.LogLevel
}

// parseFile overlays the file named by -c/-config onto config. Files ending
// in .yaml or .yml are parsed as YAML, anything else as JSON. If the file
// cannot be read or parsed, the function panics.
func parseFile(config *Config) {

	path := flagx.ConfigFileFlag(os.Args[1:])

	// nothing to load
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := fromConfig(config)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}
