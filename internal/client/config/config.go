// Package config loads the CLI settings with viper: a YAML file in
// ~/.webxfer or the working directory, WEBXFER_* environment variables,
// and flags bound by the cli package.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyServer  = "server"
	KeyBaseURL = "base_url"
	KeyTimeout = "timeout"
)

// Config holds runtime settings for the webxfer CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the gRPC endpoint.
//   - BaseURL: public URL of the HTTP gateway, used to print share links.
//   - Timeout: deadline for one command.
type Config struct {
	ServerEndpointAddr string
	BaseURL            string
	Timeout            time.Duration
}

// DefaultDirs lists the config search path.
func DefaultDirs() []string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append([]string{filepath.Join(home, ".webxfer")}, dirs...)
	}
	return dirs
}

// NewViper returns a viper instance with defaults and the search path set.
func NewViper(dirs ...string) *viper.Viper {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, d := range dirs {
		v.AddConfigPath(d)
	}

	v.SetEnvPrefix("WEBXFER")
	v.AutomaticEnv()

	v.SetDefault(KeyServer, "127.0.0.1:50051")
	v.SetDefault(KeyBaseURL, "http://localhost:8080")
	v.SetDefault(KeyTimeout, 5*time.Minute)

	return v
}

// Load reads the config file, if any, and returns the merged settings.
// A missing file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return &Config{
		ServerEndpointAddr: v.GetString(KeyServer),
		BaseURL:            v.GetString(KeyBaseURL),
		Timeout:            v.GetDuration(KeyTimeout),
	}, nil
}
