// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

// Package config loads server configuration from defaults, an optional YAML
// file, command-line flags, and the environment, in that precedence order.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// minSigningSecretLength guards against weak HMAC keys.
const minSigningSecretLength = 32

// Config is the full server configuration.
type Config struct {
	HTTPAddr    string `koanf:"http_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	LogFormat   string `koanf:"log_format"`
	DatabaseURL string `koanf:"database_url"`

	Auth  AuthConfig  `koanf:"auth"`
	Redis RedisConfig `koanf:"redis"`
}

// AuthConfig holds the authentication knobs.
type AuthConfig struct {
	SigningSecret     string        `koanf:"signing_secret"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
	AccessTTL         time.Duration `koanf:"access_ttl"`
	RefreshTTL        time.Duration `koanf:"refresh_ttl"`
	LockoutThreshold  int           `koanf:"lockout_threshold"`
	LockoutWindow     time.Duration `koanf:"lockout_window"`
	LockoutFailClosed bool          `koanf:"lockout_fail_closed"`
	ReaperInterval    time.Duration `koanf:"reaper_interval"`
}

// RedisConfig holds the optional Redis backend for the lockout tracker.
// An empty Addr selects the in-memory tracker.
type RedisConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		HTTPAddr:    "127.0.0.1:8080",
		MetricsAddr: "127.0.0.1:9100",
		LogFormat:   "json",
		Auth: AuthConfig{
			Issuer:           "lodgepost",
			Audience:         "lodgepost-api",
			AccessTTL:        10 * time.Minute,
			RefreshTTL:       30 * 24 * time.Hour,
			LockoutThreshold: 5,
			LockoutWindow:    15 * time.Minute,
			ReaperInterval:   time.Hour,
		},
	}
}

// Load builds the configuration. path names an optional YAML file ("" skips
// it); flags, when non-nil, override file values; DATABASE_URL and
// LODGEPOST_SIGNING_SECRET from the environment override everything.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		// Flag names use dashes ("lockout-window"), koanf keys use
		// underscores ("lockout_window").
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	// Secrets come from the environment, never from files or flags.
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}
	if secret := os.Getenv("LODGEPOST_SIGNING_SECRET"); secret != "" {
		cfg.Auth.SigningSecret = secret
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http_addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL is required")
	}
	if len(c.Auth.SigningSecret) < minSigningSecretLength {
		return oops.Code("CONFIG_INVALID").Errorf("auth signing secret must be at least %d bytes", minSigningSecretLength)
	}
	if c.Auth.AccessTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth access_ttl must be positive")
	}
	if c.Auth.RefreshTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth refresh_ttl must be positive")
	}
	if c.Auth.LockoutThreshold <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth lockout_threshold must be positive")
	}
	if c.Auth.LockoutWindow <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth lockout_window must be positive")
	}
	return nil
}
