package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/gntpd/internal/server"
)

// ServiceConfig is the full daemon configuration.
type ServiceConfig struct {
	Listener server.Config

	AdminAddr   string
	CorsOrigins []string

	Passwords []string

	// CacheDir enables the disk-backed resource store; empty means
	// resources are drained and discarded.
	CacheDir string
}

// DefaultServiceConfig listens on the standard GNTP port with no
// passwords, no admin surface, and discard-after-read resources.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Listener: server.Config{
			Addr:        ":23053",
			ReadTimeout: 30 * time.Second,
		},
	}
}

// gntpd config.toml key mapping.
type fileConfig struct {
	ListenAddr  string   `toml:"listen_addr"`
	ReadTimeout string   `toml:"read_timeout"`
	AdminAddr   string   `toml:"admin_addr"`
	CorsOrigins []string `toml:"cors_origins"`
	Passwords   []string `toml:"passwords"`
	CacheDir    string   `toml:"cache_dir"`
}

// loadServiceConfig overlays config.toml keys onto the defaults.
func loadServiceConfig(path string) (ServiceConfig, error) {
	cfg := DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ServiceConfig{}, fmt.Errorf("load gntpd config: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		addr := strings.TrimSpace(raw.ListenAddr)
		if addr != "" {
			cfg.Listener.Addr = addr
		}
	}

	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return ServiceConfig{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.Listener.ReadTimeout = d
	}

	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}

	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}

	if meta.IsDefined("passwords") {
		cfg.Passwords = normalizeList(raw.Passwords)
	}

	if meta.IsDefined("cache_dir") {
		cfg.CacheDir = strings.TrimSpace(raw.CacheDir)
	}

	return cfg, nil
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, item := range in {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
