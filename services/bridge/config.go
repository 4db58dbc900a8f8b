// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bridge

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// secretKeyFile is the Docker secret fallback for SDE_API_KEY. A var so
// tests can point it at a temp file.
var secretKeyFile = "/run/secrets/sde_api_key"

// Config holds the bridge service configuration, read from the environment.
//
// SDE_API_KEY may alternatively be provided via the Docker secret file
// /run/secrets/sde_api_key; the sdeapi client handles that fallback.
type Config struct {
	// SDEHost is the SD Elements base URL, e.g. https://sde.example.com.
	SDEHost string `validate:"required,url"`

	// SDEAPIKey authenticates against the SD Elements API.
	SDEAPIKey string `validate:"required"`

	// Port is the HTTP listen port.
	Port int `validate:"gte=1,lte=65535"`

	// Timeout bounds every outbound SD Elements request.
	Timeout time.Duration `validate:"gt=0"`

	// CatalogCacheDir is the BadgerDB directory for the catalog snapshot.
	// Empty disables persistence; the cache then always cold-starts.
	CatalogCacheDir string

	// CatalogRefreshInterval is the period of the background catalog
	// refresh. Zero disables background refresh.
	CatalogRefreshInterval time.Duration `validate:"gte=0"`
}

const (
	defaultPort            = 8085
	defaultTimeoutSeconds  = 30
	defaultRefreshInterval = time.Hour
)

// LoadConfigFromEnv builds a Config from environment variables and validates
// it. Missing optional values fall back to defaults; a missing SDE_HOST or
// SDE_API_KEY is a hard error.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		SDEHost:                os.Getenv("SDE_HOST"),
		SDEAPIKey:              os.Getenv("SDE_API_KEY"),
		Port:                   defaultPort,
		Timeout:                defaultTimeoutSeconds * time.Second,
		CatalogCacheDir:        os.Getenv("CATALOG_CACHE_DIR"),
		CatalogRefreshInterval: defaultRefreshInterval,
	}

	if cfg.SDEAPIKey == "" {
		// Secret files end in a newline more often than not; an untrimmed
		// key makes every Authorization header invalid.
		if data, err := os.ReadFile(secretKeyFile); err == nil {
			cfg.SDEAPIKey = strings.TrimSpace(string(data))
		}
	}

	if v := os.Getenv("SDEBRIDGE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("bridge: invalid SDEBRIDGE_PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("SDE_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("bridge: invalid SDE_TIMEOUT_SECONDS %q: %w", v, err)
		}
		cfg.Timeout = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("CATALOG_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("bridge: invalid CATALOG_REFRESH_INTERVAL %q: %w", v, err)
		}
		cfg.CatalogRefreshInterval = d
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("bridge: invalid configuration: %w", err)
	}
	return cfg, nil
}
