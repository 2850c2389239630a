// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-radar/internal/store"
	"github.com/pdiddy/paper-radar/pkg/types"
)

const defaultUserAgent = "paper-radar/0.1"

// loadConfig decodes the viper configuration into RadarConfig, fills
// defaults and injects API keys from .secrets/.
func loadConfig() (types.RadarConfig, error) {
	var cfg types.RadarConfig
	err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})
	if err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = "data"
	}
	if cfg.Library.UserAgent == "" {
		cfg.Library.UserAgent = defaultUserAgent
	}
	if cfg.Embedding.UserAgent == "" {
		cfg.Embedding.UserAgent = defaultUserAgent
	}
	if cfg.Sources.UserAgent == "" {
		cfg.Sources.UserAgent = defaultUserAgent
	}
	if cfg.Scoring.MaxProfileAge == 0 {
		cfg.Scoring.MaxProfileAge = 14 * 24 * time.Hour
	}

	cfg.Library.APIKey = secretDefault("zotero-api-key", cfg.Library.APIKey)
	cfg.Embedding.APIKey = secretDefault("embedding-api-key", cfg.Embedding.APIKey)
	cfg.Sources.Altmetric.APIKey = secretDefault("altmetric-api-key", cfg.Sources.Altmetric.APIKey)

	return cfg, nil
}

// openStore opens the profile store under the configured data directory.
func openStore(cfg types.RadarConfig) (*store.Store, error) {
	return store.Open(cfg.Store)
}

func newHTTPClient(cfg types.HTTPConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
