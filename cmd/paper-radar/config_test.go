// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Store.DataDir)
	assert.Equal(t, defaultUserAgent, cfg.Sources.UserAgent)
	assert.Equal(t, 14*24*time.Hour, cfg.Scoring.MaxProfileAge)
}

func TestLoadConfigStalenessCheckCanBeDisabled(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("scoring.max_profile_age", -time.Hour)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, -time.Hour, cfg.Scoring.MaxProfileAge)
}
