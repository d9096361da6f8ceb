// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-bridge/internal/config"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		cfg  config.LogConfig
		want zap.AtomicLevel
	}{
		{config.LogConfig{Level: "debug", Format: "json"}, zap.NewAtomicLevelAt(zap.DebugLevel)},
		{config.LogConfig{Level: "warn", Format: "console"}, zap.NewAtomicLevelAt(zap.WarnLevel)},
		{config.LogConfig{Level: "loud"}, zap.NewAtomicLevelAt(zap.InfoLevel)},
	}
	for _, tc := range cases {
		logger, _, err := New(tc.cfg, "arc-bridge", "test")
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(tc.want.Level()), tc.cfg.Level)
		if tc.want.Level() > zap.DebugLevel {
			assert.False(t, logger.Core().Enabled(tc.want.Level()-1), tc.cfg.Level)
		}
	}
}

func TestLevelAdjustable(t *testing.T) {
	logger, level, err := New(config.LogConfig{Level: "error"}, "arc-bridge", "test")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	level.SetLevel(ParseLevel("debug").Level())
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}
