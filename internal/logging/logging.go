// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

// Package logging builds the zap logger shared by the server and CLI.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mtreilly/arc-bridge/internal/config"
)

// New returns a JSON production logger for format "json" and a console
// development logger otherwise. Unparseable levels fall back to info.
// The returned level can be changed while the logger is in use.
func New(cfg config.LogConfig, service, version string) (*zap.Logger, zap.AtomicLevel, error) {
	var zapConfig zap.Config
	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := ParseLevel(cfg.Level)
	zapConfig.Level = level
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.InitialFields = map[string]interface{}{
		"service": service,
		"version": version,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, level, err
	}
	return logger, level, nil
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(name string) zap.AtomicLevel {
	level, err := zap.ParseAtomicLevel(name)
	if err != nil {
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return level
}
