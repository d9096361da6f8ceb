// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mtreilly/arc-bridge/internal/cmd"
	"github.com/mtreilly/arc-bridge/internal/config"
	"github.com/mtreilly/arc-bridge/internal/library"
	"github.com/mtreilly/arc-bridge/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ARC_BRIDGE_CONFIG points at a config file; otherwise arc-bridge.yaml is
	// looked up in the usual places.
	cfg, err := config.Load(os.Getenv("ARC_BRIDGE_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "arc-bridge: failed to load config: %v\n", err)
		return 1
	}

	logger, level, err := logging.New(cfg.Log, cfg.Plugin.Name, cfg.Plugin.Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arc-bridge: failed to init logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if cfg.Watch(func(next *config.Config, err error) {
		if err != nil {
			logger.Warn("ignoring invalid config change", zap.Error(err))
			return
		}
		level.SetLevel(logging.ParseLevel(next.Log.Level).Level())
		logger.Info("config reloaded", zap.String("log_level", next.Log.Level))
	}) {
		logger.Debug("watching config", zap.String("file", cfg.File()))
	}

	schema := library.DefaultSchema()
	if cfg.Schema.Path != "" {
		schema, err = library.LoadSchemaFile(cfg.Schema.Path)
		if err != nil {
			logger.Error("failed to load schema", zap.String("path", cfg.Schema.Path), zap.Error(err))
			return 1
		}
	}

	store, err := openStore(cfg, schema, logger)
	if err != nil {
		logger.Error("failed to open store", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
		return 1
	}
	defer store.Close()

	root := cmd.NewRootCmd(cfg, store, logger)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

// openStore selects the storage backend.
// Options: "sql" (relational schema), "kv" (KV store persisted in SQLite),
// "memory" (in-memory only).
func openStore(cfg *config.Config, schema *library.Schema, logger *zap.Logger) (library.RecordStore, error) {
	libraryID := cfg.Host.LibraryID

	switch cfg.Storage.Backend {
	case config.BackendSQL:
		// If SQLite fails (missing, corrupted, permissions), fall back to the
		// in-memory store so the bridge still answers, without persistence.
		sqlStore, err := library.OpenStore(cfg.Storage.Path, schema, libraryID)
		if err != nil {
			logger.Warn("cannot open SQLite database, falling back to in-memory store (no persistence)",
				zap.String("path", cfg.Storage.Path),
				zap.Error(err),
			)
			return library.NewKVStore(library.NewMemoryKV(), schema, libraryID)
		}
		return sqlStore, nil

	case config.BackendKV:
		kv, err := library.OpenSQLiteKV(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open KV SQLite: %w", err)
		}
		kvStore, err := library.NewKVStore(kv, schema, libraryID)
		if err != nil {
			_ = kv.Close()
			return nil, err
		}
		return kvStore, nil

	case config.BackendMemory:
		return library.NewKVStore(library.NewMemoryKV(), schema, libraryID)
	}
	return nil, fmt.Errorf("unknown storage backend %q (choose sql, kv, or memory)", cfg.Storage.Backend)
}
