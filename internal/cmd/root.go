// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-bridge/internal/bridge"
	"github.com/mtreilly/arc-bridge/internal/config"
	"github.com/mtreilly/arc-bridge/internal/library"
)

// NewRootCmd creates the root command for arc-bridge. A nil logger discards output.
func NewRootCmd(cfg *config.Config, store library.RecordStore, logger *zap.Logger) *cobra.Command {
	if logger == nil {
		logger = zap.NewNop()
	}

	root := &cobra.Command{
		Use:   "arc-bridge",
		Short: "Local HTTP bridge to a bibliographic record store",
		Long: `Serve and query a bibliographic library over a local JSON API.

arc-bridge provides tools to:
- Serve /ping, /items, /item and /search on localhost
- List the item types and fields the library accepts
- Create and inspect collections
- Run condition searches from the terminal`,
		SilenceUsage: true,
	}

	svc := newService(cfg, store, logger)

	root.AddCommand(newServeCmd(cfg, svc, logger))
	root.AddCommand(newTypesCmd(store))
	root.AddCommand(newCollectionCmd(store))
	root.AddCommand(newItemCmd(svc))
	root.AddCommand(newSearchCmd(svc))

	return root
}

func newService(cfg *config.Config, store library.RecordStore, logger *zap.Logger) *bridge.Service {
	info := bridge.HostInfo{
		Plugin:      cfg.Plugin.Name,
		Version:     cfg.Plugin.Version,
		HostVersion: cfg.Host.Version,
		LibraryID:   cfg.Host.LibraryID,
	}
	return bridge.New(store, info, logger, cfg.Search.DefaultLimit)
}
