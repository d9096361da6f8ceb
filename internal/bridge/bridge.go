// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

// Package bridge translates JSON requests into calls against a library.RecordStore.
//
// It owns the wire representation of items, request validation and the
// create/get/update/delete and search flows. It keeps no state between calls;
// the record store is the only persistent state.
package bridge

import (
	"time"

	"github.com/mtreilly/arc-bridge/internal/library"
	"go.uber.org/zap"
)

// DefaultSearchLimit caps search results when a request does not set a limit.
const DefaultSearchLimit = 100

// HostInfo describes the running bridge for /ping.
type HostInfo struct {
	Plugin      string
	Version     string
	HostVersion string
	LibraryID   int64
}

// Service implements the bridge operations over a record store.
type Service struct {
	store        library.RecordStore
	info         HostInfo
	logger       *zap.Logger
	defaultLimit int

	// now is overridable in tests.
	now func() time.Time
}

// New creates a Service. A nil logger discards output and a non-positive
// defaultLimit falls back to DefaultSearchLimit.
func New(store library.RecordStore, info HostInfo, logger *zap.Logger, defaultLimit int) *Service {
	if store == nil {
		panic("bridge.New: store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultSearchLimit
	}
	return &Service{
		store:        store,
		info:         info,
		logger:       logger,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// PingResponse is the /ping payload.
type PingResponse struct {
	Status      string `json:"status"`
	Plugin      string `json:"plugin"`
	Version     string `json:"version"`
	HostVersion string `json:"hostVersion"`
	Timestamp   string `json:"timestamp"`
	LibraryID   int64  `json:"libraryID"`
}

// Ping reports that the bridge is up.
func (s *Service) Ping() PingResponse {
	return PingResponse{
		Status:      "ok",
		Plugin:      s.info.Plugin,
		Version:     s.info.Version,
		HostVersion: s.info.HostVersion,
		Timestamp:   s.now().UTC().Format(time.RFC3339),
		LibraryID:   s.info.LibraryID,
	}
}
