// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/cmd"
	"github.com/mtreilly/arc-organizer/internal/config"
	"github.com/mtreilly/arc-organizer/internal/kv"
	"github.com/mtreilly/arc-organizer/internal/logging"
	"github.com/mtreilly/arc-organizer/internal/organizer"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Getenv("ARC_ORGANIZER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "arc-organizer: failed to load config: %v\n", err)
		return 1
	}

	log, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arc-organizer: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	substrate, err := openSubstrate(cfg.Storage, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arc-organizer: %v\n", err)
		return 1
	}
	defer substrate.Close()

	ctx := context.Background()
	repo, err := organizer.Open(ctx, substrate, log, organizer.WithQuota(cfg.Storage.QuotaBytes))
	if err != nil {
		fmt.Fprintf(os.Stderr, "arc-organizer: failed to open organizer: %v\n", err)
		return 1
	}

	root := cmd.NewRootCmd(cfg, repo, log)
	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// openSubstrate selects the storage backend.
//
//	sql     SQLite file; falls back to memory if it cannot be opened
//	kv      SQLite file; fails if it cannot be opened
//	memory  in-memory only, nothing persists
//	redis   Redis server; falls back to memory if unreachable
func openSubstrate(cfg config.StorageConfig, log *zap.Logger) (kv.Store, error) {
	switch cfg.Backend {
	case "sql":
		// If SQLite fails (missing, corrupted, permissions), fall back to the
		// in-memory store so the tool stays usable without persistence.
		store, err := kv.OpenSQLiteStore(cfg.Path)
		if err != nil {
			warnFallback("cannot open SQLite database", err)
			log.Warn("sqlite unavailable, using memory store", zap.Error(err))
			return kv.NewMemoryStore(), nil
		}
		return store, nil

	case "kv":
		store, err := kv.OpenSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open KV SQLite: %w", err)
		}
		return store, nil

	case "memory":
		return kv.NewMemoryStore(), nil

	case "redis":
		store, err := kv.OpenRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			warnFallback("cannot reach Redis at "+cfg.Redis.Addr, err)
			log.Warn("redis unavailable, using memory store", zap.Error(err))
			return kv.NewMemoryStore(), nil
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q (choose sql, kv, memory or redis)", cfg.Backend)
}

func warnFallback(what string, err error) {
	fmt.Fprintf(os.Stderr, "WARNING: %s: %v\n", what, err)
	fmt.Fprintln(os.Stderr, "         falling back to in-memory store (no persistence)")
}
