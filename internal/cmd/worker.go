// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/config"
	"github.com/mtreilly/arc-organizer/internal/offline"
	"github.com/mtreilly/arc-organizer/internal/organizer"
)

// cacheNamespace keeps response caches apart from organizer records in the
// shared substrate.
const cacheNamespace = "offline"

// newWorker assembles the offline worker on the repository's substrate.
func newWorker(ctx context.Context, cfg *config.Config, repo *organizer.Repository, log *zap.Logger) (*offline.Worker, error) {
	substrate := repo.Store().KV()
	client := &http.Client{}
	hub := offline.NewHub(32, log)

	caches := offline.NewCacheStorage(substrate, cacheNamespace)
	manager, err := offline.NewCacheManager(cfg.Offline.Manager(), caches, client, log)
	if err != nil {
		return nil, err
	}
	queue, err := offline.OpenWriteQueue(ctx, substrate, client, cfg.Offline.FetchTimeout, hub, log)
	if err != nil {
		return nil, err
	}
	return offline.NewWorker(cfg.Offline.Worker(), manager, queue, hub, log), nil
}
