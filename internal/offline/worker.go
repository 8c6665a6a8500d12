// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/robfig/cron"
	"go.uber.org/zap"
)

// SyncTag is the background sync tag that replays the write queue.
const SyncTag = "background-sync"

// State is the worker lifecycle state.
type State string

const (
	StateInstalling State = "installing"
	StateWaiting    State = "waiting"
	StateActive     State = "active"
)

// WorkerConfig holds the worker settings that are not cache layout.
type WorkerConfig struct {
	Origin            string
	MaxDynamicEntries int
	PruneSchedule     string // cron spec, e.g. "@daily"
	SkipWaiting       bool   // activate as soon as install succeeds
}

// Worker owns the cache manager and the write queue and reacts to messages
// and sync triggers from UI clients.
type Worker struct {
	cfg    WorkerConfig
	caches *CacheManager
	queue  *WriteQueue
	hub    *Hub
	log    *zap.Logger
	cron   *cron.Cron

	mu    sync.RWMutex
	state State
}

// NewWorker wires the worker components together.
func NewWorker(cfg WorkerConfig, caches *CacheManager, queue *WriteQueue, hub *Hub, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxDynamicEntries <= 0 {
		cfg.MaxDynamicEntries = 100
	}
	if cfg.PruneSchedule == "" {
		cfg.PruneSchedule = "@daily"
	}
	return &Worker{
		cfg:    cfg,
		caches: caches,
		queue:  queue,
		hub:    hub,
		log:    log.Named("worker"),
		state:  StateInstalling,
	}
}

func (w *Worker) Caches() *CacheManager { return w.caches }
func (w *Worker) Queue() *WriteQueue    { return w.queue }
func (w *Worker) Hub() *Hub             { return w.hub }

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
	w.log.Info("worker state", zap.String("state", string(s)))
}

// Start precaches the application shell and schedules dynamic cache
// pruning. A failed precache is logged and leaves the worker waiting.
func (w *Worker) Start(ctx context.Context) error {
	w.setState(StateInstalling)
	installed := true
	if err := w.caches.Install(ctx, w.cfg.Origin); err != nil {
		installed = false
		w.log.Error("precache failed", zap.Error(err))
	}
	w.setState(StateWaiting)
	if installed && w.cfg.SkipWaiting {
		if err := w.activate(ctx); err != nil {
			return err
		}
	}

	c := cron.New()
	if err := c.AddFunc(w.cfg.PruneSchedule, func() { w.prune(context.Background()) }); err != nil {
		return fmt.Errorf("schedule prune %q: %w", w.cfg.PruneSchedule, err)
	}
	c.Start()
	w.cron = c
	return nil
}

// Stop halts scheduled work and waits for background refreshes.
func (w *Worker) Stop() {
	if w.cron != nil {
		w.cron.Stop()
	}
	w.caches.Close()
}

func (w *Worker) activate(ctx context.Context) error {
	if err := w.caches.Activate(ctx); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	w.setState(StateActive)
	return nil
}

func (w *Worker) prune(ctx context.Context) {
	if _, err := w.caches.PruneDynamic(ctx, w.cfg.MaxDynamicEntries); err != nil {
		w.log.Error("scheduled prune failed", zap.Error(err))
	}
}

// HandleMessage processes a message posted by a UI client. Unknown types are
// logged and ignored.
func (w *Worker) HandleMessage(ctx context.Context, msg Message) error {
	switch msg.Type {
	case TypeSkipWaiting:
		if w.State() != StateWaiting {
			return nil
		}
		return w.activate(ctx)
	case TypeCacheURLs:
		urls, ok := stringSlice(msg.Data)
		if !ok {
			w.log.Warn("CACHE_URLS without a url list")
			return nil
		}
		return w.caches.CacheURLs(ctx, w.caches.cfg.DynamicCache, absolute(w.cfg.Origin, urls))
	case TypeClearCache:
		if err := w.caches.ClearAll(ctx); err != nil {
			return fmt.Errorf("clear caches: %w", err)
		}
		w.log.Info("all caches cleared")
		return nil
	default:
		w.log.Warn("unknown message type", zap.String("type", msg.Type))
		return nil
	}
}

// Sync handles a background sync trigger. Only SyncTag replays the queue.
func (w *Worker) Sync(ctx context.Context, tag string) (*ReplayReport, error) {
	if tag != SyncTag {
		w.log.Warn("unknown sync tag", zap.String("tag", tag))
		return nil, nil
	}
	report := w.queue.Replay(ctx)
	return &report, nil
}

// originURL resolves a request URI against the configured origin.
func (w *Worker) originURL(requestURI string) (*url.URL, error) {
	base, err := url.Parse(w.cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("origin %q: %w", w.cfg.Origin, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("origin %q is not an absolute url", w.cfg.Origin)
	}
	ref, err := url.Parse(requestURI)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(ref), nil
}

func stringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	case json.RawMessage:
		var out []string
		if err := json.Unmarshal(s, &out); err != nil {
			return nil, false
		}
		return out, true
	}
	return nil, false
}
