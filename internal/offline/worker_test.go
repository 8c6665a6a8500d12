// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package offline

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mtreilly/arc-organizer/internal/kv"
)

func newTestWorker(t *testing.T, o *origin, skipWaiting bool) (*Worker, *switchFetcher) {
	t.Helper()
	log := zaptest.NewLogger(t)
	store := kv.NewMemoryStore()
	f := &switchFetcher{next: o.srv.Client()}
	hub := NewHub(8, log)
	m, err := NewCacheManager(testManagerConfig(), NewCacheStorage(store, "test"), f, log)
	if err != nil {
		t.Fatalf("NewCacheManager: %v", err)
	}
	q, err := OpenWriteQueue(context.Background(), store, f, 5*time.Second, hub, log)
	if err != nil {
		t.Fatalf("OpenWriteQueue: %v", err)
	}
	w := NewWorker(WorkerConfig{Origin: o.srv.URL, SkipWaiting: skipWaiting}, m, q, hub, log)
	return w, f
}

func TestWorkerLifecycle(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t)
	w, _ := newTestWorker(t, o, false)
	if w.State() != StateInstalling {
		t.Fatalf("new worker in state %s", w.State())
	}

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()
	if w.State() != StateWaiting {
		t.Fatalf("expected waiting, got %s", w.State())
	}

	if err := w.HandleMessage(ctx, Message{Type: TypeSkipWaiting}); err != nil {
		t.Fatalf("SKIP_WAITING: %v", err)
	}
	if w.State() != StateActive {
		t.Fatalf("expected active, got %s", w.State())
	}
	// a second skip is a no-op
	if err := w.HandleMessage(ctx, Message{Type: TypeSkipWaiting}); err != nil {
		t.Fatalf("second SKIP_WAITING: %v", err)
	}
}

func TestWorkerSkipWaitingOnStart(t *testing.T) {
	o := newOrigin(t)
	w, _ := newTestWorker(t, o, true)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()
	if w.State() != StateActive {
		t.Fatalf("expected active, got %s", w.State())
	}
}

func TestWorkerInstallFailureLeavesWaiting(t *testing.T) {
	o := newOrigin(t)
	o.fail("/index.html", http.StatusServiceUnavailable)
	w, _ := newTestWorker(t, o, true)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()
	if w.State() != StateWaiting {
		t.Fatalf("expected waiting after failed install, got %s", w.State())
	}
}

func TestWorkerMessages(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t)
	w, _ := newTestWorker(t, o, false)

	if err := w.HandleMessage(ctx, Message{Type: "REFRESH_EVERYTHING"}); err != nil {
		t.Fatalf("unknown message returned %v", err)
	}

	urls := []any{"/img/a.png", "/img/b.png"}
	if err := w.HandleMessage(ctx, Message{Type: TypeCacheURLs, Data: urls}); err != nil {
		t.Fatalf("CACHE_URLS: %v", err)
	}
	keys, _ := w.Caches().Caches().Keys(ctx, "dynamic-v1")
	if len(keys) != 2 {
		t.Fatalf("expected 2 cached urls, got %v", keys)
	}

	if err := w.HandleMessage(ctx, Message{Type: TypeClearCache}); err != nil {
		t.Fatalf("CLEAR_CACHE: %v", err)
	}
	names, _ := w.Caches().Caches().Names(ctx)
	if len(names) != 0 {
		t.Fatalf("caches left after clear: %v", names)
	}
}

func TestWorkerSync(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t)
	w, _ := newTestWorker(t, o, false)
	if _, err := w.Queue().Enqueue(ctx, Action{Type: "task", URL: o.url("/api/tasks")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	report, err := w.Sync(ctx, "other-tag")
	if err != nil || report != nil {
		t.Fatalf("unknown tag: %v %v", report, err)
	}
	if n, _ := w.Queue().Len(ctx); n != 1 {
		t.Fatalf("unknown tag replayed the queue")
	}

	report, err = w.Sync(ctx, SyncTag)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if report.Replayed != 1 {
		t.Fatalf("expected 1 replayed, got %+v", report)
	}
}
