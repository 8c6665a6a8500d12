// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/kv"
	"github.com/mtreilly/arc-organizer/internal/records"
)

const actionsCollection = "actions"

// QueueSchema is the record schema of the write queue.
func QueueSchema() records.Schema {
	return records.Schema{
		Name:    "offline",
		Version: 1,
		Collections: []records.Collection{{
			Name:          actionsCollection,
			KeyPath:       "id",
			AutoIncrement: true,
			Indexes:       []records.Index{{Name: "type", Field: "type"}},
		}},
	}
}

// Action is a write that could not reach the network.
type Action struct {
	ID        int64           `json:"id,omitempty"`
	Type      string          `json:"type"`
	URL       string          `json:"url"`
	Method    string          `json:"method"`
	Data      json.RawMessage `json:"data,omitempty"`
	QueuedAt  time.Time       `json:"queuedAt"`
	Attempts  int             `json:"attempts,omitempty"`
	LastError string          `json:"lastError,omitempty"`
}

// ReplayReport summarizes one replay pass.
type ReplayReport struct {
	Replayed int     `json:"replayed"`
	Failed   []int64 `json:"failed,omitempty"`
	Err      error   `json:"-"`
}

// WriteQueue durably stores actions and replays them in arrival order.
type WriteQueue struct {
	store   *records.Store
	fetcher Fetcher
	timeout time.Duration
	hub     *Hub
	log     *zap.Logger
	replay  sync.Mutex
}

// OpenWriteQueue opens the queue schema on the substrate. hub may be nil.
func OpenWriteQueue(ctx context.Context, substrate kv.Store, fetcher Fetcher, timeout time.Duration, hub *Hub, log *zap.Logger) (*WriteQueue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	store, err := records.Open(ctx, substrate, QueueSchema(), log)
	if err != nil {
		return nil, fmt.Errorf("open write queue: %w", err)
	}
	return &WriteQueue{
		store:   store,
		fetcher: fetcher,
		timeout: timeout,
		hub:     hub,
		log:     log.Named("queue"),
	}, nil
}

// Enqueue stores a, defaulting the method to POST, and returns its id.
func (q *WriteQueue) Enqueue(ctx context.Context, a Action) (int64, error) {
	if a.URL == "" {
		return 0, fmt.Errorf("enqueue: action has no url")
	}
	if a.Method == "" {
		a.Method = http.MethodPost
	}
	a.Method = strings.ToUpper(a.Method)
	a.ID = 0
	if a.QueuedAt.IsZero() {
		a.QueuedAt = time.Now().UTC()
	}
	rec, err := records.Encode(a)
	if err != nil {
		return 0, err
	}
	id, err := q.store.Add(ctx, actionsCollection, rec)
	if err != nil {
		return 0, fmt.Errorf("enqueue: %w", err)
	}
	q.log.Debug("action queued",
		zap.Int64("id", id),
		zap.String("type", a.Type),
		zap.String("url", a.URL),
	)
	return id, nil
}

// Pending returns the queued actions in arrival order.
func (q *WriteQueue) Pending(ctx context.Context) ([]Action, error) {
	recs, err := q.store.GetAll(ctx, actionsCollection)
	if err != nil {
		return nil, fmt.Errorf("pending actions: %w", err)
	}
	out := make([]Action, 0, len(recs))
	for _, rec := range recs {
		var a Action
		if err := records.Decode(rec, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Len returns the number of queued actions.
func (q *WriteQueue) Len(ctx context.Context) (int, error) {
	return q.store.Count(ctx, actionsCollection)
}

// Remove drops a queued action. Removing an unknown id does nothing.
func (q *WriteQueue) Remove(ctx context.Context, id int64) error {
	return q.store.Delete(ctx, actionsCollection, id)
}

// Replay sends every queued action once, in arrival order. Each action is
// removed right after it succeeds; failed actions stay queued with their
// attempt count bumped. All UI clients are notified when the pass ends.
func (q *WriteQueue) Replay(ctx context.Context) ReplayReport {
	q.replay.Lock()
	defer q.replay.Unlock()

	var report ReplayReport
	actions, err := q.Pending(ctx)
	if err != nil {
		report.Err = err
		q.log.Error("replay aborted", zap.Error(err))
		return report
	}

	for _, a := range actions {
		if err := q.send(ctx, a); err != nil {
			q.log.Warn("action replay failed",
				zap.Int64("id", a.ID),
				zap.String("url", a.URL),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, a.ID)
			report.Err = multierr.Append(report.Err, err)
			q.markFailed(ctx, a, err)
			continue
		}
		if err := q.Remove(ctx, a.ID); err != nil {
			q.log.Error("replayed action not removed", zap.Int64("id", a.ID), zap.Error(err))
			report.Failed = append(report.Failed, a.ID)
			report.Err = multierr.Append(report.Err, err)
			continue
		}
		report.Replayed++
	}

	q.log.Info("replay finished",
		zap.Int("replayed", report.Replayed),
		zap.Int("failed", len(report.Failed)),
	)
	if q.hub != nil {
		q.hub.Broadcast(Message{Type: TypeNotification, Message: "sync-complete", Data: report})
	}
	return report
}

func (q *WriteQueue) send(ctx context.Context, a Action) error {
	payload := []byte(a.Data)
	if len(payload) == 0 {
		payload = []byte("null")
	}
	req, err := newJSONRequest(ctx, a.Method, a.URL, payload)
	if err != nil {
		return err
	}
	resp, err := fetch(ctx, q.fetcher, q.timeout, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &NetworkFault{URL: a.URL, Status: resp.Status}
	}
	return nil
}

func (q *WriteQueue) markFailed(ctx context.Context, a Action, cause error) {
	a.Attempts++
	a.LastError = cause.Error()
	rec, err := records.Encode(a)
	if err != nil {
		return
	}
	if err := q.store.Put(ctx, actionsCollection, rec); err != nil {
		q.log.Warn("attempt count not saved", zap.Int64("id", a.ID), zap.Error(err))
	}
}
