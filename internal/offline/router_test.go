// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package offline

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouterQueueAndSync(t *testing.T) {
	o := newOrigin(t)
	w, _ := newTestWorker(t, o, false)
	r := NewRouter(w, zaptest.NewLogger(t))

	rec := serve(r, http.MethodPost, "/__worker/queue", `{"type":"task"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("action without url: %d", rec.Code)
	}

	body := `{"type":"task","url":"` + o.url("/api/tasks") + `","data":{"title":"Essay"}}`
	rec = serve(r, http.MethodPost, "/__worker/queue", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enqueue: %d %s", rec.Code, rec.Body)
	}

	rec = serve(r, http.MethodGet, "/__worker/queue", "")
	var list struct {
		Count   int      `json:"count"`
		Actions []Action `json:"actions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode queue: %v", err)
	}
	if list.Count != 1 || list.Actions[0].Method != http.MethodPost {
		t.Fatalf("unexpected queue %+v", list)
	}

	rec = serve(r, http.MethodPost, "/__worker/sync?tag=unknown", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("unknown tag: %d", rec.Code)
	}

	rec = serve(r, http.MethodPost, "/__worker/sync", `{"tag":"background-sync"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync: %d %s", rec.Code, rec.Body)
	}
	var report struct {
		Replayed int `json:"replayed"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &report)
	if report.Replayed != 1 {
		t.Fatalf("expected 1 replayed, got %s", rec.Body)
	}
	if o.hitCount("/api/tasks") != 1 {
		t.Fatal("queued action never reached the origin")
	}
}

func TestRouterDequeue(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t)
	w, _ := newTestWorker(t, o, false)
	r := NewRouter(w, zaptest.NewLogger(t))

	id, err := w.Queue().Enqueue(ctx, Action{Type: "note", URL: o.url("/api/notes")})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if rec := serve(r, http.MethodDelete, "/__worker/queue/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
	rec := serve(r, http.MethodDelete, "/__worker/queue/"+strconv.FormatInt(id, 10), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("dequeue: %d", rec.Code)
	}
	if n, _ := w.Queue().Len(ctx); n != 0 {
		t.Fatalf("action still queued")
	}
}

func TestRouterMessage(t *testing.T) {
	o := newOrigin(t)
	w, _ := newTestWorker(t, o, false)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()
	r := NewRouter(w, zaptest.NewLogger(t))

	if rec := serve(r, http.MethodPost, "/__worker/message", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed message: %d", rec.Code)
	}
	rec := serve(r, http.MethodPost, "/__worker/message", `{"type":"SKIP_WAITING"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("message: %d %s", rec.Code, rec.Body)
	}
	if w.State() != StateActive {
		t.Fatalf("expected active, got %s", w.State())
	}
}

func TestRouterProxy(t *testing.T) {
	o := newOrigin(t)
	w, f := newTestWorker(t, o, true)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()
	r := NewRouter(w, zaptest.NewLogger(t))

	rec := serve(r, http.MethodGet, "/app.js", "")
	if rec.Code != http.StatusOK || rec.Header().Get(HeaderSource) != string(FromCache) {
		t.Fatalf("static: %d %s", rec.Code, rec.Header().Get(HeaderSource))
	}
	if rec.Body.String() != "v1:/app.js" {
		t.Fatalf("unexpected body %q", rec.Body)
	}

	rec = serve(r, http.MethodGet, "/api/tasks", "")
	if rec.Header().Get(HeaderSource) != string(FromNetwork) {
		t.Fatalf("excluded request served from %s", rec.Header().Get(HeaderSource))
	}

	f.offline.Store(true)
	rec = serve(r, http.MethodGet, "/api/tasks", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("offline excluded request: %d", rec.Code)
	}
}

func TestRouterEvents(t *testing.T) {
	o := newOrigin(t)
	w, _ := newTestWorker(t, o, false)
	srv := httptest.NewServer(NewRouter(w, zaptest.NewLogger(t)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		for w.Hub().Len() == 0 {
			if ctx.Err() != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		w.Hub().Broadcast(Message{Type: TypeNotification, Message: "sync-complete"})
	}()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/__worker/events", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer resp.Body.Close()
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "data:") {
			if !strings.Contains(line, "sync-complete") {
				t.Fatalf("unexpected event %q", line)
			}
			return
		}
	}
	t.Fatalf("stream ended without an event: %v", sc.Err())
}

func TestRouterNotificationClick(t *testing.T) {
	o := newOrigin(t)
	w, _ := newTestWorker(t, o, false)
	r := NewRouter(w, zaptest.NewLogger(t))
	id, ch := w.Hub().Register()
	defer w.Hub().Unregister(id)

	rec := serve(r, http.MethodPost, "/__worker/notificationclick",
		`{"notification":{"title":"Essay due","data":{"taskId":12}},"action":"view-task"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("notificationclick: %d %s", rec.Code, rec.Body)
	}
	var got struct {
		Target    string `json:"target"`
		Delivered int    `json:"delivered"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Target != "/tasks/12" || got.Delivered != 1 {
		t.Fatalf("unexpected response %+v", got)
	}
	select {
	case msg := <-ch:
		if msg.Type != TypeNavigate || msg.Message != "/tasks/12" {
			t.Fatalf("unexpected message %+v", msg)
		}
	default:
		t.Fatal("client was not told to navigate")
	}

	rec = serve(r, http.MethodPost, "/__worker/notificationclick",
		`{"notification":{"data":{"taskId":12}},"action":"dismiss"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"target":""`) {
		t.Fatalf("dismiss: %d %s", rec.Code, rec.Body)
	}
	select {
	case msg := <-ch:
		t.Fatalf("dismiss broadcast %+v", msg)
	default:
	}

	if rec := serve(r, http.MethodPost, "/__worker/notificationclick", `nope`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed click: %d", rec.Code)
	}
}
