// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package offline

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/organizer"
)

// HeaderSource is set on proxied responses to tell where they came from.
const HeaderSource = "X-Cache"

// NewRouter exposes the worker over HTTP. Control endpoints live under
// /__worker; every other request is intercepted by the cache manager and
// forwarded to origin when it has to reach the network.
func NewRouter(w *Worker, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{w: w, log: log.Named("http")}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(h.log))

	ctl := r.Group("/__worker")
	{
		ctl.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "state": w.State()})
		})
		ctl.POST("/message", h.message)
		ctl.POST("/sync", h.sync)
		ctl.GET("/queue", h.listQueue)
		ctl.POST("/queue", h.enqueue)
		ctl.DELETE("/queue/:id", h.dequeue)
		ctl.GET("/events", h.events)
		ctl.POST("/notificationclick", h.notificationClick)
	}

	r.NoRoute(h.proxy)
	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

type handler struct {
	w   *Worker
	log *zap.Logger
}

func (h *handler) message(c *gin.Context) {
	var msg Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.w.HandleMessage(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.w.State()})
}

type syncRequest struct {
	Tag string `json:"tag"`
}

func (h *handler) sync(c *gin.Context) {
	var body syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	tag := body.Tag
	if tag == "" {
		tag = c.DefaultQuery("tag", SyncTag)
	}
	report, err := h.w.Sync(c.Request.Context(), tag)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if report == nil {
		c.JSON(http.StatusAccepted, gin.H{"tag": tag, "ignored": true})
		return
	}
	resp := gin.H{"tag": tag, "replayed": report.Replayed, "failed": report.Failed}
	if report.Err != nil {
		resp["error"] = report.Err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

type notificationClick struct {
	Notification organizer.PushPayload `json:"notification"`
	Action       string                `json:"action"`
}

// notificationClick resolves the view a clicked notification opens and asks
// connected clients to navigate there.
func (h *handler) notificationClick(c *gin.Context) {
	var body notificationClick
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target := organizer.NotificationTarget(body.Notification, body.Action)
	if target == "" {
		c.JSON(http.StatusOK, gin.H{"target": "", "delivered": 0})
		return
	}
	n := h.w.Hub().Broadcast(Message{Type: TypeNavigate, Message: target})
	c.JSON(http.StatusOK, gin.H{"target": target, "delivered": n})
}

func (h *handler) listQueue(c *gin.Context) {
	actions, err := h.w.Queue().Pending(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions, "count": len(actions)})
}

func (h *handler) enqueue(c *gin.Context) {
	var a Action
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.w.Queue().Enqueue(c.Request.Context(), a)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *handler) dequeue(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.w.Queue().Remove(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// events streams hub broadcasts to one UI client as server-sent events.
func (h *handler) events(c *gin.Context) {
	id, ch := h.w.Hub().Register()
	defer h.w.Hub().Unregister(id)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(out io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			data, err := json.Marshal(msg)
			if err != nil {
				h.log.Warn("event not encoded", zap.Error(err))
				return true
			}
			c.SSEvent("message", string(data))
			return true
		}
	})
}

// proxy serves every non-control request through the cache manager once the
// worker is active, and straight from the network before that.
func (h *handler) proxy(c *gin.Context) {
	req := c.Request.Clone(c.Request.Context())
	if !req.URL.IsAbs() {
		target, err := h.w.originURL(req.URL.RequestURI())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		req.URL = target
	}

	var (
		resp *Response
		src  Source
		err  error
	)
	if h.w.State() == StateActive {
		resp, src, err = h.w.Caches().Handle(req.Context(), req)
	} else {
		resp, err = h.w.Caches().fetch(req.Context(), req)
		src = FromNetwork
	}
	if err != nil {
		h.log.Warn("upstream unavailable", zap.String("url", req.URL.String()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	for k, vals := range resp.Header {
		for _, v := range vals {
			c.Writer.Header().Add(k, v)
		}
	}
	c.Header(HeaderSource, string(src))
	c.Status(resp.Status)
	_, _ = c.Writer.Write(resp.Body)
}
