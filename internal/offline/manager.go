// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

// Package offline implements the background worker side of the organizer:
// a two tier response cache with per-request strategies, a durable queue of
// writes made while offline, and the message channel to UI clients.
package offline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Class is how a request is treated by the cache manager.
type Class int

const (
	ClassBypass      Class = iota // not a GET, never intercepted
	ClassExcluded                 // matched an exclusion pattern
	ClassStatic                   // application shell, cache first
	ClassDynamic                  // matched a dynamic pattern, network first
	ClassPassthrough              // network only
)

func (c Class) String() string {
	switch c {
	case ClassBypass:
		return "bypass"
	case ClassExcluded:
		return "excluded"
	case ClassStatic:
		return "static"
	case ClassDynamic:
		return "dynamic"
	case ClassPassthrough:
		return "passthrough"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Source tells where a served response came from.
type Source string

const (
	FromNetwork Source = "network"
	FromCache   Source = "cache"
)

// Fetcher performs network requests. *http.Client satisfies it.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// NetworkFault is a failed fetch: a transport error, or a non-2xx status
// where the caller required success.
type NetworkFault struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkFault) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("network fault: %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("network fault: %s: %v", e.URL, e.Err)
}

func (e *NetworkFault) Unwrap() error { return e.Err }

// Default cache layout of the application shell.
var (
	DefaultStaticFiles = []string{
		"/", "/index.html", "/styles.css", "/app.js", "/database.js",
		"/notifications.js", "/components.js", "/advanced-features.js",
		"/manifest.json", "/icon.svg",
		"/icon-72.png", "/icon-96.png", "/icon-128.png", "/icon-144.png",
		"/icon-152.png", "/icon-192.png", "/icon-384.png", "/icon-512.png",
	}
	DefaultDynamicPatterns = []string{
		`^https://fonts\.googleapis\.com`,
		`^https://fonts\.gstatic\.com`,
		`\.(?:png|jpg|jpeg|svg|gif|webp)$`,
		`\.(?:css|js)$`,
	}
	DefaultExcludePatterns = []string{
		`/api/`,
		`/admin/`,
		`\?.*nocache`,
	}
)

// ManagerConfig describes the caches and request classes.
type ManagerConfig struct {
	StaticCache         string
	DynamicCache        string
	Shell               string // navigation fallback, e.g. /index.html
	StaticFiles         []string
	DynamicPatterns     []string
	ExcludePatterns     []string
	FetchTimeout        time.Duration
	PrecacheConcurrency int
}

// CacheManager applies the caching strategy for each intercepted request.
type CacheManager struct {
	cfg      ManagerConfig
	caches   *CacheStorage
	fetcher  Fetcher
	static   map[string]bool
	dynamic  []*regexp.Regexp
	exclude  []*regexp.Regexp
	log      *zap.Logger
	inflight sync.WaitGroup
	bgCtx    context.Context
	bgCancel context.CancelFunc
}

// NewCacheManager compiles the pattern sets of cfg.
func NewCacheManager(cfg ManagerConfig, caches *CacheStorage, fetcher Fetcher, log *zap.Logger) (*CacheManager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Shell == "" {
		cfg.Shell = "/index.html"
	}
	if cfg.PrecacheConcurrency <= 0 {
		cfg.PrecacheConcurrency = 4
	}
	dynamic, err := compileAll(cfg.DynamicPatterns)
	if err != nil {
		return nil, fmt.Errorf("dynamic patterns: %w", err)
	}
	exclude, err := compileAll(cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	static := make(map[string]bool, len(cfg.StaticFiles))
	for _, p := range cfg.StaticFiles {
		static[p] = true
	}
	bgCtx, cancel := context.WithCancel(context.Background())
	return &CacheManager{
		cfg:      cfg,
		caches:   caches,
		fetcher:  fetcher,
		static:   static,
		dynamic:  dynamic,
		exclude:  exclude,
		log:      log.Named("cache"),
		bgCtx:    bgCtx,
		bgCancel: cancel,
	}, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Caches exposes the underlying storage.
func (m *CacheManager) Caches() *CacheStorage { return m.caches }

// Classify decides how req is handled. Exclusions are tested against the
// path and query, dynamic patterns against the full URL.
func (m *CacheManager) Classify(req *http.Request) Class {
	if req.Method != http.MethodGet {
		return ClassBypass
	}
	u := req.URL
	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	for _, re := range m.exclude {
		if re.MatchString(target) {
			return ClassExcluded
		}
	}
	if m.static[u.Path] || u.Path == "/" {
		return ClassStatic
	}
	for _, re := range m.dynamic {
		if re.MatchString(u.String()) {
			return ClassDynamic
		}
	}
	return ClassPassthrough
}

// Handle serves req according to its class. Bypassed and excluded requests
// go straight to the network. Navigation requests that fail entirely fall
// back to the cached shell.
func (m *CacheManager) Handle(ctx context.Context, req *http.Request) (*Response, Source, error) {
	class := m.Classify(req)
	var (
		resp *Response
		src  Source
		err  error
	)
	switch class {
	case ClassStatic:
		resp, src, err = m.cacheFirst(ctx, req)
	case ClassDynamic:
		resp, src, err = m.networkFirst(ctx, req)
	default:
		resp, err = m.fetch(ctx, req)
		src = FromNetwork
	}
	if err == nil {
		return resp, src, nil
	}
	if class != ClassBypass && class != ClassExcluded && isNavigation(req) {
		shell, cerr := m.caches.MatchAny(ctx, m.resolve(req, m.cfg.Shell))
		if cerr == nil && shell != nil {
			m.log.Debug("navigation served from shell", zap.String("url", req.URL.String()))
			return shell, FromCache, nil
		}
	}
	return nil, "", err
}

func (m *CacheManager) cacheFirst(ctx context.Context, req *http.Request) (*Response, Source, error) {
	key := req.URL.String()
	cached, err := m.caches.MatchAny(ctx, key)
	if err != nil {
		m.log.Warn("cache lookup failed", zap.String("url", key), zap.Error(err))
	}
	if cached != nil {
		m.refreshInBackground(req)
		return cached, FromCache, nil
	}

	resp, ferr := m.fetch(ctx, req)
	if ferr == nil {
		if resp.OK() {
			m.store(ctx, m.cfg.StaticCache, resp)
		}
		return resp, FromNetwork, nil
	}
	if cached, _ := m.caches.MatchAny(ctx, key); cached != nil {
		return cached, FromCache, nil
	}
	return nil, "", ferr
}

func (m *CacheManager) networkFirst(ctx context.Context, req *http.Request) (*Response, Source, error) {
	resp, err := m.fetch(ctx, req)
	if err == nil {
		if resp.OK() {
			m.store(ctx, m.cfg.DynamicCache, resp)
		}
		return resp, FromNetwork, nil
	}
	cached, cerr := m.caches.MatchAny(ctx, req.URL.String())
	if cerr == nil && cached != nil {
		return cached, FromCache, nil
	}
	return nil, "", err
}

// refreshInBackground refetches a static entry without holding up the
// caller. Failures are only logged.
func (m *CacheManager) refreshInBackground(req *http.Request) {
	bg := req.Clone(m.bgCtx)
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		resp, err := m.fetch(m.bgCtx, bg)
		if err != nil {
			m.log.Warn("background refresh failed", zap.String("url", bg.URL.String()), zap.Error(err))
			return
		}
		if resp.OK() {
			m.store(m.bgCtx, m.cfg.StaticCache, resp)
		}
	}()
}

func (m *CacheManager) store(ctx context.Context, cache string, resp *Response) {
	if err := m.caches.Put(ctx, cache, resp); err != nil {
		m.log.Warn("cache put failed",
			zap.String("cache", cache),
			zap.String("url", resp.URL),
			zap.Error(err),
		)
	}
}

// fetch performs req and buffers the response. Only transport failures are
// errors; any status is returned as a response.
func (m *CacheManager) fetch(ctx context.Context, req *http.Request) (*Response, error) {
	return fetch(ctx, m.fetcher, m.cfg.FetchTimeout, req)
}

func fetch(ctx context.Context, f Fetcher, timeout time.Duration, req *http.Request) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	out := req.Clone(ctx)
	out.RequestURI = ""
	out.Host = ""
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			out.Body = body
		}
	}
	hr, err := f.Do(out)
	if err != nil {
		return nil, &NetworkFault{URL: req.URL.String(), Err: err}
	}
	defer hr.Body.Close()
	body, err := io.ReadAll(hr.Body)
	if err != nil {
		return nil, &NetworkFault{URL: req.URL.String(), Err: err}
	}
	return &Response{
		URL:    req.URL.String(),
		Status: hr.StatusCode,
		Header: hr.Header.Clone(),
		Body:   body,
	}, nil
}

// Install precaches the static manifest. It fails if any entry cannot be
// fetched with a 2xx status.
func (m *CacheManager) Install(ctx context.Context, origin string) error {
	return m.CacheURLs(ctx, m.cfg.StaticCache, absolute(origin, m.cfg.StaticFiles))
}

// CacheURLs fetches urls and stores them in cache.
func (m *CacheManager) CacheURLs(ctx context.Context, cache string, urls []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.PrecacheConcurrency)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			req, err := http.NewRequestWithContext(gctx, http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			resp, err := m.fetch(gctx, req)
			if err != nil {
				return err
			}
			if !resp.OK() {
				return &NetworkFault{URL: u, Status: resp.Status}
			}
			return m.caches.Put(gctx, cache, resp)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("precache %s: %w", cache, err)
	}
	m.log.Info("urls cached", zap.String("cache", cache), zap.Int("count", len(urls)))
	return nil
}

// Activate deletes every cache other than the current static and dynamic
// caches.
func (m *CacheManager) Activate(ctx context.Context) error {
	names, err := m.caches.Names(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == m.cfg.StaticCache || name == m.cfg.DynamicCache {
			continue
		}
		m.log.Info("deleting old cache", zap.String("cache", name))
		if err := m.caches.DeleteCache(ctx, name); err != nil {
			return fmt.Errorf("delete cache %s: %w", name, err)
		}
	}
	return nil
}

// PruneDynamic trims the dynamic cache to max entries, oldest first.
func (m *CacheManager) PruneDynamic(ctx context.Context, max int) (int, error) {
	n, err := m.caches.Trim(ctx, m.cfg.DynamicCache, max)
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", m.cfg.DynamicCache, err)
	}
	if n > 0 {
		m.log.Info("dynamic cache pruned", zap.Int("evicted", n), zap.Int("max", max))
	}
	return n, nil
}

// ClearAll deletes every cache.
func (m *CacheManager) ClearAll(ctx context.Context) error {
	names, err := m.caches.Names(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := m.caches.DeleteCache(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Close cancels and waits for background refreshes.
func (m *CacheManager) Close() {
	m.bgCancel()
	m.inflight.Wait()
}

// Wait blocks until in-flight background refreshes finish.
func (m *CacheManager) Wait() { m.inflight.Wait() }

func (m *CacheManager) resolve(req *http.Request, path string) string {
	u := *req.URL
	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func isNavigation(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return req.Method == http.MethodGet && strings.Contains(req.Header.Get("Accept"), "text/html")
}

func absolute(origin string, paths []string) []string {
	base, err := url.Parse(origin)
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if err != nil || base.Scheme == "" {
			out = append(out, p)
			continue
		}
		ref, perr := url.Parse(p)
		if perr != nil {
			out = append(out, p)
			continue
		}
		out = append(out, base.ResolveReference(ref).String())
	}
	return out
}

func newJSONRequest(ctx context.Context, method, target string, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
