// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mtreilly/arc-organizer/internal/kv"
)

// Response is a fully buffered HTTP response, as fetched or as cached.
type Response struct {
	URL      string      `json:"url"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header,omitempty"`
	Body     []byte      `json:"body,omitempty"`
	StoredAt time.Time   `json:"storedAt,omitempty"`
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// CacheStorage keeps named response caches in the KV substrate. Each cache
// remembers insertion order; storing a URL again moves it to the end.
//
//	<ns>:cache:names                JSON array of cache names
//	<ns>:cache:<name>:order         JSON array of URLs, oldest first
//	<ns>:cache:<name>:entry:<url>   JSON Response
type CacheStorage struct {
	kv kv.Store
	ns string
	mu sync.Mutex
}

// NewCacheStorage returns caches stored under namespace ns.
func NewCacheStorage(store kv.Store, ns string) *CacheStorage {
	return &CacheStorage{kv: store, ns: ns}
}

func (c *CacheStorage) namesKey() string { return c.ns + ":cache:names" }

func (c *CacheStorage) orderKey(name string) string { return c.ns + ":cache:" + name + ":order" }

func (c *CacheStorage) entryPrefix(name string) string { return c.ns + ":cache:" + name + ":entry:" }

// Names lists the existing caches.
func (c *CacheStorage) Names(ctx context.Context) ([]string, error) {
	return readList(ctx, c.kv, c.namesKey())
}

// Put stores resp in cache name under resp.URL, creating the cache if needed.
func (c *CacheStorage) Put(ctx context.Context, name string, resp *Response) error {
	if resp.StoredAt.IsZero() {
		resp.StoredAt = time.Now().UTC()
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Update(ctx, func(tx kv.Tx) error {
		names, err := readList(ctx, tx, c.namesKey())
		if err != nil {
			return err
		}
		if !contains(names, name) {
			if err := writeList(ctx, tx, c.namesKey(), append(names, name)); err != nil {
				return err
			}
		}
		order, err := readList(ctx, tx, c.orderKey(name))
		if err != nil {
			return err
		}
		order = append(without(order, resp.URL), resp.URL)
		if err := writeList(ctx, tx, c.orderKey(name), order); err != nil {
			return err
		}
		return tx.Set(ctx, c.entryPrefix(name)+resp.URL, data)
	})
}

// Match returns the cached response for url in cache name, or nil.
func (c *CacheStorage) Match(ctx context.Context, name, url string) (*Response, error) {
	data, err := c.kv.Get(ctx, c.entryPrefix(name)+url)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal cached response: %w", err)
	}
	return &resp, nil
}

// MatchAny searches every cache in creation order.
func (c *CacheStorage) MatchAny(ctx context.Context, url string) (*Response, error) {
	names, err := c.Names(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		resp, err := c.Match(ctx, name, url)
		if err != nil || resp != nil {
			return resp, err
		}
	}
	return nil, nil
}

// Keys lists the URLs of cache name, oldest first.
func (c *CacheStorage) Keys(ctx context.Context, name string) ([]string, error) {
	return readList(ctx, c.kv, c.orderKey(name))
}

// DeleteCache removes cache name and all of its entries.
func (c *CacheStorage) DeleteCache(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Update(ctx, func(tx kv.Tx) error {
		order, err := readList(ctx, tx, c.orderKey(name))
		if err != nil {
			return err
		}
		for _, url := range order {
			if err := tx.Delete(ctx, c.entryPrefix(name)+url); err != nil {
				return err
			}
		}
		if err := tx.Delete(ctx, c.orderKey(name)); err != nil {
			return err
		}
		names, err := readList(ctx, tx, c.namesKey())
		if err != nil {
			return err
		}
		return writeList(ctx, tx, c.namesKey(), without(names, name))
	})
}

// Trim evicts the oldest entries of cache name until at most max remain and
// returns how many were evicted.
func (c *CacheStorage) Trim(ctx context.Context, name string, max int) (int, error) {
	if max < 0 {
		max = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	err := c.kv.Update(ctx, func(tx kv.Tx) error {
		order, err := readList(ctx, tx, c.orderKey(name))
		if err != nil {
			return err
		}
		if len(order) <= max {
			return nil
		}
		drop := order[:len(order)-max]
		for _, url := range drop {
			if err := tx.Delete(ctx, c.entryPrefix(name)+url); err != nil {
				return err
			}
		}
		evicted = len(drop)
		return writeList(ctx, tx, c.orderKey(name), order[len(order)-max:])
	})
	if err != nil {
		return 0, err
	}
	return evicted, nil
}

func readList(ctx context.Context, r kv.Reader, key string) ([]string, error) {
	data, err := r.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return list, nil
}

func writeList(ctx context.Context, tx kv.Tx, key string, list []string) error {
	if len(list) == 0 {
		return tx.Delete(ctx, key)
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return tx.Set(ctx, key, data)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func without(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
