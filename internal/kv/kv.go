// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

// Package kv is the durable substrate every arc-organizer component persists to:
// a flat, byte-valued key space with prefix listing and atomic multi-key updates.
package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Reader is the read half shared by stores and transactions.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Tx is a read-write view used inside Store.Update. Writes become visible
// to other callers only when the update function returns nil.
type Tx interface {
	Reader
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store is a key/value store with atomic batched updates.
type Store interface {
	Reader
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns all keys with the given prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Update runs fn in a single transaction. If fn returns an error
	// nothing it wrote is applied.
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Sizer is implemented by backends that can report their on-disk footprint.
type Sizer interface {
	Size(ctx context.Context) (int64, error)
}

// DefaultDBPath returns ~/.arc/organizer.db, falling back to the working
// directory when the home directory cannot be determined.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "organizer.db"
	}
	return filepath.Join(home, ".arc", "organizer.db")
}
