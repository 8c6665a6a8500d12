// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package records

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownIndex      = errors.New("unknown index")
	ErrMissingKey        = errors.New("record has no key")
)

// StorageFault means the substrate was unavailable or a write transaction
// did not commit. The operation must be treated as not applied.
type StorageFault struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageFault) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("storage fault: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage fault: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageFault) Unwrap() error { return e.Err }

// UniquenessFault reports a unique index (or primary key) collision.
type UniquenessFault struct {
	Collection string
	Index      string
	Value      any
}

func (e *UniquenessFault) Error() string {
	return fmt.Sprintf("uniqueness fault: %s.%s already holds %v", e.Collection, e.Index, e.Value)
}
