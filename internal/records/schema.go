// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package records

// Schema describes one logical database: its namespace in the KV substrate,
// its version and the collections it holds.
type Schema struct {
	Name        string
	Version     int
	Collections []Collection
}

// Collection is a named set of records sharing a primary key field.
type Collection struct {
	Name          string
	KeyPath       string // field holding the primary key
	AutoIncrement bool   // store assigns KeyPath on Add
	Indexes       []Index
	Since         int // schema version that introduced the collection (0 means 1)
}

// Index is a secondary equality index over a single record field.
// Records lacking the field (or holding null) are not indexed.
type Index struct {
	Name   string
	Field  string
	Unique bool
	Since  int // schema version that introduced the index (0 means 1)
}

func since(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func (c *Collection) index(name string) (*Index, bool) {
	for i := range c.Indexes {
		if c.Indexes[i].Name == name {
			return &c.Indexes[i], true
		}
	}
	return nil, false
}
