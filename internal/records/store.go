// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

// Package records implements keyed record collections with secondary
// indexes on top of a kv.Store.
//
// Layout inside the KV namespace of a schema:
//
//	<schema>:meta:version              on-disk schema version
//	<schema>:seq:<coll>                last assigned id
//	<schema>:keys:<coll>               JSON array of primary keys, insertion order
//	<schema>:rec:<coll>:<pk>           JSON record
//	<schema>:idx:<coll>:<index>:<val>  JSON array of primary keys
//
// Primary keys and index values are encoded as their JSON text, so 5, "5"
// and true are distinct keys.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/kv"
)

// Record is a single stored document. Numbers decode as json.Number.
type Record map[string]any

// Store exposes the collections of one Schema. Every operation is a single
// KV transaction; writes to the same collection are serialized.
type Store struct {
	kv     kv.Store
	schema Schema
	colls  map[string]*Collection
	locks  map[string]*sync.Mutex
	log    *zap.Logger
}

// Open binds schema to the substrate, upgrading the on-disk layout if it was
// written by an older schema version.
func Open(ctx context.Context, store kv.Store, schema Schema, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		kv:     store,
		schema: schema,
		colls:  make(map[string]*Collection, len(schema.Collections)),
		locks:  make(map[string]*sync.Mutex, len(schema.Collections)),
		log:    log.With(zap.String("schema", schema.Name)),
	}
	for i := range schema.Collections {
		c := &s.schema.Collections[i]
		s.colls[c.Name] = c
		s.locks[c.Name] = &sync.Mutex{}
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Collections returns the declared collection names in schema order.
func (s *Store) Collections() []string {
	names := make([]string, 0, len(s.schema.Collections))
	for _, c := range s.schema.Collections {
		names = append(names, c.Name)
	}
	return names
}

// Version is the schema version this store was opened with.
func (s *Store) Version() int { return s.schema.Version }

// KV exposes the underlying substrate (used for size reporting).
func (s *Store) KV() kv.Store { return s.kv }

func (s *Store) key(parts ...string) string {
	return s.schema.Name + ":" + strings.Join(parts, ":")
}

func (s *Store) collection(name string) (*Collection, error) {
	c, ok := s.colls[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return c, nil
}

// Add inserts rec and returns its id. For AutoIncrement collections the id is
// assigned here and written into rec's key field; for other collections the
// key must already be present and 0 is returned.
func (s *Store) Add(ctx context.Context, coll string, rec Record) (int64, error) {
	c, err := s.collection(coll)
	if err != nil {
		return 0, err
	}
	rec = copyRecord(rec)

	mu := s.locks[coll]
	mu.Lock()
	defer mu.Unlock()

	var id int64
	err = s.kv.Update(ctx, func(tx kv.Tx) error {
		if c.AutoIncrement {
			seq, err := s.readSeq(ctx, tx, coll)
			if err != nil {
				return err
			}
			id = seq + 1
			rec[c.KeyPath] = id
			if err := tx.Set(ctx, s.key("seq", coll), []byte(strconv.FormatInt(id, 10))); err != nil {
				return err
			}
		}
		pkVal, ok := rec[c.KeyPath]
		if !ok || pkVal == nil {
			return ErrMissingKey
		}
		pk, err := encodeKey(pkVal)
		if err != nil {
			return err
		}
		if _, err := tx.Get(ctx, s.key("rec", coll, pk)); err == nil {
			return &UniquenessFault{Collection: coll, Index: c.KeyPath, Value: pkVal}
		} else if !errors.Is(err, kv.ErrNotFound) {
			return err
		}
		if err := s.indexRecord(ctx, tx, c, pk, nil, rec); err != nil {
			return err
		}
		if err := s.writeRecord(ctx, tx, coll, pk, rec); err != nil {
			return err
		}
		return s.appendKey(ctx, tx, s.key("keys", coll), pk)
	})
	if err != nil {
		return 0, s.fault("add", coll, err)
	}
	return id, nil
}

// Put replaces the record with the same key, inserting it if absent.
func (s *Store) Put(ctx context.Context, coll string, rec Record) error {
	c, err := s.collection(coll)
	if err != nil {
		return err
	}
	pkVal, ok := rec[c.KeyPath]
	if !ok || pkVal == nil {
		return fmt.Errorf("put %s: %w", coll, ErrMissingKey)
	}
	pk, err := encodeKey(pkVal)
	if err != nil {
		return fmt.Errorf("put %s: %w", coll, err)
	}
	rec = copyRecord(rec)

	mu := s.locks[coll]
	mu.Lock()
	defer mu.Unlock()

	err = s.kv.Update(ctx, func(tx kv.Tx) error {
		old, err := s.readRecord(ctx, tx, coll, pk)
		if err != nil {
			return err
		}
		if err := s.indexRecord(ctx, tx, c, pk, old, rec); err != nil {
			return err
		}
		if err := s.writeRecord(ctx, tx, coll, pk, rec); err != nil {
			return err
		}
		if old == nil {
			if err := s.appendKey(ctx, tx, s.key("keys", coll), pk); err != nil {
				return err
			}
		}
		if c.AutoIncrement {
			// an explicit id past the generator moves the generator forward
			if n, ok := asInt64(pkVal); ok {
				seq, err := s.readSeq(ctx, tx, coll)
				if err != nil {
					return err
				}
				if n > seq {
					return tx.Set(ctx, s.key("seq", coll), []byte(strconv.FormatInt(n, 10)))
				}
			}
		}
		return nil
	})
	if err != nil {
		return s.fault("put", coll, err)
	}
	return nil
}

// Delete removes the record with the given key. Deleting a missing key is
// not an error.
func (s *Store) Delete(ctx context.Context, coll string, key any) error {
	c, err := s.collection(coll)
	if err != nil {
		return err
	}
	pk, err := encodeKey(key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", coll, err)
	}

	mu := s.locks[coll]
	mu.Lock()
	defer mu.Unlock()

	err = s.kv.Update(ctx, func(tx kv.Tx) error {
		old, err := s.readRecord(ctx, tx, coll, pk)
		if err != nil {
			return err
		}
		if old == nil {
			return nil
		}
		if err := s.indexRecord(ctx, tx, c, pk, old, nil); err != nil {
			return err
		}
		if err := s.removeKey(ctx, tx, s.key("keys", coll), pk); err != nil {
			return err
		}
		return tx.Delete(ctx, s.key("rec", coll, pk))
	})
	if err != nil {
		return s.fault("delete", coll, err)
	}
	return nil
}

// Get returns the record with the given key, or nil if there is none.
func (s *Store) Get(ctx context.Context, coll string, key any) (Record, error) {
	if _, err := s.collection(coll); err != nil {
		return nil, err
	}
	pk, err := encodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", coll, err)
	}
	rec, err := s.readRecord(ctx, s.kv, coll, pk)
	if err != nil {
		return nil, s.fault("get", coll, err)
	}
	return rec, nil
}

// GetAll returns every record of coll in insertion order.
func (s *Store) GetAll(ctx context.Context, coll string) ([]Record, error) {
	if _, err := s.collection(coll); err != nil {
		return nil, err
	}
	pks, err := s.readKeys(ctx, s.kv, s.key("keys", coll))
	if err != nil {
		return nil, s.fault("getAll", coll, err)
	}
	return s.loadAll(ctx, coll, pks)
}

// GetByIndex returns the records whose indexed field equals value.
func (s *Store) GetByIndex(ctx context.Context, coll, index string, value any) ([]Record, error) {
	c, err := s.collection(coll)
	if err != nil {
		return nil, err
	}
	idx, ok := c.index(index)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownIndex, coll, index)
	}
	v, err := encodeKey(value)
	if err != nil {
		return nil, fmt.Errorf("getByIndex %s.%s: %w", coll, index, err)
	}
	pks, err := s.readKeys(ctx, s.kv, s.key("idx", coll, idx.Name, v))
	if err != nil {
		return nil, s.fault("getByIndex", coll, err)
	}
	return s.loadAll(ctx, coll, pks)
}

// Count returns the number of records in coll.
func (s *Store) Count(ctx context.Context, coll string) (int, error) {
	if _, err := s.collection(coll); err != nil {
		return 0, err
	}
	pks, err := s.readKeys(ctx, s.kv, s.key("keys", coll))
	if err != nil {
		return 0, s.fault("count", coll, err)
	}
	return len(pks), nil
}

// Clear removes every record and index entry of coll. The id sequence is
// kept so ids are never handed out twice.
func (s *Store) Clear(ctx context.Context, coll string) error {
	if _, err := s.collection(coll); err != nil {
		return err
	}

	mu := s.locks[coll]
	mu.Lock()
	defer mu.Unlock()

	idxKeys, err := s.kv.List(ctx, s.key("idx", coll)+":")
	if err != nil {
		return s.fault("clear", coll, err)
	}
	err = s.kv.Update(ctx, func(tx kv.Tx) error {
		pks, err := s.readKeys(ctx, tx, s.key("keys", coll))
		if err != nil {
			return err
		}
		for _, pk := range pks {
			if err := tx.Delete(ctx, s.key("rec", coll, pk)); err != nil {
				return err
			}
		}
		for _, k := range idxKeys {
			if err := tx.Delete(ctx, k); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, s.key("keys", coll))
	})
	if err != nil {
		return s.fault("clear", coll, err)
	}
	return nil
}

// ClearAll clears every collection, attempting all of them even if some fail.
func (s *Store) ClearAll(ctx context.Context) error {
	var errs error
	for _, name := range s.Collections() {
		errs = multierr.Append(errs, s.Clear(ctx, name))
	}
	return errs
}

func (s *Store) loadAll(ctx context.Context, coll string, pks []string) ([]Record, error) {
	out := make([]Record, 0, len(pks))
	for _, pk := range pks {
		rec, err := s.readRecord(ctx, s.kv, coll, pk)
		if err != nil {
			return nil, s.fault("read", coll, err)
		}
		if rec == nil {
			// deleted between reading the key list and the record
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// indexRecord moves pk from the index entries of old to those of rec.
// Either side may be nil.
func (s *Store) indexRecord(ctx context.Context, tx kv.Tx, c *Collection, pk string, old, rec Record) error {
	for _, idx := range c.Indexes {
		oldVal, hadOld := indexValue(old, idx.Field)
		newVal, hasNew := indexValue(rec, idx.Field)
		if hadOld && hasNew && oldVal == newVal {
			continue
		}
		if hasNew && idx.Unique {
			holders, err := s.readKeys(ctx, tx, s.key("idx", c.Name, idx.Name, newVal))
			if err != nil {
				return err
			}
			for _, h := range holders {
				if h != pk {
					return &UniquenessFault{Collection: c.Name, Index: idx.Name, Value: rec[idx.Field]}
				}
			}
		}
		if hadOld {
			if err := s.removeKey(ctx, tx, s.key("idx", c.Name, idx.Name, oldVal), pk); err != nil {
				return err
			}
		}
		if hasNew {
			if err := s.appendKey(ctx, tx, s.key("idx", c.Name, idx.Name, newVal), pk); err != nil {
				return err
			}
		}
	}
	return nil
}

func indexValue(rec Record, field string) (string, bool) {
	if rec == nil {
		return "", false
	}
	v, ok := rec[field]
	if !ok || v == nil {
		return "", false
	}
	enc, err := encodeKey(v)
	if err != nil {
		return "", false
	}
	return enc, true
}

func (s *Store) readRecord(ctx context.Context, r kv.Reader, coll, pk string) (Record, error) {
	data, err := r.Get(ctx, s.key("rec", coll, pk))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

func (s *Store) writeRecord(ctx context.Context, tx kv.Tx, coll, pk string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return tx.Set(ctx, s.key("rec", coll, pk), data)
}

func (s *Store) readSeq(ctx context.Context, r kv.Reader, coll string) (int64, error) {
	data, err := r.Get(ctx, s.key("seq", coll))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt sequence for %s: %w", coll, err)
	}
	return n, nil
}

func (s *Store) readKeys(ctx context.Context, r kv.Reader, key string) ([]string, error) {
	data, err := r.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pks []string
	if err := json.Unmarshal(data, &pks); err != nil {
		return nil, fmt.Errorf("unmarshal key list %s: %w", key, err)
	}
	return pks, nil
}

func (s *Store) appendKey(ctx context.Context, tx kv.Tx, key, pk string) error {
	pks, err := s.readKeys(ctx, tx, key)
	if err != nil {
		return err
	}
	for _, k := range pks {
		if k == pk {
			return nil
		}
	}
	pks = append(pks, pk)
	data, err := json.Marshal(pks)
	if err != nil {
		return err
	}
	return tx.Set(ctx, key, data)
}

func (s *Store) removeKey(ctx context.Context, tx kv.Tx, key, pk string) error {
	pks, err := s.readKeys(ctx, tx, key)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(pks))
	for _, k := range pks {
		if k != pk {
			kept = append(kept, k)
		}
	}
	if len(kept) == 0 {
		return tx.Delete(ctx, key)
	}
	if len(kept) == len(pks) {
		return nil
	}
	data, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return tx.Set(ctx, key, data)
}

// fault classifies err: uniqueness and caller errors pass through, anything
// coming from the substrate becomes a StorageFault.
func (s *Store) fault(op, coll string, err error) error {
	var uf *UniquenessFault
	if errors.As(err, &uf) {
		return uf
	}
	if errors.Is(err, ErrMissingKey) {
		return fmt.Errorf("%s %s: %w", op, coll, err)
	}
	s.log.Warn("storage operation failed",
		zap.String("op", op),
		zap.String("collection", coll),
		zap.Error(err),
	)
	return &StorageFault{Op: op, Collection: coll, Err: err}
}

func encodeKey(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode key: %w", err)
	}
	return string(data), nil
}

func decodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

func copyRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
