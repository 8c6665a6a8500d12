// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/kv"
)

// migrate brings the on-disk layout up to s.schema.Version. Collections are
// implicit in the key layout, so an upgrade only has to backfill indexes
// added to collections that already held data.
func (s *Store) migrate(ctx context.Context) error {
	versionKey := s.key("meta", "version")
	err := s.kv.Update(ctx, func(tx kv.Tx) error {
		onDisk := 0
		data, err := tx.Get(ctx, versionKey)
		switch {
		case errors.Is(err, kv.ErrNotFound):
		case err != nil:
			return err
		default:
			onDisk, err = strconv.Atoi(string(data))
			if err != nil {
				return fmt.Errorf("corrupt schema version %q: %w", data, err)
			}
		}

		if onDisk > s.schema.Version {
			return fmt.Errorf("on-disk version %d is newer than %d", onDisk, s.schema.Version)
		}
		if onDisk == s.schema.Version {
			return nil
		}
		if onDisk > 0 {
			if err := s.backfill(ctx, tx, onDisk); err != nil {
				return err
			}
			s.log.Info("schema upgraded",
				zap.Int("from", onDisk),
				zap.Int("to", s.schema.Version),
			)
		}
		return tx.Set(ctx, versionKey, []byte(strconv.Itoa(s.schema.Version)))
	})
	if err != nil {
		var uf *UniquenessFault
		if errors.As(err, &uf) {
			return fmt.Errorf("upgrade %s: %w", s.schema.Name, uf)
		}
		return &StorageFault{Op: "upgrade", Err: err}
	}
	return nil
}

func (s *Store) backfill(ctx context.Context, tx kv.Tx, onDisk int) error {
	for _, c := range s.schema.Collections {
		if since(c.Since) > onDisk {
			continue
		}
		var added []Index
		for _, idx := range c.Indexes {
			if since(idx.Since) > onDisk {
				added = append(added, idx)
			}
		}
		if len(added) == 0 {
			continue
		}
		partial := &Collection{Name: c.Name, KeyPath: c.KeyPath, Indexes: added}
		pks, err := s.readKeys(ctx, tx, s.key("keys", c.Name))
		if err != nil {
			return err
		}
		for _, pk := range pks {
			rec, err := s.readRecord(ctx, tx, c.Name, pk)
			if err != nil {
				return err
			}
			if rec == nil {
				continue
			}
			if err := s.indexRecord(ctx, tx, partial, pk, nil, rec); err != nil {
				return err
			}
		}
		s.log.Debug("indexes backfilled",
			zap.String("collection", c.Name),
			zap.Int("records", len(pks)),
		)
	}
	return nil
}
