// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

// Package organizer holds the typed, rule-aware operations of the personal
// organizer: CRUD for every collection, derived queries, the subject cascade,
// statistics and snapshot export/import.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/kv"
	"github.com/mtreilly/arc-organizer/internal/records"
)

var (
	// ErrInvalid wraps validation failures. Nothing is written.
	ErrInvalid = errors.New("invalid record")
	// ErrNoID is returned by updates of records that were never added.
	ErrNoID = errors.New("record has no id")
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Repository is the domain layer over a records.Store.
type Repository struct {
	store    *records.Store
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
	quota    int64

	subjects table[Subject, *Subject]
	tasks    table[Task, *Task]
	schedule table[ScheduleItem, *ScheduleItem]
	files    table[FileRecord, *FileRecord]
	grades   table[Grade, *Grade]
	notes    table[Note, *Note]
	goals    table[Goal, *Goal]
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithQuota sets the storage quota reported by Statistics.
func WithQuota(bytes int64) Option {
	return func(r *Repository) { r.quota = bytes }
}

// Open opens the organizer schema on the substrate and returns a repository.
func Open(ctx context.Context, substrate kv.Store, log *zap.Logger, opts ...Option) (*Repository, error) {
	if log == nil {
		log = zap.NewNop()
	}
	store, err := records.Open(ctx, substrate, Schema(), log)
	if err != nil {
		return nil, fmt.Errorf("open organizer store: %w", err)
	}
	return New(store, log, opts...), nil
}

// New wraps an already opened store.
func New(store *records.Store, log *zap.Logger, opts ...Option) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New()
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})

	r := &Repository{
		store:    store,
		log:      log.Named("organizer"),
		validate: v,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.subjects = table[Subject, *Subject]{r, Subjects}
	r.tasks = table[Task, *Task]{r, Tasks}
	r.schedule = table[ScheduleItem, *ScheduleItem]{r, Schedule}
	r.files = table[FileRecord, *FileRecord]{r, Files}
	r.grades = table[Grade, *Grade]{r, Grades}
	r.notes = table[Note, *Note]{r, Notes}
	r.goals = table[Goal, *Goal]{r, Goals}
	return r
}

// Store exposes the underlying record store.
func (r *Repository) Store() *records.Store { return r.store }

func (r *Repository) check(v any) error {
	if err := r.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

type entity[T any] interface {
	*T
	key() int64
	setKey(int64)
}

// table binds a model type to its collection.
type table[T any, P entity[T]] struct {
	repo *Repository
	name string
}

func (t table[T, P]) add(ctx context.Context, v P) (int64, error) {
	if err := t.repo.check(v); err != nil {
		return 0, err
	}
	rec, err := records.Encode(v)
	if err != nil {
		return 0, err
	}
	delete(rec, "id")
	id, err := t.repo.store.Add(ctx, t.name, rec)
	if err != nil {
		return 0, fmt.Errorf("add %s: %w", t.name, err)
	}
	v.setKey(id)
	return id, nil
}

func (t table[T, P]) update(ctx context.Context, v P) error {
	if v.key() == 0 {
		return fmt.Errorf("update %s: %w", t.name, ErrNoID)
	}
	if err := t.repo.check(v); err != nil {
		return err
	}
	rec, err := records.Encode(v)
	if err != nil {
		return err
	}
	if err := t.repo.store.Put(ctx, t.name, rec); err != nil {
		return fmt.Errorf("update %s: %w", t.name, err)
	}
	return nil
}

func (t table[T, P]) get(ctx context.Context, id int64) (P, error) {
	var zero P
	rec, err := t.repo.store.Get(ctx, t.name, id)
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", t.name, err)
	}
	if rec == nil {
		return zero, nil
	}
	var v T
	if err := records.Decode(rec, &v); err != nil {
		return zero, err
	}
	return P(&v), nil
}

func (t table[T, P]) remove(ctx context.Context, id int64) error {
	if err := t.repo.store.Delete(ctx, t.name, id); err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	return nil
}

func (t table[T, P]) all(ctx context.Context) ([]P, error) {
	recs, err := t.repo.store.GetAll(ctx, t.name)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	return decodeAll[T, P](recs)
}

func (t table[T, P]) by(ctx context.Context, index string, value any) ([]P, error) {
	recs, err := t.repo.store.GetByIndex(ctx, t.name, index, value)
	if err != nil {
		return nil, fmt.Errorf("list %s by %s: %w", t.name, index, err)
	}
	return decodeAll[T, P](recs)
}

func decodeAll[T any, P entity[T]](recs []records.Record) ([]P, error) {
	out := make([]P, 0, len(recs))
	for _, rec := range recs {
		var v T
		if err := records.Decode(rec, &v); err != nil {
			return nil, err
		}
		out = append(out, P(&v))
	}
	return out, nil
}
