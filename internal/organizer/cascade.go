// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CascadeFailure is one branch of a subject deletion that did not complete.
type CascadeFailure struct {
	Collection string
	Err        error
}

// CascadeFault reports a subject deletion where at least one branch failed.
// Branches that succeeded are not rolled back.
type CascadeFault struct {
	SubjectID int64
	Failures  []CascadeFailure
}

func (e *CascadeFault) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Collection, f.Err))
	}
	return fmt.Sprintf("cascade delete of subject %d incomplete: %s", e.SubjectID, strings.Join(parts, "; "))
}

func (e *CascadeFault) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// DeleteSubject removes the subject and every task, schedule slot, file,
// grade and note that references it. All branches run concurrently and
// independently.
func (r *Repository) DeleteSubject(ctx context.Context, id int64) error {
	p := pool.NewWithResults[*CascadeFailure]()

	p.Go(func() *CascadeFailure {
		if err := r.store.Delete(ctx, Subjects, id); err != nil {
			return &CascadeFailure{Collection: Subjects, Err: err}
		}
		return nil
	})
	for _, coll := range children {
		coll := coll
		p.Go(func() *CascadeFailure {
			if err := r.deleteChildren(ctx, coll, id); err != nil {
				return &CascadeFailure{Collection: coll, Err: err}
			}
			return nil
		})
	}

	var failures []CascadeFailure
	for _, f := range p.Wait() {
		if f != nil {
			failures = append(failures, *f)
		}
	}
	if len(failures) == 0 {
		return nil
	}
	fault := &CascadeFault{SubjectID: id, Failures: failures}
	r.log.Warn("subject cascade incomplete",
		zap.Int64("subject_id", id),
		zap.Int("failed_branches", len(failures)),
		zap.Error(fault),
	)
	return fault
}

// deleteChildren deletes the records of coll referencing subjectID one by
// one, attempting all of them.
func (r *Repository) deleteChildren(ctx context.Context, coll string, subjectID int64) error {
	recs, err := r.store.GetByIndex(ctx, coll, "subjectId", subjectID)
	if err != nil {
		return err
	}
	var errs error
	for _, rec := range recs {
		errs = multierr.Append(errs, r.store.Delete(ctx, coll, rec["id"]))
	}
	return errs
}
