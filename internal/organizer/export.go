// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mtreilly/arc-organizer/internal/records"
)

// ErrMalformedSnapshot means an import was rejected before anything was
// written.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Snapshot is the export file format.
type Snapshot struct {
	Version    int                         `json:"version" yaml:"version"`
	ExportDate time.Time                   `json:"exportDate" yaml:"exportDate"`
	Data       map[string][]records.Record `json:"data" yaml:"data"`
}

// ImportFault reports an import that failed after the store was cleared.
// The store holds whatever was written before the failure.
type ImportFault struct {
	Collection string
	Imported   int
	Err        error
}

func (e *ImportFault) Error() string {
	return fmt.Sprintf("import failed in %s after %d records: %v", e.Collection, e.Imported, e.Err)
}

func (e *ImportFault) Unwrap() error { return e.Err }

// Export snapshots every collection.
func (r *Repository) Export(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Version:    SchemaVersion,
		ExportDate: r.now().UTC(),
		Data:       make(map[string][]records.Record),
	}
	for _, coll := range r.store.Collections() {
		recs, err := r.store.GetAll(ctx, coll)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", coll, err)
		}
		snap.Data[coll] = recs
	}
	return snap, nil
}

// ReadSnapshot parses an export file.
func ReadSnapshot(rd io.Reader) (*Snapshot, error) {
	dec := json.NewDecoder(rd)
	dec.UseNumber()
	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if snap.Data == nil {
		return nil, fmt.Errorf("%w: no data section", ErrMalformedSnapshot)
	}
	return &snap, nil
}

// WriteJSON writes snap in the export file format.
func WriteJSON(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// WriteYAML renders snap as YAML for reading. It is not accepted by Import.
func WriteYAML(w io.Writer, snap *Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return err
	}
	return enc.Close()
}

type pending struct {
	oldID int64
	rec   records.Record
}

// Import replaces the store contents with snap. Every record is decoded and
// validated first; a malformed snapshot returns ErrMalformedSnapshot with
// the store untouched. Ids are reassigned and subjectId references are
// remapped to the new subject ids. A failure while writing returns
// *ImportFault.
func (r *Repository) Import(ctx context.Context, snap *Snapshot) error {
	if snap == nil || snap.Data == nil {
		return fmt.Errorf("%w: no data section", ErrMalformedSnapshot)
	}
	known := make(map[string]bool)
	for _, coll := range r.store.Collections() {
		known[coll] = true
	}
	for coll := range snap.Data {
		if !known[coll] {
			r.log.Warn("import skips unknown collection", zap.String("collection", coll))
		}
	}

	staged := make(map[string][]pending)
	for _, coll := range r.store.Collections() {
		for i, raw := range snap.Data[coll] {
			p, err := r.stage(coll, raw)
			if err != nil {
				return fmt.Errorf("%w: %s[%d]: %v", ErrMalformedSnapshot, coll, i, err)
			}
			staged[coll] = append(staged[coll], p)
		}
	}
	codes := make(map[any]bool)
	for i, p := range staged[Subjects] {
		code := p.rec["code"]
		if codes[code] {
			return fmt.Errorf("%w: subjects[%d]: duplicate code %v", ErrMalformedSnapshot, i, code)
		}
		codes[code] = true
	}

	if err := r.store.ClearAll(ctx); err != nil {
		return &ImportFault{Collection: "*", Err: err}
	}

	subjectIDs := make(map[int64]int64)
	imported := 0
	for _, coll := range r.store.Collections() {
		for _, p := range staged[coll] {
			if coll == Settings {
				if err := r.store.Put(ctx, coll, p.rec); err != nil {
					return &ImportFault{Collection: coll, Imported: imported, Err: err}
				}
				imported++
				continue
			}
			r.remapSubject(coll, p.rec, subjectIDs)
			id, err := r.store.Add(ctx, coll, p.rec)
			if err != nil {
				return &ImportFault{Collection: coll, Imported: imported, Err: err}
			}
			if coll == Subjects && p.oldID != 0 {
				subjectIDs[p.oldID] = id
			}
			imported++
		}
	}
	r.log.Info("snapshot imported",
		zap.Int("records", imported),
		zap.Int("version", snap.Version),
	)
	return nil
}

// stage decodes raw into its model, validates it and re-encodes it without
// an id.
func (r *Repository) stage(coll string, raw records.Record) (pending, error) {
	var v any
	switch coll {
	case Subjects:
		v = new(Subject)
	case Tasks:
		v = new(Task)
	case Schedule:
		v = new(ScheduleItem)
	case Files:
		v = new(FileRecord)
	case Grades:
		v = new(Grade)
	case Notes:
		v = new(Note)
	case Goals:
		v = new(Goal)
	case Settings:
		v = new(Setting)
	default:
		return pending{}, fmt.Errorf("unknown collection %s", coll)
	}
	if err := records.Decode(raw, v); err != nil {
		return pending{}, err
	}
	if err := r.check(v); err != nil {
		return pending{}, err
	}
	rec, err := records.Encode(v)
	if err != nil {
		return pending{}, err
	}
	var oldID int64
	if n, ok := rec["id"].(json.Number); ok {
		oldID, _ = n.Int64()
	}
	delete(rec, "id")
	return pending{oldID: oldID, rec: rec}, nil
}

func (r *Repository) remapSubject(coll string, rec records.Record, ids map[int64]int64) {
	n, ok := rec["subjectId"].(json.Number)
	if !ok {
		return
	}
	old, err := n.Int64()
	if err != nil || old == 0 {
		return
	}
	if id, ok := ids[old]; ok {
		rec["subjectId"] = id
		return
	}
	r.log.Warn("import drops dangling subject reference",
		zap.String("collection", coll),
		zap.Int64("subject_id", old),
	)
	delete(rec, "subjectId")
}

// ExportCSV writes a subjects section and a tasks section.
func (r *Repository) ExportCSV(ctx context.Context, w io.Writer) error {
	subjects, err := r.subjects.all(ctx)
	if err != nil {
		return err
	}
	tasks, err := r.tasks.all(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	codes := make(map[int64]string, len(subjects))
	if len(subjects) > 0 {
		_ = cw.Write([]string{"Subjects"})
		_ = cw.Write([]string{"Name", "Code", "Credit Hours", "Instructor", "Semester"})
		for _, s := range subjects {
			codes[s.ID] = s.Code
			_ = cw.Write([]string{s.Name, s.Code, strconv.Itoa(s.CreditHours), s.Instructor, s.Semester})
		}
	}
	if len(tasks) > 0 {
		_ = cw.Write([]string{"Tasks"})
		_ = cw.Write([]string{"Title", "Subject", "Due Date", "Priority", "Completed"})
		for _, t := range tasks {
			subject := codes[t.SubjectID]
			if subject == "" && t.SubjectID != 0 {
				subject = strconv.FormatInt(t.SubjectID, 10)
			}
			due := ""
			if !t.DueDate.IsZero() {
				due = t.DueDate.Format(time.RFC3339)
			}
			_ = cw.Write([]string{t.Title, subject, due, string(t.Priority), yesNo(t.Completed)})
		}
	}
	cw.Flush()
	return cw.Error()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
