// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"fmt"
)

// Subjects

// AddSubject stores s and sets s.ID. A duplicate code fails with
// *records.UniquenessFault.
func (r *Repository) AddSubject(ctx context.Context, s *Subject) (int64, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}
	id, err := r.subjects.add(ctx, s)
	if err != nil {
		return 0, err
	}
	r.LogActivity(ctx, ActivitySubjectCreate)
	return id, nil
}

func (r *Repository) UpdateSubject(ctx context.Context, s *Subject) error {
	return r.subjects.update(ctx, s)
}

// GetSubject returns nil if the subject does not exist.
func (r *Repository) GetSubject(ctx context.Context, id int64) (*Subject, error) {
	return r.subjects.get(ctx, id)
}

func (r *Repository) ListSubjects(ctx context.Context) ([]*Subject, error) {
	return r.subjects.all(ctx)
}

// SubjectByCode returns nil if no subject holds code.
func (r *Repository) SubjectByCode(ctx context.Context, code string) (*Subject, error) {
	found, err := r.subjects.by(ctx, "code", code)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

func (r *Repository) SubjectsBySemester(ctx context.Context, semester string) ([]*Subject, error) {
	return r.subjects.by(ctx, "semester", semester)
}

// Tasks

// AddTask stores t, defaulting priority to medium and stamping createdAt.
func (r *Repository) AddTask(ctx context.Context, t *Task) (int64, error) {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	id, err := r.tasks.add(ctx, t)
	if err != nil {
		return 0, err
	}
	r.LogActivity(ctx, ActivityTaskCreate)
	return id, nil
}

func (r *Repository) UpdateTask(ctx context.Context, t *Task) error {
	return r.tasks.update(ctx, t)
}

func (r *Repository) GetTask(ctx context.Context, id int64) (*Task, error) {
	return r.tasks.get(ctx, id)
}

func (r *Repository) ListTasks(ctx context.Context) ([]*Task, error) {
	return r.tasks.all(ctx)
}

func (r *Repository) TasksBySubject(ctx context.Context, subjectID int64) ([]*Task, error) {
	return r.tasks.by(ctx, "subjectId", subjectID)
}

func (r *Repository) DeleteTask(ctx context.Context, id int64) error {
	return r.tasks.remove(ctx, id)
}

// MarkTaskComplete sets completed and completedAt. A missing task is a no-op.
func (r *Repository) MarkTaskComplete(ctx context.Context, id int64) error {
	t, err := r.tasks.get(ctx, id)
	if err != nil || t == nil {
		return err
	}
	now := r.now()
	t.Completed = true
	t.CompletedAt = &now
	return r.tasks.update(ctx, t)
}

// Schedule

func (r *Repository) AddScheduleItem(ctx context.Context, item *ScheduleItem) (int64, error) {
	return r.schedule.add(ctx, item)
}

func (r *Repository) UpdateScheduleItem(ctx context.Context, item *ScheduleItem) error {
	return r.schedule.update(ctx, item)
}

func (r *Repository) GetScheduleItem(ctx context.Context, id int64) (*ScheduleItem, error) {
	return r.schedule.get(ctx, id)
}

func (r *Repository) ListSchedule(ctx context.Context) ([]*ScheduleItem, error) {
	return r.schedule.all(ctx)
}

func (r *Repository) ScheduleBySubject(ctx context.Context, subjectID int64) ([]*ScheduleItem, error) {
	return r.schedule.by(ctx, "subjectId", subjectID)
}

func (r *Repository) DeleteScheduleItem(ctx context.Context, id int64) error {
	return r.schedule.remove(ctx, id)
}

// Files

func (r *Repository) AddFile(ctx context.Context, f *FileRecord) (int64, error) {
	if f.UploadDate.IsZero() {
		f.UploadDate = r.now()
	}
	return r.files.add(ctx, f)
}

func (r *Repository) UpdateFile(ctx context.Context, f *FileRecord) error {
	return r.files.update(ctx, f)
}

func (r *Repository) GetFile(ctx context.Context, id int64) (*FileRecord, error) {
	return r.files.get(ctx, id)
}

func (r *Repository) ListFiles(ctx context.Context) ([]*FileRecord, error) {
	return r.files.all(ctx)
}

func (r *Repository) FilesBySubject(ctx context.Context, subjectID int64) ([]*FileRecord, error) {
	return r.files.by(ctx, "subjectId", subjectID)
}

func (r *Repository) FilesByType(ctx context.Context, typ string) ([]*FileRecord, error) {
	return r.files.by(ctx, "type", typ)
}

func (r *Repository) DeleteFile(ctx context.Context, id int64) error {
	return r.files.remove(ctx, id)
}

// Grades

func (r *Repository) AddGrade(ctx context.Context, g *Grade) (int64, error) {
	if g.Date.IsZero() {
		g.Date = r.now()
	}
	return r.grades.add(ctx, g)
}

func (r *Repository) UpdateGrade(ctx context.Context, g *Grade) error {
	return r.grades.update(ctx, g)
}

func (r *Repository) GetGrade(ctx context.Context, id int64) (*Grade, error) {
	return r.grades.get(ctx, id)
}

func (r *Repository) ListGrades(ctx context.Context) ([]*Grade, error) {
	return r.grades.all(ctx)
}

func (r *Repository) GradesBySubject(ctx context.Context, subjectID int64) ([]*Grade, error) {
	return r.grades.by(ctx, "subjectId", subjectID)
}

func (r *Repository) DeleteGrade(ctx context.Context, id int64) error {
	return r.grades.remove(ctx, id)
}

// Notes

func (r *Repository) AddNote(ctx context.Context, n *Note) (int64, error) {
	now := r.now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = now
	}
	return r.notes.add(ctx, n)
}

// UpdateNote replaces n and bumps its updatedAt.
func (r *Repository) UpdateNote(ctx context.Context, n *Note) error {
	n.UpdatedAt = r.now()
	return r.notes.update(ctx, n)
}

func (r *Repository) GetNote(ctx context.Context, id int64) (*Note, error) {
	return r.notes.get(ctx, id)
}

func (r *Repository) ListNotes(ctx context.Context) ([]*Note, error) {
	return r.notes.all(ctx)
}

func (r *Repository) NotesBySubject(ctx context.Context, subjectID int64) ([]*Note, error) {
	return r.notes.by(ctx, "subjectId", subjectID)
}

func (r *Repository) DeleteNote(ctx context.Context, id int64) error {
	return r.notes.remove(ctx, id)
}

// Goals

func (r *Repository) AddGoal(ctx context.Context, g *Goal) (int64, error) {
	if g.Priority == "" {
		g.Priority = PriorityMedium
	}
	return r.goals.add(ctx, g)
}

func (r *Repository) UpdateGoal(ctx context.Context, g *Goal) error {
	return r.goals.update(ctx, g)
}

func (r *Repository) GetGoal(ctx context.Context, id int64) (*Goal, error) {
	return r.goals.get(ctx, id)
}

func (r *Repository) ListGoals(ctx context.Context) ([]*Goal, error) {
	return r.goals.all(ctx)
}

// ActiveGoals returns the goals not yet completed.
func (r *Repository) ActiveGoals(ctx context.Context) ([]*Goal, error) {
	goals, err := r.goals.all(ctx)
	if err != nil {
		return nil, err
	}
	active := goals[:0]
	for _, g := range goals {
		if !g.Completed {
			active = append(active, g)
		}
	}
	return active, nil
}

// MarkGoalComplete is a no-op for a missing goal.
func (r *Repository) MarkGoalComplete(ctx context.Context, id int64) error {
	g, err := r.goals.get(ctx, id)
	if err != nil || g == nil {
		return err
	}
	now := r.now()
	g.Completed = true
	g.CompletedAt = &now
	if err := r.goals.update(ctx, g); err != nil {
		return fmt.Errorf("complete goal %d: %w", id, err)
	}
	return nil
}

func (r *Repository) DeleteGoal(ctx context.Context, id int64) error {
	return r.goals.remove(ctx, id)
}
