// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"math"
	"strings"

	"github.com/mtreilly/arc-organizer/internal/kv"
)

// gradePoints maps letter grades to the 4.0 scale.
var gradePoints = map[string]float64{
	"A+": 4.0, "A": 4.0, "A-": 3.7,
	"B+": 3.3, "B": 3.0, "B-": 2.7,
	"C+": 2.3, "C": 2.0, "C-": 1.7,
	"D+": 1.3, "D": 1.0,
	"F": 0,
}

// GradeValue returns the numeric grade of s: its gpa if set, otherwise the
// points of its letter grade.
func GradeValue(s *Subject) (float64, bool) {
	if s.GPA != nil {
		return *s.GPA, true
	}
	p, ok := gradePoints[strings.ToUpper(strings.TrimSpace(s.Grade))]
	return p, ok
}

// CalculateGPA is the credit-hour weighted mean of the subjects' grades.
// Subjects without a grade or credit hours are left out entirely.
func CalculateGPA(subjects []*Subject) float64 {
	var points, hours float64
	for _, s := range subjects {
		if s == nil || s.CreditHours <= 0 {
			continue
		}
		v, ok := GradeValue(s)
		if !ok {
			continue
		}
		points += v * float64(s.CreditHours)
		hours += float64(s.CreditHours)
	}
	if hours == 0 {
		return 0
	}
	return points / hours
}

// Statistics aggregates counts over the whole store.
func (r *Repository) Statistics(ctx context.Context) (*Statistics, error) {
	subjects, err := r.subjects.all(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := r.tasks.all(ctx)
	if err != nil {
		return nil, err
	}
	files, err := r.files.all(ctx)
	if err != nil {
		return nil, err
	}
	grades, err := r.store.Count(ctx, Grades)
	if err != nil {
		return nil, err
	}

	st := &Statistics{}
	st.Subjects.Total = len(subjects)
	for _, s := range subjects {
		st.Subjects.CreditHours += s.CreditHours
	}
	st.Tasks.Total = len(tasks)
	for _, t := range tasks {
		if t.Completed {
			st.Tasks.Completed++
		} else {
			st.Tasks.Pending++
		}
	}
	st.Tasks.Overdue = len(overdue(tasks, r.now()))
	st.Files.Total = len(files)
	for _, f := range files {
		st.Files.Size += f.Size
	}
	st.Grades.Total = grades
	st.Grades.Average = CalculateGPA(subjects)

	if usage, err := r.StorageUsage(ctx); err == nil {
		st.Storage = usage
	}
	if st.Usage, err = r.UsageStats(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// StorageUsage reports the substrate size. It returns nil when the substrate
// cannot measure itself.
func (r *Repository) StorageUsage(ctx context.Context) (*StorageUsage, error) {
	sizer, ok := r.store.KV().(kv.Sizer)
	if !ok {
		return nil, nil
	}
	used, err := sizer.Size(ctx)
	if err != nil {
		return nil, err
	}
	u := &StorageUsage{Used: used, Quota: r.quota}
	if r.quota > 0 {
		u.Percentage = int(math.Round(float64(used) / float64(r.quota) * 100))
	}
	return u, nil
}
