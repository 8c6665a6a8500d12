// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"sort"
	"time"
)

// UpcomingTasks returns incomplete tasks due now or later, soonest first,
// truncated to limit (limit <= 0 means no limit). Undated tasks are neither
// upcoming nor overdue.
func (r *Repository) UpcomingTasks(ctx context.Context, limit int) ([]*Task, error) {
	tasks, err := r.tasks.all(ctx)
	if err != nil {
		return nil, err
	}
	now := r.now()
	var out []*Task
	for _, t := range tasks {
		if !t.Completed && !t.DueDate.IsZero() && !t.DueDate.Before(now) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// OverdueTasks returns incomplete tasks whose due date has passed, latest
// due date first.
func (r *Repository) OverdueTasks(ctx context.Context) ([]*Task, error) {
	tasks, err := r.tasks.all(ctx)
	if err != nil {
		return nil, err
	}
	return overdue(tasks, r.now()), nil
}

func overdue(tasks []*Task, now time.Time) []*Task {
	var out []*Task
	for _, t := range tasks {
		if !t.Completed && !t.DueDate.IsZero() && t.DueDate.Before(now) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.After(out[j].DueDate)
	})
	return out
}

// TodaySchedule returns the slots on the current local weekday ordered by
// start time. Start times compare as strings, so they must be zero padded.
func (r *Repository) TodaySchedule(ctx context.Context) ([]*ScheduleItem, error) {
	day := int(r.now().Local().Weekday())
	items, err := r.schedule.by(ctx, "dayOfWeek", day)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StartTime < items[j].StartTime
	})
	return items, nil
}
