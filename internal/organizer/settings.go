// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/records"
)

// SetSetting stores value under key, replacing any previous value.
func (r *Repository) SetSetting(ctx context.Context, key string, value any) error {
	s := &Setting{Key: key, Value: value}
	if err := r.check(s); err != nil {
		return err
	}
	rec, err := records.Encode(s)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, Settings, rec); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Setting decodes the value stored under key into dst. It reports false,
// leaving dst untouched, when the key is not set.
func (r *Repository) Setting(ctx context.Context, key string, dst any) (bool, error) {
	rec, err := r.store.Get(ctx, Settings, key)
	if err != nil {
		return false, fmt.Errorf("get setting %s: %w", key, err)
	}
	if rec == nil {
		return false, nil
	}
	data, err := json.Marshal(rec["value"])
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

func (r *Repository) DeleteSetting(ctx context.Context, key string) error {
	if err := r.store.Delete(ctx, Settings, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// ListSettings returns every stored setting.
func (r *Repository) ListSettings(ctx context.Context) ([]Setting, error) {
	recs, err := r.store.GetAll(ctx, Settings)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	out := make([]Setting, 0, len(recs))
	for _, rec := range recs {
		var s Setting
		if err := records.Decode(rec, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Activities counted by LogActivity.
const (
	ActivityTaskCreate    = "task_create"
	ActivitySubjectCreate = "subject_create"
)

const (
	keySessions        = "analytics.sessions"
	keyTasksCreated    = "analytics.tasksCreated"
	keySubjectsCreated = "analytics.subjectsCreated"
	keyLastActivity    = "analytics.lastActivity"
	keyTotalUsage      = "analytics.totalUsage"
)

// StartSession counts a new usage session.
func (r *Repository) StartSession(ctx context.Context) error {
	return r.incr(ctx, keySessions, 1)
}

// LogActivity bumps the counter for action (if it has one) and records the
// time of the last activity. Failures are logged, not returned.
func (r *Repository) LogActivity(ctx context.Context, action string) {
	var err error
	switch action {
	case ActivityTaskCreate:
		err = r.incr(ctx, keyTasksCreated, 1)
	case ActivitySubjectCreate:
		err = r.incr(ctx, keySubjectsCreated, 1)
	}
	if err == nil {
		err = r.SetSetting(ctx, keyLastActivity, r.now().UTC())
	}
	if err != nil {
		r.log.Warn("activity not recorded", zap.String("action", action), zap.Error(err))
		return
	}
	r.log.Debug("activity logged", zap.String("action", action))
}

// AddUsage adds d (rounded down to whole seconds) to the total usage time.
func (r *Repository) AddUsage(ctx context.Context, d time.Duration) error {
	return r.incr(ctx, keyTotalUsage, int64(d/time.Second))
}

// UsageStats returns the counters plus the average session length in seconds.
func (r *Repository) UsageStats(ctx context.Context) (UsageStats, error) {
	var u UsageStats
	for key, dst := range map[string]*int64{
		keySessions:        &u.Sessions,
		keyTasksCreated:    &u.TasksCreated,
		keySubjectsCreated: &u.SubjectsCreated,
		keyTotalUsage:      &u.TotalUsage,
	} {
		if _, err := r.Setting(ctx, key, dst); err != nil {
			return u, err
		}
	}
	var last time.Time
	found, err := r.Setting(ctx, keyLastActivity, &last)
	if err != nil {
		return u, err
	}
	if found {
		u.LastActivity = &last
	}
	if u.Sessions > 0 {
		u.AverageSessionTime = u.TotalUsage / u.Sessions
	}
	return u, nil
}

func (r *Repository) incr(ctx context.Context, key string, by int64) error {
	var n int64
	if _, err := r.Setting(ctx, key, &n); err != nil {
		return err
	}
	return r.SetSetting(ctx, key, n+by)
}
