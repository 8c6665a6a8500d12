// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package organizer

import (
	"encoding/json"
	"fmt"
)

// PushPayload is a notification as delivered by the push channel.
type PushPayload struct {
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Tag     string         `json:"tag"`
	Data    map[string]any `json:"data"`
	Actions []PushAction   `json:"actions"`
}

// PushAction is a button shown with a notification.
type PushAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification actions. A click on the notification body carries no action
// and opens the target view like ActionOpen.
const (
	ActionOpen         = "open"
	ActionViewTask     = "view-task"
	ActionViewSchedule = "view-schedule"
	ActionDismiss      = "dismiss"
	ActionClose        = "close"
)

// NotificationTarget maps a clicked notification to the view that should be
// opened. It returns "" when the click should only close the notification.
func NotificationTarget(p PushPayload, action string) string {
	if action == ActionDismiss || action == ActionClose {
		return ""
	}
	if url, ok := p.Data["url"].(string); ok && url != "" {
		return url
	}
	if id, ok := refID(p.Data["taskId"]); ok {
		return fmt.Sprintf("/tasks/%s", id)
	}
	if id, ok := refID(p.Data["scheduleId"]); ok {
		return fmt.Sprintf("/schedule/%s", id)
	}
	return "/"
}

func refID(v any) (string, bool) {
	switch id := v.(type) {
	case nil:
		return "", false
	case string:
		return id, id != ""
	case json.Number:
		return id.String(), true
	case float64:
		return fmt.Sprintf("%d", int64(id)), true
	case int64:
		return fmt.Sprintf("%d", id), true
	case int:
		return fmt.Sprintf("%d", id), true
	}
	return "", false
}
