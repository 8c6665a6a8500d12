// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package organizer

import (
	"time"
)

// Priority ranks tasks and goals.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Subject is a course the user is enrolled in.
type Subject struct {
	ID          int64     `json:"id,omitempty" yaml:"id"`
	Name        string    `json:"name" yaml:"name" validate:"required"`
	Code        string    `json:"code" yaml:"code" validate:"required"`
	CreditHours int       `json:"creditHours" yaml:"creditHours" validate:"gte=1"`
	Instructor  string    `json:"instructor,omitempty" yaml:"instructor,omitempty"`
	Semester    string    `json:"semester,omitempty" yaml:"semester,omitempty"`
	Grade       string    `json:"grade,omitempty" yaml:"grade,omitempty"` // letter grade, e.g. "B+"
	GPA         *float64  `json:"gpa,omitempty" yaml:"gpa,omitempty" validate:"omitempty,gte=0,lte=4"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

// Task is a dated piece of work, usually tied to a subject.
type Task struct {
	ID          int64      `json:"id,omitempty" yaml:"id"`
	Title       string     `json:"title" yaml:"title" validate:"required"`
	SubjectID   int64      `json:"subjectId,omitempty" yaml:"subjectId,omitempty"`
	DueDate     time.Time  `json:"dueDate" yaml:"dueDate"`
	Priority    Priority   `json:"priority" yaml:"priority" validate:"oneof=low medium high"`
	Completed   bool       `json:"completed" yaml:"completed"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
}

// ScheduleItem is a weekly recurring class slot.
type ScheduleItem struct {
	ID        int64  `json:"id,omitempty" yaml:"id"`
	SubjectID int64  `json:"subjectId,omitempty" yaml:"subjectId,omitempty"`
	DayOfWeek int    `json:"dayOfWeek" yaml:"dayOfWeek" validate:"gte=0,lte=6"` // 0 = Sunday
	StartTime string `json:"startTime" yaml:"startTime" validate:"clock"`
	EndTime   string `json:"endTime,omitempty" yaml:"endTime,omitempty" validate:"omitempty,clock"`
	Room      string `json:"room,omitempty" yaml:"room,omitempty"`
}

// FileRecord describes an uploaded file. Content is not stored.
type FileRecord struct {
	ID         int64     `json:"id,omitempty" yaml:"id"`
	SubjectID  int64     `json:"subjectId,omitempty" yaml:"subjectId,omitempty"`
	Name       string    `json:"name" yaml:"name" validate:"required"`
	Type       string    `json:"type" yaml:"type"`
	UploadDate time.Time `json:"uploadDate" yaml:"uploadDate"`
	Size       int64     `json:"size" yaml:"size" validate:"gte=0"`
}

// Grade is a single assessment result.
type Grade struct {
	ID        int64     `json:"id,omitempty" yaml:"id"`
	SubjectID int64     `json:"subjectId,omitempty" yaml:"subjectId,omitempty"`
	Type      string    `json:"type" yaml:"type" validate:"required"` // exam, quiz, assignment...
	Date      time.Time `json:"date" yaml:"date"`
	Value     float64   `json:"value" yaml:"value" validate:"gte=0"`
	MaxValue  float64   `json:"maxValue,omitempty" yaml:"maxValue,omitempty" validate:"gte=0"`
}

// Note is free text attached to a subject.
type Note struct {
	ID        int64     `json:"id,omitempty" yaml:"id"`
	SubjectID int64     `json:"subjectId,omitempty" yaml:"subjectId,omitempty"`
	Title     string    `json:"title" yaml:"title" validate:"required"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Goal is a personal target with an optional deadline.
type Goal struct {
	ID          int64      `json:"id,omitempty" yaml:"id"`
	Title       string     `json:"title" yaml:"title" validate:"required"`
	TargetDate  time.Time  `json:"targetDate" yaml:"targetDate"`
	Completed   bool       `json:"completed" yaml:"completed"`
	Priority    Priority   `json:"priority" yaml:"priority" validate:"oneof=low medium high"`
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
}

// Setting is a single key/value preference.
type Setting struct {
	Key   string `json:"key" yaml:"key" validate:"required"`
	Value any    `json:"value" yaml:"value"`
}

func (s *Subject) key() int64      { return s.ID }
func (s *Subject) setKey(id int64) { s.ID = id }

func (t *Task) key() int64      { return t.ID }
func (t *Task) setKey(id int64) { t.ID = id }

func (s *ScheduleItem) key() int64      { return s.ID }
func (s *ScheduleItem) setKey(id int64) { s.ID = id }

func (f *FileRecord) key() int64      { return f.ID }
func (f *FileRecord) setKey(id int64) { f.ID = id }

func (g *Grade) key() int64      { return g.ID }
func (g *Grade) setKey(id int64) { g.ID = id }

func (n *Note) key() int64      { return n.ID }
func (n *Note) setKey(id int64) { n.ID = id }

func (g *Goal) key() int64      { return g.ID }
func (g *Goal) setKey(id int64) { g.ID = id }

// Statistics summarizes the whole store.
type Statistics struct {
	Subjects struct {
		Total       int `json:"total" yaml:"total"`
		CreditHours int `json:"creditHours" yaml:"creditHours"`
	} `json:"subjects" yaml:"subjects"`
	Tasks struct {
		Total     int `json:"total" yaml:"total"`
		Completed int `json:"completed" yaml:"completed"`
		Pending   int `json:"pending" yaml:"pending"`
		Overdue   int `json:"overdue" yaml:"overdue"`
	} `json:"tasks" yaml:"tasks"`
	Files struct {
		Total int   `json:"total" yaml:"total"`
		Size  int64 `json:"size" yaml:"size"`
	} `json:"files" yaml:"files"`
	Grades struct {
		Total   int     `json:"total" yaml:"total"`
		Average float64 `json:"average" yaml:"average"` // GPA
	} `json:"grades" yaml:"grades"`
	Storage *StorageUsage `json:"storage,omitempty" yaml:"storage,omitempty"`
	Usage   UsageStats    `json:"usage" yaml:"usage"`
}

// StorageUsage reports the substrate size against the configured quota.
type StorageUsage struct {
	Used       int64 `json:"used" yaml:"used"`
	Quota      int64 `json:"quota" yaml:"quota"`
	Percentage int   `json:"percentage" yaml:"percentage"`
}

// UsageStats are the activity counters kept in settings.
type UsageStats struct {
	Sessions           int64      `json:"sessions" yaml:"sessions"`
	TasksCreated       int64      `json:"tasksCreated" yaml:"tasksCreated"`
	SubjectsCreated    int64      `json:"subjectsCreated" yaml:"subjectsCreated"`
	LastActivity       *time.Time `json:"lastActivity,omitempty" yaml:"lastActivity,omitempty"`
	TotalUsage         int64      `json:"totalUsage" yaml:"totalUsage"` // seconds
	AverageSessionTime int64      `json:"averageSessionTime" yaml:"averageSessionTime"`
}
