// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package organizer

import "github.com/mtreilly/arc-organizer/internal/records"

// Collection names. They double as the keys of an export snapshot.
const (
	Subjects = "subjects"
	Tasks    = "tasks"
	Schedule = "schedule"
	Files    = "files"
	Grades   = "grades"
	Notes    = "notes"
	Goals    = "goals"
	Settings = "settings"
)

// SchemaVersion is the on-disk layout version written by this build.
const SchemaVersion = 2

// Schema declares the organizer collections and their indexes.
// Version 2 added the notes.updatedAt index.
func Schema() records.Schema {
	auto := func(name string, idx ...records.Index) records.Collection {
		return records.Collection{Name: name, KeyPath: "id", AutoIncrement: true, Indexes: idx}
	}
	ix := func(field string) records.Index {
		return records.Index{Name: field, Field: field}
	}
	return records.Schema{
		Name:    "organizer",
		Version: SchemaVersion,
		Collections: []records.Collection{
			auto(Subjects,
				records.Index{Name: "code", Field: "code", Unique: true},
				ix("semester"), ix("createdAt")),
			auto(Tasks, ix("subjectId"), ix("dueDate"), ix("priority"), ix("completed"), ix("createdAt")),
			auto(Schedule, ix("subjectId"), ix("dayOfWeek"), ix("startTime")),
			auto(Files, ix("subjectId"), ix("type"), ix("uploadDate")),
			auto(Grades, ix("subjectId"), ix("type"), ix("date")),
			auto(Notes, ix("subjectId"), ix("createdAt"),
				records.Index{Name: "updatedAt", Field: "updatedAt", Since: 2}),
			auto(Goals, ix("targetDate"), ix("completed"), ix("priority")),
			{Name: Settings, KeyPath: "key"},
		},
	}
}

// children are the collections that reference subjects by subjectId.
var children = []string{Tasks, Schedule, Files, Grades, Notes}
