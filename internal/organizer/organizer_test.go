// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package organizer

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mtreilly/arc-organizer/internal/kv"
	"github.com/mtreilly/arc-organizer/internal/records"
)

var testNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T, substrate kv.Store) *Repository {
	t.Helper()
	if substrate == nil {
		substrate = kv.NewMemoryStore()
	}
	repo, err := Open(context.Background(), substrate, zaptest.NewLogger(t),
		WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return repo
}

func mustAddSubject(t *testing.T, repo *Repository, code string) *Subject {
	t.Helper()
	s := &Subject{Name: "Subject " + code, Code: code, CreditHours: 3, Semester: "Spring"}
	if _, err := repo.AddSubject(context.Background(), s); err != nil {
		t.Fatalf("AddSubject: %v", err)
	}
	return s
}

func seedChildren(t *testing.T, repo *Repository, subjectID int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := repo.AddTask(ctx, &Task{Title: "homework", SubjectID: subjectID, DueDate: testNow.Add(time.Hour)}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := repo.AddScheduleItem(ctx, &ScheduleItem{SubjectID: subjectID, DayOfWeek: 1, StartTime: "09:00", Room: "B12"}); err != nil {
		t.Fatalf("AddScheduleItem: %v", err)
	}
	if _, err := repo.AddFile(ctx, &FileRecord{SubjectID: subjectID, Name: "slides.pdf", Type: "pdf", Size: 2048}); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if _, err := repo.AddGrade(ctx, &Grade{SubjectID: subjectID, Type: "exam", Value: 18, MaxValue: 20}); err != nil {
		t.Fatalf("AddGrade: %v", err)
	}
	if _, err := repo.AddNote(ctx, &Note{SubjectID: subjectID, Title: "lecture 1", Content: "limits"}); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
}

func childCount(t *testing.T, repo *Repository, subjectID int64) int {
	t.Helper()
	n := 0
	for _, coll := range children {
		recs, err := repo.Store().GetByIndex(context.Background(), coll, "subjectId", subjectID)
		if err != nil {
			t.Fatalf("GetByIndex %s: %v", coll, err)
		}
		n += len(recs)
	}
	return n
}

func TestDeleteSubjectCascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)

	math101 := mustAddSubject(t, repo, "MATH101")
	phys := mustAddSubject(t, repo, "PHYS200")
	seedChildren(t, repo, math101.ID)
	seedChildren(t, repo, math101.ID)
	seedChildren(t, repo, phys.ID)

	if err := repo.DeleteSubject(ctx, math101.ID); err != nil {
		t.Fatalf("DeleteSubject: %v", err)
	}
	if n := childCount(t, repo, math101.ID); n != 0 {
		t.Fatalf("orphans after cascade: %d", n)
	}
	if s, _ := repo.GetSubject(ctx, math101.ID); s != nil {
		t.Fatalf("subject still present: %+v", s)
	}
	if n := childCount(t, repo, phys.ID); n != 5 {
		t.Fatalf("other subject's children: got %d, want 5", n)
	}
}

func TestDeleteSubjectMissingIsNoop(t *testing.T) {
	repo := newTestRepo(t, nil)
	for i := 0; i < 2; i++ {
		if err := repo.DeleteSubject(context.Background(), 999); err != nil {
			t.Fatalf("DeleteSubject #%d: %v", i, err)
		}
	}
}

// faultyStore fails deletes of keys under prefix inside transactions, and
// writes too when sets is true.
type faultyStore struct {
	kv.Store
	prefix string
	sets   bool
}

func (f faultyStore) Update(ctx context.Context, fn func(tx kv.Tx) error) error {
	return f.Store.Update(ctx, func(tx kv.Tx) error {
		return fn(faultyTx{Tx: tx, prefix: f.prefix, sets: f.sets})
	})
}

type faultyTx struct {
	kv.Tx
	prefix string
	sets   bool
}

func (t faultyTx) Delete(ctx context.Context, key string) error {
	if strings.HasPrefix(key, t.prefix) {
		return errors.New("medium unavailable")
	}
	return t.Tx.Delete(ctx, key)
}

func (t faultyTx) Set(ctx context.Context, key string, value []byte) error {
	if t.sets && strings.HasPrefix(key, t.prefix) {
		return errors.New("medium unavailable")
	}
	return t.Tx.Set(ctx, key, value)
}

func TestDeleteSubjectReportsCascadeFault(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, faultyStore{Store: kv.NewMemoryStore(), prefix: "organizer:rec:grades:"})

	s := mustAddSubject(t, repo, "CHEM1")
	seedChildren(t, repo, s.ID)

	err := repo.DeleteSubject(ctx, s.ID)
	var cf *CascadeFault
	if !errors.As(err, &cf) {
		t.Fatalf("DeleteSubject: got %v, want CascadeFault", err)
	}
	if cf.SubjectID != s.ID || len(cf.Failures) != 1 || cf.Failures[0].Collection != Grades {
		t.Fatalf("fault: %+v", cf)
	}
	var sf *records.StorageFault
	if !errors.As(err, &sf) {
		t.Fatalf("cascade fault should unwrap to the storage fault, got %v", err)
	}

	// succeeded branches stay applied
	tasks, _ := repo.TasksBySubject(ctx, s.ID)
	if len(tasks) != 0 {
		t.Fatalf("tasks not deleted: %d", len(tasks))
	}
	grades, _ := repo.GradesBySubject(ctx, s.ID)
	if len(grades) != 1 {
		t.Fatalf("failed branch: got %d grades, want 1", len(grades))
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestRepo(t, nil)

	a := mustAddSubject(t, src, "A1")
	b := mustAddSubject(t, src, "B2")
	seedChildren(t, src, a.ID)
	seedChildren(t, src, b.ID)
	if _, err := src.AddGoal(ctx, &Goal{Title: "graduate", TargetDate: testNow.AddDate(1, 0, 0)}); err != nil {
		t.Fatalf("AddGoal: %v", err)
	}
	if err := src.SetSetting(ctx, "theme", "dark"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}

	snap, err := src.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, snap); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	parsed, err := ReadSnapshot(&buf)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}

	dst := newTestRepo(t, nil)
	mustAddSubject(t, dst, "STALE")
	if err := dst.Import(ctx, parsed); err != nil {
		t.Fatalf("Import: %v", err)
	}

	for _, coll := range src.Store().Collections() {
		want, _ := src.Store().Count(ctx, coll)
		got, _ := dst.Store().Count(ctx, coll)
		if got != want {
			t.Fatalf("%s: got %d records, want %d", coll, got, want)
		}
	}
	if s, _ := dst.SubjectByCode(ctx, "STALE"); s != nil {
		t.Fatal("import should replace existing data")
	}

	// children follow their subject through id reassignment
	for _, code := range []string{"A1", "B2"} {
		s, err := dst.SubjectByCode(ctx, code)
		if err != nil || s == nil {
			t.Fatalf("SubjectByCode %s: %v %v", code, s, err)
		}
		if n := childCount(t, dst, s.ID); n != 5 {
			t.Fatalf("%s children after import: got %d, want 5", code, n)
		}
		orig, _ := src.SubjectByCode(ctx, code)
		if s.Name != orig.Name || s.CreditHours != orig.CreditHours || !s.CreatedAt.Equal(orig.CreatedAt) {
			t.Fatalf("subject fields differ: %+v vs %+v", s, orig)
		}
	}

	srcTasks, _ := src.ListTasks(ctx)
	dstTasks, _ := dst.ListTasks(ctx)
	for i := range srcTasks {
		if srcTasks[i].Title != dstTasks[i].Title || !srcTasks[i].DueDate.Equal(dstTasks[i].DueDate) {
			t.Fatalf("task %d differs: %+v vs %+v", i, srcTasks[i], dstTasks[i])
		}
	}

	var theme string
	if ok, err := dst.Setting(ctx, "theme", &theme); err != nil || !ok || theme != "dark" {
		t.Fatalf("theme after import: %q %v %v", theme, ok, err)
	}
}

func TestImportMalformedLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)
	mustAddSubject(t, repo, "KEEP")

	snap := &Snapshot{
		Version: SchemaVersion,
		Data: map[string][]records.Record{
			Subjects: {{"name": "ok", "code": "OK1", "creditHours": 3}},
			Tasks:    {{"title": "", "priority": "urgent"}},
		},
	}
	err := repo.Import(ctx, snap)
	if !errors.Is(err, ErrMalformedSnapshot) {
		t.Fatalf("Import: got %v, want ErrMalformedSnapshot", err)
	}
	if s, _ := repo.SubjectByCode(ctx, "KEEP"); s == nil {
		t.Fatal("store was cleared by a rejected import")
	}

	if _, err := ReadSnapshot(strings.NewReader(`{"version": 1}`)); !errors.Is(err, ErrMalformedSnapshot) {
		t.Fatalf("ReadSnapshot without data: got %v", err)
	}
}

func TestImportRejectsDuplicateCodes(t *testing.T) {
	repo := newTestRepo(t, nil)
	snap := &Snapshot{Data: map[string][]records.Record{
		Subjects: {
			{"name": "a", "code": "X", "creditHours": 1},
			{"name": "b", "code": "X", "creditHours": 1},
		},
	}}
	if err := repo.Import(context.Background(), snap); !errors.Is(err, ErrMalformedSnapshot) {
		t.Fatalf("Import: got %v, want ErrMalformedSnapshot", err)
	}
}

func TestImportWriteFailureReportsImportFault(t *testing.T) {
	ctx := context.Background()
	src := newTestRepo(t, nil)
	a := mustAddSubject(t, src, "MATH1")
	mustAddSubject(t, src, "PHYS1")
	seedChildren(t, src, a.ID)
	snap, err := src.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	repo := newTestRepo(t, faultyStore{Store: kv.NewMemoryStore(), prefix: "organizer:rec:tasks:", sets: true})
	err = repo.Import(ctx, snap)
	var fault *ImportFault
	if !errors.As(err, &fault) {
		t.Fatalf("Import: got %v, want ImportFault", err)
	}
	if fault.Collection != Tasks || fault.Imported != 2 {
		t.Fatalf("fault: %+v", fault)
	}
	var sf *records.StorageFault
	if !errors.As(err, &sf) {
		t.Fatalf("import fault should unwrap to the storage fault, got %v", err)
	}

	// collections written before the failure stay populated
	subjects, _ := repo.ListSubjects(ctx)
	if len(subjects) != 2 {
		t.Fatalf("subjects after failed import: got %d, want 2", len(subjects))
	}
	tasks, _ := repo.ListTasks(ctx)
	if len(tasks) != 0 {
		t.Fatalf("tasks after failed import: got %d", len(tasks))
	}
}

func TestUpcomingTasksOrdering(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)

	due := []time.Duration{time.Hour, 72 * time.Hour, 24 * time.Hour}
	for i, d := range due {
		if _, err := repo.AddTask(ctx, &Task{Title: string(rune('a' + i)), DueDate: testNow.Add(d)}); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
	}
	done := &Task{Title: "done", DueDate: testNow.Add(2 * time.Hour), Completed: true}
	if _, err := repo.AddTask(ctx, done); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := repo.AddTask(ctx, &Task{Title: "late", DueDate: testNow.Add(-time.Hour)}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	got, err := repo.UpcomingTasks(ctx, 10)
	if err != nil {
		t.Fatalf("UpcomingTasks: %v", err)
	}
	var titles []string
	for _, task := range got {
		titles = append(titles, task.Title)
	}
	if strings.Join(titles, ",") != "a,c,b" {
		t.Fatalf("UpcomingTasks order: got %v, want [a c b]", titles)
	}

	if got, _ := repo.UpcomingTasks(ctx, 2); len(got) != 2 {
		t.Fatalf("UpcomingTasks(2): got %d", len(got))
	}
}

func TestOverdueTasksLatestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)
	for _, d := range []time.Duration{-72 * time.Hour, -time.Hour, -24 * time.Hour} {
		if _, err := repo.AddTask(ctx, &Task{Title: d.String(), DueDate: testNow.Add(d)}); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
	}
	got, err := repo.OverdueTasks(ctx)
	if err != nil {
		t.Fatalf("OverdueTasks: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("OverdueTasks: got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].DueDate.After(got[i-1].DueDate) {
			t.Fatalf("OverdueTasks not descending: %v then %v", got[i-1].DueDate, got[i].DueDate)
		}
	}
}

func TestUndatedTaskIsNeitherUpcomingNorOverdue(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)
	if _, err := repo.AddTask(ctx, &Task{Title: "Read chapter 5", Priority: PriorityHigh}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	if got, err := repo.OverdueTasks(ctx); err != nil || len(got) != 0 {
		t.Fatalf("OverdueTasks: %d %v", len(got), err)
	}
	if got, err := repo.UpcomingTasks(ctx, 0); err != nil || len(got) != 0 {
		t.Fatalf("UpcomingTasks: %d %v", len(got), err)
	}
	st, err := repo.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if st.Tasks.Overdue != 0 || st.Tasks.Pending != 1 {
		t.Fatalf("unexpected task stats %+v", st.Tasks)
	}
}

func TestTodaySchedule(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)
	today := int(testNow.Local().Weekday())
	other := (today + 1) % 7

	for _, item := range []*ScheduleItem{
		{DayOfWeek: today, StartTime: "14:00"},
		{DayOfWeek: other, StartTime: "08:00"},
		{DayOfWeek: today, StartTime: "09:30"},
	} {
		if _, err := repo.AddScheduleItem(ctx, item); err != nil {
			t.Fatalf("AddScheduleItem: %v", err)
		}
	}
	got, err := repo.TodaySchedule(ctx)
	if err != nil {
		t.Fatalf("TodaySchedule: %v", err)
	}
	if len(got) != 2 || got[0].StartTime != "09:30" || got[1].StartTime != "14:00" {
		t.Fatalf("TodaySchedule: got %+v", got)
	}
}

func TestMarkTaskComplete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)
	if err := repo.MarkTaskComplete(ctx, 42); err != nil {
		t.Fatalf("MarkTaskComplete missing: %v", err)
	}
	task := &Task{Title: "essay", DueDate: testNow}
	id, _ := repo.AddTask(ctx, task)
	if err := repo.MarkTaskComplete(ctx, id); err != nil {
		t.Fatalf("MarkTaskComplete: %v", err)
	}
	got, _ := repo.GetTask(ctx, id)
	if !got.Completed || got.CompletedAt == nil || !got.CompletedAt.Equal(testNow) {
		t.Fatalf("task after completion: %+v", got)
	}
	done, _ := repo.Store().GetByIndex(ctx, Tasks, "completed", true)
	if len(done) != 1 {
		t.Fatalf("completed index: got %d", len(done))
	}
}

func TestUpdateNoteBumpsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	now := testNow
	repo, err := Open(ctx, kv.NewMemoryStore(), zaptest.NewLogger(t),
		WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	n := &Note{Title: "draft"}
	if _, err := repo.AddNote(ctx, n); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	now = now.Add(time.Hour)
	n.Content = "more"
	if err := repo.UpdateNote(ctx, n); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	got, _ := repo.GetNote(ctx, n.ID)
	if !got.UpdatedAt.Equal(now) || !got.CreatedAt.Equal(testNow) {
		t.Fatalf("note times: created %v updated %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestValidationRejectsBadRecords(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)
	cases := []struct {
		name string
		add  func() error
	}{
		{"subject without code", func() error {
			_, err := repo.AddSubject(ctx, &Subject{Name: "x", CreditHours: 3})
			return err
		}},
		{"zero credit hours", func() error {
			_, err := repo.AddSubject(ctx, &Subject{Name: "x", Code: "X"})
			return err
		}},
		{"bad priority", func() error {
			_, err := repo.AddTask(ctx, &Task{Title: "x", Priority: "urgent"})
			return err
		}},
		{"bad start time", func() error {
			_, err := repo.AddScheduleItem(ctx, &ScheduleItem{DayOfWeek: 1, StartTime: "9:00"})
			return err
		}},
		{"day out of range", func() error {
			_, err := repo.AddScheduleItem(ctx, &ScheduleItem{DayOfWeek: 7, StartTime: "09:00"})
			return err
		}},
	}
	for _, tc := range cases {
		if err := tc.add(); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: got %v, want ErrInvalid", tc.name, err)
		}
	}
	if err := repo.UpdateTask(ctx, &Task{Title: "x"}); !errors.Is(err, ErrNoID) {
		t.Fatalf("UpdateTask without id: got %v", err)
	}
}

func TestDuplicateSubjectCode(t *testing.T) {
	repo := newTestRepo(t, nil)
	mustAddSubject(t, repo, "DUP")
	_, err := repo.AddSubject(context.Background(), &Subject{Name: "again", Code: "DUP", CreditHours: 2})
	var uf *records.UniquenessFault
	if !errors.As(err, &uf) {
		t.Fatalf("AddSubject duplicate: got %v, want UniquenessFault", err)
	}
}

func TestCalculateGPA(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	got := CalculateGPA([]*Subject{
		{GPA: f(4.0), CreditHours: 3},
		{GPA: nil, CreditHours: 3},
		{GPA: f(3.0), CreditHours: 2},
	})
	if math.Abs(got-3.6) > 1e-9 {
		t.Fatalf("CalculateGPA: got %v, want 3.6", got)
	}
	if got := CalculateGPA(nil); got != 0 {
		t.Fatalf("CalculateGPA(nil): got %v", got)
	}
	if got := CalculateGPA([]*Subject{{CreditHours: 3}}); got != 0 {
		t.Fatalf("CalculateGPA without grades: got %v", got)
	}
	if got := CalculateGPA([]*Subject{{Grade: "B", CreditHours: 4}, {GPA: f(0), CreditHours: 4}}); math.Abs(got-1.5) > 1e-9 {
		t.Fatalf("CalculateGPA letter and zero gpa: got %v, want 1.5", got)
	}
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)
	s := mustAddSubject(t, repo, "ST1")
	seedChildren(t, repo, s.ID)
	if _, err := repo.AddTask(ctx, &Task{Title: "late", DueDate: testNow.Add(-time.Hour)}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := repo.AddTask(ctx, &Task{Title: "done", DueDate: testNow.Add(-time.Hour), Completed: true}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	st, err := repo.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if st.Subjects.Total != 1 || st.Subjects.CreditHours != 3 {
		t.Fatalf("subjects: %+v", st.Subjects)
	}
	if st.Tasks.Total != 3 || st.Tasks.Completed != 1 || st.Tasks.Pending != 2 || st.Tasks.Overdue != 1 {
		t.Fatalf("tasks: %+v", st.Tasks)
	}
	if st.Files.Total != 1 || st.Files.Size != 2048 {
		t.Fatalf("files: %+v", st.Files)
	}
	if st.Grades.Total != 1 {
		t.Fatalf("grades: %+v", st.Grades)
	}
	if st.Storage == nil || st.Storage.Used <= 0 {
		t.Fatalf("storage usage: %+v", st.Storage)
	}
	if st.Usage.TasksCreated != 3 || st.Usage.SubjectsCreated != 1 {
		t.Fatalf("usage: %+v", st.Usage)
	}
}

func TestUsageStats(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)
	for i := 0; i < 2; i++ {
		if err := repo.StartSession(ctx); err != nil {
			t.Fatalf("StartSession: %v", err)
		}
	}
	if err := repo.AddUsage(ctx, 90*time.Second); err != nil {
		t.Fatalf("AddUsage: %v", err)
	}
	repo.LogActivity(ctx, "data_export")

	u, err := repo.UsageStats(ctx)
	if err != nil {
		t.Fatalf("UsageStats: %v", err)
	}
	if u.Sessions != 2 || u.TotalUsage != 90 || u.AverageSessionTime != 45 {
		t.Fatalf("usage: %+v", u)
	}
	if u.LastActivity == nil || !u.LastActivity.Equal(testNow) {
		t.Fatalf("last activity: %v", u.LastActivity)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)

	var v map[string]any
	if ok, err := repo.Setting(ctx, "missing", &v); ok || err != nil {
		t.Fatalf("Setting missing: %v %v", ok, err)
	}
	if err := repo.SetSetting(ctx, "reminders", map[string]any{"enabled": true, "minutes": 15}); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if ok, err := repo.Setting(ctx, "reminders", &v); !ok || err != nil {
		t.Fatalf("Setting: %v %v", ok, err)
	}
	if v["enabled"] != true {
		t.Fatalf("reminders: %v", v)
	}
	if err := repo.DeleteSetting(ctx, "reminders"); err != nil {
		t.Fatalf("DeleteSetting: %v", err)
	}
	if err := repo.DeleteSetting(ctx, "reminders"); err != nil {
		t.Fatalf("DeleteSetting twice: %v", err)
	}
}

func TestGoals(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)
	a := &Goal{Title: "read 10 books"}
	b := &Goal{Title: "learn Go", Priority: PriorityHigh}
	_, _ = repo.AddGoal(ctx, a)
	_, _ = repo.AddGoal(ctx, b)
	if err := repo.MarkGoalComplete(ctx, a.ID); err != nil {
		t.Fatalf("MarkGoalComplete: %v", err)
	}
	active, err := repo.ActiveGoals(ctx)
	if err != nil {
		t.Fatalf("ActiveGoals: %v", err)
	}
	if len(active) != 1 || active[0].ID != b.ID {
		t.Fatalf("ActiveGoals: %+v", active)
	}
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, nil)
	s := mustAddSubject(t, repo, "CSV1")
	if _, err := repo.AddTask(ctx, &Task{Title: "report", SubjectID: s.ID, DueDate: testNow}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	var buf bytes.Buffer
	if err := repo.ExportCSV(ctx, &buf); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Subjects\n", "Subject CSV1,CSV1,3,,Spring\n", "report,CSV1,2025-03-12T10:00:00Z,medium,no\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("CSV missing %q:\n%s", want, out)
		}
	}
}

func TestSchemaUpgradeBackfillsNoteIndex(t *testing.T) {
	ctx := context.Background()
	substrate := kv.NewMemoryStore()

	v1 := Schema()
	v1.Version = 1
	for i := range v1.Collections {
		if v1.Collections[i].Name == Notes {
			v1.Collections[i].Indexes = v1.Collections[i].Indexes[:2]
		}
	}
	old, err := records.Open(ctx, substrate, v1, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open v1: %v", err)
	}
	rec, _ := records.Encode(&Note{Title: "kept", CreatedAt: testNow, UpdatedAt: testNow})
	if _, err := old.Add(ctx, Notes, rec); err != nil {
		t.Fatalf("Add: %v", err)
	}

	repo := newTestRepo(t, substrate)
	got, err := repo.Store().GetByIndex(ctx, Notes, "updatedAt", testNow)
	if err != nil {
		t.Fatalf("GetByIndex: %v", err)
	}
	if len(got) != 1 || got[0]["title"] != "kept" {
		t.Fatalf("backfilled index: got %v", got)
	}
}

func TestNotificationTarget(t *testing.T) {
	cases := []struct {
		payload PushPayload
		action  string
		want    string
	}{
		{PushPayload{Data: map[string]any{"taskId": float64(7)}}, "", "/tasks/7"},
		{PushPayload{Data: map[string]any{"scheduleId": "3"}}, ActionOpen, "/schedule/3"},
		{PushPayload{Data: map[string]any{"url": "/grades"}}, "", "/grades"},
		{PushPayload{}, "", "/"},
		{PushPayload{Data: map[string]any{"taskId": 1}}, ActionViewTask, "/tasks/1"},
		{PushPayload{Data: map[string]any{"taskId": 1}}, ActionDismiss, ""},
	}
	for _, tc := range cases {
		if got := NotificationTarget(tc.payload, tc.action); got != tc.want {
			t.Errorf("NotificationTarget(%v, %q) = %q, want %q", tc.payload.Data, tc.action, got, tc.want)
		}
	}
}
