package controllers

import (
	"math"
	"strings"
	"testing"
	"time"

	"edumesh/models"

	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestDedupeEntries(t *testing.T) {
	entries := []attendanceEntry{
		{StudentID: 1, Status: models.AttendancePresent},
		{StudentID: 2, Status: models.AttendanceAbsent},
		{StudentID: 1, Status: models.AttendanceLate, Notes: "arrived 9:20"},
	}

	out := dedupeEntries(entries)
	if len(out) != 2 {
		t.Fatalf("expected 2 entries after dedupe, got %d", len(out))
	}
	if out[0].StudentID != 1 || out[1].StudentID != 2 {
		t.Fatalf("first-seen order must be preserved: %+v", out)
	}
	// The repeated student's later entry wins.
	if out[0].Status != models.AttendanceLate || out[0].Notes != "arrived 9:20" {
		t.Errorf("expected the last entry for student 1, got %+v", out[0])
	}
}

func TestMarkReplacesDayWithHardDelete(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}

	date := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	stmt := attendanceForDay(db.Session(&gorm.Session{DryRun: true}).Unscoped(), 5, date).
		Delete(&models.Attendance{}).Statement
	sql := stmt.SQL.String()

	// A soft delete would render as UPDATE .. SET deleted_at and leave the
	// old rows behind for the re-insert to collide with.
	if !strings.HasPrefix(sql, "DELETE FROM") {
		t.Fatalf("day replacement must hard-delete, got: %s", sql)
	}
	if !strings.Contains(sql, "class_id = ?") || !strings.Contains(sql, "date = ?") {
		t.Fatalf("delete must be narrowed to one class and date, got: %s", sql)
	}
}

func TestSummarizeAttendance(t *testing.T) {
	rows := []models.Attendance{
		{StudentID: 1, Status: models.AttendancePresent},
		{StudentID: 1, Status: models.AttendancePresent},
		{StudentID: 1, Status: models.AttendanceLate},
		{StudentID: 1, Status: models.AttendanceAbsent},
		{StudentID: 2, Status: models.AttendanceExcused},
		{StudentID: 2, Status: models.AttendancePresent},
	}

	summaries := SummarizeAttendance(rows)
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	first := summaries[0]
	if first.StudentID != 1 {
		t.Fatalf("expected first summary for student 1, got %d", first.StudentID)
	}
	if first.Present != 2 || first.Late != 1 || first.Absent != 1 || first.Total != 4 {
		t.Errorf("unexpected counts: %+v", first)
	}
	// present + late over 4 countable days
	if math.Abs(first.Percentage-75.0) > 0.001 {
		t.Errorf("expected 75%%, got %.2f", first.Percentage)
	}

	second := summaries[1]
	if second.Excused != 1 || second.Present != 1 || second.Total != 2 {
		t.Errorf("unexpected counts: %+v", second)
	}
	// excused days drop out of the denominator
	if math.Abs(second.Percentage-100.0) > 0.001 {
		t.Errorf("expected 100%%, got %.2f", second.Percentage)
	}
}

func TestSummarizeAttendanceAllExcused(t *testing.T) {
	rows := []models.Attendance{
		{StudentID: 3, Status: models.AttendanceExcused},
		{StudentID: 3, Status: models.AttendanceExcused},
	}
	summaries := SummarizeAttendance(rows)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].Percentage != 0 {
		t.Errorf("expected 0%% with no countable days, got %.2f", summaries[0].Percentage)
	}
}

func TestSummarizeAttendanceEmpty(t *testing.T) {
	if got := SummarizeAttendance(nil); len(got) != 0 {
		t.Errorf("expected no summaries, got %v", got)
	}
}
