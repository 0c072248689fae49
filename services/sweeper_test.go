package services

import (
	"testing"
	"time"
)

func TestDayWindow(t *testing.T) {
	now := time.Date(2025, 1, 10, 13, 45, 0, 0, time.UTC)
	start, end := dayWindow(now)

	if !start.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window should start at today's midnight, got %v", start)
	}
	if !end.Equal(time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window should end at tomorrow's midnight, got %v", end)
	}

	// Exam dates parse to midnight; each belongs to exactly one sweep day.
	examToday := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	examTomorrow := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)

	if examToday.Before(start) || !examToday.Before(end) {
		t.Error("today's exam should fall inside the window")
	}
	if examTomorrow.Before(end) {
		t.Error("tomorrow's exam must stay outside the window until its own day")
	}
}

func TestDayWindowAtMidnight(t *testing.T) {
	midnight := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	start, end := dayWindow(midnight)
	if !start.Equal(midnight) {
		t.Fatalf("midnight should anchor its own window, got start %v", start)
	}
	if !midnight.Before(end) {
		t.Fatal("midnight itself belongs to the window")
	}
}
