package helper

import (
	"testing"
	"time"

	"github.com/relloyd/songlake/logger"
)

func TestEpochMillisToTimeUtc(t *testing.T) {
	log := logger.NewLogger("helper test", "info", true)

	log.Info("Test 1 - epoch millis convert to the expected UTC instant...")
	// 2018-11-21T21:56:47.796Z
	tm := EpochMillisToTimeUtc(1542837407796)
	if tm.Year() != 2018 || tm.Month() != time.November || tm.Day() != 21 {
		t.Fatalf("unexpected date: %v", tm)
	}
	if tm.Hour() != 21 || tm.Minute() != 56 || tm.Second() != 47 {
		t.Fatalf("unexpected time of day: %v", tm)
	}
	if tm.Nanosecond() != 796*1e6 {
		t.Fatalf("expected 796ms fraction, got %v ns", tm.Nanosecond())
	}
	if tm.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", tm.Location())
	}
}

func TestDatePartFromTime(t *testing.T) {
	log := logger.NewLogger("helper test", "info", true)

	log.Info("Test 1 - all parts for a known Wednesday...")
	tm := EpochMillisToTimeUtc(1542837407796) // 2018-11-21 was a Wednesday.
	expected := map[string]int32{
		DatePartHour:    21,
		DatePartDay:     21,
		DatePartWeek:    47,
		DatePartMonth:   11,
		DatePartYear:    2018,
		DatePartWeekday: 4, // Sunday=1 so Wednesday=4.
	}
	for part, want := range expected {
		got, err := DatePartFromTime(tm, part)
		if err != nil {
			t.Fatalf("unexpected error for part %q: %v", part, err)
		}
		if got != want {
			t.Fatalf("part %q: expected %v, got %v", part, want, got)
		}
	}

	log.Info("Test 2 - Sunday maps to weekday 1...")
	sunday := time.Date(2018, 11, 25, 0, 0, 0, 0, time.UTC)
	got, err := DatePartFromTime(sunday, DatePartWeekday)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("expected weekday 1 for Sunday, got %v", got)
	}

	log.Info("Test 3 - unsupported part produces an error...")
	if _, err := DatePartFromTime(tm, "fortnight"); err == nil {
		t.Fatal("expected error for unsupported part")
	}
}
