package model

import (
	"testing"
	"time"

	"github.com/camda/countdown/internal/recurrence"
)

func TestParseLocalTime(t *testing.T) {
	got, err := ParseLocalTime("2024-03-15T09:30")
	if err != nil {
		t.Fatalf("ParseLocalTime() error = %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 15 {
		t.Errorf("date = %v, want 2024-03-15", got)
	}
	if got.Hour() != 9 || got.Minute() != 30 {
		t.Errorf("time = %02d:%02d, want 09:30", got.Hour(), got.Minute())
	}
	if got.Location() != time.Local {
		t.Errorf("location = %v, want local", got.Location())
	}

	if _, err := ParseLocalTime("2024-03-15 09:30:00"); err == nil {
		t.Error("ParseLocalTime accepted a non-wall-clock format")
	}
}

func TestEventRuleMapping(t *testing.T) {
	month := 10 // stored 0-11, November
	week := 4
	weekday := 4 // Thursday
	e := Event{
		Recurrence:  "yearly_nth_weekday",
		Month:       &month,
		WeekOfMonth: &week,
		Weekday:     &weekday,
	}

	r := e.Rule()
	if r.Kind != recurrence.YearlyNthWeekday {
		t.Errorf("Kind = %v, want YearlyNthWeekday", r.Kind)
	}
	if r.Month != time.November {
		t.Errorf("Month = %v, want November", r.Month)
	}
	if r.WeekOfMonth != 4 {
		t.Errorf("WeekOfMonth = %d, want 4", r.WeekOfMonth)
	}
	if r.Weekday == nil || *r.Weekday != time.Thursday {
		t.Errorf("Weekday = %v, want Thursday", r.Weekday)
	}
}

func TestEventRuleUnsetFieldsStayZero(t *testing.T) {
	e := Event{Recurrence: "monthly_nth_weekday"}
	r := e.Rule()
	if r.Weekday != nil {
		t.Errorf("Weekday = %v, want nil for unset column", r.Weekday)
	}
	if r.Month != 0 || r.WeekOfMonth != 0 || r.DayOfMonth != 0 {
		t.Errorf("unset parameters = %v/%d/%d, want zero", r.Month, r.WeekOfMonth, r.DayOfMonth)
	}
}

func TestDueOccurrenceAdvancesPastCheckpoint(t *testing.T) {
	checkpoint := "2024-03-05T08:00"
	e := Event{
		Anchor:           "2024-03-01T08:00",
		Recurrence:       "daily",
		CompletedThrough: &checkpoint,
	}

	got := FormatLocalTime(e.DueOccurrence())
	if got != "2024-03-06T08:00" {
		t.Errorf("DueOccurrence() = %q, want %q", got, "2024-03-06T08:00")
	}
}

func TestDueOccurrenceWithoutCheckpoint(t *testing.T) {
	e := Event{Anchor: "2030-01-01T12:00", Recurrence: "weekly"}
	got := FormatLocalTime(e.DueOccurrence())
	if got != "2030-01-01T12:00" {
		t.Errorf("DueOccurrence() = %q, want the anchor", got)
	}
}

func TestAnchorTimeUnparseable(t *testing.T) {
	e := Event{Anchor: "not a date"}
	if !e.AnchorTime().IsZero() {
		t.Error("AnchorTime() for a garbage anchor is not zero")
	}
}
