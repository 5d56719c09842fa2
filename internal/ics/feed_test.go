package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/camda/countdown/internal/model"
	"github.com/camda/countdown/internal/recurrence"
)

func wd(d time.Weekday) *time.Weekday { return &d }

func TestRRuleStringSimpleKinds(t *testing.T) {
	anchor := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		rule recurrence.Rule
		want string
	}{
		{"daily", recurrence.Rule{Kind: recurrence.Daily}, "FREQ=DAILY"},
		{"weekly anchored", recurrence.Rule{Kind: recurrence.Weekly}, "FREQ=WEEKLY"},
		{"weekly monday", recurrence.Rule{Kind: recurrence.Weekly, Weekday: wd(time.Monday)}, "FREQ=WEEKLY;BYDAY=MO"},
		{"monthly", recurrence.Rule{Kind: recurrence.Monthly}, "FREQ=MONTHLY"},
		{"yearly", recurrence.Rule{Kind: recurrence.Yearly}, "FREQ=YEARLY"},
		{"none", recurrence.Rule{Kind: recurrence.None}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RRuleString(tt.rule, anchor)
			if got != tt.want {
				t.Errorf("RRuleString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRRuleStringInterval(t *testing.T) {
	anchor := time.Date(2020, 1, 1, 8, 0, 0, 0, time.Local)

	got := RRuleString(recurrence.Rule{Kind: recurrence.Interval, Interval: 3, Unit: recurrence.UnitDay}, anchor)
	if got != "FREQ=DAILY;INTERVAL=3" {
		t.Errorf("RRuleString() = %q, want %q", got, "FREQ=DAILY;INTERVAL=3")
	}

	got = RRuleString(recurrence.Rule{Kind: recurrence.Interval, Interval: 2, Unit: recurrence.UnitWeek}, anchor)
	if got != "FREQ=WEEKLY;INTERVAL=2" {
		t.Errorf("RRuleString() = %q, want %q", got, "FREQ=WEEKLY;INTERVAL=2")
	}
}

func TestRRuleStringNthWeekday(t *testing.T) {
	anchor := time.Date(2024, 11, 28, 12, 0, 0, 0, time.Local)

	got := RRuleString(recurrence.Rule{
		Kind:        recurrence.YearlyNthWeekday,
		Month:       time.November,
		WeekOfMonth: 4,
		Weekday:     wd(time.Thursday),
	}, anchor)
	if got != "FREQ=YEARLY;BYMONTH=11;BYDAY=+4TH" && got != "FREQ=YEARLY;BYMONTH=11;BYDAY=4TH" {
		t.Errorf("RRuleString() = %q, want BYMONTH=11 with 4TH", got)
	}

	// Week 5 renders as the last occurrence of the weekday.
	got = RRuleString(recurrence.Rule{
		Kind:        recurrence.MonthlyNthWeekday,
		WeekOfMonth: 5,
		Weekday:     wd(time.Tuesday),
	}, anchor)
	if !strings.Contains(got, "-1TU") {
		t.Errorf("RRuleString() = %q, want BYDAY=-1TU", got)
	}
}

func TestRRuleStringClampsOutOfRangeParameters(t *testing.T) {
	anchor := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)

	// Persisted columns are not trusted: values outside their valid
	// ranges clamp instead of crashing the feed.
	tests := []struct {
		name string
		rule recurrence.Rule
	}{
		{"weekly weekday 42", recurrence.Rule{Kind: recurrence.Weekly, Weekday: wd(42)}},
		{"weekly weekday -3", recurrence.Rule{Kind: recurrence.Weekly, Weekday: wd(-3)}},
		{"nth weekday out of range", recurrence.Rule{Kind: recurrence.MonthlyNthWeekday, WeekOfMonth: 9, Weekday: wd(42)}},
		{"yearly month 99", recurrence.Rule{Kind: recurrence.YearlyNthWeekday, Month: 99, WeekOfMonth: 2, Weekday: wd(time.Friday)}},
		{"day of month 77", recurrence.Rule{Kind: recurrence.MonthlyDayOfMonth, DayOfMonth: 77}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RRuleString(tt.rule, anchor)
			if got == "" {
				t.Errorf("RRuleString() = %q, want a clamped rule", got)
			}
		})
	}

	got := RRuleString(recurrence.Rule{Kind: recurrence.Weekly, Weekday: wd(42)}, anchor)
	if !strings.Contains(got, "BYDAY=SA") {
		t.Errorf("RRuleString() = %q, want weekday clamped to SA", got)
	}
}

func TestRRuleStringWeekIntervalKeepsWeekday(t *testing.T) {
	anchor := time.Date(2020, 1, 1, 8, 0, 0, 0, time.Local) // a Wednesday

	got := RRuleString(recurrence.Rule{
		Kind:     recurrence.Interval,
		Interval: 2,
		Unit:     recurrence.UnitWeek,
		Weekday:  wd(time.Monday),
	}, anchor)
	if !strings.Contains(got, "FREQ=WEEKLY") || !strings.Contains(got, "INTERVAL=2") || !strings.Contains(got, "BYDAY=MO") {
		t.Errorf("RRuleString() = %q, want weekly interval with BYDAY=MO", got)
	}
}

func TestRRuleStringMonthlyDayOfMonth(t *testing.T) {
	anchor := time.Date(2024, 1, 31, 9, 0, 0, 0, time.Local)
	got := RRuleString(recurrence.Rule{Kind: recurrence.MonthlyDayOfMonth, DayOfMonth: 31}, anchor)
	if got != "FREQ=MONTHLY;BYMONTHDAY=31" {
		t.Errorf("RRuleString() = %q, want %q", got, "FREQ=MONTHLY;BYMONTHDAY=31")
	}
}

func TestFeedContainsEvents(t *testing.T) {
	events := []model.Event{
		{ID: 1, Title: "Trash pickup", Anchor: "2024-03-18T10:00", Recurrence: "weekly", Weekday: intp(1)},
		{ID: 2, Title: "Anniversary", Location: "Home", Anchor: "2024-06-10T18:00", Recurrence: "yearly"},
		{ID: 3, Title: "Broken", Anchor: "not-a-date", Recurrence: "none"},
	}

	out := Feed(events, "Countdown")

	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "END:VCALENDAR") {
		t.Fatal("missing VCALENDAR envelope")
	}
	if !strings.Contains(out, "SUMMARY:Trash pickup") {
		t.Error("missing first event summary")
	}
	if !strings.Contains(out, "UID:event-2@countdown") {
		t.Error("missing second event UID")
	}
	if !strings.Contains(out, "LOCATION:Home") {
		t.Error("missing location")
	}
	if !strings.Contains(out, "FREQ=YEARLY") {
		t.Error("missing yearly RRULE")
	}
	if strings.Contains(out, "Broken") {
		t.Error("unparseable event should be skipped")
	}
}

func intp(v int) *int { return &v }
