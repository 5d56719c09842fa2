// Package ics renders the event list as an iCalendar feed so external
// calendar apps can subscribe to it.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/camda/countdown/internal/model"
	"github.com/camda/countdown/internal/recurrence"
)

const eventDuration = time.Hour

// Feed serializes events into an iCalendar document. Events whose anchor
// cannot be parsed are skipped rather than failing the whole feed.
func Feed(events []model.Event, calName string) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(calName)

	now := time.Now()
	for i := range events {
		e := &events[i]
		start := e.AnchorTime()
		if start.IsZero() {
			continue
		}

		ve := cal.AddEvent(fmt.Sprintf("event-%d@countdown", e.ID))
		ve.SetDtStampTime(now)
		ve.SetStartAt(start)
		ve.SetEndAt(start.Add(eventDuration))
		ve.SetSummary(e.Title)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if rr := RRuleString(e.Rule(), start); rr != "" {
			ve.AddRrule(rr)
		}
	}

	return cal.Serialize()
}

// rruleWeekdays maps time.Weekday (Sunday = 0) to rrule weekday constants.
var rruleWeekdays = []rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// weekdayConst clamps persisted weekday values into range before the
// array lookup, the same tolerance the resolver applies. Rules come
// straight from stored columns and must never take the feed down.
func weekdayConst(wd time.Weekday) rrule.Weekday {
	return rruleWeekdays[clampInt(int(wd), 0, 6)]
}

func clampInt(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// RRuleString renders a recurrence rule as an RFC 5545 RRULE value. The
// empty string means the event does not repeat (or the rule cannot be
// expressed, which callers treat the same way).
func RRuleString(r recurrence.Rule, anchor time.Time) string {
	opt, ok := roption(r, anchor)
	if !ok {
		return ""
	}
	if _, err := rrule.NewRRule(opt); err != nil {
		return ""
	}
	return opt.RRuleString()
}

func roption(r recurrence.Rule, anchor time.Time) (rrule.ROption, bool) {
	switch r.Kind {
	case recurrence.Daily:
		return rrule.ROption{Freq: rrule.DAILY}, true
	case recurrence.Weekly:
		opt := rrule.ROption{Freq: rrule.WEEKLY}
		if r.Weekday != nil {
			opt.Byweekday = []rrule.Weekday{weekdayConst(*r.Weekday)}
		}
		return opt, true
	case recurrence.Monthly:
		return rrule.ROption{Freq: rrule.MONTHLY}, true
	case recurrence.Yearly:
		return rrule.ROption{Freq: rrule.YEARLY}, true
	case recurrence.Interval:
		opt := rrule.ROption{Interval: r.Interval}
		if opt.Interval < 1 {
			opt.Interval = 1
		}
		switch r.Unit {
		case recurrence.UnitWeek:
			opt.Freq = rrule.WEEKLY
			if r.Weekday != nil {
				opt.Byweekday = []rrule.Weekday{weekdayConst(*r.Weekday)}
			}
		case recurrence.UnitMonth:
			opt.Freq = rrule.MONTHLY
		case recurrence.UnitYear:
			opt.Freq = rrule.YEARLY
		default:
			opt.Freq = rrule.DAILY
		}
		return opt, true
	case recurrence.MonthlyDayOfMonth:
		day := r.DayOfMonth
		if day < 1 {
			day = anchor.Day()
		}
		return rrule.ROption{Freq: rrule.MONTHLY, Bymonthday: []int{clampInt(day, 1, 31)}}, true
	case recurrence.MonthlyNthWeekday:
		return rrule.ROption{Freq: rrule.MONTHLY, Byweekday: []rrule.Weekday{nthWeekday(r, anchor)}}, true
	case recurrence.YearlyNthWeekday:
		month := int(r.Month)
		if month < 1 {
			month = int(anchor.Month())
		}
		month = clampInt(month, 1, 12)
		return rrule.ROption{
			Freq:      rrule.YEARLY,
			Bymonth:   []int{month},
			Byweekday: []rrule.Weekday{nthWeekday(r, anchor)},
		}, true
	default:
		return rrule.ROption{}, false
	}
}

// nthWeekday renders "nth weekday of the month" in BYDAY form. Week 5
// maps to the last occurrence, matching how occurrences resolve in
// months with only four of that weekday.
func nthWeekday(r recurrence.Rule, anchor time.Time) rrule.Weekday {
	weekday := anchor.Weekday()
	if r.Weekday != nil {
		weekday = *r.Weekday
	}
	wd := weekdayConst(weekday)
	nth := r.WeekOfMonth
	if nth < 1 {
		nth = (anchor.Day()-1)/7 + 1
	}
	if nth >= 5 {
		return wd.Nth(-1)
	}
	return wd.Nth(nth)
}
