package recurrence

import (
	"fmt"
	"time"
)

type Kind int

const (
	None Kind = iota
	Daily
	Weekly
	Monthly
	Yearly
	Interval
	MonthlyDayOfMonth
	MonthlyNthWeekday
	YearlyNthWeekday
)

var kindNames = map[Kind]string{
	None:              "none",
	Daily:             "daily",
	Weekly:            "weekly",
	Monthly:           "monthly",
	Yearly:            "yearly",
	Interval:          "interval",
	MonthlyDayOfMonth: "monthly_day_of_month",
	MonthlyNthWeekday: "monthly_nth_weekday",
	YearlyNthWeekday:  "yearly_nth_weekday",
}

var kindFromName = map[string]Kind{
	"none":                 None,
	"daily":                Daily,
	"weekly":               Weekly,
	"monthly":              Monthly,
	"yearly":               Yearly,
	"interval":             Interval,
	"monthly_day_of_month": MonthlyDayOfMonth,
	"monthly_nth_weekday":  MonthlyNthWeekday,
	"yearly_nth_weekday":   YearlyNthWeekday,
}

// KindFromName maps a persisted kind string to a Kind. Unrecognized values
// fall back to None so legacy or corrupted rows degrade to a one-off event
// instead of failing.
func KindFromName(name string) Kind {
	if k, ok := kindFromName[name]; ok {
		return k
	}
	return None
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "none"
}

type Unit int

const (
	UnitDay Unit = iota
	UnitWeek
	UnitMonth
	UnitYear
)

var unitNames = map[Unit]string{
	UnitDay:   "day",
	UnitWeek:  "week",
	UnitMonth: "month",
	UnitYear:  "year",
}

var unitFromName = map[string]Unit{
	"day":   UnitDay,
	"week":  UnitWeek,
	"month": UnitMonth,
	"year":  UnitYear,
}

// UnitFromName maps a persisted unit string to a Unit, defaulting to UnitDay.
func UnitFromName(name string) Unit {
	if u, ok := unitFromName[name]; ok {
		return u
	}
	return UnitDay
}

func (u Unit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return "day"
}

// Rule describes how an event repeats relative to its anchor date-time.
// Only the fields relevant to Kind are consulted; the rest are ignored.
// Zero values mean "derive from the anchor" (and Interval 0 means 1), so a
// zero Rule of any kind is always resolvable.
type Rule struct {
	Kind     Kind
	Interval int  // every N units, >= 1 (Interval kind)
	Unit     Unit // day/week/month/year (Interval kind)

	DayOfMonth  int           // 1-31; 0 = anchor's day (MonthlyDayOfMonth)
	Month       time.Month    // January-December; 0 = anchor's month (yearly kinds)
	WeekOfMonth int           // 1-5; 5 degrades to "last" (nth-weekday kinds); 0 = anchor's week
	Weekday     *time.Weekday // explicit weekday; nil = anchor's weekday
}

// maxInterval caps runaway interval counts from malformed rows.
const maxInterval = 10000

// withDefaults clamps every parameter to its valid range and fills unset
// parameters from the anchor. Invalid input is never an error here: rules
// come straight from persisted data and must always resolve to something.
func (r Rule) withDefaults(anchor time.Time) Rule {
	if r.Interval < 1 {
		r.Interval = 1
	} else if r.Interval > maxInterval {
		r.Interval = maxInterval
	}
	if r.Unit < UnitDay || r.Unit > UnitYear {
		r.Unit = UnitDay
	}
	if r.DayOfMonth == 0 {
		r.DayOfMonth = anchor.Day()
	}
	r.DayOfMonth = clampInt(r.DayOfMonth, 1, 31)
	if r.Month == 0 {
		r.Month = anchor.Month()
	}
	r.Month = time.Month(clampInt(int(r.Month), int(time.January), int(time.December)))
	if r.WeekOfMonth == 0 {
		r.WeekOfMonth = weekOfMonth(anchor)
	}
	r.WeekOfMonth = clampInt(r.WeekOfMonth, 1, 5)
	if r.Weekday != nil {
		wd := time.Weekday(clampInt(int(*r.Weekday), int(time.Sunday), int(time.Saturday)))
		r.Weekday = &wd
	}
	return r
}

// weekdayOr returns the explicit weekday, or fallback when unset.
func (r Rule) weekdayOr(fallback time.Weekday) time.Weekday {
	if r.Weekday != nil {
		return *r.Weekday
	}
	return fallback
}

// Describe returns a human-readable description of the rule, resolved
// against the anchor for parameters that default to it.
func (r Rule) Describe(anchor time.Time) string {
	r = r.withDefaults(anchor)
	switch r.Kind {
	case Daily:
		return "Repeats daily"
	case Weekly:
		return "Repeats weekly on " + r.weekdayOr(anchor.Weekday()).String()
	case Monthly:
		return "Repeats monthly"
	case Yearly:
		return "Repeats yearly"
	case Interval:
		if r.Interval == 1 {
			return fmt.Sprintf("Repeats every %s", r.Unit)
		}
		return fmt.Sprintf("Repeats every %d %ss", r.Interval, r.Unit)
	case MonthlyDayOfMonth:
		return fmt.Sprintf("Repeats monthly on day %d", r.DayOfMonth)
	case MonthlyNthWeekday:
		return fmt.Sprintf("Repeats monthly on the %s %s",
			nthLabel(r.WeekOfMonth), r.weekdayOr(anchor.Weekday()))
	case YearlyNthWeekday:
		return fmt.Sprintf("Repeats yearly on the %s %s of %s",
			nthLabel(r.WeekOfMonth), r.weekdayOr(anchor.Weekday()), r.Month)
	}
	return ""
}

func nthLabel(nth int) string {
	if nth >= 5 {
		return "last"
	}
	return ordinal(nth)
}
