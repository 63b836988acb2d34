// ABOUTME: Resolves symbolic deadline choices and literal dates into calendar dates.
// ABOUTME: Pure functions of (choice, now, location); no I/O.

package deadline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidFormat is returned for literal dates that are malformed or in the past.
var ErrInvalidFormat = errors.New("invalid deadline format")

// Symbolic choices offered on the deadline card.
const (
	ChoiceNone             = "none"
	ChoiceToday            = "today"
	ChoiceTomorrow         = "tomorrow"
	ChoiceDayAfterTomorrow = "day_after_tomorrow"
	ChoiceWeek             = "week"
	ChoiceMonth            = "month"
	ChoiceCustom           = "custom"
)

const isoLayout = "2006-01-02"

var labels = map[string]string{
	ChoiceNone:             "Без дедлайна",
	ChoiceToday:            "Сегодня",
	ChoiceTomorrow:         "Завтра",
	ChoiceDayAfterTomorrow: "Послезавтра",
	ChoiceWeek:             "Через неделю",
	ChoiceMonth:            "Через месяц",
	ChoiceCustom:           "Другая дата",
}

// Choices returns the deadline choices in display order, custom last.
func Choices() []string {
	return []string{
		ChoiceNone,
		ChoiceToday,
		ChoiceTomorrow,
		ChoiceDayAfterTomorrow,
		ChoiceWeek,
		ChoiceMonth,
		ChoiceCustom,
	}
}

// Label returns the human label for a symbolic choice, or the choice itself.
func Label(choice string) string {
	if l, ok := labels[choice]; ok {
		return l
	}
	return choice
}

// IsSymbolic reports whether choice resolves without user-typed input.
func IsSymbolic(choice string) bool {
	_, ok := labels[choice]
	return ok && choice != ChoiceCustom
}

// Deadline is a calendar date. The zero value means "no deadline".
type Deadline struct {
	Year  int
	Month time.Month
	Day   int
}

// None is the explicit "no deadline" value.
var None = Deadline{}

// IsNone reports whether d carries no date.
func (d Deadline) IsNone() bool {
	return d == None
}

// String formats the date as YYYY-MM-DD, or "" for None.
func (d Deadline) String() string {
	if d.IsNone() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Display formats the date as DD.MM.YYYY, or "" for None.
func (d Deadline) Display() string {
	if d.IsNone() {
		return ""
	}
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, d.Month, d.Year)
}

// NoonUTC returns the date at 12:00 UTC, the instant sent to the tracker
// so the calendar day survives any client timezone.
func (d Deadline) NoonUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

func fromTime(t time.Time) Deadline {
	y, m, day := t.Date()
	return Deadline{Year: y, Month: m, Day: day}
}

// Resolve maps a symbolic choice or a literal YYYY-MM-DD date to a Deadline.
// Dates are computed in loc; a literal date before today's date in loc is
// rejected with ErrInvalidFormat.
func Resolve(choice string, now time.Time, loc *time.Location) (Deadline, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch choice {
	case ChoiceNone:
		return None, nil
	case ChoiceToday:
		return fromTime(today), nil
	case ChoiceTomorrow:
		return fromTime(today.AddDate(0, 0, 1)), nil
	case ChoiceDayAfterTomorrow:
		return fromTime(today.AddDate(0, 0, 2)), nil
	case ChoiceWeek:
		return fromTime(today.AddDate(0, 0, 7)), nil
	case ChoiceMonth:
		return addMonth(today), nil
	case ChoiceCustom:
		return None, fmt.Errorf("%w: custom requires a date", ErrInvalidFormat)
	}

	return parseLiteral(choice, today, loc)
}

// addMonth moves one calendar month forward, clamping to the target month's
// last day (Jan 31 -> Feb 28/29).
func addMonth(t time.Time) Deadline {
	y, m, d := t.Date()
	lastDay := time.Date(y, m+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return fromTime(time.Date(y, m+1, d, 0, 0, 0, 0, t.Location()))
}

func parseLiteral(s string, today time.Time, loc *time.Location) (Deadline, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(isoLayout) {
		return None, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	t, err := time.ParseInLocation(isoLayout, s, loc)
	if err != nil {
		return None, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	if t.Before(today) {
		return None, fmt.Errorf("%w: %s is in the past", ErrInvalidFormat, s)
	}
	return fromTime(t), nil
}
