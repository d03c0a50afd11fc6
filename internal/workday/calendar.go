package workday

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

var timestampLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	time.RFC3339,
}

// CalendarDate shifts t by offsetMinutes (positive is east of UTC) and returns
// the UTC calendar date of the shifted instant.
func CalendarDate(t time.Time, offsetMinutes int) string {
	return shift(t, offsetMinutes).Format(dateLayout)
}

// IsWeekend reports whether a YYYY-MM-DD date falls on Saturday or Sunday.
// It panics on a malformed date.
func IsWeekend(date string) bool {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		panic(fmt.Sprintf("workday: malformed calendar date %q: %v", date, err))
	}
	return isWeekendDay(d)
}

// ParseTimestamp accepts the timestamp layouts Jira emits.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func shift(t time.Time, offsetMinutes int) time.Time {
	return t.UTC().Add(time.Duration(offsetMinutes) * time.Minute)
}

func isWeekendDay(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
