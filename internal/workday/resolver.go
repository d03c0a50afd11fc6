package workday

import (
	"time"

	"standupbot/internal/domain"
)

const (
	// LookbackDays is the number of days before today that may be chosen as
	// the prior working day.
	LookbackDays = 13
	wantedDays   = 2
)

// HolidaySet holds caller-supplied public holidays as YYYY-MM-DD strings.
type HolidaySet map[string]struct{}

func NewHolidaySet(dates []string) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		if d != "" {
			set[d] = struct{}{}
		}
	}
	return set
}

func (h HolidaySet) Contains(date string) bool {
	_, ok := h[date]
	return ok
}

// Activity reports whether any issue was active on a calendar date.
type Activity func(date string) bool

// ResolveReportingDates picks today's date and the most recent working day
// before it. Weekends only qualify when there are not enough weekdays in the
// lookback window and the weekend shows activity. Holidays never qualify.
func ResolveReportingDates(now time.Time, offsetMinutes int, holidays HolidaySet, active Activity) domain.ReportingDates {
	shifted := shift(now, offsetMinutes)
	today := shifted.Format(dateLayout)

	var working []string
	for i := 1; i <= LookbackDays && len(working) < wantedDays; i++ {
		day := shifted.AddDate(0, 0, -i)
		date := day.Format(dateLayout)
		if holidays.Contains(date) || isWeekendDay(day) {
			continue
		}
		working = append(working, date)
	}

	if len(working) < wantedDays && active != nil {
		for i := 1; i <= LookbackDays && len(working) < wantedDays; i++ {
			day := shifted.AddDate(0, 0, -i)
			date := day.Format(dateLayout)
			if holidays.Contains(date) || contains(working, date) {
				continue
			}
			if isWeekendDay(day) && active(date) {
				working = append(working, date)
			}
		}
	}

	yesterday := ""
	if len(working) > 0 {
		yesterday = working[0]
	}
	return domain.ReportingDates{
		YesterdayDate: yesterday,
		TodayDate:     today,
		IsWeekend:     isWeekendDay(shifted),
		WorkingDays:   working,
	}
}

func contains(dates []string, date string) bool {
	for _, d := range dates {
		if d == date {
			return true
		}
	}
	return false
}
