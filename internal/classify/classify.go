package classify

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"standupbot/internal/domain"
	"standupbot/internal/workday"
)

// BlockedStatus is the status name that marks an issue as a blocker.
const BlockedStatus = "Blocked"

var blockerLabelHints = []string{"blocker", "impediment"}

// ActivityDate is the calendar date of the issue's most recent activity.
func ActivityDate(issue domain.Issue, offsetMinutes int) string {
	return workday.CalendarDate(issue.LastActivity(), offsetMinutes)
}

// GroupByActivityDate maps each activity date to the issues active that day,
// preserving input order inside each group.
func GroupByActivityDate(issues []domain.Issue, offsetMinutes int) map[string][]domain.Issue {
	groups := make(map[string][]domain.Issue)
	for _, issue := range issues {
		d := ActivityDate(issue, offsetMinutes)
		groups[d] = append(groups[d], issue)
	}
	return groups
}

// IsBlocker reports whether the issue is flagged by status or label.
func IsBlocker(issue domain.Issue) bool {
	if issue.Status == BlockedStatus {
		return true
	}
	fold := cases.Fold()
	for _, label := range issue.Labels {
		folded := fold.String(label)
		for _, hint := range blockerLabelHints {
			if strings.Contains(folded, hint) {
				return true
			}
		}
	}
	return false
}

func Blockers(issues []domain.Issue) []domain.Issue {
	var out []domain.Issue
	for _, issue := range issues {
		if IsBlocker(issue) {
			out = append(out, issue)
		}
	}
	return out
}

// Classify buckets issues into the prior working day and today. The grouping
// is built first so the working-day resolver can look up weekend activity.
func Classify(issues []domain.Issue, now time.Time, offsetMinutes int, holidays workday.HolidaySet) domain.CategorizationResult {
	groups := GroupByActivityDate(issues, offsetMinutes)
	dates := workday.ResolveReportingDates(now, offsetMinutes, holidays, func(date string) bool {
		return len(groups[date]) > 0
	})

	var yesterday []domain.Issue
	if dates.YesterdayDate != "" {
		yesterday = groups[dates.YesterdayDate]
	}
	return domain.CategorizationResult{
		Yesterday:     yesterday,
		Today:         groups[dates.TodayDate],
		Blockers:      Blockers(issues),
		YesterdayDate: dates.YesterdayDate,
		TodayDate:     dates.TodayDate,
		IsWeekend:     dates.IsWeekend,
	}
}
