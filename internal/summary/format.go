package summary

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"standupbot/internal/domain"
)

const (
	recentComments = 2
	recentChanges  = 2

	minutesPerHour = 60
	// A logged day is one eight-hour working day.
	minutesPerDay = 8 * minutesPerHour
)

var durationTokenRe = regexp.MustCompile(`(\d+)([a-zA-Z])`)

// FormatForSummary renders the recent history of one issue for the generator.
func FormatForSummary(issue domain.Issue) string {
	parts := []string{
		fmt.Sprintf("[%s] %s", issue.Key, issue.Summary),
		"Status: " + issue.Status,
	}

	if len(issue.Comments) > 0 {
		parts = append(parts, "\nLatest Comments:")
		for _, c := range lastN(issue.Comments, recentComments) {
			parts = append(parts, fmt.Sprintf("- \"%s\"", c.Body))
		}
	}

	if len(issue.Worklogs) > 0 {
		total := 0
		for _, w := range issue.Worklogs {
			total += WorklogMinutes(w.TimeSpent)
		}
		parts = append(parts, "\nTime Spent: "+FormatMinutes(total))
	}

	if changes := statusChanges(issue.History); len(changes) > 0 {
		parts = append(parts, "\nRecent Changes:")
		for _, c := range lastN(changes, recentChanges) {
			parts = append(parts, fmt.Sprintf("- Status changed from \"%s\" to \"%s\"", c.From, c.To))
		}
	}

	return strings.Join(parts, "\n")
}

// WorklogMinutes converts Jira duration shorthand such as "1d 2h 30m" to
// minutes. Tokens with an unknown unit count as zero.
func WorklogMinutes(spent string) int {
	minutes := 0
	for _, m := range durationTokenRe.FindAllStringSubmatch(spent, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch m[2] {
		case "h":
			minutes += n * minutesPerHour
		case "d":
			minutes += n * minutesPerDay
		case "m":
			minutes += n
		}
	}
	return minutes
}

func FormatMinutes(total int) string {
	return fmt.Sprintf("%dh %dm", total/minutesPerHour, total%minutesPerHour)
}

// statusChanges returns, per history entry that touched the status field,
// the first status transition of that entry.
func statusChanges(history []domain.HistoryEntry) []domain.FieldChange {
	var out []domain.FieldChange
	for _, entry := range history {
		for _, item := range entry.Items {
			if item.Field == "status" {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

func lastN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
