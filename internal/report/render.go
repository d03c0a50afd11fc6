package report

import (
	"fmt"
	"strings"
	"time"

	"standupbot/internal/stream"
)

const (
	msgNoActivities = "No activities recorded"
	msgWeekend      = "It's the weekend"
	msgNoBlockers   = "No blockers identified"
	msgGenerating   = "Generating..."
)

type Format int

const (
	FormatMarkdown Format = iota
	FormatSlack
)

// FormatDateWithDay renders 2024-03-13 as "Wednesday, Mar 13". Unparseable
// input is returned unchanged.
func FormatDateWithDay(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, Jan 2")
}

// Render turns a parsed stream into a three-section standup.
func Render(r stream.Report, f Format) string {
	yesterdayTitle := "Yesterday"
	if r.Meta.YesterdayDate != "" {
		yesterdayTitle += " - " + FormatDateWithDay(r.Meta.YesterdayDate)
	}
	todayTitle := "Today"
	if r.Meta.IsWeekend {
		todayTitle += " (Weekend)"
	}
	if r.Meta.TodayDate != "" {
		todayTitle += " - " + FormatDateWithDay(r.Meta.TodayDate)
	}

	todayEmpty := msgNoActivities
	if r.Meta.IsWeekend {
		todayEmpty = msgWeekend
	}

	blocks := []string{
		block(f, yesterdayTitle, r.Yesterday, msgNoActivities),
		block(f, todayTitle, r.Today, todayEmpty),
		block(f, "Blockers & Impediments", r.Blockers, msgNoBlockers),
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

func block(f Format, title string, s stream.Section, empty string) string {
	var lines []string
	switch s.State {
	case stream.SectionContent:
		lines = stream.Bullets(s.Text)
	case stream.SectionArriving:
		lines = []string{msgGenerating}
	default:
		lines = []string{empty}
	}
	if len(lines) == 0 {
		lines = []string{empty}
	}

	var b strings.Builder
	switch f {
	case FormatSlack:
		fmt.Fprintf(&b, "*%s*", title)
		for _, l := range lines {
			b.WriteString("\n• " + l)
		}
	default:
		fmt.Fprintf(&b, "### %s", title)
		for _, l := range lines {
			b.WriteString("\n- " + l)
		}
	}
	return b.String()
}
