package summary

import (
	"fmt"
	"strings"

	"standupbot/internal/domain"
)

const instructions = `Generate a professional scrum standup update from this Jira data.

CRITICAL RULES:
1. Output ONLY the three sections with these markers: [YESTERDAY] [TODAY] [BLOCKERS]
2. Output NO intro text, NO notes, NO extra explanations
3. For each section, list only bullet points (starting with •)
4. Each bullet point should be 1-2 lines max
5. If a section has no items, leave it empty (no text after marker)
6. Use actual work details from comments, status changes, and time logged - don't just list titles

Format example:
[YESTERDAY]
• Completed authentication flow
• Reviewed PR comments and updated solution

[TODAY]
• Working on API integration
• Debugging database connection issue

[BLOCKERS]
• Waiting on design approval for UI mockups

Here is the issue data:
`

// IssuesText renders the three date-labelled blocks the generator works from.
func IssuesText(result domain.CategorizationResult) string {
	weekend := ""
	if result.IsWeekend {
		weekend = " - Weekend"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Yesterday's Work (%s):\n%s\n\n", result.YesterdayDate, issueBlock(result.Yesterday))
	fmt.Fprintf(&b, "Today's Work (%s%s):\n%s\n\n", result.TodayDate, weekend, issueBlock(result.Today))
	b.WriteString("Blockers & Impediments:\n")
	if len(result.Blockers) == 0 {
		b.WriteString("No blockers")
	}
	for i, issue := range result.Blockers {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- [%s] %s", issue.Key, issue.Summary)
	}
	b.WriteString("\n")
	return b.String()
}

// BuildPrompt wraps the issue blocks in the marker instructions.
func BuildPrompt(result domain.CategorizationResult) string {
	return instructions + "\n" + IssuesText(result)
}

func issueBlock(issues []domain.Issue) string {
	if len(issues) == 0 {
		return "No issues"
	}
	blocks := make([]string, 0, len(issues))
	for _, issue := range issues {
		blocks = append(blocks, FormatForSummary(issue))
	}
	return strings.Join(blocks, "\n\n")
}
