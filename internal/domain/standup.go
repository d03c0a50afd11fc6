package domain

import "time"

// Credentials identify the Jira account whose issues feed a standup.
type Credentials struct {
	JiraURL   string `json:"jiraUrl"`
	JiraEmail string `json:"jiraEmail"`
	JiraToken string `json:"jiraToken"`
}

func (c Credentials) Complete() bool {
	return c.JiraURL != "" && c.JiraEmail != "" && c.JiraToken != ""
}

// ReportingDates is the outcome of the working-day resolution.
type ReportingDates struct {
	YesterdayDate string
	TodayDate     string
	IsWeekend     bool
	WorkingDays   []string
}

// CategorizationResult is recomputed for every request and never stored.
type CategorizationResult struct {
	Yesterday     []Issue
	Today         []Issue
	Blockers      []Issue
	YesterdayDate string
	TodayDate     string
	IsWeekend     bool
}

// SavedStandup is a generated report kept by a history store.
type SavedStandup struct {
	ID             string
	UserEmail      string
	CreatedAt      time.Time
	IssuesInput    string
	Output         string
	Timezone       string
	PublicHolidays []string
}
