package domain

import "time"

// Issue is a tracker item as seen by the standup core. It is never mutated.
type Issue struct {
	Key         string
	Summary     string
	Status      string
	Assignee    string
	IssueType   string
	Description string
	Created     time.Time
	Updated     time.Time
	Labels      []string
	Comments    []Comment      // oldest first
	Worklogs    []WorklogEntry // oldest first
	History     []HistoryEntry // oldest first
}

type Comment struct {
	Body    string
	Author  string
	Created time.Time
}

type WorklogEntry struct {
	TimeSpent string // Jira shorthand, e.g. "1d 2h 30m"
	Author    string
	Started   time.Time
}

type HistoryEntry struct {
	Created time.Time
	Items   []FieldChange
}

type FieldChange struct {
	Field string
	From  string
	To    string
}

// LastActivity returns the most recent of the issue's update time and the
// timestamps of its newest comment and newest work-log entry.
func (i Issue) LastActivity() time.Time {
	latest := i.Updated
	if n := len(i.Comments); n > 0 && i.Comments[n-1].Created.After(latest) {
		latest = i.Comments[n-1].Created
	}
	if n := len(i.Worklogs); n > 0 && i.Worklogs[n-1].Started.After(latest) {
		latest = i.Worklogs[n-1].Started
	}
	return latest
}
