package jira

import (
	"encoding/json"
	"strings"
)

var searchFields = []string{
	"summary",
	"status",
	"assignee",
	"created",
	"updated",
	"issuetype",
	"description",
	"labels",
	"comment",
	"worklog",
	"changelog",
}

type searchRequest struct {
	JQL        string   `json:"jql"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields"`
	Expand     string   `json:"expand,omitempty"`
}

type searchResponse struct {
	Issues []jiraIssue `json:"issues"`
}

type errorResponse struct {
	ErrorMessages []string `json:"errorMessages"`
}

type jiraIssue struct {
	Key       string      `json:"key"`
	Fields    issueFields `json:"fields"`
	Changelog *struct {
		Histories []jiraHistory `json:"histories"`
	} `json:"changelog,omitempty"`
}

type named struct {
	Name string `json:"name"`
}

type user struct {
	DisplayName string `json:"displayName"`
}

type issueFields struct {
	Summary     string          `json:"summary"`
	Status      *named          `json:"status"`
	Assignee    *user           `json:"assignee"`
	Created     string          `json:"created"`
	Updated     string          `json:"updated"`
	IssueType   *named          `json:"issuetype"`
	Description json.RawMessage `json:"description"`
	Labels      []string        `json:"labels"`
	Comment     *struct {
		Comments []jiraComment `json:"comments"`
	} `json:"comment"`
	Worklog *struct {
		Worklogs []jiraWorklog `json:"worklogs"`
	} `json:"worklog"`
}

type jiraComment struct {
	Body    json.RawMessage `json:"body"`
	Author  *user           `json:"author"`
	Created string          `json:"created"`
}

type jiraWorklog struct {
	TimeSpent string `json:"timeSpent"`
	Author    *user  `json:"author"`
	Started   string `json:"started"`
}

type jiraHistory struct {
	Created string `json:"created"`
	Items   []struct {
		Field      string `json:"field"`
		FromString string `json:"fromString"`
		ToString   string `json:"toString"`
	} `json:"items"`
}

// adfNode is the subset of the Atlassian Document Format needed to pull text.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

// richText returns the plain text of a field that is either a string (API v2)
// or an ADF document (API v3).
func richText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	var blocks []string
	collectBlocks(doc, &blocks)
	return strings.Join(blocks, "\n")
}

func collectBlocks(n adfNode, out *[]string) {
	switch n.Type {
	case "paragraph", "heading", "codeBlock":
		var b strings.Builder
		inlineText(n, &b)
		if text := strings.TrimSpace(b.String()); text != "" {
			*out = append(*out, text)
		}
		return
	}
	for _, c := range n.Content {
		collectBlocks(c, out)
	}
	if n.Text != "" {
		*out = append(*out, n.Text)
	}
}

func inlineText(n adfNode, b *strings.Builder) {
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
	case "hardBreak":
		b.WriteString("\n")
	}
	for _, c := range n.Content {
		inlineText(c, b)
	}
}
