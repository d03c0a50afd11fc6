package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"standupbot/internal/domain"
	"standupbot/internal/workday"
)

const searchPath = "/rest/api/3/search/jql"

// ErrAPI wraps every failed Jira call.
var ErrAPI = errors.New("jira api error")

// Client searches Jira Cloud for the current user's recently touched issues.
// It is safe for concurrent use.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	maxResults int
	now        func() time.Time
}

// NewClient returns a client that paces requests at requestsPerSecond
// (unlimited when <= 0).
func NewClient(httpClient *http.Client, requestsPerSecond float64, maxResults int) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if maxResults <= 0 || maxResults > 100 {
		maxResults = 100
	}
	return &Client{
		http:       httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		maxResults: maxResults,
		now:        time.Now,
	}
}

// SearchJQL is the query used for a standup: everything assigned to the
// caller that was created or updated on or after since.
func SearchJQL(since string) string {
	return fmt.Sprintf("assignee = currentUser() AND (updated >= %s OR created >= %s) ORDER BY updated DESC", since, since)
}

// FetchIssues returns the caller's issues touched within the working-day
// lookback window, most recently updated first.
func (c *Client) FetchIssues(ctx context.Context, creds domain.Credentials) ([]domain.Issue, error) {
	// One extra day covers the oldest window day for users west of UTC.
	since := c.now().UTC().AddDate(0, 0, -(workday.LookbackDays + 1)).Format("2006-01-02")
	body := searchRequest{
		JQL:        SearchJQL(since),
		MaxResults: c.maxResults,
		Fields:     searchFields,
		Expand:     "changelog",
	}

	var resp searchResponse
	if err := c.doJSON(ctx, creds, http.MethodPost, searchPath, body, &resp); err != nil {
		return nil, err
	}

	issues := make([]domain.Issue, 0, len(resp.Issues))
	for _, ji := range resp.Issues {
		issue, err := toDomain(ji)
		if err != nil {
			log.Warn().Err(err).Str("component", "jira").Str("issue", ji.Key).Msg("jira issue rejected")
			return nil, err
		}
		issues = append(issues, issue)
	}
	log.Debug().Str("component", "jira").Int("issues", len(issues)).Str("since", since).Msg("jira search done")
	return issues, nil
}

func (c *Client) doJSON(ctx context.Context, creds domain.Credentials, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrAPI, err)
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding jira request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	u := strings.TrimRight(creds.JiraURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPI, err)
	}
	req.SetBasicAuth(creds.JiraEmail, creds.JiraToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		var er errorResponse
		if json.Unmarshal(b, &er) == nil && len(er.ErrorMessages) > 0 {
			msg = er.ErrorMessages[0]
		}
		log.Warn().Str("component", "jira").Int("status", resp.StatusCode).Str("error", msg).Msg("jira request failed")
		return fmt.Errorf("%w: %s", ErrAPI, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrAPI, err)
	}
	return nil
}

// timeParser parses Jira timestamps for one issue and keeps the first
// failure.
type timeParser struct {
	key string
	err error
}

func (p *timeParser) parse(field, s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := workday.ParseTimestamp(s)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("%w: issue %s has malformed %s timestamp %q", ErrAPI, p.key, field, s)
		}
		return time.Time{}
	}
	return t
}

// toDomain converts a search hit. A non-empty timestamp that does not parse
// fails the whole issue rather than dating it at the zero time.
func toDomain(ji jiraIssue) (domain.Issue, error) {
	f := ji.Fields
	tp := &timeParser{key: ji.Key}
	issue := domain.Issue{
		Key:         ji.Key,
		Summary:     f.Summary,
		Labels:      f.Labels,
		Description: richText(f.Description),
		Created:     tp.parse("created", f.Created),
		Updated:     tp.parse("updated", f.Updated),
	}
	if f.Status != nil {
		issue.Status = f.Status.Name
	}
	if f.IssueType != nil {
		issue.IssueType = f.IssueType.Name
	}
	if f.Assignee != nil {
		issue.Assignee = f.Assignee.DisplayName
	}
	if f.Comment != nil {
		for _, c := range f.Comment.Comments {
			issue.Comments = append(issue.Comments, domain.Comment{
				Body:    richText(c.Body),
				Author:  displayName(c.Author),
				Created: tp.parse("comment created", c.Created),
			})
		}
	}
	if f.Worklog != nil {
		for _, w := range f.Worklog.Worklogs {
			issue.Worklogs = append(issue.Worklogs, domain.WorklogEntry{
				TimeSpent: w.TimeSpent,
				Author:    displayName(w.Author),
				Started:   tp.parse("worklog started", w.Started),
			})
		}
	}
	if ji.Changelog != nil {
		for _, h := range ji.Changelog.Histories {
			entry := domain.HistoryEntry{Created: tp.parse("changelog created", h.Created)}
			for _, it := range h.Items {
				entry.Items = append(entry.Items, domain.FieldChange{
					Field: it.Field,
					From:  it.FromString,
					To:    it.ToString,
				})
			}
			issue.History = append(issue.History, entry)
		}
	}
	if tp.err != nil {
		return domain.Issue{}, tp.err
	}
	return issue, nil
}

func displayName(u *user) string {
	if u == nil {
		return ""
	}
	return u.DisplayName
}
