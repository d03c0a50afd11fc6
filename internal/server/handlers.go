package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"standupbot/internal/domain"
	"standupbot/internal/standup"
)

type Handlers struct {
	svc      Service
	defaults Defaults
	now      func() time.Time
}

type generateRequest struct {
	JiraURL               string   `json:"jiraUrl"`
	JiraEmail             string   `json:"jiraEmail"`
	JiraToken             string   `json:"jiraToken"`
	PublicHolidays        []string `json:"publicHolidays"`
	Timezone              string   `json:"timezone"`
	TimezoneOffsetMinutes *int     `json:"timezoneOffsetMinutes"`
	Save                  bool     `json:"save"`
}

type savedStandupResponse struct {
	ID             string    `json:"id"`
	UserEmail      string    `json:"userEmail"`
	CreatedAt      time.Time `json:"createdAt"`
	IssuesInput    string    `json:"issuesInput"`
	Output         string    `json:"output"`
	Timezone       string    `json:"timezone"`
	PublicHolidays []string  `json:"publicHolidays"`
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Generate streams the framed standup as text/plain. Errors found before the
// first byte is written are reported as JSON.
func (h *Handlers) Generate(c *gin.Context) {
	var body generateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body"})
		return
	}

	req := h.toRequest(body)
	ctx := c.Request.Context()
	prepared, err := h.svc.Prepare(ctx, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)

	if _, err := h.svc.Stream(ctx, prepared, c.Writer); err != nil {
		// Status is already committed; the client sees a truncated stream.
		log.Error().Err(err).Str("component", "http").Str("user", req.Credentials.JiraEmail).Msg("standup stream failed")
	}
}

func (h *Handlers) TestJira(c *gin.Context) {
	var creds domain.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body"})
		return
	}

	count, err := h.svc.TestConnection(c.Request.Context(), creds)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Connection successful!",
		"issueCount": count,
	})
}

func (h *Handlers) History(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	records, err := h.svc.History(c.Request.Context(), email, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]savedStandupResponse, 0, len(records))
	for _, r := range records {
		out = append(out, savedStandupResponse{
			ID:             r.ID,
			UserEmail:      r.UserEmail,
			CreatedAt:      r.CreatedAt,
			IssuesInput:    r.IssuesInput,
			Output:         r.Output,
			Timezone:       r.Timezone,
			PublicHolidays: r.PublicHolidays,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) toRequest(body generateRequest) standup.Request {
	req := standup.Request{
		Credentials: domain.Credentials{
			JiraURL:   strings.TrimSpace(body.JiraURL),
			JiraEmail: strings.TrimSpace(body.JiraEmail),
			JiraToken: strings.TrimSpace(body.JiraToken),
		},
		PublicHolidays: body.PublicHolidays,
		Timezone:       body.Timezone,
		Save:           body.Save,
	}
	if req.PublicHolidays == nil {
		req.PublicHolidays = h.defaults.PublicHolidays
	}
	if req.Timezone == "" {
		req.Timezone = h.defaults.Timezone
	}

	now := h.now()
	switch {
	case body.TimezoneOffsetMinutes != nil:
		req.OffsetMinutes = *body.TimezoneOffsetMinutes
	case body.Timezone != "":
		if loc, err := time.LoadLocation(body.Timezone); err == nil {
			_, offset := now.In(loc).Zone()
			req.OffsetMinutes = offset / 60
		} else if h.defaults.OffsetMinutes != nil {
			req.OffsetMinutes = h.defaults.OffsetMinutes(now)
		}
	case h.defaults.OffsetMinutes != nil:
		req.OffsetMinutes = h.defaults.OffsetMinutes(now)
	}
	return req
}

func (h *Handlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, standup.ErrMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing credentials"})
	case errors.Is(err, standup.ErrHistoryDisabled):
		c.JSON(http.StatusBadRequest, gin.H{"error": "History is not enabled on this server"})
	default:
		log.Error().Err(err).Str("component", "http").Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
