// Package standup runs a standup generation end to end: fetch issues,
// classify them into reporting days, prompt the generator and frame its
// output for the client.
package standup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"standupbot/internal/classify"
	"standupbot/internal/domain"
	"standupbot/internal/stream"
	"standupbot/internal/summary"
	"standupbot/internal/workday"
)

//go:generate go tool mockgen -source=service.go -destination=mocks/service.gen.go -package=mocks

const defaultHistoryLimit = 10

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrHistoryDisabled    = errors.New("history store not configured")
)

// IssueSource returns the caller's recently touched issues.
type IssueSource interface {
	FetchIssues(ctx context.Context, creds domain.Credentials) ([]domain.Issue, error)
}

// Generator streams model output for a prompt.
type Generator interface {
	Stream(ctx context.Context, prompt string, emit func(chunk string) error) error
}

// HistoryStore persists generated standups. Implementations must be safe for
// concurrent use.
type HistoryStore interface {
	Save(ctx context.Context, s domain.SavedStandup) error
	List(ctx context.Context, userEmail string, limit int) ([]domain.SavedStandup, error)
}

type Request struct {
	Credentials    domain.Credentials
	PublicHolidays []string
	Timezone       string
	OffsetMinutes  int
	Save           bool
}

// Prepared is a request that has fetched and classified its issues and is
// ready to stream.
type Prepared struct {
	Request        Request
	Categorization domain.CategorizationResult
	IssuesText     string
	Prompt         string
	IssueCount     int
}

func (p Prepared) Meta() stream.Meta {
	return stream.Meta{
		YesterdayDate: p.Categorization.YesterdayDate,
		TodayDate:     p.Categorization.TodayDate,
		IsWeekend:     p.Categorization.IsWeekend,
	}
}

type Result struct {
	Prepared Prepared
	Raw      string
	Report   stream.Report
	Saved    *domain.SavedStandup
}

type Service struct {
	issues  IssueSource
	gen     Generator
	history HistoryStore
	now     func() time.Time
	newID   func() string
}

// NewService wires the collaborators. history may be nil, in which case
// saving and listing return ErrHistoryDisabled.
func NewService(issues IssueSource, gen Generator, history HistoryStore) *Service {
	return &Service{
		issues:  issues,
		gen:     gen,
		history: history,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Prepare validates the request, fetches issues and builds the prompt. Nothing
// is written to the client, so callers can still report errors normally.
func (s *Service) Prepare(ctx context.Context, req Request) (Prepared, error) {
	if !req.Credentials.Complete() {
		return Prepared{}, ErrMissingCredentials
	}
	if req.Save && s.history == nil {
		return Prepared{}, ErrHistoryDisabled
	}

	issues, err := s.issues.FetchIssues(ctx, req.Credentials)
	if err != nil {
		return Prepared{}, err
	}

	result := classify.Classify(issues, s.now(), req.OffsetMinutes, workday.NewHolidaySet(req.PublicHolidays))
	log.Info().
		Str("component", "standup").
		Int("issues", len(issues)).
		Int("yesterday", len(result.Yesterday)).
		Int("today", len(result.Today)).
		Int("blockers", len(result.Blockers)).
		Int("offset_minutes", req.OffsetMinutes).
		Msg("standup categorized")

	return Prepared{
		Request:        req,
		Categorization: result,
		IssuesText:     summary.IssuesText(result),
		Prompt:         summary.BuildPrompt(result),
		IssueCount:     len(issues),
	}, nil
}

// Stream writes the metadata frame followed by generator chunks to w. The
// returned Result carries everything written, even when err is non-nil.
func (s *Service) Stream(ctx context.Context, p Prepared, w io.Writer) (Result, error) {
	framer := stream.NewFramer(w)
	if err := framer.WriteMeta(p.Meta()); err != nil {
		return Result{Prepared: p}, fmt.Errorf("writing meta frame: %w", err)
	}

	genErr := s.gen.Stream(ctx, p.Prompt, framer.WriteChunk)
	res := Result{
		Prepared: p,
		Raw:      framer.String(),
		Report:   stream.ParseFinal(framer.String()),
	}
	if genErr != nil {
		return res, fmt.Errorf("generating standup: %w", genErr)
	}
	if err := framer.Validate(); err != nil {
		log.Warn().Err(err).Str("component", "standup").Msg("standup output incomplete")
	}

	if p.Request.Save {
		saved := domain.SavedStandup{
			ID:             s.newID(),
			UserEmail:      p.Request.Credentials.JiraEmail,
			CreatedAt:      s.now().UTC(),
			IssuesInput:    p.IssuesText,
			Output:         res.Raw,
			Timezone:       p.Request.Timezone,
			PublicHolidays: p.Request.PublicHolidays,
		}
		if err := s.history.Save(ctx, saved); err != nil {
			return res, fmt.Errorf("saving standup: %w", err)
		}
		res.Saved = &saved
		log.Info().Str("component", "standup").Str("id", saved.ID).Str("user", saved.UserEmail).Msg("standup saved")
	}
	return res, nil
}

// Generate is Prepare followed by Stream.
func (s *Service) Generate(ctx context.Context, req Request, w io.Writer) (Result, error) {
	p, err := s.Prepare(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return s.Stream(ctx, p, w)
}

// TestConnection fetches issues once and reports how many came back.
func (s *Service) TestConnection(ctx context.Context, creds domain.Credentials) (int, error) {
	if !creds.Complete() {
		return 0, ErrMissingCredentials
	}
	issues, err := s.issues.FetchIssues(ctx, creds)
	if err != nil {
		return 0, err
	}
	return len(issues), nil
}

// History lists saved standups for userEmail, newest first.
func (s *Service) History(ctx context.Context, userEmail string, limit int) ([]domain.SavedStandup, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.history.List(ctx, userEmail, limit)
}
