package schedule

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"standupbot/internal/standup"
	"standupbot/internal/stream"
)

const jobTimeout = 5 * time.Minute

type Runner interface {
	Generate(ctx context.Context, req standup.Request, w io.Writer) (standup.Result, error)
}

type Poster interface {
	PostStandup(ctx context.Context, channel string, r stream.Report) error
}

type Options struct {
	Spec     string
	Location *time.Location
	Runner   Runner
	Request  func() standup.Request
	// Poster and Channel are optional; without them the standup is only
	// generated (and saved when Save is set).
	Poster  Poster
	Channel string
	Save    bool
}

// Scheduler generates a standup on a 5-field cron schedule.
type Scheduler struct {
	opts  Options
	sched cron.Schedule
}

func New(opts Options) (*Scheduler, error) {
	spec := strings.TrimSpace(opts.Spec)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid standup_schedule '%s': %w", spec, err)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	opts.Spec = spec
	return &Scheduler{opts: opts, sched: sched}, nil
}

// Next returns the first run strictly after now, in the scheduler's timezone.
func (s *Scheduler) Next(now time.Time) time.Time {
	return s.sched.Next(now.In(s.opts.Location))
}

// Start runs the schedule in a goroutine until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	log.Info().Str("component", "schedule").Str("cron", s.opts.Spec).Str("tz", s.opts.Location.String()).Msg("standup scheduled")

	go func() {
		for {
			now := time.Now()
			next := s.Next(now)
			wait := next.Sub(now)
			log.Info().Str("component", "schedule").Str("next", next.Format("Mon Jan 2 15:04")).Dur("in", wait.Round(time.Minute)).Msg("next standup")

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if err := s.RunOnce(ctx); err != nil {
				log.Error().Err(err).Str("component", "schedule").Msg("scheduled standup failed")
			}
		}
	}()
}

// RunOnce generates one standup and posts it when a poster is configured.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	req := s.opts.Request()
	req.Save = s.opts.Save
	res, err := s.opts.Runner.Generate(ctx, req, io.Discard)
	if err != nil {
		return fmt.Errorf("generating scheduled standup: %w", err)
	}
	log.Info().Str("component", "schedule").Int("issues", res.Prepared.IssueCount).Bool("saved", res.Saved != nil).Msg("scheduled standup generated")

	if s.opts.Poster == nil || s.opts.Channel == "" {
		return nil
	}
	return s.opts.Poster.PostStandup(ctx, s.opts.Channel, res.Report)
}
