// Package app wires configuration, integrations and the standup service into
// the long-running process and the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"standupbot/internal/config"
	"standupbot/internal/domain"
	"standupbot/internal/httpx"
	"standupbot/internal/integrations/jira"
	"standupbot/internal/integrations/llm"
	slackbot "standupbot/internal/integrations/slack"
	"standupbot/internal/schedule"
	"standupbot/internal/server"
	"standupbot/internal/standup"
	"standupbot/internal/storage/postgres"
	"standupbot/internal/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

type historyBackend interface {
	standup.HistoryStore
	Close() error
}

type App struct {
	Config  config.Config
	Service *standup.Service

	history historyBackend
}

// New builds the service from cfg. The caller must Close the returned App.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Info().
		Str("env", cfg.AppEnv).
		Str("llm_provider", cfg.LLMProvider).
		Str("history", cfg.HistoryBackend).
		Str("tz", cfg.Timezone).
		Int("holidays", len(cfg.PublicHolidays)).
		Dur("external_http_timeout", appliedHTTPTimeout).
		Msg("config loaded")

	gen, err := llm.New(cfg, httpx.Client())
	if err != nil {
		return nil, err
	}
	issues := jira.NewClient(httpx.Client(), cfg.JiraRequestsPerSecond, cfg.JiraMaxResults)

	a := &App{Config: cfg}
	switch cfg.HistoryBackend {
	case config.HistorySQLite:
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite history: %w", err)
		}
		log.Info().Str("path", cfg.DBPath).Msg("database initialized")
		a.history = store
	case config.HistoryPostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres history: %w", err)
		}
		log.Info().Msg("postgres history connected")
		a.history = store
	}

	var history standup.HistoryStore
	if a.history != nil {
		history = a.history
	}
	a.Service = standup.NewService(issues, gen, history)
	return a, nil
}

func (a *App) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

// HistoryEnabled reports whether standups can be saved.
func (a *App) HistoryEnabled() bool {
	return a.history != nil
}

// Request builds a standup request from the configured credentials, evaluated
// at the current instant so DST changes apply.
func (a *App) Request() standup.Request {
	cfg := a.Config
	return standup.Request{
		Credentials: domain.Credentials{
			JiraURL:   cfg.JiraURL,
			JiraEmail: cfg.JiraEmail,
			JiraToken: cfg.JiraToken,
		},
		PublicHolidays: cfg.PublicHolidays,
		Timezone:       cfg.Timezone,
		OffsetMinutes:  cfg.OffsetMinutes(time.Now()),
	}
}

// Serve runs the HTTP API, plus the Slack bot and the scheduler when they are
// configured, until ctx is cancelled or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := os.MkdirAll(cfg.ReportOutputDir, 0o755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}
	log.Info().Str("dir", cfg.ReportOutputDir).Msg("report output dir")

	errs := make(chan error, 2)

	var bot *slackbot.Bot
	if cfg.SlackConfigured() {
		api := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
		bot = slackbot.New(api, a.Service, a.Request)
		client := socketmode.New(api)
		go func() {
			if err := bot.Start(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
				errs <- fmt.Errorf("slack bot: %w", err)
			}
		}()
	} else {
		log.Info().Str("component", "slack").Msg("slack not configured, bot disabled")
	}

	if cfg.StandupSchedule != "" {
		opts := schedule.Options{
			Spec:     cfg.StandupSchedule,
			Location: cfg.Location,
			Runner:   a.Service,
			Request:  a.Request,
			Save:     a.HistoryEnabled(),
		}
		if bot != nil && cfg.SlackChannelID != "" {
			opts.Poster = bot
			opts.Channel = cfg.SlackChannelID
		}
		sched, err := schedule.New(opts)
		if err != nil {
			return err
		}
		sched.Start(ctx)
	}

	router := server.NewRouter(cfg.AppEnv, a.Service, server.Defaults{
		PublicHolidays: cfg.PublicHolidays,
		Timezone:       cfg.Timezone,
		OffsetMinutes:  cfg.OffsetMinutes,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	log.Info().Msg("standupbot stopped")
	return runErr
}
