package slackbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"standupbot/internal/report"
	"standupbot/internal/standup"
	"standupbot/internal/stream"
)

const commandStandup = "/standup"

// API is the part of *slack.Client the bot uses.
type API interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
}

// Runner generates a standup; *standup.Service implements it.
type Runner interface {
	Generate(ctx context.Context, req standup.Request, w io.Writer) (standup.Result, error)
}

type Bot struct {
	api     API
	runner  Runner
	request func() standup.Request
}

// New returns a bot that generates with the request returned by request,
// evaluated once per command.
func New(api API, runner Runner, request func() standup.Request) *Bot {
	return &Bot{api: api, runner: runner, request: request}
}

// PostStandup posts the rendered standup to channel.
func (b *Bot) PostStandup(ctx context.Context, channel string, r stream.Report) error {
	msg := report.Render(r, report.FormatSlack)
	if _, _, err := b.api.PostMessageContext(ctx, channel, slack.MsgOptionText(msg, false)); err != nil {
		return fmt.Errorf("posting standup to %s: %w", channel, err)
	}
	log.Info().Str("component", "slack").Str("channel", channel).Msg("standup posted")
	return nil
}

// Start dispatches Socket Mode events until ctx is done.
func (b *Bot) Start(ctx context.Context, client *socketmode.Client) error {
	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Info().Str("component", "slack").Str("command", cmd.Command).Str("user", cmd.UserID).Str("channel", cmd.ChannelID).Msg("slash command received")
				go b.HandleSlashCommand(ctx, cmd)
			case socketmode.EventTypeConnected:
				log.Info().Str("component", "slack").Msg("slack bot connected via socket mode")
			}
		}
	}()
	return client.RunContext(ctx)
}

func (b *Bot) HandleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	if cmd.Command != commandStandup {
		return
	}
	switch arg := strings.ToLower(strings.TrimSpace(cmd.Text)); arg {
	case "", "save":
		b.handleGenerate(ctx, cmd, arg == "save")
	default:
		b.postEphemeral(ctx, cmd, helpText)
	}
}

const helpText = "*Standup Commands*\n\n" +
	"`/standup` - Generate today's standup from Jira and post it here.\n" +
	"`/standup save` - Same, and keep it in the standup history.\n" +
	"`/standup help` - Show this help."

func (b *Bot) handleGenerate(ctx context.Context, cmd slack.SlashCommand, save bool) {
	req := b.request()
	req.Save = save
	b.postEphemeral(ctx, cmd, "Generating standup...")

	res, err := b.runner.Generate(ctx, req, io.Discard)
	if err != nil {
		log.Error().Err(err).Str("component", "slack").Str("user", cmd.UserID).Msg("standup generation failed")
		msg := fmt.Sprintf("Error generating standup: %v", err)
		if errors.Is(err, standup.ErrMissingCredentials) {
			msg = "Jira credentials are not configured for this bot."
		}
		b.postEphemeral(ctx, cmd, msg)
		return
	}
	if err := b.PostStandup(ctx, cmd.ChannelID, res.Report); err != nil {
		log.Error().Err(err).Str("component", "slack").Msg("standup post failed")
		b.postEphemeral(ctx, cmd, fmt.Sprintf("Error posting standup: %v", err))
	}
}

func (b *Bot) postEphemeral(ctx context.Context, cmd slack.SlashCommand, text string) {
	if _, err := b.api.PostEphemeralContext(ctx, cmd.ChannelID, cmd.UserID, slack.MsgOptionText(text, false)); err != nil {
		log.Error().Err(err).Str("component", "slack").Msg("error posting ephemeral")
	}
}
