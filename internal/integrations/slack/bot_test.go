package slackbot

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/slack-go/slack"

	"standupbot/internal/domain"
	"standupbot/internal/standup"
	"standupbot/internal/stream"
)

type postedMessage struct {
	channel   string
	user      string
	ephemeral bool
	text      string
}

type fakeAPI struct {
	mu       sync.Mutex
	messages []postedMessage
	postErr  error
}

func msgText(t *testing.T, options []slack.MsgOption) string {
	t.Helper()
	_, values, err := slack.UnsafeApplyMsgOptions("token", "C1", "https://slack.example/api/", options...)
	if err != nil {
		t.Fatalf("apply msg options: %v", err)
	}
	return values.Get("text")
}

func (f *fakeAPI) record(m postedMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, m)
}

type recordingAPI struct {
	*fakeAPI
	t *testing.T
}

func (r recordingAPI) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	if r.postErr != nil {
		return "", "", r.postErr
	}
	r.record(postedMessage{channel: channelID, text: msgText(r.t, options)})
	return channelID, "123.456", nil
}

func (r recordingAPI) PostEphemeralContext(_ context.Context, channelID, userID string, options ...slack.MsgOption) (string, error) {
	r.record(postedMessage{channel: channelID, user: userID, ephemeral: true, text: msgText(r.t, options)})
	return "123.456", nil
}

type fakeRunner struct {
	gotReq standup.Request
	out    string
	err    error
}

func (f *fakeRunner) Generate(_ context.Context, req standup.Request, w io.Writer) (standup.Result, error) {
	f.gotReq = req
	if f.err != nil {
		return standup.Result{}, f.err
	}
	_, _ = io.WriteString(w, f.out)
	return standup.Result{Raw: f.out, Report: stream.ParseFinal(f.out)}, nil
}

const framedOutput = `[META]{"yesterdayDate":"2024-03-12","todayDate":"2024-03-13","isWeekend":false}[|META]
[YESTERDAY]
• Finished importer
[TODAY]
• Exporter
[BLOCKERS]
`

func newTestBot(t *testing.T, runner *fakeRunner) (*Bot, *fakeAPI) {
	api := &fakeAPI{}
	base := standup.Request{Credentials: domain.Credentials{JiraURL: "https://x", JiraEmail: "a@b", JiraToken: "t"}, Timezone: "UTC"}
	return New(recordingAPI{fakeAPI: api, t: t}, runner, func() standup.Request { return base }), api
}

func TestPostStandupRendersSlackFormat(t *testing.T) {
	bot, api := newTestBot(t, &fakeRunner{})

	if err := bot.PostStandup(context.Background(), "C42", stream.ParseFinal(framedOutput)); err != nil {
		t.Fatalf("PostStandup returned error: %v", err)
	}
	if len(api.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(api.messages))
	}
	msg := api.messages[0]
	if msg.channel != "C42" || msg.ephemeral {
		t.Fatalf("unexpected message target: %+v", msg)
	}
	if !strings.Contains(msg.text, "*Yesterday - Tuesday, Mar 12*\n• Finished importer") {
		t.Fatalf("unexpected text: %q", msg.text)
	}
	if !strings.Contains(msg.text, "• No blockers identified") {
		t.Fatalf("expected empty blockers message: %q", msg.text)
	}
}

func TestSlashCommandGeneratesAndPosts(t *testing.T) {
	runner := &fakeRunner{out: framedOutput}
	bot, api := newTestBot(t, runner)

	bot.HandleSlashCommand(context.Background(), slack.SlashCommand{Command: "/standup", Text: " save ", ChannelID: "C1", UserID: "U1"})

	if !runner.gotReq.Save {
		t.Fatal("expected save flag from command text")
	}
	if runner.gotReq.Credentials.JiraEmail != "a@b" {
		t.Fatalf("expected configured credentials, got %+v", runner.gotReq.Credentials)
	}
	if len(api.messages) != 2 {
		t.Fatalf("expected ack + standup, got %d messages", len(api.messages))
	}
	if !api.messages[0].ephemeral || api.messages[0].text != "Generating standup..." {
		t.Fatalf("unexpected first message: %+v", api.messages[0])
	}
	if api.messages[1].ephemeral || api.messages[1].channel != "C1" {
		t.Fatalf("unexpected standup message: %+v", api.messages[1])
	}
}

func TestSlashCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing credentials", standup.ErrMissingCredentials, "Jira credentials are not configured for this bot."},
		{"jira failure", errors.New("jira api error: HTTP 401"), "Error generating standup: jira api error: HTTP 401"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bot, api := newTestBot(t, &fakeRunner{err: tc.err})
			bot.HandleSlashCommand(context.Background(), slack.SlashCommand{Command: "/standup", ChannelID: "C1", UserID: "U1"})

			last := api.messages[len(api.messages)-1]
			if !last.ephemeral || last.text != tc.want {
				t.Fatalf("unexpected error reply: %+v", last)
			}
		})
	}
}

func TestSlashCommandHelpAndUnknown(t *testing.T) {
	runner := &fakeRunner{}
	bot, api := newTestBot(t, runner)

	bot.HandleSlashCommand(context.Background(), slack.SlashCommand{Command: "/standup", Text: "help", ChannelID: "C1", UserID: "U1"})
	bot.HandleSlashCommand(context.Background(), slack.SlashCommand{Command: "/report", ChannelID: "C1", UserID: "U1"})

	if len(api.messages) != 1 {
		t.Fatalf("expected only the help reply, got %d messages", len(api.messages))
	}
	if !strings.HasPrefix(api.messages[0].text, "*Standup Commands*") {
		t.Fatalf("unexpected help text: %q", api.messages[0].text)
	}
	if runner.gotReq.Credentials.JiraURL != "" {
		t.Fatal("runner should not be called for help")
	}
}
