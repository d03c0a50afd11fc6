package standup

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"standupbot/internal/domain"
	"standupbot/internal/standup/mocks"
	"standupbot/internal/stream"
)

var (
	testCreds = domain.Credentials{JiraURL: "https://acme.atlassian.net", JiraEmail: "dev@acme.io", JiraToken: "tok"}
	// Wednesday.
	testNow = time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
)

func testIssues() []domain.Issue {
	return []domain.Issue{
		{Key: "ABC-1", Summary: "Finish importer", Status: "Done", Updated: time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC)},
		{Key: "ABC-2", Summary: "Wire exporter", Status: "In Progress", Labels: []string{"blocker"}, Updated: time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)},
	}
}

type fixture struct {
	issues  *mocks.MockIssueSource
	gen     *mocks.MockGenerator
	history *mocks.MockHistoryStore
	svc     *Service
}

func newFixture(t *testing.T, withHistory bool) fixture {
	ctrl := gomock.NewController(t)
	f := fixture{
		issues:  mocks.NewMockIssueSource(ctrl),
		gen:     mocks.NewMockGenerator(ctrl),
		history: mocks.NewMockHistoryStore(ctrl),
	}
	var store HistoryStore
	if withHistory {
		store = f.history
	}
	f.svc = NewService(f.issues, f.gen, store)
	f.svc.now = func() time.Time { return testNow }
	f.svc.newID = func() string { return "id-1" }
	return f
}

func emitAll(chunks ...string) func(context.Context, string, func(string) error) error {
	return func(_ context.Context, _ string, emit func(string) error) error {
		for _, c := range chunks {
			if err := emit(c); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestGenerateStreamsMetaThenChunks(t *testing.T) {
	f := newFixture(t, false)
	f.issues.EXPECT().FetchIssues(gomock.Any(), testCreds).Return(testIssues(), nil)

	var prompt string
	f.gen.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, p string, emit func(string) error) error {
			prompt = p
			return emitAll("[YESTERDAY]\n• finished importer\n", "[TODAY]\n• wiring exporter\n", "[BLOCKERS]\n• exporter blocked\n")(ctx, p, emit)
		})

	var out bytes.Buffer
	res, err := f.svc.Generate(context.Background(), Request{Credentials: testCreds}, &out)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.String(),
		`[META]{"yesterdayDate":"2024-03-12","todayDate":"2024-03-13","isWeekend":false}[|META]`+"\n"))
	assert.Equal(t, out.String(), res.Raw)

	assert.Contains(t, prompt, "Yesterday's Work (2024-03-12):\n[ABC-1] Finish importer")
	assert.Contains(t, prompt, "Today's Work (2024-03-13):\n[ABC-2] Wire exporter")
	assert.Contains(t, prompt, "- [ABC-2] Wire exporter")

	require.True(t, res.Report.HasMeta)
	assert.Equal(t, "2024-03-12", res.Report.Meta.YesterdayDate)
	assert.Equal(t, "• finished importer", res.Report.Yesterday.Text)
	assert.Equal(t, "• wiring exporter", res.Report.Today.Text)
	assert.Equal(t, "• exporter blocked", res.Report.Blockers.Text)
	assert.Equal(t, 2, res.Prepared.IssueCount)
	assert.Nil(t, res.Saved)
}

func TestGenerateMissingCredentials(t *testing.T) {
	f := newFixture(t, true)

	tests := []domain.Credentials{
		{},
		{JiraURL: "https://x", JiraEmail: "a@b"},
		{JiraEmail: "a@b", JiraToken: "t"},
	}
	for _, creds := range tests {
		var out bytes.Buffer
		_, err := f.svc.Generate(context.Background(), Request{Credentials: creds}, &out)
		assert.ErrorIs(t, err, ErrMissingCredentials)
		assert.Empty(t, out.String())
	}
}

func TestGenerateFetchFailureWritesNothing(t *testing.T) {
	f := newFixture(t, false)
	jiraErr := errors.New("jira api error: HTTP 401")
	f.issues.EXPECT().FetchIssues(gomock.Any(), testCreds).Return(nil, jiraErr)

	var out bytes.Buffer
	_, err := f.svc.Generate(context.Background(), Request{Credentials: testCreds}, &out)
	assert.ErrorIs(t, err, jiraErr)
	assert.Empty(t, out.String())
}

func TestGenerateGeneratorFailureKeepsMeta(t *testing.T) {
	f := newFixture(t, true)
	genErr := errors.New("overloaded")
	f.issues.EXPECT().FetchIssues(gomock.Any(), testCreds).Return(testIssues(), nil)
	f.gen.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, p string, emit func(string) error) error {
			_ = emit("[YESTERDAY]\n• partial")
			return genErr
		})

	var out bytes.Buffer
	res, err := f.svc.Generate(context.Background(), Request{Credentials: testCreds, Save: true}, &out)
	require.ErrorIs(t, err, genErr)
	assert.True(t, strings.HasPrefix(out.String(), stream.MarkerMetaOpen))
	assert.Equal(t, "• partial", res.Report.Yesterday.Text)
	assert.Nil(t, res.Saved)
}

func TestGenerateSavesHistory(t *testing.T) {
	f := newFixture(t, true)
	f.issues.EXPECT().FetchIssues(gomock.Any(), testCreds).Return(testIssues(), nil)
	f.gen.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(emitAll("[YESTERDAY]\n• a\n[TODAY]\n• b\n[BLOCKERS]\n"))

	var saved domain.SavedStandup
	f.history.EXPECT().Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s domain.SavedStandup) error {
			saved = s
			return nil
		})

	req := Request{Credentials: testCreds, Save: true, Timezone: "Europe/Berlin", PublicHolidays: []string{"2024-03-08"}}
	var out bytes.Buffer
	res, err := f.svc.Generate(context.Background(), req, &out)
	require.NoError(t, err)
	require.NotNil(t, res.Saved)

	assert.Equal(t, "id-1", saved.ID)
	assert.Equal(t, "dev@acme.io", saved.UserEmail)
	assert.Equal(t, testNow, saved.CreatedAt)
	assert.Equal(t, out.String(), saved.Output)
	assert.Contains(t, saved.IssuesInput, "Blockers & Impediments:")
	assert.Equal(t, "Europe/Berlin", saved.Timezone)
	assert.Equal(t, []string{"2024-03-08"}, saved.PublicHolidays)
}

func TestGenerateSaveWithoutHistory(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Generate(context.Background(), Request{Credentials: testCreds, Save: true}, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestGenerateSaveFailure(t *testing.T) {
	f := newFixture(t, true)
	f.issues.EXPECT().FetchIssues(gomock.Any(), testCreds).Return(nil, nil)
	f.gen.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.history.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	res, err := f.svc.Generate(context.Background(), Request{Credentials: testCreds, Save: true}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving standup")
	assert.Nil(t, res.Saved)
	assert.True(t, res.Report.HasMeta)
}

func TestPrepareUsesOffsetAndHolidays(t *testing.T) {
	f := newFixture(t, false)
	f.issues.EXPECT().FetchIssues(gomock.Any(), testCreds).Return(nil, nil)

	// 10:00 UTC on Wednesday is already Thursday 01:00 at +15:00.
	p, err := f.svc.Prepare(context.Background(), Request{
		Credentials:    testCreds,
		OffsetMinutes:  15 * 60,
		PublicHolidays: []string{"2024-03-13"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-14", p.Categorization.TodayDate)
	assert.Equal(t, "2024-03-12", p.Categorization.YesterdayDate)
	assert.Equal(t, stream.Meta{YesterdayDate: "2024-03-12", TodayDate: "2024-03-14"}, p.Meta())
}

func TestTestConnection(t *testing.T) {
	f := newFixture(t, false)
	f.issues.EXPECT().FetchIssues(gomock.Any(), testCreds).Return(testIssues(), nil)

	n, err := f.svc.TestConnection(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.svc.TestConnection(context.Background(), domain.Credentials{})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestHistory(t *testing.T) {
	f := newFixture(t, true)
	want := []domain.SavedStandup{{ID: "b"}, {ID: "a"}}
	f.history.EXPECT().List(gomock.Any(), "dev@acme.io", defaultHistoryLimit).Return(want, nil)
	f.history.EXPECT().List(gomock.Any(), "dev@acme.io", 3).Return(want[:1], nil)

	got, err := f.svc.History(context.Background(), "dev@acme.io", 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = f.svc.History(context.Background(), "dev@acme.io", 3)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	disabled := newFixture(t, false)
	_, err = disabled.svc.History(context.Background(), "dev@acme.io", 10)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}
