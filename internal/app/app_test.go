package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"standupbot/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	offset := 120
	return config.Config{
		AppEnv:                     "test",
		JiraURL:                    "https://acme.atlassian.net",
		JiraEmail:                  "dev@acme.io",
		JiraToken:                  "tok",
		JiraMaxResults:             100,
		JiraRequestsPerSecond:      5,
		LLMProvider:                config.ProviderAnthropic,
		LLMMaxTokens:               1500,
		AnthropicAPIKey:            "sk-test",
		PublicHolidays:             []string{"2024-12-25"},
		Timezone:                   "Europe/Berlin",
		TimezoneOffsetMinutes:      &offset,
		HistoryBackend:             config.HistoryNone,
		ExternalHTTPTimeoutSeconds: 30,
		Location:                   time.UTC,
	}
}

func TestNewWithoutHistory(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer a.Close()

	if a.HistoryEnabled() {
		t.Fatal("history should be disabled for backend none")
	}
	if _, err := a.Service.History(context.Background(), "dev@acme.io", 5); err == nil {
		t.Fatal("expected history to be unavailable")
	}
}

func TestNewWithSQLiteHistory(t *testing.T) {
	cfg := testConfig(t)
	cfg.HistoryBackend = config.HistorySQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "standups.db")

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !a.HistoryEnabled() {
		t.Fatal("history should be enabled for sqlite")
	}
	records, err := a.Service.History(context.Background(), "dev@acme.io", 5)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty history, got %d", len(records))
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLMProvider = "bard"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}

func TestRequestUsesConfiguredCredentials(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer a.Close()

	req := a.Request()
	if !req.Credentials.Complete() || req.Credentials.JiraEmail != "dev@acme.io" {
		t.Fatalf("unexpected credentials: %+v", req.Credentials)
	}
	if req.OffsetMinutes != 120 {
		t.Fatalf("offset = %d, want 120", req.OffsetMinutes)
	}
	if req.Timezone != "Europe/Berlin" || len(req.PublicHolidays) != 1 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Save {
		t.Fatal("requests are not saved by default")
	}
}
