package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	HistoryNone     = "none"
	HistorySQLite   = "sqlite"
	HistoryPostgres = "postgres"
)

type Config struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`

	JiraURL               string  `yaml:"jira_url"`
	JiraEmail             string  `yaml:"jira_email"`
	JiraToken             string  `yaml:"jira_api_token"`
	JiraMaxResults        int     `yaml:"jira_max_results"`
	JiraRequestsPerSecond float64 `yaml:"jira_requests_per_second"`

	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	LLMMaxTokens    int    `yaml:"llm_max_tokens"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`

	PublicHolidays []string `yaml:"public_holidays"`
	Timezone       string   `yaml:"timezone"`
	// Explicit offset in minutes east of UTC; overrides the zone's own offset.
	TimezoneOffsetMinutes *int `yaml:"timezone_offset_minutes"`

	HistoryBackend string `yaml:"history_backend"`
	DBPath         string `yaml:"db_path"`
	DatabaseURL    string `yaml:"database_url"`

	ReportOutputDir            string `yaml:"report_output_dir"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`

	SlackBotToken   string `yaml:"slack_bot_token"`
	SlackAppToken   string `yaml:"slack_app_token"`
	SlackChannelID  string `yaml:"slack_channel_id"`
	StandupSchedule string `yaml:"standup_schedule"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// LoadConfig loads the configuration and exits the process when it is invalid.
func LoadConfig() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config invalid")
	}
	return cfg
}

// Load reads config.yaml (or CONFIG_PATH), applies environment overrides and
// defaults, and validates the result.
func Load() (Config, error) {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", configPath, err)
		}
		log.Info().Str("path", configPath).Msg("loaded config")
	}

	envOverride(&cfg.AppEnv, "APP_ENV")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")
	envOverride(&cfg.HTTPAddr, "HTTP_ADDR")
	envOverride(&cfg.JiraURL, "JIRA_URL")
	envOverride(&cfg.JiraEmail, "JIRA_EMAIL")
	envOverride(&cfg.JiraToken, "JIRA_API_TOKEN")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "CLAUDE_API_KEY")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.HistoryBackend, "HISTORY_BACKEND")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.DatabaseURL, "DATABASE_URL")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.StandupSchedule, "STANDUP_SCHEDULE")

	ints := []struct {
		field *int
		key   string
	}{
		{&cfg.JiraMaxResults, "JIRA_MAX_RESULTS"},
		{&cfg.LLMMaxTokens, "LLM_MAX_TOKENS"},
		{&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"},
	}
	for _, o := range ints {
		if err := envOverrideInt(o.field, o.key); err != nil {
			return Config{}, err
		}
	}
	if err := envOverrideFloat(&cfg.JiraRequestsPerSecond, "JIRA_REQUESTS_PER_SECOND"); err != nil {
		return Config{}, err
	}
	if val := os.Getenv("TIMEZONE_OFFSET_MINUTES"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TIMEZONE_OFFSET_MINUTES '%s': %w", val, err)
		}
		cfg.TimezoneOffsetMinutes = &parsed
	}
	if dates := os.Getenv("PUBLIC_HOLIDAYS"); dates != "" {
		cfg.PublicHolidays = splitList(dates)
	}

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.AppEnv == "" {
		cfg.AppEnv = "prod"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.JiraMaxResults == 0 {
		cfg.JiraMaxResults = 100
	}
	if cfg.JiraRequestsPerSecond == 0 {
		cfg.JiraRequestsPerSecond = 5
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = ProviderAnthropic
	}
	if cfg.LLMMaxTokens == 0 {
		cfg.LLMMaxTokens = 1500
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.HistoryBackend == "" {
		cfg.HistoryBackend = HistorySQLite
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./standupbot.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
}

func (cfg *Config) validate() error {
	switch cfg.LLMProvider {
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return errors.New("anthropic_api_key is required when llm_provider=anthropic")
		}
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return errors.New("openai_api_key is required when llm_provider=openai")
		}
	default:
		return fmt.Errorf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
		}
		cfg.Location = loc
	}
	if off := cfg.TimezoneOffsetMinutes; off != nil && (*off < -14*60 || *off > 14*60) {
		return fmt.Errorf("invalid timezone_offset_minutes '%d': must be within +/-840", *off)
	}

	for _, d := range cfg.PublicHolidays {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("invalid public holiday '%s': want YYYY-MM-DD", d)
		}
	}

	switch cfg.HistoryBackend {
	case HistoryNone, HistorySQLite:
	case HistoryPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("database_url is required when history_backend=postgres")
		}
	default:
		return fmt.Errorf("history_backend must be 'sqlite', 'postgres' or 'none', got '%s'", cfg.HistoryBackend)
	}

	if cfg.JiraMaxResults < 1 || cfg.JiraMaxResults > 100 {
		return fmt.Errorf("invalid jira_max_results '%d': must be between 1 and 100", cfg.JiraMaxResults)
	}
	if cfg.JiraRequestsPerSecond < 0 {
		return fmt.Errorf("invalid jira_requests_per_second '%f': must be >= 0", cfg.JiraRequestsPerSecond)
	}
	if cfg.LLMMaxTokens < 1 {
		return fmt.Errorf("invalid llm_max_tokens '%d': must be >= 1", cfg.LLMMaxTokens)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}

	if (cfg.SlackBotToken == "") != (cfg.SlackAppToken == "") {
		return errors.New("slack_bot_token and slack_app_token must be set together")
	}
	if cfg.StandupSchedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(cfg.StandupSchedule); err != nil {
			return fmt.Errorf("invalid standup_schedule '%s': %w", cfg.StandupSchedule, err)
		}
		if !cfg.JiraConfigured() {
			return errors.New("standup_schedule requires jira_url, jira_email and jira_api_token")
		}
	}
	return nil
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) JiraConfigured() bool {
	return c.JiraURL != "" && c.JiraEmail != "" && c.JiraToken != ""
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

// OffsetMinutes returns the user's UTC offset at the given instant.
func (c Config) OffsetMinutes(at time.Time) int {
	if c.TimezoneOffsetMinutes != nil {
		return *c.TimezoneOffsetMinutes
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	_, offset := at.In(loc).Zone()
	return offset / 60
}
