// Package config loads the explicit configuration object consumed by the
// aggregation core and its collaborators. Nothing in the core reads ambient
// process state; everything tunable lives here and is passed in at startup.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// DefaultMinScore is the threshold below which items are not surfaced. The
// cutoff is a heuristic carried over from production behavior; deployments
// that want a different bar override it in the config file.
const DefaultMinScore = 0.3

const (
	DefaultMaxMessageAgeDays       = 30
	DefaultInactivityThresholdDays = 7
)

// DefaultBotPatterns match automation accounts by substring.
var DefaultBotPatterns = []string{"[bot]", "-bot", "_bot", "jenkins", "automation"}

// DefaultResolutionKeywords mark a chat thread as already handled.
var DefaultResolutionKeywords = []string{
	"done", "completed", "finished", "resolved", "fixed", "solved",
	"thanks", "thank you", "got it", "understood", "perfect",
	"sounds good", "looks good", "approved", "lgtm", "ship it",
}

type Config struct {
	Attention   AttentionConfig   `yaml:"attention"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	GitHub      GitHubConfig      `yaml:"github"`
	Jira        JiraConfig        `yaml:"jira"`
	Slack       SlackConfig       `yaml:"slack"`
	LLM         LLMConfig         `yaml:"llm"`
	HTTP        HTTPConfig        `yaml:"http"`
	Logger      LoggerConfig      `yaml:"logger"`
}

// AttentionConfig tunes the pure attention heuristics.
type AttentionConfig struct {
	MaxMessageAgeDays       int      `yaml:"max_message_age_days" env:"HEADSUP_MAX_MESSAGE_AGE_DAYS"`
	InactivityThresholdDays int      `yaml:"inactivity_threshold_days" env:"HEADSUP_INACTIVITY_THRESHOLD_DAYS"`
	BotPatterns             []string `yaml:"bot_patterns" env:"HEADSUP_BOT_PATTERNS"`
	ResolutionKeywords      []string `yaml:"resolution_keywords" env:"HEADSUP_RESOLUTION_KEYWORDS"`
}

// AggregationConfig bounds the fan-out run and the final ranking. Timeouts
// are whole seconds so they read the same in YAML and environment overrides.
type AggregationConfig struct {
	MinScore             float64 `yaml:"min_score" env:"HEADSUP_MIN_SCORE"`
	SourceTimeoutSeconds int     `yaml:"source_timeout_seconds" env:"HEADSUP_SOURCE_TIMEOUT_SECONDS"`
	GlobalTimeoutSeconds int     `yaml:"global_timeout_seconds" env:"HEADSUP_GLOBAL_TIMEOUT_SECONDS"`
}

func (c AggregationConfig) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutSeconds) * time.Second
}

func (c AggregationConfig) GlobalTimeout() time.Duration {
	return time.Duration(c.GlobalTimeoutSeconds) * time.Second
}

type GitHubConfig struct {
	Enabled bool   `yaml:"enabled" env:"HEADSUP_GITHUB_ENABLED"`
	Token   string `yaml:"token" env:"GITHUB_TOKEN"`
	BaseURL string `yaml:"base_url" env:"HEADSUP_GITHUB_BASE_URL"`
}

type JiraConfig struct {
	Enabled   bool   `yaml:"enabled" env:"HEADSUP_JIRA_ENABLED"`
	Server    string `yaml:"server" env:"JIRA_SERVER"`
	Username  string `yaml:"username" env:"JIRA_USERNAME"`
	APIToken  string `yaml:"api_token" env:"JIRA_API_TOKEN"`
	MaxIssues int    `yaml:"max_issues" env:"HEADSUP_JIRA_MAX_ISSUES"`
}

type SlackConfig struct {
	Enabled bool   `yaml:"enabled" env:"HEADSUP_SLACK_ENABLED"`
	Token   string `yaml:"token" env:"SLACK_TOKEN"`
	BaseURL string `yaml:"base_url" env:"HEADSUP_SLACK_BASE_URL"`
}

type LLMConfig struct {
	Enabled        bool    `yaml:"enabled" env:"HEADSUP_LLM_ENABLED"`
	BaseURL        string  `yaml:"base_url" env:"HEADSUP_LLM_BASE_URL"`
	APIKey         string  `yaml:"api_key" env:"OPENAI_API_KEY"`
	Model          string  `yaml:"model" env:"HEADSUP_LLM_MODEL"`
	TimeoutSeconds int     `yaml:"timeout_seconds" env:"HEADSUP_LLM_TIMEOUT_SECONDS"`
	Temperature    float64 `yaml:"temperature" env:"HEADSUP_LLM_TEMPERATURE"`
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type HTTPConfig struct {
	Host           string `yaml:"host" env:"HEADSUP_HTTP_HOST"`
	Port           int    `yaml:"port" env:"HEADSUP_HTTP_PORT"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"HEADSUP_HTTP_TIMEOUT_SECONDS"`
}

func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type LoggerConfig struct {
	Level    string `yaml:"level" env:"HEADSUP_LOG_LEVEL"`
	Encoding string `yaml:"encoding" env:"HEADSUP_LOG_ENCODING"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Attention: AttentionConfig{
			MaxMessageAgeDays:       DefaultMaxMessageAgeDays,
			InactivityThresholdDays: DefaultInactivityThresholdDays,
			BotPatterns:             append([]string(nil), DefaultBotPatterns...),
			ResolutionKeywords:      append([]string(nil), DefaultResolutionKeywords...),
		},
		Aggregation: AggregationConfig{
			MinScore:             DefaultMinScore,
			SourceTimeoutSeconds: 30,
			GlobalTimeoutSeconds: 60,
		},
		GitHub: GitHubConfig{Enabled: true},
		Jira:   JiraConfig{Enabled: true, MaxIssues: 10},
		Slack:  SlackConfig{Enabled: true, BaseURL: "https://slack.com/api"},
		LLM: LLMConfig{
			Model:          "gpt-4.1",
			TimeoutSeconds: 45,
			Temperature:    0.1,
		},
		HTTP: HTTPConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			TimeoutSeconds: 90,
		},
		Logger: LoggerConfig{Level: "info", Encoding: "console"},
	}
}

// Load reads the YAML config at path (when non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Aggregation.MinScore < 0 || c.Aggregation.MinScore > 1 {
		return fmt.Errorf("aggregation.min_score must be in [0,1], got %v", c.Aggregation.MinScore)
	}
	if c.Attention.MaxMessageAgeDays <= 0 {
		return fmt.Errorf("attention.max_message_age_days must be positive, got %d", c.Attention.MaxMessageAgeDays)
	}
	if c.Attention.InactivityThresholdDays <= 0 {
		return fmt.Errorf("attention.inactivity_threshold_days must be positive, got %d", c.Attention.InactivityThresholdDays)
	}
	if c.Aggregation.SourceTimeoutSeconds <= 0 || c.Aggregation.GlobalTimeoutSeconds <= 0 {
		return fmt.Errorf("aggregation timeouts must be positive")
	}
	return nil
}

// Render returns the effective configuration as YAML, with credentials
// masked. Used by "headsup config show".
func (c *Config) Render() (string, error) {
	masked := *c
	masked.GitHub.Token = maskSecret(masked.GitHub.Token)
	masked.Jira.APIToken = maskSecret(masked.Jira.APIToken)
	masked.Slack.Token = maskSecret(masked.Slack.Token)
	masked.LLM.APIKey = maskSecret(masked.LLM.APIKey)

	out, err := yaml.Marshal(&masked)
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return string(out), nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
