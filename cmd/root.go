package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"headsup/internal/aggregate"
	"headsup/internal/config"
	"headsup/internal/llm"
	"headsup/internal/logger"
	"headsup/internal/normalize"
	"headsup/internal/scoring"
	"headsup/internal/source"
)

// Version information (set at build time)
var (
	appVersion    = "dev"
	appCommitHash = "unknown"
	appBuildDate  = "unknown"
)

var configPath string

// SetVersionInfo sets the version information from build-time variables
func SetVersionInfo(version, commitHash, buildDate string) {
	appVersion = version
	appCommitHash = commitHash
	appBuildDate = buildDate
}

// NewRootCmd creates a new instance of the root command for testing
// This prevents shared state issues in concurrent tests
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "headsup",
		Short: "Cross-tool attention aggregator",
		Long: `headsup collects open pull requests, assigned issues, and unanswered
chat mentions, scores how urgently each needs you, and presents one
ranked list.

Examples:
  headsup rank alice          # Ranked attention report for alice
  headsup rank alice --json   # Same report as JSON
  headsup serve               # Run the HTTP API
  headsup config show         # Print the effective configuration`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")

	// Add all subcommands
	cmd.AddCommand(rankCmd)
	cmd.AddCommand(serveCmd)
	cmd.AddCommand(configCmd)
	cmd.AddCommand(versionCmd)

	return cmd
}

var rootCmd = &cobra.Command{
	Use:   "headsup",
	Short: "Cross-tool attention aggregator",
	Long: `headsup collects open pull requests, assigned issues, and unanswered
chat mentions, scores how urgently each needs you, and presents one
ranked list.

Examples:
  headsup rank alice          # Ranked attention report for alice
  headsup rank alice --json   # Same report as JSON
  headsup serve               # Run the HTTP API
  headsup config show         # Print the effective configuration`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// bootstrap loads configuration and builds the logger shared by commands.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

// buildPipelines constructs one pipeline per enabled source. A source that
// fails to construct (missing credentials) is skipped with a warning rather
// than failing the whole run.
func buildPipelines(cfg *config.Config, log *zap.Logger) ([]aggregate.Pipeline, error) {
	var analyzer llm.Client
	if c := llm.NewOpenAIClient(cfg.LLM); c != nil {
		analyzer = c
	}

	normalizer := normalize.New(cfg.Attention.BotPatterns)

	var pipelines []aggregate.Pipeline

	if cfg.GitHub.Enabled {
		gh, err := source.NewGitHubAdapter(cfg.GitHub, log)
		if err != nil {
			log.Warn("github source disabled", zap.Error(err))
		} else {
			pipelines = append(pipelines, &aggregate.PRPipeline{
				Fetcher:    gh,
				Scorer:     scoring.NewScorer(cfg.Attention.BotPatterns),
				Normalizer: normalizer,
				LLM:        analyzer,
				Patterns:   cfg.Attention.BotPatterns,
				Logger:     log,
			})
		}
	}

	if cfg.Jira.Enabled {
		jira, err := source.NewJiraAdapter(cfg.Jira, log)
		if err != nil {
			log.Warn("jira source disabled", zap.Error(err))
		} else {
			pipelines = append(pipelines, &aggregate.IssuePipeline{
				Fetcher:    jira,
				Normalizer: normalizer,
				LLM:        analyzer,
				Logger:     log,
			})
		}
	}

	if cfg.Slack.Enabled {
		slack, err := source.NewSlackAdapter(cfg.Slack, log)
		if err != nil {
			log.Warn("slack source disabled", zap.Error(err))
		} else {
			pipelines = append(pipelines, &aggregate.ConversationPipeline{
				Fetcher:    slack,
				Normalizer: normalizer,
				Attention:  cfg.Attention,
				LLM:        analyzer,
				Logger:     log,
			})
		}
	}

	if len(pipelines) == 0 {
		return nil, fmt.Errorf("no sources available: check credentials and enabled flags")
	}
	return pipelines, nil
}
