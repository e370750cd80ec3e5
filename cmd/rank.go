package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"headsup/internal/aggregate"
	"headsup/internal/output"
)

var rankJSON bool

var rankCmd = &cobra.Command{
	Use:   "rank OWNER",
	Short: "Rank everything that needs OWNER's attention",
	Long: `Fetch open pull requests, assigned issues, and unanswered chat mentions
for OWNER, score each item, and print one list ranked by urgency.

Sources that fail are reported at the bottom; the rest of the list is
still produced.

Examples:
  headsup rank alice          # Human-readable report
  headsup rank alice --json   # Machine-readable JSON array`,
	Args: cobra.ExactArgs(1),
	RunE: runRank,
}

func init() {
	rankCmd.Flags().BoolVar(&rankJSON, "json", false, "Output the ranked items as JSON")
}

func runRank(cmd *cobra.Command, args []string) error {
	owner := args[0]

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	pipelines, err := buildPipelines(cfg, log)
	if err != nil {
		return err
	}

	engine := aggregate.NewEngine(pipelines,
		cfg.Aggregation.MinScore,
		cfg.Aggregation.SourceTimeout(),
		cfg.Aggregation.GlobalTimeout(),
		log)

	result := engine.Aggregate(context.Background(), owner)

	renderer := output.NewRenderer()
	if rankJSON {
		return renderer.RenderJSON(result)
	}
	return renderer.Render(owner, result)
}
