package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/embulk/pluginindex/pkg/pipeline"
	"github.com/embulk/pluginindex/pkg/publish"
)

func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(c.Logger)
}

// updateCommand builds the listing and publishes it.
func (c *CLI) updateCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Build the plugin listing and push it to the pages repository",
		Long: `Update clones (or refreshes) the pages repository, renders the listing
with the template found there, commits the result and pushes when it changed.

The push uses GITHUB_TOKEN when set. A failed run is retried once from a
fresh clone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			run := uuid.NewString()
			logger := c.Logger.With("run", run)
			logger.Info("starting update", "remote", cfg.Publish.RemoteURL, "dry_run", dryRun)

			runner := pipeline.NewRunner(logger)
			prog := newProgress(logger)

			if dryRun {
				result, err := runner.Collect(cmd.Context(), cfg.PipelineOptions())
				if err != nil {
					return err
				}
				prog.done("Collected listing")
				printInfo("Dry run, nothing published")
				printStats(result.Stats.PluginCount, result.Stats.EnrichedCount, len(result.Groups))
				return nil
			}

			result, err := runner.Update(cmd.Context(), cfg.PipelineOptions(), publish.New(cfg.PublishOptions(), logger))
			if err != nil {
				return err
			}
			prog.done("Updated listing")

			if result.Published {
				printSuccess("Published %s", cfg.Publish.Output)
				printDetail("%s (%s)", cfg.Publish.RemoteURL, cfg.Publish.Branch)
			} else {
				printInfo("Listing unchanged, nothing pushed")
			}
			printStats(result.Stats.PluginCount, result.Stats.EnrichedCount, len(result.Groups))
			printKeyValue("run", run)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "search and enrich only, skip publishing")
	return cmd
}
