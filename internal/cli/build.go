package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/embulk/pluginindex/pkg/render"
)

type buildOpts struct {
	template string
	output   string
}

// buildCommand renders the listing locally without publishing.
func (c *CLI) buildCommand() *cobra.Command {
	var opts buildOpts

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the plugin listing into a local HTML file",
		Long: `Build searches RubyGems.org for Embulk plugins, looks up their GitHub
stars, and renders the listing with a Handlebars template.

Without --template the built-in page template is used.`,
		Example: `  pluginindex build -o index.html
  pluginindex build --template plugins/index.html.hbs -o plugins/index.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "Handlebars template (default: built-in)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "index.html", "output file")
	return cmd
}

func (c *CLI) runBuild(cmd *cobra.Command, opts buildOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	tpl := render.DefaultTemplate()
	if opts.template != "" {
		data, err := os.ReadFile(opts.template)
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		tpl = string(data)
	}

	pipelineOpts := cfg.PipelineOptions()
	pipelineOpts.Template = tpl

	prog := newProgress(c.Logger)
	result, err := c.newRunner().Execute(cmd.Context(), pipelineOpts)
	if err != nil {
		return err
	}
	prog.done("Built listing")

	if err := os.WriteFile(opts.output, []byte(result.HTML), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	printSuccess("Listing built")
	printStats(result.Stats.PluginCount, result.Stats.EnrichedCount, len(result.Groups))
	printFile(opts.output)
	return nil
}
