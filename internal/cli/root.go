package cli

import (
	"github.com/spf13/cobra"

	"github.com/embulk/pluginindex/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "pluginindex builds the Embulk plugin listing",
		Long:         `pluginindex collects Embulk plugins from RubyGems.org, ranks them by downloads and GitHub stars, publishes the listing page, and serves redirects to the latest Embulk release.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "TOML configuration file")

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.updateCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.latestVersionCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
