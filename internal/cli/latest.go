package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/embulk/pluginindex/pkg/version"
)

// latestVersionCommand prints the latest Embulk release.
func (c *CLI) latestVersionCommand() *cobra.Command {
	var (
		refresh bool
		jar     bool
	)

	cmd := &cobra.Command{
		Use:   "latest-version",
		Short: "Print the latest Embulk release version",
		Long: `Print the latest Embulk release. The answer is cached for five minutes
(file embulk.version, or redis when REDIS_URL is set).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			resolver, vc, err := c.newResolver(ctx, cfg)
			if err != nil {
				return err
			}
			defer vc.Close()

			if refresh {
				if err := vc.Delete(ctx, version.CacheKey); err != nil {
					return fmt.Errorf("clear cached version: %w", err)
				}
			}

			spin := newSpinner(ctx, os.Stderr, "Resolving latest version...")
			spin.Start()
			v, err := resolver.Resolve(ctx)
			spin.Stop()
			if err != nil {
				return err
			}

			if jar {
				fmt.Fprintln(stdout, version.JarURL(cfg.Version.DownloadBase, v))
				return nil
			}
			fmt.Fprintln(stdout, v)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cached version")
	cmd.Flags().BoolVar(&jar, "jar", false, "print the download URL instead of the version")
	return cmd
}
