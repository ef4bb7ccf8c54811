package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/embulk/pluginindex/pkg/cache"
	"github.com/embulk/pluginindex/pkg/version"
)

// cacheCommand creates the version cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the cached release version",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheShowCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the cached release version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			vc, err := c.newVersionCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer vc.Close()

			if err := vc.Delete(cmd.Context(), version.CacheKey); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess("Cleared cached version")
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the version cache file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Version.RedisURL != "" {
				fmt.Fprintln(stdout, "redis key "+redisPrefix+version.CacheKey)
				return nil
			}
			fc, err := cache.NewFileCache(cfg.Version.CacheDir, cfg.Version.CacheTTL.Duration)
			if err != nil {
				return err
			}
			path, err := fc.Path(version.CacheKey)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, path)
			return nil
		},
	}
}

// cacheShowCommand creates the "cache show" subcommand.
func (c *CLI) cacheShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cached version and its age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			fc, err := cache.NewFileCache(cfg.Version.CacheDir, cfg.Version.CacheTTL.Duration)
			if err != nil {
				return err
			}
			entry, err := fc.Stat(version.CacheKey)
			if os.IsNotExist(err) {
				printInfo("No cached version")
				return nil
			}
			if err != nil {
				return err
			}
			data, _, err := fc.Get(cmd.Context(), version.CacheKey)
			if err != nil {
				return err
			}
			if data == nil {
				printWarning("Cached version is stale")
				printNextStep("Refresh it with", appName+" latest-version --refresh")
				return nil
			}
			printKeyValue("version", string(data))
			printKeyValue("updated", entry.UpdatedAt.Format("2006-01-02 15:04:05"))
			printKeyValue("ttl", fc.TTL().String())
			return nil
		},
	}
}
