package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/embulk/pluginindex/pkg/cache"
	"github.com/embulk/pluginindex/pkg/config"
	"github.com/embulk/pluginindex/pkg/pipeline"
	"github.com/embulk/pluginindex/pkg/publish"
	"github.com/embulk/pluginindex/pkg/server"
	"github.com/embulk/pluginindex/pkg/version"
)

// appName is the binary name used in help and completions.
const appName = "pluginindex"

// redisPrefix namespaces version cache keys in a shared redis.
const redisPrefix = "pluginindex:"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.configPath)
}

// newVersionCache returns the redis cache when configured, else the file cache.
func (c *CLI) newVersionCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	ttl := cfg.Version.CacheTTL.Duration
	if cfg.Version.RedisURL != "" {
		c.Logger.Debug("using redis version cache", "ttl", ttl)
		return cache.NewRedisCache(ctx, cfg.Version.RedisURL, redisPrefix, ttl)
	}
	return cache.NewFileCache(cfg.Version.CacheDir, ttl)
}

func (c *CLI) newResolver(ctx context.Context, cfg *config.Config) (*version.Resolver, cache.Cache, error) {
	vc, err := c.newVersionCache(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return version.NewResolver(vc, cfg.Version.VendorURL, cfg.Version.LatestPath, c.Logger), vc, nil
}

// updateFunc builds and publishes the listing, logging to the given logger.
func updateFunc(cfg *config.Config) server.UpdateFunc {
	return func(ctx context.Context, logger *log.Logger) error {
		runner := pipeline.NewRunner(logger)
		pub := publish.New(cfg.PublishOptions(), logger)
		_, err := runner.Update(ctx, cfg.PipelineOptions(), pub)
		return err
	}
}
