package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/embulk/pluginindex/pkg/cache"
	"github.com/embulk/pluginindex/pkg/catalog"
	"github.com/embulk/pluginindex/pkg/integrations/rubygems"
	"github.com/embulk/pluginindex/pkg/observability"
	"github.com/embulk/pluginindex/pkg/render"
)

// Sink publishes a rendered page. It calls render with the template it
// finds at the destination and reports whether anything was pushed.
type Sink interface {
	Publish(ctx context.Context, render func(template string) (string, error)) (bool, error)
}

// Runner executes pipeline stages with logging and hooks.
//
// The Runner holds no per-run state; concurrent runs with different
// options are safe.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. A nil logger uses the default logger.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Execute runs search, enrich, assemble and render against opts.Template.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	result, err := r.Collect(ctx, opts)
	if err != nil {
		return nil, err
	}

	html, err := r.Render(ctx, result, opts.Template)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.HTML = html
	result.Digest = cache.Hash([]byte(html))
	return result, nil
}

// Update collects the listing and hands it to sink for rendering and publishing.
func (r *Runner) Update(ctx context.Context, opts Options, sink Sink) (*Result, error) {
	result, err := r.Collect(ctx, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, StagePublish)
	pushed, err := sink.Publish(ctx, func(template string) (string, error) {
		return r.Render(ctx, result, template)
	})
	result.Stats.PublishTime = time.Since(start)
	hooks.OnStageComplete(ctx, StagePublish, result.Stats.PluginCount, result.Stats.PublishTime, err)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	result.Published = pushed

	r.Logger.Info("published listing", "pushed", pushed, "duration", result.Stats.PublishTime)
	return result, nil
}

// Collect runs search, enrich and assemble.
func (r *Runner) Collect(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	result := &Result{}
	hooks := observability.Pipeline()

	// Stage 1: Search
	searcher := catalog.NewSearcher(rubygems.NewClient(opts.RegistryURL), r.Logger)
	searcher.Prefix = opts.Prefix
	searcher.MaxPages = opts.MaxPages
	searcher.LastPageSize = opts.LastPageSize
	searcher.AllowPartial = opts.AllowPartial

	start := time.Now()
	hooks.OnStageStart(ctx, StageSearch)
	plugins, err := searcher.Search(ctx)
	result.Stats.SearchTime = time.Since(start)
	hooks.OnStageComplete(ctx, StageSearch, len(plugins), result.Stats.SearchTime, err)
	switch {
	case err != nil && opts.AllowPartial && len(plugins) > 0:
		r.Logger.Warn("registry search incomplete, continuing with partial results",
			"plugins", len(plugins), "err", err)
	case err != nil:
		return nil, fmt.Errorf("search: %w", err)
	}
	result.Plugins = plugins
	result.Stats.PluginCount = len(plugins)

	r.Logger.Info("searched registry",
		"plugins", len(plugins),
		"duration", result.Stats.SearchTime)

	// Stage 2: Enrich
	enricher := catalog.NewEnricher(opts.GitHubAPIURL, r.Logger)
	enricher.Workers = opts.Workers

	start = time.Now()
	hooks.OnStageStart(ctx, StageEnrich)
	err = enricher.Enrich(ctx, plugins)
	result.Stats.EnrichTime = time.Since(start)
	for _, p := range plugins {
		if p.Stars != nil {
			result.Stats.EnrichedCount++
		}
	}
	hooks.OnStageComplete(ctx, StageEnrich, result.Stats.EnrichedCount, result.Stats.EnrichTime, err)
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}

	r.Logger.Info("enriched plugins",
		"enriched", result.Stats.EnrichedCount,
		"duration", result.Stats.EnrichTime)

	// Stage 3: Assemble
	start = time.Now()
	hooks.OnStageStart(ctx, StageAssemble)
	result.Groups = catalog.AssembleWith(plugins, opts.Ordering)
	result.Stats.AssembleTime = time.Since(start)
	hooks.OnStageComplete(ctx, StageAssemble, len(result.Groups), result.Stats.AssembleTime, nil)

	r.Logger.Info("assembled listing",
		"categories", len(result.Groups),
		"duration", result.Stats.AssembleTime)

	result.now = opts.Now
	return result, nil
}

// Render evaluates template against an assembled result.
func (r *Runner) Render(ctx context.Context, result *Result, template string) (string, error) {
	now := time.Now
	if result.now != nil {
		now = result.now
	}

	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, StageRender)
	html, err := render.Render(template, render.NewContext(result.Groups, now()))
	result.Stats.RenderTime = time.Since(start)
	hooks.OnStageComplete(ctx, StageRender, len(html), result.Stats.RenderTime, err)
	if err != nil {
		return "", err
	}

	r.Logger.Info("rendered page",
		"bytes", len(html),
		"duration", result.Stats.RenderTime)
	return html, nil
}
