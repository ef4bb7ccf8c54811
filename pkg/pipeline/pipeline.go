// Package pipeline runs the catalog build from registry search to HTML.
//
// # Stages
//
//  1. Search: page through the gem registry for plugin gems
//  2. Enrich: attach repository stars and avatars
//  3. Assemble: sort, clean up and group by category
//  4. Render: evaluate the page template
//
// [Runner.Execute] runs all four against a template held in [Options].
// [Runner.Update] stops after Assemble and hands rendering to a [Sink],
// which reads the template from wherever the page is published.
//
//	runner := pipeline.NewRunner(logger)
//	result, err := runner.Execute(ctx, pipeline.Options{Template: tpl})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("index.html", []byte(result.HTML), 0o644)
package pipeline

import (
	"fmt"
	"time"

	"github.com/embulk/pluginindex/pkg/catalog"
	"github.com/embulk/pluginindex/pkg/integrations/github"
	"github.com/embulk/pluginindex/pkg/integrations/rubygems"
)

// Stage names reported to logs and hooks.
const (
	StageSearch   = "search"
	StageEnrich   = "enrich"
	StageAssemble = "assemble"
	StageRender   = "render"
	StagePublish  = "publish"
)

// Options configures one pipeline run. Zero values select the defaults.
type Options struct {
	RegistryURL  string // Gem registry, default rubygems.org
	GitHubAPIURL string // Repository API, default api.github.com

	Prefix       string
	MaxPages     int
	LastPageSize int
	Workers      int
	AllowPartial bool

	// Ordering sorts the listing; nil means catalog.ByPackedKey.
	Ordering catalog.Ordering

	// Template is the page source for Execute. Update ignores it.
	Template string

	// Now stamps the rendered page; nil means time.Now.
	Now func() time.Time

	validated bool
}

// ValidateAndSetDefaults fills zero fields and rejects negative limits.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.MaxPages < 0 || o.LastPageSize < 0 || o.Workers < 0 {
		return fmt.Errorf("limits must not be negative (pages=%d, last page=%d, workers=%d)",
			o.MaxPages, o.LastPageSize, o.Workers)
	}
	if o.RegistryURL == "" {
		o.RegistryURL = rubygems.DefaultURL
	}
	if o.GitHubAPIURL == "" {
		o.GitHubAPIURL = github.DefaultURL
	}
	if o.Prefix == "" {
		o.Prefix = catalog.DefaultPrefix
	}
	if o.MaxPages == 0 {
		o.MaxPages = catalog.DefaultMaxPages
	}
	if o.LastPageSize == 0 {
		o.LastPageSize = catalog.DefaultLastPageSize
	}
	if o.Workers == 0 {
		o.Workers = catalog.DefaultWorkers
	}
	if o.Ordering == nil {
		o.Ordering = catalog.ByPackedKey
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.validated = true
	return nil
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Plugins in registry order, enriched.
	Plugins []*catalog.Plugin

	// Groups is the assembled listing.
	Groups []catalog.CategoryGroup

	// HTML is the rendered page. Empty after Update.
	HTML string

	// Digest is the content hash of HTML.
	Digest string

	// Published reports whether Update pushed a new page.
	Published bool

	Stats Stats

	now func() time.Time
}

// Stats contains pipeline execution statistics.
type Stats struct {
	PluginCount   int
	EnrichedCount int
	SearchTime    time.Duration
	EnrichTime    time.Duration
	AssembleTime  time.Duration
	RenderTime    time.Duration
	PublishTime   time.Duration
}
