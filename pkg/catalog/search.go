package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	perrors "github.com/embulk/pluginindex/pkg/errors"
	"github.com/embulk/pluginindex/pkg/integrations/github"
	"github.com/embulk/pluginindex/pkg/integrations/rubygems"
)

const (
	// DefaultPrefix is the gem namespace shared by all plugins.
	DefaultPrefix = "embulk"

	// DefaultMaxPages bounds how many search pages are requested.
	DefaultMaxPages = 100

	// DefaultLastPageSize is the page length below which a page is the last one.
	DefaultLastPageSize = 10
)

// Registry is the search endpoint a [Searcher] pages through.
type Registry interface {
	Search(ctx context.Context, query string, page int) ([]rubygems.Gem, error)
}

// Searcher collects plugins from a gem registry.
type Searcher struct {
	Registry Registry
	Logger   *log.Logger

	// Prefix is the gem namespace; names must look like <Prefix>-<category>-<name>.
	Prefix string

	// MaxPages caps the number of pages requested.
	MaxPages int

	// LastPageSize: a page with fewer results than this ends the search.
	LastPageSize int

	// AllowPartial makes Search return the plugins gathered before a failed
	// page along with the error. By default a failure yields no plugins.
	AllowPartial bool
}

// NewSearcher returns a Searcher with the default limits.
func NewSearcher(registry Registry, logger *log.Logger) *Searcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Searcher{
		Registry:     registry,
		Logger:       logger,
		Prefix:       DefaultPrefix,
		MaxPages:     DefaultMaxPages,
		LastPageSize: DefaultLastPageSize,
	}
}

// Search pages through the registry and returns one plugin per distinct gem
// that follows the naming convention, in the order the registry returned them.
//
// Any failed page aborts the search with an error coded
// [perrors.ErrCodeRegistrySearch].
func (s *Searcher) Search(ctx context.Context) ([]*Plugin, error) {
	s.Logger.Info("searching plugin gems", "prefix", s.Prefix)

	pattern := namePattern(s.Prefix)
	query := s.Prefix + "-"
	seen := make(map[string]bool)
	var plugins []*Plugin

	for page := 1; page <= s.MaxPages; page++ {
		gems, err := s.Registry.Search(ctx, query, page)
		if err != nil {
			err = perrors.Wrap(perrors.ErrCodeRegistrySearch, err, "search page %d", page)
			if s.AllowPartial {
				return plugins, err
			}
			return nil, err
		}

		for i := range gems {
			gem := &gems[i]
			if seen[gem.Name] {
				continue
			}
			seen[gem.Name] = true

			if p, ok := newPlugin(gem, pattern); ok {
				plugins = append(plugins, p)
			}
		}

		s.Logger.Debug("fetched search page", "page", page, "gems", len(gems), "plugins", len(plugins))
		if len(gems) == 0 || len(gems) < s.LastPageSize {
			break
		}
	}

	s.Logger.Info("found plugins", "count", len(plugins), "distinct_gems", len(seen))
	return plugins, nil
}

func namePattern(prefix string) *regexp.Regexp {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return regexp.MustCompile(fmt.Sprintf(`^%s-(%s)-(.*)$`, regexp.QuoteMeta(prefix), strings.Join(names, "|")))
}

// newPlugin converts a gem into a plugin, or reports false when the gem name
// does not carry a known category.
func newPlugin(gem *rubygems.Gem, pattern *regexp.Regexp) (*Plugin, bool) {
	m := pattern.FindStringSubmatch(gem.Name)
	if m == nil {
		return nil, false
	}

	p := &Plugin{
		GemName:   gem.Name,
		Name:      m[2],
		Category:  Category(m[1]),
		Authors:   gem.Authors,
		Version:   gem.Version,
		Licenses:  gem.Licenses,
		Downloads: gem.Downloads,
		Info:      gem.Info,
		GitHubURL: repoURL(gem.DocURLs()),
	}
	p.URL = p.GitHubURL
	if p.URL == "" {
		p.URL = rubygems.GemURL(gem.Name)
	}
	return p, true
}

// repoURL returns the first repository-root URL in urls.
func repoURL(urls []string) string {
	for _, u := range urls {
		if github.IsRepoURL(u) {
			return u
		}
	}
	return ""
}
