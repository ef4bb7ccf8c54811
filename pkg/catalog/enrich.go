package catalog

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/embulk/pluginindex/pkg/integrations"
	"github.com/embulk/pluginindex/pkg/integrations/github"
	"github.com/embulk/pluginindex/pkg/observability"
)

// DefaultWorkers is the number of concurrent repository lookups.
const DefaultWorkers = 2

// RepoFetcher looks up repository metadata. Each worker owns one.
type RepoFetcher interface {
	FetchRepo(ctx context.Context, owner, repo string) (*github.Repo, error)
	CloseIdleConnections()
}

// Enricher attaches repository stars and owner avatars to plugins.
type Enricher struct {
	// NewFetcher returns the client used by one worker.
	NewFetcher func() RepoFetcher
	Workers    int
	Logger     *log.Logger
}

// NewEnricher returns an Enricher whose workers each talk to the GitHub API
// at baseURL through their own connection pool.
func NewEnricher(baseURL string, logger *log.Logger) *Enricher {
	if logger == nil {
		logger = log.Default()
	}
	return &Enricher{
		NewFetcher: func() RepoFetcher { return github.NewClient(baseURL) },
		Workers:    DefaultWorkers,
		Logger:     logger,
	}
}

// Enrich looks up every plugin that has a GitHubURL and fills Owner, Repo,
// Stars and AvatarURL in place. A failed lookup leaves that plugin's star and
// avatar fields untouched and does not affect the others.
//
// The only error returned is the context's, when it is cancelled.
func (e *Enricher) Enrich(ctx context.Context, plugins []*Plugin) error {
	var targets []int
	for i, p := range plugins {
		if p.GitHubURL != "" {
			targets = append(targets, i)
		}
	}
	e.Logger.Info("enriching plugins", "candidates", len(targets), "workers", e.workers())
	if len(targets) == 0 {
		return nil
	}

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for _, i := range targets {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for range e.workers() {
		g.Go(func() error {
			client := e.NewFetcher()
			defer client.CloseIdleConnections()
			for i := range jobs {
				e.enrichOne(gctx, client, plugins[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (e *Enricher) workers() int {
	if e.Workers < 1 {
		return 1
	}
	return e.Workers
}

func (e *Enricher) enrichOne(ctx context.Context, client RepoFetcher, p *Plugin) {
	owner, repo, ok := github.ParseRepoURL(p.GitHubURL)
	if !ok {
		e.skip(ctx, p, "unparsable_url", nil)
		return
	}
	p.Owner, p.Repo = owner, repo

	data, err := client.FetchRepo(ctx, owner, repo)
	if err != nil {
		reason := "network"
		var se *integrations.StatusError
		if errors.As(err, &se) {
			reason = "status"
		}
		e.skip(ctx, p, reason, err)
		return
	}

	stars := data.Stars
	p.Stars = &stars
	p.AvatarURL = data.Owner.AvatarURL
}

func (e *Enricher) skip(ctx context.Context, p *Plugin, reason string, err error) {
	e.Logger.Warn("repository lookup failed", "gem", p.GemName, "url", p.GitHubURL, "reason", reason, "err", err)
	observability.Pipeline().OnEnrichSkipped(ctx, reason)
}
