package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/embulk/pluginindex/pkg/integrations/github"
	"github.com/embulk/pluginindex/pkg/observability"
)

type skipCounter struct {
	observability.NoopPipelineHooks
	mu      sync.Mutex
	reasons []string
}

func (s *skipCounter) OnEnrichSkipped(_ context.Context, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons = append(s.reasons, reason)
}

func repoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/alice/good":
			w.Write([]byte(`{"stargazers_count":42,"owner":{"login":"alice","avatar_url":"https://avatars/alice"}}`))
		case "/repos/bob/other":
			w.Write([]byte(`{"stargazers_count":7,"owner":{"login":"bob","avatar_url":"https://avatars/bob"}}`))
		case "/repos/carol/limited":
			http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEnrichIsolatesFailures(t *testing.T) {
	server := repoServer(t)

	hooks := &skipCounter{}
	observability.SetPipelineHooks(hooks)
	t.Cleanup(observability.Reset)

	plugins := []*Plugin{
		{GemName: "embulk-input-good", GitHubURL: "https://github.com/alice/good"},
		{GemName: "embulk-input-limited", GitHubURL: "https://github.com/carol/limited"},
		{GemName: "embulk-input-other", GitHubURL: "https://github.com/bob/other"},
		{GemName: "embulk-input-none", URL: "http://rubygems.org/gems/embulk-input-none"},
		{GemName: "embulk-input-gone", GitHubURL: "https://github.com/dave/gone"},
	}

	e := NewEnricher(server.URL, quietLogger())
	if err := e.Enrich(context.Background(), plugins); err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	good, limited, other, none, gone := plugins[0], plugins[1], plugins[2], plugins[3], plugins[4]

	if good.Stars == nil || *good.Stars != 42 || good.AvatarURL != "https://avatars/alice" {
		t.Errorf("good = stars %v avatar %q", good.Stars, good.AvatarURL)
	}
	if other.Stars == nil || *other.Stars != 7 || other.AvatarURL != "https://avatars/bob" {
		t.Errorf("other = stars %v avatar %q", other.Stars, other.AvatarURL)
	}
	if good.Owner != "alice" || good.Repo != "good" {
		t.Errorf("good owner/repo = %s/%s", good.Owner, good.Repo)
	}

	for _, p := range []*Plugin{limited, gone} {
		if p.Stars != nil || p.AvatarURL != "" {
			t.Errorf("%s was enriched despite failure", p.GemName)
		}
	}
	// Owner and repo are recorded before the lookup.
	if limited.Owner != "carol" || limited.Repo != "limited" {
		t.Errorf("limited owner/repo = %s/%s", limited.Owner, limited.Repo)
	}
	if none.Owner != "" || none.Stars != nil {
		t.Errorf("plugin without repository was touched: %+v", none)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.reasons) != 2 {
		t.Fatalf("skipped = %v, want 2 entries", hooks.reasons)
	}
	for _, r := range hooks.reasons {
		if r != "status" {
			t.Errorf("reason = %q, want status", r)
		}
	}
}

type countingFetcher struct {
	created *atomic.Int32
	closed  *atomic.Int32
	calls   *sync.Map
}

func (f countingFetcher) FetchRepo(_ context.Context, owner, repo string) (*github.Repo, error) {
	n, _ := f.calls.LoadOrStore(owner+"/"+repo, new(atomic.Int32))
	n.(*atomic.Int32).Add(1)
	return &github.Repo{Stars: int64(len(repo))}, nil
}

func (f countingFetcher) CloseIdleConnections() { f.closed.Add(1) }

func TestEnrichEachPluginOnce(t *testing.T) {
	var created, closed atomic.Int32
	calls := &sync.Map{}

	var plugins []*Plugin
	for _, name := range strings.Fields("a bb ccc dddd eeeee ffffff ggggggg") {
		plugins = append(plugins, &Plugin{GemName: name, GitHubURL: "https://github.com/o/" + name})
	}

	e := &Enricher{
		NewFetcher: func() RepoFetcher {
			created.Add(1)
			return countingFetcher{created: &created, closed: &closed, calls: calls}
		},
		Workers: 3,
		Logger:  quietLogger(),
	}
	if err := e.Enrich(context.Background(), plugins); err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if created.Load() != 3 || closed.Load() != 3 {
		t.Errorf("fetchers created=%d closed=%d, want 3 each", created.Load(), closed.Load())
	}
	for _, p := range plugins {
		n, ok := calls.Load("o/" + p.GemName)
		if !ok || n.(*atomic.Int32).Load() != 1 {
			t.Errorf("%s fetched %v times", p.GemName, n)
		}
		if p.Stars == nil || *p.Stars != int64(len(p.GemName)) {
			t.Errorf("%s stars = %v", p.GemName, p.Stars)
		}
	}
}

func TestEnrichNothingToDo(t *testing.T) {
	e := &Enricher{
		NewFetcher: func() RepoFetcher {
			t.Error("fetcher created with no candidates")
			return nil
		},
		Workers: 2,
		Logger:  quietLogger(),
	}
	if err := e.Enrich(context.Background(), []*Plugin{{GemName: "embulk-input-a"}}); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
}

func TestEnrichCancelled(t *testing.T) {
	server := repoServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plugins := []*Plugin{{GemName: "embulk-input-good", GitHubURL: "https://github.com/alice/good"}}
	err := NewEnricher(server.URL, quietLogger()).Enrich(ctx, plugins)
	if err == nil {
		t.Fatal("expected context error")
	}
}
