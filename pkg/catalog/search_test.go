package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	perrors "github.com/embulk/pluginindex/pkg/errors"
	"github.com/embulk/pluginindex/pkg/integrations/rubygems"
)

// fakeRegistry serves fixed pages; page n is pages[n-1].
type fakeRegistry struct {
	pages   [][]rubygems.Gem
	failAt  int
	queries []string
	calls   int
}

func (f *fakeRegistry) Search(_ context.Context, query string, page int) ([]rubygems.Gem, error) {
	f.calls++
	f.queries = append(f.queries, query)
	if page == f.failAt {
		return nil, fmt.Errorf("page %d: unexpected status 503", page)
	}
	if page > len(f.pages) {
		return nil, nil
	}
	return f.pages[page-1], nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func gem(name string, downloads int64, urls ...string) rubygems.Gem {
	g := rubygems.Gem{Name: name, Downloads: downloads, Authors: rubygems.Authors{"alice"}}
	for i, u := range urls {
		switch i {
		case 0:
			g.ProjectURI = u
		case 1:
			g.SourceCodeURI = u
		case 2:
			g.HomepageURI = u
		case 3:
			g.DocumentationURI = u
		}
	}
	return g
}

func newTestSearcher(r Registry) *Searcher {
	s := NewSearcher(r, quietLogger())
	s.LastPageSize = 2
	return s
}

func names(plugins []*Plugin) []string {
	out := make([]string, len(plugins))
	for i, p := range plugins {
		out[i] = p.GemName
	}
	return out
}

func TestSearchDeduplicatesAndClassifies(t *testing.T) {
	reg := &fakeRegistry{pages: [][]rubygems.Gem{
		{gem("embulk-input-s3", 10), gem("embulk-output-td", 5)},
		{gem("embulk-input-s3", 99), gem("embulk-plugin-unknown", 1), gem("embulk", 1000)},
		{gem("embulk-output-td", 1), gem("embulk-parser-csv", 3)},
		{gem("embulk-guess-x", 3)},
	}}

	plugins, err := newTestSearcher(reg).Search(context.Background())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	want := []string{"embulk-input-s3", "embulk-output-td", "embulk-parser-csv", "embulk-guess-x"}
	if got := names(plugins); !slices.Equal(got, want) {
		t.Fatalf("plugins = %v, want %v", got, want)
	}
	// First occurrence wins.
	if plugins[0].Downloads != 10 {
		t.Errorf("embulk-input-s3 downloads = %d, want 10", plugins[0].Downloads)
	}
	for _, p := range plugins {
		if !p.Category.Valid() {
			t.Errorf("%s has invalid category %q", p.GemName, p.Category)
		}
	}
	if plugins[2].Category != Parser || plugins[2].Name != "csv" {
		t.Errorf("parser plugin = %+v", plugins[2])
	}
	for _, q := range reg.queries {
		if q != "embulk-" {
			t.Errorf("query = %q, want embulk-", q)
		}
	}
}

func TestSearchStopsAtLastPage(t *testing.T) {
	tests := []struct {
		name      string
		pages     [][]rubygems.Gem
		maxPages  int
		wantCalls int
	}{
		{
			name:      "empty page",
			pages:     [][]rubygems.Gem{{gem("embulk-input-a", 1), gem("embulk-input-b", 1)}, {}},
			maxPages:  100,
			wantCalls: 2,
		},
		{
			name:      "short page",
			pages:     [][]rubygems.Gem{{gem("embulk-input-a", 1)}},
			maxPages:  100,
			wantCalls: 1,
		},
		{
			name: "page cap",
			pages: [][]rubygems.Gem{
				{gem("embulk-input-a", 1), gem("embulk-input-b", 1)},
				{gem("embulk-input-c", 1), gem("embulk-input-d", 1)},
				{gem("embulk-input-e", 1), gem("embulk-input-f", 1)},
			},
			maxPages:  2,
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &fakeRegistry{pages: tt.pages}
			s := newTestSearcher(reg)
			s.MaxPages = tt.maxPages
			if _, err := s.Search(context.Background()); err != nil {
				t.Fatalf("Search: %v", err)
			}
			if reg.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", reg.calls, tt.wantCalls)
			}
		})
	}
}

func TestSearchCanonicalURL(t *testing.T) {
	tests := []struct {
		name       string
		urls       []string
		wantURL    string
		wantGitHub string
	}{
		{
			name:       "repository root",
			urls:       []string{"https://rubygems.org/gems/embulk-input-a", "", "https://github.com/alice/embulk-input-a"},
			wantURL:    "https://github.com/alice/embulk-input-a",
			wantGitHub: "https://github.com/alice/embulk-input-a",
		},
		{
			name:       "first match wins",
			urls:       []string{"", "https://github.com/alice/first", "https://github.com/bob/second"},
			wantURL:    "https://github.com/alice/first",
			wantGitHub: "https://github.com/alice/first",
		},
		{
			name:    "deeper path is not a repository root",
			urls:    []string{"", "https://github.com/alice/embulk-input-a/tree/master"},
			wantURL: rubygems.GemURL("embulk-input-a"),
		},
		{
			name:    "owner page is not a repository root",
			urls:    []string{"", "", "https://github.com/alice"},
			wantURL: rubygems.GemURL("embulk-input-a"),
		},
		{
			name:    "other host",
			urls:    []string{"", "", "https://gitlab.com/alice/embulk-input-a"},
			wantURL: rubygems.GemURL("embulk-input-a"),
		},
		{
			name:    "no urls",
			wantURL: "http://rubygems.org/gems/embulk-input-a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &fakeRegistry{pages: [][]rubygems.Gem{{gem("embulk-input-a", 1, tt.urls...)}}}
			plugins, err := newTestSearcher(reg).Search(context.Background())
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(plugins) != 1 {
				t.Fatalf("got %d plugins, want 1", len(plugins))
			}
			if plugins[0].URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", plugins[0].URL, tt.wantURL)
			}
			if plugins[0].GitHubURL != tt.wantGitHub {
				t.Errorf("GitHubURL = %q, want %q", plugins[0].GitHubURL, tt.wantGitHub)
			}
		})
	}
}

func TestSearchFailsFast(t *testing.T) {
	reg := &fakeRegistry{
		pages:  [][]rubygems.Gem{{gem("embulk-input-a", 1), gem("embulk-input-b", 1)}, {gem("embulk-input-c", 1), gem("embulk-input-d", 1)}},
		failAt: 2,
	}

	plugins, err := newTestSearcher(reg).Search(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !perrors.Is(err, perrors.ErrCodeRegistrySearch) {
		t.Errorf("error code = %s, want %s", perrors.GetCode(err), perrors.ErrCodeRegistrySearch)
	}
	if plugins != nil {
		t.Errorf("plugins = %v, want nil", names(plugins))
	}
}

func TestSearchAllowPartial(t *testing.T) {
	reg := &fakeRegistry{
		pages:  [][]rubygems.Gem{{gem("embulk-input-a", 1), gem("embulk-input-b", 1)}},
		failAt: 2,
	}
	s := newTestSearcher(reg)
	s.AllowPartial = true

	plugins, err := s.Search(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := names(plugins); !slices.Equal(got, []string{"embulk-input-a", "embulk-input-b"}) {
		t.Errorf("plugins = %v", got)
	}
}

func TestSearchRegistryStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewSearcher(rubygems.NewClient(server.URL), quietLogger()).Search(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if perrors.GetCode(err) != perrors.ErrCodeRegistrySearch {
		t.Errorf("code = %s", perrors.GetCode(err))
	}
	if errors.Unwrap(err) == nil {
		t.Error("expected wrapped cause")
	}
}

func TestSearchAssembleEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			w.Write([]byte(`[{"name":"embulk-input-foo","authors":["a"],"downloads":1}]`))
		case "2":
			w.Write([]byte(`[{"name":"embulk-filter-bar","authors":["b","c"],"downloads":2}]`))
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()

	s := NewSearcher(rubygems.NewClient(server.URL), quietLogger())
	s.LastPageSize = 1

	plugins, err := s.Search(context.Background())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(plugins) != 2 {
		t.Fatalf("got %d plugins, want 2", len(plugins))
	}
	if plugins[0].Category != Input || plugins[1].Category != Filter {
		t.Errorf("categories = %s, %s", plugins[0].Category, plugins[1].Category)
	}

	groups := Assemble(plugins)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Label != "input" || groups[1].Label != "filter" {
		t.Errorf("labels = %q, %q", groups[0].Label, groups[1].Label)
	}
	bar := groups[1].Plugins[0]
	if bar.URL != "http://rubygems.org/gems/embulk-filter-bar" {
		t.Errorf("URL = %q", bar.URL)
	}
	if bar.AuthorText != "b, c" || bar.StarsText != "-" {
		t.Errorf("display fields = %q, %q", bar.AuthorText, bar.StarsText)
	}
}
