package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/embulk/pluginindex/pkg/catalog"
	perrors "github.com/embulk/pluginindex/pkg/errors"
)

func fakeAPIs(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/search.json":
			if r.URL.Query().Get("page") != "1" {
				w.Write([]byte(`[]`))
				return
			}
			w.Write([]byte(`[
				{"name":"embulk-filter-bar","authors":"Bob","downloads":50},
				{"name":"embulk-input-foo","authors":["Alice"],"downloads":10,
				 "homepage_uri":"https://github.com/alice/embulk-input-foo"},
				{"name":"embulk-decoder-zip","downloads":99},
				{"name":"not-a-plugin","downloads":1000}
			]`))
		case "/repos/alice/embulk-input-foo":
			w.Write([]byte(`{"stargazers_count":3,"owner":{"avatar_url":"https://avatars/alice"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testOptions(url string) Options {
	return Options{
		RegistryURL:  url,
		GitHubAPIURL: url,
		Template:     `{{#each categories}}[{{label}}:{{#each plugins}}{{name}}/{{stargazers_count}};{{/each}}]{{/each}} {{generated_at}}`,
		Now:          func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func quietRunner() *Runner {
	return NewRunner(log.New(io.Discard))
}

func TestRunnerExecute(t *testing.T) {
	server := fakeAPIs(t)

	result, err := quietRunner().Execute(context.Background(), testOptions(server.URL))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := "[input:foo/3;][filter:bar/-;][file decoder:zip/-;] 2024-05-01T00:00:00Z"
	if result.HTML != want {
		t.Errorf("HTML = %q, want %q", result.HTML, want)
	}
	if result.Stats.PluginCount != 3 || result.Stats.EnrichedCount != 1 {
		t.Errorf("stats = %+v", result.Stats)
	}
	if result.Digest == "" {
		t.Error("expected digest")
	}
}

func TestRunnerExecuteSearchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := quietRunner().Execute(context.Background(), testOptions(server.URL))
	if !perrors.Is(err, perrors.ErrCodeRegistrySearch) {
		t.Fatalf("err = %v, want %s", err, perrors.ErrCodeRegistrySearch)
	}
}

func TestRunnerExecuteAllowPartial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte(`[{"name":"embulk-output-foo","downloads":3}]`))
			return
		}
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	opts := testOptions(server.URL)
	opts.LastPageSize = 1

	if _, err := quietRunner().Execute(context.Background(), opts); err == nil {
		t.Fatal("expected failure without AllowPartial")
	}

	opts.AllowPartial = true
	result, err := quietRunner().Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(result.HTML, "[output:foo/-;]") {
		t.Errorf("HTML = %q", result.HTML)
	}
}

func TestRunnerExecuteBadTemplate(t *testing.T) {
	server := fakeAPIs(t)
	opts := testOptions(server.URL)
	opts.Template = "{{#each categories}}"

	_, err := quietRunner().Execute(context.Background(), opts)
	if !perrors.Is(err, perrors.ErrCodeRender) {
		t.Fatalf("err = %v, want %s", err, perrors.ErrCodeRender)
	}
}

type fakeSink struct {
	template string
	html     string
	pushed   bool
	err      error
}

func (s *fakeSink) Publish(_ context.Context, render func(string) (string, error)) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	html, err := render(s.template)
	if err != nil {
		return false, err
	}
	s.html = html
	return s.pushed, nil
}

func TestRunnerUpdate(t *testing.T) {
	server := fakeAPIs(t)
	sink := &fakeSink{template: `{{total}} plugins`, pushed: true}

	result, err := quietRunner().Update(context.Background(), testOptions(server.URL), sink)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if sink.html != "3 plugins" {
		t.Errorf("rendered %q", sink.html)
	}
	if !result.Published {
		t.Error("expected Published")
	}
}

func TestRunnerUpdateSinkError(t *testing.T) {
	server := fakeAPIs(t)
	boom := errors.New("push rejected")

	_, err := quietRunner().Update(context.Background(), testOptions(server.URL), &fakeSink{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if !strings.HasPrefix(err.Error(), "publish:") {
		t.Errorf("err = %q, want publish prefix", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.MaxPages != catalog.DefaultMaxPages || opts.LastPageSize != catalog.DefaultLastPageSize {
		t.Errorf("page limits = %d, %d", opts.MaxPages, opts.LastPageSize)
	}
	if opts.Workers != catalog.DefaultWorkers || opts.Prefix != "embulk" {
		t.Errorf("workers = %d, prefix = %q", opts.Workers, opts.Prefix)
	}
	if opts.RegistryURL != "https://rubygems.org" || opts.GitHubAPIURL != "https://api.github.com" {
		t.Errorf("urls = %q, %q", opts.RegistryURL, opts.GitHubAPIURL)
	}
	if opts.Ordering == nil || opts.Now == nil {
		t.Error("expected Ordering and Now defaults")
	}

	bad := Options{Workers: -1}
	if err := bad.ValidateAndSetDefaults(); err == nil {
		t.Error("negative workers should fail")
	}
}
