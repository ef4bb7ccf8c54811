package rubygems

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/embulk/pluginindex/pkg/buildinfo"
	"github.com/embulk/pluginindex/pkg/integrations"
)

// DefaultURL is the public RubyGems.org host.
const DefaultURL = "https://rubygems.org"

// Gem holds the fields of one search hit that the plugin index uses.
//
// Zero values: string fields are empty, slices are nil, Downloads is 0.
// A Downloads value of 0 is valid for newly published gems.
type Gem struct {
	Name             string   `json:"name"`
	Authors          Authors  `json:"authors"`
	Version          string   `json:"version"`
	Licenses         []string `json:"licenses"`
	Downloads        int64    `json:"downloads"`
	Info             string   `json:"info"`
	ProjectURI       string   `json:"project_uri"`
	SourceCodeURI    string   `json:"source_code_uri"`
	HomepageURI      string   `json:"homepage_uri"`
	DocumentationURI string   `json:"documentation_uri"`
}

// DocURLs returns the documentation and homepage URLs in the order they
// are scanned for a repository link.
func (g *Gem) DocURLs() []string {
	return []string{g.ProjectURI, g.SourceCodeURI, g.HomepageURI, g.DocumentationURI}
}

// Authors is the gem's author list. The API reports it as one
// comma-separated string; arrays are accepted too.
type Authors []string

// UnmarshalJSON accepts a string, an array of strings, or null.
func (a *Authors) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*a = list
		return nil
	}
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("authors: %w", err)
	}
	if s == nil || *s == "" {
		*a = nil
		return nil
	}
	*a = Authors{*s}
	return nil
}

// Client provides access to the RubyGems search API.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a RubyGems client rooted at baseURL.
// An empty baseURL selects [DefaultURL].
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		Client: integrations.NewClient(map[string]string{
			"Accept":     "application/json",
			"User-Agent": buildinfo.UserAgent(),
		}),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// BaseURL returns the registry host the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Search fetches one page of search results for query. Pages start at 1.
//
// Returns:
//   - the decoded page, possibly empty
//   - [*integrations.StatusError] for any non-200 response
//   - [integrations.ErrNetwork] for transport failures
func (c *Client) Search(ctx context.Context, query string, page int) ([]Gem, error) {
	url := fmt.Sprintf("%s/api/v1/search.json?query=%s&page=%d", c.baseURL, integrations.URLEncode(query), page)

	var gems []Gem
	if err := c.Get(ctx, url, &gems); err != nil {
		return nil, err
	}
	return gems, nil
}

// GemURL returns the public RubyGems.org page for a gem.
func GemURL(name string) string {
	return "http://rubygems.org/gems/" + name
}
