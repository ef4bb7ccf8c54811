package github

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/embulk/pluginindex/pkg/buildinfo"
	"github.com/embulk/pluginindex/pkg/integrations"
)

// DefaultURL is the public GitHub API host.
const DefaultURL = "https://api.github.com"

var repoURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)`)

// Repo holds the repository fields used for enrichment.
type Repo struct {
	Stars int64 `json:"stargazers_count"`
	Owner Owner `json:"owner"`
}

// Owner is the nested owner object of a repository.
type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// Client provides access to the GitHub repository API.
// It performs unauthenticated requests and no caching.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a GitHub API client rooted at baseURL.
// An empty baseURL selects [DefaultURL].
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		Client: integrations.NewClient(map[string]string{
			"Accept":     "application/vnd.github.v3+json",
			"User-Agent": buildinfo.UserAgent(),
		}),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// FetchRepo retrieves /repos/{owner}/{repo}.
//
// Returns:
//   - the decoded repository on 200
//   - [*integrations.StatusError] for any other status (rate limiting included)
//   - [integrations.ErrNetwork] for transport failures
func (c *Client) FetchRepo(ctx context.Context, owner, repo string) (*Repo, error) {
	var data Repo
	url := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, repo)
	if err := c.Get(ctx, url, &data); err != nil {
		return nil, fmt.Errorf("github repo %s/%s: %w", owner, repo, err)
	}
	return &data, nil
}

// IsRepoURL reports whether u points at a GitHub repository root, i.e. has
// the shape https://github.com/owner/repo with nothing after the repo name.
func IsRepoURL(u string) bool {
	return strings.Contains(u, "github.com") && strings.Count(u, "/") == 4
}

// ParseRepoURL extracts owner and repository name from a GitHub URL.
func ParseRepoURL(u string) (owner, repo string, ok bool) {
	m := repoURLPattern.FindStringSubmatch(u)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
