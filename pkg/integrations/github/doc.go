// Package github provides an HTTP client for the GitHub repository API.
//
// # Overview
//
// The plugin index only needs two facts per repository: its stargazer count
// and the owner's avatar. [Client.FetchRepo] reads both from
// GET /repos/{owner}/{repo}.
//
// # Usage
//
//	client := github.NewClient("")
//	repo, err := client.FetchRepo(ctx, "embulk", "embulk-input-s3")
//	if err != nil {
//	    // callers enriching a catalog skip the record
//	}
//	fmt.Println(repo.Stars, repo.Owner.AvatarURL)
//
// # Rate Limits
//
// Requests are unauthenticated, so the API allows 60 requests per hour per
// address. A rate-limited response is an ordinary [integrations.StatusError]
// and is not distinguished from other failures.
//
// # URL Helpers
//
// [IsRepoURL] accepts only repository roots (https://github.com/owner/repo).
// [ParseRepoURL] extracts the owner and name from any GitHub URL.
package github
