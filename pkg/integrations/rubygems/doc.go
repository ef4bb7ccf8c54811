// Package rubygems provides an HTTP client for the RubyGems.org search API.
//
// # Usage
//
//	client := rubygems.NewClient("")
//	gems, err := client.Search(ctx, "embulk-", 1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, g := range gems {
//	    fmt.Println(g.Name, g.Version, g.Downloads)
//	}
//
// # Gem
//
// [Client.Search] returns [Gem] values containing:
//
//   - Name, Version: Gem identity
//   - Authors: Author names (the API sends one comma-separated string)
//   - Licenses: License identifiers, possibly empty
//   - Downloads: Total download count
//   - Info: Gem summary text
//   - ProjectURI, SourceCodeURI, HomepageURI, DocumentationURI: candidate repository links
//
// # Errors
//
// Every non-200 response is returned as an [integrations.StatusError]; the
// caller decides whether that aborts a search.
package rubygems
