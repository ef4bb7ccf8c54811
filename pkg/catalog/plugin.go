package catalog

// Plugin is one catalog entry derived from a registry gem.
//
// Search fills the registry fields. Enrich may set Owner, Repo, Stars and
// AvatarURL. Assemble fills StarsText and AuthorText.
type Plugin struct {
	GemName   string   // Full gem name, e.g. "embulk-input-s3"
	Name      string   // Display name, the part after the category
	Category  Category // Plugin kind
	Authors   []string // Author names in registry order
	Version   string
	Licenses  []string
	Downloads int64
	Info      string
	URL       string // Repository root if known, else the registry page
	GitHubURL string // Repository root, empty when none was found

	Owner     string // Repository owner, set during enrichment
	Repo      string // Repository name, set during enrichment
	Stars     *int64 // nil until a lookup succeeds
	AvatarURL string

	StarsText  string // Stars for display, "-" when unknown
	AuthorText string // Authors joined with ", "
}

// StarCount returns the star count, or 0 when unknown.
func (p *Plugin) StarCount() int64 {
	if p.Stars == nil {
		return 0
	}
	return *p.Stars
}
