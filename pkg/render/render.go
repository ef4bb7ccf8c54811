package render

import (
	_ "embed"
	"html"
	"net/url"
	"time"

	"github.com/aymerick/raymond"

	"github.com/embulk/pluginindex/pkg/catalog"
	"github.com/embulk/pluginindex/pkg/errors"
)

//go:embed templates/index.html.hbs
var defaultTemplate string

// DefaultTemplate returns the built-in page template.
func DefaultTemplate() string { return defaultTemplate }

// Context is everything a template can see.
type Context struct {
	Groups      []catalog.CategoryGroup
	GeneratedAt time.Time
}

// NewContext binds groups for rendering.
func NewContext(groups []catalog.CategoryGroup, generatedAt time.Time) *Context {
	return &Context{Groups: groups, GeneratedAt: generatedAt}
}

// Helpers returns the functions templates may call.
//
//	e: query-escape, spaces become "+"
//	h: HTML-escape
//
// Both return safe strings so the engine does not escape their output again.
func (c *Context) Helpers() map[string]interface{} {
	return map[string]interface{}{
		"e": func(v interface{}) raymond.SafeString {
			return raymond.SafeString(url.QueryEscape(raymond.Str(v)))
		},
		"h": func(v interface{}) raymond.SafeString {
			return raymond.SafeString(html.EscapeString(raymond.Str(v)))
		},
	}
}

// Total returns the number of plugins across all groups.
func (c *Context) Total() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Plugins)
	}
	return n
}

// data builds the value tree handed to the template.
func (c *Context) data() map[string]interface{} {
	categories := make([]map[string]interface{}, len(c.Groups))
	for i, g := range c.Groups {
		plugins := make([]map[string]interface{}, len(g.Plugins))
		for j, p := range g.Plugins {
			plugins[j] = pluginData(p)
		}
		categories[i] = map[string]interface{}{
			"category": string(g.Category),
			"label":    g.Label,
			"count":    len(g.Plugins),
			"plugins":  plugins,
		}
	}
	return map[string]interface{}{
		"categories":   categories,
		"total":        c.Total(),
		"generated_at": c.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

func pluginData(p *catalog.Plugin) map[string]interface{} {
	return map[string]interface{}{
		"gem_name":         p.GemName,
		"name":             p.Name,
		"category":         string(p.Category),
		"author":           p.AuthorText,
		"authors":          p.Authors,
		"version":          p.Version,
		"licenses":         p.Licenses,
		"downloads":        p.Downloads,
		"info":             p.Info,
		"url":              p.URL,
		"github_url":       p.GitHubURL,
		"owner":            p.Owner,
		"repo":             p.Repo,
		"stargazers_count": p.StarsText,
		"avatar_url":       p.AvatarURL,
	}
}

// Render evaluates source against ctx.
func Render(source string, ctx *Context) (string, error) {
	tpl, err := raymond.Parse(source)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeRender, err, "parse template")
	}
	tpl.RegisterHelpers(ctx.Helpers())

	out, err := tpl.Exec(ctx.data())
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeRender, err, "execute template")
	}
	return out, nil
}
