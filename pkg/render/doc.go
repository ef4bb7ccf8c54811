// Package render turns an assembled plugin listing into an HTML page.
//
// Templates are Handlebars documents evaluated with raymond. Each render
// binds a [Context]: the category groups plus two helpers, e for
// query-escaping a value and h for HTML-escaping it. A template that fails
// to parse or execute yields an error coded [errors.ErrCodeRender].
//
//	html, err := render.Render(tpl, render.NewContext(groups, time.Now()))
//
// [DefaultTemplate] is the page shipped with the binary. Published pages
// read their template from the destination repository instead.
//
// [errors.ErrCodeRender]: github.com/embulk/pluginindex/pkg/errors.ErrCodeRender
package render
