// Package render defines the template rendering collaborator and ships a
// small engine that renders a template's arch with html/template.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sitekit/viewscope/pkg/models"
)

// Options tune one rendering call.
type Options struct {
	// InheritBranding annotates the output so an editor can map it back to
	// the template record.
	InheritBranding bool
	// InheritBrandingAuto asks for branding only where the record is
	// editable by the current user.
	InheritBrandingAuto bool
	// Context carries extra rendering context (lang, website_id, ...).
	Context map[string]any
}

// Branded reports whether any branding mode is on.
func (o Options) Branded() bool {
	return o.InheritBranding || o.InheritBrandingAuto
}

// Engine turns a template and its values into markup.
type Engine interface {
	Render(ctx context.Context, view *models.Template, values map[string]any, opts Options) ([]byte, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, view *models.Template, values map[string]any, opts Options) ([]byte, error)

func (f EngineFunc) Render(ctx context.Context, view *models.Template, values map[string]any, opts Options) ([]byte, error) {
	return f(ctx, view, values, opts)
}

// ArchEngine executes the arch of a template as an html/template. Values
// are the template's dot; Options.Context is reachable through the "ctx"
// function.
type ArchEngine struct {
	Funcs template.FuncMap
}

func (e ArchEngine) Render(ctx context.Context, view *models.Template, values map[string]any, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	funcs := template.FuncMap{
		"ctx": func(name string) any { return opts.Context[name] },
	}
	for name, fn := range e.Funcs {
		funcs[name] = fn
	}
	tpl, err := template.New(view.Key).Funcs(funcs).Parse(view.Arch)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %d (%s): %w", view.ID, view.Key, err)
	}

	var buf bytes.Buffer
	if opts.Branded() {
		mode := "branding"
		if !opts.InheritBranding {
			mode = "branding_auto"
		}
		fmt.Fprintf(&buf, `<div data-oe-model="ir.ui.view" data-oe-id="%d" data-oe-field="arch" data-oe-mode="%s">`, view.ID, mode)
	}
	if err := tpl.Execute(&buf, values); err != nil {
		return nil, fmt.Errorf("failed to render template %d (%s): %w", view.ID, view.Key, err)
	}
	if opts.Branded() {
		buf.WriteString("</div>")
	}
	return buf.Bytes(), nil
}
