// Package report renders maintenance reports as plain text for the CLI
// using Liquid templates.
package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"path"
	"strings"

	"github.com/osteele/liquid"
)

//go:embed templates/*.liquid
var templateFS embed.FS

// Names of the built-in templates.
const (
	Backup          = "backup"
	Cleanup         = "cleanup"
	Enrich          = "enrich"
	LanguagePreview = "language_preview"
	Language        = "language"
	Verify          = "verify"
	Restore         = "restore"
	Republish       = "republish"
	Inspect         = "inspect"
	Stats           = "stats"
)

// Renderer holds the parsed report templates.
type Renderer struct {
	engine    *liquid.Engine
	templates map[string]*liquid.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	engine := liquid.NewEngine()
	registerFilters(engine)

	r := &Renderer{engine: engine, templates: map[string]*liquid.Template{}}
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("reading templates: %w", err)
	}
	for _, e := range entries {
		src, err := templateFS.ReadFile(path.Join("templates", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", e.Name(), err)
		}
		tpl, perr := engine.ParseTemplate(src)
		if perr != nil {
			return nil, fmt.Errorf("parsing template %s: %w", e.Name(), perr)
		}
		r.templates[strings.TrimSuffix(e.Name(), ".liquid")] = tpl
	}
	return r, nil
}

// Render renders the named template with data. data is any JSON-encodable
// value; templates address it by its JSON field names.
func (r *Renderer) Render(name string, data any) (string, error) {
	tpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown report template %q", name)
	}
	bindings, err := toBindings(data)
	if err != nil {
		return "", err
	}
	out, rerr := tpl.RenderString(bindings)
	if rerr != nil {
		return "", fmt.Errorf("rendering %s: %w", name, rerr)
	}
	return out, nil
}

// toBindings converts data to Liquid bindings through its JSON encoding.
// Whole numbers come back as int so templates print 3, not 3.0.
func toBindings(data any) (liquid.Bindings, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	m, ok := normalize(v).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("report must encode to a JSON object, got %T", v)
	}
	return m, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, x := range t {
			t[k] = normalize(x)
		}
		return t
	case []any:
		for i, x := range t {
			t[i] = normalize(x)
		}
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int(t)
		}
	}
	return v
}
