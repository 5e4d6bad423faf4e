package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed templates
var templatesFS embed.FS

const layoutFile = "templates/base.html"

var funcs = template.FuncMap{
	"month": func(t time.Time) string { return t.Format("January 2006") },
	"split": strings.Split,
	"lower": strings.ToLower,
	"first": func(s string) string { return strings.SplitN(s, " ", 2)[0] },
	"inc":   func(i int) int { return i + 1 },
	"stars": func(r float64) []bool {
		stars := make([]bool, 5)
		for i := range stars {
			stars[i] = float64(i+1) <= r
		}
		return stars
	},
}

// Renderer renders server side pages, every page is executed inside the base layout
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses embedded page templates
func NewRenderer() (*Renderer, error) {
	return newRenderer(templatesFS)
}

func newRenderer(fsys fs.FS) (*Renderer, error) {
	layout, err := template.New("base").Funcs(funcs).ParseFS(fsys, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("can't parse layout: %w", err)
	}

	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		if f == layoutFile {
			continue
		}

		t, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if t, err = t.ParseFS(fsys, f); err != nil {
			return nil, fmt.Errorf("can't parse %s: %w", f, err)
		}

		name := strings.TrimSuffix(path.Base(f), ".html")
		r.pages[name] = t
	}

	return r, nil
}

// Render implements echo.Renderer
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %s is not found", name)
	}

	return t.ExecuteTemplate(w, "base.html", data)
}
