// Package export renders citation records as downloadable files through named templates.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"

	strip "github.com/grokify/html-strip-tags-go"

	"github.com/matsen/cslcite/internal/citation"
	"github.com/matsen/cslcite/internal/reference"
)

// ErrUnknownTemplate is returned when no renderer is registered under a name.
var ErrUnknownTemplate = errors.New("unknown download template")

// Data is bound to a template: the citation record plus the objects it was built from.
// Issue, Section and Chapter may be nil.
type Data struct {
	Record      *citation.Record
	StyleID     string
	Context     *reference.Context
	Submission  *reference.Submission
	Publication *reference.Publication
	Issue       *reference.Issue
	Section     *reference.Section
	Chapter     *reference.Chapter
}

// Renderer writes one download body.
type Renderer interface {
	Render(w io.Writer, d Data) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(w io.Writer, d Data) error

// Render calls f.
func (f RendererFunc) Render(w io.Writer, d Data) error { return f(w, d) }

type textRenderer struct {
	tmpl *template.Template
}

func (r textRenderer) Render(w io.Writer, d Data) error {
	return r.tmpl.Execute(w, d)
}

// Templates maps template names to renderers.
type Templates struct {
	renderers map[string]Renderer
}

// New returns the built-in renderers: bibtex.
func New() *Templates {
	t := &Templates{renderers: make(map[string]Renderer)}
	t.Register("bibtex", RendererFunc(writeBibTeX))
	return t
}

// Load returns the built-in renderers plus one text/template renderer per "<name>.tmpl" in fsys.
func Load(fsys fs.FS) (*Templates, error) {
	t := New()
	files, err := fs.Glob(fsys, "*.tmpl")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", f, err)
		}
		name := strings.TrimSuffix(path.Base(f), ".tmpl")
		tmpl, err := template.New(name).Funcs(Funcs()).Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", f, err)
		}
		t.Register(name, textRenderer{tmpl: tmpl})
	}
	return t, nil
}

// Register adds or replaces a renderer.
func (t *Templates) Register(name string, r Renderer) {
	t.renderers[name] = r
}

// Has reports whether a renderer is registered under name.
func (t *Templates) Has(name string) bool {
	_, ok := t.renderers[name]
	return ok
}

// Names lists the registered template names in lexical order.
func (t *Templates) Names() []string {
	names := make([]string, 0, len(t.renderers))
	for n := range t.renderers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Render executes the named renderer.
func (t *Templates) Render(name string, d Data) (string, error) {
	r, ok := t.renderers[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	if d.Record == nil {
		d.Record = &citation.Record{}
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// Plain converts an HTML fragment to plain text: tags are removed and entities decoded.
func Plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(strip.StripTags(s)))
}

// Funcs returns the helpers available to download templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"plain":     Plain,
		"name":      plainName,
		"year":      year,
		"risDate":   risDate,
		"startPage": startPage,
		"endPage":   endPage,
	}
}

func plainName(n citation.Name) string {
	if n.Given == "" {
		return Plain(n.Family)
	}
	return Plain(n.Family) + ", " + Plain(n.Given)
}

func year(d *citation.Date) string {
	y, _, _ := d.Parts()
	if y == 0 {
		return ""
	}
	return fmt.Sprintf("%04d", y)
}

// risDate formats a date as RIS "YYYY/MM/DD/", leaving unknown parts empty.
func risDate(d *citation.Date) string {
	y, m, day := d.Parts()
	if y == 0 {
		return ""
	}
	out := fmt.Sprintf("%04d/", y)
	if m > 0 {
		out += fmt.Sprintf("%02d", m)
	}
	out += "/"
	if day > 0 {
		out += fmt.Sprintf("%02d", day)
	}
	return out + "/"
}

func splitPages(p string) (string, string) {
	p = Plain(p)
	if i := strings.IndexAny(p, "-–"); i >= 0 {
		end := strings.TrimLeft(p[i:], "-– ")
		return strings.TrimSpace(p[:i]), strings.TrimSpace(end)
	}
	return p, ""
}

func startPage(p string) string {
	s, _ := splitPages(p)
	return s
}

func endPage(p string) string {
	_, e := splitPages(p)
	return e
}
