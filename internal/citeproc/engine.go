// Package citeproc renders csl-json records as HTML bibliography entries using CSL 1.0 styles.
//
// The engine covers the part of CSL the bundled styles rely on: macros,
// conditionals, groups, names with substitution and et-al truncation, dates
// in localized or explicit form, labels, numbers, text formatting and affixes.
// Variable values are emitted as given; callers are expected to escape them.
package citeproc

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/matsen/cslcite/internal/citation"
	"github.com/matsen/cslcite/internal/locale"
)

var (
	// ErrNoBibliography is returned for styles that define no bibliography layout.
	ErrNoBibliography = errors.New("style has no bibliography layout")

	// ErrLocaleNotFound is returned when neither the requested nor the default locale file exists.
	ErrLocaleNotFound = errors.New("locale not found")
)

// MarkupFunc post-processes the rendered value of one variable.
type MarkupFunc func(item *citation.Record, rendered string) string

// Markup replaces the output of a variable. When Affixes is set, Func receives the
// value together with its prefix and suffix.
type Markup struct {
	Func    MarkupFunc
	Affixes bool
}

// Engine renders bibliographies with locale files read from an fs.FS.
type Engine struct {
	locales fs.FS
}

// NewEngine returns an engine that loads "locales-<code>.xml" files from locales.
func NewEngine(locales fs.FS) *Engine {
	return &Engine{locales: locales}
}

// Render formats items with the given style and locale code. Markup callbacks are keyed by
// variable name.
func (e *Engine) Render(styleXML []byte, localeCode string, items []*citation.Record, markup map[string]Markup) (string, error) {
	st, err := ParseStyle(styleXML)
	if err != nil {
		return "", err
	}
	loc, err := e.loadLocale(localeCode)
	if err != nil {
		return "", err
	}
	for _, override := range st.locales {
		if loc.appliesTo(override) {
			loc.merge(override)
		}
	}

	var b strings.Builder
	b.WriteString("<div class=\"csl-bib-body\">\n")
	for _, item := range items {
		r := newRenderer(st, loc, item, markup)
		b.WriteString("  <div class=\"csl-entry\">")
		b.WriteString(r.entry())
		b.WriteString("</div>\n")
	}
	b.WriteString("</div>")
	return b.String(), nil
}

func (e *Engine) loadLocale(code string) (*Locale, error) {
	if code == "" {
		code = locale.DefaultLocale
	}
	data, err := fs.ReadFile(e.locales, locale.FileName(code))
	if errors.Is(err, fs.ErrNotExist) && code != locale.DefaultLocale {
		data, err = fs.ReadFile(e.locales, locale.FileName(locale.DefaultLocale))
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrLocaleNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("reading locale %s: %w", code, err)
	}
	return ParseLocale(data)
}
