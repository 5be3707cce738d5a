package citeproc

import (
	"encoding/xml"
	"fmt"
	"strings"
)

type term struct {
	single   string
	multiple string
}

// Locale holds CSL terms and localized date formats.
type Locale struct {
	Lang string

	terms map[string]term
	dates map[string]*node
}

// ParseLocale parses a CSL locale file.
func ParseLocale(data []byte) (*Locale, error) {
	var root node
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing locale: %w", err)
	}
	if root.name() != "locale" {
		return nil, fmt.Errorf("parsing locale: unexpected root element <%s>", root.name())
	}
	l := &Locale{
		Lang:  root.attr("lang"),
		terms: make(map[string]term),
		dates: make(map[string]*node),
	}
	l.merge(&root)
	return l, nil
}

// merge applies the terms and dates of a <locale> element, overriding existing ones.
func (l *Locale) merge(n *node) {
	for _, c := range n.Nodes {
		switch c.name() {
		case "terms":
			for _, t := range c.Nodes {
				if t.name() != "term" {
					continue
				}
				l.terms[termKey(t.attr("name"), t.attr("form"))] = parseTerm(t)
			}
		case "date":
			l.dates[c.attr("form")] = c
		}
	}
}

// appliesTo reports whether a style <locale> element targets this locale.
func (l *Locale) appliesTo(n *node) bool {
	lang := n.attr("lang")
	return lang == "" || lang == l.Lang || strings.HasPrefix(l.Lang, lang+"-")
}

func parseTerm(n *node) term {
	single, multiple := n.child("single"), n.child("multiple")
	if single == nil && multiple == nil {
		v := strings.TrimSpace(n.Text)
		return term{single: v, multiple: v}
	}
	t := term{}
	if single != nil {
		t.single = strings.TrimSpace(single.Text)
	}
	if multiple != nil {
		t.multiple = strings.TrimSpace(multiple.Text)
	}
	return t
}

func termKey(name, form string) string {
	if form == "" {
		form = "long"
	}
	return name + "/" + form
}

var formFallbacks = map[string][]string{
	"long":       {"long"},
	"short":      {"short", "long"},
	"verb":       {"verb", "long"},
	"verb-short": {"verb-short", "verb", "long"},
	"symbol":     {"symbol", "short", "long"},
}

// Term returns a localized term, following the CSL form fallback order.
func (l *Locale) Term(name, form string, plural bool) string {
	if form == "" {
		form = "long"
	}
	forms, ok := formFallbacks[form]
	if !ok {
		forms = formFallbacks["long"]
	}
	for _, f := range forms {
		if t, ok := l.terms[termKey(name, f)]; ok {
			if plural {
				return t.multiple
			}
			return t.single
		}
	}
	return ""
}
