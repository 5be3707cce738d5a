package citeproc

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// node is a generic CSL XML element.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []*node    `xml:",any"`
	Text    string     `xml:",chardata"`
}

func (n *node) name() string {
	return n.XMLName.Local
}

func (n *node) attr(name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n *node) has(name string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return true
		}
	}
	return false
}

func (n *node) child(name string) *node {
	if n == nil {
		return nil
	}
	for _, c := range n.Nodes {
		if c.name() == name {
			return c
		}
	}
	return nil
}

func (n *node) childIndex(name string) int {
	for i, c := range n.Nodes {
		if c.name() == name {
			return i
		}
	}
	return -1
}

// withAttrs returns a shallow copy of n whose attributes are overridden by over's.
func (n *node) withAttrs(over *node) *node {
	if over == nil {
		return n
	}
	merged := &node{XMLName: n.XMLName, Nodes: n.Nodes, Text: n.Text}
	merged.Attrs = append(merged.Attrs, n.Attrs...)
	for _, a := range over.Attrs {
		replaced := false
		for i := range merged.Attrs {
			if merged.Attrs[i].Name.Local == a.Name.Local {
				merged.Attrs[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			merged.Attrs = append(merged.Attrs, a)
		}
	}
	return merged
}

// Style is a parsed CSL style.
type Style struct {
	ID            string
	Title         string
	DefaultLocale string

	root         *node
	macros       map[string]*node
	bibliography *node
	layout       *node
	locales      []*node
}

// ParseStyle parses CSL style XML. Styles without a bibliography layout are rejected.
func ParseStyle(data []byte) (*Style, error) {
	var root node
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing style: %w", err)
	}
	if root.name() != "style" {
		return nil, fmt.Errorf("parsing style: unexpected root element <%s>", root.name())
	}

	s := &Style{
		root:          &root,
		macros:        make(map[string]*node),
		DefaultLocale: root.attr("default-locale"),
	}
	for _, c := range root.Nodes {
		switch c.name() {
		case "info":
			if t := c.child("title"); t != nil {
				s.Title = strings.TrimSpace(t.Text)
			}
			if id := c.child("id"); id != nil {
				s.ID = strings.TrimSpace(id.Text)
			}
		case "macro":
			s.macros[c.attr("name")] = c
		case "bibliography":
			s.bibliography = c
			s.layout = c.child("layout")
		case "locale":
			s.locales = append(s.locales, c)
		}
	}
	if s.layout == nil {
		return nil, ErrNoBibliography
	}
	return s, nil
}

// nameOptionKeys are inheritable name attributes set on <style> or <bibliography>.
var nameOptionKeys = map[string]string{
	"and":                      "and",
	"delimiter-precedes-last":  "delimiter-precedes-last",
	"delimiter-precedes-et-al": "delimiter-precedes-et-al",
	"et-al-min":                "et-al-min",
	"et-al-use-first":          "et-al-use-first",
	"initialize":               "initialize",
	"initialize-with":          "initialize-with",
	"name-as-sort-order":       "name-as-sort-order",
	"sort-separator":           "sort-separator",
	"name-delimiter":           "delimiter",
	"name-form":                "form",
}

// inheritedNameOptions returns the name options set at style and bibliography level.
func (s *Style) inheritedNameOptions() map[string]string {
	opts := map[string]string{
		"delimiter":      ", ",
		"sort-separator": ", ",
	}
	for _, src := range []*node{s.root, s.bibliography} {
		if src == nil {
			continue
		}
		for _, a := range src.Attrs {
			if key, ok := nameOptionKeys[a.Name.Local]; ok {
				opts[key] = a.Value
			}
		}
	}
	return opts
}
