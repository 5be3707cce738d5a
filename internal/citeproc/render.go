package citeproc

import (
	"regexp"
	"strings"

	"github.com/matsen/cslcite/internal/citation"
)

// maxDepth bounds macro expansion.
const maxDepth = 32

// output is the result of rendering one element. vars and filled count the
// variables the element called and how many of them were non-empty; groups use
// them to decide suppression.
type output struct {
	text   string
	vars   int
	filled int
}

type renderer struct {
	style       *Style
	locale      *Locale
	item        *citation.Record
	markup      map[string]Markup
	substituted map[string]bool
	depth       int
}

func newRenderer(st *Style, loc *Locale, item *citation.Record, markup map[string]Markup) *renderer {
	return &renderer{
		style:       st,
		locale:      loc,
		item:        item,
		markup:      markup,
		substituted: make(map[string]bool),
	}
}

func (r *renderer) entry() string {
	out := r.sequence(r.style.layout.Nodes, "")
	return collapseSpaces(r.format(r.style.layout, out.text))
}

func (r *renderer) sequence(nodes []*node, delimiter string) output {
	var res output
	var parts []string
	for _, n := range nodes {
		o := r.element(n)
		res.vars += o.vars
		res.filled += o.filled
		if o.text != "" {
			parts = append(parts, o.text)
		}
	}
	res.text = joinParts(parts, delimiter)
	return res
}

func (r *renderer) element(n *node) output {
	switch n.name() {
	case "text":
		return r.text(n)
	case "number":
		return r.number(n)
	case "label":
		return r.label(n)
	case "date":
		return r.date(n)
	case "names":
		return r.names(n, nil)
	case "group":
		return r.group(n)
	case "choose":
		return r.choose(n)
	}
	return output{}
}

func (r *renderer) text(n *node) output {
	switch {
	case n.has("variable"):
		name := n.attr("variable")
		value := r.variable(name, n.attr("form"))
		if value == "" {
			return output{vars: 1}
		}
		return output{text: r.decorate(n, name, value), vars: 1, filled: 1}

	case n.has("macro"):
		macro := r.style.macros[n.attr("macro")]
		if macro == nil || r.depth >= maxDepth {
			return output{}
		}
		r.depth++
		o := r.sequence(macro.Nodes, "")
		r.depth--
		o.text = r.format(n, o.text)
		return o

	case n.has("term"):
		t := r.locale.Term(n.attr("term"), n.attr("form"), n.attr("plural") == "true")
		return output{text: r.format(n, t)}

	case n.has("value"):
		return output{text: r.format(n, n.attr("value"))}
	}
	return output{}
}

func (r *renderer) number(n *node) output {
	name := n.attr("variable")
	value := r.variable(name, "")
	if value == "" {
		return output{vars: 1}
	}
	return output{text: r.decorate(n, name, value), vars: 1, filled: 1}
}

// label renders the term for a variable. Labels do not count as variable calls.
func (r *renderer) label(n *node) output {
	name := n.attr("variable")
	value := r.variable(name, "")
	if value == "" {
		return output{}
	}
	plural := false
	switch n.attr("plural") {
	case "always":
		plural = true
	case "never":
	default:
		plural = strings.ContainsAny(value, "-–,&")
	}
	return output{text: r.format(n, r.locale.Term(name, n.attr("form"), plural))}
}

// group is suppressed when it calls variables and all of them are empty.
func (r *renderer) group(n *node) output {
	o := r.sequence(n.Nodes, n.attr("delimiter"))
	if o.vars > 0 && o.filled == 0 {
		return output{vars: o.vars}
	}
	o.text = r.format(n, o.text)
	return o
}

func (r *renderer) choose(n *node) output {
	for _, branch := range n.Nodes {
		switch branch.name() {
		case "if", "else-if":
			if r.test(branch) {
				return r.sequence(branch.Nodes, "")
			}
		case "else":
			return r.sequence(branch.Nodes, "")
		}
	}
	return output{}
}

var numericPattern = regexp.MustCompile(`^\s*[A-Za-z]?\d+[A-Za-z]?(\s*[-–,&]\s*[A-Za-z]?\d+[A-Za-z]?)*\s*$`)

func (r *renderer) test(branch *node) bool {
	var results []bool
	for _, a := range branch.Attrs {
		values := strings.Fields(a.Value)
		switch a.Name.Local {
		case "type":
			for _, v := range values {
				results = append(results, r.item.Type == v)
			}
		case "variable":
			for _, v := range values {
				results = append(results, !r.substituted[v] && r.item.Has(v))
			}
		case "is-numeric":
			for _, v := range values {
				results = append(results, numericPattern.MatchString(r.item.Variable(v)))
			}
		case "is-uncertain-date", "locator", "position", "disambiguate":
			for range values {
				results = append(results, false)
			}
		}
	}
	if len(results) == 0 {
		return false
	}

	switch branch.attr("match") {
	case "any":
		for _, ok := range results {
			if ok {
				return true
			}
		}
		return false
	case "none":
		for _, ok := range results {
			if ok {
				return false
			}
		}
		return true
	default:
		for _, ok := range results {
			if !ok {
				return false
			}
		}
		return true
	}
}

// variable returns a standard variable, honouring form="short" and substitution.
func (r *renderer) variable(name, form string) string {
	if r.substituted[name] {
		return ""
	}
	if form == "short" {
		if v := r.item.Variable(name + "-short"); v != "" {
			return v
		}
	}
	return r.item.Variable(name)
}

// decorate formats a variable value and routes it through any markup callback.
func (r *renderer) decorate(n *node, name, value string) string {
	styled := r.styled(n, value)
	m, ok := r.markup[name]
	if !ok || m.Func == nil {
		return affix(n.attr("prefix"), styled, n.attr("suffix"))
	}
	if m.Affixes {
		return m.Func(r.item, affix(n.attr("prefix"), styled, n.attr("suffix")))
	}
	return affix(n.attr("prefix"), m.Func(r.item, styled), n.attr("suffix"))
}
