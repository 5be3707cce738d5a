package citeproc

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/matsen/cslcite/internal/citation"
)

// namesParts are the child elements a <names> shorthand inside <substitute> inherits.
type namesParts struct {
	name  *node
	etAl  *node
	label *node
	// labelFirst is set when <label> precedes <name>.
	labelFirst bool
}

func partsOf(n *node) *namesParts {
	p := &namesParts{
		name:  n.child("name"),
		etAl:  n.child("et-al"),
		label: n.child("label"),
	}
	if li, ni := n.childIndex("label"), n.childIndex("name"); li >= 0 && ni >= 0 && li < ni {
		p.labelFirst = true
	}
	return p
}

func (r *renderer) names(n *node, inherit *namesParts) output {
	parts := partsOf(n)
	if inherit != nil && parts.name == nil && parts.etAl == nil && parts.label == nil {
		parts = inherit
	}
	opts := r.nameOptions(parts.name)

	var o output
	var rendered []string
	for _, v := range strings.Fields(n.attr("variable")) {
		if r.substituted[v] {
			continue
		}
		o.vars++
		list := r.nameList(v)
		if len(list) == 0 {
			continue
		}
		o.filled++
		s := r.formatNames(list, opts, parts)
		if parts.label != nil {
			lbl := r.format(parts.label, r.locale.Term(v, parts.label.attr("form"), len(list) > 1))
			if parts.labelFirst {
				s = appendPunct(lbl, s)
			} else {
				s = appendPunct(s, lbl)
			}
		}
		rendered = append(rendered, s)
	}

	if len(rendered) > 0 {
		o.text = r.format(n, joinParts(rendered, n.attr("delimiter")))
		return o
	}

	sub := n.child("substitute")
	if sub == nil {
		return o
	}
	for _, c := range sub.Nodes {
		var so output
		if c.name() == "names" {
			so = r.names(c, parts)
		} else {
			so = r.element(c)
		}
		if so.text == "" {
			continue
		}
		r.markSubstituted(c)
		o.filled++
		o.text = r.format(n, so.text)
		return o
	}
	return o
}

// markSubstituted suppresses the variables a substitute rendered for the rest of the entry.
func (r *renderer) markSubstituted(n *node) {
	r.markSubstitutedDepth(n, 0)
}

func (r *renderer) markSubstitutedDepth(n *node, depth int) {
	if depth >= maxDepth {
		return
	}
	switch n.name() {
	case "text", "number", "names", "date":
		for _, v := range strings.Fields(n.attr("variable")) {
			if r.item.Has(v) {
				r.substituted[v] = true
			}
		}
	}
	if n.name() == "text" && n.has("macro") {
		if m := r.style.macros[n.attr("macro")]; m != nil {
			r.markSubstitutedDepth(m, depth+1)
		}
		return
	}
	for _, c := range n.Nodes {
		r.markSubstitutedDepth(c, depth+1)
	}
}

// nameList returns the names of a variable. String-valued name variables become a
// single literal name.
func (r *renderer) nameList(v string) []citation.Name {
	if list := r.item.Names(v); len(list) > 0 {
		return list
	}
	if s := r.item.Variable(v); s != "" && v == "collection-editor" {
		return []citation.Name{{Family: s}}
	}
	return nil
}

func (r *renderer) nameOptions(name *node) map[string]string {
	opts := r.style.inheritedNameOptions()
	if name != nil {
		for _, a := range name.Attrs {
			opts[a.Name.Local] = a.Value
		}
	}
	return opts
}

func (r *renderer) formatNames(list []citation.Name, opts map[string]string, parts *namesParts) string {
	etAlMin, _ := strconv.Atoi(opts["et-al-min"])
	useFirst, _ := strconv.Atoi(opts["et-al-use-first"])
	truncated := false
	if etAlMin > 0 && useFirst > 0 && len(list) >= etAlMin && useFirst < len(list) {
		list = list[:useFirst]
		truncated = true
	}

	if opts["form"] == "count" {
		return strconv.Itoa(len(list))
	}

	names := make([]string, len(list))
	inverted := make([]bool, len(list))
	for i, nm := range list {
		switch opts["name-as-sort-order"] {
		case "all":
			inverted[i] = true
		case "first":
			inverted[i] = i == 0
		}
		names[i] = r.formatName(nm, opts, inverted[i], parts.name)
	}

	delim := opts["delimiter"]
	var s string
	switch {
	case truncated:
		etAl := r.locale.Term("et-al", "long", false)
		if parts.etAl != nil {
			if t := parts.etAl.attr("term"); t != "" {
				etAl = r.locale.Term(t, "long", false)
			}
			etAl = r.format(parts.etAl, etAl)
		}
		sep := " "
		switch opts["delimiter-precedes-et-al"] {
		case "always":
			sep = delim
		case "never":
		case "after-inverted-name":
			if inverted[len(names)-1] {
				sep = delim
			}
		default:
			if len(names) > 1 {
				sep = delim
			}
		}
		s = strings.Join(names, delim) + sep + etAl
	case len(names) == 1:
		s = names[0]
	default:
		and := ""
		switch opts["and"] {
		case "text":
			and = r.locale.Term("and", "long", false)
		case "symbol":
			and = "&amp;"
		}
		if and == "" {
			s = strings.Join(names, delim)
			break
		}
		last := len(names) - 1
		useDelim := false
		switch opts["delimiter-precedes-last"] {
		case "always":
			useDelim = true
		case "never":
		case "after-inverted-name":
			useDelim = inverted[last-1]
		default:
			useDelim = len(names) > 2
		}
		head := strings.Join(names[:last], delim)
		if useDelim {
			s = head + delim + and + " " + names[last]
		} else {
			s = head + " " + and + " " + names[last]
		}
	}
	if parts.name != nil {
		s = r.format(parts.name, s)
	}
	return s
}

func (r *renderer) formatName(nm citation.Name, opts map[string]string, inverted bool, name *node) string {
	family, given := nm.Family, nm.Given
	if with, ok := opts["initialize-with"]; ok && given != "" && opts["initialize"] != "false" {
		given = initials(given, with)
	}
	if name != nil {
		for _, p := range name.Nodes {
			if p.name() != "name-part" {
				continue
			}
			switch p.attr("name") {
			case "family":
				family = r.format(p, family)
			case "given":
				given = r.format(p, given)
			}
		}
	}

	switch {
	case opts["form"] == "short", given == "":
		return family
	case inverted:
		return family + opts["sort-separator"] + given
	default:
		return given + " " + family
	}
}

// initials reduces given names to initials: "Jean-Paul Anne" with ". " becomes "J.-P. A.".
func initials(given, with string) string {
	var words []string
	for _, field := range strings.Fields(given) {
		if strings.HasPrefix(field, "&") {
			words = append(words, field)
			continue
		}
		var hyphenated []string
		for _, part := range strings.Split(field, "-") {
			first, _ := utf8.DecodeRuneInString(part)
			if first == utf8.RuneError {
				continue
			}
			hyphenated = append(hyphenated, string(unicode.ToUpper(first))+strings.TrimRight(with, " "))
		}
		words = append(words, strings.Join(hyphenated, "-"))
	}
	sep := " "
	if !strings.HasSuffix(with, " ") {
		sep = ""
	}
	return strings.Join(words, sep)
}
