package citeproc

import (
	"fmt"
	"strconv"
	"strings"
)

func (r *renderer) date(n *node) output {
	name := n.attr("variable")
	if r.substituted[name] {
		return output{}
	}
	d := r.item.Date(name)
	if d == nil || strings.TrimSpace(d.Raw) == "" {
		return output{vars: 1}
	}
	o := output{vars: 1, filled: 1}

	year, month, day := d.Parts()
	if year == 0 {
		o.text = r.format(n, strings.TrimSpace(d.Raw))
		return o
	}

	parts, delimiter := r.dateParts(n)
	var texts []string
	for _, p := range parts {
		v := r.datePart(p.attr("name"), p.attr("form"), year, month, day)
		if v == "" {
			continue
		}
		texts = append(texts, r.format(p, v))
	}
	o.text = r.format(n, joinParts(texts, delimiter))
	return o
}

// dateParts returns the date-part elements to render. Localized dates take their
// parts from the locale and accept attribute overrides from the style.
func (r *renderer) dateParts(n *node) ([]*node, string) {
	form := n.attr("form")
	if form == "" {
		var parts []*node
		for _, c := range n.Nodes {
			if c.name() == "date-part" {
				parts = append(parts, c)
			}
		}
		return parts, n.attr("delimiter")
	}

	localized := r.locale.dates[form]
	if localized == nil {
		return nil, ""
	}
	allowed := map[string]bool{"year": true, "month": true, "day": true}
	switch n.attr("date-parts") {
	case "year":
		allowed = map[string]bool{"year": true}
	case "year-month":
		allowed = map[string]bool{"year": true, "month": true}
	}

	var parts []*node
	for _, p := range localized.Nodes {
		if p.name() != "date-part" || !allowed[p.attr("name")] {
			continue
		}
		var override *node
		for _, c := range n.Nodes {
			if c.name() == "date-part" && c.attr("name") == p.attr("name") {
				override = c
			}
		}
		parts = append(parts, p.withAttrs(override))
	}
	// A trailing part's suffix belongs between parts only.
	if len(parts) > 0 && len(parts) < len(localized.Nodes) {
		last := parts[len(parts)-1]
		trimmed := &node{XMLName: last.XMLName, Nodes: last.Nodes}
		for _, a := range last.Attrs {
			if a.Name.Local != "suffix" {
				trimmed.Attrs = append(trimmed.Attrs, a)
			}
		}
		parts[len(parts)-1] = trimmed
	}
	return parts, localized.attr("delimiter")
}

func (r *renderer) datePart(name, form string, year, month, day int) string {
	switch name {
	case "year":
		if form == "short" {
			return fmt.Sprintf("%02d", year%100)
		}
		return strconv.Itoa(year)
	case "month":
		if month < 1 || month > 12 {
			return ""
		}
		switch form {
		case "numeric":
			return strconv.Itoa(month)
		case "numeric-leading-zeros":
			return fmt.Sprintf("%02d", month)
		case "short":
			return r.locale.Term(fmt.Sprintf("month-%02d", month), "short", false)
		default:
			return r.locale.Term(fmt.Sprintf("month-%02d", month), "long", false)
		}
	case "day":
		if day < 1 {
			return ""
		}
		switch form {
		case "numeric-leading-zeros":
			return fmt.Sprintf("%02d", day)
		case "ordinal":
			if suffix := r.locale.Term("ordinal", "long", false); suffix != "" {
				return strconv.Itoa(day) + suffix
			}
		}
		return strconv.Itoa(day)
	}
	return ""
}
