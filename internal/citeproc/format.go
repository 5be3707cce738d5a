package citeproc

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// format applies an element's text formatting and then its affixes.
func (r *renderer) format(n *node, s string) string {
	if s == "" || n == nil {
		return s
	}
	return affix(n.attr("prefix"), r.styled(n, s), n.attr("suffix"))
}

func (r *renderer) styled(n *node, s string) string {
	if tc := n.attr("text-case"); tc != "" {
		s = textCase(s, tc)
	}
	if n.attr("strip-periods") == "true" {
		s = mapText(s, func(t string) string { return strings.ReplaceAll(t, ".", "") })
	}
	if n.attr("quotes") == "true" {
		s = r.locale.Term("open-quote", "long", false) + s + r.locale.Term("close-quote", "long", false)
	}
	switch n.attr("font-style") {
	case "italic", "oblique":
		s = "<i>" + s + "</i>"
	}
	if n.attr("font-weight") == "bold" {
		s = "<b>" + s + "</b>"
	}
	if n.attr("font-variant") == "small-caps" {
		s = `<span style="font-variant:small-caps;">` + s + "</span>"
	}
	if n.attr("text-decoration") == "underline" {
		s = `<span style="text-decoration:underline;">` + s + "</span>"
	}
	switch n.attr("vertical-align") {
	case "sup":
		s = "<sup>" + s + "</sup>"
	case "sub":
		s = "<sub>" + s + "</sub>"
	}
	return s
}

func affix(prefix, s, suffix string) string {
	if s == "" {
		return ""
	}
	return appendPunct(appendPunct(prefix, s), suffix)
}

// joinParts joins non-empty parts, collapsing doubled periods at the seams.
func joinParts(parts []string, delimiter string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out = appendPunct(out, delimiter)
		}
		out = appendPunct(out, p)
	}
	return out
}

// appendPunct concatenates a and b, dropping a leading period of b when the
// visible text of a already ends in terminal punctuation.
func appendPunct(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if b[0] == '.' {
		switch lastVisible(a) {
		case '.', '?', '!':
			b = b[1:]
		}
	}
	return a + b
}

// lastVisible returns the last rune of s outside trailing markup tags.
func lastVisible(s string) rune {
	for strings.HasSuffix(s, ">") {
		i := strings.LastIndex(s, "<")
		if i < 0 {
			break
		}
		s = s[:i]
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func collapseSpaces(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}

// mapText applies fn to the text of s, leaving tags and character entities untouched.
func mapText(s string, fn func(string) string) string {
	var out, text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			out.WriteString(fn(text.String()))
			text.Reset()
		}
	}
	for i := 0; i < len(s); {
		switch s[i] {
		case '<':
			if end := strings.IndexByte(s[i:], '>'); end >= 0 {
				flush()
				out.WriteString(s[i : i+end+1])
				i += end + 1
				continue
			}
		case '&':
			if end := strings.IndexByte(s[i:], ';'); end > 0 && end <= 10 {
				flush()
				out.WriteString(s[i : i+end+1])
				i += end + 1
				continue
			}
		}
		text.WriteByte(s[i])
		i++
	}
	flush()
	return out.String()
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "but": true,
	"by": true, "for": true, "from": true, "in": true, "into": true, "nor": true,
	"of": true, "on": true, "or": true, "the": true, "to": true, "with": true,
}

func textCase(s, mode string) string {
	switch mode {
	case "lowercase":
		return mapText(s, strings.ToLower)
	case "uppercase":
		return mapText(s, strings.ToUpper)
	case "capitalize-first", "sentence":
		done := false
		return mapText(s, func(t string) string {
			if done {
				return t
			}
			out, ok := upperFirst(t)
			done = ok
			return out
		})
	case "capitalize-all":
		return mapText(s, func(t string) string { return capitalizeWords(t, nil) })
	case "title":
		return mapText(s, func(t string) string { return capitalizeWords(t, stopWords) })
	}
	return s
}

// upperFirst uppercases the first letter of t and reports whether it found one.
func upperFirst(t string) (string, bool) {
	for i, r := range t {
		if unicode.IsLetter(r) {
			return t[:i] + string(unicode.ToUpper(r)) + t[i+utf8.RuneLen(r):], true
		}
	}
	return t, false
}

// capitalizeWords uppercases the first letter of each lowercase word, except skip
// words after the first.
func capitalizeWords(t string, skip map[string]bool) string {
	words := strings.Split(t, " ")
	for i, w := range words {
		if w == "" || (i > 0 && skip[w]) {
			continue
		}
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsLower(r) {
			words[i], _ = upperFirst(w)
		}
	}
	return strings.Join(words, " ")
}
