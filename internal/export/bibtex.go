package export

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/matsen/cslcite/internal/citation"
)

// ToBibTeX converts a record to a BibTeX entry.
func ToBibTeX(rec *citation.Record) string {
	var b strings.Builder

	entryType := entryType(rec)
	fmt.Fprintf(&b, "@%s{%s,\n", entryType, CiteKey(rec))

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "  %s = {%s},\n", name, value)
		}
	}

	field("author", formatAuthors(rec.Author))
	field("editor", formatAuthors(append(append([]citation.Name{}, rec.Editor...), rec.ContainerAuthor...)))
	field("translator", formatAuthors(rec.Translator))
	field("title", latex(rec.Title))

	// Venue
	switch entryType {
	case "article":
		field("journal", latex(rec.ContainerTitle))
	case "incollection":
		field("booktitle", latex(rec.ContainerTitle))
	}
	field("series", latex(rec.CollectionTitle))
	field("publisher", latex(rec.Publisher))
	field("address", latex(rec.PublisherPlace))
	field("volume", latex(rec.Volume))
	field("number", latex(rec.Issue))
	if start, end := splitPages(rec.Page); end != "" {
		field("pages", latex(start)+"--"+latex(end))
	} else {
		field("pages", latex(start))
	}

	if y, m, _ := rec.Issued.Parts(); y > 0 {
		field("year", fmt.Sprintf("%d", y))
		if m > 0 {
			field("month", fmt.Sprintf("%d", m))
		}
	}

	field("doi", rec.DOI)
	field("url", rec.URL)
	if len(rec.SerialNumber) > 0 {
		key := "issn"
		if entryType == "book" {
			key = "isbn"
		}
		field(key, strings.Join(rec.SerialNumber, ", "))
	}
	field("abstract", latex(rec.Abstract))
	if len(rec.Keywords) > 0 {
		kws := make([]string, len(rec.Keywords))
		for i, k := range rec.Keywords {
			kws[i] = latex(k)
		}
		field("keywords", strings.Join(kws, ", "))
	}
	field("language", strings.Join(rec.Languages, ", "))

	b.WriteString("}\n")
	return b.String()
}

// ToBibTeXList converts multiple records to BibTeX.
func ToBibTeXList(recs []*citation.Record) string {
	var entries []string
	for _, rec := range recs {
		entries = append(entries, ToBibTeX(rec))
	}
	return strings.Join(entries, "\n")
}

func writeBibTeX(w io.Writer, d Data) error {
	_, err := io.WriteString(w, ToBibTeX(d.Record))
	return err
}

// entryType returns the BibTeX entry type for a record.
func entryType(rec *citation.Record) string {
	switch rec.Type {
	case citation.TypeBook:
		return "book"
	case citation.TypeChapter:
		return "incollection"
	default:
		return "article"
	}
}

var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CiteKey builds a citation key from the first author's family name and the issue year,
// e.g. "Muller2020" for "Müller". Records without an author fall back to "ref<id>".
func CiteKey(rec *citation.Record) string {
	var family string
	if len(rec.Author) > 0 {
		family = Plain(rec.Author[0].Family)
	} else if len(rec.Editor) > 0 {
		family = Plain(rec.Editor[0].Family)
	}
	folded, _, err := transform.String(asciiFold, family)
	if err != nil {
		folded = family
	}
	var key strings.Builder
	for _, r := range folded {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			key.WriteRune(r)
		}
	}
	if key.Len() == 0 {
		return "ref" + rec.ID
	}
	if y, _, _ := rec.Issued.Parts(); y > 0 {
		fmt.Fprintf(&key, "%d", y)
	}
	return key.String()
}

// formatAuthors formats names in BibTeX style: "Last, First and Last, First"
func formatAuthors(names []citation.Name) string {
	var formatted []string
	for _, n := range names {
		if n.Given != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", latex(n.Family), latex(n.Given)))
		} else {
			formatted = append(formatted, "{"+latex(n.Family)+"}")
		}
	}
	return strings.Join(formatted, " and ")
}

// latex converts an HTML-escaped value to LaTeX-escaped text.
func latex(s string) string {
	return escapeLatex(Plain(s))
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\textbackslash{}`,
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
