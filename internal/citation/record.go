// Package citation defines the csl-json record built for every citation request.
package citation

import (
	"strconv"
	"strings"
)

// CSL item types produced by the mapper.
const (
	TypeArticleJournal = "article-journal"
	TypeBook           = "book"
	TypeChapter        = "chapter"
)

// Name is a csl-json name. Given is omitted when the contributor has no
// family name; the given name is then carried in Family.
type Name struct {
	Family string `json:"family"`
	Given  string `json:"given,omitempty"`
}

// Date is a csl-json date in raw form ("YYYY-MM-DD").
type Date struct {
	Raw string `json:"raw"`
}

// Parts returns year, month and day parsed from the raw value. Missing parts are zero.
func (d *Date) Parts() (year, month, day int) {
	if d == nil {
		return 0, 0, 0
	}
	raw := strings.TrimSpace(d.Raw)
	if i := strings.IndexAny(raw, " T"); i >= 0 {
		raw = raw[:i]
	}
	parts := strings.Split(raw, "-")
	vals := make([]int, 3)
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			break
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2]
}

// Record is the csl-json item handed to the processor. Keys follow the csl-json schema,
// plus risType which only the RIS template reads.
type Record struct {
	Type                string   `json:"type"`
	ID                  string   `json:"id"`
	Title               string   `json:"title,omitempty"`
	ContainerTitle      string   `json:"container-title,omitempty"`
	ContainerTitleShort string   `json:"container-title-short,omitempty"`
	Publisher           string   `json:"publisher,omitempty"`
	PublisherPlace      string   `json:"publisher-place,omitempty"`
	Volume              string   `json:"volume,omitempty"`
	Issue               string   `json:"issue,omitempty"`
	Section             string   `json:"section,omitempty"`
	Page                string   `json:"page,omitempty"`
	Abstract            string   `json:"abstract,omitempty"`
	Keywords            []string `json:"keywords,omitempty"`
	Languages           []string `json:"languages,omitempty"`
	URL                 string   `json:"URL,omitempty"`
	DOI                 string   `json:"DOI,omitempty"`
	Accessed            *Date    `json:"accessed,omitempty"`
	Issued              *Date    `json:"issued,omitempty"`
	OriginalDate        *Date    `json:"original-date,omitempty"`
	Author              []Name   `json:"author,omitempty"`
	Editor              []Name   `json:"editor,omitempty"`
	Translator          []Name   `json:"translator,omitempty"`
	ContainerAuthor     []Name   `json:"container-author,omitempty"`
	CollectionTitle     string   `json:"collection-title,omitempty"`
	CollectionEditor    string   `json:"collection-editor,omitempty"`
	SerialNumber        []string `json:"serialNumber,omitempty"`
	RISType             string   `json:"risType,omitempty"`
}

// Variable returns the value of a standard or number variable by its csl name.
func (r *Record) Variable(name string) string {
	switch name {
	case "type":
		return r.Type
	case "id", "citation-key":
		return r.ID
	case "title":
		return r.Title
	case "container-title":
		return r.ContainerTitle
	case "container-title-short", "journalAbbreviation":
		return r.ContainerTitleShort
	case "publisher":
		return r.Publisher
	case "publisher-place":
		return r.PublisherPlace
	case "volume":
		return r.Volume
	case "issue":
		return r.Issue
	case "section":
		return r.Section
	case "page":
		return r.Page
	case "page-first":
		if i := strings.IndexAny(r.Page, "-–,"); i >= 0 {
			return strings.TrimSpace(r.Page[:i])
		}
		return r.Page
	case "abstract":
		return r.Abstract
	case "keyword":
		return strings.Join(r.Keywords, ", ")
	case "language":
		return strings.Join(r.Languages, ", ")
	case "URL":
		return r.URL
	case "DOI":
		return r.DOI
	case "collection-title":
		return r.CollectionTitle
	case "collection-editor":
		return r.CollectionEditor
	case "ISBN", "ISSN":
		return strings.Join(r.SerialNumber, ", ")
	}
	return ""
}

// Names returns the name list for a csl name variable.
func (r *Record) Names(name string) []Name {
	switch name {
	case "author":
		return r.Author
	case "editor":
		return r.Editor
	case "translator":
		return r.Translator
	case "container-author":
		return r.ContainerAuthor
	}
	return nil
}

// Date returns the date for a csl date variable, or nil.
func (r *Record) Date(name string) *Date {
	switch name {
	case "accessed":
		return r.Accessed
	case "issued":
		return r.Issued
	case "original-date":
		return r.OriginalDate
	}
	return nil
}

// Has reports whether the named variable is non-empty in any variable class.
func (r *Record) Has(name string) bool {
	if r.Variable(name) != "" {
		return true
	}
	if len(r.Names(name)) > 0 {
		return true
	}
	return r.Date(name) != nil
}

// SameNames reports whether every name in a also appears in b.
func SameNames(a, b []Name) bool {
	for _, x := range a {
		found := false
		for _, y := range b {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
