package citation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownApplication indicates the embedding application is not recognised.
	ErrUnknownApplication = errors.New("unknown application")

	// ErrUnknownDocumentKind indicates no document kind fits the application and context.
	ErrUnknownDocumentKind = errors.New("unknown submission content type")
)

// Application identifies the embedding publishing platform.
type Application string

const (
	Journal   Application = "journal"
	Preprint  Application = "preprint"
	Monograph Application = "monograph"
)

// ParseApplication accepts the application names and the host's legacy short names.
func ParseApplication(s string) (Application, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "journal", "ojs", "ojs2":
		return Journal, nil
	case "preprint", "ops":
		return Preprint, nil
	case "monograph", "omp":
		return Monograph, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownApplication, s)
}

// URLSegment returns the page path used for publication landing pages.
func (a Application) URLSegment() string {
	switch a {
	case Journal:
		return "article"
	case Preprint:
		return "preprint"
	case Monograph:
		return "catalog"
	}
	return ""
}

// Kind is the kind of document being cited.
type Kind int

const (
	Article Kind = iota + 1
	Book
	Chapter
)

// String returns the csl item type for the kind.
func (k Kind) String() string {
	switch k {
	case Article:
		return TypeArticleJournal
	case Book:
		return TypeBook
	case Chapter:
		return TypeChapter
	}
	return "unknown"
}

// RISType returns the RIS reference type hint for the kind.
func (k Kind) RISType() string {
	switch k {
	case Article:
		return "JOUR"
	case Book:
		return "BOOK"
	case Chapter:
		return "CHAP"
	}
	return ""
}

// KindFor selects the document kind once, at the call boundary.
func KindFor(app Application, hasChapter bool) (Kind, error) {
	switch app {
	case Journal, Preprint:
		return Article, nil
	case Monograph:
		if hasChapter {
			return Chapter, nil
		}
		return Book, nil
	}
	return 0, fmt.Errorf("%w: application %q", ErrUnknownDocumentKind, app)
}
