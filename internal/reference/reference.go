// Package reference defines the host platform's publication data as seen by the citation mapper.
package reference

import (
	"errors"
	"sort"
	"strings"
)

// ErrNotFound is returned by host data lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Status is the workflow status of a submission or publication.
type Status int

const (
	StatusQueued    Status = 1
	StatusPublished Status = 3
	StatusDeclined  Status = 4
	StatusScheduled Status = 5
)

// Localized holds one value per locale code (e.g. "en", "pt_BR").
type Localized map[string]string

// In returns the value for locale, falling back to the primary locale and then
// to the first non-empty value in locale order.
func (l Localized) In(locale, primary string) string {
	if v := l[locale]; v != "" {
		return v
	}
	if v := l[primary]; v != "" {
		return v
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if l[k] != "" {
			return l[k]
		}
	}
	return ""
}

// Context is a journal, preprint server or press hosting submissions.
type Context struct {
	ID            int64     `json:"id"`
	Path          string    `json:"path"`
	Name          Localized `json:"name"`
	Abbreviation  Localized `json:"abbreviation,omitempty"`
	Acronym       Localized `json:"acronym,omitempty"`
	PrimaryLocale string    `json:"primary_locale"`
}

// LocalizedName returns the context name in the given locale.
func (c *Context) LocalizedName(locale string) string {
	return c.Name.In(locale, c.PrimaryLocale)
}

// Submission is a work moving through the editorial workflow. Each published
// or draft version of its metadata is a Publication.
type Submission struct {
	ID                   int64         `json:"id"`
	ContextID            int64         `json:"context_id"`
	Locale               string        `json:"locale"`
	Status               Status        `json:"status"`
	CurrentPublicationID int64         `json:"current_publication_id"`
	Publications         []Publication `json:"publications"`
}

// CurrentPublication returns the submission's current publication, or the
// last one when no current id is recorded.
func (s *Submission) CurrentPublication() *Publication {
	for i := range s.Publications {
		if s.Publications[i].ID == s.CurrentPublicationID {
			return &s.Publications[i]
		}
	}
	if len(s.Publications) == 0 {
		return nil
	}
	return &s.Publications[len(s.Publications)-1]
}

// Publication returns the publication with the given id.
func (s *Submission) Publication(id int64) *Publication {
	for i := range s.Publications {
		if s.Publications[i].ID == id {
			return &s.Publications[i]
		}
	}
	return nil
}

// PublishedPublications returns all versions with published status.
func (s *Submission) PublishedPublications() []Publication {
	var out []Publication
	for _, p := range s.Publications {
		if p.Status == StatusPublished {
			out = append(out, p)
		}
	}
	return out
}

// Publication is one version of a submission's metadata.
type Publication struct {
	ID             int64               `json:"id"`
	SubmissionID   int64               `json:"submission_id"`
	Version        int                 `json:"version"`
	Status         Status              `json:"status"`
	Title          Localized           `json:"title"`
	Subtitle       Localized           `json:"subtitle,omitempty"`
	Abstract       Localized           `json:"abstract,omitempty"`
	Keywords       map[string][]string `json:"keywords,omitempty"`
	Authors        []Author            `json:"authors"`
	DatePublished  string              `json:"date_published,omitempty"`
	IssueID        int64               `json:"issue_id,omitempty"`
	SectionID      int64               `json:"section_id,omitempty"`
	SeriesID       int64               `json:"series_id,omitempty"`
	SeriesPosition string              `json:"series_position,omitempty"`
	Pages          string              `json:"pages,omitempty"`
	URLPath        string              `json:"url_path,omitempty"`
	DOI            string              `json:"doi,omitempty"`
	Galleys        []Galley            `json:"galleys,omitempty"`
	Formats        []PublicationFormat `json:"formats,omitempty"`
	Chapters       []Chapter           `json:"chapters,omitempty"`
}

// LocalizedTitle returns the title without its subtitle.
func (p *Publication) LocalizedTitle(locale, primary string) string {
	return p.Title.In(locale, primary)
}

// LocalizedFullTitle returns "Title: Subtitle", or the title alone.
func (p *Publication) LocalizedFullTitle(locale, primary string) string {
	return fullTitle(p.Title.In(locale, primary), p.Subtitle.In(locale, primary))
}

// Chapter returns the chapter with the given id or source chapter id.
func (p *Publication) Chapter(id int64) *Chapter {
	for i := range p.Chapters {
		if p.Chapters[i].ID == id || p.Chapters[i].SourceChapterID == id {
			return &p.Chapters[i]
		}
	}
	return nil
}

// Galley is a rendered file (PDF, HTML, ...) of a publication.
type Galley struct {
	ID     int64  `json:"id"`
	Locale string `json:"locale,omitempty"`
	Label  string `json:"label,omitempty"`
}

// PublicationFormat is a monograph format with its identification codes (ISBN, ...).
type PublicationFormat struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name,omitempty"`
	Approved bool     `json:"approved"`
	Codes    []string `json:"codes,omitempty"`
}

// Chapter is a chapter of a monograph publication.
type Chapter struct {
	ID              int64     `json:"id"`
	SourceChapterID int64     `json:"source_chapter_id"`
	Title           Localized `json:"title"`
	Subtitle        Localized `json:"subtitle,omitempty"`
	Abstract        Localized `json:"abstract,omitempty"`
	Pages           string    `json:"pages,omitempty"`
	DOI             string    `json:"doi,omitempty"`
	Authors         []Author  `json:"authors,omitempty"`
}

// LocalizedFullTitle returns "Title: Subtitle", or the title alone.
func (c *Chapter) LocalizedFullTitle(locale, primary string) string {
	return fullTitle(c.Title.In(locale, primary), c.Subtitle.In(locale, primary))
}

// Issue is a journal issue.
type Issue struct {
	ID            int64  `json:"id"`
	ContextID     int64  `json:"context_id"`
	Volume        string `json:"volume,omitempty"`
	Number        string `json:"number,omitempty"`
	Year          string `json:"year,omitempty"`
	Published     bool   `json:"published"`
	DatePublished string `json:"date_published,omitempty"`
}

// Section is a journal section or, for presses, a series.
type Section struct {
	ID         int64     `json:"id"`
	ContextID  int64     `json:"context_id"`
	Title      Localized `json:"title"`
	Subtitle   Localized `json:"subtitle,omitempty"`
	HideTitle  bool      `json:"hide_title,omitempty"`
	OnlineISSN string    `json:"online_issn,omitempty"`
	PrintISSN  string    `json:"print_issn,omitempty"`
	Editors    []string  `json:"editors,omitempty"`
}

// LocalizedFullTitle returns "Title: Subtitle", or the title alone.
func (s *Section) LocalizedFullTitle(locale, primary string) string {
	return fullTitle(s.Title.In(locale, primary), s.Subtitle.In(locale, primary))
}

// EditorsString joins the series editors for display.
func (s *Section) EditorsString() string {
	return strings.Join(s.Editors, ", ")
}

func fullTitle(title, subtitle string) string {
	if subtitle == "" {
		return title
	}
	return title + ": " + subtitle
}
