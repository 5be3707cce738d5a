// Package mapper builds csl-json citation records from host publication data and
// renders them with a CSL style or a download template.
package mapper

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/cslcite/internal/citation"
	"github.com/matsen/cslcite/internal/citeproc"
	"github.com/matsen/cslcite/internal/export"
	"github.com/matsen/cslcite/internal/hooks"
	"github.com/matsen/cslcite/internal/locale"
	"github.com/matsen/cslcite/internal/reference"
	"github.com/matsen/cslcite/internal/settings"
	"github.com/matsen/cslcite/internal/style"
)

var (
	// ErrUnknownStyle is returned by Download when the style id is not in the catalog.
	ErrUnknownStyle = errors.New("unknown citation style")

	// ErrNoPublication indicates the submission has no publication to cite.
	ErrNoPublication = errors.New("submission has no publication")
)

// Repository loads the host objects a publication refers to by id.
// Lookups that match nothing return an error wrapping reference.ErrNotFound.
type Repository interface {
	Issue(ctx context.Context, id int64) (*reference.Issue, error)
	Section(ctx context.Context, id int64) (*reference.Section, error)
}

// Processor renders records with a CSL style.
type Processor interface {
	Render(styleXML []byte, localeCode string, items []*citation.Record, markup map[string]citeproc.Markup) (string, error)
}

// Config holds the installation-wide mapper settings.
type Config struct {
	Application   citation.Application
	BaseURL       string
	DefaultLocale string // CSL locale used when the request locale has no match
}

// Deps are the collaborators of a Mapper. Repository, Settings, Hooks and Metrics may be nil.
type Deps struct {
	Repository Repository
	Settings   settings.Store
	Styles     *style.Registry
	Processor  Processor
	Templates  *export.Templates
	StyleFiles fs.FS // built-in styles named "<id>.csl"
	Locales    fs.FS // CSL locales named "locales-<code>.xml"
	Hooks      *hooks.Registry
	Metrics    *Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// Mapper builds and renders citations for one embedding application.
type Mapper struct {
	cfg  Config
	deps Deps
}

// New creates a mapper.
func New(cfg Config, deps Deps) *Mapper {
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = locale.DefaultLocale
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Templates == nil {
		deps.Templates = export.New()
	}
	return &Mapper{cfg: cfg, deps: deps}
}

// Application returns the embedding application the mapper was built for.
func (m *Mapper) Application() citation.Application {
	return m.cfg.Application
}

// Request names what to cite. Publication defaults to the submission's current
// publication. Issue is loaded from the publication when nil. Locale is the host
// locale of the request ("en", "pt_BR"); it defaults to the context's primary locale.
type Request struct {
	Context     *reference.Context
	Submission  *reference.Submission
	Publication *reference.Publication
	Issue       *reference.Issue
	Chapter     *reference.Chapter
	Locale      string
	StyleID     string
}

func (r Request) locale() string {
	if r.Locale != "" {
		return r.Locale
	}
	return r.Context.PrimaryLocale
}

// Build produces the citation record of a request together with the host objects it was
// built from. The returned data is what download templates are bound to.
func (m *Mapper) Build(ctx context.Context, req Request) (export.Data, error) {
	pub := req.Publication
	if pub == nil {
		pub = req.Submission.CurrentPublication()
	}
	if pub == nil {
		return export.Data{}, fmt.Errorf("%w: %d", ErrNoPublication, req.Submission.ID)
	}

	kind, err := citation.KindFor(m.cfg.Application, req.Chapter != nil)
	if err != nil {
		return export.Data{}, err
	}

	d := export.Data{
		StyleID:     req.StyleID,
		Context:     req.Context,
		Submission:  req.Submission,
		Publication: pub,
		Chapter:     req.Chapter,
		Issue:       req.Issue,
	}
	b := &builder{
		m:      m,
		loc:    req.locale(),
		pubLoc: req.Submission.Locale,
		rec: &citation.Record{
			Type:    kind.String(),
			RISType: kind.RISType(),
		},
	}
	if b.pubLoc == "" {
		b.pubLoc = req.Context.PrimaryLocale
	}

	switch kind {
	case citation.Article:
		err = b.article(ctx, &d)
	case citation.Book:
		err = b.book(ctx, &d)
	case citation.Chapter:
		err = b.chapter(ctx, &d)
	}
	if err != nil {
		return export.Data{}, err
	}

	if err := b.common(ctx, &d, kind); err != nil {
		return export.Data{}, err
	}
	d.Record = b.rec
	return d, nil
}

type builder struct {
	m      *Mapper
	loc    string // request locale
	pubLoc string // submission locale, fallback for localized values
	rec    *citation.Record
}

func (b *builder) article(ctx context.Context, d *export.Data) error {
	rec, pub, sub := b.rec, d.Publication, d.Submission

	rec.ID = strconv.FormatInt(sub.ID, 10)
	rec.Title = escape(pub.LocalizedFullTitle(b.loc, b.pubLoc))
	rec.ContainerTitle = escape(d.Context.LocalizedName(b.loc))

	if d.Issue == nil && pub.IssueID != 0 {
		issue, err := b.lookupIssue(ctx, pub.IssueID)
		if err != nil {
			return err
		}
		d.Issue = issue
	}
	if d.Issue != nil {
		rec.Volume = escape(d.Issue.Volume)
		rec.Issue = escape(d.Issue.Number)
	}

	if pub.SectionID != 0 {
		section, err := b.lookupSection(ctx, pub.SectionID)
		if err != nil {
			return err
		}
		d.Section = section
		if section != nil && !section.HideTitle {
			rec.Section = escape(section.Title.In(d.Context.PrimaryLocale, d.Context.PrimaryLocale))
		}
	}

	rec.Keywords = b.keywords(pub)
	rec.Page = escape(pub.Pages)
	rec.Abstract = escape(export.Plain(pub.Abstract.In(b.loc, b.pubLoc)))
	b.contributors(pub.Authors)
	rec.URL = b.m.publicationURL(d.Context, sub, pub, nil)
	rec.DOI = pub.DOI
	return nil
}

func (b *builder) book(ctx context.Context, d *export.Data) error {
	rec, pub, sub := b.rec, d.Publication, d.Submission

	rec.ID = strconv.FormatInt(sub.ID, 10)
	rec.Title = escape(pub.LocalizedFullTitle(b.loc, b.pubLoc))
	if err := b.series(ctx, d); err != nil {
		return err
	}
	rec.Publisher = escape(d.Context.LocalizedName(b.loc))
	rec.Keywords = b.keywords(pub)
	rec.Page = escape(pub.Pages)
	rec.Abstract = escape(export.Plain(pub.Abstract.In(b.loc, b.pubLoc)))
	rec.SerialNumber = append(rec.SerialNumber, formatCodes(pub)...)
	b.contributors(pub.Authors)
	rec.URL = b.m.publicationURL(d.Context, sub, pub, nil)
	rec.DOI = pub.DOI
	return nil
}

func (b *builder) chapter(ctx context.Context, d *export.Data) error {
	rec, pub, sub, ch := b.rec, d.Publication, d.Submission, d.Chapter

	rec.ID = strconv.FormatInt(ch.SourceChapterID, 10)
	rec.Title = escape(ch.LocalizedFullTitle(b.loc, b.pubLoc))
	rec.ContainerTitle = escape(pub.LocalizedFullTitle(b.loc, b.pubLoc))
	if err := b.series(ctx, d); err != nil {
		return err
	}
	rec.Publisher = escape(d.Context.LocalizedName(b.loc))
	rec.Page = escape(ch.Pages)
	rec.Abstract = escape(export.Plain(ch.Abstract.In(b.loc, b.pubLoc)))
	rec.SerialNumber = append(rec.SerialNumber, formatCodes(pub)...)
	b.chapterAuthors(ch.Authors, pub.Authors)
	rec.URL = b.m.publicationURL(d.Context, sub, pub, ch)
	rec.DOI = ch.DOI
	return nil
}

// series adds the collection fields of a monograph's series.
func (b *builder) series(ctx context.Context, d *export.Data) error {
	if d.Publication.SeriesID == 0 {
		return nil
	}
	series, err := b.lookupSection(ctx, d.Publication.SeriesID)
	if err != nil || series == nil {
		return err
	}
	d.Section = series

	rec := b.rec
	rec.CollectionTitle = escape(strings.TrimSpace(series.LocalizedFullTitle(b.loc, d.Context.PrimaryLocale)))
	rec.Volume = escape(d.Publication.SeriesPosition)
	rec.CollectionEditor = escape(series.EditorsString())
	for _, issn := range []string{series.OnlineISSN, series.PrintISSN} {
		if issn != "" {
			rec.SerialNumber = append(rec.SerialNumber, escape(issn))
		}
	}
	return nil
}

// common sets the fields shared by every document kind.
func (b *builder) common(ctx context.Context, d *export.Data, kind citation.Kind) error {
	rec, pub, sub := b.rec, d.Publication, d.Submission

	langs := make([]string, 0, len(pub.Galleys)+1)
	for _, g := range pub.Galleys {
		langs = append(langs, g.Locale)
	}
	langs = append(langs, sub.Locale)
	langs = slices.DeleteFunc(langs, func(s string) bool { return s == "" })
	slices.Sort(langs)
	if langs = slices.Compact(langs); len(langs) > 0 {
		rec.Languages = langs
	}

	if b.m.deps.Settings != nil {
		s, err := b.m.deps.Settings.Load(ctx, d.Context.ID)
		if err != nil {
			return fmt.Errorf("loading settings for context %d: %w", d.Context.ID, err)
		}
		rec.PublisherPlace = escape(s.PublisherLocation)
	}

	primary := d.Context.PrimaryLocale
	if abbrev := d.Context.Abbreviation[primary]; abbrev != "" {
		rec.ContainerTitleShort = escape(abbrev)
	} else if acronym := d.Context.Acronym[primary]; acronym != "" {
		rec.ContainerTitleShort = escape(acronym)
	}

	rec.Accessed = &citation.Date{Raw: b.m.deps.Now().Format("2006-01-02")}

	if pub.DatePublished != "" {
		rec.Issued = &citation.Date{Raw: escape(pub.DatePublished)}
		if original := originalDate(sub, pub); original != "" {
			rec.OriginalDate = &citation.Date{Raw: escape(original)}
		}
	} else if kind == citation.Article && d.Issue != nil && d.Issue.Published && d.Issue.DatePublished != "" {
		rec.Issued = &citation.Date{Raw: escape(d.Issue.DatePublished)}
	}
	return nil
}

// originalDate returns the publish date of the earliest published version when the
// submission has several published versions and it differs from pub's date.
func originalDate(sub *reference.Submission, pub *reference.Publication) string {
	published := sub.PublishedPublications()
	if len(published) < 2 {
		return ""
	}
	first := published[0]
	for _, p := range published[1:] {
		if p.ID < first.ID {
			first = p
		}
	}
	if first.DatePublished == "" || first.DatePublished == pub.DatePublished {
		return ""
	}
	return first.DatePublished
}

func (b *builder) keywords(pub *reference.Publication) []string {
	kws := pub.Keywords[b.loc]
	if len(kws) == 0 {
		return nil
	}
	out := make([]string, len(kws))
	for i, k := range kws {
		out[i] = escape(k)
	}
	return out
}

func formatCodes(pub *reference.Publication) []string {
	var out []string
	for _, f := range pub.Formats {
		if !f.Approved {
			continue
		}
		for _, code := range f.Codes {
			out = append(out, escape(code))
		}
	}
	return out
}

func (b *builder) lookupIssue(ctx context.Context, id int64) (*reference.Issue, error) {
	if b.m.deps.Repository == nil {
		return nil, nil
	}
	issue, err := b.m.deps.Repository.Issue(ctx, id)
	if errors.Is(err, reference.ErrNotFound) {
		return nil, nil
	}
	return issue, err
}

func (b *builder) lookupSection(ctx context.Context, id int64) (*reference.Section, error) {
	if b.m.deps.Repository == nil {
		return nil, nil
	}
	section, err := b.m.deps.Repository.Section(ctx, id)
	if errors.Is(err, reference.ErrNotFound) {
		return nil, nil
	}
	return section, err
}

// publicationURL returns the landing page of a publication or chapter.
func (m *Mapper) publicationURL(c *reference.Context, sub *reference.Submission, pub *reference.Publication, ch *reference.Chapter) string {
	id := pub.URLPath
	if id == "" {
		id = strconv.FormatInt(sub.ID, 10)
	}
	op := "view"
	if m.cfg.Application == citation.Monograph {
		op = "book"
	}
	u := m.cfg.BaseURL + "/" + c.Path + "/" + m.cfg.Application.URLSegment() + "/" + op + "/" + id
	if ch != nil {
		u += "/chapter/" + strconv.FormatInt(ch.SourceChapterID, 10)
	}
	return u
}

func escape(s string) string {
	return html.EscapeString(s)
}
