package mapper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/matsen/cslcite/internal/citation"
	"github.com/matsen/cslcite/internal/citeproc"
	"github.com/matsen/cslcite/internal/export"
	"github.com/matsen/cslcite/internal/hooks"
	"github.com/matsen/cslcite/internal/locale"
	"github.com/matsen/cslcite/internal/style"
)

// Mutation is handed to citation hooks before rendering. Hooks may change any
// record field or replace StyleID.
type Mutation struct {
	Record  *citation.Record
	StyleID string
	Data    export.Data
}

// CitationHook mutates a record before it is rendered.
type CitationHook interface {
	MutateCitation(m *Mutation)
}

// CitationFunc adapts a function to CitationHook.
type CitationFunc func(m *Mutation)

// MutateCitation calls f.
func (f CitationFunc) MutateCitation(m *Mutation) { f(m) }

// CitationPoint runs after a record is built and before it is rendered.
var CitationPoint = hooks.NewPoint[CitationHook]("CitationStyleLanguage::citation")

// maxFilenameTitle is the number of title characters kept in download file names.
const maxFilenameTitle = 60

// Citation builds and renders the citation of a request with req.StyleID. It returns
// an empty string when the style is unknown or rendering fails; errors are returned
// only for misconfiguration and data access failures.
func (m *Mapper) Citation(ctx context.Context, req Request) (string, error) {
	d, err := m.Build(ctx, req)
	if err != nil {
		return "", err
	}
	return m.render(req, d), nil
}

func (m *Mapper) render(req Request, d export.Data) string {
	return m.renderMutated(req, m.mutate(req, d))
}

// mutate runs the citation hooks and returns the data with the record and style
// id they settled on.
func (m *Mapper) mutate(req Request, d export.Data) export.Data {
	mut := &Mutation{Record: d.Record, StyleID: req.StyleID, Data: d}
	for _, h := range hooks.Callbacks(m.deps.Hooks, CitationPoint) {
		h.MutateCitation(mut)
	}
	d.Record, d.StyleID = mut.Record, mut.StyleID
	return d
}

func (m *Mapper) renderMutated(req Request, d export.Data) string {
	log := m.deps.Logger.With(zap.String("style", d.StyleID), zap.Int64("submission", d.Submission.ID))

	cfg, err := m.deps.Styles.Resolve(d.StyleID)
	if err != nil {
		log.Debug("Citation style not found")
		return ""
	}

	if cfg.Template != "" {
		out, err := m.deps.Templates.Render(cfg.Template, d)
		if err != nil {
			m.degraded(log, d.StyleID, err)
			return ""
		}
		m.deps.Metrics.rendered(d.StyleID)
		return out
	}

	styleXML, err := m.loadStyle(cfg)
	if err != nil {
		m.degraded(log, d.StyleID, err)
		return ""
	}
	code := locale.ResolveFS(m.deps.Locales, req.locale(), m.cfg.DefaultLocale)
	out, err := m.deps.Processor.Render(styleXML, code, []*citation.Record{d.Record}, Markup())
	if err != nil {
		m.degraded(log, d.StyleID, err)
		return ""
	}
	m.deps.Metrics.rendered(d.StyleID)
	return out
}

func (m *Mapper) degraded(log *zap.Logger, styleID string, err error) {
	log.Warn("Citation render degraded", zap.Error(err))
	m.deps.Metrics.degraded(styleID)
}

// loadStyle reads the style's CSL file override, or the built-in style of that id.
func (m *Mapper) loadStyle(cfg style.Config) ([]byte, error) {
	if cfg.StyleFile != "" {
		return os.ReadFile(cfg.StyleFile)
	}
	if m.deps.StyleFiles == nil {
		return nil, fmt.Errorf("no style files for %s", cfg.ID)
	}
	return fs.ReadFile(m.deps.StyleFiles, cfg.ID+".csl")
}

// Markup returns the per-variable post-processing applied to rendered citations:
// DOIs link to https://doi.org/ and URLs link to themselves.
func Markup() map[string]citeproc.Markup {
	return map[string]citeproc.Markup{
		"DOI": {Func: linkDOI, Affixes: true},
		"URL": {Func: linkURL},
	}
}

func linkDOI(item *citation.Record, rendered string) string {
	doiURL := "https://doi.org/" + item.DOI
	if strings.Contains(rendered, doiURL) {
		return strings.ReplaceAll(rendered, doiURL, `<a href="`+doiURL+`">`+doiURL+`</a>`)
	}
	return strings.ReplaceAll(rendered, item.DOI, `<a href="`+doiURL+`">`+item.DOI+`</a>`)
}

func linkURL(item *citation.Record, rendered string) string {
	return `<a href="` + item.URL + `">` + rendered + `</a>`
}

// Download is a citation packaged as a file.
type Download struct {
	Body        []byte
	Filename    string // RFC 5987 percent-encoded
	ContentType string
}

// ContentDisposition returns the attachment header value for the download.
func (d *Download) ContentDisposition() string {
	return "attachment; filename*=UTF-8''" + d.Filename
}

// Download renders the citation of a request as a plain-text file in the format
// named by req.StyleID. Unknown ids return ErrUnknownStyle. When a citation hook
// swaps the style, the file is packaged for the style it swapped to.
func (m *Mapper) Download(ctx context.Context, req Request) (*Download, error) {
	cfg, err := m.deps.Styles.Resolve(req.StyleID)
	if err != nil {
		if errors.Is(err, style.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownStyle, req.StyleID)
		}
		return nil, err
	}

	d, err := m.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	d = m.mutate(req, d)
	if d.StyleID != cfg.ID {
		if swapped, err := m.deps.Styles.Resolve(d.StyleID); err == nil {
			cfg = swapped
		}
	}
	text := export.Plain(m.renderMutated(req, d))

	// CSL has no line break; RIS styles emit a literal \n instead.
	if isRIS(cfg) {
		text = strings.ReplaceAll(text, `\n`, "\n")
	}

	m.deps.Metrics.downloaded(cfg.ID)
	return &Download{
		Body:        []byte(text),
		Filename:    Filename(d.Publication.LocalizedTitle(req.locale(), d.Submission.Locale), cfg.FileExtension),
		ContentType: cfg.ContentType,
	}, nil
}

func isRIS(cfg style.Config) bool {
	return cfg.Template == style.TemplateRIS || cfg.FileExtension == "ris"
}

// Filename returns the percent-encoded download file name for a title: the first
// 60 characters of the title followed by the extension.
func Filename(title, ext string) string {
	if utf8.RuneCountInString(title) > maxFilenameTitle {
		title = string([]rune(title)[:maxFilenameTitle])
	}
	return encodeRFC5987(title) + "." + ext
}

// encodeRFC5987 percent-encodes everything outside the RFC 5987 attr-char set.
func encodeRFC5987(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
