package mapper

import (
	"context"
	"strconv"

	"github.com/matsen/cslcite/internal/style"
)

// Block is the data of the citation block shown on a publication page.
type Block struct {
	Citation     string            `json:"citation"`
	PrimaryStyle string            `json:"primaryStyle"`
	CitationArgs map[string]string `json:"citationArgs"`
	CitationJSON map[string]string `json:"citationArgsJson"`
	Styles       []style.Config    `json:"citationStyles"`
	Downloads    []style.Config    `json:"citationDownloads"`
}

// TemplateData renders the primary style citation of a request and collects what
// the citation block needs to offer the other enabled styles and downloads.
func (m *Mapper) TemplateData(ctx context.Context, req Request) (*Block, error) {
	contextID := req.Context.ID
	primary, err := m.deps.Styles.Primary(ctx, contextID)
	if err != nil {
		return nil, err
	}
	req.StyleID = primary.ID

	d, err := m.Build(ctx, req)
	if err != nil {
		return nil, err
	}

	styles, err := m.deps.Styles.EnabledStyles(ctx, contextID)
	if err != nil {
		return nil, err
	}
	downloads, err := m.deps.Styles.EnabledDownloads(ctx, contextID)
	if err != nil {
		return nil, err
	}

	args := map[string]string{
		"submissionId":  strconv.FormatInt(d.Submission.ID, 10),
		"publicationId": strconv.FormatInt(d.Publication.ID, 10),
	}
	if d.Issue != nil {
		args["issueId"] = strconv.FormatInt(d.Issue.ID, 10)
	}
	if d.Chapter != nil {
		args["chapterId"] = strconv.FormatInt(d.Chapter.ID, 10)
	}
	argsJSON := make(map[string]string, len(args)+1)
	for k, v := range args {
		argsJSON[k] = v
	}
	argsJSON["return"] = "json"

	return &Block{
		Citation:     m.render(req, d),
		PrimaryStyle: primary.ID,
		CitationArgs: args,
		CitationJSON: argsJSON,
		Styles:       styles,
		Downloads:    downloads,
	}, nil
}
