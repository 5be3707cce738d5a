package main

import (
	"context"
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matsen/cslcite/internal/citation"
	"github.com/matsen/cslcite/internal/mapper"
	"github.com/matsen/cslcite/internal/reference"
	"github.com/matsen/cslcite/internal/storage"
)

// requestFlags select what a citation command cites.
type requestFlags struct {
	publication int64
	chapter     int64
	issue       int64
	locale      string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.publication, "publication", 0, "Publication (version) id (default: current publication)")
	cmd.Flags().Int64Var(&f.chapter, "chapter", 0, "Chapter id (monographs)")
	cmd.Flags().Int64Var(&f.issue, "issue", 0, "Issue id (default: the publication's issue)")
	cmd.Flags().StringVar(&f.locale, "locale", "", "Site locale, e.g. pt_BR (default: the context's primary locale)")
}

// mustBuildRequest loads the objects named by a <context> <submission-id> argument
// pair and the request flags. Unlike the HTTP server, the CLI does not check access
// to unpublished submissions.
func mustBuildRequest(ctx context.Context, a *app, args []string, f *requestFlags) mapper.Request {
	c, err := a.db.ContextByPath(ctx, args[0])
	if err != nil {
		exitLookup(err, "context %s", args[0])
	}

	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		exitWithError(ExitError, "invalid submission id: %s", args[1])
	}
	sub, err := a.db.Submission(ctx, c.ID, id)
	if err != nil {
		exitLookup(err, "submission %d", id)
	}

	pub := sub.CurrentPublication()
	if f.publication != 0 {
		pub = sub.Publication(f.publication)
	}
	if pub == nil {
		exitWithError(ExitNotFound, "publication not found for submission %d", id)
	}

	req := mapper.Request{Context: c, Submission: sub, Publication: pub, Locale: f.locale}

	if f.chapter != 0 {
		if req.Chapter = pub.Chapter(f.chapter); req.Chapter == nil {
			exitWithError(ExitNotFound, "chapter %d not found in publication %d", f.chapter, pub.ID)
		}
	}
	if f.issue != 0 && a.cfg.Application == citation.Journal {
		if req.Issue, err = a.db.Issue(ctx, f.issue); err != nil {
			exitLookup(err, "issue %d", f.issue)
		}
	}
	return req
}

// exitLookup exits with ExitNotFound for missing objects and ExitError otherwise.
func exitLookup(err error, format string, args ...interface{}) {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, reference.ErrNotFound) {
		exitWithError(ExitNotFound, format+" not found", args...)
	}
	exitWithError(ExitError, "loading "+format+": %v", append(args, err)...)
}

// exitMapper exits with the code matching a mapper error.
func exitMapper(err error) {
	switch {
	case errors.Is(err, mapper.ErrUnknownStyle), errors.Is(err, mapper.ErrNoPublication):
		exitWithError(ExitNotFound, "%v", err)
	case errors.Is(err, citation.ErrUnknownApplication), errors.Is(err, citation.ErrUnknownDocumentKind):
		exitWithError(ExitConfigError, "%v", err)
	default:
		exitWithError(ExitError, "%v", err)
	}
}
