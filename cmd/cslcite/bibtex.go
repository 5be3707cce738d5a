package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matsen/cslcite/internal/citation"
	"github.com/matsen/cslcite/internal/export"
	"github.com/matsen/cslcite/internal/mapper"
	"github.com/matsen/cslcite/internal/reference"
)

var (
	bibtexOutput string
	bibtexAll    bool
)

func init() {
	bibtexCmd.Flags().StringVarP(&bibtexOutput, "output", "o", "", "Write to this file instead of stdout")
	bibtexCmd.Flags().BoolVar(&bibtexAll, "all", false, "Include unpublished submissions when no ids are given")
	rootCmd.AddCommand(bibtexCmd)
}

var bibtexCmd = &cobra.Command{
	Use:   "bibtex <context> [submission-id...]",
	Short: "Export the current publications of a context as one BibTeX file",
	Long: `Export the current publications of several submissions as BibTeX.

Without submission ids, every published submission of the context is exported.

Examples:
  cslcite bibtex jex > jex.bib
  cslcite bibtex jex 10 11 -o refs.bib
  cslcite bibtex press --all`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBibTeX,
}

func runBibTeX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()
	a := mustBuildApp(cfg, db, newLogger(), nil)

	c, err := db.ContextByPath(ctx, args[0])
	if err != nil {
		exitLookup(err, "context %s", args[0])
	}

	var subs []reference.Submission
	if len(args) > 1 {
		for _, arg := range args[1:] {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				exitWithError(ExitError, "invalid submission id: %s", arg)
			}
			sub, err := db.Submission(ctx, c.ID, id)
			if err != nil {
				exitLookup(err, "submission %d", id)
			}
			subs = append(subs, *sub)
		}
	} else {
		all, err := db.Submissions(ctx, c.ID)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		for _, sub := range all {
			if bibtexAll || sub.Status == reference.StatusPublished {
				subs = append(subs, sub)
			}
		}
	}

	var recs []*citation.Record
	for i := range subs {
		sub := &subs[i]
		pub := sub.CurrentPublication()
		if pub == nil {
			continue
		}
		d, err := a.mapper.Build(ctx, mapper.Request{Context: c, Submission: sub, Publication: pub})
		if err != nil {
			exitMapper(err)
		}
		recs = append(recs, d.Record)
	}

	out := export.ToBibTeXList(recs)
	if bibtexOutput == "" {
		os.Stdout.WriteString(out)
		return nil
	}
	if err := os.WriteFile(bibtexOutput, []byte(out), 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", bibtexOutput, err)
	}
	if humanOutput {
		outputHuman("Wrote %d entries to %s\n", len(recs), bibtexOutput)
	} else {
		outputJSON(StatusResponse{Status: "written", Path: bibtexOutput})
	}
	return nil
}
