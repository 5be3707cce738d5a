package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/cslcite/internal/style"
)

func init() {
	rootCmd.AddCommand(stylesCmd)
}

var stylesCmd = &cobra.Command{
	Use:   "styles [context]",
	Short: "List citation styles and download formats",
	Long: `List the citation style and download format catalogs.

With a context, the enabled and primary flags reflect that context's settings;
without one, they are the catalog defaults.

Examples:
  cslcite styles
  cslcite styles jex --human`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStyles,
}

// StylesResult is the response for the styles command.
type StylesResult struct {
	Styles    []style.Config `json:"citation_styles"`
	Downloads []style.Config `json:"citation_downloads"`
}

func runStyles(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()
	a := mustBuildApp(cfg, db, newLogger(), nil)

	result := StylesResult{Styles: a.styles.Styles(), Downloads: a.styles.Downloads()}
	if len(args) == 1 {
		c, err := db.ContextByPath(ctx, args[0])
		if err != nil {
			exitLookup(err, "context %s", args[0])
		}
		primary, err := a.styles.Primary(ctx, c.ID)
		if err != nil {
			exitWithError(ExitError, "resolving primary style: %v", err)
		}
		styles, err := a.styles.EnabledStyles(ctx, c.ID)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		downloads, err := a.styles.EnabledDownloads(ctx, c.ID)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		result.Styles = markEnabled(result.Styles, styles, primary.ID)
		result.Downloads = markEnabled(result.Downloads, downloads, "")
	}

	if !humanOutput {
		outputJSON(result)
		return nil
	}

	outputHuman("Citation styles:\n")
	printCatalog(result.Styles)
	outputHuman("\nDownload formats:\n")
	printCatalog(result.Downloads)
	return nil
}

func markEnabled(catalog, enabled []style.Config, primaryID string) []style.Config {
	on := make(map[string]bool, len(enabled))
	for _, c := range enabled {
		on[c.ID] = true
	}
	for i := range catalog {
		catalog[i].IsEnabled = on[catalog[i].ID]
		catalog[i].IsPrimary = catalog[i].ID == primaryID
	}
	return catalog
}

func printCatalog(entries []style.Config) {
	for _, c := range entries {
		mark := " "
		switch {
		case c.IsPrimary:
			mark = "*"
		case c.IsEnabled:
			mark = "+"
		}
		outputHuman("  %s %-40s %s\n", mark, c.ID, truncateString(c.Title, 50))
	}
}
