package main

import (
	syslocale "github.com/jeandeaual/go-locale"
	"github.com/spf13/cobra"

	"github.com/matsen/cslcite/internal/assets"
	"github.com/matsen/cslcite/internal/locale"
)

func init() {
	rootCmd.AddCommand(localeCmd)
}

var localeCmd = &cobra.Command{
	Use:   "locale [site-locale]",
	Short: "Resolve a site locale to a CSL locale",
	Long: `Resolve a site locale such as pt_BR to the closest available CSL locale.

Without an argument the operating system locale is used.

Examples:
  cslcite locale pt_BR
  cslcite locale --human`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLocale,
}

// LocaleResult is the response for the locale command.
type LocaleResult struct {
	Requested string   `json:"requested"`
	Resolved  string   `json:"resolved"`
	Available []string `json:"available"`
}

func runLocale(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	requested := ""
	if len(args) == 1 {
		requested = args[0]
	} else {
		detected, err := syslocale.GetLocale()
		if err != nil {
			exitWithError(ExitError, "detecting system locale: %v", err)
		}
		requested = detected
	}

	available, err := locale.Available(assets.WithDir(cfg.LocalesDir, assets.Locales()))
	if err != nil {
		exitWithError(ExitError, "listing locales: %v", err)
	}
	resolved := locale.Resolve(available, requested, cfg.DefaultLocale)

	if humanOutput {
		outputHuman("%s -> %s\n", requested, resolved)
	} else {
		outputJSON(LocaleResult{Requested: requested, Resolved: resolved, Available: available})
	}
	return nil
}
