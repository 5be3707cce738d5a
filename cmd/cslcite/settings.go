package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/cslcite/internal/settings"
	"github.com/matsen/cslcite/internal/style"
)

var (
	setPrimary           string
	setEnabledStyles     string
	setEnabledDownloads  string
	setPublisherLocation string
)

func init() {
	settingsSetCmd.Flags().StringVar(&setPrimary, "primary", "", "Primary citation style id")
	settingsSetCmd.Flags().StringVar(&setEnabledStyles, "styles", "", "Enabled citation style ids (comma-separated, 'none' for none)")
	settingsSetCmd.Flags().StringVar(&setEnabledDownloads, "downloads", "", "Enabled download format ids (comma-separated, 'none' for none)")
	settingsSetCmd.Flags().StringVar(&setPublisherLocation, "publisher-location", "", "Publisher location used as publisher-place")

	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change the citation settings of a context",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <context>",
	Short: "Show the citation settings of a context",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <context>",
	Short: "Change the citation settings of a context",
	Long: `Change the citation settings of a context. Only the given flags change.

Examples:
  cslcite settings set jex --primary ieee --styles apa,ieee,vancouver
  cslcite settings set jex --downloads none
  cslcite settings set press --publisher-location "Vancouver, BC"`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSet,
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	c, err := db.ContextByPath(ctx, args[0])
	if err != nil {
		exitLookup(err, "context %s", args[0])
	}
	s, err := db.Load(ctx, c.ID)
	if err != nil {
		exitWithError(ExitError, "loading settings: %v", err)
	}

	if humanOutput {
		printSettings(s)
	} else {
		outputJSON(s)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()
	a := mustBuildApp(cfg, db, newLogger(), nil)

	c, err := db.ContextByPath(ctx, args[0])
	if err != nil {
		exitLookup(err, "context %s", args[0])
	}
	s, err := db.Load(ctx, c.ID)
	if err != nil {
		exitWithError(ExitError, "loading settings: %v", err)
	}

	flags := cmd.Flags()
	if flags.Changed("primary") {
		s.PrimaryCitationStyle = setPrimary
	}
	if flags.Changed("styles") {
		s.EnabledCitationStyles = parseIDList(setEnabledStyles)
	}
	if flags.Changed("downloads") {
		s.EnabledCitationDownloads = parseIDList(setEnabledDownloads)
	}
	if flags.Changed("publisher-location") {
		s.PublisherLocation = setPublisherLocation
	}

	if err := s.Validate(style.IDs(a.styles.Styles()), style.IDs(a.styles.Downloads())); err != nil {
		if errors.Is(err, settings.ErrInvalid) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}
	if err := db.Save(ctx, c.ID, s); err != nil {
		exitWithError(ExitError, "saving settings: %v", err)
	}

	if humanOutput {
		printSettings(s)
	} else {
		outputJSON(s)
	}
	return nil
}

// parseIDList splits a comma-separated id list. "none" is an explicit empty list.
func parseIDList(v string) []string {
	ids := []string{}
	if strings.TrimSpace(v) == "none" {
		return ids
	}
	for _, id := range strings.Split(v, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func printSettings(s settings.Settings) {
	list := func(ids []string) string {
		if ids == nil {
			return "(catalog defaults)"
		}
		if len(ids) == 0 {
			return "(none)"
		}
		return strings.Join(ids, ", ")
	}
	outputHuman("primary:            %s\n", s.PrimaryCitationStyle)
	outputHuman("enabled styles:     %s\n", list(s.EnabledCitationStyles))
	outputHuman("enabled downloads:  %s\n", list(s.EnabledCitationDownloads))
	outputHuman("publisher location: %s\n", s.PublisherLocation)
}
