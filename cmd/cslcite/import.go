package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/cslcite/internal/storage"
)

func init() {
	rootCmd.AddCommand(importCmd, exportCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <hostdata.jsonl>",
	Short: "Rebuild the database from a host-data JSONL file",
	Long: `Rebuild the SQLite database from a host-data JSONL file.

Every line is {"type": ..., "data": {...}} with type one of context, submission,
issue, section, assignment or setting. Existing content, settings included, is
replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export <hostdata.jsonl>",
	Short: "Write the database to a host-data JSONL file",
	Long: `Write the database, settings and assignments included, to a host-data
JSONL file that import can read back.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

// ImportResult is the response for the import and export commands.
type ImportResult struct {
	Status  string         `json:"status"`
	Path    string         `json:"path"`
	Entries int            `json:"entries"`
	Tables  map[string]int `json:"tables,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	count, err := db.RebuildFromJSONL(args[0])
	if err != nil {
		exitWithError(ExitDataError, "rebuilding database: %v", err)
	}
	counts, err := db.Counts(cmd.Context())
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Imported %d entries: %d contexts, %d submissions, %d issues, %d sections\n",
			count, counts["contexts"], counts["submissions"], counts["issues"], counts["sections"])
	} else {
		outputJSON(ImportResult{Status: "imported", Path: args[0], Entries: count, Tables: counts})
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	ds, err := db.Dataset(cmd.Context())
	if err != nil {
		exitWithError(ExitError, "reading database: %v", err)
	}
	if err := storage.WriteAll(args[0], ds); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Exported %d entries to %s\n", ds.Len(), args[0])
	} else {
		outputJSON(ImportResult{Status: "exported", Path: args[0], Entries: ds.Len()})
	}
	return nil
}
