package main

import (
	"github.com/spf13/cobra"
)

var recordFlags requestFlags

func init() {
	recordFlags.register(recordCmd)
	rootCmd.AddCommand(recordCmd)
}

var recordCmd = &cobra.Command{
	Use:   "record <context> <submission-id>",
	Short: "Print the csl-json record of a submission",
	Long: `Print the csl-json record that citation styles are rendered from.

Examples:
  cslcite record jex 10
  cslcite record jex 10 --publication 100`,
	Args: cobra.ExactArgs(2),
	RunE: runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()
	a := mustBuildApp(cfg, db, newLogger(), nil)

	req := mustBuildRequest(ctx, a, args, &recordFlags)
	d, err := a.mapper.Build(ctx, req)
	if err != nil {
		exitMapper(err)
	}

	// The record is csl-json, so it is printed as JSON even with --human.
	outputJSON(d.Record)
	return nil
}
