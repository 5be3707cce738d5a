package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matsen/cslcite/internal/access"
	"github.com/matsen/cslcite/internal/storage"
)

var assignJSONL string

func init() {
	assignCmd.Flags().StringVar(&assignJSONL, "jsonl", "", "Also append the assignment to this host-data JSONL file")
	rootCmd.AddCommand(assignCmd)
}

var assignCmd = &cobra.Command{
	Use:   "assign <submission-id> <user-id> <role>",
	Short: "Assign a user to a submission",
	Long: `Record a stage assignment. Sub-editors and assistants assigned to a
submission in one of those roles may view it before it is published.

Examples:
  cslcite assign 11 3 sub-editor
  cslcite assign 11 4 assistant --jsonl hostdata.jsonl`,
	Args: cobra.ExactArgs(3),
	RunE: runAssign,
}

func runAssign(cmd *cobra.Command, args []string) error {
	submissionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		exitWithError(ExitError, "invalid submission id: %s", args[0])
	}
	userID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		exitWithError(ExitError, "invalid user id: %s", args[1])
	}
	role := access.Role(args[2])
	if !role.Valid() {
		exitWithError(ExitDataError, "unknown role: %s", args[2])
	}
	a := access.Assignment{SubmissionID: submissionID, UserID: userID, Role: role}

	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	if err := db.AddAssignment(cmd.Context(), a); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if assignJSONL != "" {
		if err := storage.Append(assignJSONL, storage.TypeAssignment, a); err != nil {
			exitWithError(ExitError, "%v", err)
		}
	}

	if humanOutput {
		outputHuman("Assigned user %d to submission %d as %s\n", userID, submissionID, role)
	} else {
		outputJSON(a)
	}
	return nil
}
