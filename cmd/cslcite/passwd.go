package main

import (
	"bufio"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var passwdCost int

func init() {
	passwdCmd.Flags().IntVar(&passwdCost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	rootCmd.AddCommand(passwdCmd)
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Hash a password for the users section of the config file",
	Long: `Read a password from the first line of stdin and print its bcrypt hash
for use as password_hash in config.yml.

Example:
  echo 'secret' | cslcite passwd --human`,
	Args: cobra.NoArgs,
	RunE: runPasswd,
}

// PasswdResult is the response for the passwd command.
type PasswdResult struct {
	PasswordHash string `json:"password_hash"`
}

func runPasswd(cmd *cobra.Command, args []string) error {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		exitWithError(ExitError, "reading password: %v", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		exitWithError(ExitDataError, "empty password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwdCost)
	if err != nil {
		exitWithError(ExitError, "hashing password: %v", err)
	}

	if humanOutput {
		outputHuman("%s\n", hash)
	} else {
		outputJSON(PasswdResult{PasswordHash: string(hash)})
	}
	return nil
}
