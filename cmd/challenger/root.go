package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// AppName is the name of the command.
const AppName = "challenger"

const flagEnvFile = "env-file"

// RootCmd is the root command of the challenger.
var RootCmd = &cobra.Command{
	Use:   AppName,
	Short: "Prove that a blob committed through an index blob is not available on Celestia.",
	Long: `
The challenger assembles the Celestia and Blobstream proofs of a data availability
challenge, judges it against a snapshot of the settlement chain and submits sealed
challenges to the settlement contract.

Configuration is read from flags, then environment variables, then the .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString(flagEnvFile)
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().String(flagEnvFile, ".env", "dotenv file to load")
	RootCmd.PersistentFlags().String(flagLogLevel, "info", "log level (trace, debug, info, warn, error)")
	RootCmd.PersistentFlags().String(flagLogFormat, "text", "log format (text, json)")
}
