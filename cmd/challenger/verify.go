package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/celestiaorg/celestia-da-challenge/challenge"
	"github.com/celestiaorg/celestia-da-challenge/evmstate"
)

const (
	flagBundle   = "bundle"
	flagSnapshot = "snapshot"
)

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Judge a bundle against a snapshot offline",
		Long: `Runs the challenge program on a bundle and snapshot written by the challenge
command, without network access, and prints the journal of a proven challenge.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := NewLogger(os.Stderr, cfg)
			if err != nil {
				return err
			}

			bundlePath, _ := cmd.Flags().GetString(flagBundle)
			snapshotPath, _ := cmd.Flags().GetString(flagSnapshot)
			bundle, err := readFile(bundlePath, "bundle")
			if err != nil {
				return err
			}
			data, err := readFile(snapshotPath, "snapshot")
			if err != nil {
				return err
			}
			snapshot, err := evmstate.UnmarshalSnapshot(data)
			if err != nil {
				return err
			}

			journal, verdict, err := challenge.Execute(snapshot, bundle)
			if err != nil {
				return err
			}
			encoded, err := journal.Encode()
			if err != nil {
				return err
			}
			logger.Info("challenge proven", "reason", verdict.Reason, "block", journal.Commitment.ID, "index_blob", journal.IndexBlob)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(encoded))
			return err
		},
	}
	cmd.Flags().String(flagBundle, filepath.Join(".", bundleFile), "encoded bundle")
	cmd.Flags().String(flagSnapshot, filepath.Join(".", snapshotFile), "encoded snapshot")
	return cmd
}
