package main

import (
	"fmt"
	"os"
	"path/filepath"

	errorsmod "cosmossdk.io/errors"
	"github.com/spf13/cobra"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/challenge"
	"github.com/celestiaorg/celestia-da-challenge/host"
)

const (
	flagIndexBlob      = "index-blob"
	flagChallengedBlob = "challenged-blob"
	flagOut            = "out"

	bundleFile   = "bundle.rlp"
	snapshotFile = "snapshot.rlp"
	journalFile  = "journal.bin"
)

func challengeCmd() *cobra.Command {
	var index, challenged blob.SpanSequence
	cmd := &cobra.Command{
		Use:   "challenge",
		Short: "Assemble and judge a challenge against a blob listed in an index blob",
		Long: `Assembles the proof bundle and the settlement chain snapshot for the challenged
blob, judges them and writes bundle, snapshot and journal to the output directory.
The bundle and snapshot are the inputs of the prover, the journal its expected output.`,
		Example: "challenger challenge --index-blob 100:12:4 --challenged-blob 98:0:16",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.challenger(cmd.Context())
			if err != nil {
				return err
			}
			result, err := c.Challenge(cmd.Context(), index, challenged)
			if result == nil {
				return err
			}

			out, _ := cmd.Flags().GetString(flagOut)
			if werr := writeResult(out, result); werr != nil {
				return werr
			}
			switch {
			case errorsmod.IsOf(err, challenge.ErrBlobAvailable):
				a.logger.Info("blob is available, nothing to challenge", "out", out)
				return nil
			case err != nil:
				return err
			}
			a.logger.Info("challenge proven", "reason", result.Verdict.Reason, "out", out)
			return nil
		},
	}
	cmd.Flags().Var(&index, flagIndexBlob, "index blob as height:start:size")
	cmd.Flags().Var(&challenged, flagChallengedBlob, "challenged blob as height:start:size")
	cmd.Flags().String(flagOut, ".", "directory receiving bundle, snapshot and journal")
	_ = cmd.MarkFlagRequired(flagIndexBlob)
	_ = cmd.MarkFlagRequired(flagChallengedBlob)
	addChainFlags(cmd)
	return cmd
}

func writeResult(dir string, result *host.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	bundle, err := result.Bundle.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, bundleFile), bundle, 0o644); err != nil {
		return err
	}
	snapshot, err := result.Snapshot.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, snapshotFile), snapshot, 0o644); err != nil {
		return err
	}
	if result.Journal == nil {
		return nil
	}
	journal, err := result.Journal.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, journalFile), journal, 0o644)
}

func readFile(path, what string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", what, err)
	}
	return data, nil
}
