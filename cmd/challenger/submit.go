package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/celestia-da-challenge/challenge"
	"github.com/celestiaorg/celestia-da-challenge/seal"
)

const (
	flagJournal = "journal"
	flagSeal    = "seal"
)

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a sealed challenge to the settlement contract",
		Long: `Submits the journal of a proven challenge with the seal produced by the prover.
When a verifying key is configured the seal is checked before sending the transaction.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			journalPath, _ := cmd.Flags().GetString(flagJournal)
			sealPath, _ := cmd.Flags().GetString(flagSeal)
			var receipt seal.Receipt
			if receipt.Journal, err = readFile(journalPath, "journal"); err != nil {
				return err
			}
			if receipt.Seal, err = readFile(sealPath, "seal"); err != nil {
				return err
			}
			journal, err := challenge.DecodeJournal(receipt.Journal)
			if err != nil {
				return err
			}

			verifier, err := a.sealVerifier()
			if err != nil {
				return err
			}
			if verifier != nil {
				if err := verifier.VerifyReceipt(a.cfg.ImageID, receipt); err != nil {
					return err
				}
				a.logger.Info("seal verified")
			}

			submitter, err := a.submitter(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := submitter.Submit(cmd.Context(), receipt)
			if err != nil {
				return err
			}
			a.logger.Info("challenge submitted", "tx", tx.TxHash, "block", tx.BlockNumber, "index_blob", journal.IndexBlob)
			return nil
		},
	}
	cmd.Flags().String(flagJournal, filepath.Join(".", journalFile), "ABI encoded journal")
	cmd.Flags().String(flagSeal, "seal.bin", "seal produced by the prover")
	addSealFlags(cmd)
	addSubmitFlags(cmd)
	cmd.Flags().String(flagEthRPCURL, "http://localhost:8545", "settlement chain JSON-RPC URL")
	return cmd
}
