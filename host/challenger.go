package host

import (
	"bytes"
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/challenge"
	"github.com/celestiaorg/celestia-da-challenge/evmstate"
	"github.com/celestiaorg/celestia-da-challenge/metrics"
	"github.com/celestiaorg/celestia-da-challenge/seal"
)

// Prover produces a receipt for the execution of an encoded bundle against
// an encoded snapshot, typically by delegating to a proving service.
type Prover interface {
	Prove(ctx context.Context, snapshot, bundle []byte) (seal.Receipt, error)
}

// SealVerifier checks a receipt seal. *seal.Verifier satisfies it.
type SealVerifier interface {
	Verify(imageID [32]byte, journal, seal []byte) error
}

// Result is the outcome of a challenge run. Journal and Receipt are set only
// when the blob was proven unavailable.
type Result struct {
	Bundle   *challenge.Bundle
	Snapshot *evmstate.Snapshot
	Verdict  challenge.Verdict
	Journal  *challenge.Journal
	Receipt  *seal.Receipt
	Outcome  string
}

// Challenger runs challenges end to end.
type Challenger struct {
	assembler *Assembler
	preflight *Preflight
	metrics   *metrics.Metrics
	logger    log.Logger

	// Prover and Verifier are optional. Without a prover the journal is
	// returned unsealed.
	Prover   Prover
	Verifier SealVerifier
	ImageID  [32]byte
}

// NewChallenger returns a Challenger without a prover.
func NewChallenger(assembler *Assembler, preflight *Preflight, m *metrics.Metrics, logger log.Logger) *Challenger {
	return &Challenger{
		assembler: assembler,
		preflight: preflight,
		metrics:   m,
		logger:    logger.With("module", "challenger"),
	}
}

// Challenge claims that challenged, listed in the index blob index, is not
// available. A nil error means the claim was proven. challenge.ErrBlobAvailable
// is returned with the result when the blob is available.
func (c *Challenger) Challenge(ctx context.Context, index, challenged blob.SpanSequence) (*Result, error) {
	logger := c.logger.With("index", index, "challenged", challenged)

	bundle, err := c.assembler.Assemble(ctx, index, challenged)
	if err != nil {
		c.metrics.Outcome(metrics.OutcomeFailed)
		return nil, fmt.Errorf("failed to assemble bundle: %w", err)
	}
	logger.Info("assembled bundle", "block_proofs", len(bundle.BlockProofs), "index_shares", bundle.IndexBlobProofData != nil)

	snapshot, err := c.preflight.Run(ctx, bundle)
	if err != nil {
		c.metrics.Outcome(metrics.OutcomeFailed)
		return nil, fmt.Errorf("failed to run preflight: %w", err)
	}

	result, err := c.Execute(ctx, bundle, snapshot)
	if err != nil {
		return result, err
	}
	logger.Info("blob proven unavailable", "reason", result.Verdict.Reason, "block", result.Journal.Commitment.ID)
	return result, nil
}

// Execute judges bundle against snapshot and seals the journal if a prover
// is configured.
func (c *Challenger) Execute(ctx context.Context, bundle *challenge.Bundle, snapshot *evmstate.Snapshot) (*Result, error) {
	result := &Result{Bundle: bundle, Snapshot: snapshot}

	encodedBundle, err := bundle.Marshal()
	if err != nil {
		c.metrics.Outcome(metrics.OutcomeInputError)
		return nil, err
	}
	journal, verdict, err := challenge.Execute(snapshot, encodedBundle)
	result.Verdict = verdict
	switch {
	case errorsmod.IsOf(err, challenge.ErrBlobAvailable):
		result.Outcome = metrics.OutcomeAvailable
		c.metrics.Outcome(result.Outcome)
		return result, err
	case err != nil:
		result.Outcome = metrics.OutcomeInputError
		c.metrics.Outcome(result.Outcome)
		return result, err
	}
	result.Journal = journal
	result.Outcome = metrics.OutcomeFraudProven
	c.metrics.Outcome(result.Outcome)

	if c.Prover == nil {
		return result, nil
	}
	receipt, err := c.seal(ctx, snapshot, encodedBundle, journal)
	if err != nil {
		c.metrics.Outcome(metrics.OutcomeSealRejected)
		return result, err
	}
	result.Receipt = &receipt
	return result, nil
}

func (c *Challenger) seal(ctx context.Context, snapshot *evmstate.Snapshot, bundle []byte, journal *challenge.Journal) (seal.Receipt, error) {
	encodedSnapshot, err := snapshot.Marshal()
	if err != nil {
		return seal.Receipt{}, err
	}
	receipt, err := c.Prover.Prove(ctx, encodedSnapshot, bundle)
	if err != nil {
		return seal.Receipt{}, fmt.Errorf("failed to prove challenge: %w", err)
	}

	expected, err := journal.Encode()
	if err != nil {
		return seal.Receipt{}, err
	}
	if !bytes.Equal(receipt.Journal, expected) {
		return seal.Receipt{}, errorsmod.Wrap(ErrSealRejected, "proven journal differs from the local execution")
	}
	if c.Verifier != nil {
		if err := c.Verifier.Verify(c.ImageID, receipt.Journal, receipt.Seal); err != nil {
			return seal.Receipt{}, errorsmod.Wrap(ErrSealRejected, err.Error())
		}
	}
	return receipt, nil
}
