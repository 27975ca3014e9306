package challenge

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/blobstream"
)

// Verdict is the outcome of a judged challenge.
type Verdict struct {
	// Proven is set when the challenged blob was shown to be unavailable.
	Proven bool
	// Reason is the fraud error when Proven is set.
	Reason error
	// IndexBlobHash is the keccak256 of the index payload if the index was
	// read, zero otherwise.
	IndexBlobHash common.Hash
}

type engine struct {
	bridge        blobstream.Bridge
	bundle        *Bundle
	indexBlobHash common.Hash
}

// Check runs the verification. A nil error means the challenged blob is
// available and the challenge failed; fraud and input errors are told apart
// with IsFraud and IsInputError.
func Check(bridge blobstream.Bridge, bundle *Bundle) error {
	e := &engine{bridge: bridge, bundle: bundle}
	return e.check()
}

// Judge runs the verification and classifies its outcome. Input errors are
// returned as errors.
func Judge(bridge blobstream.Bridge, bundle *Bundle) (Verdict, error) {
	e := &engine{bridge: bridge, bundle: bundle}
	err := e.check()
	switch {
	case err == nil:
		return Verdict{IndexBlobHash: e.indexBlobHash}, nil
	case IsFraud(err):
		return Verdict{Proven: true, Reason: err, IndexBlobHash: e.indexBlobHash}, nil
	default:
		return Verdict{}, err
	}
}

func (e *engine) check() error {
	b := e.bundle
	if err := b.ValidateBasic(); err != nil {
		return err
	}

	for _, blockProof := range b.BlockProofs {
		if blockProof.Height != blockProof.Proof.Attestation.Height {
			return errorsmod.Wrapf(ErrBlockHeightMismatch, "proof for height %d attests height %d", blockProof.Height, blockProof.Proof.Attestation.Height)
		}
		if err := blobstream.VerifyAttestationAndRowProof(e.bridge, blockProof.Proof); err != nil {
			return errorsmod.Wrapf(err, "block %d", blockProof.Height)
		}
	}

	if b.ChallengedBlob == b.IndexBlob {
		return e.checkExclusion(b.IndexBlob)
	}

	if b.IndexBlobProofData == nil {
		return ErrMissingIndexBlobData
	}
	indexProof, ok := b.BlockProof(b.IndexBlob.Height)
	if !ok {
		return errorsmod.Wrapf(ErrMissingBlockProof, "index blob height %d", b.IndexBlob.Height)
	}
	if err := blob.VerifyShareInclusion(b.IndexBlob, indexProof.Attestation.DataRoot[:], *b.IndexBlobProofData); err != nil {
		return err
	}

	index, err := e.readIndex()
	if err != nil {
		return err
	}
	if !index.Contains(b.ChallengedBlob) {
		return errorsmod.Wrapf(ErrChallengedBlobNotInIndex, "%s", b.ChallengedBlob)
	}
	return e.checkExclusion(b.ChallengedBlob)
}

func (e *engine) readIndex() (blob.Index, error) {
	data := e.bundle.IndexBlobProofData
	if err := blob.ValidateAppVersion(data.AppVersion); err != nil {
		return blob.Index{}, err
	}
	shares, err := data.SpanShares(e.bundle.IndexBlob)
	if err != nil {
		return blob.Index{}, err
	}
	payload, err := blob.ReconstructBlob(shares, data.AppVersion)
	if err != nil {
		return blob.Index{}, err
	}
	e.indexBlobHash = crypto.Keccak256Hash(payload)
	return blob.UnmarshalIndex(payload)
}

// checkExclusion proves span unavailable if its block is outside the range
// attested by Blobstream or if it does not fit in its data square.
func (e *engine) checkExclusion(span blob.SpanSequence) error {
	if err := e.checkHeightBounds(span); err != nil {
		return err
	}
	blockProof, ok := e.bundle.BlockProof(span.Height)
	if !ok {
		return errorsmod.Wrapf(ErrMissingBlockProof, "height %d", span.Height)
	}
	return blob.VerifySpanInclusion(span, blockProof.RowProof)
}

func (e *engine) checkHeightBounds(span blob.SpanSequence) error {
	first := e.bundle.FirstAttestation
	// nonces start at 1 in both Blobstream implementations
	if first.Nonce != 1 {
		return errorsmod.Wrapf(ErrInvalidFirstAttestationNonce, "nonce %d", first.Nonce)
	}
	// index 0 makes the attested height the first covered block
	if first.Proof.Index != 0 {
		return errorsmod.Wrapf(ErrInvalidFirstAttestationIndex, "index %d", first.Proof.Index)
	}
	if err := blobstream.VerifyAttestation(e.bridge, first); err != nil {
		return err
	}

	minHeight := first.Height
	if span.Height < minHeight {
		return errorsmod.Wrapf(ErrBlockHeightTooLow, "block height %d < %d", span.Height, minHeight)
	}

	maxHeight, err := e.bridge.LatestHeight()
	if err != nil {
		return err
	}
	if span.Height > maxHeight {
		return errorsmod.Wrapf(ErrBlockHeightTooHigh, "block height %d > %d", span.Height, maxHeight)
	}
	return nil
}
