package blob

import (
	"slices"

	errorsmod "cosmossdk.io/errors"

	"github.com/celestiaorg/celestia-da-challenge/square"
)

// IndexedShareProof is the inclusion proof of the share at an ODS index.
type IndexedShareProof struct {
	Index uint32
	Proof square.ShareProof
}

// ProofData holds one inclusion proof per ODS share index, sorted by index,
// and the app version used to interpret the shares.
type ProofData struct {
	Proofs     []IndexedShareProof
	AppVersion uint64
}

// NewProofData returns an empty container for the given app version.
func NewProofData(appVersion uint64) *ProofData {
	return &ProofData{AppVersion: appVersion}
}

func compareIndex(entry IndexedShareProof, index uint32) int {
	switch {
	case entry.Index < index:
		return -1
	case entry.Index > index:
		return 1
	default:
		return 0
	}
}

// Set stores the proof of the share at index, replacing any previous one.
func (d *ProofData) Set(index uint32, proof square.ShareProof) {
	i, found := slices.BinarySearchFunc(d.Proofs, index, compareIndex)
	if found {
		d.Proofs[i].Proof = proof
		return
	}
	d.Proofs = slices.Insert(d.Proofs, i, IndexedShareProof{Index: index, Proof: proof})
}

// Get returns the proof of the share at index.
func (d ProofData) Get(index uint32) (square.ShareProof, bool) {
	i, found := slices.BinarySearchFunc(d.Proofs, index, compareIndex)
	if !found {
		return square.ShareProof{}, false
	}
	return d.Proofs[i].Proof, true
}

// SpanShares returns the shares of the span in index order, taking the first
// share of the proof stored at each index.
func (d ProofData) SpanShares(span SpanSequence) ([][]byte, error) {
	end, err := span.EndIndexODS()
	if err != nil {
		return nil, err
	}

	shares := make([][]byte, 0, span.Size)
	for index := span.Start; index < end; index++ {
		proof, ok := d.Get(index)
		if !ok || len(proof.Data) == 0 {
			return nil, errorsmod.Wrapf(ErrMissingShareProof, "share %d", index)
		}
		shares = append(shares, proof.Data[0])
	}
	return shares, nil
}

// Sorted reports whether the proofs are sorted by strictly increasing index.
func (d ProofData) Sorted() bool {
	for i := 1; i < len(d.Proofs); i++ {
		if d.Proofs[i-1].Index >= d.Proofs[i].Index {
			return false
		}
	}
	return true
}

// VerifySpanInclusion checks that the span can exist in the square
// described by the row proof. It does not prove that the shares exist.
func VerifySpanInclusion(span SpanSequence, rowProof square.MerkleProof) error {
	width, err := square.ODSWidth(rowProof)
	if err != nil {
		return err
	}
	odsSize := square.ODSSize(width)

	end, err := span.EndIndexODS()
	if err != nil {
		return err
	}
	if uint64(end) > odsSize {
		return errorsmod.Wrapf(ErrShareIndexOutOfBounds, "%d > %d", end, odsSize)
	}
	return nil
}

// VerifyShareInclusion checks that every share of the span is proven under
// dataRoot by a proof that starts exactly at the share's index.
func VerifyShareInclusion(span SpanSequence, dataRoot []byte, data ProofData) error {
	end, err := span.EndIndexODS()
	if err != nil {
		return err
	}

	for index := span.Start; index < end; index++ {
		proof, ok := data.Get(index)
		if !ok {
			return errorsmod.Wrapf(ErrMissingShareProof, "share %d", index)
		}
		if err := proof.Validate(dataRoot); err != nil {
			return errorsmod.Wrapf(err, "share %d", index)
		}

		start, err := proof.StartIndexODS()
		if err != nil {
			return err
		}
		if start != index {
			return errorsmod.Wrapf(ErrShareIndexMismatch, "proof starts at %d, expected %d", start, index)
		}
	}
	return nil
}
