package challenge

import (
	"slices"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/blobstream"
)

// BlockProof authenticates the block at Height.
type BlockProof struct {
	Height uint64
	Proof  blobstream.AttestationAndRowProof
}

// Bundle is everything the engine needs to judge a challenge. It is built by
// the host and carries no assumption of further chain access.
type Bundle struct {
	IndexBlob      blob.SpanSequence
	ChallengedBlob blob.SpanSequence
	// IndexBlobProofData is set when a blob listed in the index is
	// challenged and the index shares could be fetched.
	IndexBlobProofData *blob.ProofData `rlp:"nil"`
	// BlockProofs is sorted by strictly increasing height.
	BlockProofs      []BlockProof
	FirstAttestation blobstream.Attestation
}

func compareHeight(proof BlockProof, height uint64) int {
	switch {
	case proof.Height < height:
		return -1
	case proof.Height > height:
		return 1
	default:
		return 0
	}
}

// SetBlockProof stores the proof of a block, replacing any previous one.
func (b *Bundle) SetBlockProof(height uint64, proof blobstream.AttestationAndRowProof) {
	i, found := slices.BinarySearchFunc(b.BlockProofs, height, compareHeight)
	if found {
		b.BlockProofs[i].Proof = proof
		return
	}
	b.BlockProofs = slices.Insert(b.BlockProofs, i, BlockProof{Height: height, Proof: proof})
}

// BlockProof returns the proof of the block at height.
func (b *Bundle) BlockProof(height uint64) (blobstream.AttestationAndRowProof, bool) {
	i, found := slices.BinarySearchFunc(b.BlockProofs, height, compareHeight)
	if !found {
		return blobstream.AttestationAndRowProof{}, false
	}
	return b.BlockProofs[i].Proof, true
}

// AttestationNonces returns the data commitment nonces the bundle attests
// against, first attestation included.
func (b *Bundle) AttestationNonces() []uint64 {
	nonces := []uint64{b.FirstAttestation.Nonce}
	for _, proof := range b.BlockProofs {
		nonces = append(nonces, proof.Proof.Attestation.Nonce)
	}
	return nonces
}

// ValidateBasic checks the encoding invariants of the bundle.
func (b *Bundle) ValidateBasic() error {
	for i := 1; i < len(b.BlockProofs); i++ {
		if b.BlockProofs[i-1].Height >= b.BlockProofs[i].Height {
			return errorsmod.Wrapf(ErrInvalidBundle, "block proofs not sorted at height %d", b.BlockProofs[i].Height)
		}
	}
	if b.IndexBlobProofData != nil {
		if !b.IndexBlobProofData.Sorted() {
			return errorsmod.Wrap(ErrInvalidBundle, "share proofs not sorted")
		}
		if b.ChallengedBlob == b.IndexBlob {
			return errorsmod.Wrap(ErrInvalidBundle, "index blob data set while the index blob is challenged")
		}
	}
	return nil
}

// Marshal encodes the bundle.
func (b *Bundle) Marshal() ([]byte, error) {
	if err := b.ValidateBasic(); err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(b)
}

// UnmarshalBundle decodes an encoded bundle.
func UnmarshalBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := rlp.DecodeBytes(data, &b); err != nil {
		return nil, errorsmod.Wrap(ErrInvalidBundle, err.Error())
	}
	if err := b.ValidateBasic(); err != nil {
		return nil, err
	}
	return &b, nil
}
