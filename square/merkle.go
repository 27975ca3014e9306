package square

import (
	"math"

	errorsmod "cosmossdk.io/errors"
	"github.com/cometbft/cometbft/crypto/merkle"
	"github.com/cometbft/cometbft/crypto/tmhash"
)

// MerkleProof is an RFC-6962 binary Merkle inclusion proof, the format used
// by the data root for row roots and by Blobstream for data root tuples.
type MerkleProof struct {
	Total    uint64
	Index    uint64
	LeafHash []byte
	Aunts    [][]byte
}

// MerkleProofFromComet converts a cometbft proof.
func MerkleProofFromComet(p *merkle.Proof) (MerkleProof, error) {
	if p == nil {
		return MerkleProof{}, errorsmod.Wrap(ErrMerkleProof, "nil proof")
	}
	if p.Total < 0 || p.Index < 0 {
		return MerkleProof{}, errorsmod.Wrapf(ErrProofOverflow, "total %d, index %d", p.Total, p.Index)
	}
	return MerkleProof{
		Total:    uint64(p.Total),
		Index:    uint64(p.Index),
		LeafHash: p.LeafHash,
		Aunts:    p.Aunts,
	}, nil
}

// ToComet converts the proof into a cometbft proof.
func (p MerkleProof) ToComet() (*merkle.Proof, error) {
	if p.Total > math.MaxInt64 || p.Index > math.MaxInt64 {
		return nil, errorsmod.Wrapf(ErrProofOverflow, "total %d, index %d", p.Total, p.Index)
	}
	return &merkle.Proof{
		Total:    int64(p.Total),
		Index:    int64(p.Index),
		LeafHash: p.LeafHash,
		Aunts:    p.Aunts,
	}, nil
}

// Verify checks that leaf is included under root.
func (p MerkleProof) Verify(root, leaf []byte) error {
	proof, err := p.ToComet()
	if err != nil {
		return err
	}
	if err := proof.Verify(root, leaf); err != nil {
		return errorsmod.Wrap(ErrMerkleProof, err.Error())
	}
	return nil
}

// LeafHash returns the RFC-6962 hash of a leaf.
func LeafHash(leaf []byte) []byte {
	return tmhash.Sum(append([]byte{0}, leaf...))
}
