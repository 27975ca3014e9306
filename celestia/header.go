package celestia

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/celestiaorg/celestia-openrpc/types/header"
	"github.com/cometbft/cometbft/crypto/merkle"

	"github.com/celestiaorg/celestia-da-challenge/square"
)

// ExtendedHeader is a DA block header with the views of its data square the
// challenger reads.
type ExtendedHeader struct {
	*header.ExtendedHeader
}

func (h *ExtendedHeader) AppVersion() uint64 {
	return h.Version.App
}

// SquareWidth returns the width of the extended data square.
func (h *ExtendedHeader) SquareWidth() uint32 {
	if h.DAH == nil {
		return 0
	}
	return uint32(len(h.DAH.RowRoots))
}

// DataRoot returns the data root committed to by the header.
func (h *ExtendedHeader) DataRoot() ([32]byte, error) {
	var root [32]byte
	if len(h.DataHash) != len(root) {
		return root, errorsmod.Wrapf(ErrInvalidHeader, "data hash of %d bytes at height %d", len(h.DataHash), h.Height())
	}
	copy(root[:], h.DataHash)
	return root, nil
}

// RowProof proves the inclusion of a row root under the data root.
func (h *ExtendedHeader) RowProof(row uint32) (square.MerkleProof, []byte, error) {
	if h.DAH == nil || len(h.DAH.RowRoots) == 0 || len(h.DAH.RowRoots) != len(h.DAH.ColumnRoots) {
		return square.MerkleProof{}, nil, errorsmod.Wrapf(ErrInvalidHeader, "missing or uneven axis roots at height %d", h.Height())
	}
	if int(row) >= len(h.DAH.RowRoots) {
		return square.MerkleProof{}, nil, errorsmod.Wrapf(ErrInvalidHeader, "row %d of %d", row, len(h.DAH.RowRoots))
	}

	leaves := append(append([][]byte{}, h.DAH.RowRoots...), h.DAH.ColumnRoots...)
	root, proofs := merkle.ProofsFromByteSlices(leaves)
	dataRoot, err := h.DataRoot()
	if err != nil {
		return square.MerkleProof{}, nil, err
	}
	if string(root) != string(dataRoot[:]) {
		return square.MerkleProof{}, nil, errorsmod.Wrapf(ErrInvalidHeader, "roots do not hash to the data root at height %d", h.Height())
	}

	proof, err := square.MerkleProofFromComet(proofs[row])
	if err != nil {
		return square.MerkleProof{}, nil, err
	}
	return proof, h.DAH.RowRoots[row], nil
}

// merkleProof converts a binary Merkle proof returned by the node.
func merkleProof(total, index int64, leafHash []byte, aunts [][]byte) (square.MerkleProof, error) {
	if total < 0 || index < 0 || index >= total {
		return square.MerkleProof{}, errorsmod.Wrapf(ErrInvalidProof, "index %d of %d", index, total)
	}
	return square.MerkleProof{
		Total:    uint64(total),
		Index:    uint64(index),
		LeafHash: leafHash,
		Aunts:    aunts,
	}, nil
}
