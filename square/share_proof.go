package square

import (
	"crypto/sha256"
	"math"

	errorsmod "cosmossdk.io/errors"
	"github.com/celestiaorg/go-square/v2/share"
	"github.com/celestiaorg/nmt"
)

// NMTProof proves the inclusion of shares [Start, End) in one row of the
// extended data square.
type NMTProof struct {
	Start uint32
	End   uint32
	Nodes [][]byte
}

// RowProof proves that a set of row roots are leaves of a data root.
type RowProof struct {
	RowRoots [][]byte
	Proofs   []MerkleProof
	StartRow uint32
	EndRow   uint32
}

// Validate checks that every row root is included under root.
func (rp RowProof) Validate(root []byte) error {
	if rp.EndRow < rp.StartRow {
		return errorsmod.Wrapf(ErrShareProof, "end row %d before start row %d", rp.EndRow, rp.StartRow)
	}
	if uint64(rp.EndRow-rp.StartRow)+1 != uint64(len(rp.RowRoots)) {
		return errorsmod.Wrapf(ErrShareProof, "rows [%d, %d] do not match %d row roots", rp.StartRow, rp.EndRow, len(rp.RowRoots))
	}
	if len(rp.Proofs) != len(rp.RowRoots) {
		return errorsmod.Wrapf(ErrShareProof, "%d proofs for %d row roots", len(rp.Proofs), len(rp.RowRoots))
	}
	for i, proof := range rp.Proofs {
		if err := proof.Verify(root, rp.RowRoots[i]); err != nil {
			return errorsmod.Wrapf(ErrShareProof, "row root %d: %s", i, err)
		}
	}
	return nil
}

// ShareProof proves the inclusion of a range of shares under a data root:
// each NMT proof ties a slice of Data to a row root, and the row proof ties
// the row roots to the data root.
type ShareProof struct {
	Data             [][]byte
	ShareProofs      []NMTProof
	NamespaceID      []byte
	NamespaceVersion uint32
	RowProof         RowProof
}

// Validate verifies the proof against the data root.
func (sp ShareProof) Validate(dataRoot []byte) error {
	if len(sp.ShareProofs) == 0 {
		return errorsmod.Wrap(ErrShareProof, "no share proofs")
	}
	if len(sp.ShareProofs) != len(sp.RowProof.RowRoots) {
		return errorsmod.Wrapf(ErrShareProof, "%d share proofs for %d rows", len(sp.ShareProofs), len(sp.RowProof.RowRoots))
	}

	var total uint64
	for _, proof := range sp.ShareProofs {
		if proof.End <= proof.Start {
			return errorsmod.Wrapf(ErrShareProof, "empty range [%d, %d)", proof.Start, proof.End)
		}
		total += uint64(proof.End - proof.Start)
	}
	if total != uint64(len(sp.Data)) {
		return errorsmod.Wrapf(ErrShareProof, "proofs cover %d shares, got %d", total, len(sp.Data))
	}

	if err := sp.RowProof.Validate(dataRoot); err != nil {
		return err
	}
	return sp.verifyShares()
}

func (sp ShareProof) verifyShares() error {
	if sp.NamespaceVersion > math.MaxUint8 {
		return errorsmod.Wrapf(ErrShareProof, "namespace version %d", sp.NamespaceVersion)
	}
	if len(sp.NamespaceID) != share.NamespaceIDSize {
		return errorsmod.Wrapf(ErrShareProof, "namespace id of %d bytes", len(sp.NamespaceID))
	}
	namespace := append([]byte{uint8(sp.NamespaceVersion)}, sp.NamespaceID...)

	cursor := 0
	for i, proof := range sp.ShareProofs {
		used := int(proof.End - proof.Start)
		inclusion := nmt.NewInclusionProof(int(proof.Start), int(proof.End), proof.Nodes, true)
		if !inclusion.VerifyInclusion(sha256.New(), namespace, sp.Data[cursor:cursor+used], sp.RowProof.RowRoots[i]) {
			return errorsmod.Wrapf(ErrShareProof, "shares [%d, %d) of row %d", proof.Start, proof.End, i)
		}
		cursor += used
	}
	return nil
}

// StartIndexODS returns the index in the original data square of the first
// share covered by the proof. Every proven row and share must lie in the
// original data quadrant of the extended square (ErrParityShare).
func (sp ShareProof) StartIndexODS() (uint32, error) {
	if len(sp.RowProof.Proofs) == 0 || len(sp.ShareProofs) == 0 {
		return 0, errorsmod.Wrap(ErrShareProof, "missing row or share proof")
	}
	rowProof := sp.RowProof.Proofs[0]
	width, err := ODSWidth(rowProof)
	if err != nil {
		return 0, err
	}
	for _, proof := range sp.RowProof.Proofs {
		if proof.Index >= uint64(width) {
			return 0, errorsmod.Wrapf(ErrParityShare, "row %d of width %d", proof.Index, width)
		}
	}
	for _, proof := range sp.ShareProofs {
		if proof.Start >= width || proof.End > width {
			return 0, errorsmod.Wrapf(ErrParityShare, "shares [%d, %d) of width %d", proof.Start, proof.End, width)
		}
	}

	index := rowProof.Index*uint64(width) + uint64(sp.ShareProofs[0].Start)
	if index > math.MaxUint32 {
		return 0, errorsmod.Wrapf(ErrProofOverflow, "row %d of width %d", rowProof.Index, width)
	}
	return uint32(index), nil
}
