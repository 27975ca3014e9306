package square

import (
	"math"

	errorsmod "cosmossdk.io/errors"
)

// EDSToODS converts a row or column index of the extended data square into
// the matching index of the original data square. Only valid for data shares:
// parity indexes are not converted properly.
func EDSToODS(index, edsWidth uint32) uint32 {
	odsWidth := edsWidth / 2
	if index < odsWidth {
		return index
	}
	return index / 2
}

// EDSShareToODS converts a linear share index of the extended data square,
// as returned by the DA node for a posted blob, into a linear index of the
// original data square.
func EDSShareToODS(index uint64, edsWidth uint32) (uint32, error) {
	if edsWidth == 0 || edsWidth%2 != 0 {
		return 0, errorsmod.Wrapf(ErrInvalidSquareWidth, "extended width %d", edsWidth)
	}
	odsWidth := uint64(edsWidth / 2)

	row := index / uint64(edsWidth)
	col := index % uint64(edsWidth)
	if row >= odsWidth || col >= odsWidth {
		return 0, errorsmod.Wrapf(ErrParityShare, "share %d at row %d, column %d", index, row, col)
	}

	odsRow := uint64(EDSToODS(uint32(row), edsWidth))
	odsCol := uint64(EDSToODS(uint32(col), edsWidth))
	return uint32(odsRow*odsWidth + odsCol), nil
}

// ODSWidth derives the width of the original data square from a row
// inclusion proof. The data root commits to the row and column roots of the
// extended square, so the proof covers 4x the original width.
func ODSWidth(rowProof MerkleProof) (uint32, error) {
	if rowProof.Total%4 != 0 {
		return 0, errorsmod.Wrapf(ErrInvalidNumberOfLeaves, "total %d is not a multiple of 4", rowProof.Total)
	}
	width := rowProof.Total / 4
	if width > math.MaxUint32 {
		return 0, errorsmod.Wrapf(ErrProofOverflow, "square width %d", width)
	}
	return uint32(width), nil
}

// ODSSize returns the number of shares in an original data square of the
// given width.
func ODSSize(width uint32) uint64 {
	return uint64(width) * uint64(width)
}
