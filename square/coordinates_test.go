package square_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-da-challenge/square"
)

func TestEDSToODS(t *testing.T) {
	for _, tc := range []struct {
		index, edsWidth, want uint32
	}{
		{0, 8, 0},
		{3, 8, 3},
		{4, 8, 2},
		{7, 8, 3},
		{0, 2, 0},
	} {
		require.Equal(t, tc.want, square.EDSToODS(tc.index, tc.edsWidth), "index %d width %d", tc.index, tc.edsWidth)
	}
}

func TestEDSShareToODS(t *testing.T) {
	// row 1, column 2 of an 8 wide extended square is row 1, column 2 of
	// the 4 wide original square
	index, err := square.EDSShareToODS(1*8+2, 8)
	require.NoError(t, err)
	require.Equal(t, uint32(1*4+2), index)

	index, err = square.EDSShareToODS(0, 8)
	require.NoError(t, err)
	require.Zero(t, index)

	index, err = square.EDSShareToODS(3*8+3, 8)
	require.NoError(t, err)
	require.Equal(t, uint32(15), index)

	_, err = square.EDSShareToODS(1*8+5, 8)
	require.ErrorIs(t, err, square.ErrParityShare)
	_, err = square.EDSShareToODS(5*8+1, 8)
	require.ErrorIs(t, err, square.ErrParityShare)
	_, err = square.EDSShareToODS(1, 7)
	require.ErrorIs(t, err, square.ErrInvalidSquareWidth)
	_, err = square.EDSShareToODS(1, 0)
	require.ErrorIs(t, err, square.ErrInvalidSquareWidth)
}

func TestODSWidth(t *testing.T) {
	width, err := square.ODSWidth(square.MerkleProof{Total: 16})
	require.NoError(t, err)
	require.Equal(t, uint32(4), width)
	require.Equal(t, uint64(16), square.ODSSize(width))

	_, err = square.ODSWidth(square.MerkleProof{Total: 18})
	require.ErrorIs(t, err, square.ErrInvalidNumberOfLeaves)

	_, err = square.ODSWidth(square.MerkleProof{Total: 4 << 32})
	require.ErrorIs(t, err, square.ErrProofOverflow)

	require.Equal(t, uint64(math.MaxUint32)*math.MaxUint32, square.ODSSize(math.MaxUint32))
}
