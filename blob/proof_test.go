package blob_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/square"
	"github.com/celestiaorg/celestia-da-challenge/testing/fixtures"
)

func TestProofDataOrdering(t *testing.T) {
	data := blob.NewProofData(blob.AppVersionV2)
	for _, index := range []uint32{5, 1, 3, 1} {
		data.Set(index, square.ShareProof{NamespaceVersion: index})
	}
	require.Len(t, data.Proofs, 3)
	require.True(t, data.Sorted())

	proof, ok := data.Get(3)
	require.True(t, ok)
	require.Equal(t, uint32(3), proof.NamespaceVersion)
	_, ok = data.Get(4)
	require.False(t, ok)

	data.Proofs[0], data.Proofs[1] = data.Proofs[1], data.Proofs[0]
	require.False(t, data.Sorted())
}

func TestVerifyShareInclusion(t *testing.T) {
	shares, err := fixtures.IndexShares(fixtures.Namespace("index"), testIndex())
	require.NoError(t, err)
	block, err := fixtures.NewBlock(7, 4, shares)
	require.NoError(t, err)

	span := blob.SpanSequence{Height: 7, Start: 0, Size: uint32(len(shares))}
	data, err := block.ProofData(span, blob.AppVersionV2)
	require.NoError(t, err)
	require.NoError(t, blob.VerifyShareInclusion(span, block.DataRoot[:], *data))

	raw, err := data.SpanShares(span)
	require.NoError(t, err)
	index, err := blob.ReconstructIndex(raw, data.AppVersion)
	require.NoError(t, err)
	require.Equal(t, testIndex(), index)

	longer := blob.SpanSequence{Height: 7, Start: 0, Size: span.Size + 1}
	require.ErrorIs(t, blob.VerifyShareInclusion(longer, block.DataRoot[:], *data), blob.ErrMissingShareProof)
	_, err = data.SpanShares(longer)
	require.ErrorIs(t, err, blob.ErrMissingShareProof)

	other, err := fixtures.NewBlock(8, 4, shares)
	require.NoError(t, err)
	require.ErrorIs(t, blob.VerifyShareInclusion(span, other.DataRoot[:], *data), square.ErrShareProof)

	// the parity share at row 0, column 4 would claim ODS index 4
	parity, err := block.EDSShareProof(0, 4)
	require.NoError(t, err)
	forged := blob.NewProofData(blob.AppVersionV2)
	forged.Set(4, parity)
	fifth := blob.SpanSequence{Height: 7, Start: 4, Size: 1}
	require.ErrorIs(t, blob.VerifyShareInclusion(fifth, block.DataRoot[:], *forged), square.ErrParityShare)
}
