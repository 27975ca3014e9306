package blob_test

import (
	"bytes"
	"testing"

	errorsmod "cosmossdk.io/errors"
	"github.com/celestiaorg/go-square/v2/share"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/testing/fixtures"
)

func testIndex() blob.Index {
	return blob.NewIndex(
		blob.SpanSequence{Height: 100, Start: 0, Size: 4},
		blob.SpanSequence{Height: 101, Start: 8, Size: 3},
		blob.SpanSequence{Height: 101, Start: 11, Size: 1},
	)
}

func TestIndexRoundTrip(t *testing.T) {
	index := testIndex()
	payload, err := index.Marshal()
	require.NoError(t, err)

	decoded, err := blob.UnmarshalIndex(payload)
	require.NoError(t, err)
	require.Equal(t, index, decoded)

	require.True(t, decoded.Contains(blob.SpanSequence{Height: 101, Start: 8, Size: 3}))
	require.False(t, decoded.Contains(blob.SpanSequence{Height: 101, Start: 8, Size: 2}))
	require.False(t, decoded.Contains(blob.SpanSequence{Height: 102, Start: 8, Size: 3}))
}

func TestReconstructIndex(t *testing.T) {
	index := testIndex()
	shares, err := fixtures.IndexShares(fixtures.Namespace("index"), index)
	require.NoError(t, err)

	for _, version := range []uint64{blob.AppVersionV1, blob.AppVersionV2, blob.AppVersionV3, blob.AppVersionV4} {
		reconstructed, err := blob.ReconstructIndex(share.ToBytes(shares), version)
		require.NoError(t, err)
		require.Equal(t, index, reconstructed)
	}
}

func TestReconstructLargeIndex(t *testing.T) {
	spans := make([]blob.SpanSequence, 200)
	for i := range spans {
		spans[i] = blob.SpanSequence{Height: uint64(1_000_000 + i), Start: uint32(i * 3), Size: uint32(i + 1)}
	}
	index := blob.NewIndex(spans...)
	shares, err := fixtures.IndexShares(fixtures.Namespace("index"), index)
	require.NoError(t, err)
	require.Greater(t, len(shares), 1)

	reconstructed, err := blob.ReconstructIndex(share.ToBytes(shares), blob.AppVersionV2)
	require.NoError(t, err)
	require.Equal(t, index, reconstructed)

	// dropping the last share truncates the blob
	_, err = blob.ReconstructIndex(share.ToBytes(shares[:len(shares)-1]), blob.AppVersionV2)
	require.True(t, errorsmod.IsOf(err, blob.ErrIndexReconstruction, blob.ErrIndexDeserialization), err)

	// a span starting in the middle of the blob
	_, err = blob.ReconstructIndex(share.ToBytes(shares[1:]), blob.AppVersionV2)
	require.ErrorIs(t, err, blob.ErrIndexReconstruction)
}

func TestReconstructIndexFailures(t *testing.T) {
	_, err := blob.ReconstructIndex(share.ToBytes(share.TailPaddingShares(2)), blob.AppVersionV2)
	require.ErrorIs(t, err, blob.ErrIndexReconstruction)

	_, err = blob.ReconstructIndex([][]byte{bytes.Repeat([]byte{1}, 100)}, blob.AppVersionV2)
	require.ErrorIs(t, err, blob.ErrIndexReconstruction)

	garbage, err := fixtures.BlobShares(fixtures.Namespace("index"), []byte("not an index"))
	require.NoError(t, err)
	_, err = blob.ReconstructIndex(share.ToBytes(garbage), blob.AppVersionV2)
	require.ErrorIs(t, err, blob.ErrIndexDeserialization)

	first, err := fixtures.BlobShares(fixtures.Namespace("index"), []byte("one"))
	require.NoError(t, err)
	second, err := fixtures.BlobShares(fixtures.Namespace("index"), []byte("two"))
	require.NoError(t, err)
	_, err = blob.ReconstructBlob(share.ToBytes(append(first, second...)), blob.AppVersionV2)
	require.ErrorIs(t, err, blob.ErrIndexReconstruction)

	_, err = blob.ReconstructIndex(share.ToBytes(first), 0)
	require.ErrorIs(t, err, blob.ErrUnsupportedAppVersion)
	_, err = blob.ReconstructIndex(share.ToBytes(first), 5)
	require.ErrorIs(t, err, blob.ErrUnsupportedAppVersion)
}
