package challenge_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/challenge"
	"github.com/celestiaorg/celestia-da-challenge/evmstate"
)

func TestBundleRoundTrip(t *testing.T) {
	c := newTestChain(t)

	for name, b := range map[string]*challenge.Bundle{
		"index challenged": c.bundle(t, c.indexBlob, c.indexBlob, false, 101),
		"listed blob":      c.bundle(t, c.indexBlob, listedSpans[0], true, 101, 102),
		"no block proofs":  c.bundle(t, c.indexBlob, c.indexBlob, false),
	} {
		t.Run(name, func(t *testing.T) {
			encoded, err := b.Marshal()
			require.NoError(t, err)

			decoded, err := challenge.UnmarshalBundle(encoded)
			require.NoError(t, err)
			require.Equal(t, b.IndexBlob, decoded.IndexBlob)
			require.Equal(t, b.ChallengedBlob, decoded.ChallengedBlob)
			require.Equal(t, b.IndexBlobProofData == nil, decoded.IndexBlobProofData == nil)
			require.Len(t, decoded.BlockProofs, len(b.BlockProofs))

			reencoded, err := decoded.Marshal()
			require.NoError(t, err)
			require.Equal(t, encoded, reencoded)

			// the decoded bundle reaches the same outcome
			require.Equal(t, challenge.Check(c.bs, b) == nil, challenge.Check(c.bs, decoded) == nil)
		})
	}
}

func TestBundleBlockProofsSorted(t *testing.T) {
	c := newTestChain(t)
	b := c.bundle(t, c.indexBlob, listedSpans[0], true, 102, 101)
	require.Equal(t, uint64(101), b.BlockProofs[0].Height)
	require.Equal(t, uint64(102), b.BlockProofs[1].Height)

	_, ok := b.BlockProof(103)
	require.False(t, ok)

	b.BlockProofs[0], b.BlockProofs[1] = b.BlockProofs[1], b.BlockProofs[0]
	_, err := b.Marshal()
	require.ErrorIs(t, err, challenge.ErrInvalidBundle)
	require.ErrorIs(t, challenge.Check(c.bs, b), challenge.ErrInvalidBundle)
}

func TestBundleRejectsIndexDataWhenIndexChallenged(t *testing.T) {
	c := newTestChain(t)
	b := c.bundle(t, c.indexBlob, c.indexBlob, true, 101)
	require.ErrorIs(t, b.ValidateBasic(), challenge.ErrInvalidBundle)
}

func TestUnmarshalBundleRejectsGarbage(t *testing.T) {
	_, err := challenge.UnmarshalBundle([]byte{0x01, 0x02, 0x03})
	require.ErrorIs(t, err, challenge.ErrInvalidBundle)
	require.True(t, challenge.IsInputError(err))
}

func TestJournalRoundTrip(t *testing.T) {
	journal := challenge.Journal{
		Commitment: evmstate.Commitment{
			ID:       common.Big256,
			Digest:   common.HexToHash("0xaa"),
			ConfigID: evmstate.ConfigID(11155111, 1),
		},
		BlobstreamAddress: common.HexToAddress("0xF0c6429ebAB2e7DC6e05DaFB61128bE21f13cb1e"),
		IndexBlob:         blob.SpanSequence{Height: 1_600_000, Start: 42, Size: 7},
		IndexBlobHash:     common.HexToHash("0xbb"),
	}

	encoded, err := journal.Encode()
	require.NoError(t, err)
	// every field is static, one word each
	require.Len(t, encoded, 32*8)

	decoded, err := challenge.DecodeJournal(encoded)
	require.NoError(t, err)
	require.Equal(t, &journal, decoded)

	_, err = challenge.DecodeJournal(encoded[:64])
	require.ErrorIs(t, err, challenge.ErrInvalidJournal)

	_, err = challenge.Journal{}.Encode()
	require.ErrorIs(t, err, challenge.ErrInvalidJournal)
}
