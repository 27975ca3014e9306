package challenge_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/challenge"
	"github.com/celestiaorg/celestia-da-challenge/evmstate"
	"github.com/celestiaorg/celestia-da-challenge/testing/fixtures"
)

var bridgeAddress = common.HexToAddress("0x7Cf3876F681Dbb6EdA8f6FfC45D66B996Df08fAe")

// snapshotFor proves the bridge slots the bundle needs, the way the host
// does before handing the bundle to the executor.
func snapshotFor(t *testing.T, c *testChain, b *challenge.Bundle, implementation blobstream.Implementation) *evmstate.Snapshot {
	t.Helper()
	state, err := fixtures.BridgeState(bridgeAddress, c.bs, implementation, 9)
	require.NoError(t, err)
	return snapshotAt(t, state, b, implementation)
}

func snapshotAt(t *testing.T, state *fixtures.State, b *challenge.Bundle, implementation blobstream.Implementation) *evmstate.Snapshot {
	t.Helper()
	layout, err := blobstream.Layout(implementation)
	require.NoError(t, err)
	storage, err := state.StorageProofs(layout.Slots(b.AttestationNonces()...)...)
	require.NoError(t, err)

	snapshot, err := evmstate.NewSnapshot(11155111, state.Header, bridgeAddress, uint8(implementation), state.AccountProof, storage)
	require.NoError(t, err)
	return snapshot
}

func TestExecuteProvenFraud(t *testing.T) {
	for _, implementation := range []blobstream.Implementation{blobstream.ImplementationR0, blobstream.ImplementationSP1} {
		t.Run(implementation.String(), func(t *testing.T) {
			c := newTestChain(t)
			b := c.bundle(t, c.indexBlob, listedSpans[2], true, 101, 103)
			snapshot := snapshotFor(t, c, b, implementation)

			encoded, err := b.Marshal()
			require.NoError(t, err)
			journal, verdict, err := challenge.Execute(snapshot, encoded)
			require.NoError(t, err)
			require.True(t, verdict.Proven)

			header, err := snapshot.DecodeHeader()
			require.NoError(t, err)
			require.Equal(t, header.Hash(), journal.Commitment.Digest)
			require.Equal(t, bridgeAddress, journal.BlobstreamAddress)
			require.Equal(t, c.indexBlob, journal.IndexBlob)
			require.Equal(t, verdict.IndexBlobHash, journal.IndexBlobHash)
			require.NotZero(t, journal.IndexBlobHash)

			raw, err := journal.Encode()
			require.NoError(t, err)
			decoded, err := challenge.DecodeJournal(raw)
			require.NoError(t, err)
			require.Equal(t, journal, decoded)
		})
	}
}

func TestExecuteAvailableBlob(t *testing.T) {
	c := newTestChain(t)
	b := c.bundle(t, c.indexBlob, listedSpans[0], true, 101, 102)
	snapshot := snapshotFor(t, c, b, blobstream.ImplementationR0)

	encoded, err := b.Marshal()
	require.NoError(t, err)
	journal, verdict, err := challenge.Execute(snapshot, encoded)
	require.ErrorIs(t, err, challenge.ErrBlobAvailable)
	require.Nil(t, journal)
	require.False(t, verdict.Proven)
	require.False(t, challenge.IsInputError(err))
}

func TestExecuteInputError(t *testing.T) {
	c := newTestChain(t)
	b := c.bundle(t, c.indexBlob, listedSpans[0], false, 101, 102)
	snapshot := snapshotFor(t, c, b, blobstream.ImplementationR0)

	encoded, err := b.Marshal()
	require.NoError(t, err)
	journal, _, err := challenge.Execute(snapshot, encoded)
	require.ErrorIs(t, err, challenge.ErrMissingIndexBlobData)
	require.True(t, challenge.IsInputError(err))
	require.Nil(t, journal)
}

func TestExecuteUnprovenState(t *testing.T) {
	c := newTestChain(t)
	b := c.bundle(t, c.indexBlob, c.indexBlob, false, 101)
	snapshot := snapshotFor(t, c, b, blobstream.ImplementationR0)

	other := c.bundle(t, c.indexBlob, listedSpans[2], true, 101, 103)
	encoded, err := other.Marshal()
	require.NoError(t, err)
	_, _, err = challenge.Execute(snapshot, encoded)
	require.ErrorIs(t, err, evmstate.ErrUnprovenSlot)
	require.True(t, challenge.IsInputError(err))
}

func TestExecuteRejectsInvalidSnapshot(t *testing.T) {
	c := newTestChain(t)
	b := c.bundle(t, c.indexBlob, listedSpans[2], true, 101, 103)
	snapshot := snapshotFor(t, c, b, blobstream.ImplementationR0)
	snapshot.Bridge = common.HexToAddress("0x01")

	encoded, err := b.Marshal()
	require.NoError(t, err)
	_, _, err = challenge.Execute(snapshot, encoded)
	require.Error(t, err)

	snapshot = snapshotFor(t, c, b, blobstream.ImplementationR0)
	snapshot.Implementation = 0
	_, _, err = challenge.Execute(snapshot, encoded)
	require.ErrorIs(t, err, evmstate.ErrInvalidCommitment)

	snapshot = snapshotFor(t, c, b, blobstream.ImplementationR0)
	snapshot.Implementation = 0
	snapshot.Commitment.ConfigID = evmstate.ConfigID(snapshot.ChainID, 0)
	_, _, err = challenge.Execute(snapshot, encoded)
	require.ErrorIs(t, err, blobstream.ErrUnknownImplementation)
}

func TestExecuteRejectsForgedBridgeState(t *testing.T) {
	c := newTestChain(t)
	b := c.bundle(t, c.indexBlob, listedSpans[0], true, 101, 102)
	encoded, err := b.Marshal()
	require.NoError(t, err)
	layout, err := blobstream.Layout(blobstream.ImplementationR0)
	require.NoError(t, err)

	_, _, err = challenge.Execute(snapshotFor(t, c, b, blobstream.ImplementationR0), encoded)
	require.ErrorIs(t, err, challenge.ErrBlobAvailable)

	// a proof of a lower latest height from another state
	forged := &fixtures.Blobstream{Batches: c.bs.Batches, Latest: 50}
	state, err := fixtures.BridgeState(bridgeAddress, forged, blobstream.ImplementationR0, 9)
	require.NoError(t, err)
	forgedProof, err := state.StorageProof(layout.LatestHeight)
	require.NoError(t, err)

	snapshot := snapshotFor(t, c, b, blobstream.ImplementationR0)
	for i := range snapshot.StorageProofs {
		if snapshot.StorageProofs[i].Slot == layout.LatestHeight {
			snapshot.StorageProofs[i].Proof = forgedProof
		}
	}
	journal, verdict, err := challenge.Execute(snapshot, encoded)
	require.ErrorIs(t, err, evmstate.ErrInvalidStorageProof)
	require.False(t, verdict.Proven)
	require.Nil(t, journal)

	// the whole forged state does not match the committed header
	snapshot = snapshotAt(t, state, b, blobstream.ImplementationR0)
	snapshot.Header = snapshotFor(t, c, b, blobstream.ImplementationR0).Header
	_, _, err = challenge.Execute(snapshot, encoded)
	require.ErrorIs(t, err, evmstate.ErrInvalidCommitment)

	// a dropped slot is unproven, not zero
	snapshot = snapshotFor(t, c, b, blobstream.ImplementationR0)
	snapshot.StorageProofs = snapshot.StorageProofs[1:]
	_, verdict, err = challenge.Execute(snapshot, encoded)
	require.ErrorIs(t, err, evmstate.ErrUnprovenSlot)
	require.True(t, challenge.IsInputError(err))
	require.False(t, verdict.Proven)
}
