package host_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/blobstream"
)

func TestAssemble(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, blobstream.ImplementationR0)

	for _, tc := range []struct {
		name       string
		index      func(e *env) blob.SpanSequence
		challenged blob.SpanSequence
		heights    []uint64
		withData   bool
	}{
		{
			name:    "index challenged",
			heights: []uint64{101},
		},
		{
			name:       "listed blob",
			challenged: listedSpans[0],
			heights:    []uint64{101, 102},
			withData:   true,
		},
		{
			name:       "listed blob outside its square",
			challenged: listedSpans[1],
			heights:    []uint64{101, 103},
			withData:   true,
		},
		{
			name:       "listed blob not attested yet",
			challenged: listedSpans[2],
			heights:    []uint64{101},
			withData:   true,
		},
		{
			name:       "blob not listed",
			challenged: blob.SpanSequence{Height: 102, Start: 1, Size: 3},
			heights:    []uint64{101},
			withData:   true,
		},
		{
			name:       "unreadable index",
			index:      func(e *env) blob.SpanSequence { return e.garbageBlob },
			challenged: listedSpans[0],
			heights:    []uint64{101},
			withData:   true,
		},
		{
			name:       "index below the first attestation",
			index:      func(*env) blob.SpanSequence { return blob.SpanSequence{Height: 99, Start: 0, Size: 1} },
			challenged: listedSpans[0],
			heights:    []uint64{},
		},
		{
			name:       "index not attested yet",
			index:      func(*env) blob.SpanSequence { return listedSpans[2] },
			challenged: listedSpans[2],
			heights:    []uint64{},
		},
		{
			name:       "index listing a blob, not attested yet",
			index:      func(*env) blob.SpanSequence { return listedSpans[2] },
			challenged: listedSpans[0],
			heights:    []uint64{},
		},
		{
			name:       "index above the DA head",
			index:      func(*env) blob.SpanSequence { return blob.SpanSequence{Height: 200, Start: 0, Size: 1} },
			challenged: listedSpans[0],
			heights:    []uint64{},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			index := e.indexBlob
			if tc.index != nil {
				index = tc.index(e)
			}
			challenged := tc.challenged
			if challenged == (blob.SpanSequence{}) {
				challenged = index
			}

			bundle, err := e.assembler.Assemble(ctx, index, challenged)
			require.NoError(t, err)
			require.Equal(t, index, bundle.IndexBlob)
			require.Equal(t, challenged, bundle.ChallengedBlob)
			require.Equal(t, tc.heights, blockHeights(bundle))
			require.Equal(t, tc.withData, bundle.IndexBlobProofData != nil)

			first := bundle.FirstAttestation
			require.Equal(t, uint64(100), first.Height)
			require.Equal(t, uint64(1), first.Nonce)
			require.Zero(t, first.Proof.Index)
			require.NoError(t, blobstream.VerifyAttestation(e.bs, first))

			for _, proof := range bundle.BlockProofs {
				require.NoError(t, blobstream.VerifyAttestationAndRowProof(e.bs, proof.Proof))
			}
			if tc.withData {
				require.Equal(t, uint64(appVersion), bundle.IndexBlobProofData.AppVersion)
				indexProof, ok := bundle.BlockProof(index.Height)
				require.True(t, ok)
				require.NoError(t, blob.VerifyShareInclusion(index, indexProof.Attestation.DataRoot[:], *bundle.IndexBlobProofData))
			}
		})
	}
}

func TestAssembleFetchesEveryIndexShare(t *testing.T) {
	e := newEnv(t, blobstream.ImplementationSP1)
	e.assembler.MaxConcurrentFetches = 2

	_, err := e.assembler.Assemble(context.Background(), e.indexBlob, listedSpans[0])
	require.NoError(t, err)
	require.Equal(t, int(e.indexBlob.Size), e.node.Calls("share.GetRange"))
	// the first attestation, the index block and the listed block
	require.Equal(t, 3, e.node.Calls("blobstream.GetDataRootTupleInclusionProof"))
}

func TestAssembleRejectsIndexOutsideItsSquare(t *testing.T) {
	e := newEnv(t, blobstream.ImplementationR0)
	index := blob.SpanSequence{Height: 101, Start: 14, Size: 4}

	_, err := e.assembler.Assemble(context.Background(), index, listedSpans[0])
	require.ErrorIs(t, err, blob.ErrShareIndexOutOfBounds)
	require.Zero(t, e.node.Calls("share.GetRange"))

	// challenging the index itself is answered from its block proof
	bundle, err := e.assembler.Assemble(context.Background(), index, index)
	require.NoError(t, err)
	require.Equal(t, []uint64{101}, blockHeights(bundle))
}

func TestAssembleUsesCachedCommitments(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, blobstream.ImplementationR0)

	_, err := e.assembler.Assemble(ctx, e.indexBlob, listedSpans[0])
	require.NoError(t, err)
	require.Equal(t, 2, e.cache.Len())

	_, err = e.assembler.Assemble(ctx, e.indexBlob, listedSpans[1])
	require.NoError(t, err)
	require.Equal(t, 2, e.cache.Len())
}
