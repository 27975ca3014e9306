package host_test

import (
	"context"
	"crypto/sha256"
	"errors"
	"math/big"
	"net"
	"syscall"
	"testing"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/challenge"
	"github.com/celestiaorg/celestia-da-challenge/evmstate"
	"github.com/celestiaorg/celestia-da-challenge/host"
	"github.com/celestiaorg/celestia-da-challenge/metrics"
	"github.com/celestiaorg/celestia-da-challenge/seal"
	"github.com/celestiaorg/celestia-da-challenge/testing/fixtures"
)

var imageID = [32]byte{0x1D}

// proverFunc proves by executing locally and hashing the journal.
type proverFunc func(ctx context.Context, snapshot, bundle []byte) (seal.Receipt, error)

func (f proverFunc) Prove(ctx context.Context, snapshot, bundle []byte) (seal.Receipt, error) {
	return f(ctx, snapshot, bundle)
}

func localProver(_ context.Context, encodedSnapshot, bundle []byte) (seal.Receipt, error) {
	snapshot, err := evmstate.UnmarshalSnapshot(encodedSnapshot)
	if err != nil {
		return seal.Receipt{}, err
	}
	journal, _, err := challenge.Execute(snapshot, bundle)
	if err != nil {
		return seal.Receipt{}, err
	}
	encoded, err := journal.Encode()
	if err != nil {
		return seal.Receipt{}, err
	}
	digest := sha256.Sum256(append(imageID[:], encoded...))
	return seal.Receipt{Journal: encoded, Seal: digest[:]}, nil
}

type verifierFunc func(imageID [32]byte, journal, seal []byte) error

func (f verifierFunc) Verify(imageID [32]byte, journal, seal []byte) error {
	return f(imageID, journal, seal)
}

func hashVerifier(id [32]byte, journal, sealBytes []byte) error {
	digest := sha256.Sum256(append(id[:], journal...))
	if string(digest[:]) != string(sealBytes) {
		return seal.ErrSealVerification
	}
	return nil
}

func newChallenger(t *testing.T, e *env) (*host.Challenger, *metrics.Metrics) {
	t.Helper()
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	return host.NewChallenger(e.assembler, e.preflight, m, log.NewNopLogger()), m
}

func TestPreflight(t *testing.T) {
	ctx := context.Background()
	for _, implementation := range []blobstream.Implementation{blobstream.ImplementationR0, blobstream.ImplementationSP1} {
		t.Run(implementation.String(), func(t *testing.T) {
			e := newEnv(t, implementation)
			bundle, err := e.assembler.Assemble(ctx, e.indexBlob, listedSpans[1])
			require.NoError(t, err)

			snapshot, err := e.preflight.Run(ctx, bundle)
			require.NoError(t, err)
			require.Equal(t, uint8(implementation), snapshot.Implementation)
			require.Equal(t, uint64(chainID), snapshot.ChainID)
			require.Equal(t, bridgeAddress, snapshot.Bridge)
			require.Equal(t, e.settlement.State.Header.Hash(), snapshot.Commitment.Digest)

			commitment, err := snapshot.Validate()
			require.NoError(t, err)
			require.Equal(t, big.NewInt(9), commitment.ID)

			// latest height, proof nonce and the roots of nonces 1 and 2
			require.Len(t, snapshot.StorageProofs, 4)
			// attestations are checked against proven storage only
			require.Zero(t, e.settlement.Calls("verifyAttestation"))

			encoded, err := bundle.Marshal()
			require.NoError(t, err)
			_, verdict, err := challenge.Execute(snapshot, encoded)
			require.NoError(t, err)
			require.True(t, verdict.Proven)
		})
	}
}

// flakySettlement loses every bridge call to the network.
type flakySettlement struct {
	*fixtures.Settlement
}

func (f flakySettlement) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
}

func TestPreflightNetworkFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, blobstream.ImplementationR0)
	bundle, err := e.assembler.Assemble(ctx, e.indexBlob, listedSpans[0])
	require.NoError(t, err)

	flaky := flakySettlement{e.settlement}
	preflight := host.NewPreflight(flaky, flaky, bridgeAddress, host.NumberPinner(9), log.NewNopLogger())
	_, err = preflight.Run(ctx, bundle)
	require.ErrorIs(t, err, syscall.ECONNREFUSED)
}

func TestPreflightStorageLayoutMismatch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, blobstream.ImplementationSP1)
	bundle, err := e.assembler.Assemble(ctx, e.indexBlob, listedSpans[0])
	require.NoError(t, err)

	// the bridge answers differ from its proven storage
	e.bs.Latest = 200
	_, err = e.preflight.Run(ctx, bundle)
	require.ErrorIs(t, err, host.ErrStorageLayout)
}

func TestPreflightUnknownBridge(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, blobstream.ImplementationR0)
	bundle, err := e.assembler.Assemble(ctx, e.indexBlob, e.indexBlob)
	require.NoError(t, err)

	preflight := host.NewPreflight(e.settlement, e.settlement, contractAddress, nil, log.NewNopLogger())
	_, err = preflight.Run(ctx, bundle)
	require.ErrorIs(t, err, blobstream.ErrUnknownImplementation)
}

func TestChallenge(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, blobstream.ImplementationR0)

	for _, tc := range []struct {
		name       string
		index      blob.SpanSequence
		challenged blob.SpanSequence
		reason     error
		err        error
		outcome    string
	}{
		{
			name:       "index available",
			index:      e.indexBlob,
			challenged: e.indexBlob,
			err:        challenge.ErrBlobAvailable,
			outcome:    metrics.OutcomeAvailable,
		},
		{
			name:       "listed blob available",
			index:      e.indexBlob,
			challenged: listedSpans[0],
			err:        challenge.ErrBlobAvailable,
			outcome:    metrics.OutcomeAvailable,
		},
		{
			name:       "listed blob outside its square",
			index:      e.indexBlob,
			challenged: listedSpans[1],
			reason:     blob.ErrShareIndexOutOfBounds,
			outcome:    metrics.OutcomeFraudProven,
		},
		{
			name:       "listed blob above the latest height",
			index:      e.indexBlob,
			challenged: listedSpans[2],
			reason:     challenge.ErrBlockHeightTooHigh,
			outcome:    metrics.OutcomeFraudProven,
		},
		{
			name:       "index above the latest height",
			index:      listedSpans[2],
			challenged: listedSpans[2],
			reason:     challenge.ErrBlockHeightTooHigh,
			outcome:    metrics.OutcomeFraudProven,
		},
		{
			name:       "index below the first attestation",
			index:      blob.SpanSequence{Height: 99, Start: 0, Size: 1},
			challenged: blob.SpanSequence{Height: 99, Start: 0, Size: 1},
			reason:     challenge.ErrBlockHeightTooLow,
			outcome:    metrics.OutcomeFraudProven,
		},
		{
			name:       "unreadable index",
			index:      e.garbageBlob,
			challenged: listedSpans[0],
			reason:     blob.ErrIndexDeserialization,
			outcome:    metrics.OutcomeFraudProven,
		},
		{
			name:       "blob not listed",
			index:      e.indexBlob,
			challenged: blob.SpanSequence{Height: 102, Start: 1, Size: 3},
			err:        challenge.ErrChallengedBlobNotInIndex,
			outcome:    metrics.OutcomeInputError,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, m := newChallenger(t, e)
			result, err := c.Challenge(ctx, tc.index, tc.challenged)
			require.NotNil(t, result)
			require.Equal(t, tc.outcome, result.Outcome)
			require.Equal(t, 1.0, testutil.ToFloat64(m.ChallengeOutcomes.WithLabelValues(tc.outcome)))

			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				require.Nil(t, result.Journal)
				return
			}
			require.NoError(t, err)
			require.True(t, result.Verdict.Proven)
			require.ErrorIs(t, result.Verdict.Reason, tc.reason)
			require.Equal(t, tc.index, result.Journal.IndexBlob)
			require.Equal(t, bridgeAddress, result.Journal.BlobstreamAddress)
			require.Nil(t, result.Receipt)
		})
	}
}

func TestChallengeSealed(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, blobstream.ImplementationSP1)
	c, m := newChallenger(t, e)
	c.Prover = proverFunc(localProver)
	c.Verifier = verifierFunc(hashVerifier)
	c.ImageID = imageID

	result, err := c.Challenge(ctx, e.indexBlob, listedSpans[1])
	require.NoError(t, err)
	require.NotNil(t, result.Receipt)
	encoded, err := result.Journal.Encode()
	require.NoError(t, err)
	require.Equal(t, encoded, result.Receipt.Journal)

	c.ImageID = [32]byte{0x02}
	_, err = c.Challenge(ctx, e.indexBlob, listedSpans[1])
	require.ErrorIs(t, err, host.ErrSealRejected)
	require.Equal(t, 1.0, testutil.ToFloat64(m.ChallengeOutcomes.WithLabelValues(metrics.OutcomeSealRejected)))

	c.Prover = proverFunc(func(ctx context.Context, snapshot, bundle []byte) (seal.Receipt, error) {
		receipt, err := localProver(ctx, snapshot, bundle)
		receipt.Journal = append(receipt.Journal, 0x00)
		return receipt, err
	})
	_, err = c.Challenge(ctx, e.indexBlob, listedSpans[1])
	require.ErrorIs(t, err, host.ErrSealRejected)

	failure := errors.New("prover unavailable")
	c.Prover = proverFunc(func(context.Context, []byte, []byte) (seal.Receipt, error) {
		return seal.Receipt{}, failure
	})
	_, err = c.Challenge(ctx, e.indexBlob, listedSpans[1])
	require.ErrorIs(t, err, failure)
}
