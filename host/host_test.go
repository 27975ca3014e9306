package host_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/celestia"
	"github.com/celestiaorg/celestia-da-challenge/challenge"
	"github.com/celestiaorg/celestia-da-challenge/eventcache"
	"github.com/celestiaorg/celestia-da-challenge/host"
	"github.com/celestiaorg/celestia-da-challenge/testing/fixtures"
)

const (
	width      = 4
	appVersion = 3
	chainID    = 31337
)

var (
	bridgeAddress   = common.HexToAddress("0xF0c6429ebAB2e7DC6e05DaFB61128bE21f13cb1e")
	contractAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	listedSpans = []blob.SpanSequence{
		{Height: 102, Start: 0, Size: 4},
		// ends at 18 in a square of 16 shares
		{Height: 103, Start: 14, Size: 4},
		// above the latest Blobstream height
		{Height: 105, Start: 0, Size: 4},
	}

	testPolicy = host.RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  50 * time.Millisecond,
	}
)

// env serves DA blocks 100 to 103, attested by two data commitments, and an
// unattested block 105. Block 101 holds the index blob followed by a blob
// that is not an index.
type env struct {
	bs          *fixtures.Blobstream
	node        *fixtures.Node
	client      *celestia.Client
	settlement  *fixtures.Settlement
	cache       *eventcache.Cache
	assembler   *host.Assembler
	preflight   *host.Preflight
	indexBlob   blob.SpanSequence
	garbageBlob blob.SpanSequence
}

func newEnv(t *testing.T, implementation blobstream.Implementation) *env {
	t.Helper()
	ns := fixtures.Namespace("index")
	indexShares, err := fixtures.IndexShares(ns, blob.NewIndex(listedSpans...))
	require.NoError(t, err)
	garbageShares, err := fixtures.BlobShares(ns, []byte("this is not an index"))
	require.NoError(t, err)
	rollupShares, err := fixtures.BlobShares(fixtures.Namespace("rollup"), bytes.Repeat([]byte{0xAB}, 1500))
	require.NoError(t, err)

	var blocks []*fixtures.Block
	for _, height := range []uint64{100, 101, 102, 103, 105} {
		shares := rollupShares
		if height == 101 {
			shares = append(append(shares[:0:0], indexShares...), garbageShares...)
		}
		block, err := fixtures.NewBlock(height, width, shares)
		require.NoError(t, err)
		blocks = append(blocks, block)
	}

	bs := &fixtures.Blobstream{}
	_, err = bs.CommitBlocks(blocks[0], blocks[1])
	require.NoError(t, err)
	_, err = bs.CommitBlocks(blocks[2], blocks[3])
	require.NoError(t, err)

	node := fixtures.NewNode(bs, appVersion, blocks...)
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)
	client, err := celestia.Dial(context.Background(), server.URL, "secret")
	require.NoError(t, err)
	t.Cleanup(client.Close)

	contract, err := blobstream.NewContract(bridgeAddress, nil, nil)
	require.NoError(t, err)
	chain := &fixtures.Chain{}
	require.NoError(t, chain.EmitCommitments(bridgeAddress, bs.Commitments(), 5_000, 700))
	chain.Head += 100
	cache, err := eventcache.New(blobstream.NewEventFinder(contract, chain, chainID, 1_000), nil, nil, log.NewNopLogger())
	require.NoError(t, err)

	settlement, err := fixtures.NewSettlement(bridgeAddress, contractAddress, bs, implementation, chainID, 9)
	require.NoError(t, err)

	assembler := host.NewAssembler(client, cache, nil, log.NewNopLogger())
	assembler.Policy = testPolicy

	return &env{
		bs:          bs,
		node:        node,
		client:      client,
		settlement:  settlement,
		cache:       cache,
		assembler:   assembler,
		preflight:   host.NewPreflight(settlement, settlement, bridgeAddress, nil, log.NewNopLogger()),
		indexBlob:   blob.SpanSequence{Height: 101, Start: 0, Size: uint32(len(indexShares))},
		garbageBlob: blob.SpanSequence{Height: 101, Start: uint32(len(indexShares)), Size: uint32(len(garbageShares))},
	}
}

func blockHeights(bundle *challenge.Bundle) []uint64 {
	heights := make([]uint64, len(bundle.BlockProofs))
	for i, proof := range bundle.BlockProofs {
		heights[i] = proof.Height
	}
	return heights
}
