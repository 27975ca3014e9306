package host

import (
	"context"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/celestia"
	"github.com/celestiaorg/celestia-da-challenge/eventcache"
	"github.com/celestiaorg/celestia-da-challenge/square"
)

// DANode is the subset of the DA node API needed to assemble a bundle.
type DANode interface {
	HeaderByHeight(ctx context.Context, height uint64) (*celestia.ExtendedHeader, error)
	LocalHead(ctx context.Context) (*celestia.ExtendedHeader, error)
	ShareRange(ctx context.Context, header *celestia.ExtendedHeader, start, end uint32) (square.ShareProof, error)
	DataRootTupleInclusionProof(ctx context.Context, height, start, end uint64) (square.MerkleProof, error)
}

// Commitments resolves the Blobstream data commitment covering a DA height.
type Commitments interface {
	Get(ctx context.Context, height uint64) (blobstream.DataCommitment, error)
	First(ctx context.Context) (blobstream.DataCommitment, error)
}

var (
	_ DANode      = (*celestia.Client)(nil)
	_ Commitments = (*eventcache.Cache)(nil)
)
