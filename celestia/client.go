// Package celestia is the DA node client the challenger reads from and
// publishes to, converting node results into square proofs.
package celestia

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	openrpc "github.com/celestiaorg/celestia-openrpc"
	openblob "github.com/celestiaorg/celestia-openrpc/types/blob"
	openshare "github.com/celestiaorg/celestia-openrpc/types/share"
	"github.com/celestiaorg/go-square/v2/share"

	"github.com/celestiaorg/celestia-da-challenge/square"
)

// Blob is a blob as submitted to and returned by the node. Index is the
// position of its first share in the extended data square, -1 when unknown.
type Blob = openblob.Blob

// SubmitOptions configures blob submission. Nil lets the node pick the fee
// and gas limit.
type SubmitOptions = openblob.SubmitOptions

// Client talks to a DA node.
type Client struct {
	rpc *openrpc.Client
}

// Dial connects to the node at url. A non-empty token is sent as a bearer
// token with every request.
func Dial(ctx context.Context, url, token string) (*Client, error) {
	c, err := openrpc.NewClient(ctx, url, token)
	if err != nil {
		return nil, fmt.Errorf("failed to dial DA node: %w", err)
	}
	return &Client{rpc: c}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

// HeaderByHeight returns the header of the block at height.
func (c *Client) HeaderByHeight(ctx context.Context, height uint64) (*ExtendedHeader, error) {
	h, err := c.rpc.Header.GetByHeight(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("failed to get header at height %d: %w", height, err)
	}
	if h == nil || h.Height() != height {
		return nil, errorsmod.Wrapf(ErrUnexpectedNode, "asked for height %d", height)
	}
	return &ExtendedHeader{h}, nil
}

// LocalHead returns the latest header known to the node.
func (c *Client) LocalHead(ctx context.Context) (*ExtendedHeader, error) {
	h, err := c.rpc.Header.LocalHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get local head: %w", err)
	}
	if h == nil {
		return nil, errorsmod.Wrap(ErrUnexpectedNode, "empty local head")
	}
	return &ExtendedHeader{h}, nil
}

// ShareRange returns the inclusion proof of the shares [start, end) of the
// original data square of the block of header. Row roots are taken from the
// header.
func (c *Client) ShareRange(ctx context.Context, header *ExtendedHeader, start, end uint32) (square.ShareProof, error) {
	height := header.Height()
	result, err := c.rpc.Share.GetRange(ctx, height, int(start), int(end))
	if err != nil {
		return square.ShareProof{}, fmt.Errorf("failed to get shares [%d, %d) at height %d: %w", start, end, height, err)
	}
	if result == nil || result.Proof == nil {
		return square.ShareProof{}, errorsmod.Wrapf(ErrInvalidProof, "no proof for shares [%d, %d) at height %d", start, end, height)
	}

	p := result.Proof
	proof := square.ShareProof{
		Data:             p.Data,
		NamespaceID:      p.NamespaceID,
		NamespaceVersion: uint32(p.NamespaceVersion),
		RowProof: square.RowProof{
			StartRow: uint32(p.RowProof.StartRow),
			EndRow:   uint32(p.RowProof.EndRow),
		},
	}
	for _, nmtProof := range p.ShareProofs {
		if nmtProof == nil || nmtProof.Start() < 0 || nmtProof.End() < nmtProof.Start() {
			return square.ShareProof{}, errorsmod.Wrap(ErrInvalidProof, "malformed share proof")
		}
		proof.ShareProofs = append(proof.ShareProofs, square.NMTProof{
			Start: uint32(nmtProof.Start()),
			End:   uint32(nmtProof.End()),
			Nodes: nmtProof.Nodes(),
		})
	}
	if proof.RowProof.EndRow < proof.RowProof.StartRow || header.DAH == nil || int(proof.RowProof.EndRow) >= len(header.DAH.RowRoots) {
		return square.ShareProof{}, errorsmod.Wrapf(ErrInvalidProof, "rows [%d, %d] at height %d", proof.RowProof.StartRow, proof.RowProof.EndRow, height)
	}
	proof.RowProof.RowRoots = header.DAH.RowRoots[proof.RowProof.StartRow : proof.RowProof.EndRow+1]
	for _, rowProof := range p.RowProof.Proofs {
		if rowProof == nil {
			return square.ShareProof{}, errorsmod.Wrap(ErrInvalidProof, "missing row proof")
		}
		converted, err := merkleProof(rowProof.Total, rowProof.Index, rowProof.LeafHash, rowProof.Aunts)
		if err != nil {
			return square.ShareProof{}, err
		}
		proof.RowProof.Proofs = append(proof.RowProof.Proofs, converted)
	}

	if len(proof.Data) != int(end-start) {
		return square.ShareProof{}, errorsmod.Wrapf(ErrInvalidProof, "asked for %d shares, got %d", end-start, len(proof.Data))
	}
	return proof, nil
}

// DataRootTupleInclusionProof returns the proof that the data root of the
// block at height is included in the commitment over blocks [start, end).
func (c *Client) DataRootTupleInclusionProof(ctx context.Context, height, start, end uint64) (square.MerkleProof, error) {
	result, err := c.rpc.Blobstream.GetDataRootTupleInclusionProof(ctx, height, start, end)
	if err != nil {
		return square.MerkleProof{}, fmt.Errorf("failed to get data root tuple proof for height %d: %w", height, err)
	}
	if result == nil || *result == nil {
		return square.MerkleProof{}, errorsmod.Wrapf(ErrInvalidProof, "no data root tuple proof for height %d", height)
	}

	tuple := *result
	proof, err := merkleProof(tuple.Total, tuple.Index, tuple.LeafHash, tuple.Aunts)
	if err != nil {
		return square.MerkleProof{}, err
	}
	if proof.Total != end-start || proof.Index != height-start {
		return square.MerkleProof{}, errorsmod.Wrapf(ErrInvalidProof, "proof index %d of %d for height %d in [%d, %d)", proof.Index, proof.Total, height, start, end)
	}
	return proof, nil
}

// NewBlob builds a version 0 blob with its share commitment.
func NewBlob(namespace share.Namespace, data []byte) (*Blob, error) {
	b, err := openblob.NewBlobV0(openshare.Namespace(namespace.Bytes()), data)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidBlob, err.Error())
	}
	return b, nil
}

// SharesLength returns the number of shares the blob occupies.
func SharesLength(b *Blob) uint32 {
	return uint32(share.SparseSharesNeeded(uint32(len(b.Data))))
}

// SubmitBlobs submits blobs in one transaction and returns the height of the
// block they were included in.
func (c *Client) SubmitBlobs(ctx context.Context, blobs []*Blob, options *SubmitOptions) (uint64, error) {
	height, err := c.rpc.Blob.Submit(ctx, blobs, options)
	if err != nil {
		return 0, fmt.Errorf("failed to submit %d blobs: %w", len(blobs), err)
	}
	if height == 0 {
		return 0, errorsmod.Wrap(ErrUnexpectedNode, "blob submitted at height 0")
	}
	return height, nil
}

// GetBlob returns the blob with the given commitment at height, including
// its EDS start index.
func (c *Client) GetBlob(ctx context.Context, height uint64, namespace, commitment []byte) (*Blob, error) {
	b, err := c.rpc.Blob.Get(ctx, height, openshare.Namespace(namespace), openblob.Commitment(commitment))
	if err != nil {
		return nil, fmt.Errorf("failed to get blob at height %d: %w", height, err)
	}
	if b == nil {
		return nil, errorsmod.Wrapf(ErrBlobNotFound, "commitment %x at height %d", commitment, height)
	}
	if b.Index() < 0 {
		return nil, errorsmod.Wrapf(ErrUnexpectedNode, "blob index %d", b.Index())
	}
	return b, nil
}
