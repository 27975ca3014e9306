// Package fixtures builds DA blocks, Blobstream commitments and settlement
// chain state whose proofs verify, for use in tests.
package fixtures

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/celestiaorg/go-square/v2/share"
	"github.com/celestiaorg/nmt"
	"github.com/cometbft/cometbft/crypto/merkle"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/square"
)

var parityNamespace = bytes.Repeat([]byte{0xFF}, share.NamespaceSize)

// Block is a DA block whose original data square holds Shares in row-major
// order. Row roots are real NMT roots; parity shares are zero filled.
type Block struct {
	Height   uint64
	Width    uint32
	Shares   [][]byte
	RowRoots [][]byte
	ColRoots [][]byte
	DataRoot [32]byte

	trees []*nmt.NamespacedMerkleTree
}

// NewBlock lays out shares in a square of the given ODS width, filling the
// rest with tail padding.
func NewBlock(height uint64, width uint32, shares []share.Share) (*Block, error) {
	size := int(width) * int(width)
	if len(shares) > size {
		return nil, fmt.Errorf("%d shares do not fit a square of width %d", len(shares), width)
	}
	all := append(share.ToBytes(shares), share.ToBytes(share.TailPaddingShares(size-len(shares)))...)

	b := &Block{Height: height, Width: width, Shares: all}
	eds := 2 * int(width)
	parity := make([]byte, share.ShareSize)

	for row := 0; row < eds; row++ {
		tree := nmt.New(sha256.New(), nmt.NamespaceIDSize(share.NamespaceSize), nmt.IgnoreMaxNamespace(true))
		for col := 0; col < eds; col++ {
			leaf := append(append([]byte{}, parityNamespace...), parity...)
			if row < int(width) && col < int(width) {
				data := all[row*int(width)+col]
				leaf = append(append([]byte{}, data[:share.NamespaceSize]...), data...)
			}
			if err := tree.Push(leaf); err != nil {
				return nil, err
			}
		}
		root, err := tree.Root()
		if err != nil {
			return nil, err
		}
		b.RowRoots = append(b.RowRoots, root)
		b.trees = append(b.trees, tree)
	}
	for col := 0; col < eds; col++ {
		sum := sha256.Sum256([]byte(fmt.Sprintf("column %d of block %d", col, height)))
		b.ColRoots = append(b.ColRoots, sum[:])
	}

	copy(b.DataRoot[:], merkle.HashFromByteSlices(b.axisRoots()))
	return b, nil
}

func (b *Block) axisRoots() [][]byte {
	return append(append([][]byte{}, b.RowRoots...), b.ColRoots...)
}

// RowProof proves row root r under the data root.
func (b *Block) RowProof(r uint32) (square.MerkleProof, []byte, error) {
	_, proofs := merkle.ProofsFromByteSlices(b.axisRoots())
	if int(r) >= len(b.RowRoots) {
		return square.MerkleProof{}, nil, fmt.Errorf("row %d out of range", r)
	}
	proof, err := square.MerkleProofFromComet(proofs[r])
	if err != nil {
		return square.MerkleProof{}, nil, err
	}
	return proof, b.RowRoots[r], nil
}

// ShareProof proves the share at ODS index under the data root.
func (b *Block) ShareProof(index uint32) (square.ShareProof, error) {
	return b.RangeProof(index, index+1)
}

// RangeProof proves the shares at ODS indexes [start, end) under the data
// root. The shares must belong to one namespace.
func (b *Block) RangeProof(start, end uint32) (square.ShareProof, error) {
	if start >= end || uint64(end) > square.ODSSize(b.Width) {
		return square.ShareProof{}, fmt.Errorf("shares [%d, %d) out of range", start, end)
	}

	first := b.Shares[start]
	proof := square.ShareProof{
		Data:             append([][]byte{}, b.Shares[start:end]...),
		NamespaceID:      first[1:share.NamespaceSize],
		NamespaceVersion: uint32(first[0]),
		RowProof: square.RowProof{
			StartRow: start / b.Width,
			EndRow:   (end - 1) / b.Width,
		},
	}
	for row := proof.RowProof.StartRow; row <= proof.RowProof.EndRow; row++ {
		from, to := uint32(0), b.Width
		if row == proof.RowProof.StartRow {
			from = start % b.Width
		}
		if row == proof.RowProof.EndRow {
			to = (end-1)%b.Width + 1
		}
		nmtProof, err := b.trees[row].ProveRange(int(from), int(to))
		if err != nil {
			return square.ShareProof{}, err
		}
		rowProof, rowRoot, err := b.RowProof(row)
		if err != nil {
			return square.ShareProof{}, err
		}
		proof.ShareProofs = append(proof.ShareProofs, square.NMTProof{
			Start: uint32(nmtProof.Start()),
			End:   uint32(nmtProof.End()),
			Nodes: nmtProof.Nodes(),
		})
		proof.RowProof.RowRoots = append(proof.RowProof.RowRoots, rowRoot)
		proof.RowProof.Proofs = append(proof.RowProof.Proofs, rowProof)
	}
	return proof, nil
}

// EDSShareProof proves the share at row and col of the extended data square
// under the data root, parity shares included.
func (b *Block) EDSShareProof(row, col uint32) (square.ShareProof, error) {
	if row >= 2*b.Width || col >= 2*b.Width {
		return square.ShareProof{}, fmt.Errorf("share (%d, %d) out of range", row, col)
	}
	if row < b.Width && col < b.Width {
		return b.ShareProof(row*b.Width + col)
	}
	nmtProof, err := b.trees[row].ProveRange(int(col), int(col)+1)
	if err != nil {
		return square.ShareProof{}, err
	}
	rowProof, rowRoot, err := b.RowProof(row)
	if err != nil {
		return square.ShareProof{}, err
	}
	return square.ShareProof{
		Data:             [][]byte{make([]byte, share.ShareSize)},
		ShareProofs:      []square.NMTProof{{Start: uint32(nmtProof.Start()), End: uint32(nmtProof.End()), Nodes: nmtProof.Nodes()}},
		NamespaceID:      parityNamespace[1:],
		NamespaceVersion: uint32(parityNamespace[0]),
		RowProof: square.RowProof{
			RowRoots: [][]byte{rowRoot},
			Proofs:   []square.MerkleProof{rowProof},
			StartRow: row,
			EndRow:   row,
		},
	}, nil
}

// ProofData proves every share of the span.
func (b *Block) ProofData(span blob.SpanSequence, appVersion uint64) (*blob.ProofData, error) {
	end, err := span.EndIndexODS()
	if err != nil {
		return nil, err
	}
	data := blob.NewProofData(appVersion)
	for index := span.Start; index < end; index++ {
		proof, err := b.ShareProof(index)
		if err != nil {
			return nil, err
		}
		data.Set(index, proof)
	}
	return data, nil
}

// BlobShares splits the payload into the shares of a single blob.
func BlobShares(namespace share.Namespace, payload []byte) ([]share.Share, error) {
	b, err := share.NewV0Blob(namespace, payload)
	if err != nil {
		return nil, err
	}
	splitter := share.NewSparseShareSplitter()
	if err := splitter.Write(b); err != nil {
		return nil, err
	}
	return splitter.Export(), nil
}

// IndexShares splits an encoded index into blob shares.
func IndexShares(namespace share.Namespace, index blob.Index) ([]share.Share, error) {
	payload, err := index.Marshal()
	if err != nil {
		return nil, err
	}
	return BlobShares(namespace, payload)
}

// Namespace returns a version 0 namespace for tests.
func Namespace(id string) share.Namespace {
	ns, err := share.NewV0Namespace([]byte(id))
	if err != nil {
		panic(err)
	}
	return ns
}
