package fixtures

import (
	"fmt"

	"github.com/cometbft/cometbft/crypto/merkle"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/square"
)

// Batch is one data commitment over DA blocks [Start, End).
type Batch struct {
	Nonce     uint64
	Start     uint64
	End       uint64
	Root      [32]byte
	DataRoots [][32]byte
}

// Blobstream simulates the data commitments of a bridge contract.
type Blobstream struct {
	Batches []Batch
	// Latest overrides the reported latest height when non-zero.
	Latest uint64
}

var _ blobstream.Bridge = (*Blobstream)(nil)

// Commit appends a data commitment over consecutive blocks starting at start.
func (b *Blobstream) Commit(start uint64, dataRoots ...[32]byte) (Batch, error) {
	if len(dataRoots) == 0 {
		return Batch{}, fmt.Errorf("empty batch")
	}
	if n := len(b.Batches); n > 0 && b.Batches[n-1].End > start {
		return Batch{}, fmt.Errorf("batch starting at %d overlaps the previous one", start)
	}

	leaves := make([][]byte, len(dataRoots))
	for i, root := range dataRoots {
		leaf, err := blobstream.EncodeTuple(start+uint64(i), root)
		if err != nil {
			return Batch{}, err
		}
		leaves[i] = leaf
	}

	batch := Batch{
		Nonce:     uint64(len(b.Batches)) + 1,
		Start:     start,
		End:       start + uint64(len(dataRoots)),
		DataRoots: dataRoots,
	}
	copy(batch.Root[:], merkle.HashFromByteSlices(leaves))
	b.Batches = append(b.Batches, batch)
	return batch, nil
}

// CommitBlocks commits the data roots of consecutive blocks.
func (b *Blobstream) CommitBlocks(blocks ...*Block) (Batch, error) {
	if len(blocks) == 0 {
		return Batch{}, fmt.Errorf("empty batch")
	}
	roots := make([][32]byte, len(blocks))
	for i, block := range blocks {
		if block.Height != blocks[0].Height+uint64(i) {
			return Batch{}, fmt.Errorf("block %d is not consecutive", block.Height)
		}
		roots[i] = block.DataRoot
	}
	return b.Commit(blocks[0].Height, roots...)
}

// Attest returns the attestation of the block at height.
func (b *Blobstream) Attest(height uint64) (blobstream.Attestation, error) {
	for _, batch := range b.Batches {
		if height < batch.Start || height >= batch.End {
			continue
		}
		leaves := make([][]byte, len(batch.DataRoots))
		for i, root := range batch.DataRoots {
			leaf, err := blobstream.EncodeTuple(batch.Start+uint64(i), root)
			if err != nil {
				return blobstream.Attestation{}, err
			}
			leaves[i] = leaf
		}
		_, proofs := merkle.ProofsFromByteSlices(leaves)
		proof, err := square.MerkleProofFromComet(proofs[height-batch.Start])
		if err != nil {
			return blobstream.Attestation{}, err
		}
		return blobstream.Attestation{
			DataRoot: batch.DataRoots[height-batch.Start],
			Height:   height,
			Nonce:    batch.Nonce,
			Proof:    proof,
		}, nil
	}
	return blobstream.Attestation{}, fmt.Errorf("height %d is not committed", height)
}

// BlockProof attests the block and proves its first row.
func (b *Blobstream) BlockProof(block *Block) (blobstream.AttestationAndRowProof, error) {
	attestation, err := b.Attest(block.Height)
	if err != nil {
		return blobstream.AttestationAndRowProof{}, err
	}
	rowProof, rowRoot, err := block.RowProof(0)
	if err != nil {
		return blobstream.AttestationAndRowProof{}, err
	}
	return blobstream.AttestationAndRowProof{
		Attestation: attestation,
		RowProof:    rowProof,
		RowRoot:     rowRoot,
	}, nil
}

// Commitments returns the batches as DataCommitmentStored events.
func (b *Blobstream) Commitments() []blobstream.DataCommitment {
	commitments := make([]blobstream.DataCommitment, len(b.Batches))
	for i, batch := range b.Batches {
		commitments[i] = blobstream.DataCommitment{
			Nonce:      batch.Nonce,
			StartBlock: batch.Start,
			EndBlock:   batch.End,
			Root:       batch.Root,
		}
	}
	return commitments
}

// VerifyAttestation implements blobstream.Bridge.
func (b *Blobstream) VerifyAttestation(nonce uint64, tuple blobstream.DataRootTuple, proof blobstream.BinaryMerkleProof) (bool, error) {
	for _, batch := range b.Batches {
		if batch.Nonce == nonce {
			return blobstream.VerifyTupleInclusion(batch.Root, tuple, proof) == nil, nil
		}
	}
	return false, nil
}

// LatestHeight implements blobstream.Bridge.
func (b *Blobstream) LatestHeight() (uint64, error) {
	if b.Latest != 0 {
		return b.Latest, nil
	}
	if len(b.Batches) == 0 {
		return 0, nil
	}
	return b.Batches[len(b.Batches)-1].End, nil
}
