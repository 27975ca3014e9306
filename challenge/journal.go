package challenge

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/evmstate"
)

// Journal is the public output of a proven challenge, checked by the
// settlement contract.
type Journal struct {
	Commitment        evmstate.Commitment
	BlobstreamAddress common.Address
	IndexBlob         blob.SpanSequence
	IndexBlobHash     common.Hash
}

type journalCommitment struct {
	ID       *big.Int `abi:"id"`
	Digest   [32]byte `abi:"digest"`
	ConfigID [32]byte `abi:"configID"`
}

type journalSpan struct {
	Height uint64 `abi:"height"`
	Start  uint32 `abi:"start"`
	Size   uint32 `abi:"size"`
}

type journalTuple struct {
	Commitment        journalCommitment `abi:"commitment"`
	BlobstreamAddress common.Address    `abi:"blobstreamAddress"`
	IndexBlob         journalSpan       `abi:"indexBlob"`
	IndexBlobHash     [32]byte          `abi:"indexBlobHash"`
}

var journalArguments abi.Arguments

func init() {
	journalType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "commitment", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "id", Type: "uint256"},
			{Name: "digest", Type: "bytes32"},
			{Name: "configID", Type: "bytes32"},
		}},
		{Name: "blobstreamAddress", Type: "address"},
		{Name: "indexBlob", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "height", Type: "uint64"},
			{Name: "start", Type: "uint32"},
			{Name: "size", Type: "uint32"},
		}},
		{Name: "indexBlobHash", Type: "bytes32"},
	})
	if err != nil {
		panic(err)
	}
	journalArguments = abi.Arguments{{Name: "journal", Type: journalType}}
}

// Encode returns the ABI encoding of the journal.
func (j Journal) Encode() ([]byte, error) {
	if j.Commitment.ID == nil {
		return nil, errorsmod.Wrap(ErrInvalidJournal, "missing commitment id")
	}
	return journalArguments.Pack(journalTuple{
		Commitment: journalCommitment{
			ID:       j.Commitment.ID,
			Digest:   j.Commitment.Digest,
			ConfigID: j.Commitment.ConfigID,
		},
		BlobstreamAddress: j.BlobstreamAddress,
		IndexBlob: journalSpan{
			Height: j.IndexBlob.Height,
			Start:  j.IndexBlob.Start,
			Size:   j.IndexBlob.Size,
		},
		IndexBlobHash: j.IndexBlobHash,
	})
}

// DecodeJournal decodes an ABI encoded journal.
func DecodeJournal(data []byte) (*Journal, error) {
	values, err := journalArguments.Unpack(data)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidJournal, err.Error())
	}
	if len(values) != 1 {
		return nil, errorsmod.Wrapf(ErrInvalidJournal, "%d values", len(values))
	}
	tuple := *abi.ConvertType(values[0], new(journalTuple)).(*journalTuple)

	return &Journal{
		Commitment: evmstate.Commitment{
			ID:       tuple.Commitment.ID,
			Digest:   tuple.Commitment.Digest,
			ConfigID: tuple.Commitment.ConfigID,
		},
		BlobstreamAddress: tuple.BlobstreamAddress,
		IndexBlob: blob.SpanSequence{
			Height: tuple.IndexBlob.Height,
			Start:  tuple.IndexBlob.Start,
			Size:   tuple.IndexBlob.Size,
		},
		IndexBlobHash: tuple.IndexBlobHash,
	}, nil
}
