package blobstream

import (
	"context"
	"fmt"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Chain IDs with a known first data commitment.
const (
	MainnetChainID uint64 = 1
	SepoliaChainID uint64 = 11155111
)

const (
	// DefaultScanWindow is the number of blocks filtered per log query.
	DefaultScanWindow uint64 = 10_000
	// FirstEventWindow is how far back the first data commitment is searched
	// for on chains without a known one.
	FirstEventWindow uint64 = 100_000
)

// DataCommitment is a DataCommitmentStored event: the bridge committed to
// the data roots of DA blocks [StartBlock, EndBlock) under Root.
type DataCommitment struct {
	Nonce      uint64
	StartBlock uint64
	EndBlock   uint64
	Root       common.Hash
	// BlockNumber and TxHash locate the event on the settlement chain.
	BlockNumber uint64
	TxHash      common.Hash
}

// Validate checks that the commitment covers a non-empty range.
func (d DataCommitment) Validate() error {
	if d.StartBlock >= d.EndBlock {
		return errorsmod.Wrapf(ErrInvalidEvent, "empty range [%d, %d)", d.StartBlock, d.EndBlock)
	}
	return nil
}

// Contains reports whether the commitment covers the DA block height.
func (d DataCommitment) Contains(height uint64) bool {
	return d.StartBlock <= height && height < d.EndBlock
}

func (d DataCommitment) String() string {
	return fmt.Sprintf("nonce %d [%d, %d) root %s", d.Nonce, d.StartBlock, d.EndBlock, d.Root)
}

var knownFirstCommitments = map[uint64]DataCommitment{
	SepoliaChainID: {
		Nonce:      1,
		StartBlock: 1_560_501,
		EndBlock:   1_560_600,
		Root:       common.HexToHash("0x60cd79d32f2fb32ba0086c2d0f8e00d54364fa93715a4f6b28ed4080ef47f0eb"),
	},
	MainnetChainID: {
		Nonce:      1,
		StartBlock: 1_605_975,
		EndBlock:   1_606_500,
		Root:       common.HexToHash("0xe0f22e19a558e8da31aa8ee05f737a3ec2a55f92dc6093f34650c69f4cbd53be"),
	},
}

// KnownFirstCommitment returns the first data commitment of the canonical
// bridge deployment on a public chain.
func KnownFirstCommitment(chainID uint64) (DataCommitment, bool) {
	commitment, ok := knownFirstCommitments[chainID]
	return commitment, ok
}

// LogSource is the settlement chain access needed to search events.
type LogSource interface {
	ethereum.LogFilterer
	BlockNumber(ctx context.Context) (uint64, error)
}

// EventFinder searches the settlement chain for data commitments.
type EventFinder struct {
	contract *Contract
	source   LogSource
	chainID  uint64
	window   uint64
}

// NewEventFinder returns a finder for the contract's events.
func NewEventFinder(contract *Contract, source LogSource, chainID uint64, window uint64) *EventFinder {
	if window == 0 {
		window = DefaultScanWindow
	}
	return &EventFinder{
		contract: contract,
		source:   source,
		chainID:  chainID,
		window:   window,
	}
}

func (f *EventFinder) filterLogs(ctx context.Context, from, to uint64) ([]DataCommitment, error) {
	logs, err := f.source.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{f.contract.Address()},
		Topics:    [][]common.Hash{{f.contract.EventID()}},
	})
	if err != nil {
		return nil, err
	}

	commitments := make([]DataCommitment, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		commitment, err := f.contract.ParseDataCommitmentStored(log)
		if err != nil {
			return nil, err
		}
		commitments = append(commitments, commitment)
	}
	return commitments, nil
}

// FindCovering scans backward from the chain head for the data commitment
// covering the DA block height.
func (f *EventFinder) FindCovering(ctx context.Context, height uint64) (DataCommitment, error) {
	head, err := f.source.BlockNumber(ctx)
	if err != nil {
		return DataCommitment{}, err
	}

	to := head
	for {
		if err := ctx.Err(); err != nil {
			return DataCommitment{}, err
		}
		from := uint64(0)
		if to >= f.window {
			from = to - f.window + 1
		}

		commitments, err := f.filterLogs(ctx, from, to)
		if err != nil {
			return DataCommitment{}, err
		}
		for i := len(commitments) - 1; i >= 0; i-- {
			if commitments[i].Contains(height) {
				return commitments[i], nil
			}
			// commitments are emitted in increasing height order
			if commitments[i].EndBlock <= height {
				return DataCommitment{}, errorsmod.Wrapf(ErrEventNotFound, "height %d is above the latest commitment", height)
			}
		}

		if from == 0 {
			return DataCommitment{}, errorsmod.Wrapf(ErrEventNotFound, "height %d", height)
		}
		to = from - 1
	}
}

// First returns the first data commitment of the bridge. The known
// commitment is used on public chains, otherwise the last FirstEventWindow
// blocks are searched and the earliest event must have nonce 1.
func (f *EventFinder) First(ctx context.Context) (DataCommitment, error) {
	if commitment, ok := KnownFirstCommitment(f.chainID); ok {
		return commitment, nil
	}

	head, err := f.source.BlockNumber(ctx)
	if err != nil {
		return DataCommitment{}, err
	}
	start := uint64(1)
	if head > FirstEventWindow {
		start = head - FirstEventWindow
	}

	for from := start; from <= head; from += f.window {
		to := min(from+f.window-1, head)
		commitments, err := f.filterLogs(ctx, from, to)
		if err != nil {
			return DataCommitment{}, err
		}
		if len(commitments) == 0 {
			continue
		}
		if commitments[0].Nonce != 1 {
			return DataCommitment{}, errorsmod.Wrapf(ErrFirstEventNonce, "found nonce %d, scan window is too small", commitments[0].Nonce)
		}
		return commitments[0], nil
	}
	return DataCommitment{}, errorsmod.Wrapf(ErrEventNotFound, "no event in blocks [%d, %d]", start, head)
}
