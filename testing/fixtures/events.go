package fixtures

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
)

// DataCommitmentLog encodes a commitment as an emitted DataCommitmentStored
// log.
func DataCommitmentLog(address common.Address, commitment blobstream.DataCommitment, blockNumber uint64) (types.Log, error) {
	parsed, err := blobstream.ParsedABI()
	if err != nil {
		return types.Log{}, err
	}
	event := parsed.Events["DataCommitmentStored"]
	data, err := event.Inputs.NonIndexed().Pack(new(big.Int).SetUint64(commitment.Nonce))
	if err != nil {
		return types.Log{}, err
	}
	return types.Log{
		Address: address,
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(new(big.Int).SetUint64(commitment.StartBlock)),
			common.BigToHash(new(big.Int).SetUint64(commitment.EndBlock)),
			commitment.Root,
		},
		Data:        data,
		BlockNumber: blockNumber,
		TxHash:      crypto.Keccak256Hash(data, commitment.Root[:]),
	}, nil
}

// Chain serves logs and a head block number, counting log queries.
type Chain struct {
	Head uint64
	Logs []types.Log

	mu      sync.Mutex
	queries int
}

// EmitCommitments appends one log per batch, spacing them interval blocks
// apart starting at block first.
func (c *Chain) EmitCommitments(address common.Address, commitments []blobstream.DataCommitment, first, interval uint64) error {
	for i, commitment := range commitments {
		log, err := DataCommitmentLog(address, commitment, first+uint64(i)*interval)
		if err != nil {
			return err
		}
		c.Logs = append(c.Logs, log)
		c.Head = max(c.Head, log.BlockNumber)
	}
	return nil
}

// Queries returns the number of FilterLogs calls.
func (c *Chain) Queries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queries
}

// BlockNumber implements blobstream.LogSource.
func (c *Chain) BlockNumber(context.Context) (uint64, error) {
	return c.Head, nil
}

// FilterLogs implements blobstream.LogSource. Only the block range, the
// addresses and the first topic are filtered on.
func (c *Chain) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	c.queries++
	c.mu.Unlock()

	var logs []types.Log
	for _, log := range c.Logs {
		if q.FromBlock != nil && log.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && log.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, log.Address) {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 && (len(log.Topics) == 0 || !containsHash(q.Topics[0], log.Topics[0])) {
			continue
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// SubscribeFilterLogs implements ethereum.LogFilterer.
func (c *Chain) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, ethereum.NotFound
}

func containsAddress(addresses []common.Address, address common.Address) bool {
	for _, a := range addresses {
		if a == address {
			return true
		}
	}
	return false
}

func containsHash(hashes []common.Hash, hash common.Hash) bool {
	for _, h := range hashes {
		if h == hash {
			return true
		}
	}
	return false
}
