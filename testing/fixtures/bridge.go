package fixtures

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
)

// ErrExecutionReverted is returned for calls the deployed contract does not
// support.
var ErrExecutionReverted = errors.New("execution reverted")

// BridgeBackend answers eth_call requests to a bridge contract by decoding
// the calldata and serving them from a simulated Blobstream.
type BridgeBackend struct {
	Address        common.Address
	Blobstream     *Blobstream
	Implementation blobstream.Implementation

	abi abi.ABI

	mu    sync.Mutex
	calls map[string]int
}

// NewBridgeBackend serves the bridge at address.
func NewBridgeBackend(address common.Address, bs *Blobstream, implementation blobstream.Implementation) (*BridgeBackend, error) {
	parsed, err := blobstream.ParsedABI()
	if err != nil {
		return nil, err
	}
	return &BridgeBackend{
		Address:        address,
		Blobstream:     bs,
		Implementation: implementation,
		abi:            parsed,
		calls:          make(map[string]int),
	}, nil
}

// Calls returns how often a method was called.
func (b *BridgeBackend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

// CodeAt implements bind.ContractCaller.
func (b *BridgeBackend) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	if account != b.Address {
		return nil, nil
	}
	return []byte{0x60, 0x80, 0x60, 0x40}, nil
}

// CallContract implements bind.ContractCaller.
func (b *BridgeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if call.To == nil || *call.To != b.Address {
		return nil, nil
	}
	if len(call.Data) < 4 {
		return nil, ErrExecutionReverted
	}
	method, err := b.abi.MethodById(call.Data[:4])
	if err != nil {
		return nil, ErrExecutionReverted
	}

	b.mu.Lock()
	b.calls[method.Name]++
	b.mu.Unlock()

	switch method.Name {
	case "latestHeight", "latestBlock":
		if (method.Name == "latestHeight") != (b.Implementation == blobstream.ImplementationR0) {
			return nil, ErrExecutionReverted
		}
		latest, err := b.Blobstream.LatestHeight()
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(latest)
	case "verifyAttestation":
		args, err := method.Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}
		if len(args) != 3 {
			return nil, fmt.Errorf("verifyAttestation: %d arguments", len(args))
		}
		nonce := *abi.ConvertType(args[0], new(*big.Int)).(**big.Int)
		tuple := *abi.ConvertType(args[1], new(blobstream.DataRootTuple)).(*blobstream.DataRootTuple)
		proof := *abi.ConvertType(args[2], new(blobstream.BinaryMerkleProof)).(*blobstream.BinaryMerkleProof)
		if !nonce.IsUint64() {
			return method.Outputs.Pack(false)
		}
		ok, err := b.Blobstream.VerifyAttestation(nonce.Uint64(), tuple, proof)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(ok)
	default:
		return nil, ErrExecutionReverted
	}
}
