package fixtures

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/host"
)

// Challenge is a challenge transaction accepted by the settlement contract.
type Challenge struct {
	From    common.Address
	Journal []byte
	Seal    []byte
}

// Settlement is a settlement chain at a single block holding the bridge and
// a challenge contract. It serves view calls, headers, account proofs and
// mines challenge transactions immediately.
type Settlement struct {
	*BridgeBackend
	State *State

	Contract common.Address
	ImageID  [32]byte
	// Revert makes mined challenges fail.
	Revert bool
	// PendingReceipts is the number of receipt polls answered with
	// ethereum.NotFound before a receipt is returned.
	PendingReceipts int

	abi     abi.ABI
	chainID *big.Int

	mu         sync.Mutex
	nonces     map[common.Address]uint64
	receipts   map[common.Hash]*types.Receipt
	polls      int
	Challenges []Challenge
}

var (
	_ host.SettlementChain = (*Settlement)(nil)
	_ host.AccountProver   = (*Settlement)(nil)
	_ host.TxBackend       = (*Settlement)(nil)
)

// NewSettlement deploys the bridge at bridge and the challenge contract at
// contract, at block number.
func NewSettlement(bridge, contract common.Address, bs *Blobstream, implementation blobstream.Implementation, chainID, number uint64) (*Settlement, error) {
	backend, err := NewBridgeBackend(bridge, bs, implementation)
	if err != nil {
		return nil, err
	}
	state, err := BridgeState(bridge, bs, implementation, number)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(host.SettlementABI))
	if err != nil {
		return nil, err
	}
	return &Settlement{
		BridgeBackend: backend,
		State:         state,
		chainID:       new(big.Int).SetUint64(chainID),
		Contract:      contract,
		abi:           parsed,
		nonces:        make(map[common.Address]uint64),
		receipts:      make(map[common.Hash]*types.Receipt),
	}, nil
}

// CodeAt implements bind.ContractCaller.
func (s *Settlement) CodeAt(ctx context.Context, account common.Address, block *big.Int) ([]byte, error) {
	if account == s.Contract {
		return BridgeCode, nil
	}
	return s.BridgeBackend.CodeAt(ctx, account, block)
}

// CallContract implements bind.ContractCaller.
func (s *Settlement) CallContract(ctx context.Context, call ethereum.CallMsg, block *big.Int) ([]byte, error) {
	if call.To == nil || *call.To != s.Contract {
		return s.BridgeBackend.CallContract(ctx, call, block)
	}
	if len(call.Data) < 4 {
		return nil, ErrExecutionReverted
	}
	method, err := s.abi.MethodById(call.Data[:4])
	if err != nil || method.Name != "imageID" {
		return nil, ErrExecutionReverted
	}
	return method.Outputs.Pack(s.ImageID)
}

// HeaderByNumber returns the state header for any number.
func (s *Settlement) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return types.CopyHeader(s.State.Header), nil
}

// ChainID returns the chain ID.
func (s *Settlement) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(s.chainID), nil
}

// BlockNumber returns the state block number.
func (s *Settlement) BlockNumber(context.Context) (uint64, error) {
	return s.State.Header.Number.Uint64(), nil
}

// GetProof returns the bridge account proof and the proofs of the
// requested storage slots.
func (s *Settlement) GetProof(_ context.Context, account common.Address, keys []string, _ *big.Int) (*gethclient.AccountResult, error) {
	if account != s.Address {
		return nil, fmt.Errorf("no proof for %s", account)
	}
	result := &gethclient.AccountResult{
		Address:      account,
		AccountProof: encodeNodes(s.State.AccountProof),
		StorageProof: make([]gethclient.StorageResult, len(keys)),
	}
	for i, key := range keys {
		slot := common.HexToHash(key)
		nodes, err := s.State.StorageProof(slot)
		if err != nil {
			return nil, err
		}
		result.StorageProof[i] = gethclient.StorageResult{
			Key:   key,
			Value: s.State.Storage[slot].Big(),
			Proof: encodeNodes(nodes),
		}
	}
	return result, nil
}

func encodeNodes(nodes [][]byte) []string {
	encoded := make([]string, len(nodes))
	for i, node := range nodes {
		encoded[i] = hexutil.Encode(node)
	}
	return encoded
}

// PendingCodeAt implements bind.ContractTransactor.
func (s *Settlement) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return s.CodeAt(ctx, account, nil)
}

// PendingNonceAt implements bind.ContractTransactor.
func (s *Settlement) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonces[account], nil
}

// SuggestGasPrice implements bind.ContractTransactor.
func (s *Settlement) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// SuggestGasTipCap implements bind.ContractTransactor.
func (s *Settlement) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// EstimateGas implements bind.ContractTransactor.
func (s *Settlement) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

// SendTransaction mines a challenge transaction.
func (s *Settlement) SendTransaction(_ context.Context, tx *types.Transaction) error {
	from, err := types.Sender(types.LatestSignerForChainID(s.chainID), tx)
	if err != nil {
		return err
	}
	if tx.To() == nil || *tx.To() != s.Contract || len(tx.Data()) < 4 {
		return ErrExecutionReverted
	}
	method, err := s.abi.MethodById(tx.Data()[:4])
	if err != nil || method.Name != "challenge" {
		return ErrExecutionReverted
	}
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.Nonce() != s.nonces[from] {
		return fmt.Errorf("nonce too low: have %d, want %d", tx.Nonce(), s.nonces[from])
	}
	s.nonces[from]++

	status := types.ReceiptStatusSuccessful
	if s.Revert {
		status = types.ReceiptStatusFailed
	} else {
		s.Challenges = append(s.Challenges, Challenge{From: from, Journal: args[0].([]byte), Seal: args[1].([]byte)})
	}
	s.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		GasUsed:     21_000,
		BlockNumber: new(big.Int).Add(s.State.Header.Number, common.Big1),
	}
	return nil
}

// TransactionReceipt implements host.TxBackend.
func (s *Settlement) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polls < s.PendingReceipts {
		s.polls++
		return nil, ethereum.NotFound
	}
	receipt, ok := s.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// FilterLogs implements bind.ContractFilterer.
func (s *Settlement) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

// SubscribeFilterLogs implements bind.ContractFilterer.
func (s *Settlement) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, ethereum.NotFound
}

// NewKey returns a deterministic key for tests.
func NewKey(seed byte) (*ecdsa.PrivateKey, error) {
	return crypto.ToECDSA(common.LeftPadBytes([]byte{seed}, 32))
}
