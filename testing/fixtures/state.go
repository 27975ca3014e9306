package fixtures

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/holiman/uint256"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/evmstate"
)

// BridgeCode is the runtime code stored at the bridge account.
var BridgeCode = []byte{0x60, 0x80, 0x60, 0x40}

type proofCollector struct {
	nodes [][]byte
}

func (c *proofCollector) Put(_ []byte, value []byte) error {
	c.nodes = append(c.nodes, common.CopyBytes(value))
	return nil
}

func (c *proofCollector) Delete([]byte) error {
	return nil
}

func newTrie() *trie.Trie {
	return trie.NewEmpty(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil))
}

func prove(tr *trie.Trie, key []byte) ([][]byte, error) {
	collector := &proofCollector{}
	if err := tr.Prove(key, collector); err != nil {
		return nil, err
	}
	return collector.nodes, nil
}

// State is a settlement chain state with the bridge contract deployed and
// the header committing to it.
type State struct {
	Header       *types.Header
	AccountProof [][]byte
	Storage      map[common.Hash]common.Hash

	storage *trie.Trie
}

// StateWithAccount builds a state trie holding a contract account at
// address without storage, plus filler accounts, and a header at number
// over it.
func StateWithAccount(address common.Address, number uint64) (*State, error) {
	return NewState(address, number, nil)
}

// NewState builds a state trie holding a contract account at address with
// the given storage, plus filler accounts, and a header at number over it.
func NewState(address common.Address, number uint64, storage map[common.Hash]common.Hash) (*State, error) {
	storageTrie := newTrie()
	for slot, value := range storage {
		if value == (common.Hash{}) {
			continue
		}
		encoded, err := rlp.EncodeToBytes(common.TrimLeftZeroes(value[:]))
		if err != nil {
			return nil, err
		}
		storageTrie.MustUpdate(crypto.Keccak256(slot[:]), encoded)
	}

	tr := newTrie()
	accounts := map[common.Address]*types.StateAccount{
		address: {
			Nonce:    1,
			Balance:  uint256.NewInt(0),
			Root:     storageTrie.Hash(),
			CodeHash: crypto.Keccak256(BridgeCode),
		},
	}
	for i := byte(1); i <= 16; i++ {
		accounts[common.BytesToAddress([]byte{0xEE, i})] = &types.StateAccount{
			Balance:  uint256.NewInt(uint64(i) * 1e9),
			Root:     types.EmptyRootHash,
			CodeHash: types.EmptyCodeHash.Bytes(),
		}
	}
	for addr, account := range accounts {
		value, err := rlp.EncodeToBytes(account)
		if err != nil {
			return nil, err
		}
		tr.MustUpdate(crypto.Keccak256(addr.Bytes()), value)
	}

	accountProof, err := prove(tr, crypto.Keccak256(address.Bytes()))
	if err != nil {
		return nil, err
	}

	header := &types.Header{
		ParentHash: common.HexToHash("0x01"),
		Root:       tr.Hash(),
		Number:     new(big.Int).SetUint64(number),
		GasLimit:   30_000_000,
		Time:       1_700_000_000 + number*12,
		Difficulty: big.NewInt(0),
		BaseFee:    big.NewInt(1_000_000_000),
	}
	return &State{
		Header:       header,
		AccountProof: accountProof,
		Storage:      storage,
		storage:      storageTrie,
	}, nil
}

// StorageProof proves the value of slot, or its absence.
func (s *State) StorageProof(slot common.Hash) ([][]byte, error) {
	if s.storage.Hash() == types.EmptyRootHash {
		return nil, nil
	}
	return prove(s.storage, crypto.Keccak256(slot[:]))
}

// StorageProofs proves the given slots.
func (s *State) StorageProofs(slots ...common.Hash) ([]evmstate.StorageProof, error) {
	proofs := make([]evmstate.StorageProof, len(slots))
	for i, slot := range slots {
		nodes, err := s.StorageProof(slot)
		if err != nil {
			return nil, err
		}
		proofs[i] = evmstate.StorageProof{Slot: slot, Proof: nodes}
	}
	return proofs, nil
}

// BridgeStorage lays out the state of bs the way the implementation stores
// it.
func BridgeStorage(bs *Blobstream, implementation blobstream.Implementation) (map[common.Hash]common.Hash, error) {
	layout, err := blobstream.Layout(implementation)
	if err != nil {
		return nil, err
	}
	latest, err := bs.LatestHeight()
	if err != nil {
		return nil, err
	}
	storage := map[common.Hash]common.Hash{
		layout.LatestHeight: common.BigToHash(new(big.Int).SetUint64(latest)),
		layout.ProofNonce:   common.BigToHash(new(big.Int).SetUint64(uint64(len(bs.Batches)) + 1)),
	}
	for _, batch := range bs.Batches {
		storage[layout.DataCommitmentSlot(batch.Nonce)] = batch.Root
	}
	return storage, nil
}

// BridgeState deploys the bridge at address holding the state of bs, at
// block number.
func BridgeState(address common.Address, bs *Blobstream, implementation blobstream.Implementation, number uint64) (*State, error) {
	storage, err := BridgeStorage(bs, implementation)
	if err != nil {
		return nil, fmt.Errorf("bridge storage: %w", err)
	}
	return NewState(address, number, storage)
}
