package evmstate

import (
	"bytes"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

// VerifyMerklePatriciaTrieProof returns the value stored at key in the trie
// with the given root.
func VerifyMerklePatriciaTrieProof(rootHash common.Hash, key []byte, proof [][]byte) ([]byte, error) {
	proofDB, err := ReconstructProofDB(proof)
	if err != nil {
		return nil, fmt.Errorf("failed to decode proof: %w", err)
	}
	return trie.VerifyProof(rootHash, key, proofDB)
}

// ReconstructProofDB stores each proof node under its hash.
func ReconstructProofDB(proof [][]byte) (ethdb.Database, error) {
	proofDB := rawdb.NewMemoryDatabase()
	for i, encodedNode := range proof {
		nodeKey := encodedNode
		if len(encodedNode) >= 32 { // small MPT nodes are not hashed
			nodeKey = crypto.Keccak256(encodedNode)
		}
		if err := proofDB.Put(nodeKey, encodedNode); err != nil {
			return nil, fmt.Errorf("failed to load account proof node %d into mem db: %w", i, err)
		}
	}

	return proofDB, nil
}

// VerifyAccountProof proves the account at address under the state root and
// checks that it holds contract code.
func VerifyAccountProof(stateRoot common.Hash, address common.Address, proof [][]byte) (*types.StateAccount, error) {
	value, err := VerifyMerklePatriciaTrieProof(stateRoot, crypto.Keccak256(address.Bytes()), proof)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidAccountProof, err.Error())
	}
	if len(value) == 0 {
		return nil, errorsmod.Wrapf(ErrInvalidAccountProof, "account %s does not exist", address)
	}

	var account types.StateAccount
	if err := rlp.DecodeBytes(value, &account); err != nil {
		return nil, errorsmod.Wrap(ErrInvalidAccountProof, err.Error())
	}
	if bytes.Equal(account.CodeHash, types.EmptyCodeHash.Bytes()) {
		return nil, errorsmod.Wrapf(ErrNoCode, "%s", address)
	}
	return &account, nil
}
