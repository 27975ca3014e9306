package evmstate

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rlp"
)

// StorageProof proves the value of one storage slot of the bridge.
type StorageProof struct {
	Slot  common.Hash
	Proof [][]byte
}

// Storage holds storage slots proven under a state root.
type Storage map[common.Hash]common.Hash

// StorageAt returns the proven value of slot.
func (s Storage) StorageAt(slot common.Hash) (common.Hash, error) {
	value, ok := s[slot]
	if !ok {
		return common.Hash{}, errorsmod.Wrapf(ErrUnprovenSlot, "%s", slot)
	}
	return value, nil
}

// VerifyStorageProof returns the value of slot in the storage trie with the
// given root. A slot proven absent is zero.
func VerifyStorageProof(storageRoot, slot common.Hash, proof [][]byte) (common.Hash, error) {
	if storageRoot == types.EmptyRootHash {
		return common.Hash{}, nil
	}
	value, err := VerifyMerklePatriciaTrieProof(storageRoot, crypto.Keccak256(slot.Bytes()), proof)
	if err != nil {
		return common.Hash{}, errorsmod.Wrapf(ErrInvalidStorageProof, "slot %s: %s", slot, err)
	}
	if len(value) == 0 {
		return common.Hash{}, nil
	}
	var content []byte
	if err := rlp.DecodeBytes(value, &content); err != nil {
		return common.Hash{}, errorsmod.Wrapf(ErrInvalidStorageProof, "slot %s: %s", slot, err)
	}
	if len(content) > common.HashLength {
		return common.Hash{}, errorsmod.Wrapf(ErrInvalidStorageProof, "slot %s holds %d bytes", slot, len(content))
	}
	return common.BytesToHash(content), nil
}

// DecodeProofs decodes the hex proof nodes of an eth_getProof answer.
func DecodeProofs(result *gethclient.AccountResult) ([][]byte, []StorageProof, error) {
	accountProof, err := decodeNodes(result.AccountProof)
	if err != nil {
		return nil, nil, errorsmod.Wrap(ErrInvalidAccountProof, err.Error())
	}
	storage := make([]StorageProof, len(result.StorageProof))
	for i, sp := range result.StorageProof {
		key, err := hexutil.Decode(sp.Key)
		if err != nil || len(key) > common.HashLength {
			return nil, nil, errorsmod.Wrapf(ErrInvalidStorageProof, "key %q", sp.Key)
		}
		nodes, err := decodeNodes(sp.Proof)
		if err != nil {
			return nil, nil, errorsmod.Wrapf(ErrInvalidStorageProof, "slot %s: %s", sp.Key, err)
		}
		storage[i] = StorageProof{Slot: common.BytesToHash(key), Proof: nodes}
	}
	return accountProof, storage, nil
}

func decodeNodes(encoded []string) ([][]byte, error) {
	nodes := make([][]byte, len(encoded))
	for i, node := range encoded {
		var err error
		if nodes[i], err = hexutil.Decode(node); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}
