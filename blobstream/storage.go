package blobstream

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// StorageLayout locates the bridge state read by the verification.
type StorageLayout struct {
	// LatestHeight holds the latest covered DA height in its low 8 bytes.
	LatestHeight common.Hash
	// ProofNonce holds the nonce the next data commitment will get.
	ProofNonce common.Hash
	// DataCommitments is the base slot of the nonce to data commitment
	// root mapping.
	DataCommitments common.Hash
}

var layouts = map[Implementation]StorageLayout{
	// latestBlockHash, latestHeight, proofNonce, merkleRoots after the
	// verifier and image ID
	ImplementationR0: {
		LatestHeight:    common.BigToHash(big.NewInt(3)),
		ProofNonce:      common.BigToHash(big.NewInt(4)),
		DataCommitments: common.BigToHash(big.NewInt(5)),
	},
	// latestBlock, state_proofNonce, blockHeightToHeaderHash,
	// state_dataCommitments
	ImplementationSP1: {
		LatestHeight:    common.BigToHash(big.NewInt(0)),
		ProofNonce:      common.BigToHash(big.NewInt(1)),
		DataCommitments: common.BigToHash(big.NewInt(3)),
	},
}

// Layout returns the storage layout of an implementation.
func Layout(implementation Implementation) (StorageLayout, error) {
	layout, ok := layouts[implementation]
	if !ok {
		return StorageLayout{}, errorsmod.Wrapf(ErrUnknownImplementation, "%d", implementation)
	}
	return layout, nil
}

// DataCommitmentSlot returns the slot of the data commitment root with the
// given nonce: keccak256(nonce . base).
func (l StorageLayout) DataCommitmentSlot(nonce uint64) common.Hash {
	key := common.LeftPadBytes(new(big.Int).SetUint64(nonce).Bytes(), 32)
	return crypto.Keccak256Hash(key, l.DataCommitments.Bytes())
}

// Slots returns the slots read when verifying attestations with the given
// nonces.
func (l StorageLayout) Slots(nonces ...uint64) []common.Hash {
	slots := []common.Hash{l.LatestHeight, l.ProofNonce}
	seen := make(map[uint64]bool, len(nonces))
	for _, nonce := range nonces {
		if seen[nonce] {
			continue
		}
		seen[nonce] = true
		slots = append(slots, l.DataCommitmentSlot(nonce))
	}
	return slots
}

// StorageReader returns the value of a bridge storage slot.
type StorageReader interface {
	StorageAt(slot common.Hash) (common.Hash, error)
}

// StateBridge answers the bridge queries from its storage, the way the
// contract does, without executing it.
type StateBridge struct {
	storage StorageReader
	layout  StorageLayout
}

var _ Bridge = (*StateBridge)(nil)

// NewStateBridge reads the bridge state of implementation from storage.
func NewStateBridge(storage StorageReader, implementation Implementation) (*StateBridge, error) {
	layout, err := Layout(implementation)
	if err != nil {
		return nil, err
	}
	return &StateBridge{storage: storage, layout: layout}, nil
}

// LatestHeight implements Bridge.
func (b *StateBridge) LatestHeight() (uint64, error) {
	value, err := b.storage.StorageAt(b.layout.LatestHeight)
	if err != nil {
		return 0, err
	}
	return new(big.Int).SetBytes(value[24:]).Uint64(), nil
}

// VerifyAttestation implements Bridge. Nonces outside [1, proofNonce) are
// not attested.
func (b *StateBridge) VerifyAttestation(nonce uint64, tuple DataRootTuple, proof BinaryMerkleProof) (bool, error) {
	next, err := b.storage.StorageAt(b.layout.ProofNonce)
	if err != nil {
		return false, err
	}
	if nonce == 0 || new(big.Int).SetUint64(nonce).Cmp(next.Big()) >= 0 {
		return false, nil
	}
	root, err := b.storage.StorageAt(b.layout.DataCommitmentSlot(nonce))
	if err != nil {
		return false, err
	}
	if root == (common.Hash{}) {
		return false, nil
	}
	return VerifyTupleInclusion(root, tuple, proof) == nil, nil
}
