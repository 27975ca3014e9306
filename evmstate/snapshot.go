package evmstate

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Commitment identifies the settlement chain block whose state a
// verification read. The settlement contract checks Digest against the
// hash of block ID.
type Commitment struct {
	ID       *big.Int
	Digest   common.Hash
	ConfigID common.Hash
}

// ConfigID identifies the chain the commitment belongs to and the bridge
// implementation whose storage layout the verification read.
func ConfigID(chainID uint64, implementation uint8) common.Hash {
	return crypto.Keccak256Hash(
		common.LeftPadBytes(new(big.Int).SetUint64(chainID).Bytes(), 32),
		common.LeftPadBytes([]byte{implementation}, 32),
	)
}

// NewCommitment commits to header on the given chain.
func NewCommitment(header *types.Header, chainID uint64, implementation uint8) Commitment {
	return Commitment{
		ID:       new(big.Int).Set(header.Number),
		Digest:   header.Hash(),
		ConfigID: ConfigID(chainID, implementation),
	}
}

// Snapshot is the settlement chain state a verification runs against: a
// header, a proof of the bridge account under its state root, and proofs of
// the bridge storage slots under the account storage root.
type Snapshot struct {
	Commitment     Commitment
	ChainID        uint64
	Header         []byte
	Bridge         common.Address
	Implementation uint8
	AccountProof   [][]byte
	StorageProofs  []StorageProof
}

// NewSnapshot assembles a snapshot from a header and eth_getProof proofs.
func NewSnapshot(chainID uint64, header *types.Header, bridge common.Address, implementation uint8, accountProof [][]byte, storage []StorageProof) (*Snapshot, error) {
	encoded, err := rlp.EncodeToBytes(header)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidHeader, err.Error())
	}
	return &Snapshot{
		Commitment:     NewCommitment(header, chainID, implementation),
		ChainID:        chainID,
		Header:         encoded,
		Bridge:         bridge,
		Implementation: implementation,
		AccountProof:   accountProof,
		StorageProofs:  storage,
	}, nil
}

// DecodeHeader returns the snapshot block header.
func (s Snapshot) DecodeHeader() (*types.Header, error) {
	var header types.Header
	if err := rlp.DecodeBytes(s.Header, &header); err != nil {
		return nil, errorsmod.Wrap(ErrInvalidHeader, err.Error())
	}
	if header.Number == nil {
		return nil, errorsmod.Wrap(ErrInvalidHeader, "missing block number")
	}
	return &header, nil
}

// Validate checks that the commitment matches the header, that the bridge
// account holds code under the header state root and that every storage
// proof verifies under the account storage root.
func (s Snapshot) Validate() (Commitment, error) {
	commitment, _, err := s.Verify()
	return commitment, err
}

// Verify validates the snapshot and returns the proven bridge storage.
func (s Snapshot) Verify() (Commitment, Storage, error) {
	if s.Bridge == (common.Address{}) {
		return Commitment{}, nil, errorsmod.Wrap(ErrInvalidCommitment, "zero bridge address")
	}
	header, err := s.DecodeHeader()
	if err != nil {
		return Commitment{}, nil, err
	}
	if s.Commitment.ID == nil || s.Commitment.ID.Cmp(header.Number) != 0 {
		return Commitment{}, nil, errorsmod.Wrapf(ErrInvalidCommitment, "commitment id %v, header number %v", s.Commitment.ID, header.Number)
	}
	if s.Commitment.Digest != header.Hash() {
		return Commitment{}, nil, errorsmod.Wrapf(ErrInvalidCommitment, "commitment digest %s, header hash %s", s.Commitment.Digest, header.Hash())
	}
	if s.Commitment.ConfigID != ConfigID(s.ChainID, s.Implementation) {
		return Commitment{}, nil, errorsmod.Wrapf(ErrInvalidCommitment, "config id %s does not match chain %d implementation %d", s.Commitment.ConfigID, s.ChainID, s.Implementation)
	}
	account, err := VerifyAccountProof(header.Root, s.Bridge, s.AccountProof)
	if err != nil {
		return Commitment{}, nil, err
	}

	storage := make(Storage, len(s.StorageProofs))
	for _, proof := range s.StorageProofs {
		value, err := VerifyStorageProof(account.Root, proof.Slot, proof.Proof)
		if err != nil {
			return Commitment{}, nil, err
		}
		storage[proof.Slot] = value
	}
	return s.Commitment, storage, nil
}

// Marshal encodes the snapshot.
func (s Snapshot) Marshal() ([]byte, error) {
	return rlp.EncodeToBytes(s)
}

// UnmarshalSnapshot decodes an encoded snapshot.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, errorsmod.Wrap(ErrInvalidCommitment, err.Error())
	}
	return &s, nil
}
