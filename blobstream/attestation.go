package blobstream

import (
	"bytes"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/celestiaorg/celestia-da-challenge/square"
)

// Bridge is the Blobstream state the verification reads. It is satisfied by
// a Contract bound to a live client or by a StateBridge over proven storage.
type Bridge interface {
	VerifyAttestation(nonce uint64, tuple DataRootTuple, proof BinaryMerkleProof) (bool, error)
	LatestHeight() (uint64, error)
}

// DataRootTuple is the leaf committed to by a Blobstream data commitment.
type DataRootTuple struct {
	Height   *big.Int
	DataRoot [32]byte
}

// BinaryMerkleProof is the ABI form of a proof of a data root tuple.
type BinaryMerkleProof struct {
	SideNodes [][32]byte
	Key       *big.Int
	NumLeaves *big.Int
}

// Attestation asserts that DataRoot is the leaf of block Height in the
// Blobstream data commitment identified by Nonce.
type Attestation struct {
	DataRoot [32]byte
	Height   uint64
	Nonce    uint64
	Proof    square.MerkleProof
}

// AttestationAndRowProof authenticates a block data root and one of its
// row roots.
type AttestationAndRowProof struct {
	Attestation Attestation
	RowProof    square.MerkleProof
	RowRoot     []byte
}

var tupleArguments abi.Arguments

func init() {
	uint256Type, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	bytes32Type, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		panic(err)
	}
	tupleArguments = abi.Arguments{{Type: uint256Type}, {Type: bytes32Type}}
}

// EncodeTuple returns the ABI encoding of a data root tuple, the leaf hashed
// into a data commitment.
func EncodeTuple(height uint64, dataRoot [32]byte) ([]byte, error) {
	return tupleArguments.Pack(new(big.Int).SetUint64(height), dataRoot)
}

// Tuple returns the data root tuple attested to.
func (a Attestation) Tuple() DataRootTuple {
	return DataRootTuple{
		Height:   new(big.Int).SetUint64(a.Height),
		DataRoot: a.DataRoot,
	}
}

// BinaryProof converts the attestation proof into its ABI form.
func (a Attestation) BinaryProof() (BinaryMerkleProof, error) {
	sideNodes := make([][32]byte, len(a.Proof.Aunts))
	for i, aunt := range a.Proof.Aunts {
		if len(aunt) != 32 {
			return BinaryMerkleProof{}, errorsmod.Wrapf(ErrInvalidProof, "side node %d has %d bytes", i, len(aunt))
		}
		copy(sideNodes[i][:], aunt)
	}
	return BinaryMerkleProof{
		SideNodes: sideNodes,
		Key:       new(big.Int).SetUint64(a.Proof.Index),
		NumLeaves: new(big.Int).SetUint64(a.Proof.Total),
	}, nil
}

// VerifyTupleInclusion checks locally that the tuple is included in the
// data commitment root.
func VerifyTupleInclusion(root [32]byte, tuple DataRootTuple, proof BinaryMerkleProof) error {
	if tuple.Height == nil || proof.Key == nil || proof.NumLeaves == nil {
		return errorsmod.Wrap(ErrInvalidProof, "missing field")
	}
	if !tuple.Height.IsUint64() || !proof.Key.IsUint64() || !proof.NumLeaves.IsUint64() {
		return errorsmod.Wrap(ErrInvalidProof, "field exceeds 64 bits")
	}
	leaf, err := EncodeTuple(tuple.Height.Uint64(), tuple.DataRoot)
	if err != nil {
		return errorsmod.Wrap(ErrInvalidProof, err.Error())
	}

	aunts := make([][]byte, len(proof.SideNodes))
	for i := range proof.SideNodes {
		aunts[i] = proof.SideNodes[i][:]
	}
	merkleProof := square.MerkleProof{
		Total:    proof.NumLeaves.Uint64(),
		Index:    proof.Key.Uint64(),
		LeafHash: square.LeafHash(leaf),
		Aunts:    aunts,
	}
	return merkleProof.Verify(root[:], leaf)
}

// VerifyAttestation checks with the bridge that the attested data root is
// part of the data commitment identified by the attestation nonce.
func VerifyAttestation(bridge Bridge, attestation Attestation) error {
	proof, err := attestation.BinaryProof()
	if err != nil {
		return err
	}
	ok, err := bridge.VerifyAttestation(attestation.Nonce, attestation.Tuple(), proof)
	if err != nil {
		return errorsmod.Wrapf(err, "verifyAttestation nonce %d height %d", attestation.Nonce, attestation.Height)
	}
	if !ok {
		return errorsmod.Wrapf(ErrAttestationNotVerified, "nonce %d height %d", attestation.Nonce, attestation.Height)
	}
	return nil
}

// VerifyRowInclusion checks that rowRoot is a leaf of dataRoot.
func VerifyRowInclusion(rowProof square.MerkleProof, rowRoot []byte, dataRoot [32]byte) error {
	if !bytes.Equal(rowProof.LeafHash, square.LeafHash(rowRoot)) {
		return errorsmod.Wrap(ErrRowInclusion, "leaf hash does not match row root")
	}
	if err := rowProof.Verify(dataRoot[:], rowRoot); err != nil {
		return errorsmod.Wrap(ErrRowInclusion, err.Error())
	}
	return nil
}

// VerifyAttestationAndRowProof authenticates the block data root with the
// bridge and then the row root against it.
func VerifyAttestationAndRowProof(bridge Bridge, proof AttestationAndRowProof) error {
	if err := VerifyAttestation(bridge, proof.Attestation); err != nil {
		return err
	}
	return VerifyRowInclusion(proof.RowProof, proof.RowRoot, proof.Attestation.DataRoot)
}

// VerifyInclusion checks locally that the attestation is included in the
// data commitment root.
func (a Attestation) VerifyInclusion(root [32]byte) error {
	proof, err := a.BinaryProof()
	if err != nil {
		return err
	}
	return VerifyTupleInclusion(root, a.Tuple(), proof)
}
