package square

import errorsmod "cosmossdk.io/errors"

// ModuleName is the codespace of the data square errors.
const ModuleName = "square"

var (
	ErrInvalidNumberOfLeaves = errorsmod.Register(ModuleName, 2, "invalid number of leaves in proof")
	ErrProofOverflow         = errorsmod.Register(ModuleName, 3, "proof field overflows its range")
	ErrMerkleProof           = errorsmod.Register(ModuleName, 4, "failed to verify merkle proof")
	ErrShareProof            = errorsmod.Register(ModuleName, 5, "failed to verify share proof")
	ErrParityShare           = errorsmod.Register(ModuleName, 6, "index points to a parity share")
	ErrInvalidSquareWidth    = errorsmod.Register(ModuleName, 7, "invalid square width")
)
