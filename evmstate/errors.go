package evmstate

import errorsmod "cosmossdk.io/errors"

// ModuleName is the codespace of the committed state errors.
const ModuleName = "evmstate"

var (
	ErrUnprovenSlot        = errorsmod.Register(ModuleName, 2, "storage slot not present in committed state")
	ErrInvalidCommitment   = errorsmod.Register(ModuleName, 3, "invalid state commitment")
	ErrInvalidHeader       = errorsmod.Register(ModuleName, 4, "invalid block header")
	ErrInvalidAccountProof = errorsmod.Register(ModuleName, 5, "invalid account proof")
	ErrNoCode              = errorsmod.Register(ModuleName, 6, "no contract code at address")
	ErrInvalidStorageProof = errorsmod.Register(ModuleName, 7, "invalid storage proof")
)
