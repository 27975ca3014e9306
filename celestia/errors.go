package celestia

import errorsmod "cosmossdk.io/errors"

// ModuleName is the codespace of the DA client errors.
const ModuleName = "celestia"

var (
	ErrInvalidHeader  = errorsmod.Register(ModuleName, 2, "invalid block header")
	ErrInvalidProof   = errorsmod.Register(ModuleName, 3, "invalid proof returned by the node")
	ErrBlobNotFound   = errorsmod.Register(ModuleName, 4, "blob not found")
	ErrInvalidBlob    = errorsmod.Register(ModuleName, 5, "invalid blob")
	ErrUnexpectedNode = errorsmod.Register(ModuleName, 6, "unexpected node response")
)
