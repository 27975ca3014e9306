package blob

import errorsmod "cosmossdk.io/errors"

// ModuleName is the codespace of the blob errors.
const ModuleName = "blob"

var (
	ErrEmptySpanSequence     = errorsmod.Register(ModuleName, 2, "sequence of spans is empty")
	ErrSpanSequenceOverflow  = errorsmod.Register(ModuleName, 3, "overflow while computing span sequence end")
	ErrInvalidSpanSequence   = errorsmod.Register(ModuleName, 4, "invalid span sequence")
	ErrIndexReconstruction   = errorsmod.Register(ModuleName, 5, "failed to reconstruct index blob from shares")
	ErrIndexDeserialization  = errorsmod.Register(ModuleName, 6, "failed to deserialize index blob")
	ErrUnsupportedAppVersion = errorsmod.Register(ModuleName, 7, "unsupported app version")
	ErrShareIndexOutOfBounds = errorsmod.Register(ModuleName, 8, "share index out of bounds")
	ErrShareIndexMismatch    = errorsmod.Register(ModuleName, 9, "invalid share proof start index")
	ErrMissingShareProof     = errorsmod.Register(ModuleName, 10, "missing share proof")
)
