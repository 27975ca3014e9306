package seal

import errorsmod "cosmossdk.io/errors"

// ModuleName is the codespace of the seal errors.
const ModuleName = "seal"

var (
	ErrInvalidVerifyingKey = errorsmod.Register(ModuleName, 2, "invalid verifying key")
	ErrInvalidSeal         = errorsmod.Register(ModuleName, 3, "invalid seal")
	ErrSealVerification    = errorsmod.Register(ModuleName, 4, "seal verification failed")
	ErrMissingSeal         = errorsmod.Register(ModuleName, 5, "receipt has no seal")
)
