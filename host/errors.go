package host

import errorsmod "cosmossdk.io/errors"

// ModuleName is the codespace of the host errors.
const ModuleName = "host"

var (
	ErrImageIDMismatch    = errorsmod.Register(ModuleName, 2, "settlement contract image ID does not match")
	ErrTransactionFailed  = errorsmod.Register(ModuleName, 3, "transaction failed")
	ErrConditionTimeout   = errorsmod.Register(ModuleName, 4, "timed out waiting for condition")
	ErrInvalidAttestation = errorsmod.Register(ModuleName, 5, "invalid attestation data")
	ErrNoPayloads         = errorsmod.Register(ModuleName, 6, "nothing to publish")
	ErrSealRejected       = errorsmod.Register(ModuleName, 7, "seal rejected")
	ErrStorageLayout      = errorsmod.Register(ModuleName, 8, "bridge storage does not match the bridge answers")
)
