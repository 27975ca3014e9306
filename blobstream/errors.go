package blobstream

import errorsmod "cosmossdk.io/errors"

// ModuleName is the codespace of the Blobstream errors.
const ModuleName = "blobstream"

var (
	ErrAttestationNotVerified = errorsmod.Register(ModuleName, 2, "blobstream attestation not verified")
	ErrRowInclusion           = errorsmod.Register(ModuleName, 3, "failed to verify row proof")
	ErrUnknownImplementation  = errorsmod.Register(ModuleName, 4, "unknown blobstream implementation")
	ErrInvalidProof           = errorsmod.Register(ModuleName, 5, "invalid blobstream proof")
	ErrEventNotFound          = errorsmod.Register(ModuleName, 6, "DataCommitmentStored event not found")
	ErrFirstEventNonce        = errorsmod.Register(ModuleName, 7, "first DataCommitmentStored event nonce != 1")
	ErrInvalidEvent           = errorsmod.Register(ModuleName, 8, "invalid DataCommitmentStored event")
)
