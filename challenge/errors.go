package challenge

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/celestiaorg/celestia-da-challenge/blob"
)

// ModuleName is the codespace of the challenge errors.
const ModuleName = "challenge"

// Input errors: the bundle cannot be judged.
var (
	ErrInvalidBundle                = errorsmod.Register(ModuleName, 2, "invalid challenge bundle")
	ErrMissingIndexBlobData         = errorsmod.Register(ModuleName, 3, "missing index blob data")
	ErrChallengedBlobNotInIndex     = errorsmod.Register(ModuleName, 4, "challenged blob not in index")
	ErrInvalidFirstAttestationNonce = errorsmod.Register(ModuleName, 5, "first Blobstream attestation nonce != 1")
	ErrInvalidFirstAttestationIndex = errorsmod.Register(ModuleName, 6, "first Blobstream attestation index != 0")
	ErrMissingBlockProof            = errorsmod.Register(ModuleName, 7, "missing block proof")
	ErrBlockHeightMismatch          = errorsmod.Register(ModuleName, 8, "block proof height does not match attestation")
	ErrInvalidJournal               = errorsmod.Register(ModuleName, 9, "invalid journal")
)

// Fraud outcomes raised by this package.
var (
	ErrBlockHeightTooLow  = errorsmod.Register(ModuleName, 20, "block height below the first Blobstream attestation")
	ErrBlockHeightTooHigh = errorsmod.Register(ModuleName, 21, "block height above the latest Blobstream height")
)

// ErrBlobAvailable means the blob was proven available: the challenge failed.
var ErrBlobAvailable = errorsmod.Register(ModuleName, 30, "the specified blob is available, DA challenge failed")

var fraudErrors = []error{
	blob.ErrEmptySpanSequence,
	blob.ErrSpanSequenceOverflow,
	blob.ErrIndexReconstruction,
	blob.ErrIndexDeserialization,
	blob.ErrShareIndexOutOfBounds,
	ErrBlockHeightTooLow,
	ErrBlockHeightTooHigh,
}

// IsFraud reports whether err proves the challenged blob unavailable.
func IsFraud(err error) bool {
	return err != nil && errorsmod.IsOf(err, fraudErrors...)
}

// IsInputError reports whether err means the bundle could not be judged.
func IsInputError(err error) bool {
	return err != nil && !IsFraud(err) && !errorsmod.IsOf(err, ErrBlobAvailable)
}
