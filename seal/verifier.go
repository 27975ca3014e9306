package seal

import (
	"bytes"

	errorsmod "cosmossdk.io/errors"
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
)

// Receipt is the output of a proven execution: the journal and the seal
// attesting that the program with a given image ID produced it.
type Receipt struct {
	Journal []byte
	Seal    []byte
}

// Verifier checks Groth16 seals over BN254.
type Verifier struct {
	vk groth16.VerifyingKey
}

// NewVerifier returns a verifier for the given key.
func NewVerifier(vk groth16.VerifyingKey) *Verifier {
	return &Verifier{vk: vk}
}

// Verify checks that seal proves the execution of imageID with the given
// journal.
func (v *Verifier) Verify(imageID [32]byte, journal, seal []byte) error {
	if len(seal) == 0 {
		return ErrMissingSeal
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(seal)); err != nil {
		return errorsmod.Wrap(ErrInvalidSeal, err.Error())
	}

	w, err := NewPublicWitness(imageID, journal).Generate()
	if err != nil {
		return err
	}
	if err := groth16.Verify(proof, v.vk, w); err != nil {
		return errorsmod.Wrap(ErrSealVerification, err.Error())
	}
	return nil
}

// VerifyReceipt checks the seal of a receipt.
func (v *Verifier) VerifyReceipt(imageID [32]byte, receipt Receipt) error {
	return v.Verify(imageID, receipt.Journal, receipt.Seal)
}
