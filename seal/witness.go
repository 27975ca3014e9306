package seal

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/witness"
)

// NbPublicInputs is the number of public inputs of a seal.
const NbPublicInputs = 4

// PublicWitness binds a seal to the program that ran and the journal it
// produced. Both 32-byte digests are split into two 128-bit halves to fit
// the BN254 scalar field.
type PublicWitness struct {
	// ImageID identifies the verification program.
	ImageID [32]byte
	// JournalDigest is the sha256 of the journal.
	JournalDigest [32]byte
}

// NewPublicWitness returns the public witness of a journal.
func NewPublicWitness(imageID [32]byte, journal []byte) PublicWitness {
	return PublicWitness{
		ImageID:       imageID,
		JournalDigest: sha256.Sum256(journal),
	}
}

// Inputs returns the public inputs in circuit order.
func (p PublicWitness) Inputs() [NbPublicInputs]*big.Int {
	return [NbPublicInputs]*big.Int{
		new(big.Int).SetBytes(p.ImageID[:16]),
		new(big.Int).SetBytes(p.ImageID[16:]),
		new(big.Int).SetBytes(p.JournalDigest[:16]),
		new(big.Int).SetBytes(p.JournalDigest[16:]),
	}
}

func (p PublicWitness) Generate() (witness.Witness, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	inputs := p.Inputs()
	values := make(chan any, NbPublicInputs)
	for _, input := range inputs {
		values <- input
	}
	close(values)

	err = w.Fill(NbPublicInputs, 0, values)
	if err != nil {
		return nil, fmt.Errorf("failed to fill witness: %w", err)
	}

	return w, nil
}
