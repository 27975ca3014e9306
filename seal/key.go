package seal

import (
	"bytes"
	"fmt"
	"os"

	errorsmod "cosmossdk.io/errors"
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
)

func SerializeVerifyingKey(vk groth16.VerifyingKey) ([]byte, error) {
	var buf bytes.Buffer
	_, err := vk.WriteTo(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DeserializeVerifyingKey(data []byte) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err := vk.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidVerifyingKey, err.Error())
	}
	if vk.NbPublicWitness() != NbPublicInputs {
		return nil, errorsmod.Wrapf(ErrInvalidVerifyingKey, "key expects %d public inputs, want %d", vk.NbPublicWitness(), NbPublicInputs)
	}
	return vk, nil
}

// LoadVerifyingKey reads a serialized verifying key from path.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vk file %w", err)
	}
	return DeserializeVerifyingKey(data)
}
