package blobstream

import (
	"fmt"
	"math/big"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Implementation identifies which Blobstream contract is deployed.
type Implementation uint8

const (
	ImplementationUnknown Implementation = iota
	// ImplementationR0 is the RISC Zero Blobstream, exposing latestHeight.
	ImplementationR0
	// ImplementationSP1 is the SP1 Blobstream, exposing latestBlock.
	ImplementationSP1
)

func (i Implementation) String() string {
	switch i {
	case ImplementationR0:
		return "r0"
	case ImplementationSP1:
		return "sp1"
	default:
		return "unknown"
	}
}

// Contract is a Blobstream bridge bound to a contract caller. The deployed
// implementation is probed on first use and cached for the contract's
// lifetime.
type Contract struct {
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
	opts    *bind.CallOpts

	mu             sync.Mutex
	implementation Implementation
}

var _ Bridge = (*Contract)(nil)

// NewContract binds the bridge at address. opts may be nil.
func NewContract(address common.Address, caller bind.ContractCaller, opts *bind.CallOpts) (*Contract, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &bind.CallOpts{}
	}
	return &Contract{
		address: address,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, parsed, caller, nil, nil),
		opts:    opts,
	}, nil
}

// Address returns the address of the bridge.
func (c *Contract) Address() common.Address {
	return c.address
}

// SetImplementation fixes the implementation without probing, for callers
// that already know it.
func (c *Contract) SetImplementation(implementation Implementation) error {
	if implementation != ImplementationR0 && implementation != ImplementationSP1 {
		return errorsmod.Wrapf(ErrUnknownImplementation, "%d", implementation)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.implementation = implementation
	return nil
}

// Probe detects the deployed implementation by calling latestHeight and
// then latestBlock.
func (c *Contract) Probe() (Implementation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.implementation != ImplementationUnknown {
		return c.implementation, nil
	}

	if _, err := c.callUint64(methodLatestHeight); err == nil {
		c.implementation = ImplementationR0
		return c.implementation, nil
	}
	if _, err := c.callUint64(methodLatestBlock); err == nil {
		c.implementation = ImplementationSP1
		return c.implementation, nil
	}
	return ImplementationUnknown, errorsmod.Wrapf(ErrUnknownImplementation, "contract %s exposes neither %s nor %s", c.address, methodLatestHeight, methodLatestBlock)
}

// LatestHeight returns the highest DA block height covered by the bridge.
func (c *Contract) LatestHeight() (uint64, error) {
	implementation, err := c.Probe()
	if err != nil {
		return 0, err
	}
	switch implementation {
	case ImplementationR0:
		return c.callUint64(methodLatestHeight)
	default:
		return c.callUint64(methodLatestBlock)
	}
}

// VerifyAttestation calls the bridge inclusion-proof verifier.
func (c *Contract) VerifyAttestation(nonce uint64, tuple DataRootTuple, proof BinaryMerkleProof) (bool, error) {
	var out []interface{}
	err := c.bound.Call(c.opts, &out, methodVerifyAttestation, new(big.Int).SetUint64(nonce), tuple, proof)
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, fmt.Errorf("%s returned %d values", methodVerifyAttestation, len(out))
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (c *Contract) callUint64(method string) (uint64, error) {
	var out []interface{}
	if err := c.bound.Call(c.opts, &out, method); err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("%s returned %d values", method, len(out))
	}
	return *abi.ConvertType(out[0], new(uint64)).(*uint64), nil
}

// ParseDataCommitmentStored decodes a DataCommitmentStored log.
func (c *Contract) ParseDataCommitmentStored(log types.Log) (DataCommitment, error) {
	var event struct {
		ProofNonce     *big.Int
		StartBlock     uint64
		EndBlock       uint64
		DataCommitment [32]byte
	}
	if err := c.bound.UnpackLog(&event, eventDataCommitment, log); err != nil {
		return DataCommitment{}, errorsmod.Wrap(ErrInvalidEvent, err.Error())
	}
	if event.ProofNonce == nil || !event.ProofNonce.IsUint64() {
		return DataCommitment{}, errorsmod.Wrapf(ErrInvalidEvent, "proof nonce %v", event.ProofNonce)
	}

	commitment := DataCommitment{
		Nonce:       event.ProofNonce.Uint64(),
		StartBlock:  event.StartBlock,
		EndBlock:    event.EndBlock,
		Root:        event.DataCommitment,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
	}
	if err := commitment.Validate(); err != nil {
		return DataCommitment{}, err
	}
	return commitment, nil
}

// EventID returns the topic of DataCommitmentStored.
func (c *Contract) EventID() common.Hash {
	return c.abi.Events[eventDataCommitment].ID
}
