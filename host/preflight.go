package host

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	eth2client "github.com/attestantio/go-eth2-client"
	"github.com/attestantio/go-eth2-client/api"
	eth2http "github.com/attestantio/go-eth2-client/http"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/rs/zerolog"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/challenge"
	"github.com/celestiaorg/celestia-da-challenge/evmstate"
)

// SettlementChain is the settlement chain client used by the preflight.
// *ethclient.Client satisfies it.
type SettlementChain interface {
	bind.ContractCaller
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// AccountProver returns eth_getProof results. *gethclient.Client satisfies it.
type AccountProver interface {
	GetProof(ctx context.Context, account common.Address, keys []string, blockNumber *big.Int) (*gethclient.AccountResult, error)
}

// BlockPinner selects the settlement block the snapshot is taken at.
type BlockPinner interface {
	Pin(ctx context.Context, chain SettlementChain) (*types.Header, error)
}

// LatestPinner pins the latest block.
type LatestPinner struct{}

func (LatestPinner) Pin(ctx context.Context, chain SettlementChain) (*types.Header, error) {
	return chain.HeaderByNumber(ctx, nil)
}

// NumberPinner pins a fixed block number.
type NumberPinner uint64

func (n NumberPinner) Pin(ctx context.Context, chain SettlementChain) (*types.Header, error) {
	return chain.HeaderByNumber(ctx, new(big.Int).SetUint64(uint64(n)))
}

// BeaconPinner pins the execution block of the finalized beacon block, so the
// snapshot cannot be reorged away.
type BeaconPinner struct {
	blocks eth2client.SignedBeaconBlockProvider
}

// NewBeaconPinner connects to a beacon node API.
func NewBeaconPinner(ctx context.Context, address string) (*BeaconPinner, error) {
	client, err := eth2http.New(ctx,
		eth2http.WithAddress(address),
		eth2http.WithLogLevel(zerolog.WarnLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to beacon node: %w", err)
	}
	blocks, ok := client.(eth2client.SignedBeaconBlockProvider)
	if !ok {
		return nil, fmt.Errorf("beacon client at %s cannot serve blocks", address)
	}
	return &BeaconPinner{blocks: blocks}, nil
}

func (b *BeaconPinner) Pin(ctx context.Context, chain SettlementChain) (*types.Header, error) {
	resp, err := b.blocks.SignedBeaconBlock(ctx, &api.SignedBeaconBlockOpts{Block: "finalized"})
	if err != nil {
		return nil, fmt.Errorf("failed to get finalized beacon block: %w", err)
	}
	number, err := resp.Data.ExecutionBlockNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to get finalized execution block number: %w", err)
	}
	return NumberPinner(number).Pin(ctx, chain)
}

// Preflight pins a settlement block, detects the bridge implementation and
// proves the bridge storage slots the engine reads for a bundle, producing
// the snapshot the bundle is executed against.
type Preflight struct {
	chain  SettlementChain
	prover AccountProver
	bridge common.Address
	pinner BlockPinner
	logger log.Logger
}

// NewPreflight returns a Preflight pinning blocks with pinner, or the latest
// block if pinner is nil.
func NewPreflight(chain SettlementChain, prover AccountProver, bridge common.Address, pinner BlockPinner, logger log.Logger) *Preflight {
	if pinner == nil {
		pinner = LatestPinner{}
	}
	return &Preflight{
		chain:  chain,
		prover: prover,
		bridge: bridge,
		pinner: pinner,
		logger: logger.With("module", "preflight"),
	}
}

// Run takes the snapshot for bundle.
func (p *Preflight) Run(ctx context.Context, bundle *challenge.Bundle) (*evmstate.Snapshot, error) {
	chainID, err := p.chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	header, err := p.pinner.Pin(ctx, p.chain)
	if err != nil {
		return nil, fmt.Errorf("failed to pin settlement block: %w", err)
	}
	number := header.Number.Uint64()
	p.logger.Info("pinned settlement block", "number", number, "hash", header.Hash())

	watch := &watchCaller{caller: p.chain}
	contract, err := blobstream.NewContract(p.bridge, watch, &bind.CallOpts{Context: ctx, BlockNumber: header.Number})
	if err != nil {
		return nil, err
	}
	implementation, err := contract.Probe()
	if err != nil {
		if werr := watch.Err(); werr != nil {
			return nil, fmt.Errorf("failed to probe bridge: %w", werr)
		}
		return nil, err
	}
	latest, err := contract.LatestHeight()
	if err != nil {
		return nil, fmt.Errorf("failed to get latest Blobstream height: %w", err)
	}

	layout, err := blobstream.Layout(implementation)
	if err != nil {
		return nil, err
	}
	slots := layout.Slots(bundle.AttestationNonces()...)
	keys := make([]string, len(slots))
	for i, slot := range slots {
		keys[i] = slot.Hex()
	}

	result, err := p.prover.GetProof(ctx, p.bridge, keys, header.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to get bridge proofs: %w", err)
	}
	accountProof, storageProofs, err := evmstate.DecodeProofs(result)
	if err != nil {
		return nil, err
	}

	snapshot, err := evmstate.NewSnapshot(chainID.Uint64(), header, p.bridge, uint8(implementation), accountProof, storageProofs)
	if err != nil {
		return nil, err
	}
	_, storage, err := snapshot.Verify()
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot at block %d: %w", number, err)
	}
	if err := p.checkLayout(storage, implementation, latest); err != nil {
		return nil, err
	}
	p.logger.Debug("proved bridge storage", "implementation", implementation, "slots", len(slots), "latest_height", latest)
	return snapshot, nil
}

// checkLayout compares the proven latest height with the one the bridge
// reports, catching a deployment whose storage does not follow the layout.
func (p *Preflight) checkLayout(storage evmstate.Storage, implementation blobstream.Implementation, latest uint64) error {
	bridge, err := blobstream.NewStateBridge(storage, implementation)
	if err != nil {
		return err
	}
	proven, err := bridge.LatestHeight()
	if err != nil {
		return err
	}
	if proven != latest {
		return errorsmod.Wrapf(ErrStorageLayout, "%s bridge %s reports latest height %d, storage holds %d", implementation, p.bridge, latest, proven)
	}
	return nil
}

// watchCaller remembers the first transient failure so that a bridge call
// lost to the network is not mistaken for a contract answer.
type watchCaller struct {
	caller bind.ContractCaller

	mu  sync.Mutex
	err error
}

func (w *watchCaller) observe(err error) {
	if !IsTransient(err) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *watchCaller) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *watchCaller) CodeAt(ctx context.Context, account common.Address, block *big.Int) ([]byte, error) {
	code, err := w.caller.CodeAt(ctx, account, block)
	w.observe(err)
	return code, err
}

func (w *watchCaller) CallContract(ctx context.Context, call ethereum.CallMsg, block *big.Int) ([]byte, error) {
	result, err := w.caller.CallContract(ctx, call, block)
	w.observe(err)
	return result, err
}
