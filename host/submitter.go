package host

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/celestiaorg/celestia-da-challenge/metrics"
	"github.com/celestiaorg/celestia-da-challenge/seal"
)

// SettlementABI is the part of the settlement contract the submitter calls.
const SettlementABI = `[
	{"type":"function","name":"imageID","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"challenge","stateMutability":"nonpayable","inputs":[{"name":"journal","type":"bytes"},{"name":"seal","type":"bytes"}],"outputs":[]}
]`

const defaultGasLimit = 5_000_000

// TxBackend sends transactions and reads their receipts. *ethclient.Client
// satisfies it.
type TxBackend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Submitter posts sealed challenges to the settlement contract.
type Submitter struct {
	backend  TxBackend
	contract *bind.BoundContract
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	imageID  [32]byte
	metrics  *metrics.Metrics
	logger   log.Logger

	GasLimit        uint64
	ReceiptTimeout  time.Duration
	ReceiptInterval time.Duration
}

// NewSubmitter binds the settlement contract at address.
func NewSubmitter(backend TxBackend, address common.Address, key *ecdsa.PrivateKey, chainID *big.Int, imageID [32]byte, m *metrics.Metrics, logger log.Logger) (*Submitter, error) {
	parsed, err := abi.JSON(strings.NewReader(SettlementABI))
	if err != nil {
		return nil, err
	}
	return &Submitter{
		backend:         backend,
		contract:        bind.NewBoundContract(address, parsed, backend, backend, backend),
		key:             key,
		chainID:         chainID,
		imageID:         imageID,
		metrics:         m,
		logger:          logger.With("module", "submitter"),
		GasLimit:        defaultGasLimit,
		ReceiptTimeout:  30 * time.Second,
		ReceiptInterval: time.Second,
	}, nil
}

// ImageID returns the image ID the settlement contract accepts.
func (s *Submitter) ImageID(ctx context.Context) ([32]byte, error) {
	var out []interface{}
	if err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, "imageID"); err != nil {
		return [32]byte{}, err
	}
	if len(out) != 1 {
		return [32]byte{}, fmt.Errorf("imageID returned %d values", len(out))
	}
	return *abi.ConvertType(out[0], new([32]byte)).(*[32]byte), nil
}

func (s *Submitter) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	from := crypto.PubkeyToAddress(s.key.PublicKey)
	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	opts.Nonce = new(big.Int).SetUint64(nonce)
	opts.GasPrice = gasPrice
	opts.GasLimit = s.GasLimit
	return opts, nil
}

// Submit sends the sealed journal and waits for it to be mined.
func (s *Submitter) Submit(ctx context.Context, receipt seal.Receipt) (*types.Receipt, error) {
	imageID, err := s.ImageID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract image ID: %w", err)
	}
	if imageID != s.imageID {
		return nil, errorsmod.Wrapf(ErrImageIDMismatch, "contract %x, configured %x", imageID, s.imageID)
	}

	opts, err := s.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := s.contract.Transact(opts, "challenge", receipt.Journal, receipt.Seal)
	if err != nil {
		return nil, fmt.Errorf("failed to send challenge: %w", err)
	}
	s.logger.Info("challenge sent", "tx", tx.Hash())

	mined, err := s.waitReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, err
	}
	if mined.Status != types.ReceiptStatusSuccessful {
		return mined, errorsmod.Wrapf(ErrTransactionFailed, "tx %s reverted in block %s", tx.Hash(), mined.BlockNumber)
	}
	s.metrics.Outcome(metrics.OutcomeSubmitted)
	s.logger.Info("challenge accepted", "tx", tx.Hash(), "block", mined.BlockNumber, "gas_used", mined.GasUsed)
	return mined, nil
}

func (s *Submitter) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := WaitForCondition(ctx, s.ReceiptTimeout, s.ReceiptInterval, func() (bool, error) {
		r, err := s.backend.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		receipt = r
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt of %s: %w", hash, err)
	}
	return receipt, nil
}
