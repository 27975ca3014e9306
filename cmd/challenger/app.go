package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/celestia"
	"github.com/celestiaorg/celestia-da-challenge/eventcache"
	"github.com/celestiaorg/celestia-da-challenge/host"
	"github.com/celestiaorg/celestia-da-challenge/metrics"
	"github.com/celestiaorg/celestia-da-challenge/seal"
)

// app holds the clients shared by the commands. Clients are dialed on
// demand and closed by Close.
type app struct {
	cfg      Config
	logger   log.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	celestia *celestia.Client
	eth      *ethclient.Client
	geth     *gethclient.Client
	chainID  uint64
	store    *eventcache.Store
	cache    *eventcache.Cache
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := NewLogger(os.Stderr, cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, registry: registry, metrics: m}, nil
}

func (a *app) Close() {
	if a.celestia != nil {
		a.celestia.Close()
	}
	if a.eth != nil {
		a.eth.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close event store", "err", err)
		}
	}
}

func (a *app) dialCelestia(ctx context.Context) (*celestia.Client, error) {
	if a.celestia != nil {
		return a.celestia, nil
	}
	if err := requireSet(map[string]bool{flagCelestiaRPCURL: a.cfg.CelestiaRPCURL != ""}); err != nil {
		return nil, err
	}
	client, err := celestia.Dial(ctx, a.cfg.CelestiaRPCURL, a.cfg.CelestiaAuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Celestia: %w", err)
	}
	a.celestia = client
	return client, nil
}

func (a *app) dialEthereum(ctx context.Context) (*ethclient.Client, error) {
	if a.eth != nil {
		return a.eth, nil
	}
	if err := requireSet(map[string]bool{flagEthRPCURL: a.cfg.EthRPCURL != ""}); err != nil {
		return nil, err
	}
	rc, err := rpc.DialContext(ctx, a.cfg.EthRPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum: %w", err)
	}
	a.eth = ethclient.NewClient(rc)
	a.geth = gethclient.New(rc)

	chainID, err := a.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	a.chainID = chainID.Uint64()
	return a.eth, nil
}

// eventCache returns the Blobstream event cache, loaded from the bbolt
// store when one is configured.
func (a *app) eventCache(ctx context.Context) (*eventcache.Cache, error) {
	if a.cache != nil {
		return a.cache, nil
	}
	if err := requireSet(map[string]bool{flagBlobstreamAddress: a.cfg.BlobstreamAddress != (common.Address{})}); err != nil {
		return nil, err
	}
	eth, err := a.dialEthereum(ctx)
	if err != nil {
		return nil, err
	}
	contract, err := blobstream.NewContract(a.cfg.BlobstreamAddress, eth, nil)
	if err != nil {
		return nil, err
	}

	if a.cfg.EventCachePath != "" {
		if a.store, err = eventcache.OpenStore(a.cfg.EventCachePath, a.cfg.BlobstreamAddress); err != nil {
			return nil, err
		}
	}
	finder := blobstream.NewEventFinder(contract, eth, a.chainID, a.cfg.EventWindow)
	if a.cache, err = eventcache.New(finder, a.store, a.metrics, a.logger); err != nil {
		return nil, err
	}
	return a.cache, nil
}

func (a *app) retryPolicy() host.RetryPolicy {
	policy := host.DefaultRetryPolicy()
	if a.cfg.HTTPTimeout > 0 {
		policy.MaxElapsedTime = 2 * a.cfg.HTTPTimeout
	}
	return policy
}

func (a *app) challenger(ctx context.Context) (*host.Challenger, error) {
	node, err := a.dialCelestia(ctx)
	if err != nil {
		return nil, err
	}
	cache, err := a.eventCache(ctx)
	if err != nil {
		return nil, err
	}

	assembler := host.NewAssembler(node, cache, a.metrics, a.logger)
	assembler.Policy = a.retryPolicy()
	if a.cfg.MaxConcurrentFetches > 0 {
		assembler.MaxConcurrentFetches = a.cfg.MaxConcurrentFetches
	}

	var pinner host.BlockPinner
	if a.cfg.BeaconAPIURL != "" {
		if pinner, err = host.NewBeaconPinner(ctx, a.cfg.BeaconAPIURL); err != nil {
			return nil, err
		}
	}
	preflight := host.NewPreflight(a.eth, a.geth, a.cfg.BlobstreamAddress, pinner, a.logger)
	return host.NewChallenger(assembler, preflight, a.metrics, a.logger), nil
}

func (a *app) sealVerifier() (*seal.Verifier, error) {
	if a.cfg.VerifyingKeyPath == "" {
		return nil, nil
	}
	vk, err := seal.LoadVerifyingKey(a.cfg.VerifyingKeyPath)
	if err != nil {
		return nil, err
	}
	return seal.NewVerifier(vk), nil
}

func (a *app) submitter(ctx context.Context) (*host.Submitter, error) {
	if err := requireSet(map[string]bool{
		flagEthPrivateKey:     a.cfg.EthPrivateKey != "",
		flagChallengeContract: a.cfg.ChallengeContract != (common.Address{}),
		flagImageID:           a.cfg.ImageID != [32]byte{},
	}); err != nil {
		return nil, err
	}
	key, err := privateKey(a.cfg.EthPrivateKey)
	if err != nil {
		return nil, err
	}
	eth, err := a.dialEthereum(ctx)
	if err != nil {
		return nil, err
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	return host.NewSubmitter(eth, a.cfg.ChallengeContract, key, chainID, a.cfg.ImageID, a.metrics, a.logger)
}

func privateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	if len(hexKey) > 2 && hexKey[:2] == "0x" {
		hexKey = hexKey[2:]
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}
