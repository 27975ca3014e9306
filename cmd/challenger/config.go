package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/celestiaorg/celestia-da-challenge/host"
)

// Flag names. Each is also read from the environment, upper-cased with
// dashes replaced by underscores.
const (
	flagLogLevel             = "log-level"
	flagLogFormat            = "log-format"
	flagEthRPCURL            = "eth-rpc-url"
	flagEthPrivateKey        = "eth-wallet-private-key"
	flagBeaconAPIURL         = "beacon-api-url"
	flagCelestiaRPCURL       = "celestia-rpc-url"
	flagCelestiaAuthToken    = "celestia-node-auth-token"
	flagBlobstreamAddress    = "blobstream-address"
	flagChallengeContract    = "challenge-contract-address"
	flagImageID              = "image-id"
	flagVerifyingKeyPath     = "verifying-key-path"
	flagEventCachePath       = "event-cache-path"
	flagEventWindow          = "event-window"
	flagAPIPort              = "api-port"
	flagHTTPTimeoutSeconds   = "http-timeout-seconds"
	flagMaxConcurrentFetches = "max-concurrent-fetches"
)

// Config is the challenger configuration.
type Config struct {
	LogLevel  string
	LogFormat string

	EthRPCURL     string
	EthPrivateKey string
	BeaconAPIURL  string

	CelestiaRPCURL    string
	CelestiaAuthToken string

	BlobstreamAddress common.Address
	ChallengeContract common.Address
	ImageID           [32]byte
	VerifyingKeyPath  string

	EventCachePath string
	EventWindow    uint64

	APIPort              string
	HTTPTimeout          time.Duration
	MaxConcurrentFetches int
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagEthRPCURL, "http://localhost:8545", "settlement chain JSON-RPC URL")
	cmd.Flags().String(flagBeaconAPIURL, "", "beacon node API URL, pins the finalized block when set")
	cmd.Flags().String(flagCelestiaRPCURL, "http://localhost:26658", "Celestia node JSON-RPC URL")
	cmd.Flags().String(flagCelestiaAuthToken, "", "Celestia node auth token")
	cmd.Flags().String(flagBlobstreamAddress, "", "Blobstream contract address")
	cmd.Flags().String(flagEventCachePath, "", "bbolt file persisting Blobstream events")
	cmd.Flags().Uint64(flagEventWindow, 5_000, "blocks per event log query")
	cmd.Flags().Int(flagHTTPTimeoutSeconds, 30, "timeout of network requests in seconds")
	cmd.Flags().Int(flagMaxConcurrentFetches, host.DefaultMaxConcurrentFetches, "share proofs fetched concurrently")
}

func addSealFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagImageID, "", "image ID of the challenge program, 32 bytes hex")
	cmd.Flags().String(flagVerifyingKeyPath, "", "Groth16 verifying key checking seals before submission")
}

func addSubmitFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagEthPrivateKey, "", "hex private key signing challenge transactions")
	cmd.Flags().String(flagChallengeContract, "", "settlement contract receiving challenges")
}

// LoadConfig reads the configuration of the flags registered on cmd. A flag
// set on the command line overrides the environment, which overrides the
// flag default.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(f.Name, f)
	})
	if bindErr != nil {
		return Config{}, fmt.Errorf("failed to bind flags: %w", bindErr)
	}

	cfg := Config{
		LogLevel:          v.GetString(flagLogLevel),
		LogFormat:         v.GetString(flagLogFormat),
		EthRPCURL:         v.GetString(flagEthRPCURL),
		EthPrivateKey:     v.GetString(flagEthPrivateKey),
		BeaconAPIURL:      v.GetString(flagBeaconAPIURL),
		CelestiaRPCURL:    v.GetString(flagCelestiaRPCURL),
		CelestiaAuthToken: v.GetString(flagCelestiaAuthToken),
		VerifyingKeyPath:  v.GetString(flagVerifyingKeyPath),
		EventCachePath:    v.GetString(flagEventCachePath),
		APIPort:           v.GetString(flagAPIPort),
	}

	var err error
	if cfg.EventWindow, err = cast.ToUint64E(v.Get(flagEventWindow)); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", flagEventWindow, err)
	}
	timeout, err := cast.ToIntE(v.Get(flagHTTPTimeoutSeconds))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", flagHTTPTimeoutSeconds, err)
	}
	cfg.HTTPTimeout = time.Duration(timeout) * time.Second
	if cfg.MaxConcurrentFetches, err = cast.ToIntE(v.Get(flagMaxConcurrentFetches)); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", flagMaxConcurrentFetches, err)
	}

	if cfg.BlobstreamAddress, err = parseAddress(v, flagBlobstreamAddress); err != nil {
		return Config{}, err
	}
	if cfg.ChallengeContract, err = parseAddress(v, flagChallengeContract); err != nil {
		return Config{}, err
	}
	if s := v.GetString(flagImageID); s != "" {
		id, err := hexutil.Decode(s)
		if err != nil || len(id) != 32 {
			return Config{}, fmt.Errorf("invalid %s %q: expected 32 bytes hex", flagImageID, s)
		}
		copy(cfg.ImageID[:], id)
	}
	return cfg, nil
}

func parseAddress(v *viper.Viper, key string) (common.Address, error) {
	s := v.GetString(key)
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s %q", key, s)
	}
	return common.HexToAddress(s), nil
}

func requireSet(values map[string]bool) error {
	var missing []string
	for name, set := range values {
		if !set {
			missing = append(missing, strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// NewLogger builds the logger from the configured level and format.
func NewLogger(w io.Writer, cfg Config) (log.Logger, error) {
	opts := []log.Option{}
	if cfg.LogLevel != "" {
		zl, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, log.LevelOption(zl))
	}
	switch cfg.LogFormat {
	case "", "text":
	case "json":
		opts = append(opts, log.OutputJSONOption())
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return log.NewLogger(w, opts...), nil
}
