package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func testCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String(flagLogLevel, "info", "")
	cmd.Flags().String(flagLogFormat, "text", "")
	addChainFlags(cmd)
	addSealFlags(cmd)
	addSubmitFlags(cmd)
	return cmd
}

func TestLoadConfig(t *testing.T) {
	bridge := common.HexToAddress("0x3a5cBB6EF4756DA0b3f6DAE7aB6430fD8c46d247")
	t.Setenv("BLOBSTREAM_ADDRESS", bridge.Hex())
	t.Setenv("EVENT_WINDOW", "250")
	t.Setenv("IMAGE_ID", "0x"+"ab"+"00000000000000000000000000000000000000000000000000000000000000")

	cmd := testCommand()
	require.NoError(t, cmd.Flags().Set(flagHTTPTimeoutSeconds, "5"))

	cfg, err := LoadConfig(cmd)
	require.NoError(t, err)
	require.Equal(t, bridge, cfg.BlobstreamAddress)
	require.Equal(t, uint64(250), cfg.EventWindow)
	require.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	require.Equal(t, byte(0xab), cfg.ImageID[0])
	require.Equal(t, "http://localhost:26658", cfg.CelestiaRPCURL)
	require.Equal(t, 8, cfg.MaxConcurrentFetches)
	require.Equal(t, common.Address{}, cfg.ChallengeContract)
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("EVENT_WINDOW", "250")
	t.Setenv("MAX_CONCURRENT_FETCHES", "3")

	cmd := testCommand()
	require.NoError(t, cmd.Flags().Set(flagEventWindow, "300"))

	cfg, err := LoadConfig(cmd)
	require.NoError(t, err)
	// flag over env
	require.Equal(t, uint64(300), cfg.EventWindow)
	// env over default
	require.Equal(t, 3, cfg.MaxConcurrentFetches)
}

func TestLoadConfigInvalid(t *testing.T) {
	for name, env := range map[string][2]string{
		"address":  {"BLOBSTREAM_ADDRESS", "0x1234"},
		"image id": {"IMAGE_ID", "0xabcd"},
		"window":   {"EVENT_WINDOW", "many"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := LoadConfig(testCommand())
			require.Error(t, err)
		})
	}
}

func TestRequireSet(t *testing.T) {
	require.NoError(t, requireSet(map[string]bool{flagEthRPCURL: true}))

	err := requireSet(map[string]bool{
		flagImageID:       false,
		flagEthRPCURL:     true,
		flagEthPrivateKey: false,
	})
	require.EqualError(t, err, "missing configuration: ETH_WALLET_PRIVATE_KEY, IMAGE_ID")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, Config{LogLevel: "warn", LogFormat: "json"})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "height", 12)
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), `"height":12`)

	_, err = NewLogger(&buf, Config{LogFormat: "xml"})
	require.Error(t, err)
	_, err = NewLogger(&buf, Config{LogLevel: "loud"})
	require.Error(t, err)
}

func TestPrivateKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	encoded := common.Bytes2Hex(crypto.FromECDSA(key))

	for _, s := range []string{encoded, "0x" + encoded} {
		parsed, err := privateKey(s)
		require.NoError(t, err)
		require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(parsed.PublicKey))
	}
	_, err = privateKey("0xzz")
	require.Error(t, err)
}
