package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testKeys struct {
	authority solana.PrivateKey
	vault     solana.PrivateKey
	mint      solana.PublicKey
	owner     solana.PublicKey
}

func setRequired(t *testing.T) testKeys {
	t.Helper()
	keys := testKeys{
		authority: solana.NewWallet().PrivateKey,
		vault:     solana.NewWallet().PrivateKey,
		mint:      solana.NewWallet().PublicKey(),
		owner:     solana.NewWallet().PublicKey(),
	}
	t.Setenv("WITHDRAW_AUTHORITY_KEY", keys.authority.String())
	t.Setenv("FEE_VAULT_KEY", keys.vault.String())
	t.Setenv("TOKEN_ADDRESS", keys.mint.String())
	t.Setenv("OWNER", keys.owner.String())
	return keys
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	keys := setRequired(t)

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, keys.authority.PublicKey(), cfg.WithdrawAuthority.PublicKey())
	assert.Equal(t, keys.vault.PublicKey(), cfg.FeeVault.PublicKey())
	assert.Equal(t, keys.mint, cfg.Mint)
	assert.Equal(t, keys.owner, cfg.Owner)

	assert.Equal(t, []string{DefaultRPCEndpoint}, cfg.RPCEndpoints)
	assert.Equal(t, "wss://api.mainnet-beta.solana.com", cfg.WSEndpoint)
	assert.Equal(t, DefaultRPCRateLimit, cfg.RPCRateLimit)
	assert.Equal(t, DefaultSwapHost, cfg.SwapHost)
	assert.Equal(t, 5*time.Minute, cfg.Interval)
	assert.Equal(t, 15*time.Second, cfg.SettleDelay)
	assert.Equal(t, DefaultConfirmTimeout, cfg.ConfirmTimeout)
	assert.Equal(t, uint64(5_000_000_000), cfg.MinSweepAmount)
	assert.Equal(t, 3, cfg.BatchRetries)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.StatusAddr)
	assert.Empty(t, cfg.JitoRPC)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("RPC_ENDPOINTS", "https://rpc-a.example.com, https://rpc-b.example.com,")
	t.Setenv("WS_ENDPOINT", "wss://ws.example.com")
	t.Setenv("SWEEP_INTERVAL", "1m")
	t.Setenv("SETTLE_DELAY", "0s")
	t.Setenv("MIN_SWEEP_AMOUNT", "0")
	t.Setenv("SWAP_HOST", "https://swap.example.com/")
	t.Setenv("STATUS_ADDR", ":8080")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://rpc-a.example.com", "https://rpc-b.example.com"}, cfg.RPCEndpoints)
	assert.Equal(t, "wss://ws.example.com", cfg.WSEndpoint)
	assert.Equal(t, time.Minute, cfg.Interval)
	assert.Zero(t, cfg.SettleDelay)
	assert.Zero(t, cfg.MinSweepAmount)
	assert.Equal(t, "https://swap.example.com", cfg.SwapHost)
	assert.Equal(t, ":8080", cfg.StatusAddr)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("WITHDRAW_AUTHORITY_KEY", "")
	t.Setenv("FEE_VAULT_KEY", "")
	t.Setenv("TOKEN_ADDRESS", "")
	t.Setenv("OWNER", solana.NewWallet().PublicKey().String())

	_, err := Load(missingEnvFile(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingEnv))
	assert.Contains(t, err.Error(), "WITHDRAW_AUTHORITY_KEY")
	assert.Contains(t, err.Error(), "FEE_VAULT_KEY")
	assert.Contains(t, err.Error(), "TOKEN_ADDRESS")
	assert.NotContains(t, err.Error(), "OWNER")
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad authority key", "WITHDRAW_AUTHORITY_KEY", "not-base58-0OIl"},
		{"short vault key", "FEE_VAULT_KEY", "3yZe7d"},
		{"bad mint", "TOKEN_ADDRESS", "xyz"},
		{"zero interval", "SWEEP_INTERVAL", "0s"},
		{"zero rate limit", "RPC_RATE_LIMIT", "0"},
		{"negative retries", "BATCH_RETRIES", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(missingEnvFile(t))
			require.Error(t, err)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	keys := setRequired(t)
	os.Unsetenv("OWNER")

	path := filepath.Join(t.TempDir(), ".env")
	content := "OWNER=" + keys.owner.String() + "\nTOKEN_ADDRESS=ignored\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() { os.Unsetenv("OWNER") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, keys.owner, cfg.Owner)
	// the environment wins over the file
	assert.Equal(t, keys.mint, cfg.Mint)
}

func TestHTTPToWsURL(t *testing.T) {
	assert.Equal(t, "wss://api.mainnet-beta.solana.com", HTTPToWsURL("https://api.mainnet-beta.solana.com"))
	assert.Equal(t, "ws://127.0.0.1:8899", HTTPToWsURL("http://127.0.0.1:8899"))
}
