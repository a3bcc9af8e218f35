package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/spf13/viper"
)

// Default configuration constants
const (
	DefaultRPCEndpoint    = "https://api.mainnet-beta.solana.com"
	DefaultRPCRateLimit   = 20
	DefaultSwapHost       = "https://transaction-v1.raydium.io"
	DefaultSweepInterval  = 5 * time.Minute
	DefaultSettleDelay    = 15 * time.Second
	DefaultConfirmTimeout = 90 * time.Second
	DefaultBatchRetries   = 3

	// Withheld fees at or below this many base units are left on chain.
	DefaultMinSweepAmount uint64 = 5_000_000_000
)

var ErrMissingEnv = errors.New("missing required environment variables")

// Config is built once at startup and handed to the job.
type Config struct {
	WithdrawAuthority solana.PrivateKey
	FeeVault          solana.PrivateKey
	Mint              solana.PublicKey
	Owner             solana.PublicKey

	RPCEndpoints   []string
	WSEndpoint     string
	RPCRateLimit   int
	JitoRPC        string
	JitoUUID       string
	SwapHost       string
	Interval       time.Duration
	SettleDelay    time.Duration
	ConfirmTimeout time.Duration
	MinSweepAmount uint64
	BatchRetries   int

	LogLevel   string
	LogFormat  string
	StatusAddr string
}

var requiredKeys = []string{
	"WITHDRAW_AUTHORITY_KEY",
	"FEE_VAULT_KEY",
	"TOKEN_ADDRESS",
	"OWNER",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("RPC_ENDPOINTS", DefaultRPCEndpoint)
	v.SetDefault("RPC_RATE_LIMIT", DefaultRPCRateLimit)
	v.SetDefault("SWAP_HOST", DefaultSwapHost)
	v.SetDefault("SWEEP_INTERVAL", DefaultSweepInterval)
	v.SetDefault("SETTLE_DELAY", DefaultSettleDelay)
	v.SetDefault("CONFIRM_TIMEOUT", DefaultConfirmTimeout)
	v.SetDefault("MIN_SWEEP_AMOUNT", DefaultMinSweepAmount)
	v.SetDefault("BATCH_RETRIES", DefaultBatchRetries)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("STATUS_ADDR", "")

	// WS_ENDPOINT, JITO_RPC and JITO_UUID have no defaults
}

// Load reads the optional .env file and the process environment.
// Any missing required key is a fatal configuration error.
func Load(envFile string) (*Config, error) {
	if err := LoadEnv(envFile); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	withdrawAuthority, err := DecodePrivateKey(v.GetString("WITHDRAW_AUTHORITY_KEY"))
	if err != nil {
		return nil, fmt.Errorf("invalid WITHDRAW_AUTHORITY_KEY: %w", err)
	}
	feeVault, err := DecodePrivateKey(v.GetString("FEE_VAULT_KEY"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEE_VAULT_KEY: %w", err)
	}
	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(v.GetString("TOKEN_ADDRESS")))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_ADDRESS: %w", err)
	}
	owner, err := solana.PublicKeyFromBase58(strings.TrimSpace(v.GetString("OWNER")))
	if err != nil {
		return nil, fmt.Errorf("invalid OWNER: %w", err)
	}

	cfg := &Config{
		WithdrawAuthority: withdrawAuthority,
		FeeVault:          feeVault,
		Mint:              mint,
		Owner:             owner,
		RPCEndpoints:      splitList(v.GetString("RPC_ENDPOINTS")),
		WSEndpoint:        strings.TrimSpace(v.GetString("WS_ENDPOINT")),
		RPCRateLimit:      v.GetInt("RPC_RATE_LIMIT"),
		JitoRPC:           strings.TrimSpace(v.GetString("JITO_RPC")),
		JitoUUID:          strings.TrimSpace(v.GetString("JITO_UUID")),
		SwapHost:          strings.TrimRight(v.GetString("SWAP_HOST"), "/"),
		Interval:          v.GetDuration("SWEEP_INTERVAL"),
		SettleDelay:       v.GetDuration("SETTLE_DELAY"),
		ConfirmTimeout:    v.GetDuration("CONFIRM_TIMEOUT"),
		MinSweepAmount:    v.GetUint64("MIN_SWEEP_AMOUNT"),
		BatchRetries:      v.GetInt("BATCH_RETRIES"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		StatusAddr:        strings.TrimSpace(v.GetString("STATUS_ADDR")),
	}

	if cfg.WSEndpoint == "" && len(cfg.RPCEndpoints) > 0 {
		cfg.WSEndpoint = HTTPToWsURL(cfg.RPCEndpoints[0])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have defaults but can still be overridden badly.
func (c *Config) Validate() error {
	if len(c.RPCEndpoints) == 0 {
		return fmt.Errorf("RPC_ENDPOINTS is empty")
	}
	if c.RPCRateLimit <= 0 {
		return fmt.Errorf("RPC_RATE_LIMIT must be positive, got %d", c.RPCRateLimit)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.Interval)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("SETTLE_DELAY must not be negative, got %s", c.SettleDelay)
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("CONFIRM_TIMEOUT must be positive, got %s", c.ConfirmTimeout)
	}
	if c.BatchRetries < 0 {
		return fmt.Errorf("BATCH_RETRIES must not be negative, got %d", c.BatchRetries)
	}
	if c.SwapHost == "" {
		return fmt.Errorf("SWAP_HOST is empty")
	}
	return nil
}

// DecodePrivateKey parses a base58 encoded 64-byte secret key.
func DecodePrivateKey(encoded string) (solana.PrivateKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode base58: %w", err)
	}
	key := solana.PrivateKey(raw)
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return key, nil
}
