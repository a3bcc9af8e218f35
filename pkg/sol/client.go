package sol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	jitorpc "github.com/jito-labs/jito-go-rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultConfirmTimeout = 90 * time.Second
	statusPollInterval    = 2 * time.Second
)

var (
	ErrTransactionFailed = errors.New("transaction failed on chain")
	ErrBlockhashExpired  = errors.New("blockhash expired before confirmation")
	ErrConfirmTimeout    = errors.New("timed out waiting for confirmation")
)

// SignatureWaiter is a push channel for confirmations, usually a websocket
// signatureSubscribe client. Any error makes the client fall back to polling.
type SignatureWaiter interface {
	WaitForSignature(ctx context.Context, signature solana.Signature) error
}

// Client wraps the Solana RPC client with a request limiter and the
// send/confirm helpers the sweeper needs.
type Client struct {
	RpcClient  *rpc.Client
	JitoClient *jitorpc.JitoJsonRpcClient

	endpoint       string
	limiter        *rate.Limiter
	waiter         SignatureWaiter
	confirmTimeout time.Duration
	pollInterval   time.Duration
	log            *zap.Logger
}

type Option func(*Client)

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithConfirmTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.confirmTimeout = timeout
		}
	}
}

func WithSignatureWaiter(waiter SignatureWaiter) Option {
	return func(c *Client) { c.waiter = waiter }
}

// WithJitoUUID authenticates block engine requests. Ignored without a jito endpoint.
func WithJitoUUID(uuid string) Option {
	return func(c *Client) {
		if c.JitoClient != nil {
			c.JitoClient.UUID = uuid
		}
	}
}

// NewClient creates a client for endpoint. When jitoRpc is set, transactions
// are submitted through the block engine instead of the RPC node.
func NewClient(ctx context.Context, endpoint string, jitoRpc string, reqLimitPerSecond int, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("rpc endpoint is required")
	}
	if reqLimitPerSecond <= 0 {
		return nil, fmt.Errorf("invalid request limit: %d", reqLimitPerSecond)
	}

	c := &Client{
		RpcClient:      rpc.New(endpoint),
		endpoint:       endpoint,
		limiter:        rate.NewLimiter(rate.Limit(reqLimitPerSecond), reqLimitPerSecond),
		confirmTimeout: defaultConfirmTimeout,
		pollInterval:   statusPollInterval,
		log:            zap.NewNop(),
	}
	if jitoRpc != "" {
		c.JitoClient = jitorpc.NewJitoJsonRpcClient(jitoRpc, "")
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("endpoint", endpoint))

	return c, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (c *Client) GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.RpcClient.GetProgramAccountsWithOpts(ctx, programID, opts)
}

// GetTokenAccountsByMint lists owner's token accounts holding mint.
func (c *Client) GetTokenAccountsByMint(ctx context.Context, owner, mint solana.PublicKey) ([]solana.PublicKey, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.RpcClient.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: mint.ToPointer()},
		&rpc.GetTokenAccountsOpts{Commitment: rpc.CommitmentConfirmed, Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get token accounts of %s: %w", owner, err)
	}

	accounts := make([]solana.PublicKey, 0, len(out.Value))
	for _, acc := range out.Value {
		accounts = append(accounts, acc.Pubkey)
	}
	return accounts, nil
}

// GetBalance returns the lamport balance of account at confirmed commitment.
func (c *Client) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	out, err := c.RpcClient.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w", account, err)
	}
	return out.Value, nil
}

// LatestBlockhash returns a fresh blockhash and the last block height it stays valid for.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	if err := c.wait(ctx); err != nil {
		return solana.Hash{}, 0, err
	}
	out, err := c.RpcClient.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, 0, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return out.Value.Blockhash, out.Value.LastValidBlockHeight, nil
}

// SignedTx is a transaction signed over a known blockhash. Sending the same
// SignedTx again can never execute it twice.
type SignedTx struct {
	Tx                   *solana.Transaction
	LastValidBlockHeight uint64
}

func (s *SignedTx) Signature() solana.Signature {
	if s == nil || s.Tx == nil || len(s.Tx.Signatures) == 0 {
		return solana.Signature{}
	}
	return s.Tx.Signatures[0]
}

// SignTransaction builds a transaction over a freshly fetched blockhash and
// signs it with payer and signers.
func (c *Client) SignTransaction(ctx context.Context, instructions []solana.Instruction, payer solana.PrivateKey, signers ...solana.PrivateKey) (*SignedTx, error) {
	blockhash, lastValid, err := c.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	if _, err := tx.Sign(keyGetter(append([]solana.PrivateKey{payer}, signers...))); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return &SignedTx{Tx: tx, LastValidBlockHeight: lastValid}, nil
}

// SendSigned submits signed without preflight and waits for confirmation. A
// submit error does not prove the node dropped the transaction, so its status
// is checked before the error is returned.
func (c *Client) SendSigned(ctx context.Context, signed *SignedTx) (solana.Signature, error) {
	sig := signed.Signature()
	if _, err := c.submit(ctx, signed.Tx); err != nil {
		if done, statusErr := c.checkStatus(ctx, sig, signed.LastValidBlockHeight); done {
			return sig, statusErr
		}
		return sig, err
	}
	if err := c.ConfirmTransaction(ctx, sig, signed.LastValidBlockHeight); err != nil {
		return sig, err
	}
	return sig, nil
}

// SendTransaction signs an already built transaction (for example one returned
// by a swap aggregator), submits it and waits for confirmation.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, signers ...solana.PrivateKey) (solana.Signature, error) {
	if _, err := tx.PartialSign(keyGetter(signers)); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.submit(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}
	// the aggregator picked the blockhash, so only the timeout bounds the wait
	if err := c.ConfirmTransaction(ctx, sig, 0); err != nil {
		return sig, err
	}
	return sig, nil
}

func (c *Client) submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, fmt.Errorf("transaction is not signed")
	}

	if c.JitoClient != nil {
		encoded, err := tx.ToBase64()
		if err != nil {
			return solana.Signature{}, fmt.Errorf("failed to encode transaction: %w", err)
		}
		result, err := c.JitoClient.SendTxn(encoded, false)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("jito send failed: %w", err)
		}
		var sigStr string
		if err := json.Unmarshal(result, &sigStr); err != nil {
			return solana.Signature{}, fmt.Errorf("unexpected jito response %s: %w", string(result), err)
		}
		sig, err := solana.SignatureFromBase58(sigStr)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("invalid signature from jito: %w", err)
		}
		c.log.Debug("transaction sent via jito", zap.String("signature", sig.String()))
		return sig, nil
	}

	if err := c.wait(ctx); err != nil {
		return solana.Signature{}, err
	}
	maxRetries := uint(3)
	sig, err := c.RpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction failed: %w", err)
	}
	c.log.Debug("transaction sent", zap.String("signature", sig.String()))
	return sig, nil
}

// ConfirmTransaction blocks until sig reaches confirmed commitment. The
// signature waiter, when set, races the status poller. A non-zero
// lastValidBlockHeight ends the wait early once the blockhash has expired.
func (c *Client) ConfirmTransaction(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	var pushed chan error
	if c.waiter != nil {
		pushed = make(chan error, 1)
		go func() { pushed <- c.waiter.WaitForSignature(ctx, sig) }()
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	// with a waiter the first poll waits for a tick
	poll := pushed == nil
	for {
		if poll {
			if done, err := c.checkStatus(ctx, sig, lastValidBlockHeight); done {
				return err
			}
		}
		poll = true

		select {
		case err := <-pushed:
			if err == nil {
				return nil
			}
			if ctx.Err() == nil {
				c.log.Debug("signature subscription failed, polling instead",
					zap.String("signature", sig.String()), zap.Error(err))
			}
			pushed = nil
		case <-ctx.Done():
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ctx.Err()
			}
			return c.lastCheck(ctx, sig, lastValidBlockHeight)
		case <-ticker.C:
		}
	}
}

// lastCheck asks the node once more after the confirm deadline so a landed
// transaction is never reported as timed out.
func (c *Client) lastCheck(expired context.Context, sig solana.Signature, lastValidBlockHeight uint64) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(expired), c.pollInterval)
	defer cancel()
	if done, err := c.checkStatus(ctx, sig, lastValidBlockHeight); done {
		return err
	}
	return fmt.Errorf("%w: %s", ErrConfirmTimeout, sig)
}

func (c *Client) checkStatus(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) (bool, error) {
	if err := c.wait(ctx); err != nil {
		return false, nil
	}
	out, err := c.RpcClient.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		c.log.Debug("signature status lookup failed", zap.String("signature", sig.String()), zap.Error(err))
		return false, nil
	}

	if len(out.Value) > 0 && out.Value[0] != nil {
		status := out.Value[0]
		if status.Err != nil {
			return true, fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sig, status.Err)
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return true, nil
		}
		return false, nil
	}

	if lastValidBlockHeight == 0 {
		return false, nil
	}
	if err := c.wait(ctx); err != nil {
		return false, nil
	}
	height, err := c.RpcClient.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return false, nil
	}
	if height > lastValidBlockHeight {
		return true, fmt.Errorf("%w: %s", ErrBlockhashExpired, sig)
	}
	return false, nil
}

func keyGetter(keys []solana.PrivateKey) func(solana.PublicKey) *solana.PrivateKey {
	return func(pub solana.PublicKey) *solana.PrivateKey {
		for i := range keys {
			if keys[i].PublicKey().Equals(pub) {
				return &keys[i]
			}
		}
		return nil
	}
}
