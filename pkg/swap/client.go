package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrQuoteUnsuccessful = errors.New("swap quote unsuccessful")

const maxResponseSize = 10 * 1024 * 1024

// Client talks to the Raydium trade API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker
	log            *zap.Logger
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = RAYDIUM_SWAP_HOST
	}
	if log == nil {
		log = zap.NewNop()
	}

	circuitBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "RaydiumTradeAPI",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		rateLimiter:    rate.NewLimiter(rate.Limit(5), 10),
		circuitBreaker: circuitBreaker,
		log:            log.Named("swap"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// Quote asks the aggregator for an exact-in route. A response with
// success=false returns ErrQuoteUnsuccessful.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	params := url.Values{}
	params.Set("inputMint", req.InputMint)
	params.Set("outputMint", req.OutputMint)
	params.Set("amount", strconv.FormatUint(req.Amount, 10))
	params.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	params.Set("txVersion", TxVersionV0)

	respBody, err := c.makeRequest(ctx, http.MethodGet, computePath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	var env quoteEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote response: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", ErrQuoteUnsuccessful, env.Msg)
	}

	return &Quote{ID: env.ID, Success: env.Success, Raw: json.RawMessage(respBody)}, nil
}

// BuildTransactions turns a quote into unsigned v0 transactions for req.Wallet.
func (c *Client) BuildTransactions(ctx context.Context, quote *Quote, req BuildRequest) ([]*solana.Transaction, error) {
	if quote == nil || !quote.Success {
		return nil, ErrQuoteUnsuccessful
	}

	body := buildBody{
		ComputeUnitPriceMicroLamports: req.ComputeUnitPriceMicroLamports,
		SwapResponse:                  quote.Raw,
		TxVersion:                     TxVersionV0,
		Wallet:                        req.Wallet,
		WrapSol:                       req.WrapSol,
		UnwrapSol:                     req.UnwrapSol,
		InputAccount:                  req.InputAccount,
	}

	respBody, err := c.makeRequest(ctx, http.MethodPost, buildPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build swap transactions: %w", err)
	}

	var resp buildResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal build response: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("swap build unsuccessful: %s", resp.Msg)
	}

	txs := make([]*solana.Transaction, 0, len(resp.Data))
	for i, item := range resp.Data {
		tx, err := solana.TransactionFromBase64(item.Transaction)
		if err != nil {
			return nil, fmt.Errorf("failed to decode swap transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	requestID := uuid.NewString()
	startTime := time.Now()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	out, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.do(ctx, requestID, method, endpoint, body)
	})
	if err != nil {
		c.log.Warn("swap api request failed",
			zap.String("request_id", requestID),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return nil, err
	}

	c.log.Debug("swap api response",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int64("duration_ms", time.Since(startTime).Milliseconds()))

	return out.([]byte), nil
}

func (c *Client) do(ctx context.Context, requestID, method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("swap api request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("url", req.URL.String()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
