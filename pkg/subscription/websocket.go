package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrNotConnected      = errors.New("websocket not connected")
	ErrConnectionLost    = errors.New("websocket connection lost")
	ErrTransactionFailed = errors.New("transaction failed")
)

// WebSocketClient manages a Solana websocket connection used to wait for
// transaction signatures.
type WebSocketClient struct {
	url            string
	conn           *websocket.Conn
	writeMu        sync.Mutex
	mu             sync.RWMutex
	pending        map[uint64]*pendingSignature
	nextID         uint64
	reconnectDelay time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
	connected      bool
	log            *zap.Logger
}

// pendingSignature is a signatureSubscribe call waiting for its outcome.
type pendingSignature struct {
	reqID     uint64
	signature string
	subID     uint64 // assigned by the node once it acks the subscribe
	done      chan error
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// wsMessage covers both subscribe acks and signatureNotification pushes.
type wsMessage struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Params *struct {
		Subscription uint64 `json:"subscription"`
		Result       struct {
			Value json.RawMessage `json:"value"`
		} `json:"result"`
	} `json:"params,omitempty"`
}

type signatureResult struct {
	Err interface{} `json:"err"`
}

// NewWebSocketClient dials wsURL and starts the read and reconnect loops.
func NewWebSocketClient(ctx context.Context, wsURL string, log *zap.Logger) (*WebSocketClient, error) {
	clientCtx, cancel := context.WithCancel(ctx)
	if log == nil {
		log = zap.NewNop()
	}

	client := &WebSocketClient{
		url:            wsURL,
		pending:        make(map[uint64]*pendingSignature),
		reconnectDelay: 5 * time.Second,
		ctx:            clientCtx,
		cancel:         cancel,
		nextID:         1,
		log:            log.Named("websocket"),
	}

	if err := client.connect(); err != nil {
		cancel()
		return nil, err
	}

	go client.readMessages()
	go client.reconnectLoop()

	return client, nil
}

func (c *WebSocketClient) connect() error {
	conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("websocket connected", zap.String("url", c.url))

	return nil
}

// Close stops the background goroutines and closes the connection
func (c *WebSocketClient) Close() error {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// IsConnected reports whether the connection is currently up
func (c *WebSocketClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// WaitForSignature subscribes to sig and blocks until the node reports it at
// confirmed commitment, the transaction fails or ctx is done.
func (c *WebSocketClient) WaitForSignature(ctx context.Context, sig solana.Signature) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	id := c.nextID
	c.nextID++
	sub := &pendingSignature{
		reqID:     id,
		signature: sig.String(),
		done:      make(chan error, 1),
	}
	c.pending[id] = sub
	c.mu.Unlock()

	defer c.remove(id)

	err := c.send(wsRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "signatureSubscribe",
		Params:  []interface{}{sub.signature, map[string]string{"commitment": "confirmed"}},
	})
	if err != nil {
		return err
	}

	select {
	case err := <-sub.done:
		return err
	case <-ctx.Done():
		c.unsubscribe(sub)
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrConnectionLost
	}
}

func (c *WebSocketClient) remove(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// unsubscribe drops a subscription the node has acked but not resolved.
func (c *WebSocketClient) unsubscribe(sub *pendingSignature) {
	c.mu.RLock()
	subID := sub.subID
	c.mu.RUnlock()
	if subID == 0 {
		return
	}

	err := c.send(wsRequest{
		JSONRPC: "2.0",
		ID:      sub.reqID,
		Method:  "signatureUnsubscribe",
		Params:  []interface{}{subID},
	})
	if err != nil {
		c.log.Debug("signature unsubscribe failed", zap.String("signature", sub.signature), zap.Error(err))
	}
}

func (c *WebSocketClient) send(req wsRequest) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WebSocketClient) readMessages() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.log.Warn("websocket read error", zap.Error(err))
			}
			c.dropConnection(conn)
			continue
		}

		c.handleMessage(message)
	}
}

// dropConnection marks the client disconnected and fails every pending wait
// so callers can fall back to polling.
func (c *WebSocketClient) dropConnection(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		_ = conn.Close()
		c.conn = nil
		c.connected = false
	}
	waiting := make([]*pendingSignature, 0, len(c.pending))
	for _, sub := range c.pending {
		waiting = append(waiting, sub)
	}
	c.mu.Unlock()

	for _, sub := range waiting {
		deliver(sub, ErrConnectionLost)
	}
}

func (c *WebSocketClient) handleMessage(data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Debug("failed to parse websocket message", zap.Error(err))
		return
	}

	switch {
	case msg.Method == "signatureNotification" && msg.Params != nil:
		c.resolve(msg.Params.Subscription, msg.Params.Result.Value)
	case msg.Method == "":
		c.ack(msg)
	}
}

// ack records the subscription id the node assigned to a pending request.
func (c *WebSocketClient) ack(msg wsMessage) {
	c.mu.Lock()
	sub, ok := c.pending[msg.ID]
	if !ok {
		c.mu.Unlock()
		return
	}
	if msg.Error != nil {
		c.mu.Unlock()
		deliver(sub, fmt.Errorf("subscribe rejected: %s", msg.Error.Message))
		return
	}
	var subID uint64
	if err := json.Unmarshal(msg.Result, &subID); err == nil {
		sub.subID = subID
	}
	c.mu.Unlock()
}

// resolve completes the wait bound to subID with the notified outcome.
func (c *WebSocketClient) resolve(subID uint64, value json.RawMessage) {
	c.mu.RLock()
	var target *pendingSignature
	for _, sub := range c.pending {
		if sub.subID != 0 && sub.subID == subID {
			target = sub
			break
		}
	}
	c.mu.RUnlock()
	if target == nil {
		return
	}

	var result signatureResult
	if err := json.Unmarshal(value, &result); err != nil {
		// "receivedSignature" string notifications carry no outcome
		return
	}
	if result.Err != nil {
		deliver(target, fmt.Errorf("%w: %s: %v", ErrTransactionFailed, target.signature, result.Err))
		return
	}
	deliver(target, nil)
}

func deliver(sub *pendingSignature, err error) {
	select {
	case sub.done <- err:
	default:
	}
}

// reconnectLoop redials on a fixed delay while the connection is down.
func (c *WebSocketClient) reconnectLoop() {
	ticker := time.NewTicker(c.reconnectDelay)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if c.IsConnected() {
				continue
			}
			if err := c.connect(); err != nil {
				c.log.Warn("websocket reconnection failed", zap.Error(err))
			}
		}
	}
}
