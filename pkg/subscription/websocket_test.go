package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNode acknowledges every signatureSubscribe with subscription id 42 and
// then sends notification, unless notification is empty.
func fakeNode(t *testing.T, notification string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req wsRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return
			}
			if req.Method != "signatureSubscribe" {
				continue
			}
			ack, _ := json.Marshal(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 42})
			if err := conn.WriteMessage(websocket.TextMessage, ack); err != nil {
				return
			}
			if notification != "" {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(notification)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWaitForSignature(t *testing.T) {
	tests := []struct {
		name         string
		notification string
		wantErr      error
	}{
		{
			name:         "confirmed",
			notification: `{"jsonrpc":"2.0","method":"signatureNotification","params":{"result":{"context":{"slot":5},"value":{"err":null}},"subscription":42}}`,
		},
		{
			name:         "failed",
			notification: `{"jsonrpc":"2.0","method":"signatureNotification","params":{"result":{"context":{"slot":5},"value":{"err":{"InstructionError":[0,"Custom"]}}},"subscription":42}}`,
			wantErr:      ErrTransactionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewWebSocketClient(context.Background(), fakeNode(t, tt.notification), nil)
			require.NoError(t, err)
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err = client.WaitForSignature(ctx, solana.Signature{1})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestWaitForSignatureContextDone(t *testing.T) {
	client, err := NewWebSocketClient(context.Background(), fakeNode(t, ""), nil)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = client.WaitForSignature(ctx, solana.Signature{2})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForSignatureAfterClose(t *testing.T) {
	client, err := NewWebSocketClient(context.Background(), fakeNode(t, ""), nil)
	require.NoError(t, err)
	require.True(t, client.IsConnected())
	require.NoError(t, client.Close())

	err = client.WaitForSignature(context.Background(), solana.Signature{3})
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestNewWebSocketClientDialError(t *testing.T) {
	_, err := NewWebSocketClient(context.Background(), "ws://127.0.0.1:1", nil)
	require.Error(t, err)
}
