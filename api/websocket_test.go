package api

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *WebSocketHub) *WebSocketClient {
	return &WebSocketClient{
		hub:           hub,
		send:          make(chan WSMessage, 1),
		subscriptions: make(map[string]bool),
	}
}

func TestWebSocketHubAttachAfterClose(t *testing.T) {
	hub := NewWebSocketHub(log.NewNopLogger(), NewGatewayMetrics())
	client := newTestClient(hub)

	hub.Register(client)
	require.Equal(t, 1, hub.GetConnectedClients())
	hub.Close()

	// The handshake finished after shutdown dropped the client.
	require.False(t, hub.attach(client, nil))
	require.Nil(t, client.conn)
	require.Zero(t, hub.GetConnectedClients())

	// Late arrivals are not tracked at all.
	late := newTestClient(hub)
	hub.Register(late)
	require.False(t, hub.attach(late, nil))
	require.Zero(t, hub.GetConnectedClients())
}

func (s *GatewayTestSuite) TestWebSocketHubCloseDuringHandshakes() {
	srv := httptest.NewServer(s.server.Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
			conn, _, err := dialer.Dial(url, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			// Returns once the hub closes the connection.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
	s.server.wsHub.Close()
	wg.Wait()

	s.Require().Zero(s.server.wsHub.GetConnectedClients())
}
