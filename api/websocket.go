package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cosmossdk.io/log"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/paw-chain/vaultbook/app"
	"github.com/paw-chain/vaultbook/x/vault/types"
)

const (
	// ChannelBlocks streams every committed block
	ChannelBlocks = "blocks"
	// vaultChannelPrefix streams the events of one vault, e.g. "vault:1"
	vaultChannelPrefix = "vault:"
)

// VaultChannel returns the channel streaming the events of vaultID.
func VaultChannel(vaultID string) string {
	return vaultChannelPrefix + vaultID
}

func validChannel(channel string) bool {
	if channel == ChannelBlocks {
		return true
	}
	id, ok := strings.CutPrefix(channel, vaultChannelPrefix)
	if !ok {
		return false
	}
	_, err := ParseID(id)
	return err == nil
}

// VaultEvents is the slice of a block concerning one vault.
type VaultEvents struct {
	Height int64            `json:"height"`
	Op     string           `json:"op"`
	Events sdk.StringEvents `json:"events"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Devnet gateway; cross-origin access is governed by the CORS config
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHub manages WebSocket connections
type WebSocketHub struct {
	clients   map[*WebSocketClient]bool
	broadcast chan WSMessage
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	logger    log.Logger
	metrics   *GatewayMetrics
}

// WebSocketClient represents a WebSocket client
type WebSocketClient struct {
	hub           *WebSocketHub
	conn          *websocket.Conn
	send          chan WSMessage
	subscriptions map[string]bool
	mu            sync.RWMutex
}

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub(logger log.Logger, metrics *GatewayMetrics) *WebSocketHub {
	return &WebSocketHub{
		clients:   make(map[*WebSocketClient]bool),
		broadcast: make(chan WSMessage, 256),
		done:      make(chan struct{}),
		logger:    logger,
		metrics:   metrics,
	}
}

// Run fans broadcast messages out to subscribed clients until Close
func (h *WebSocketHub) Run() {
	for {
		select {
		case message := <-h.broadcast:
			h.fanOut(message)
		case <-h.done:
			return
		}
	}
}

func (h *WebSocketHub) fanOut(message WSMessage) {
	var slow []*WebSocketClient

	h.mu.RLock()
	for client := range h.clients {
		if !client.subscribed(message.Channel) {
			continue
		}
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// Clients that cannot keep up are dropped
	for _, client := range slow {
		h.logger.Info("dropping slow websocket client")
		h.Unregister(client)
	}
}

// Register adds a client to the hub. Clients arriving after Close are ignored.
func (h *WebSocketHub) Register(client *WebSocketClient) {
	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		return
	default:
	}
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.metrics.WSClients.Inc()
	h.logger.Debug("websocket client connected", "total", total)
}

// attach binds the upgraded connection to a registered client. It reports
// false when the client was dropped, or the hub closed, during the handshake.
func (h *WebSocketHub) attach(client *WebSocketClient, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return false
	}
	client.conn = conn
	return true
}

// Unregister removes a client and closes its send queue
func (h *WebSocketHub) Unregister(client *WebSocketClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.metrics.WSClients.Dec()
		h.logger.Debug("websocket client disconnected", "total", total)
	}
}

// Broadcast queues a message for all subscribers of its channel
func (h *WebSocketHub) Broadcast(message WSMessage) {
	select {
	case h.broadcast <- message:
		h.metrics.WSMessages.WithLabelValues(channelLabel(message.Channel)).Inc()
	case <-h.done:
	default:
		h.logger.Error("websocket broadcast queue full, message dropped", "channel", message.Channel)
	}
}

func channelLabel(channel string) string {
	if strings.HasPrefix(channel, vaultChannelPrefix) {
		return "vault"
	}
	return channel
}

// PublishBlock broadcasts a committed block on the blocks channel and the
// events of each vault it touched on that vault's channel
func (h *WebSocketHub) PublishBlock(block app.Block) {
	h.Broadcast(WSMessage{Type: "block", Channel: ChannelBlocks, Data: block})

	perVault := make(map[string]*VaultEvents)
	var order []string
	for _, ev := range block.Events {
		for _, attr := range ev.Attributes {
			if attr.Key != types.AttributeKeyVaultID {
				continue
			}
			ve, ok := perVault[attr.Value]
			if !ok {
				ve = &VaultEvents{Height: block.Height, Op: block.Op}
				perVault[attr.Value] = ve
				order = append(order, attr.Value)
			}
			ve.Events = append(ve.Events, ev)
			break
		}
	}
	for _, id := range order {
		h.Broadcast(WSMessage{Type: "vault_events", Channel: VaultChannel(id), Data: perVault[id]})
	}
}

// Close disconnects every client and stops the hub
func (h *WebSocketHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for client := range h.clients {
			if client.conn != nil {
				client.conn.Close()
			}
			delete(h.clients, client)
			close(client.send)
			h.metrics.WSClients.Dec()
		}
	})
}

// GetConnectedClients returns the number of connected clients
func (h *WebSocketHub) GetConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleWebSocket upgrades the connection. Channels listed in the
// comma separated "channels" query parameter are subscribed before the
// handshake completes, so no block committed afterwards is missed.
func (s *Server) handleWebSocket(c *gin.Context) {
	if max := s.config.MaxWSClients; max > 0 && s.wsHub.GetConnectedClients() >= max {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "Too many websocket clients",
			Code:  "WS_CAPACITY",
		})
		return
	}

	client := &WebSocketClient{
		hub:           s.wsHub,
		send:          make(chan WSMessage, 256),
		subscriptions: make(map[string]bool),
	}
	for _, channel := range strings.Split(c.Query("channels"), ",") {
		if channel = strings.TrimSpace(channel); channel == "" {
			continue
		}
		if !validChannel(channel) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("Unknown channel %q", channel),
				Code:  "INVALID_CHANNEL",
			})
			return
		}
		client.subscriptions[channel] = true
	}

	s.wsHub.Register(client)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.wsHub.Unregister(client)
		s.logger.Info("websocket upgrade failed", "err", err)
		return
	}
	if !s.wsHub.attach(client, conn) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

func (c *WebSocketClient) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[channel]
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *WebSocketClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Info("websocket read error", "err", err)
			}
			break
		}

		var msg WSSubscribeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendMessage(WSMessage{Type: "error", Data: "invalid message"})
			continue
		}

		c.handleMessage(msg)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage handles incoming WebSocket messages
func (c *WebSocketClient) handleMessage(msg WSSubscribeMessage) {
	if !validChannel(msg.Channel) {
		c.sendMessage(WSMessage{Type: "error", Channel: msg.Channel, Data: "unknown channel"})
		return
	}

	switch msg.Type {
	case "subscribe":
		c.mu.Lock()
		c.subscriptions[msg.Channel] = true
		c.mu.Unlock()

		c.sendMessage(WSMessage{
			Type:    "subscribed",
			Channel: msg.Channel,
		})

	case "unsubscribe":
		c.mu.Lock()
		delete(c.subscriptions, msg.Channel)
		c.mu.Unlock()

		c.sendMessage(WSMessage{
			Type:    "unsubscribed",
			Channel: msg.Channel,
		})

	default:
		c.sendMessage(WSMessage{Type: "error", Data: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

// sendMessage sends a message to this specific client
func (c *WebSocketClient) sendMessage(msg WSMessage) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.hub.logger.Info("websocket client send queue full")
	}
}
