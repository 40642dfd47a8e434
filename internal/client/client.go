// Package client is a WebSocket client for the Blackjack server, plus an
// AutoPlayer that plays hands unattended.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/twentyone/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 64
	recvBufferSize = 256
)

var ErrDisconnected = errors.New("disconnected from server")

// ServerError is an error or nameUpdateFailed reply from the server
type ServerError struct {
	Action  string
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server rejected request: %s (%s)", e.Message, e.Code)
}

// Client represents a WebSocket client for the Blackjack server
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *protocol.Message
	receive   chan *protocol.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu         sync.RWMutex
	connected  bool
	playerID   string
	playerName string
	roomID     string
}

// NewClient creates a client that plays as playerID. An empty playerID
// lets the server assign one.
func NewClient(serverURL, playerID string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		send:      make(chan *protocol.Message, sendBufferSize),
		receive:   make(chan *protocol.Message, recvBufferSize),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
		playerID:  playerID,
	}
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.logger.Info("Disconnected from server")
	})
	return nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Messages returns every message received from the server. The channel is
// closed when the connection ends.
func (c *Client) Messages() <-chan *protocol.Message {
	return c.receive
}

// PlayerID returns the id the client plays as
func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// PlayerName returns the name the server seated the client under
func (c *Client) PlayerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerName
}

// RoomID returns the room the client is seated in, or ""
func (c *Client) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

// Send queues a message for the server, stamped with the client's player id
func (c *Client) Send(msg *protocol.Message) error {
	if msg.PlayerID == "" {
		msg.PlayerID = c.PlayerID()
	}

	select {
	case <-c.ctx.Done():
		return ErrDisconnected
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrDisconnected
	default:
		return fmt.Errorf("send buffer full")
	}
}

// JoinGame asks to be seated in any open room
func (c *Client) JoinGame(name string) error {
	return c.Send(&protocol.Message{Action: protocol.ActionJoinGame, PlayerName: name})
}

// CreateRoom creates a room and takes a seat in it. roomID and cfg may be
// left empty for server defaults.
func (c *Client) CreateRoom(roomID, name string, cfg *protocol.RoomConfig) error {
	return c.Send(&protocol.Message{
		Action:     protocol.ActionCreateRoom,
		RoomID:     roomID,
		PlayerName: name,
		RoomConfig: cfg,
	})
}

// JoinRoom takes a seat in an existing room
func (c *Client) JoinRoom(roomID, name string) error {
	return c.Send(&protocol.Message{Action: protocol.ActionJoinRoom, RoomID: roomID, PlayerName: name})
}

// LeaveRoom gives up the current seat
func (c *Client) LeaveRoom() error {
	return c.Send(&protocol.Message{Action: protocol.ActionLeaveRoom})
}

// Ready toggles the ready flag
func (c *Client) Ready() error {
	return c.Send(&protocol.Message{Action: protocol.ActionPlayerReady})
}

// StartGame deals a hand, cutting any countdown short
func (c *Client) StartGame() error {
	return c.Send(&protocol.Message{Action: protocol.ActionStartGame})
}

// Hit asks for another card
func (c *Client) Hit() error {
	return c.Send(&protocol.Message{Action: protocol.ActionPlayerHit})
}

// Stand ends the turn
func (c *Client) Stand() error {
	return c.Send(&protocol.Message{Action: protocol.ActionPlayerStand})
}

// UpdateName changes the display name, subject to the server's cooldown
func (c *Client) UpdateName(name string) error {
	return c.Send(&protocol.Message{Action: protocol.ActionUpdatePlayerName, Name: name})
}

// WaitFor discards messages until one with any of the given actions
// arrives. An error reply that was not asked for is returned as a
// *ServerError.
func (c *Client) WaitFor(ctx context.Context, actions ...string) (*protocol.Message, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg, ok := <-c.receive:
			if !ok {
				return nil, ErrDisconnected
			}
			if slices.Contains(actions, msg.Action) {
				return msg, nil
			}
			if err := AsError(msg); err != nil {
				return msg, err
			}
		}
	}
}

// AsError returns a *ServerError for error and nameUpdateFailed replies
func AsError(msg *protocol.Message) error {
	switch msg.Action {
	case protocol.ActionError, protocol.ActionNameUpdateFailed:
		return &ServerError{Action: msg.Action, Code: msg.Code, Message: msg.Message}
	}
	return nil
}

// track keeps the client's view of its seat current
func (c *Client) track(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Action {
	case protocol.ActionJoinedGame, protocol.ActionRoomCreated, protocol.ActionRoomJoined:
		c.roomID = msg.RoomID
		c.playerName = msg.PlayerName
		if msg.PlayerID != "" {
			c.playerID = msg.PlayerID
		}
	case protocol.ActionRoomLeft:
		c.roomID = ""
	case protocol.ActionNameUpdateConfirmed:
		c.playerName = msg.Name
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		c.cancel()
		close(c.receive)
	}()

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "action", msg.Action)
		c.track(&msg)

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
