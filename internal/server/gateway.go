package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/protocol"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrNotInRoom        = errors.New("not in a room")
)

type sessionKey struct {
	roomID   string
	playerID string
}

// Gateway routes client messages to rooms and delivers room events back
// to the connections seated in them. It is the rooms' Publisher.
type Gateway struct {
	registry  *Registry
	cooldowns *NameCooldowns
	logger    *log.Logger

	mu       sync.RWMutex
	sessions map[sessionKey]*Connection
	conns    map[*Connection]struct{}
}

// NewGateway creates a gateway with its own room registry
func NewGateway(defaults game.RoomConfig, nameCooldown time.Duration, logger *log.Logger, opts ...Option) *Gateway {
	o := buildOptions(opts)
	g := &Gateway{
		cooldowns: NewNameCooldowns(nameCooldown, o.clock),
		logger:    logger.WithPrefix("gateway"),
		sessions:  make(map[sessionKey]*Connection),
		conns:     make(map[*Connection]struct{}),
	}
	g.registry = NewRegistry(defaults, g, logger, opts...)
	return g
}

// Registry returns the gateway's rooms
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Register tracks a new connection
func (g *Gateway) Register(c *Connection) {
	g.mu.Lock()
	g.conns[c] = struct{}{}
	total := len(g.conns)
	g.mu.Unlock()

	g.logger.Info("Client connected", "conn", c.ID(), "total", total)
}

// Disconnect removes a connection, leaving its room as a disconnect
func (g *Gateway) Disconnect(c *Connection) {
	g.mu.Lock()
	_, known := g.conns[c]
	delete(g.conns, c)
	total := len(g.conns)
	g.mu.Unlock()

	if !known {
		return
	}

	if roomID := c.Room(); roomID != "" {
		playerID := c.Player()
		g.logger.Info("Cleaning up disconnected player", "player", playerID, "room", roomID)
		if err := g.registry.Leave(roomID, playerID, true); err != nil {
			g.logger.Debug("Leave on disconnect failed", "player", playerID, "room", roomID, "error", err)
		}
		c.unseat()
	}
	g.unbind(c, "")
	g.logger.Info("Client disconnected", "conn", c.ID(), "total", total)
}

// Close disconnects every client and shuts all rooms down
func (g *Gateway) Close() {
	g.mu.RLock()
	conns := make([]*Connection, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.RUnlock()

	for _, c := range conns {
		_ = c.Close() // Ignore close errors during shutdown
	}
	g.registry.Close()
}

// Publish delivers a room notification to the seated connections named in
// it. Called with the room lock held, so it only enqueues.
func (g *Gateway) Publish(n game.Notification) {
	msg, ok := messageFor(n)
	if !ok {
		g.logger.Warn("No wire message for event", "type", n.Event.EventType())
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, playerID := range n.To {
		c, ok := g.sessions[sessionKey{roomID: n.RoomID, playerID: playerID}]
		if !ok {
			continue
		}
		if err := c.SendMessage(msg); err != nil {
			g.logger.Debug("Failed to deliver event", "player", playerID, "action", msg.Action, "error", err)
		}
	}
}

// HandleMessage decodes and routes one client frame
func (g *Gateway) HandleMessage(c *Connection, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		g.logger.Warn("Malformed message", "conn", c.ID(), "error", err)
		g.sendError(c, fmt.Errorf("%w: %v", ErrMalformedMessage, err))
		return
	}

	if msg.PlayerID != "" {
		c.SetPlayer(msg.PlayerID)
	}
	g.logger.Debug("Received message", "action", msg.Action, "player", c.Player(), "room", c.Room())

	var err error
	switch msg.Action {
	case protocol.ActionJoinGame:
		err = g.handleJoinGame(c, &msg)
	case protocol.ActionCreateRoom:
		err = g.handleCreateRoom(c, &msg)
	case protocol.ActionJoinRoom:
		err = g.handleJoinRoom(c, &msg)
	case protocol.ActionLeaveRoom:
		err = g.handleLeaveRoom(c)
	case protocol.ActionPlayerReady:
		err = g.withRoom(c, (*game.Room).SetReady)
	case protocol.ActionStartGame:
		err = g.withRoom(c, (*game.Room).Start)
	case protocol.ActionPlayerHit:
		err = g.withRoom(c, (*game.Room).Hit)
	case protocol.ActionPlayerStand:
		err = g.withRoom(c, (*game.Room).Stand)
	case protocol.ActionUpdatePlayerName:
		g.handleUpdateName(c, &msg)
	default:
		err = fmt.Errorf("%w: unknown action %q", ErrMalformedMessage, msg.Action)
	}

	if err != nil {
		g.logger.Debug("Request rejected", "action", msg.Action, "player", c.Player(), "error", err)
		g.sendError(c, err)
	}
}

func (g *Gateway) handleJoinGame(c *Connection, msg *protocol.Message) error {
	if c.Room() != "" {
		return game.ErrAlreadyJoined
	}

	room, p, err := g.registry.JoinAny(c.Player(), requestedName(c, msg), g.binder(c))
	if err != nil {
		g.unbind(c, "")
		return err
	}
	g.seat(c, room.ID(), p.Name)
	return nil
}

func (g *Gateway) handleCreateRoom(c *Connection, msg *protocol.Message) error {
	if c.Room() != "" {
		return game.ErrAlreadyJoined
	}

	name := requestedName(c, msg)
	if name != "" {
		if _, err := game.ValidateName(name); err != nil {
			return err
		}
	}

	cfg := g.registry.Defaults().Merge(msg.RoomConfig.Overrides())
	room, err := g.registry.Create(msg.RoomID, cfg)
	if err != nil {
		return err
	}

	_, p, err := g.registry.Join(room.ID(), c.Player(), name, game.JoinCreated, g.binder(c))
	if err != nil {
		g.unbind(c, "")
		g.registry.Discard(room.ID())
		return err
	}
	g.seat(c, room.ID(), p.Name)
	return nil
}

func (g *Gateway) handleJoinRoom(c *Connection, msg *protocol.Message) error {
	if c.Room() != "" {
		return game.ErrAlreadyJoined
	}
	if msg.RoomID == "" {
		return game.ErrRoomNotFound
	}

	room, p, err := g.registry.Join(msg.RoomID, c.Player(), requestedName(c, msg), game.JoinDirect, g.binder(c))
	if err != nil {
		g.unbind(c, "")
		return err
	}
	g.seat(c, room.ID(), p.Name)
	return nil
}

func (g *Gateway) handleLeaveRoom(c *Connection) error {
	roomID := c.Room()
	if roomID == "" {
		return ErrNotInRoom
	}

	err := g.registry.Leave(roomID, c.Player(), false)
	c.unseat()
	g.unbind(c, "")
	if errors.Is(err, game.ErrRoomNotFound) || errors.Is(err, game.ErrPlayerNotFound) {
		return nil
	}
	return err
}

func (g *Gateway) withRoom(c *Connection, action func(*game.Room, string) error) error {
	roomID := c.Room()
	if roomID == "" {
		return ErrNotInRoom
	}
	room, ok := g.registry.Get(roomID)
	if !ok {
		return game.ErrRoomNotFound
	}
	return action(room, c.Player())
}

func (g *Gateway) handleUpdateName(c *Connection, msg *protocol.Message) {
	playerID := c.Player()
	requested := msg.Name
	if requested == "" {
		requested = msg.PlayerName
	}

	name, err := game.ValidateName(requested)
	if err == nil {
		err = g.cooldowns.Check(playerID)
	}

	oldName := c.Name()
	if err == nil {
		if room, ok := g.registry.Get(c.Room()); ok {
			oldName, err = room.Rename(playerID, name)
		}
	}
	if err != nil {
		g.logger.Debug("Name update rejected", "player", playerID, "error", err)
		reply := &protocol.Message{
			Action:   protocol.ActionNameUpdateFailed,
			PlayerID: playerID,
			Code:     errorCode(err),
			Message:  err.Error(),
		}
		var cooldownErr *CooldownError
		if errors.As(err, &cooldownErr) {
			reply.CooldownRemaining = cooldownErr.Remaining.Milliseconds()
		}
		_ = c.SendMessage(reply)
		return
	}

	g.cooldowns.Record(playerID)
	c.SetName(name)
	g.logger.Info("Player renamed", "player", playerID, "old", oldName, "new", name)

	_ = c.SendMessage(&protocol.Message{
		Action:          protocol.ActionNameUpdateConfirmed,
		PlayerID:        playerID,
		RoomID:          c.Room(),
		Name:            name,
		OldName:         oldName,
		NewName:         name,
		CooldownMinutes: int(g.cooldowns.Interval() / time.Minute),
	})
}

// binder returns a BindFunc routing the chosen room's events to c
func (g *Gateway) binder(c *Connection) BindFunc {
	playerID := c.Player()
	return func(roomID string) {
		g.mu.Lock()
		defer g.mu.Unlock()
		key := sessionKey{roomID: roomID, playerID: playerID}
		if _, taken := g.sessions[key]; !taken {
			g.sessions[key] = c
		}
	}
}

// seat records a successful join and drops bindings to rooms tried on
// the way
func (g *Gateway) seat(c *Connection, roomID, name string) {
	c.seat(roomID, name)
	g.unbind(c, roomID)
	g.logger.Info("Player seated", "player", c.Player(), "name", name, "room", roomID)
}

// unbind removes every session owned by c except the one for keepRoom
func (g *Gateway) unbind(c *Connection, keepRoom string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, owner := range g.sessions {
		if owner == c && key.roomID != keepRoom {
			delete(g.sessions, key)
		}
	}
}

func (g *Gateway) sendError(c *Connection, err error) {
	_ = c.SendMessage(&protocol.Message{
		Action:   protocol.ActionError,
		PlayerID: c.Player(),
		RoomID:   c.Room(),
		Code:     errorCode(err),
		Message:  err.Error(),
	})
}

func requestedName(c *Connection, msg *protocol.Message) string {
	for _, name := range []string{msg.PlayerName, msg.Name, c.Name()} {
		if strings.TrimSpace(name) != "" {
			return name
		}
	}
	return ""
}

// errorCode maps an error to its wire code
func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return protocol.CodeRoomNotFound
	case errors.Is(err, game.ErrRoomExists):
		return protocol.CodeRoomExists
	case errors.Is(err, game.ErrRoomFull):
		return protocol.CodeRoomFull
	case errors.Is(err, game.ErrAlreadyJoined):
		return protocol.CodeAlreadyJoined
	case errors.Is(err, game.ErrGameInProgress):
		return protocol.CodeGameInProgress
	case errors.Is(err, game.ErrNotPlaying):
		return protocol.CodeNotPlaying
	case errors.Is(err, game.ErrNotYourTurn):
		return protocol.CodeNotYourTurn
	case errors.Is(err, game.ErrAlreadyActed):
		return protocol.CodeAlreadyActed
	case errors.Is(err, game.ErrInsufficientPlayers):
		return protocol.CodeInsufficientPlayers
	case errors.Is(err, game.ErrInvalidName):
		return protocol.CodeInvalidName
	case errors.Is(err, game.ErrInvalidConfig):
		return protocol.CodeInvalidConfig
	case errors.Is(err, game.ErrPlayerNotFound):
		return protocol.CodePlayerNotFound
	case errors.Is(err, ErrNameCooldownActive):
		return protocol.CodeNameCooldownActive
	case errors.Is(err, ErrMalformedMessage):
		return protocol.CodeMalformedMessage
	case errors.Is(err, ErrNotInRoom):
		return protocol.CodeNotInRoom
	default:
		return protocol.CodeInternal
	}
}
