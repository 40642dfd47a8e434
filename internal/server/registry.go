package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/game"
	"github.com/lox/twentyone/internal/randutil"
	"github.com/lox/twentyone/internal/roomid"
)

const maxIDAttempts = 100

// BindFunc is called with a room's id just before a player is seated in
// it, so the caller can route that room's events to the player. It may be
// called more than once when auto-matching retries another room.
type BindFunc func(roomID string)

// Registry tracks the live rooms. The registry lock is always taken before
// any room lock, never the reverse.
type Registry struct {
	logger      *log.Logger
	publisher   game.Publisher
	clock       quartz.Clock
	defaults    game.RoomConfig
	ids         *roomid.Generator
	newShuffler func() deck.Shuffler

	mu    sync.RWMutex
	rooms map[string]*game.Room
	order []string
}

// NewRegistry constructs an empty registry. Rooms it creates publish
// their events to publisher.
func NewRegistry(defaults game.RoomConfig, publisher game.Publisher, logger *log.Logger, opts ...Option) *Registry {
	o := buildOptions(opts)
	return &Registry{
		logger:      logger.WithPrefix("registry"),
		publisher:   publisher,
		clock:       o.clock,
		defaults:    defaults,
		ids:         roomid.NewGenerator(randutil.NewLocked(randutil.New(o.seed))),
		newShuffler: o.newShuffler,
		rooms:       make(map[string]*game.Room),
	}
}

// Defaults returns the configuration used for auto-matched rooms
func (r *Registry) Defaults() game.RoomConfig {
	return r.defaults
}

// Create builds an empty room. An empty roomID allocates a fresh one.
func (r *Registry) Create(roomID string, cfg game.RoomConfig) (*game.Room, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(roomID, cfg)
}

func (r *Registry) createLocked(roomID string, cfg game.RoomConfig) (*game.Room, error) {
	if roomID == "" {
		for range maxIDAttempts {
			id := r.ids.Generate()
			if _, exists := r.rooms[id]; !exists {
				roomID = id
				break
			}
		}
		if roomID == "" {
			return nil, fmt.Errorf("allocate room id: %w", game.ErrRoomExists)
		}
	} else if _, exists := r.rooms[roomID]; exists {
		return nil, game.ErrRoomExists
	}

	room := game.NewRoom(roomID, cfg,
		game.WithClock(r.clock),
		game.WithLogger(r.logger),
		game.WithPublisher(r.publisher),
		game.WithShuffler(r.newShuffler()),
	)
	r.rooms[roomID] = room
	r.order = append(r.order, roomID)
	r.logger.Info("Room created", "room", roomID, "maxPlayers", cfg.MaxPlayers, "minPlayers", cfg.MinPlayers)
	return room, nil
}

// Join seats a player in an existing room
func (r *Registry) Join(roomID, playerID, name string, kind game.JoinKind, bind BindFunc) (*game.Room, game.PlayerView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, game.PlayerView{}, game.ErrRoomNotFound
	}
	if bind != nil {
		bind(roomID)
	}
	p, err := room.Join(playerID, name, kind)
	if err != nil {
		return nil, game.PlayerView{}, err
	}
	return room, p, nil
}

// JoinAny seats a player in the oldest waiting room with a free seat, or
// in a new room with the default configuration.
func (r *Registry) JoinAny(playerID, name string, bind BindFunc) (*game.Room, game.PlayerView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		room := r.rooms[id]
		if !room.Open() || room.HasPlayer(playerID) {
			continue
		}
		if bind != nil {
			bind(id)
		}
		p, err := room.Join(playerID, name, game.JoinAuto)
		if err == nil {
			return room, p, nil
		}
		if errors.Is(err, game.ErrInvalidName) {
			return nil, game.PlayerView{}, err
		}
		r.logger.Debug("Auto-match skipped room", "room", id, "error", err)
	}

	room, err := r.createLocked("", r.defaults)
	if err != nil {
		return nil, game.PlayerView{}, err
	}
	if bind != nil {
		bind(room.ID())
	}
	p, err := room.Join(playerID, name, game.JoinAuto)
	if err != nil {
		r.removeLocked(room.ID())
		room.Close()
		return nil, game.PlayerView{}, err
	}
	return room, p, nil
}

// Leave removes a player and drops the room once it is empty
func (r *Registry) Leave(roomID, playerID string, disconnected bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return game.ErrRoomNotFound
	}
	if err := room.Leave(playerID, disconnected); err != nil {
		return err
	}
	if room.Closed() {
		r.removeLocked(roomID)
		r.logger.Info("Room destroyed", "room", roomID)
	}
	return nil
}

// Discard closes and removes a room that nobody is seated in
func (r *Registry) Discard(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok || room.Summary().Players > 0 {
		return
	}
	room.Close()
	r.removeLocked(roomID)
}

func (r *Registry) removeLocked(roomID string) {
	delete(r.rooms, roomID)
	for i, id := range r.order {
		if id == roomID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns a live room
func (r *Registry) Get(roomID string) (*game.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	return room, ok
}

// List returns summaries of all rooms in creation order
func (r *Registry) List() []game.Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]game.Summary, 0, len(r.order))
	for _, id := range r.order {
		summaries = append(summaries, r.rooms[id].Summary())
	}
	return summaries
}

// Len returns the number of live rooms
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Close shuts every room down
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, room := range r.rooms {
		room.Close()
	}
	r.rooms = make(map[string]*game.Room)
	r.order = nil
}
