package game

import (
	"fmt"
	"time"
)

const (
	// MaxSeats is the hard upper bound on players in one room
	MaxSeats = 6

	DefaultMaxPlayers       = 6
	DefaultCountdownSeconds = 30
	DefaultTimeoutSeconds   = 30
	DefaultMinPlayers       = 1
	DefaultDealerDelay      = time.Second
)

// PlayerTimeout controls the per-turn decision timer
type PlayerTimeout struct {
	Enabled         bool
	DurationSeconds int
}

// Duration returns the timeout as a time.Duration
func (t PlayerTimeout) Duration() time.Duration {
	return time.Duration(t.DurationSeconds) * time.Second
}

// RoomConfig is fixed when a room is created
type RoomConfig struct {
	MaxPlayers       int
	CountdownSeconds int
	PlayerTimeout    PlayerTimeout
	AutoStart        bool
	MinPlayers       int

	// DealerDelay spaces out dealer draws. Zero resolves the dealer's
	// hand in one step.
	DealerDelay time.Duration
}

// DefaultRoomConfig returns the configuration used for auto-matched rooms
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		MaxPlayers:       DefaultMaxPlayers,
		CountdownSeconds: DefaultCountdownSeconds,
		PlayerTimeout: PlayerTimeout{
			Enabled:         true,
			DurationSeconds: DefaultTimeoutSeconds,
		},
		AutoStart:   false,
		MinPlayers:  DefaultMinPlayers,
		DealerDelay: DefaultDealerDelay,
	}
}

// Validate checks the configuration is playable
func (c RoomConfig) Validate() error {
	if c.MaxPlayers < 1 || c.MaxPlayers > MaxSeats {
		return fmt.Errorf("%w: max players must be between 1 and %d, got %d", ErrInvalidConfig, MaxSeats, c.MaxPlayers)
	}
	if c.MinPlayers < 1 || c.MinPlayers > c.MaxPlayers {
		return fmt.Errorf("%w: min players must be between 1 and %d, got %d", ErrInvalidConfig, c.MaxPlayers, c.MinPlayers)
	}
	if c.CountdownSeconds < 0 {
		return fmt.Errorf("%w: countdown cannot be negative", ErrInvalidConfig)
	}
	if c.PlayerTimeout.Enabled && c.PlayerTimeout.DurationSeconds <= 0 {
		return fmt.Errorf("%w: player timeout must be positive when enabled", ErrInvalidConfig)
	}
	if c.DealerDelay < 0 {
		return fmt.Errorf("%w: dealer delay cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// ConfigOverrides carries the optional fields a client may set when
// creating a room. Nil fields keep the base value.
type ConfigOverrides struct {
	MaxPlayers       *int
	CountdownSeconds *int
	TimeoutEnabled   *bool
	TimeoutSeconds   *int
	AutoStart        *bool
	MinPlayers       *int
}

// Merge returns c with the non-nil overrides applied
func (c RoomConfig) Merge(o ConfigOverrides) RoomConfig {
	if o.MaxPlayers != nil {
		c.MaxPlayers = *o.MaxPlayers
	}
	if o.CountdownSeconds != nil {
		c.CountdownSeconds = *o.CountdownSeconds
	}
	if o.TimeoutEnabled != nil {
		c.PlayerTimeout.Enabled = *o.TimeoutEnabled
	}
	if o.TimeoutSeconds != nil {
		c.PlayerTimeout.DurationSeconds = *o.TimeoutSeconds
	}
	if o.AutoStart != nil {
		c.AutoStart = *o.AutoStart
	}
	if o.MinPlayers != nil {
		c.MinPlayers = *o.MinPlayers
	}
	return c
}
