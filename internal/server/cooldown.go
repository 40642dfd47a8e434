package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
)

var ErrNameCooldownActive = errors.New("name change cooldown active")

// CooldownError reports how long a player must wait before renaming again
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: try again in %s", ErrNameCooldownActive, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrNameCooldownActive
}

// NameCooldowns limits how often each player id may change its name
type NameCooldowns struct {
	clock    quartz.Clock
	interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewNameCooldowns creates a tracker allowing one change per interval
func NewNameCooldowns(interval time.Duration, clock quartz.Clock) *NameCooldowns {
	return &NameCooldowns{
		clock:    clock,
		interval: interval,
		last:     make(map[string]time.Time),
	}
}

// Interval returns the configured cooldown
func (n *NameCooldowns) Interval() time.Duration {
	return n.interval
}

// Check returns a *CooldownError if playerID changed its name too recently
func (n *NameCooldowns) Check(playerID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	last, ok := n.last[playerID]
	if !ok {
		return nil
	}
	if remaining := n.interval - n.clock.Now().Sub(last); remaining > 0 {
		return &CooldownError{Remaining: remaining}
	}
	return nil
}

// Record starts a new cooldown window for playerID and forgets expired ones
func (n *NameCooldowns) Record(playerID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.clock.Now()
	for id, at := range n.last {
		if now.Sub(at) >= n.interval {
			delete(n.last, id)
		}
	}
	n.last[playerID] = now
}
