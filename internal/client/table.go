package client

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/twentyone/internal/protocol"
)

// TableConfig describes a room filled entirely with AutoPlayers
type TableConfig struct {
	ServerURL string
	RoomID    string // empty lets the server pick
	Seats     int
	Hands     int
	StandOn   int
}

// RunTable creates a room sized for cfg.Seats, fills it with AutoPlayers
// and plays cfg.Hands hands. Stats are returned in seat order.
func RunTable(ctx context.Context, cfg TableConfig, logger *log.Logger) ([]Stats, error) {
	if cfg.Seats < 1 {
		return nil, fmt.Errorf("table needs at least one seat, got %d", cfg.Seats)
	}

	players := make([]*AutoPlayer, cfg.Seats)
	for i := range players {
		c := NewClient(cfg.ServerURL, fmt.Sprintf("seat-%d", i+1), logger)
		if err := c.Connect(ctx); err != nil {
			for _, p := range players[:i] {
				_ = p.client.Disconnect()
			}
			return nil, fmt.Errorf("seat %d: %w", i+1, err)
		}
		defer func() { _ = c.Disconnect() }()

		pc := AutoPlayerConfig{
			Name:    fmt.Sprintf("Seat %d", i+1),
			RoomID:  cfg.RoomID,
			Hands:   cfg.Hands,
			StandOn: cfg.StandOn,
		}
		if i == 0 {
			pc.Create = true
			pc.RoomConfig = &protocol.RoomConfig{
				MaxPlayers: protocol.IntPtr(cfg.Seats),
				MinPlayers: protocol.IntPtr(cfg.Seats),
			}
		}
		players[i] = NewAutoPlayer(c, pc, logger)
	}

	stats := make([]Stats, cfg.Seats)
	g, ctx := errgroup.WithContext(ctx)

	run := func(i int) {
		g.Go(func() error {
			s, err := players[i].Run(ctx)
			stats[i] = s
			if err != nil {
				return fmt.Errorf("seat %d: %w", i+1, err)
			}
			return nil
		})
	}

	// The room has to exist before the other seats can join it
	run(0)
	select {
	case <-players[0].Seated():
	case <-ctx.Done():
		return stats, g.Wait()
	}
	roomID := players[0].client.RoomID()
	for i := 1; i < cfg.Seats; i++ {
		players[i].config.RoomID = roomID
		run(i)
	}

	return stats, g.Wait()
}
