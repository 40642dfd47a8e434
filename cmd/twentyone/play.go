package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/lox/twentyone/internal/client"
)

// PlayCmd connects to a server and plays hands with a stand threshold
type PlayCmd struct {
	Server   string        `short:"s" default:"ws://localhost:8080/ws" help:"WebSocket server URL"`
	Name     string        `short:"n" help:"Display name (server default when empty)"`
	PlayerID string        `help:"Player id to play as (server assigns one when empty)"`
	Room     string        `short:"r" help:"Room id to join (auto-match when empty)"`
	Hands    int           `default:"5" help:"Hands to play before leaving"`
	StandOn  int           `default:"17" help:"Stand once the hand scores at least this much"`
	Timeout  time.Duration `default:"10s" help:"Connection timeout"`
	LogLevel string        `short:"l" default:"info" help:"Log level: debug, info, warn, error"`
}

func (c *PlayCmd) Run() error {
	logger := setupLogger(c.LogLevel)

	ctx, stop := signalContext(logger)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	conn := client.NewClient(strings.TrimSpace(c.Server), strings.TrimSpace(c.PlayerID), logger)
	if err := conn.Connect(dialCtx); err != nil {
		return err
	}
	defer func() { _ = conn.Disconnect() }()

	player := client.NewAutoPlayer(conn, client.AutoPlayerConfig{
		Name:    strings.TrimSpace(c.Name),
		RoomID:  strings.TrimSpace(c.Room),
		Hands:   c.Hands,
		StandOn: c.StandOn,
	}, logger)

	stats, err := player.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	printStats(os.Stdout, conn.PlayerName(), stats, true)
	return nil
}
