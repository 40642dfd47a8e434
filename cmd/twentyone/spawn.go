package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/lox/twentyone/internal/client"
	"github.com/lox/twentyone/internal/server"
)

// SpawnCmd runs an in-process server and a table of automatic players
type SpawnCmd struct {
	Addr     string `default:"127.0.0.1:0" help:"Address for the embedded server"`
	Seats    int    `default:"3" help:"Players at the table"`
	Hands    int    `default:"10" help:"Hands to play"`
	StandOn  int    `default:"17" help:"Stand once a hand scores at least this much"`
	Seed     int64  `help:"Deterministic seed for room ids and shuffles (optional)"`
	LogLevel string `short:"l" default:"warn" help:"Log level: debug, info, warn, error"`
	Verbose  bool   `help:"Print every hand result"`
}

func (c *SpawnCmd) Run() error {
	logger := setupLogger(c.LogLevel)

	ctx, stop := signalContext(logger)
	defer stop()

	cfg := server.DefaultServerConfig()
	cfg.RoomDefaults = &server.RoomDefaults{
		CountdownSeconds: new(int),
		DealerDelayMs:    new(int),
	}

	var opts []server.Option
	if c.Seed > 0 {
		opts = append(opts, server.WithSeed(c.Seed))
	}
	srv := server.NewServer(cfg, logger, opts...)

	listener, err := net.Listen("tcp", c.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", c.Addr, err)
	}
	baseURL := "http://" + listener.Addr().String()

	serverCtx, cancelServer := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(serverCtx)
	g.Go(func() error { return srv.Serve(gctx, listener) })

	var stats []client.Stats
	g.Go(func() error {
		defer cancelServer()
		if err := server.WaitForHealthy(gctx, baseURL); err != nil {
			return err
		}
		var err error
		stats, err = client.RunTable(gctx, client.TableConfig{
			ServerURL: baseURL,
			Seats:     c.Seats,
			Hands:     c.Hands,
			StandOn:   c.StandOn,
		}, logger)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	for i, s := range stats {
		printStats(os.Stdout, fmt.Sprintf("Seat %d", i+1), s, c.Verbose)
	}
	return nil
}
