package main

import (
	"fmt"

	"github.com/lox/twentyone/internal/server"
)

// ServerCmd runs the room server. Flags override the HCL config file.
type ServerCmd struct {
	Config   string `short:"c" default:"twentyone.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Address to bind to (overrides config)"`
	Port     int    `short:"p" help:"Port to listen on (overrides config)"`
	LogLevel string `short:"l" help:"Log level: debug, info, warn, error (overrides config)"`
	Seed     int64  `help:"Deterministic seed for room ids and shuffles (optional)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := setupLogger(cfg.Server.LogLevel)

	var opts []server.Option
	if c.Seed > 0 {
		logger.Info("Using deterministic seed", "seed", c.Seed)
		opts = append(opts, server.WithSeed(c.Seed))
	}

	rooms := cfg.RoomConfig()
	logger.Info("Starting Blackjack server",
		"addr", cfg.GetServerAddress(),
		"maxPlayers", rooms.MaxPlayers,
		"minPlayers", rooms.MinPlayers,
		"countdown", rooms.CountdownSeconds,
		"turnTimeout", rooms.PlayerTimeout.Duration(),
		"nameCooldown", cfg.NameCooldown())

	ctx, stop := signalContext(logger)
	defer stop()

	return server.NewServer(cfg, logger, opts...).Run(ctx)
}
