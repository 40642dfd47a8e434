package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/twentyone/internal/game"
)

const (
	DefaultAddress      = "localhost"
	DefaultPort         = 8080
	DefaultLogLevel     = "info"
	DefaultNameCooldown = 5 * time.Minute
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server       ServerSettings `hcl:"server,block"`
	RoomDefaults *RoomDefaults  `hcl:"room_defaults,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address             string   `hcl:"address,optional"`
	Port                int      `hcl:"port,optional"`
	LogLevel            string   `hcl:"log_level,optional"`
	NameCooldownSeconds *int     `hcl:"name_cooldown_seconds,optional"`
	AllowedOrigins      []string `hcl:"allowed_origins,optional"`
}

// RoomDefaults is the configuration used for auto-matched rooms and as the
// base that client-supplied room configs are merged onto
type RoomDefaults struct {
	MaxPlayers       int                   `hcl:"max_players,optional"`
	CountdownSeconds *int                  `hcl:"countdown_seconds,optional"`
	MinPlayers       int                   `hcl:"min_players,optional"`
	AutoStart        bool                  `hcl:"auto_start,optional"`
	DealerDelayMs    *int                  `hcl:"dealer_delay_ms,optional"`
	PlayerTimeout    *PlayerTimeoutSetting `hcl:"player_timeout,block"`
}

// PlayerTimeoutSetting configures the per-turn timer
type PlayerTimeoutSetting struct {
	Enabled         *bool `hcl:"enabled,optional"`
	DurationSeconds int   `hcl:"duration_seconds,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:             DefaultAddress,
			Port:                DefaultPort,
			LogLevel:            DefaultLogLevel,
			NameCooldownSeconds: intPtr(int(DefaultNameCooldown / time.Second)),
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = DefaultAddress
	}
	if config.Server.Port == 0 {
		config.Server.Port = DefaultPort
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = DefaultLogLevel
	}
	if config.Server.NameCooldownSeconds == nil {
		config.Server.NameCooldownSeconds = intPtr(int(DefaultNameCooldown / time.Second))
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.NameCooldownSeconds != nil && *c.Server.NameCooldownSeconds < 0 {
		return fmt.Errorf("name cooldown cannot be negative: %d", *c.Server.NameCooldownSeconds)
	}
	if err := c.RoomConfig().Validate(); err != nil {
		return fmt.Errorf("room_defaults: %w", err)
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// NameCooldown returns the minimum interval between name changes. Zero
// disables the cooldown.
func (c *ServerConfig) NameCooldown() time.Duration {
	if c.Server.NameCooldownSeconds == nil {
		return DefaultNameCooldown
	}
	return time.Duration(*c.Server.NameCooldownSeconds) * time.Second
}

func intPtr(v int) *int { return &v }

// RoomConfig returns the default room configuration with any
// room_defaults overrides applied
func (c *ServerConfig) RoomConfig() game.RoomConfig {
	cfg := game.DefaultRoomConfig()
	d := c.RoomDefaults
	if d == nil {
		return cfg
	}

	if d.MaxPlayers != 0 {
		cfg.MaxPlayers = d.MaxPlayers
	}
	if d.CountdownSeconds != nil {
		cfg.CountdownSeconds = *d.CountdownSeconds
	}
	if d.MinPlayers != 0 {
		cfg.MinPlayers = d.MinPlayers
	}
	cfg.AutoStart = d.AutoStart
	if d.DealerDelayMs != nil {
		cfg.DealerDelay = time.Duration(*d.DealerDelayMs) * time.Millisecond
	}
	if t := d.PlayerTimeout; t != nil {
		if t.Enabled != nil {
			cfg.PlayerTimeout.Enabled = *t.Enabled
		}
		if t.DurationSeconds != 0 {
			cfg.PlayerTimeout.DurationSeconds = t.DurationSeconds
		}
	}
	return cfg
}
