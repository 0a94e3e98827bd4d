package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/cardroom/blackjack/internal/blackjack"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Table  *TableConfig   `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// TableConfig defines the house rules shared by every room
type TableConfig struct {
	Decks          int `hcl:"decks,optional"`
	ReshuffleAt    int `hcl:"reshuffle_at,optional"`
	BetSeconds     int `hcl:"bet_seconds,optional"`
	ActionSeconds  int `hcl:"action_seconds,optional"`
	DealerBankroll int `hcl:"dealer_bankroll,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	rules := blackjack.DefaultRules()
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Table: &TableConfig{
			Decks:          rules.Decks,
			ReshuffleAt:    rules.ReshuffleAt,
			BetSeconds:     rules.BetSeconds,
			ActionSeconds:  rules.ActionSeconds,
			DealerBankroll: rules.DealerBankroll,
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Missing file falls back to defaults
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
	defaults := DefaultServerConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Table == nil {
		config.Table = defaults.Table
	} else {
		if config.Table.Decks == 0 {
			config.Table.Decks = defaults.Table.Decks
		}
		if config.Table.ReshuffleAt == 0 {
			config.Table.ReshuffleAt = defaults.Table.ReshuffleAt
		}
		if config.Table.BetSeconds == 0 {
			config.Table.BetSeconds = defaults.Table.BetSeconds
		}
		if config.Table.ActionSeconds == 0 {
			config.Table.ActionSeconds = defaults.Table.ActionSeconds
		}
		if config.Table.DealerBankroll == 0 {
			config.Table.DealerBankroll = defaults.Table.DealerBankroll
		}
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Table.Decks < 1 {
		return fmt.Errorf("decks must be positive, got %d", c.Table.Decks)
	}
	if c.Table.ReshuffleAt < 0 || c.Table.ReshuffleAt >= c.Table.Decks*52 {
		return fmt.Errorf("reshuffle threshold %d out of range for %d decks", c.Table.ReshuffleAt, c.Table.Decks)
	}
	if c.Table.BetSeconds < 1 || c.Table.ActionSeconds < 1 {
		return fmt.Errorf("countdowns must be at least one second")
	}
	if c.Table.DealerBankroll <= 0 {
		return fmt.Errorf("dealer bankroll must be positive, got %d", c.Table.DealerBankroll)
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Rules converts the table block into engine rules, keeping the
// built-in pacing delays.
func (c *ServerConfig) Rules() blackjack.Rules {
	rules := blackjack.DefaultRules()
	rules.Decks = c.Table.Decks
	rules.ReshuffleAt = c.Table.ReshuffleAt
	rules.BetSeconds = c.Table.BetSeconds
	rules.ActionSeconds = c.Table.ActionSeconds
	rules.DealerBankroll = c.Table.DealerBankroll
	return rules
}
