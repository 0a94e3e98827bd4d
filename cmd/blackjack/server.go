package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/cardroom/blackjack/cmd/blackjack/shared"
	"github.com/cardroom/blackjack/internal/server"
)

// ServerCmd contains core server configuration
type ServerCmd struct {
	Config   string `short:"c" default:"blackjack.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Seed     *int64 `help:"Deterministic RNG seed (optional)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel)

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("Using deterministic seed", "seed", seed)
	}
	rng := rand.New(rand.NewSource(seed))

	rules := cfg.Rules()
	logger.Info("Starting blackjack server",
		"addr", addr,
		"decks", rules.Decks,
		"bet_seconds", rules.BetSeconds,
		"action_seconds", rules.ActionSeconds,
		"dealer_bankroll", rules.DealerBankroll)

	s := server.NewServer(addr, logger)
	rooms := server.NewRoomManager(rules, quartz.NewReal(), rng, s, logger)
	s.SetRooms(rooms)

	ctx := shared.SetupSignalHandler(logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// CheckConfigCmd validates a configuration file without starting the
// server.
type CheckConfigCmd struct {
	Config string `arg:"" default:"blackjack.hcl" help:"Path to HCL configuration file"`
}

func (c *CheckConfigCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Printf("%s: ok (listen %s, %d decks)\n", c.Config, cfg.GetServerAddress(), cfg.Table.Decks)
	return nil
}
