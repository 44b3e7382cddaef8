package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/doudizhu/cmd/doudizhu/shared"
	"github.com/lox/doudizhu/internal/randutil"
	"github.com/lox/doudizhu/internal/server"
)

// ServeCmd runs the game server. Flags override the optional HCL config
// file; an explicit seed makes user ids, room ids, and deals reproducible.
type ServeCmd struct {
	Addr   string `help:"Listen address (overrides config file)"`
	Debug  bool   `help:"Enable debug logging"`
	Seed   *int64 `help:"Deterministic RNG seed (overrides config file)"`
	Config string `default:"doudizhu.hcl" help:"Path to HCL config file" type:"path"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := shared.ParseLevel(cfg.Server.LogLevel)
	if c.Debug {
		level = shared.ParseLevel("debug")
	}
	logger := shared.SetupLogger(level)

	addr := cfg.Server.Address
	if c.Addr != "" {
		addr = c.Addr
	}

	seedFlag := cfg.Server.Seed
	if c.Seed != nil {
		seedFlag = c.Seed
	}
	var seed uint64
	if seedFlag != nil {
		seed = uint64(*seedFlag)
		logger.Info().Uint64("seed", seed).Msg("using deterministic seed")
	} else {
		seed = uint64(time.Now().UnixNano())
	}

	s := server.NewServer(logger, randutil.New(seed))
	logger.Info().Str("addr", addr).Msg("starting doudizhu server")

	ctx := shared.SetupSignalHandler(logger)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
