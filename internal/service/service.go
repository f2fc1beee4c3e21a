// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package service wires the agent's adapters together and runs them: the
// database supervisor's registration loop, the event relay's socket loop,
// and the IPC gateway's accept loop, all under one cancellation scope.
package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"gain/agent/internal/config"
	"gain/agent/internal/dentrix"
	"gain/agent/internal/ipc"
	"gain/agent/internal/relay"
	"gain/agent/internal/secrets"
)

// Run blocks until ctx is cancelled or a top-level task fails. A top-level
// failure is returned to the caller, which terminates the process non-zero
// so the host's service recovery policy engages; no in-process restart is
// attempted at this level.
func Run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	store, err := secrets.Open(cfg.Storage)
	if err != nil {
		return err
	}

	vendor, err := dentrix.PlatformVendor()
	if err != nil {
		return err
	}

	supervisor := dentrix.NewSupervisor(
		log.With("adapter", "dentrix"),
		store,
		vendor,
		dentrix.PgxOpener{},
		dentrix.Config{
			KeyFile:       cfg.Dentrix.KeyFile,
			User:          cfg.Dentrix.User,
			Password:      cfg.Dentrix.Password,
			RetryInterval: cfg.Dentrix.RetryInterval(),
		},
	)

	bus := relay.New(
		log.With("adapter", "socket"),
		store,
		supervisor,
		relay.Config{
			URL:               cfg.Bus.URL,
			HandshakeTimeout:  cfg.Bus.HandshakeTimeout(),
			ReconnectDelay:    cfg.Bus.ReconnectDelay(),
			SuperviseInterval: cfg.Bus.SuperviseInterval(),
			EmitThrottle:      cfg.Bus.EmitThrottle(),
		},
		relay.Hooks{},
	)

	gateway := ipc.NewServer(log.With("adapter", "pipe"), cfg.IPC, bus, supervisor)

	// The order tasks start reflects the dependency chain: database first,
	// then the socket that queries it, then the channel that reconfigures
	// both.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return supervisor.Run(ctx) })
	g.Go(func() error { return bus.Run(ctx) })
	g.Go(func() error { return gateway.Run(ctx) })
	return g.Wait()
}
