// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gain/agent/internal/config"
	"gain/agent/internal/logging"
	"gain/agent/internal/service"
)

// serveCmd runs the relay service until the process is signalled.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logging.New(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("service started")
		err = service.Run(ctx, cfg, log)
		if err != nil && !errors.Is(err, context.Canceled) {
			// A failure escaping a top-level task is fatal. Exit non-zero
			// so the host's recovery policy restarts us.
			log.Error("service failed", "err", err)
			os.Exit(1)
		}
		log.Info("service stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
