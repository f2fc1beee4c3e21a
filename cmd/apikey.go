// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"gain/agent/internal/config"
	"gain/agent/internal/ipc"
)

// apiKeyCmd pushes a new bus credential to the running service.
var apiKeyCmd = &cobra.Command{
	Use:   "api-key <key>",
	Short: "Update the bus API key of the running service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := ipc.NewClient(cfg.IPC).SendAPIKey(args[0]); err != nil {
			return err
		}
		pterm.Success.Println("API key updated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(apiKeyCmd)
}
