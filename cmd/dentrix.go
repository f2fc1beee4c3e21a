// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"gain/agent/internal/config"
	"gain/agent/internal/ipc"
)

// dentrixCmd pushes a Dentrix connection string to the running service,
// bypassing vendor registration.
var dentrixCmd = &cobra.Command{
	Use:   "dentrix <connstr>",
	Short: "Update the Dentrix connection string of the running service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := ipc.NewClient(cfg.IPC).SendConnString(args[0]); err != nil {
			return err
		}
		pterm.Success.Println("Connection string updated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dentrixCmd)
}
