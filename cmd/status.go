// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"gain/agent/internal/config"
	"gain/agent/internal/ipc"
)

// statusCmd probes the running service over IPC and renders subsystem
// health.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show health of the running service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client := ipc.NewClient(cfg.IPC)

		spinner, _ := pterm.DefaultSpinner.Start("Probing service...")
		svc := client.ServiceStatus()
		ws := client.WebSocketStatus()
		db := client.DentrixStatus()
		_ = spinner.Stop()

		data := pterm.TableData{
			{"Subsystem", "Status"},
			{"Service", renderStatus(svc)},
			{"WebSocket", renderStatus(ws)},
			{"Dentrix", renderStatus(db)},
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func renderStatus(s ipc.Status) string {
	switch s {
	case ipc.StatusHealthy:
		return pterm.FgGreen.Sprint("healthy")
	case ipc.StatusUnhealthy:
		return pterm.FgRed.Sprint("unhealthy")
	default:
		return pterm.FgYellow.Sprint(s.String())
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
