// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the Gain agent.
// It implements the long-running relay service plus companion commands for
// pushing configuration and probing health over the local IPC channel,
// using the Cobra CLI framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "gain-agent",
	Short:         "Gain agent relaying Dentrix queries to the Gain cloud",
	Long:          `The Gain agent bridges the local Dentrix database to the Gain event bus and exposes health and configuration over a local IPC channel.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
