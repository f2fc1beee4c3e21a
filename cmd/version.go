// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped by the release build.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show agent version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gain-agent %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
