// Package main is the entry point for the Gain agent.
// It relays queries from the Gain cloud bus to a local Dentrix database
// and exposes service health over a local IPC channel.
package main

import (
	"gain/agent/cmd"
)

// main initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
