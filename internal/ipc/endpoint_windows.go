// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build windows

package ipc

import (
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// pipePath renders the named pipe path for the endpoint.
func pipePath(endpoint string) string {
	return `\\.\pipe\` + endpoint
}

// listen opens the control channel as a named pipe readable by
// authenticated local users, matching what the settings app expects.
func listen(endpoint string) (net.Listener, error) {
	// D:P(A;;GA;;;AU) grants authenticated users full pipe access.
	cfg := &winio.PipeConfig{
		SecurityDescriptor: "D:P(A;;GA;;;AU)",
		MessageMode:        true,
		InputBufferSize:    1024,
		OutputBufferSize:   1024,
	}
	return winio.ListenPipe(pipePath(endpoint), cfg)
}

// dial connects to the control channel with a bounded timeout.
func dial(endpoint string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(pipePath(endpoint), &timeout)
}
