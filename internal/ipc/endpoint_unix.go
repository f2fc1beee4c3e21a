// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build !windows

package ipc

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"gain/agent/internal/xdg"
)

// socketPath resolves the unix socket for the named endpoint under the
// agent's state dir.
func socketPath(endpoint string) (string, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, endpoint+".sock"), nil
}

// listen opens the control channel as a unix domain socket. A stale socket
// file from a previous run is removed first.
func listen(endpoint string) (net.Listener, error) {
	path, err := socketPath(endpoint)
	if err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	return net.Listen("unix", path)
}

// dial connects to the control channel with a bounded timeout.
func dial(endpoint string, timeout time.Duration) (net.Conn, error) {
	path, err := socketPath(endpoint)
	if err != nil {
		return nil, err
	}
	return net.DialTimeout("unix", path, timeout)
}
