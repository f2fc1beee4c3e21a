// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package ipc

import (
	"bufio"
	"errors"
	"net"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"gain/agent/internal/config"
)

// Status is a client-side health reading of the running service. Probes
// never surface errors; they collapse into one of these values.
type Status int

const (
	// StatusHealthy means the probed subsystem reported itself up.
	StatusHealthy Status = iota
	// StatusUnhealthy means the subsystem reported itself down, or the
	// service itself was unreachable.
	StatusUnhealthy
	// StatusIndeterminate means the probe could not produce a definite
	// reading.
	StatusIndeterminate
	// StatusLocked means an identical probe was already in flight.
	StatusLocked
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	case StatusIndeterminate:
		return "indeterminate"
	case StatusLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Client is the settings-side view of the control channel.
type Client struct {
	cfg config.IPCConfig

	serviceMu sync.Mutex
	wsMu      sync.Mutex
	dbMu      sync.Mutex
}

// NewClient returns a client for the configured endpoint.
func NewClient(cfg config.IPCConfig) *Client {
	return &Client{cfg: cfg}
}

// SendAPIKey pushes a new bus credential to the service.
func (c *Client) SendAPIKey(key string) error {
	return c.send("Api " + key)
}

// SendConnString pushes a new Dentrix connection string to the service.
func (c *Client) SendConnString(connStr string) error {
	return c.send("Dentrix " + connStr)
}

func (c *Client) send(line string) error {
	conn, err := dial(c.cfg.Endpoint, c.cfg.DialTimeout())
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.cfg.DialTimeout()))
	_, err = conn.Write([]byte(line + "\n"))
	return err
}

// ServiceStatus verifies the service is accepting control sessions at all.
// An unreachable endpoint reads as unhealthy; anything else unexpected is
// indeterminate.
func (c *Client) ServiceStatus() Status {
	if !c.serviceMu.TryLock() {
		return StatusLocked
	}
	defer c.serviceMu.Unlock()

	conn, err := dial(c.cfg.Endpoint, c.cfg.DialTimeout())
	if err != nil {
		if unreachable(err) {
			return StatusUnhealthy
		}
		return StatusIndeterminate
	}
	conn.Close()
	return StatusHealthy
}

// WebSocketStatus asks the service whether its bus socket is connected.
func (c *Client) WebSocketStatus() Status {
	return c.query(&c.wsMu, "StatusWebSocket")
}

// DentrixStatus asks the service whether a database connection string is
// cached.
func (c *Client) DentrixStatus() Status {
	return c.query(&c.dbMu, "StatusDentrix")
}

func (c *Client) query(mu *sync.Mutex, command string) Status {
	if !mu.TryLock() {
		return StatusLocked
	}
	defer mu.Unlock()

	conn, err := dial(c.cfg.Endpoint, c.cfg.DialTimeout())
	if err != nil {
		return StatusIndeterminate
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.cfg.DialTimeout()))

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return StatusIndeterminate
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return StatusIndeterminate
	}
	switch strings.TrimRight(line, "\r\n") {
	case "1":
		return StatusHealthy
	case "0":
		return StatusUnhealthy
	default:
		return StatusIndeterminate
	}
}

// unreachable reports whether err means no service is listening, as
// opposed to a failure of undetermined cause.
func unreachable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, os.ErrNotExist)
}
