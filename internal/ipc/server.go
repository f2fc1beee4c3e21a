// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package ipc implements the agent's local control channel: a line-oriented
// protocol over a named pipe (Windows) or unix domain socket used by the
// settings application to push credential updates and poll health.
//
// Sessions are strictly one at a time. Each session carries exactly one
// command line, optionally one response line, then closes. The protocol is:
//
//	Api <key>          update the bus credential, reconnect the socket
//	Dentrix <connstr>  update the cached connection string directly
//	Status             -> "Ws=<0|1>,Db=<0|1>"
//	StatusWebSocket    -> "1" or "0"
//	StatusDentrix      -> "1" or "0"
//
// Anything else is logged as malformed with no response.
package ipc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"gain/agent/internal/config"
	"gain/agent/internal/errors"
	"gain/agent/internal/logging"
)

// RelayControl is the slice of the event relay the gateway drives.
type RelayControl interface {
	Connect(ctx context.Context, apiKey string) error
	IsConnected() bool
}

// DatabaseControl is the slice of the database supervisor the gateway
// drives.
type DatabaseControl interface {
	Connect(connStr string)
	IsConnected() bool
}

// sessionTimeout bounds a single client session so a stuck client cannot
// block the accept loop forever.
const sessionTimeout = 5 * time.Second

// Server accepts control sessions one at a time.
type Server struct {
	log   *slog.Logger
	cfg   config.IPCConfig
	relay RelayControl
	db    DatabaseControl
}

// NewServer wires the gateway to its two subsystems.
func NewServer(log *slog.Logger, cfg config.IPCConfig, relay RelayControl, db DatabaseControl) *Server {
	return &Server{log: log, cfg: cfg, relay: relay, db: db}
}

// Run opens the control channel and serves sessions until ctx is
// cancelled. If the channel cannot be (re)created the server backs off a
// fixed delay and retries rather than failing the process.
func (s *Server) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ln, err := listen(s.cfg.Endpoint)
		if err != nil {
			s.log.Error("could not open control channel", "err", err)
			if !sleep(ctx, s.cfg.RetryDelay()) {
				return ctx.Err()
			}
			continue
		}
		s.log.Info("control channel listening", "endpoint", s.cfg.Endpoint)
		err = s.serve(ctx, ln)
		ln.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Error("control channel failed", "err", err)
		if !sleep(ctx, s.cfg.RetryDelay()) {
			return ctx.Err()
		}
	}
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		// One client session at a time; no concurrent dispatch.
		s.session(ctx, conn)
	}
}

// session reads exactly one command line, dispatches it, and closes.
func (s *Server) session(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(sessionTimeout))
	log := s.log.With("session", uuid.NewString())

	line, err := bufio.NewReader(conn).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && (err != io.EOF || line == "") {
		if err != io.EOF {
			log.Error("could not read control line", "err", err)
		}
		return
	}
	if err := s.dispatch(ctx, log, line, conn); err != nil {
		log.Error("control command failed", "err", err)
	}
}

func (s *Server) dispatch(ctx context.Context, log *slog.Logger, line string, conn net.Conn) error {
	switch {
	case strings.HasPrefix(line, "Api "):
		key := strings.TrimPrefix(line, "Api ")
		log.Info("updated api key", "key", logging.MaskKey(key))
		return s.relay.Connect(ctx, key)
	case strings.HasPrefix(line, "Dentrix "):
		log.Info("updated dentrix connection string")
		s.db.Connect(strings.TrimPrefix(line, "Dentrix "))
		return nil
	case line == "Status":
		_, err := fmt.Fprintf(conn, "Ws=%d,Db=%d\n", boolBit(s.relay.IsConnected()), boolBit(s.db.IsConnected()))
		return err
	case line == "StatusWebSocket":
		_, err := fmt.Fprintf(conn, "%d\n", boolBit(s.relay.IsConnected()))
		return err
	case line == "StatusDentrix":
		_, err := fmt.Fprintf(conn, "%d\n", boolBit(s.db.IsConnected()))
		return err
	default:
		return errors.New(errors.MalformedControl, logging.Mask(line))
	}
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// sleep waits for d or cancellation, reporting false when cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
