// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package relay maintains the outbound websocket to the Gain event bus and
// services inbound query events against the local database supervisor.
//
// Exactly one live socket exists at a time, authenticated with the current
// API key. Replacing the key tears down the old socket, cancelling its
// in-flight emits, before a new one is dialed. A supervisory timer
// re-invokes the connect path as a self-healing measure independent of the
// socket's own redial loop.
package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"gain/agent/internal/dentrix"
	"gain/agent/internal/logging"
	"gain/agent/internal/secrets"
)

// QuerySource streams results for one query. *dentrix.Supervisor is the
// production implementation.
type QuerySource interface {
	Query(ctx context.Context, sql string) <-chan dentrix.Result
}

// Config holds the relay's endpoint and timing parameters.
type Config struct {
	// URL is the websocket endpoint of the bus.
	URL string
	// HandshakeTimeout bounds a single dial attempt.
	HandshakeTimeout time.Duration
	// ReconnectDelay is the fixed delay between redial attempts.
	ReconnectDelay time.Duration
	// SuperviseInterval is the period of the self-healing reconnect tick.
	SuperviseInterval time.Duration
	// EmitThrottle is the minimum delay between result emits.
	EmitThrottle time.Duration
}

// Relay owns the bus socket. The API key and current connection are shared
// mutable state guarded by mu; the connect path itself is serialized by a
// single-flight semaphore so two reconnect attempts can never interleave.
type Relay struct {
	log    *slog.Logger
	store  secrets.Store
	source QuerySource
	cfg    Config
	hooks  Hooks

	sem *semaphore.Weighted

	mu      sync.Mutex
	apiKey  string
	current *conn
	cancel  context.CancelFunc
}

// New seeds the API key from the secret store. A store read failure is
// logged, not fatal; the settings application can push a fresh key.
func New(log *slog.Logger, store secrets.Store, source QuerySource, cfg Config, hooks Hooks) *Relay {
	r := &Relay{
		log:    log,
		store:  store,
		source: source,
		cfg:    cfg,
		hooks:  hooks,
		sem:    semaphore.NewWeighted(1),
	}
	key, err := store.ReadAPIKey()
	if err != nil {
		log.Error("could not read persisted api key", "err", err)
	} else {
		r.apiKey = key
	}
	return r
}

// APIKey returns the last-applied credential.
func (r *Relay) APIKey() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apiKey
}

// IsConnected reports whether a non-empty credential is set and the socket
// reports itself connected.
func (r *Relay) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apiKey != "" && r.current != nil && r.current.isConnected()
}

// Connect applies apiKey as the bus credential. Already connected with the
// same key is a no-op. Otherwise any existing socket is torn down, the key
// is persisted, and for a non-empty key a new socket starts dialing in the
// background. Concurrent callers serialize on the single-flight guard.
func (r *Relay) Connect(ctx context.Context, apiKey string) error {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.sem.Release(1)

	r.mu.Lock()
	unchanged := r.apiKey == apiKey && (r.current != nil || apiKey == "")
	r.mu.Unlock()
	if unchanged {
		return nil
	}

	r.disconnect()

	r.mu.Lock()
	r.apiKey = apiKey
	r.mu.Unlock()
	if err := r.store.WriteAPIKey(apiKey); err != nil {
		r.log.Error("could not persist api key", "err", err)
	}

	if apiKey == "" {
		r.log.Info("bus credential cleared")
		return nil
	}

	// The connection must outlive the caller (typically an IPC session),
	// so its context is detached from ctx's cancellation.
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := newConn(r.log, r.cfg.URL, apiKey, r.source, r.hooks, r.cfg)

	r.mu.Lock()
	r.current = c
	r.cancel = cancel
	r.mu.Unlock()

	r.log.Info("initiating bus socket", "key", logging.MaskKey(apiKey))
	go c.run(connCtx)
	return nil
}

// disconnect cancels the current connection's scope, ending its in-flight
// emits, and clears socket state.
func (r *Relay) disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.current = nil
}

// Run periodically re-invokes Connect with the last-known credential until
// ctx is cancelled. The socket redials on its own; this tick exists to
// recover from failures the connection loop cannot see. Errors are logged,
// never propagated.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.SuperviseInterval)
	defer ticker.Stop()
	for {
		if err := r.Connect(ctx, r.APIKey()); err != nil && ctx.Err() == nil {
			r.log.Error("bus connect failed", "err", err)
		}
		select {
		case <-ctx.Done():
			r.disconnect()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
