// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gain/agent/internal/errors"
)

// conn owns one websocket connection to the bus, including its redial loop.
// It lives until its context is cancelled: either the relay superseded it
// with a new credential or the process is shutting down.
type conn struct {
	log    *slog.Logger
	id     string
	url    string
	apiKey string
	source QuerySource
	hooks  Hooks

	handshakeTimeout time.Duration
	reconnectDelay   time.Duration
	throttle         time.Duration

	mu        sync.Mutex
	ws        *websocket.Conn
	connected bool
}

func newConn(log *slog.Logger, url, apiKey string, source QuerySource, hooks Hooks, cfg Config) *conn {
	id := uuid.NewString()
	return &conn{
		log:              log.With("conn", id),
		id:               id,
		url:              url,
		apiKey:           apiKey,
		source:           source,
		hooks:            hooks,
		handshakeTimeout: cfg.HandshakeTimeout,
		reconnectDelay:   cfg.ReconnectDelay,
		throttle:         cfg.EmitThrottle,
	}
}

// run dials the bus and reads events until ctx is cancelled, redialing on
// a fixed delay after every failure. Errors never escape this loop.
func (c *conn) run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		ws, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			attempt++
			c.hooks.reconnectAttempt(attempt)
			c.log.Warn("bus dial failed", "attempt", attempt, "err", err)
			if !sleep(ctx, c.reconnectDelay) {
				return
			}
			continue
		}
		attempt = 0

		c.setSocket(ws)
		c.hooks.connected()
		c.log.Info("connected to bus")

		// Unblock the read loop when the connection is superseded.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				ws.Close()
			case <-done:
			}
		}()

		err = c.readLoop(ctx, ws)
		close(done)
		c.clearSocket()
		ws.Close()
		c.hooks.disconnected(err)
		if ctx.Err() != nil {
			return
		}
		c.log.Info("disconnected from bus", "err", err)
		if !sleep(ctx, c.reconnectDelay) {
			return
		}
	}
}

func (c *conn) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)
	dialCtx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
	defer cancel()
	ws, resp, err := dialer.DialContext(dialCtx, c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrap(errors.ConnectFailed, "dialing bus", err)
	}
	ws.SetPingHandler(func(appData string) error {
		c.log.Debug("ping")
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})
	ws.SetPongHandler(func(string) error {
		c.log.Debug("pong")
		return nil
	})
	return ws, nil
}

// readLoop dispatches inbound events until the socket fails.
func (c *conn) readLoop(ctx context.Context, ws *websocket.Conn) error {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			err = errors.Wrap(errors.TransportError, "malformed bus frame", err)
			c.log.Error("could not decode bus frame", "err", err)
			c.hooks.errored(err)
			continue
		}
		switch env.Event {
		case eventQuery, eventAdapterQuery:
			var ev queryEvent
			if err := json.Unmarshal(env.Data, &ev); err != nil {
				c.log.Error("malformed query event", "event", env.Event, "err", err)
				c.hooks.errored(err)
				continue
			}
			go c.serveQuery(ctx, env.Event, ev)
		case eventJWTQuery:
			var ev jwtQueryEvent
			if err := json.Unmarshal(env.Data, &ev); err != nil {
				c.log.Error("malformed jwt query event", "err", err)
				c.hooks.errored(err)
				continue
			}
			go c.serveJWTQuery(ctx, ev)
		default:
			c.log.Warn("unknown bus event", "event", env.Event)
		}
	}
}

// serveQuery streams one query's results back over the socket, one frame
// per item, throttled so the bus's ingress buffering is not overwhelmed.
func (c *conn) serveQuery(ctx context.Context, event string, ev queryEvent) {
	for r := range c.source.Query(ctx, ev.Query) {
		c.emit(event+resultSuffix, queryResult{
			ID:      ev.ID,
			Value:   r.Value,
			Status:  int(r.Status),
			Message: r.Message,
		})
		if !sleep(ctx, c.throttle) {
			return
		}
	}
}

func (c *conn) serveJWTQuery(ctx context.Context, ev jwtQueryEvent) {
	for r := range c.source.Query(ctx, ev.Query) {
		c.emit(eventJWTQuery+resultSuffix, jwtQueryResult{
			UUID:    ev.UUID,
			Nonce:   ev.Nonce,
			Value:   r.Value,
			Status:  int(r.Status),
			Message: r.Message,
		})
		if !sleep(ctx, c.throttle) {
			return
		}
	}
}

// emit writes one framed event. Once the socket is gone the frame is
// dropped silently; the server retries the whole query on reconnect.
func (c *conn) emit(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("could not marshal bus frame", "event", event, "err", err)
		c.hooks.errored(err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.ws == nil {
		return
	}
	if err := c.ws.WriteJSON(envelope{Event: event, Data: data}); err != nil {
		err = errors.Wrap(errors.TransportError, "bus emit failed", err)
		c.log.Error("could not emit bus frame", "event", event, "err", err)
		c.hooks.errored(err)
	}
}

func (c *conn) setSocket(ws *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws = ws
	c.connected = true
}

func (c *conn) clearSocket() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws = nil
	c.connected = false
}

func (c *conn) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// sleep waits for d or cancellation, reporting false when cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
