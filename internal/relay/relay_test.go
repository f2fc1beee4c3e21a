// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"gain/agent/internal/dentrix"
	"gain/agent/internal/logging"
	"gain/agent/internal/secrets"
)

// busConn is one socket accepted by the fake bus, with the Authorization
// header it presented.
type busConn struct {
	ws   *websocket.Conn
	auth string
}

func newBusServer(t *testing.T) (string, chan *busConn) {
	t.Helper()
	conns := make(chan *busConn, 8)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- &busConn{ws: ws, auth: auth}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), conns
}

// fakeSource replays a fixed result stream for every query.
type fakeSource struct {
	results []dentrix.Result
}

func (s *fakeSource) Query(ctx context.Context, sql string) <-chan dentrix.Result {
	out := make(chan dentrix.Result)
	go func() {
		defer close(out)
		for _, r := range s.results {
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func newTestRelay(t *testing.T, url string, source QuerySource) (*Relay, *secrets.FileStore) {
	t.Helper()
	store := &secrets.FileStore{Dir: t.TempDir()}
	if source == nil {
		source = &fakeSource{}
	}
	r := New(logging.Discard(), store, source, Config{
		URL:               url,
		HandshakeTimeout:  time.Second,
		ReconnectDelay:    50 * time.Millisecond,
		SuperviseInterval: time.Hour,
		EmitThrottle:      time.Millisecond,
	}, Hooks{})
	// The socket's scope is detached from any test context, so it must be
	// torn down explicitly.
	t.Cleanup(func() { _ = r.Connect(context.Background(), "") })
	return r, store
}

func waitConn(t *testing.T, conns chan *busConn) *busConn {
	t.Helper()
	select {
	case bc := <-conns:
		t.Cleanup(func() { bc.ws.Close() })
		return bc
	case <-time.After(2 * time.Second):
		t.Fatal("no socket reached the bus")
		return nil
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// resultFrame is how the bus decodes a result payload; the row stays raw.
type resultFrame struct {
	ID      int64           `json:"id"`
	UUID    string          `json:"uuid"`
	Nonce   int64           `json:"nonce"`
	Value   json.RawMessage `json:"value"`
	Status  int             `json:"status"`
	Message string          `json:"message"`
}

func readResult(t *testing.T, ws *websocket.Conn, wantEvent string) resultFrame {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := ws.ReadJSON(&env); err != nil {
		t.Fatalf("reading result frame: %v", err)
	}
	if env.Event != wantEvent {
		t.Fatalf("event = %q, want %q", env.Event, wantEvent)
	}
	var res resultFrame
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decoding result payload: %v", err)
	}
	return res
}

func TestConnectAuthenticates(t *testing.T) {
	url, conns := newBusServer(t)
	r, store := newTestRelay(t, url, nil)

	if err := r.Connect(context.Background(), "key-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	bc := waitConn(t, conns)
	if bc.auth != "Bearer key-1" {
		t.Errorf("Authorization = %q, want %q", bc.auth, "Bearer key-1")
	}
	waitFor(t, r.IsConnected, "IsConnected() never became true")

	persisted, err := store.ReadAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	if persisted != "key-1" {
		t.Errorf("persisted api key = %q, want %q", persisted, "key-1")
	}
}

func TestAdapterQueryRoundTrip(t *testing.T) {
	row := dentrix.Row{Columns: []string{"name"}, Values: []dentrix.Value{dentrix.String("smith")}}
	source := &fakeSource{results: []dentrix.Result{
		{Status: dentrix.StatusResult, Value: &row},
		{Status: dentrix.StatusResult, Value: &row},
		{Status: dentrix.StatusFinished},
	}}
	url, conns := newBusServer(t)
	r, _ := newTestRelay(t, url, source)

	if err := r.Connect(context.Background(), "key-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	bc := waitConn(t, conns)

	err := bc.ws.WriteJSON(envelope{
		Event: "adapter-query",
		Data:  json.RawMessage(`{"id":7,"query":"SELECT LastName FROM patients"}`),
	})
	if err != nil {
		t.Fatalf("sending query event: %v", err)
	}

	for i := range 2 {
		res := readResult(t, bc.ws, "adapter-query-result")
		if res.ID != 7 {
			t.Errorf("frame %d: id = %d, want 7", i, res.ID)
		}
		if res.Status != int(dentrix.StatusResult) {
			t.Errorf("frame %d: status = %d, want %d", i, res.Status, dentrix.StatusResult)
		}
		if string(res.Value) != `{"name":"smith"}` {
			t.Errorf("frame %d: value = %s", i, res.Value)
		}
	}
	last := readResult(t, bc.ws, "adapter-query-result")
	if last.Status != int(dentrix.StatusFinished) {
		t.Errorf("terminal status = %d, want %d", last.Status, dentrix.StatusFinished)
	}
	if string(last.Value) != "null" {
		t.Errorf("terminal value = %s, want null", last.Value)
	}
}

func TestLegacyQueryEvent(t *testing.T) {
	source := &fakeSource{results: []dentrix.Result{{Status: dentrix.StatusFinished}}}
	url, conns := newBusServer(t)
	r, _ := newTestRelay(t, url, source)

	if err := r.Connect(context.Background(), "key-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	bc := waitConn(t, conns)

	err := bc.ws.WriteJSON(envelope{Event: "query", Data: json.RawMessage(`{"id":3,"query":"SELECT 1"}`)})
	if err != nil {
		t.Fatalf("sending query event: %v", err)
	}
	res := readResult(t, bc.ws, "query-result")
	if res.ID != 3 || res.Status != int(dentrix.StatusFinished) {
		t.Errorf("got id=%d status=%d, want id=3 status=%d", res.ID, res.Status, dentrix.StatusFinished)
	}
}

func TestJWTQueryEchoesCorrelation(t *testing.T) {
	source := &fakeSource{results: []dentrix.Result{{Status: dentrix.StatusFinished}}}
	url, conns := newBusServer(t)
	r, _ := newTestRelay(t, url, source)

	if err := r.Connect(context.Background(), "key-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	bc := waitConn(t, conns)

	err := bc.ws.WriteJSON(envelope{
		Event: "jwt-query",
		Data:  json.RawMessage(`{"uuid":"3f1c","nonce":99,"query":"SELECT 1"}`),
	})
	if err != nil {
		t.Fatalf("sending jwt query event: %v", err)
	}
	res := readResult(t, bc.ws, "jwt-query-result")
	if res.UUID != "3f1c" || res.Nonce != 99 {
		t.Errorf("correlation = (%q, %d), want (%q, 99)", res.UUID, res.Nonce, "3f1c")
	}
}

func TestConnectSameKeyIsNoOp(t *testing.T) {
	url, conns := newBusServer(t)
	r, _ := newTestRelay(t, url, nil)

	if err := r.Connect(context.Background(), "key-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	waitConn(t, conns)
	waitFor(t, r.IsConnected, "IsConnected() never became true")

	if err := r.Connect(context.Background(), "key-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	select {
	case <-conns:
		t.Error("reapplying the same key redialed the bus")
	case <-time.After(150 * time.Millisecond):
	}
	if !r.IsConnected() {
		t.Error("IsConnected() = false after no-op reconnect")
	}
}

func TestConnectReplacesSocket(t *testing.T) {
	url, conns := newBusServer(t)
	r, _ := newTestRelay(t, url, nil)

	if err := r.Connect(context.Background(), "key-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	old := waitConn(t, conns)

	if err := r.Connect(context.Background(), "key-2"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	fresh := waitConn(t, conns)
	if fresh.auth != "Bearer key-2" {
		t.Errorf("Authorization = %q, want %q", fresh.auth, "Bearer key-2")
	}

	// The superseded socket must be closed, not left dangling.
	old.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := old.ws.ReadMessage(); err == nil {
		t.Error("superseded socket still open")
	}
}

func TestConnectEmptyKeyDisconnects(t *testing.T) {
	url, conns := newBusServer(t)
	r, store := newTestRelay(t, url, nil)

	if err := r.Connect(context.Background(), "key-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	bc := waitConn(t, conns)
	waitFor(t, r.IsConnected, "IsConnected() never became true")

	if err := r.Connect(context.Background(), ""); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if r.APIKey() != "" {
		t.Errorf("APIKey() = %q, want empty", r.APIKey())
	}
	if r.IsConnected() {
		t.Error("IsConnected() = true after clearing the credential")
	}
	persisted, err := store.ReadAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	if persisted != "" {
		t.Errorf("persisted api key = %q, want empty", persisted)
	}

	bc.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := bc.ws.ReadMessage(); err == nil {
		t.Error("socket still open after clearing the credential")
	}
}

func TestHooksObserveLifecycle(t *testing.T) {
	url, conns := newBusServer(t)
	store := &secrets.FileStore{Dir: t.TempDir()}
	connected := make(chan struct{}, 4)
	disconnected := make(chan error, 4)
	r := New(logging.Discard(), store, &fakeSource{}, Config{
		URL:               url,
		HandshakeTimeout:  time.Second,
		ReconnectDelay:    50 * time.Millisecond,
		SuperviseInterval: time.Hour,
		EmitThrottle:      time.Millisecond,
	}, Hooks{
		OnConnect:    func() { connected <- struct{}{} },
		OnDisconnect: func(err error) { disconnected <- err },
	})
	t.Cleanup(func() { _ = r.Connect(context.Background(), "") })

	if err := r.Connect(context.Background(), "key-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	bc := waitConn(t, conns)
	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnConnect never fired")
	}

	// Drop the socket server-side; the relay must report the loss and
	// redial on its own.
	bc.ws.Close()
	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect never fired")
	}
	waitConn(t, conns)
	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnConnect never fired after redial")
	}
}

func TestRelaySeedsKeyFromStore(t *testing.T) {
	store := &secrets.FileStore{Dir: t.TempDir()}
	if err := store.WriteAPIKey("persisted-key"); err != nil {
		t.Fatal(err)
	}
	r := New(logging.Discard(), store, &fakeSource{}, Config{}, Hooks{})
	if r.APIKey() != "persisted-key" {
		t.Errorf("APIKey() = %q, want %q", r.APIKey(), "persisted-key")
	}
}
