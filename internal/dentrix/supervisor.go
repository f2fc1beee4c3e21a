// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dentrix

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"gain/agent/internal/logging"
	"gain/agent/internal/secrets"
)

// Status classifies one item of a query stream.
type Status int

const (
	// StatusResult means a row was successfully retrieved.
	StatusResult Status = 0
	// StatusFinished means all rows of the query were returned.
	StatusFinished Status = 1
	// StatusDisconnected means the connection string is not set.
	StatusDisconnected Status = 2
	// StatusConnectFailed means a connection string exists but could not
	// be used.
	StatusConnectFailed Status = 3
	// StatusInvalidQuery means the database rejected the query.
	StatusInvalidQuery Status = 4
	// StatusInterrupted means an unexpected error occurred mid-query.
	StatusInterrupted Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusResult:
		return "RESULT"
	case StatusFinished:
		return "FINISHED"
	case StatusDisconnected:
		return "DISCONNECTED"
	case StatusConnectFailed:
		return "CONNECT_FAILED"
	case StatusInvalidQuery:
		return "INVALID_QUERY"
	case StatusInterrupted:
		return "INTERRUPTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status ends a query stream.
func (s Status) Terminal() bool { return s != StatusResult }

// Result is one item of a query stream. Value is set only for
// StatusResult; Message carries a short description for error statuses.
type Result struct {
	Status  Status
	Value   *Row
	Message string
}

// Config holds the supervisor's registration parameters and timing.
type Config struct {
	// KeyFile is the DDP auth key file path.
	KeyFile string
	// User and Password identify the DDP integration user.
	User     string
	Password string
	// RetryInterval is how often Run retries registration while the
	// connection string is unset.
	RetryInterval time.Duration
}

// Supervisor owns the lazily-established connection string to the practice
// database and serves queries against it. The connection string is shared
// mutable state; every mutation happens under mu, and the registration
// sequence itself runs under a zero-wait single-flight guard so concurrent
// callers collapse into one attempt.
type Supervisor struct {
	log    *slog.Logger
	store  secrets.Store
	vendor Vendor
	opener Opener
	cfg    Config

	sem *semaphore.Weighted

	mu      sync.Mutex
	connStr string
}

// NewSupervisor seeds the connection string from the secret store. A store
// read failure is logged, not fatal; registration will repopulate it.
func NewSupervisor(log *slog.Logger, store secrets.Store, vendor Vendor, opener Opener, cfg Config) *Supervisor {
	s := &Supervisor{
		log:    log,
		store:  store,
		vendor: vendor,
		opener: opener,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(1),
	}
	connStr, err := store.ReadConnString()
	if err != nil {
		log.Error("could not read persisted connection string", "err", err)
	} else {
		s.connStr = connStr
	}
	return s
}

// IsConnected reports whether a connection string is cached.
func (s *Supervisor) IsConnected() bool {
	return s.connString() != ""
}

func (s *Supervisor) connString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connStr
}

// Connect replaces the cached connection string and persists it. This is
// how the settings application hands us a string directly, bypassing
// vendor registration.
func (s *Supervisor) Connect(connStr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(connStr)
}

// setLocked stores and persists connStr. Callers must hold mu.
func (s *Supervisor) setLocked(connStr string) {
	s.connStr = connStr
	if err := s.store.WriteConnString(connStr); err != nil {
		s.log.Error("could not persist connection string", "err", err)
	}
}

// clearIfCurrent empties the cached connection string only if it still
// equals the one a failed session used. A concurrent registration or IPC
// update may have replaced it in the meantime; in that case the fresh
// string must not be discarded.
func (s *Supervisor) clearIfCurrent(used string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connStr == used {
		s.setLocked("")
	}
}

// EnsureConnected performs the vendor registration sequence once if no
// connection string is cached. Callers that lose the single-flight race
// return nil without effect. A registration failure is logged and
// returned; the cached string stays empty so a later call retries.
func (s *Supervisor) EnsureConnected(ctx context.Context) error {
	if s.IsConnected() {
		return nil
	}
	if !s.sem.TryAcquire(1) {
		// Another registration attempt is already in progress.
		return nil
	}
	defer s.sem.Release(1)

	if err := s.vendor.Register(ctx, s.cfg.KeyFile); err != nil {
		var reg *RegistrationError
		if errors.As(err, &reg) {
			s.log.Error("dentrix registration rejected", "code", int(reg.Code), "message", reg.Code.Message(reg.AuthFile))
		} else {
			s.log.Error("dentrix registration failed", "err", err)
		}
		return err
	}
	s.log.Info("registered user to dentrix")

	connStr, err := s.vendor.ConnString(ctx, s.cfg.User, s.cfg.Password)
	if err != nil {
		s.log.Error("could not obtain dentrix connection string", "err", err)
		return err
	}
	if connStr == "" {
		err := errors.New("empty connection string from dentrix")
		s.log.Error(err.Error())
		return err
	}

	s.Connect(connStr)
	return nil
}

// Run retries registration on a fixed timer until ctx is cancelled.
// Failures never escape; the next tick retries.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.RetryInterval)
	defer ticker.Stop()
	for {
		_ = s.EnsureConnected(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Query streams results for one query over a dedicated session. Zero or
// more StatusResult items arrive in cursor order, then exactly one
// terminal status, then the channel closes. Cancellation closes the
// channel without a terminal item.
func (s *Supervisor) Query(ctx context.Context, sql string) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		s.stream(ctx, sql, out)
	}()
	return out
}

func (s *Supervisor) stream(ctx context.Context, sql string, out chan<- Result) {
	connStr := s.connString()
	if connStr == "" {
		s.log.Error("query made without dentrix connection")
		s.emit(ctx, out, Result{Status: StatusDisconnected, Message: "connection string not set"})
		return
	}

	sess, err := s.opener.Open(ctx, connStr)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("could not connect to dentrix", "err", logging.Mask(err.Error()))
		// The connection string may have been replaced between when this
		// session started opening and when it failed. Only discard it if
		// it is still the one we used.
		s.clearIfCurrent(connStr)
		s.emit(ctx, out, Result{Status: StatusConnectFailed, Message: logging.Mask(err.Error())})
		return
	}
	defer sess.Close(context.WithoutCancel(ctx))

	rows, err := sess.Query(ctx, sql)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("could not execute dentrix query", "err", err)
		s.emit(ctx, out, Result{Status: StatusInvalidQuery, Message: err.Error()})
		return
	}
	defer rows.Close()

	for {
		if ctx.Err() != nil {
			return
		}
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Error("dentrix reader interrupted", "err", err)
				s.emit(ctx, out, Result{Status: StatusInterrupted, Message: err.Error()})
				return
			}
			s.emit(ctx, out, Result{Status: StatusFinished})
			return
		}
		row, err := rows.Row()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error("could not read dentrix row", "err", err)
			s.emit(ctx, out, Result{Status: StatusInterrupted, Message: err.Error()})
			return
		}
		s.emit(ctx, out, Result{Status: StatusResult, Value: &row})
	}
}

func (s *Supervisor) emit(ctx context.Context, out chan<- Result, r Result) {
	select {
	case out <- r:
	case <-ctx.Done():
	}
}
