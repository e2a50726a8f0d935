package database

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Provisioner prepares the application database. *Initializer is the
// production implementation.
type Provisioner interface {
	EnsureDatabaseReady(ctx context.Context) bool
	ApplicationConnectionString() string
}

var _ Provisioner = (*Initializer)(nil)

// State is the Factory's view of the database.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateReady:
		return "ready"
	default:
		return "not_started"
	}
}

// Factory hands out live connections to the application database.
//
// The first Acquire provisions the database; every later Acquire opens a
// connection straight away. Provisioning runs at most once at a time and, once
// it has succeeded, never again unless a connection attempt reports that the
// database has gone missing. In that case the Factory forgets it was ready,
// provisions again and retries the open once.
//
// A Factory is safe for concurrent use.
type Factory struct {
	provisioner Provisioner
	opener      Opener
	log         zerolog.Logger

	// ready is the lock-free fast path. It is only set to true while
	// initLock is held; it may be cleared without it.
	ready atomic.Bool

	// inProgress is informational and backs State.
	inProgress atomic.Bool

	// initLock serializes provisioning. A weighted semaphore rather than a
	// mutex lets waiters give up when their context ends.
	initLock *semaphore.Weighted

	initializations atomic.Int64
}

// NewFactory wires a Factory. Both collaborators are required.
func NewFactory(provisioner Provisioner, opener Opener, logger zerolog.Logger) (*Factory, error) {
	if provisioner == nil {
		return nil, ErrNilInitializer
	}
	if opener == nil {
		return nil, ErrNilOpener
	}

	return &Factory{
		provisioner: provisioner,
		opener:      opener,
		log:         logger.With().Str("component", "connection_factory").Logger(),
		initLock:    semaphore.NewWeighted(1),
	}, nil
}

// Acquire returns a new, open connection owned by the caller, who must Close it.
//
// Errors:
//   - ErrInitialization when provisioning reported failure
//   - ErrOpen wrapping the driver error when the connection could not be opened
//   - the context's error when ctx ended while waiting for provisioning
func (f *Factory) Acquire(ctx context.Context) (*Conn, error) {
	if f.ready.Load() {
		conn, err := f.open(ctx)
		if err == nil {
			return conn, nil
		}
		if !IsRecoverable(err) {
			return nil, err
		}

		// The database vanished after we provisioned it. Forget that we were
		// ready and take the slow path, which provisions again.
		f.log.Warn().Err(err).Msg("database no longer exists, re-initializing")
		f.ready.Store(false)
	}

	if err := f.initialize(ctx); err != nil {
		return nil, err
	}

	// The open happens outside initLock so a slow dial never blocks other
	// callers waiting on provisioning.
	return f.open(ctx)
}

// WithConn acquires a connection, runs fn with it and closes it again on
// every exit path, panics included.
func (f *Factory) WithConn(ctx context.Context, fn func(conn *Conn) error) error {
	conn, err := f.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			f.log.Debug().Err(closeErr).Msg("closing connection")
		}
	}()

	return fn(conn)
}

// State reports whether provisioning has happened, is happening, or not.
func (f *Factory) State() State {
	switch {
	case f.ready.Load():
		return StateReady
	case f.inProgress.Load():
		return StateInProgress
	default:
		return StateNotStarted
	}
}

// ApplicationConnectionString is the connection string every Conn is opened with.
func (f *Factory) ApplicationConnectionString() string {
	return f.provisioner.ApplicationConnectionString()
}

// Initializations counts how many times provisioning has been run.
func (f *Factory) Initializations() int64 {
	return f.initializations.Load()
}

// initialize runs the provisioner unless another caller already did while we
// were waiting for initLock.
func (f *Factory) initialize(ctx context.Context) error {
	if err := f.initLock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for database initialization: %w", err)
	}
	defer f.initLock.Release(1)

	if f.ready.Load() {
		return nil
	}

	f.inProgress.Store(true)
	defer f.inProgress.Store(false)

	f.initializations.Add(1)
	start := time.Now()

	if !f.provisioner.EnsureDatabaseReady(ctx) {
		f.log.Error().
			Dur("duration", time.Since(start)).
			Msg("database initialization failed")
		return ErrInitialization
	}

	f.ready.Store(true)
	f.log.Info().
		Dur("duration", time.Since(start)).
		Msg("database initialized")

	return nil
}

func (f *Factory) open(ctx context.Context) (*Conn, error) {
	conn, err := f.opener.Open(ctx, f.provisioner.ApplicationConnectionString())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: opener returned no connection", ErrOpen)
	}
	return conn, nil
}

// IsUnavailable reports whether err means the database could not be reached
// or provisioned, as opposed to a failing query.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrInitialization) || errors.Is(err, ErrOpen)
}
