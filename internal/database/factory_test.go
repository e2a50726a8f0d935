package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvisioner struct {
	mock.Mock
}

func (m *mockProvisioner) EnsureDatabaseReady(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *mockProvisioner) ApplicationConnectionString() string {
	return "app-dsn"
}

// gatedProvisioner blocks inside EnsureDatabaseReady until released, so
// tests can pile callers up behind an in-flight initialization.
type gatedProvisioner struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
	result  bool
}

func newGatedProvisioner(result bool) *gatedProvisioner {
	return &gatedProvisioner{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		result:  result,
	}
}

func (g *gatedProvisioner) EnsureDatabaseReady(ctx context.Context) bool {
	g.calls.Add(1)
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return g.result
}

func (g *gatedProvisioner) ApplicationConnectionString() string {
	return "app-dsn"
}

// scriptedOpener answers each Open with the next queued error, or with a
// fresh connection once the script is exhausted.
type scriptedOpener struct {
	mu     sync.Mutex
	script []error
	opens  atomic.Int32
	dsns   []string
}

func (o *scriptedOpener) Open(_ context.Context, dsn string) (*Conn, error) {
	o.opens.Add(1)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.dsns = append(o.dsns, dsn)

	if len(o.script) > 0 {
		err := o.script[0]
		o.script = o.script[1:]
		if err != nil {
			return nil, err
		}
	}
	return &Conn{}, nil
}

func newTestFactory(t *testing.T, p Provisioner, o Opener) *Factory {
	t.Helper()
	f, err := NewFactory(p, o, zerolog.Nop())
	require.NoError(t, err)
	return f
}

var (
	errUnknownDatabase = &mysql.MySQLError{Number: 1049, Message: "Unknown database 'Mitarbeiter'"}
	errBadPassword     = &mysql.MySQLError{Number: 1045, Message: "Access denied for user 'root'"}
)

func TestNewFactoryRequiresCollaborators(t *testing.T) {
	_, err := NewFactory(nil, &scriptedOpener{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNilInitializer)

	_, err = NewFactory(&mockProvisioner{}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNilOpener)
}

func TestAcquireInitializesOnFirstUseOnly(t *testing.T) {
	p := &mockProvisioner{}
	p.On("EnsureDatabaseReady", mock.Anything).Return(true).Once()
	opener := &scriptedOpener{}
	f := newTestFactory(t, p, opener)

	assert.Equal(t, StateNotStarted, f.State())

	for range 3 {
		conn, err := f.Acquire(context.Background())
		require.NoError(t, err)
		require.NoError(t, conn.Close())
	}

	p.AssertNumberOfCalls(t, "EnsureDatabaseReady", 1)
	assert.Equal(t, StateReady, f.State())
	assert.EqualValues(t, 1, f.Initializations())
	assert.Equal(t, []string{"app-dsn", "app-dsn", "app-dsn"}, opener.dsns)
}

func TestAcquireConcurrentCallersShareOneInitialization(t *testing.T) {
	p := newGatedProvisioner(true)
	f := newTestFactory(t, p, &scriptedOpener{})

	const callers = 32
	var (
		wg    sync.WaitGroup
		conns = make([]*Conn, callers)
		errs  = make([]error, callers)
	)

	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conns[i], errs[i] = f.Acquire(context.Background())
		}()
	}

	<-p.entered
	assert.Equal(t, StateInProgress, f.State())
	close(p.release)
	wg.Wait()

	assert.EqualValues(t, 1, p.calls.Load(), "initialization must run exactly once")

	seen := map[*Conn]bool{}
	for i := range callers {
		require.NoError(t, errs[i])
		require.NotNil(t, conns[i])
		assert.False(t, seen[conns[i]], "connections must never be shared")
		seen[conns[i]] = true
	}
	assert.Equal(t, StateReady, f.State())
}

func TestAcquireFailedInitializationCanBeRetried(t *testing.T) {
	p := &mockProvisioner{}
	p.On("EnsureDatabaseReady", mock.Anything).Return(false).Once()
	p.On("EnsureDatabaseReady", mock.Anything).Return(true).Once()
	opener := &scriptedOpener{}
	f := newTestFactory(t, p, opener)

	conn, err := f.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrInitialization)
	assert.Nil(t, conn)
	assert.Equal(t, StateNotStarted, f.State())
	assert.Zero(t, opener.opens.Load(), "no connection is opened after a failed initialization")

	conn, err = f.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, StateReady, f.State())
	p.AssertExpectations(t)
}

func TestAcquireSelfHealsWhenDatabaseDisappears(t *testing.T) {
	p := &mockProvisioner{}
	p.On("EnsureDatabaseReady", mock.Anything).Return(true).Twice()
	// First open succeeds, then the database is dropped behind our back.
	opener := &scriptedOpener{script: []error{nil, errUnknownDatabase}}
	f := newTestFactory(t, p, opener)

	_, err := f.Acquire(context.Background())
	require.NoError(t, err)

	conn, err := f.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, conn)

	p.AssertNumberOfCalls(t, "EnsureDatabaseReady", 2)
	assert.EqualValues(t, 3, opener.opens.Load())
	assert.Equal(t, StateReady, f.State())
}

func TestAcquireSelfHealsOnlyOncePerCall(t *testing.T) {
	p := &mockProvisioner{}
	p.On("EnsureDatabaseReady", mock.Anything).Return(true)
	opener := &scriptedOpener{script: []error{nil, errUnknownDatabase, errUnknownDatabase}}
	f := newTestFactory(t, p, opener)

	_, err := f.Acquire(context.Background())
	require.NoError(t, err)

	_, err = f.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, CategoryUnknownDatabase, Classify(err))
	p.AssertNumberOfCalls(t, "EnsureDatabaseReady", 2)
}

func TestAcquirePropagatesNonRecoverableOpenErrors(t *testing.T) {
	p := &mockProvisioner{}
	p.On("EnsureDatabaseReady", mock.Anything).Return(true).Once()
	opener := &scriptedOpener{script: []error{nil, errBadPassword}}
	f := newTestFactory(t, p, opener)

	_, err := f.Acquire(context.Background())
	require.NoError(t, err)

	_, err = f.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrOpen)

	var myErr *mysql.MySQLError
	require.ErrorAs(t, err, &myErr)
	assert.EqualValues(t, 1045, myErr.Number)

	p.AssertNumberOfCalls(t, "EnsureDatabaseReady", 1)
	assert.Equal(t, StateReady, f.State(), "a bad password must not reset readiness")
}

func TestAcquireHonoursContextWhileWaitingForInitialization(t *testing.T) {
	p := newGatedProvisioner(true)
	f := newTestFactory(t, p, &scriptedOpener{})

	done := make(chan error, 1)
	go func() {
		_, err := f.Acquire(context.Background())
		done <- err
	}()
	<-p.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(p.release)
	assert.NoError(t, <-done)
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestWithConnReleasesConnection(t *testing.T) {
	p := &mockProvisioner{}
	p.On("EnsureDatabaseReady", mock.Anything).Return(true)
	f := newTestFactory(t, p, &scriptedOpener{})

	var used *Conn
	sentinel := errors.New("query failed")
	err := f.WithConn(context.Background(), func(conn *Conn) error {
		used = conn
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	require.NotNil(t, used)
	assert.True(t, used.closed)
}

func TestWithConnReleasesConnectionOnPanic(t *testing.T) {
	p := &mockProvisioner{}
	p.On("EnsureDatabaseReady", mock.Anything).Return(true)
	f := newTestFactory(t, p, &scriptedOpener{})

	var used *Conn
	assert.Panics(t, func() {
		_ = f.WithConn(context.Background(), func(conn *Conn) error {
			used = conn
			panic("boom")
		})
	})

	require.NotNil(t, used)
	assert.True(t, used.closed)
}

func TestWithConnSkipsCallbackWhenAcquireFails(t *testing.T) {
	p := &mockProvisioner{}
	p.On("EnsureDatabaseReady", mock.Anything).Return(false)
	f := newTestFactory(t, p, &scriptedOpener{})

	called := false
	err := f.WithConn(context.Background(), func(*Conn) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrInitialization)
	assert.True(t, IsUnavailable(err))
	assert.False(t, called)
}

func TestFactoryApplicationConnectionString(t *testing.T) {
	f := newTestFactory(t, &mockProvisioner{}, &scriptedOpener{})
	assert.Equal(t, "app-dsn", f.ApplicationConnectionString())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not_started", StateNotStarted.String())
	assert.Equal(t, "in_progress", StateInProgress.String())
	assert.Equal(t, "ready", StateReady.String())
}
