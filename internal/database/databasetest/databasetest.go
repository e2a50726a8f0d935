// Package databasetest builds database.Factory values backed by go-sqlmock,
// for tests of packages that issue SQL through a Factory.
package databasetest

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/deppfellow/employee-api/internal/database"
	"github.com/rs/zerolog"
)

// Provisioner is a scripted database.Provisioner.
type Provisioner struct {
	// Ready is what EnsureDatabaseReady answers.
	Ready bool
	DSN   string

	mu    sync.Mutex
	calls int
}

func (p *Provisioner) EnsureDatabaseReady(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.Ready
}

func (p *Provisioner) ApplicationConnectionString() string {
	return p.DSN
}

// Calls reports how often EnsureDatabaseReady ran.
func (p *Provisioner) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Opener hands out one connection per queued *sql.DB, in order. An empty
// queue answers with Err, or with an error saying the queue ran dry.
type Opener struct {
	Driver string
	Err    error

	mu  sync.Mutex
	dbs []*sql.DB
}

// Push queues db for the next Open.
func (o *Opener) Push(db *sql.DB) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dbs = append(o.dbs, db)
}

func (o *Opener) Open(ctx context.Context, _ string) (*database.Conn, error) {
	o.mu.Lock()
	if len(o.dbs) == 0 {
		o.mu.Unlock()
		if o.Err != nil {
			return nil, o.Err
		}
		return nil, errors.New("databasetest: no connection queued")
	}
	db := o.dbs[0]
	o.dbs = o.dbs[1:]
	o.mu.Unlock()

	driver := o.Driver
	if driver == "" {
		driver = "mysql"
	}
	return database.NewConn(ctx, db, driver)
}

// NewMock returns a sqlmock database that matches statements literally and
// expects to be closed, since every database.Conn closes its database.
func NewMock(t testing.TB) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("databasetest: open sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db, mock
}

// NewFactory returns a ready-to-provision Factory whose first connection is
// backed by a fresh sqlmock. Register expectations on the returned mock and
// finish them with mock.ExpectClose().
func NewFactory(t testing.TB) (*database.Factory, sqlmock.Sqlmock) {
	t.Helper()

	factory, mocks := NewFactoryWithConns(t, 1)
	return factory, mocks[0]
}

// NewFactoryWithConns is NewFactory for code that opens n connections in a
// row; mocks[i] backs the i-th connection handed out.
func NewFactoryWithConns(t testing.TB, n int) (*database.Factory, []sqlmock.Sqlmock) {
	t.Helper()

	opener := &Opener{}
	mocks := make([]sqlmock.Sqlmock, 0, n)
	for range n {
		db, mock := NewMock(t)
		opener.Push(db)
		mocks = append(mocks, mock)
	}

	factory, err := database.NewFactory(&Provisioner{Ready: true, DSN: "sqlmock"}, opener, zerolog.Nop())
	if err != nil {
		t.Fatalf("databasetest: new factory: %v", err)
	}
	return factory, mocks
}
