package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Conn is a single live connection handed to exactly one caller.
//
// It embeds *sqlx.Conn so callers get ExecContext, QueryRowxContext,
// GetContext, SelectContext and friends directly. Underneath sits a
// one-connection *sqlx.DB that exists only for this Conn; Close tears down
// both, so nothing lingers in a pool after the caller is done.
type Conn struct {
	*sqlx.Conn

	db        *sqlx.DB
	closeOnce sync.Once
	closed    bool
	closeErr  error
}

// NewConn dials one connection through db and wraps it. db is owned by the
// returned Conn from here on and is closed with it, also when dialing fails.
//
// driverName selects the placeholder style used by Rebind ("mysql" or "pgx").
func NewConn(ctx context.Context, db *sql.DB, driverName string) (*Conn, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	dbx := sqlx.NewDb(db, driverName)

	// Connx checks a connection out right away, so refused dials, bad
	// credentials and unknown databases surface here and not on first query.
	conn, err := dbx.Connx(ctx)
	if err != nil {
		_ = dbx.Close()
		return nil, err
	}

	return &Conn{Conn: conn, db: dbx}, nil
}

// DriverName reports which driver this connection speaks through.
func (c *Conn) DriverName() string {
	if c.db == nil {
		return ""
	}
	return c.db.DriverName()
}

// Rebind rewrites '?' placeholders into the driver's native bindvar style.
func (c *Conn) Rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(c.DriverName()), query)
}

// Close releases the connection. Calling it more than once is harmless and
// returns the result of the first call.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if c.Conn != nil {
			errs = append(errs, c.Conn.Close())
		}
		if c.db != nil {
			errs = append(errs, c.db.Close())
		}
		c.closed = true
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
