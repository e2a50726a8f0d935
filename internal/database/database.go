// Package database owns the lifecycle of connections to the employee store.
//
// It handles:
//   - describing the target server and database (Parameters)
//   - speaking to a concrete backend (Dialect: MySQL or PostgreSQL)
//   - provisioning the database and its schema on first use (Initializer)
//   - handing out one fresh connection per request, lazily initializing the
//     database exactly once and re-initializing it if it disappears (Factory)
//   - mapping driver errors onto a small set of categories (Classify)
//
// There is no pooling here. Every Conn is a single physical connection that
// the caller owns and must Close.
package database

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"
)

var (
	// ErrNilInitializer is returned by NewFactory when no Provisioner is given.
	ErrNilInitializer = errors.New("database: initializer is required")

	// ErrNilOpener is returned by NewFactory when no Opener is given.
	ErrNilOpener = errors.New("database: opener is required")

	// ErrInvalidParameters wraps every Parameters validation failure.
	ErrInvalidParameters = errors.New("database: invalid parameters")

	// ErrInitialization means provisioning ran and reported failure.
	// The details were logged by the Initializer.
	ErrInitialization = errors.New("database: initialization failed")

	// ErrOpen wraps a connection failure the Factory could not recover from.
	ErrOpen = errors.New("database: could not open connection")
)

// DefaultConnectTimeout bounds dialing when Parameters.ConnectTimeout is zero.
const DefaultConnectTimeout = 10 * time.Second

// identifierPattern is the accepted shape of a database name. The name is
// interpolated into DDL, so nothing outside this set is allowed through.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// Parameters describes where the employee database lives.
//
// A zero Name is only meaningful for bootstrap connections, which talk to the
// server without selecting a database. Use Bootstrap to derive them.
type Parameters struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	ConnectTimeout time.Duration
}

// Bootstrap returns a copy of p that targets the server rather than the
// application database.
func (p Parameters) Bootstrap() Parameters {
	p.Name = ""
	return p
}

// Address joins host and port the way drivers expect (IPv6 aware).
func (p Parameters) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

func (p Parameters) connectTimeout() time.Duration {
	if p.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return p.ConnectTimeout
}

// Validate checks the fields needed to build both connection strings.
func (p Parameters) Validate() error {
	var problems []error

	if p.Host == "" {
		problems = append(problems, errors.New("host is required"))
	}
	if p.Port < 1 || p.Port > 65535 {
		problems = append(problems, fmt.Errorf("port %d is out of range", p.Port))
	}
	if p.User == "" {
		problems = append(problems, errors.New("user is required"))
	}
	if !identifierPattern.MatchString(p.Name) {
		problems = append(problems, fmt.Errorf("database name %q must be 1-64 letters, digits or underscores and not start with a digit", p.Name))
	}
	if p.ConnectTimeout < 0 {
		problems = append(problems, errors.New("connect timeout must not be negative"))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidParameters, errors.Join(problems...))
}

// String is safe to log: the password never appears in it.
func (p Parameters) String() string {
	password := ""
	if p.Password != "" {
		password = "****"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s", p.Host, p.Port, p.User, password, p.Name)
}
