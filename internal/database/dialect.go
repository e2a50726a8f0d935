package database

import "context"

// EmployeesTable is the one table the Initializer guarantees.
const EmployeesTable = "employees"

// Opener turns a connection string into a live, caller-owned Conn.
type Opener interface {
	Open(ctx context.Context, dsn string) (*Conn, error)
}

// Dialect is everything backend specific the Initializer needs: how to
// address the server, how to connect, and the handful of statements used to
// provision the database.
//
// Statements take the database name verbatim. Callers must only pass names
// that passed Parameters.Validate.
type Dialect interface {
	Opener

	// Name identifies the backend in logs ("mysql", "postgres").
	Name() string

	// ApplicationDSN addresses the application database.
	ApplicationDSN(p Parameters) string

	// BootstrapDSN addresses the server without selecting the application
	// database. Some backends need a maintenance database here.
	BootstrapDSN(p Parameters) string

	// DatabaseExistsQuery takes the database name as its only argument and
	// yields a row only when the database exists.
	DatabaseExistsQuery() string

	CreateDatabaseStatement(name string) string

	// UseDatabaseStatement switches a live bootstrap connection to the named
	// database. It is empty when the backend cannot do that, in which case
	// the schema is created over a fresh application connection.
	UseDatabaseStatement(name string) string

	CreateTableStatement() string
}
