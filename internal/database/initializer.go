package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Initializer makes sure the application database exists, creating it and
// its employees table when it does not.
//
// It holds no state between calls and is safe for concurrent use, although
// the Factory only ever runs one EnsureDatabaseReady at a time.
type Initializer struct {
	dialect Dialect
	params  Parameters
	log     zerolog.Logger

	applicationDSN string
	bootstrapDSN   string
}

// NewInitializer validates params up front so that a bad configuration fails
// at startup instead of on the first request.
func NewInitializer(dialect Dialect, params Parameters, logger zerolog.Logger) (*Initializer, error) {
	if dialect == nil {
		return nil, fmt.Errorf("%w: dialect is required", ErrInvalidParameters)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Initializer{
		dialect:        dialect,
		params:         params,
		log:            logger.With().Str("component", "database_initializer").Str("dialect", dialect.Name()).Logger(),
		applicationDSN: dialect.ApplicationDSN(params),
		bootstrapDSN:   dialect.BootstrapDSN(params),
	}, nil
}

// ApplicationConnectionString addresses the application database. It carries
// the password; log Parameters() instead.
func (i *Initializer) ApplicationConnectionString() string {
	return i.applicationDSN
}

// BootstrapConnectionString addresses the server without the application
// database selected.
func (i *Initializer) BootstrapConnectionString() string {
	return i.bootstrapDSN
}

func (i *Initializer) Parameters() Parameters {
	return i.params
}

// EnsureDatabaseReady reports whether the application database can be used.
//
// When the database is missing it is created, selected, and given its
// employees table; an existing database is left untouched. Concurrent
// creators are tolerated: "already exists" answers count as success.
//
// No error escapes. Every failure is classified, logged and turned into false.
func (i *Initializer) EnsureDatabaseReady(ctx context.Context) bool {
	log := i.log.With().Str("database", i.params.Name).Logger()

	if err := ctx.Err(); err != nil {
		i.report(log, "start", err)
		return false
	}

	log.Debug().Str("target", i.params.Bootstrap().String()).Msg("ensuring database is ready")

	conn, err := i.dialect.Open(ctx, i.bootstrapDSN)
	if err != nil {
		i.report(log, "connect", err)
		return false
	}
	defer conn.Close()

	exists, err := i.databaseExists(ctx, conn)
	if err != nil {
		i.report(log, "check_exists", err)
		return false
	}

	if exists {
		log.Info().Msg("database already exists")
		return true
	}

	log.Info().Msg("database not found, creating it")

	if err := i.createDatabase(ctx, conn); err != nil {
		i.report(log, "create_database", err)
		return false
	}
	log.Info().Msg("database created")

	if err := i.createSchema(ctx, conn); err != nil {
		i.report(log, "create_schema", err)
		return false
	}
	log.Info().Str("table", EmployeesTable).Msg("employees table ready")

	return true
}

func (i *Initializer) databaseExists(ctx context.Context, conn *Conn) (bool, error) {
	var name string
	err := conn.QueryRowxContext(ctx, i.dialect.DatabaseExistsQuery(), i.params.Name).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check database exists: %w", err)
	}
	return true, nil
}

func (i *Initializer) createDatabase(ctx context.Context, conn *Conn) error {
	_, err := conn.ExecContext(ctx, i.dialect.CreateDatabaseStatement(i.params.Name))
	if err == nil {
		return nil
	}
	if Classify(err) == CategoryDatabaseExists {
		i.log.Info().Str("database", i.params.Name).Msg("database was created concurrently")
		return nil
	}
	return fmt.Errorf("create database: %w", err)
}

// createSchema switches the bootstrap connection to the new database when the
// backend allows it, and otherwise opens an application connection for the DDL.
func (i *Initializer) createSchema(ctx context.Context, bootstrap *Conn) error {
	conn := bootstrap

	if use := i.dialect.UseDatabaseStatement(i.params.Name); use != "" {
		if _, err := bootstrap.ExecContext(ctx, use); err != nil {
			return fmt.Errorf("switch to database: %w", err)
		}
	} else {
		app, err := i.dialect.Open(ctx, i.applicationDSN)
		if err != nil {
			return fmt.Errorf("connect to new database: %w", err)
		}
		defer app.Close()
		conn = app
	}

	_, err := conn.ExecContext(ctx, i.dialect.CreateTableStatement())
	if err == nil {
		return nil
	}
	if Classify(err) == CategoryTableExists {
		i.log.Info().Str("table", EmployeesTable).Msg("employees table already exists")
		return nil
	}
	return fmt.Errorf("create employees table: %w", err)
}

func (i *Initializer) report(log zerolog.Logger, step string, err error) {
	category := Classify(err)
	log.WithLevel(category.Level()).
		Err(err).
		Str("step", step).
		Str("category", category.String()).
		Msg("database initialization failed")
}
