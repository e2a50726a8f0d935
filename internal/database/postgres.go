package database

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"
)

// postgresMaintenanceDatabase is where bootstrap connections land. PostgreSQL
// always connects to some database, and this one exists on every server.
const postgresMaintenanceDatabase = "postgres"

// Postgres talks to PostgreSQL through pgx, exposed as database/sql via
// pgx's stdlib adapter.
//
// Tracer, when set, is attached to every connection (see NewQueryTracer).
type Postgres struct {
	Tracer pgx.QueryTracer
}

var _ Dialect = Postgres{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) ApplicationDSN(p Parameters) string {
	return postgresURL(p, p.Name)
}

func (Postgres) BootstrapDSN(p Parameters) string {
	return postgresURL(p, postgresMaintenanceDatabase)
}

// postgresURL builds a postgres:// URL. url.URL takes care of escaping the
// password and of bracketing IPv6 hosts.
func postgresURL(p Parameters, database string) string {
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	query.Set("connect_timeout", strconv.Itoa(int(p.connectTimeout().Seconds())))

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Address(),
		Path:     "/" + database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// Open dials dsn with the configured tracer attached.
func (d Postgres) Open(ctx context.Context, dsn string) (*Conn, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	if d.Tracer != nil {
		cfg.Tracer = d.Tracer
	}

	return NewConn(ctx, stdlib.OpenDB(*cfg), "pgx")
}

func (Postgres) DatabaseExistsQuery() string {
	return "SELECT datname FROM pg_database WHERE datname = $1"
}

// CreateDatabaseStatement has no IF NOT EXISTS form in PostgreSQL; a
// concurrent creator surfaces as SQLSTATE 42P04, which classifies as
// CategoryDatabaseExists.
func (Postgres) CreateDatabaseStatement(name string) string {
	return "CREATE DATABASE " + quotePostgresIdentifier(name)
}

// UseDatabaseStatement is empty: a PostgreSQL session is bound to its
// database for life.
func (Postgres) UseDatabaseStatement(string) string {
	return ""
}

func (Postgres) CreateTableStatement() string {
	return `CREATE TABLE IF NOT EXISTS ` + EmployeesTable + ` (
	id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	first_name VARCHAR(100) NOT NULL,
	last_name VARCHAR(100) NOT NULL,
	birth_date DATE NOT NULL,
	is_active BOOLEAN NOT NULL
)`
}

func quotePostgresIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// multiTracer fans pgx trace callbacks out to several tracers, since
// pgx.ConnConfig only holds one.
type multiTracer struct {
	tracers []pgx.QueryTracer
}

func (mt *multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, tracer := range mt.tracers {
		// Each tracer may stash state in ctx for its own TraceQueryEnd.
		ctx = tracer.TraceQueryStart(ctx, conn, data)
	}
	return ctx
}

func (mt *multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, tracer := range mt.tracers {
		tracer.TraceQueryEnd(ctx, conn, data)
	}
}

// QueryTracerOptions selects which tracers NewQueryTracer installs.
type QueryTracerOptions struct {
	// NewRelic adds nrpgx5 segments to the surrounding transaction.
	NewRelic bool

	// QueryLogger, when set, logs every statement through pgx's tracelog.
	QueryLogger *zerolog.Logger

	// QueryLogLevel is the most verbose tracelog level that gets logged.
	QueryLogLevel tracelog.LogLevel
}

// NewQueryTracer combines the requested tracers. It returns nil when none
// are requested, which leaves connections untraced.
func NewQueryTracer(opts QueryTracerOptions) pgx.QueryTracer {
	var tracers []pgx.QueryTracer

	if opts.NewRelic {
		tracers = append(tracers, nrpgx5.NewTracer())
	}

	if opts.QueryLogger != nil {
		level := opts.QueryLogLevel
		if level == 0 {
			level = tracelog.LogLevelInfo
		}
		tracers = append(tracers, &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(*opts.QueryLogger),
			LogLevel: level,
		})
	}

	switch len(tracers) {
	case 0:
		return nil
	case 1:
		return tracers[0]
	default:
		return &multiTracer{tracers: tracers}
	}
}
