package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQL talks to MySQL and MariaDB servers through go-sql-driver/mysql.
type MySQL struct{}

var _ Dialect = MySQL{}

func (MySQL) Name() string { return "mysql" }

// ApplicationDSN renders p with the application database selected.
func (m MySQL) ApplicationDSN(p Parameters) string {
	return m.config(p).FormatDSN()
}

// BootstrapDSN renders p without a database, which MySQL accepts.
func (m MySQL) BootstrapDSN(p Parameters) string {
	return m.config(p.Bootstrap()).FormatDSN()
}

func (MySQL) config(p Parameters) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Password
	cfg.Net = "tcp"
	cfg.Addr = p.Address()
	cfg.DBName = p.Name
	cfg.Timeout = p.connectTimeout()

	// Dates come back as time.Time in UTC and the session agrees on the zone.
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"time_zone": "'+00:00'"}
	cfg.Collation = "utf8mb4_general_ci"

	// UPDATE reports matched rows instead of changed rows, so an update that
	// rewrites identical values still counts as having found its row.
	cfg.ClientFoundRows = true

	if p.SSLMode != "" && p.SSLMode != "disable" {
		cfg.TLSConfig = "preferred"
		if p.SSLMode == "require" || p.SSLMode == "verify-full" {
			cfg.TLSConfig = "true"
		}
	}

	return cfg
}

// Open dials dsn and returns the connection once the server accepted it.
func (MySQL) Open(ctx context.Context, dsn string) (*Conn, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create mysql connector: %w", err)
	}

	return NewConn(ctx, sql.OpenDB(connector), "mysql")
}

func (MySQL) DatabaseExistsQuery() string {
	return "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?"
}

func (MySQL) CreateDatabaseStatement(name string) string {
	return fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci", name)
}

func (MySQL) UseDatabaseStatement(name string) string {
	return fmt.Sprintf("USE `%s`", name)
}

func (MySQL) CreateTableStatement() string {
	return `CREATE TABLE IF NOT EXISTS ` + EmployeesTable + ` (
	id INT AUTO_INCREMENT PRIMARY KEY,
	first_name VARCHAR(100) NOT NULL,
	last_name VARCHAR(100) NOT NULL,
	birth_date DATE NOT NULL,
	is_active BOOLEAN NOT NULL
) CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci`
}
