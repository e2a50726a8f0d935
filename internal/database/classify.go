package database

import (
	"errors"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// Category is a backend-neutral reading of a driver error.
type Category int

const (
	// CategoryUnclassified is anything the tables below do not know.
	CategoryUnclassified Category = iota
	CategoryAccessDenied
	CategoryAuthenticationFailed
	CategoryUnknownDatabase
	CategoryCannotConnect
	CategoryInsufficientPrivileges
	CategoryTableExists
	CategoryDatabaseExists
	CategoryTooManyConnections
)

var categoryNames = map[Category]string{
	CategoryUnclassified:           "unclassified",
	CategoryAccessDenied:           "access-denied",
	CategoryAuthenticationFailed:   "authentication-failed",
	CategoryUnknownDatabase:        "unknown-database",
	CategoryCannotConnect:          "cannot-connect",
	CategoryInsufficientPrivileges: "insufficient-privileges",
	CategoryTableExists:            "table-already-exists",
	CategoryDatabaseExists:         "database-already-exists",
	CategoryTooManyConnections:     "too-many-connections",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return categoryNames[CategoryUnclassified]
}

// Level is the log level a failure of this category deserves. "Already
// exists" is expected during provisioning; transient conditions are warnings.
func (c Category) Level() zerolog.Level {
	switch c {
	case CategoryTableExists, CategoryDatabaseExists:
		return zerolog.InfoLevel
	case CategoryCannotConnect, CategoryTooManyConnections:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// mysqlCategories maps MySQL server and client error numbers.
var mysqlCategories = map[uint16]Category{
	1044: CategoryAccessDenied,         // ER_DBACCESS_DENIED_ERROR
	1045: CategoryAuthenticationFailed, // ER_ACCESS_DENIED_ERROR
	1049: CategoryUnknownDatabase,      // ER_BAD_DB_ERROR

	1042: CategoryCannotConnect, // ER_BAD_HOST_ERROR
	2002: CategoryCannotConnect, // CR_CONNECTION_ERROR
	2003: CategoryCannotConnect, // CR_CONN_HOST_ERROR
	2005: CategoryCannotConnect, // CR_UNKNOWN_HOST
	2013: CategoryCannotConnect, // CR_SERVER_LOST

	1142: CategoryInsufficientPrivileges, // ER_TABLEACCESS_DENIED_ERROR
	1143: CategoryInsufficientPrivileges, // ER_COLUMNACCESS_DENIED_ERROR
	1227: CategoryInsufficientPrivileges, // ER_SPECIFIC_ACCESS_DENIED_ERROR

	1050: CategoryTableExists,    // ER_TABLE_EXISTS_ERROR
	1007: CategoryDatabaseExists, // ER_DB_CREATE_EXISTS

	1040: CategoryTooManyConnections, // ER_CON_COUNT_ERROR
	1203: CategoryTooManyConnections, // ER_TOO_MANY_USER_CONNECTIONS
}

// postgresCategories maps PostgreSQL SQLSTATE codes.
var postgresCategories = map[string]Category{
	"28000": CategoryAccessDenied,         // invalid_authorization_specification
	"28P01": CategoryAuthenticationFailed, // invalid_password
	"3D000": CategoryUnknownDatabase,      // invalid_catalog_name

	"08000": CategoryCannotConnect, // connection_exception
	"08001": CategoryCannotConnect, // sqlclient_unable_to_establish_sqlconnection
	"08004": CategoryCannotConnect, // sqlserver_rejected_establishment_of_sqlconnection
	"08006": CategoryCannotConnect, // connection_failure

	"42501": CategoryInsufficientPrivileges, // insufficient_privilege
	"42P07": CategoryTableExists,            // duplicate_table
	"42P04": CategoryDatabaseExists,         // duplicate_database
	"53300": CategoryTooManyConnections,     // too_many_connections
}

// Classify reads err (and everything it wraps) as a Category. It never fails:
// unknown errors, including nil, are CategoryUnclassified.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnclassified
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return postgresCategories[pgErr.Code]
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return mysqlCategories[myErr.Number]
	}

	// pgx reports failed dials as *pgconn.ConnectError, which wraps the
	// server's PgError when there was one (handled above) and otherwise the
	// network error.
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return CategoryCannotConnect
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryCannotConnect
	}

	return CategoryUnclassified
}

// IsRecoverable reports whether the Factory can fix err by provisioning the
// database again.
func IsRecoverable(err error) bool {
	return Classify(err) == CategoryUnknownDatabase
}
