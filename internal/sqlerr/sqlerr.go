// Package sqlerr translates database driver errors into HTTP errors.
//
// It understands PostgreSQL (pgconn.PgError) and MySQL (mysql.MySQLError)
// constraint violations, "no rows" results and an unavailable database, and
// turns them into errs.HTTPError values with messages fit for API clients.
package sqlerr
