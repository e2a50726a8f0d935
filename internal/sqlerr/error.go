package sqlerr

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// Code is a backend-neutral kind of constraint failure.
type Code string

const (
	Other               Code = "other"
	ForeignKeyViolation Code = "foreign_key_violation"
	UniqueViolation     Code = "unique_violation"
	NotNullViolation    Code = "not_null_violation"
	CheckViolation      Code = "check_violation"
)

// Severity mirrors the severity the server attached to the error.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityUnknown Severity = "UNKNOWN"
)

// Error is a driver error reduced to what the HTTP layer needs to phrase a
// response. TableName, ColumnName and ConstraintName are best effort: MySQL
// only reports them inside the message text.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string

	driverErr error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s (%s)", e.Severity, e.Message, e.DatabaseCode)
}

func (e *Error) Unwrap() error {
	return e.driverErr
}

// postgresCodes maps the SQLSTATE integrity constraint violations (class 23).
var postgresCodes = map[string]Code{
	"23502": NotNullViolation,
	"23503": ForeignKeyViolation,
	"23505": UniqueViolation,
	"23514": CheckViolation,
}

// mysqlCodes maps the MySQL error numbers for the same failures.
var mysqlCodes = map[uint16]Code{
	1048: NotNullViolation,    // ER_BAD_NULL_ERROR
	1364: NotNullViolation,    // ER_NO_DEFAULT_FOR_FIELD
	1062: UniqueViolation,     // ER_DUP_ENTRY
	1451: ForeignKeyViolation, // ER_ROW_IS_REFERENCED_2
	1452: ForeignKeyViolation, // ER_NO_REFERENCED_ROW_2
	3819: CheckViolation,      // ER_CHECK_CONSTRAINT_VIOLATED
}

// MapCode maps a PostgreSQL SQLSTATE.
func MapCode(sqlState string) Code {
	if code, ok := postgresCodes[sqlState]; ok {
		return code
	}
	return Other
}

// MapMySQLNumber maps a MySQL error number.
func MapMySQLNumber(number uint16) Code {
	if code, ok := mysqlCodes[number]; ok {
		return code
	}
	return Other
}

func MapSeverity(severity string) Severity {
	switch Severity(severity) {
	case SeverityError, SeverityFatal, SeverityPanic, SeverityWarning:
		return Severity(severity)
	default:
		return SeverityUnknown
	}
}

// ConvertMySQLError converts a MySQL server error. Column and constraint
// names are recovered from the message where MySQL puts them.
func ConvertMySQLError(src *mysql.MySQLError) *Error {
	e := &Error{
		Code:         MapMySQLNumber(src.Number),
		Severity:     SeverityError,
		DatabaseCode: fmt.Sprint(src.Number),
		Message:      src.Message,
		driverErr:    src,
	}

	switch e.Code {
	case NotNullViolation:
		e.ColumnName = firstSubmatch(mysqlColumnPattern, src.Message)
	case UniqueViolation:
		key := firstSubmatch(mysqlKeyPattern, src.Message)
		// MySQL 8 qualifies the key with its table: 'employees.uq_employee'.
		if table, constraint, ok := cutLast(key, "."); ok {
			e.TableName, e.ConstraintName = table, constraint
		} else {
			e.ConstraintName = key
		}
	case ForeignKeyViolation:
		e.ConstraintName = firstSubmatch(mysqlConstraintPattern, src.Message)
	}

	return e
}
