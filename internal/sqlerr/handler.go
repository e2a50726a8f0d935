package sqlerr

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/deppfellow/employee-api/internal/database"
	"github.com/deppfellow/employee-api/internal/errs"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	mysqlColumnPattern     = regexp.MustCompile(`(?:Column|Field) '([^']+)'`)
	mysqlKeyPattern        = regexp.MustCompile(`for key '([^']+)'`)
	mysqlConstraintPattern = regexp.MustCompile("CONSTRAINT `([^`]+)`")
	uniqueKeyPattern       = regexp.MustCompile(`_([^_]+)_(?:key|ukey)$`)
)

// ErrCode reports the Code of the first *Error in err's chain, or Other.
func ErrCode(err error) Code {
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code
	}
	return Other
}

// ConvertPgError converts a PostgreSQL server error. PostgreSQL reports the
// table, column and constraint involved as separate fields.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// Convert returns the *Error for a PostgreSQL or MySQL server error anywhere
// in err's chain, or nil when there is none.
func Convert(err error) *Error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return ConvertPgError(pgErr)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return ConvertMySQLError(myErr)
	}

	return nil
}

// violation says how each kind of constraint failure is reported: the
// suffix of its machine readable code and whether its message may be shown.
type violation struct {
	suffix   string
	override bool
}

var violations = map[Code]violation{
	ForeignKeyViolation: {suffix: "NOT_FOUND"},
	UniqueViolation:     {suffix: "ALREADY_EXISTS", override: true},
	NotNullViolation:    {suffix: "REQUIRED", override: true},
	CheckViolation:      {suffix: "INVALID", override: true},
}

// constraintError phrases a constraint violation as a 400 with a code such
// as EMPLOYEE_ALREADY_EXISTS. Unknown codes are a 500.
func constraintError(sqlErr *Error) error {
	v, ok := violations[sqlErr.Code]
	if !ok {
		return errs.NewInternalServerError()
	}

	code := singular(strings.ToUpper(cmp.Or(sqlErr.TableName, "record"))) + "_" + v.suffix
	column := sqlErr.ColumnName
	subject := entity(sqlErr.TableName, column)

	var message string
	var fieldErrors []errs.FieldError

	switch sqlErr.Code {
	case ForeignKeyViolation:
		message = fmt.Sprintf("The referenced %s does not exist", subject)
	case UniqueViolation:
		key := cmp.Or(title(uniqueColumn(sqlErr.ConstraintName)), "identifier")
		message = fmt.Sprintf("A %s with this %s already exists", subject, key)
	case NotNullViolation:
		message = fmt.Sprintf("The %s is required", cmp.Or(title(column), "field"))
		fieldErrors = []errs.FieldError{{Field: strings.ToLower(column), Error: "is required"}}
	case CheckViolation:
		message = "One or more values do not meet required conditions"
		if column != "" {
			message = fmt.Sprintf("The %s value does not meet required conditions", title(column))
		}
	}

	return errs.NewBadRequestError(message, v.override, &code, fieldErrors, nil)
}

// entity names the row involved: "manager_id" gives "Manager", otherwise the
// singular table name, otherwise "record".
func entity(table, column string) string {
	if base, ok := strings.CutSuffix(strings.ToLower(column), "_id"); ok && base != "" {
		return title(base)
	}
	if table != "" {
		return title(singular(table))
	}
	return "record"
}

func singular(name string) string {
	if n := len(name); n > 1 && (name[n-1] == 's' || name[n-1] == 'S') {
		return name[:n-1]
	}
	return name
}

// title turns "first_name" into "First Name".
func title(s string) string {
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// uniqueColumn reads the column out of "unique_<table>_<column>" and
// "<table>_<column>_key" constraint names.
func uniqueColumn(constraint string) string {
	if strings.HasPrefix(constraint, "unique_") && strings.Count(constraint, "_") >= 2 {
		return constraint[strings.LastIndex(constraint, "_")+1:]
	}
	return firstSubmatch(uniqueKeyPattern, constraint)
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return ""
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}

// HandleError turns whatever a repository or service returned into an
// *errs.HTTPError:
//
//   - *errs.HTTPError passes through untouched
//   - an unreachable or unprovisionable database becomes 503
//   - constraint violations become 400 with a readable message
//   - no rows becomes 404, naming the table when the error says "table:<name>:"
//   - everything else becomes a bare 500
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	if database.IsUnavailable(err) || errors.Is(err, context.DeadlineExceeded) {
		return errs.NewServiceUnavailableError("The employee database is currently unavailable", false)
	}

	if sqlErr := Convert(err); sqlErr != nil {
		return constraintError(sqlErr)
	}

	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		if _, rest, ok := strings.Cut(err.Error(), "table:"); ok {
			table, _, _ := strings.Cut(rest, ":")
			return errs.NewNotFoundError(entity(table, "")+" not found", true, nil)
		}
		return errs.NewNotFoundError("Resource not found", false, nil)
	}

	return errs.NewInternalServerError()
}
