// Package service holds the business rules.
//
// Services sit between handlers and repositories. They decide what a request
// means for the employee records and answer with *errs.HTTPError for
// outcomes the client caused, such as a missing id or a duplicate.
// Infrastructure errors are passed up unchanged for the error handler.
package service

import (
	"database/sql"
	"errors"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
