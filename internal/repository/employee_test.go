package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/deppfellow/employee-api/internal/database"
	"github.com/deppfellow/employee-api/internal/database/databasetest"
	"github.com/deppfellow/employee-api/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var employeeRowColumns = []string{"id", "first_name", "last_name", "birth_date", "is_active"}

func ada() model.Employee {
	return model.Employee{FirstName: "Ada", LastName: "Lovelace", BirthDate: model.NewDate(1815, time.December, 10), IsActive: true}
}

func TestListReturnsEveryEmployee(t *testing.T) {
	factory, mock := databasetest.NewFactory(t)
	mock.ExpectQuery(listEmployeesQuery).WillReturnRows(sqlmock.NewRows(employeeRowColumns).
		AddRow(1, "Ada", "Lovelace", "1815-12-10", true).
		AddRow(2, "Alan", "Turing", "1912-06-23", false))
	mock.ExpectClose()

	employees, err := NewEmployeeRepository(factory).List(context.Background())
	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "Ada", employees[0].FirstName)
	assert.Equal(t, "1912-06-23", employees[1].BirthDate.String())
	assert.False(t, employees[1].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOnEmptyTableReturnsEmptySlice(t *testing.T) {
	factory, mock := databasetest.NewFactory(t)
	mock.ExpectQuery(listActiveEmployeesQuery).WillReturnRows(sqlmock.NewRows(employeeRowColumns))
	mock.ExpectClose()

	employees, err := NewEmployeeRepository(factory).ListActive(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, employees)
	assert.Empty(t, employees)
}

func TestListBornBeforePassesDate(t *testing.T) {
	factory, mock := databasetest.NewFactory(t)
	mock.ExpectQuery(listBornBeforeQuery).
		WithArgs("1900-01-01").
		WillReturnRows(sqlmock.NewRows(employeeRowColumns).AddRow(1, "Ada", "Lovelace", "1815-12-10", true))
	mock.ExpectClose()

	employees, err := NewEmployeeRepository(factory).ListBornBefore(context.Background(), model.NewDate(1900, time.January, 1))
	require.NoError(t, err)
	assert.Len(t, employees, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDMissingRowWrapsErrNoRows(t *testing.T) {
	factory, mock := databasetest.NewFactory(t)
	mock.ExpectQuery(getEmployeeQuery).WithArgs(99).WillReturnRows(sqlmock.NewRows(employeeRowColumns))
	mock.ExpectClose()

	_, err := NewEmployeeRepository(factory).GetByID(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Contains(t, err.Error(), "table:employees:")
}

func TestCountDuplicatesExcludesID(t *testing.T) {
	factory, mock := databasetest.NewFactory(t)
	mock.ExpectQuery(countDuplicatesQuery).
		WithArgs("Ada", "Lovelace", "1815-12-10", 3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectClose()

	count, err := NewEmployeeRepository(factory).CountDuplicates(context.Background(), ada(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateUsesLastInsertIDOnMySQL(t *testing.T) {
	factory, mock := databasetest.NewFactory(t)
	mock.ExpectExec(insertEmployeeQuery).
		WithArgs("Ada", "Lovelace", "1815-12-10", true).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectClose()

	id, err := NewEmployeeRepository(factory).Create(context.Background(), ada())
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUsesReturningOnPostgres(t *testing.T) {
	db, mock := databasetest.NewMock(t)
	opener := &databasetest.Opener{Driver: "pgx"}
	opener.Push(db)
	factory, err := database.NewFactory(&databasetest.Provisioner{Ready: true}, opener, zerolog.Nop())
	require.NoError(t, err)

	mock.ExpectQuery("INSERT INTO employees (first_name, last_name, birth_date, is_active) VALUES ($1, $2, $3, $4) RETURNING id").
		WithArgs("Ada", "Lovelace", "1815-12-10", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectClose()

	id, err := NewEmployeeRepository(factory).Create(context.Background(), ada())
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAndDeleteReportRowsAffected(t *testing.T) {
	factory, mock := databasetest.NewFactory(t)
	mock.ExpectExec(updateEmployeeQuery).
		WithArgs("Ada", "Lovelace", "1815-12-10", true, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	affected, err := NewEmployeeRepository(factory).Update(context.Background(), 5, ada())
	require.NoError(t, err)
	assert.Zero(t, affected)

	factory, mock = databasetest.NewFactory(t)
	mock.ExpectExec(deleteEmployeeQuery).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	affected, err = NewEmployeeRepository(factory).Delete(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestRepositoryPropagatesUnavailableDatabase(t *testing.T) {
	factory, err := database.NewFactory(&databasetest.Provisioner{Ready: false}, &databasetest.Opener{}, zerolog.Nop())
	require.NoError(t, err)

	_, err = NewEmployeeRepository(factory).List(context.Background())
	require.Error(t, err)
	assert.True(t, database.IsUnavailable(err))
	assert.True(t, errors.Is(err, database.ErrInitialization))
}
