package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/employee-api/internal/database"
	"github.com/deppfellow/employee-api/internal/model"
)

// Connector is the part of database.Factory repositories depend on.
type Connector interface {
	WithConn(ctx context.Context, fn func(conn *database.Conn) error) error
}

// EmployeeRepository reads and writes the employees table. Every call opens
// its own connection through the Connector and closes it before returning.
//
// Queries use '?' placeholders and are rebound per driver.
type EmployeeRepository struct {
	db Connector
}

func NewEmployeeRepository(db Connector) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = "id, first_name, last_name, birth_date, is_active"

const (
	listEmployeesQuery        = "SELECT " + employeeColumns + " FROM employees ORDER BY id"
	getEmployeeQuery          = "SELECT " + employeeColumns + " FROM employees WHERE id = ?"
	listActiveEmployeesQuery  = "SELECT " + employeeColumns + " FROM employees WHERE is_active = TRUE ORDER BY id"
	listByLastNameQuery       = "SELECT " + employeeColumns + " FROM employees ORDER BY last_name DESC, id"
	listBornBeforeQuery       = "SELECT " + employeeColumns + " FROM employees WHERE birth_date < ? ORDER BY birth_date, id"
	countDuplicatesQuery      = "SELECT COUNT(*) FROM employees WHERE first_name = ? AND last_name = ? AND birth_date = ? AND id <> ?"
	insertEmployeeQuery       = "INSERT INTO employees (first_name, last_name, birth_date, is_active) VALUES (?, ?, ?, ?)"
	updateEmployeeQuery       = "UPDATE employees SET first_name = ?, last_name = ?, birth_date = ?, is_active = ? WHERE id = ?"
	deleteEmployeeQuery       = "DELETE FROM employees WHERE id = ?"
	postgresDriverName        = "pgx"
	postgresInsertReturningID = " RETURNING id"
)

func (r *EmployeeRepository) selectEmployees(ctx context.Context, query string, args ...any) ([]model.Employee, error) {
	employees := []model.Employee{}
	err := r.db.WithConn(ctx, func(conn *database.Conn) error {
		return conn.SelectContext(ctx, &employees, conn.Rebind(query), args...)
	})
	if err != nil {
		return nil, fmt.Errorf("table:employees: %w", err)
	}
	return employees, nil
}

// List returns every employee ordered by id.
func (r *EmployeeRepository) List(ctx context.Context) ([]model.Employee, error) {
	return r.selectEmployees(ctx, listEmployeesQuery)
}

// ListActive returns the employees flagged active.
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]model.Employee, error) {
	return r.selectEmployees(ctx, listActiveEmployeesQuery)
}

// ListByLastNameDesc returns every employee sorted by last name, Z to A.
func (r *EmployeeRepository) ListByLastNameDesc(ctx context.Context) ([]model.Employee, error) {
	return r.selectEmployees(ctx, listByLastNameQuery)
}

// ListBornBefore returns the employees born strictly before date.
func (r *EmployeeRepository) ListBornBefore(ctx context.Context, date model.Date) ([]model.Employee, error) {
	return r.selectEmployees(ctx, listBornBeforeQuery, date)
}

// GetByID returns the employee with id. A missing row yields an error
// wrapping sql.ErrNoRows.
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*model.Employee, error) {
	var employee model.Employee
	err := r.db.WithConn(ctx, func(conn *database.Conn) error {
		return conn.GetContext(ctx, &employee, conn.Rebind(getEmployeeQuery), id)
	})
	if err != nil {
		return nil, fmt.Errorf("table:employees: %w", err)
	}
	return &employee, nil
}

// CountDuplicates counts employees other than excludeID sharing e's first
// name, last name and birth date. Pass 0 to exclude nobody.
func (r *EmployeeRepository) CountDuplicates(ctx context.Context, e model.Employee, excludeID int64) (int, error) {
	var count int
	err := r.db.WithConn(ctx, func(conn *database.Conn) error {
		return conn.GetContext(ctx, &count, conn.Rebind(countDuplicatesQuery), e.FirstName, e.LastName, e.BirthDate, excludeID)
	})
	if err != nil {
		return 0, fmt.Errorf("count duplicate employees: %w", err)
	}
	return count, nil
}

// Create inserts e and returns the id the database assigned.
func (r *EmployeeRepository) Create(ctx context.Context, e model.Employee) (int64, error) {
	var id int64
	err := r.db.WithConn(ctx, func(conn *database.Conn) error {
		args := []any{e.FirstName, e.LastName, e.BirthDate, e.IsActive}

		// PostgreSQL has no LastInsertId; ask for the id instead.
		if conn.DriverName() == postgresDriverName {
			return conn.GetContext(ctx, &id, conn.Rebind(insertEmployeeQuery+postgresInsertReturningID), args...)
		}

		result, err := conn.ExecContext(ctx, conn.Rebind(insertEmployeeQuery), args...)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert employee: %w", err)
	}
	return id, nil
}

// Update overwrites the employee with id and reports how many rows matched.
func (r *EmployeeRepository) Update(ctx context.Context, id int64, e model.Employee) (int64, error) {
	return r.exec(ctx, "update employee", updateEmployeeQuery, e.FirstName, e.LastName, e.BirthDate, e.IsActive, id)
}

// Delete removes the employee with id and reports how many rows went away.
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.exec(ctx, "delete employee", deleteEmployeeQuery, id)
}

func (r *EmployeeRepository) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	start := time.Now()

	var affected int64
	err := r.db.WithConn(ctx, func(conn *database.Conn) error {
		result, err := conn.ExecContext(ctx, conn.Rebind(query), args...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s after %s: %w", op, time.Since(start).Round(time.Millisecond), err)
	}
	return affected, nil
}
