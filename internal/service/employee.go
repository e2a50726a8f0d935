package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/deppfellow/employee-api/internal/errs"
	"github.com/deppfellow/employee-api/internal/model"
	"github.com/rs/zerolog"
)

// Search filters understood by EmployeeService.Search. Any other value must
// be a yyyy-MM-dd date.
const (
	FilterActive   = "isActive"
	FilterLastName = "LastName"
)

// EmployeeStore is what EmployeeService needs from persistence.
// *repository.EmployeeRepository implements it.
type EmployeeStore interface {
	List(ctx context.Context) ([]model.Employee, error)
	ListActive(ctx context.Context) ([]model.Employee, error)
	ListByLastNameDesc(ctx context.Context) ([]model.Employee, error)
	ListBornBefore(ctx context.Context, date model.Date) ([]model.Employee, error)
	GetByID(ctx context.Context, id int64) (*model.Employee, error)
	CountDuplicates(ctx context.Context, e model.Employee, excludeID int64) (int, error)
	Create(ctx context.Context, e model.Employee) (int64, error)
	Update(ctx context.Context, id int64, e model.Employee) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type EmployeeService struct {
	store EmployeeStore
	log   zerolog.Logger
}

func NewEmployeeService(store EmployeeStore, logger zerolog.Logger) *EmployeeService {
	return &EmployeeService{
		store: store,
		log:   logger.With().Str("component", "employee_service").Logger(),
	}
}

// List returns every employee, or 404 when there are none.
func (s *EmployeeService) List(ctx context.Context) (*model.EmployeeList, error) {
	employees, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, errs.NewNotFoundError("No employees found.", true, nil)
	}

	return &model.EmployeeList{
		Message: "All employees",
		Count:   len(employees),
		Data:    employees,
	}, nil
}

// Search applies one of the named filters or, for a date, returns employees
// born before it.
func (s *EmployeeService) Search(ctx context.Context, filter string) (*model.EmployeeList, error) {
	filter = strings.TrimSpace(filter)

	switch filter {
	case FilterActive:
		employees, err := s.store.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		if len(employees) == 0 {
			return nil, errs.NewNotFoundError("No active employees in the list.", true, nil)
		}
		return &model.EmployeeList{Message: "All active employees", Filter: FilterActive, Count: len(employees), Data: employees}, nil

	case FilterLastName:
		employees, err := s.store.ListByLastNameDesc(ctx)
		if err != nil {
			return nil, err
		}
		if len(employees) == 0 {
			return nil, errs.NewNotFoundError("No employees with last names in the list.", true, nil)
		}
		return &model.EmployeeList{Message: "All employees sorted alphabetically by last name", Filter: FilterLastName, Count: len(employees), Data: employees}, nil
	}

	date, err := model.ParseDate(filter)
	if err != nil {
		return nil, errs.NewBadRequestError(
			"Invalid search filter. Please use 'isActive' or 'LastName' or a date in format 'yyyy-MM-dd'.",
			true, nil, nil, nil)
	}
	return s.BornBefore(ctx, date)
}

// BornBefore returns employees born strictly before date.
func (s *EmployeeService) BornBefore(ctx context.Context, date model.Date) (*model.EmployeeList, error) {
	employees, err := s.store.ListBornBefore(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, errs.NewNotFoundError(fmt.Sprintf("No employee found with birth date earlier than %s.", date), true, nil)
	}

	return &model.EmployeeList{
		Message: fmt.Sprintf("All employees older than %s", date),
		Filter:  fmt.Sprintf("Older than %s", date),
		Count:   len(employees),
		Data:    employees,
	}, nil
}

func (s *EmployeeService) Get(ctx context.Context, id int64) (*model.Employee, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	employee, err := s.store.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, errs.NewNotFoundError(fmt.Sprintf("Employee with ID = %d does not exist.", id), true, nil)
		}
		return nil, err
	}
	return employee, nil
}

// Create stores e and returns it with its new id.
func (s *EmployeeService) Create(ctx context.Context, e model.Employee) (*model.EmployeeResult, error) {
	if err := checkEmployee(e); err != nil {
		return nil, err
	}

	duplicates, err := s.store.CountDuplicates(ctx, e, 0)
	if err != nil {
		return nil, err
	}
	if duplicates > 0 {
		return nil, errs.NewBadRequestError("An employee with the same first name, last name and birth date already exists.", true, nil, nil, nil)
	}

	id, err := s.store.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	e.ID = id

	s.log.Info().Int64("employee_id", id).Msg("employee created")

	return &model.EmployeeResult{Message: "New employee created", Data: &e}, nil
}

// Update replaces every field of the employee with id.
func (s *EmployeeService) Update(ctx context.Context, id int64, e model.Employee) (*model.EmployeeResult, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := checkEmployee(e); err != nil {
		return nil, err
	}

	duplicates, err := s.store.CountDuplicates(ctx, e, id)
	if err != nil {
		return nil, err
	}
	if duplicates > 0 {
		return nil, errs.NewBadRequestError("Another employee with the same data already exists under a different ID", true, nil, nil, nil)
	}

	affected, err := s.store.Update(ctx, id, e)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, errs.NewNotFoundError(fmt.Sprintf("Employee could not be updated because ID = %d does not exist", id), true, nil)
	}
	e.ID = id

	s.log.Info().Int64("employee_id", id).Msg("employee updated")

	return &model.EmployeeResult{Message: fmt.Sprintf("Employee with ID %d was successfully updated", id), Data: &e}, nil
}

func (s *EmployeeService) Delete(ctx context.Context, id int64) error {
	if err := checkID(id); err != nil {
		return err
	}

	affected, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.NewNotFoundError(fmt.Sprintf("Employee could not be deleted because ID = %d does not exist.", id), true, nil)
	}

	s.log.Info().Int64("employee_id", id).Msg("employee deleted")
	return nil
}

func checkID(id int64) error {
	if id <= 0 {
		return errs.NewBadRequestError("Invalid ID", true, nil, nil, nil)
	}
	return nil
}

func checkEmployee(e model.Employee) error {
	if strings.TrimSpace(e.FirstName) == "" || strings.TrimSpace(e.LastName) == "" {
		return errs.NewBadRequestError("A first name and last name are required.", true, nil, nil, nil)
	}
	if e.BirthDate.IsZero() {
		return errs.NewBadRequestError("A valid birth date in format 'yyyy-MM-dd' is required.", true, nil, nil, nil)
	}
	return nil
}
