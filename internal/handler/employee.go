package handler

import (
	"strconv"
	"strings"

	"github.com/deppfellow/employee-api/internal/errs"
	"github.com/deppfellow/employee-api/internal/model"
	"github.com/deppfellow/employee-api/internal/server"
	"github.com/deppfellow/employee-api/internal/service"
	"github.com/labstack/echo/v4"
)

type EmployeeHandler struct {
	Handler
	employees *service.EmployeeService
}

func NewEmployeeHandler(s *server.Server, employees *service.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{
		Handler:   NewHandler(s),
		employees: employees,
	}
}

type ListEmployeesRequest struct{}

func (r *ListEmployeesRequest) Validate() error { return nil }

type SearchEmployeesRequest struct {
	Search string `query:"search"`
}

func (r *SearchEmployeesRequest) Validate() error { return nil }

type BirthDateRequest struct {
	BirthDate string `query:"birthDate"`

	date model.Date
}

func (r *BirthDateRequest) Validate() error {
	date, err := model.ParseDate(r.BirthDate)
	if err != nil {
		return errs.NewBadRequestError("A valid birth date in format 'yyyy-MM-dd' is required.", true, nil, nil, nil)
	}
	r.date = date
	return nil
}

// EmployeeIDRequest reads the :id path parameter. It is bound as text so a
// malformed id gets the same answer as a non-positive one.
type EmployeeIDRequest struct {
	RawID string `param:"id"`

	id int64
}

func (r *EmployeeIDRequest) Validate() error {
	id, err := parseID(r.RawID)
	if err != nil {
		return err
	}
	r.id = id
	return nil
}

// EmployeeRequest is the body of create and update calls.
type EmployeeRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthDate string `json:"birthDate"`
	IsActive  bool   `json:"isActive"`

	employee model.Employee
}

func (r *EmployeeRequest) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" || strings.TrimSpace(r.LastName) == "" {
		return errs.NewBadRequestError("A first name and last name are required.", true, nil, nil, nil)
	}

	birthDate, err := model.ParseDate(r.BirthDate)
	if err != nil {
		return errs.NewBadRequestError("A valid birth date in format 'yyyy-MM-dd' is required.", true, nil, nil, nil)
	}

	r.employee = model.Employee{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		BirthDate: birthDate,
		IsActive:  r.IsActive,
	}
	return nil
}

type UpdateEmployeeRequest struct {
	EmployeeRequest
	RawID string `param:"id"`

	id int64
}

func (r *UpdateEmployeeRequest) Validate() error {
	id, err := parseID(r.RawID)
	if err != nil {
		return err
	}
	r.id = id
	return r.EmployeeRequest.Validate()
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.NewBadRequestError("Invalid ID", true, nil, nil, nil)
	}
	return id, nil
}

func (h *EmployeeHandler) List(c echo.Context, _ *ListEmployeesRequest) (*model.EmployeeList, error) {
	return h.employees.List(c.Request().Context())
}

func (h *EmployeeHandler) Search(c echo.Context, req *SearchEmployeesRequest) (*model.EmployeeList, error) {
	return h.employees.Search(c.Request().Context(), req.Search)
}

func (h *EmployeeHandler) BornBefore(c echo.Context, req *BirthDateRequest) (*model.EmployeeList, error) {
	return h.employees.BornBefore(c.Request().Context(), req.date)
}

func (h *EmployeeHandler) Get(c echo.Context, req *EmployeeIDRequest) (*model.Employee, error) {
	return h.employees.Get(c.Request().Context(), req.id)
}

func (h *EmployeeHandler) Create(c echo.Context, req *EmployeeRequest) (*model.EmployeeResult, error) {
	return h.employees.Create(c.Request().Context(), req.employee)
}

func (h *EmployeeHandler) Update(c echo.Context, req *UpdateEmployeeRequest) (*model.EmployeeResult, error) {
	return h.employees.Update(c.Request().Context(), req.id, req.employee)
}

func (h *EmployeeHandler) Delete(c echo.Context, req *EmployeeIDRequest) error {
	return h.employees.Delete(c.Request().Context(), req.id)
}
