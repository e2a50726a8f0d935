package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/deppfellow/employee-api/internal/config"
	"github.com/deppfellow/employee-api/internal/database"
	"github.com/deppfellow/employee-api/internal/database/databasetest"
	"github.com/deppfellow/employee-api/internal/errs"
	"github.com/deppfellow/employee-api/internal/middleware"
	"github.com/deppfellow/employee-api/internal/model"
	"github.com/deppfellow/employee-api/internal/repository"
	"github.com/deppfellow/employee-api/internal/server"
	"github.com/deppfellow/employee-api/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, factory *database.Factory) *server.Server {
	t.Helper()

	log := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{
			Primary:       config.Primary{Env: "test"},
			Database:      config.DatabaseConfig{Host: "db.internal", Name: "Mitarbeiter"},
			Observability: config.DefaultObservabilityConfig(),
		},
		Logger: &log,
		DB:     factory,
	}
}

func newEmployeeEcho(s *server.Server) *echo.Echo {
	h := NewEmployeeHandler(s, service.NewEmployeeService(repository.NewEmployeeRepository(s.DB), *s.Logger))

	e := echo.New()
	e.HTTPErrorHandler = middleware.NewGlobalMiddlewares(s).GlobalErrorHandler

	g := e.Group("/api/employees")
	g.GET("", Handle(h.Handler, h.List, http.StatusOK, &ListEmployeesRequest{}))
	g.GET("/search", Handle(h.Handler, h.Search, http.StatusOK, &SearchEmployeesRequest{}))
	g.GET("/birthDate", Handle(h.Handler, h.BornBefore, http.StatusOK, &BirthDateRequest{}))
	g.GET("/:id", Handle(h.Handler, h.Get, http.StatusOK, &EmployeeIDRequest{}))
	g.POST("", Handle(h.Handler, h.Create, http.StatusCreated, &EmployeeRequest{}))
	g.PATCH("/:id", Handle(h.Handler, h.Update, http.StatusOK, &UpdateEmployeeRequest{}))
	g.DELETE("/:id", HandleNoContent(h.Handler, h.Delete, http.StatusNoContent, &EmployeeIDRequest{}))
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errs.HTTPError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

var rowColumns = []string{"id", "first_name", "last_name", "birth_date", "is_active"}

func TestListEmployees(t *testing.T) {
	factory, mock := databasetest.NewFactory(t)
	mock.ExpectQuery("SELECT id, first_name, last_name, birth_date, is_active FROM employees ORDER BY id").
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(1, "Max", "Mustermann", "1985-01-15", true))
	mock.ExpectClose()

	rec := do(newEmployeeEcho(newTestServer(t, factory)), http.MethodGet, "/api/employees", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list model.EmployeeList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, "All employees", list.Message)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "1985-01-15", list.Data[0].BirthDate.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEmployeeNotFound(t *testing.T) {
	factory, mock := databasetest.NewFactory(t)
	mock.ExpectQuery("SELECT id, first_name, last_name, birth_date, is_active FROM employees WHERE id = ?").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(rowColumns))
	mock.ExpectClose()

	rec := do(newEmployeeEcho(newTestServer(t, factory)), http.MethodGet, "/api/employees/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Employee with ID = 7 does not exist.", errorMessage(t, rec))
}

func TestCreateEmployee(t *testing.T) {
	factory, mocks := databasetest.NewFactoryWithConns(t, 2)
	mocks[0].ExpectQuery("SELECT COUNT(*) FROM employees WHERE first_name = ? AND last_name = ? AND birth_date = ? AND id <> ?").
		WithArgs("Max", "Mustermann", "1985-01-15", 0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mocks[0].ExpectClose()
	mocks[1].ExpectExec("INSERT INTO employees (first_name, last_name, birth_date, is_active) VALUES (?, ?, ?, ?)").
		WithArgs("Max", "Mustermann", "1985-01-15", true).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mocks[1].ExpectClose()

	rec := do(newEmployeeEcho(newTestServer(t, factory)), http.MethodPost, "/api/employees",
		`{"firstName":" Max ","lastName":"Mustermann","birthDate":"1985-01-15","isActive":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result model.EmployeeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "New employee created", result.Message)
	assert.Equal(t, int64(12), result.Data.ID)
	assert.Equal(t, "Max", result.Data.FirstName)

	for _, mock := range mocks {
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestEmployeeRequestValidation(t *testing.T) {
	factory, _ := databasetest.NewFactory(t)
	e := newEmployeeEcho(newTestServer(t, factory))

	tests := []struct {
		name    string
		method  string
		target  string
		body    string
		message string
	}{
		{"non numeric id", http.MethodGet, "/api/employees/abc", "", "Invalid ID"},
		{"zero id", http.MethodDelete, "/api/employees/0", "", "Invalid ID"},
		{"negative id on update", http.MethodPatch, "/api/employees/-3",
			`{"firstName":"Max","lastName":"Mustermann","birthDate":"1985-01-15"}`, "Invalid ID"},
		{"missing last name", http.MethodPost, "/api/employees",
			`{"firstName":"Max","birthDate":"1985-01-15"}`, "A first name and last name are required."},
		{"german date", http.MethodPost, "/api/employees",
			`{"firstName":"Max","lastName":"Mustermann","birthDate":"15.01.1985"}`, "A valid birth date in format 'yyyy-MM-dd' is required."},
		{"bad birth date query", http.MethodGet, "/api/employees/birthDate?birthDate=yesterday", "",
			"A valid birth date in format 'yyyy-MM-dd' is required."},
		{"bad search filter", http.MethodGet, "/api/employees/search?search=firstName", "",
			"Invalid search filter. Please use 'isActive' or 'LastName' or a date in format 'yyyy-MM-dd'."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, errorMessage(t, rec))
		})
	}
}

func TestDeleteEmployee(t *testing.T) {
	factory, mocks := databasetest.NewFactoryWithConns(t, 2)
	mocks[0].ExpectExec("DELETE FROM employees WHERE id = ?").WithArgs(4).WillReturnResult(sqlmock.NewResult(0, 1))
	mocks[0].ExpectClose()
	mocks[1].ExpectExec("DELETE FROM employees WHERE id = ?").WithArgs(4).WillReturnResult(sqlmock.NewResult(0, 0))
	mocks[1].ExpectClose()

	e := newEmployeeEcho(newTestServer(t, factory))

	rec := do(e, http.MethodDelete, "/api/employees/4", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(e, http.MethodDelete, "/api/employees/4", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Employee could not be deleted because ID = 4 does not exist.", errorMessage(t, rec))
}

func TestEmployeesUnavailableWhenProvisioningFails(t *testing.T) {
	factory, err := database.NewFactory(&databasetest.Provisioner{Ready: false}, &databasetest.Opener{}, zerolog.Nop())
	require.NoError(t, err)

	rec := do(newEmployeeEcho(newTestServer(t, factory)), http.MethodGet, "/api/employees", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "The employee database is currently unavailable", errorMessage(t, rec))
}

func TestHandleUsesFreshPayloadPerRequest(t *testing.T) {
	template := &SearchEmployeesRequest{Search: "stale"}
	fresh := newRequest(template)

	assert.NotSame(t, template, fresh)
	assert.Empty(t, fresh.Search)
}

func TestCheckHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		factory, mock := databasetest.NewFactory(t)
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		mock.ExpectClose()

		s := newTestServer(t, factory)
		rec := checkHealth(t, s)
		assert.Equal(t, http.StatusOK, rec.Code)

		response := decodeHealth(t, rec)
		assert.Equal(t, StatusHealthy, response.Status)
		assert.Equal(t, "ready", response.Checks["database"].State)
		assert.Equal(t, "db.internal", response.Checks["database"].Server)
		assert.Equal(t, "Mitarbeiter", response.Checks["database"].Database)
	})

	t.Run("degraded", func(t *testing.T) {
		factory, mock := databasetest.NewFactory(t)
		mock.ExpectQuery("SELECT 1").
			WillDelayFor(20 * time.Millisecond).
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		mock.ExpectClose()

		s := newTestServer(t, factory)
		s.Config.Observability.HealthChecks.DegradedThreshold = time.Millisecond

		rec := checkHealth(t, s)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, StatusDegraded, decodeHealth(t, rec).Status)
	})

	t.Run("unhealthy", func(t *testing.T) {
		factory, err := database.NewFactory(&databasetest.Provisioner{Ready: false}, &databasetest.Opener{}, zerolog.Nop())
		require.NoError(t, err)

		rec := checkHealth(t, newTestServer(t, factory))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		check := decodeHealth(t, rec).Checks["database"]
		assert.Equal(t, StatusUnhealthy, check.Status)
		assert.Equal(t, "not_started", check.State)
		assert.Equal(t, database.CategoryUnclassified.String(), check.Category)
		assert.NotEmpty(t, check.Error)
	})

	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.Config.Observability.HealthChecks.Enabled = false

		rec := checkHealth(t, s)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decodeHealth(t, rec).Checks)
	})
}

func checkHealth(t *testing.T, s *server.Server) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, NewHealthHandler(s).CheckHealth(e.NewContext(req, rec)))
	return rec
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	return response
}
