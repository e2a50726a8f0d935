package router

import (
	"net/http"

	"github.com/deppfellow/employee-api/internal/handler"
	"github.com/deppfellow/employee-api/internal/middleware"
	"github.com/labstack/echo/v4"
)

// registerEmployeeRoutes mounts /api/employees. Listing is public, reading
// single records or filtered lists needs a token, and writes need the admin
// claim as well.
func registerEmployeeRoutes(api *echo.Group, h *handler.Handlers, m *middleware.Middlewares) {
	employees := api.Group("/employees")
	e := h.Employees
	admin := m.Auth.RequireAdmin()

	employees.GET("", handler.Handle(e.Handler, e.List, http.StatusOK, &handler.ListEmployeesRequest{}))

	employees.GET("/search", handler.Handle(e.Handler, e.Search, http.StatusOK, &handler.SearchEmployeesRequest{}), m.Auth.RequireAuth)
	employees.GET("/birthDate", handler.Handle(e.Handler, e.BornBefore, http.StatusOK, &handler.BirthDateRequest{}), m.Auth.RequireAuth)
	employees.GET("/:id", handler.Handle(e.Handler, e.Get, http.StatusOK, &handler.EmployeeIDRequest{}), m.Auth.RequireAuth)

	employees.POST("", handler.Handle(e.Handler, e.Create, http.StatusCreated, &handler.EmployeeRequest{}), m.Auth.RequireAuth, admin)
	employees.PATCH("/:id", handler.Handle(e.Handler, e.Update, http.StatusOK, &handler.UpdateEmployeeRequest{}), m.Auth.RequireAuth, admin)
	employees.DELETE("/:id", handler.HandleNoContent(e.Handler, e.Delete, http.StatusNoContent, &handler.EmployeeIDRequest{}), m.Auth.RequireAuth, admin)
}
