package handler

import (
	"github.com/deppfellow/employee-api/internal/server"
	"github.com/deppfellow/employee-api/internal/service"
)

type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	Employees *EmployeeHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(s),
		Auth:      NewAuthHandler(s, services.Auth),
		Employees: NewEmployeeHandler(s, services.Employees),
	}
}
