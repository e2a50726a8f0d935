package service

import (
	"github.com/deppfellow/employee-api/internal/repository"
	"github.com/deppfellow/employee-api/internal/server"
)

type Services struct {
	Auth      *AuthService
	Employees *EmployeeService
}

func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	return &Services{
		Auth:      NewAuthService(s.Tokens, *s.Logger),
		Employees: NewEmployeeService(repos.Employees, *s.Logger),
	}, nil
}
