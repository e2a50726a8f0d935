package repository

import (
	"github.com/deppfellow/employee-api/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Employees *EmployeeRepository
}

func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Employees: NewEmployeeRepository(s.DB),
	}
}
