package services

import (
	"context"

	"github.com/yoockh/unistep/internal/models"
	mongorepo "github.com/yoockh/unistep/internal/repositories/mongo"
)

// DepartmentService resolves the departments a tenant offers.
type DepartmentService interface {
	// Lookup flattens the departments of every university whose login equals
	// login. No match yields an empty list.
	Lookup(ctx context.Context, login string) ([]models.Department, error)
}

type departmentService struct {
	universities mongorepo.UniversityRepository
}

func NewDepartmentService(universities mongorepo.UniversityRepository) DepartmentService {
	return &departmentService{universities: universities}
}

func (s *departmentService) Lookup(ctx context.Context, login string) ([]models.Department, error) {
	docs, err := s.universities.FindByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	out := []models.Department{}
	for _, u := range docs {
		out = append(out, u.Departments...)
	}
	return out, nil
}
