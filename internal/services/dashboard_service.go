package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/unistep/internal/cache"
	"github.com/yoockh/unistep/internal/models"
	mongorepo "github.com/yoockh/unistep/internal/repositories/mongo"
	"github.com/yoockh/unistep/internal/session"
	"github.com/yoockh/unistep/internal/utils"
)

const (
	DefaultStatsCacheTTL = 10 * time.Minute
	// Unspecified buckets applications with an empty value.
	Unspecified = "Unspecified"
)

type Stats struct {
	Total         int            `json:"total"`
	ByDepartment  map[string]int `json:"byDepartment"`
	BySex         map[string]int `json:"bySex"`
	ByCitizenship map[string]int `json:"byCitizenship"`
	// DepartmentNames maps the department ids above to their current names.
	DepartmentNames map[string]string `json:"departmentNames"`
}

type DashboardService interface {
	ListApplications(ctx context.Context, sess *session.Context) ([]models.Application, error)
	GetApplication(ctx context.Context, sess *session.Context, id string) (*models.Application, error)
	Stats(ctx context.Context, sess *session.Context) (*Stats, error)
}

type dashboardService struct {
	universities mongorepo.UniversityRepository
	applications mongorepo.ApplicationRepository
	cache        cache.Cache
	ttl          time.Duration
	log          *logrus.Logger
}

func NewDashboardService(universities mongorepo.UniversityRepository, applications mongorepo.ApplicationRepository, c cache.Cache, ttl time.Duration, log *logrus.Logger) DashboardService {
	if ttl <= 0 {
		ttl = DefaultStatsCacheTTL
	}
	if log == nil {
		log = logrus.New()
	}
	return &dashboardService{universities: universities, applications: applications, cache: c, ttl: ttl, log: log}
}

func (s *dashboardService) ListApplications(ctx context.Context, sess *session.Context) ([]models.Application, error) {
	const op = "DashboardService.ListApplications"

	u, err := tenantOf(ctx, s.universities, sess, op)
	if err != nil {
		return nil, err
	}
	apps, err := s.applications.ListByUniversity(ctx, u.Login)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list applications", err)
	}
	return apps, nil
}

func (s *dashboardService) GetApplication(ctx context.Context, sess *session.Context, id string) (*models.Application, error) {
	const op = "DashboardService.GetApplication"

	u, err := tenantOf(ctx, s.universities, sess, op)
	if err != nil {
		return nil, err
	}
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "application not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get application", err)
	}
	// another tenant's application looks the same as a missing one
	if app.University != u.Login {
		return nil, utils.E(utils.CodeNotFound, op, "application not found", utils.ErrNotFound)
	}
	return app, nil
}

func (s *dashboardService) Stats(ctx context.Context, sess *session.Context) (*Stats, error) {
	const op = "DashboardService.Stats"

	u, err := tenantOf(ctx, s.universities, sess, op)
	if err != nil {
		return nil, err
	}

	return cache.ReadThrough(ctx, s.cache, s.log, cache.StatsKey(u.Login), s.ttl, func(ctx context.Context) (*Stats, error) {
		apps, err := s.applications.ListByUniversity(ctx, u.Login)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to list applications", err)
		}
		return ComputeStats(apps, u.Departments), nil
	})
}

func ComputeStats(apps []models.Application, depts []models.Department) *Stats {
	st := &Stats{
		Total:           len(apps),
		ByDepartment:    map[string]int{},
		BySex:           map[string]int{},
		ByCitizenship:   map[string]int{},
		DepartmentNames: map[string]string{},
	}
	bucket := func(v string) string {
		if v == "" {
			return Unspecified
		}
		return v
	}
	for _, a := range apps {
		st.ByDepartment[bucket(a.DepartmentID)]++
		st.BySex[bucket(string(a.Sex))]++
		st.ByCitizenship[bucket(string(a.Citizenship))]++
	}
	for _, d := range depts {
		st.DepartmentNames[string(d.ID)] = d.Name
	}
	return st
}
