package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/yoockh/unistep/internal/models"
	mongorepo "github.com/yoockh/unistep/internal/repositories/mongo"
	"github.com/yoockh/unistep/internal/utils"
)

type seedFile struct {
	Universities []seedUniversity `yaml:"universities"`
}

type seedUniversity struct {
	Login          string           `yaml:"login"`
	Email          string           `yaml:"email"`
	Password       string           `yaml:"password"`
	UniversityName string           `yaml:"universityName"`
	ShortName      string           `yaml:"shortName"`
	Site           seedSite         `yaml:"site"`
	Departments    []seedDepartment `yaml:"departments"`
}

type seedSite struct {
	HeroImg          string `yaml:"heroImg"`
	HeroTitle        string `yaml:"heroTitle"`
	HeroDescription  string `yaml:"heroDescription"`
	AboutImg         string `yaml:"aboutImg"`
	AboutTitle       string `yaml:"aboutTitle"`
	AboutDescription string `yaml:"aboutDescription"`
	CtaTitle         string `yaml:"ctaTitle"`
	CtaDescription   string `yaml:"ctaDescription"`
}

type seedDepartment struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type seedResult struct {
	Inserted int
	Skipped  int
}

func parseSeed(r io.Reader) ([]seedUniversity, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	seen := map[string]bool{}
	for i, u := range f.Universities {
		if strings.TrimSpace(u.Login) == "" || strings.TrimSpace(u.Email) == "" {
			return nil, fmt.Errorf("universities[%d]: login and email are required", i)
		}
		if utils.PasswordTooShort(u.Password) {
			return nil, fmt.Errorf("universities[%d]: password must be at least %d characters", i, utils.MinPasswordLength)
		}
		if seen[u.Login] {
			return nil, fmt.Errorf("universities[%d]: duplicate login %q", i, u.Login)
		}
		seen[u.Login] = true
	}
	return f.Universities, nil
}

func (s seedUniversity) toModel() (*models.University, error) {
	hash, err := utils.HashPassword(s.Password)
	if err != nil {
		return nil, err
	}

	site := models.DefaultSiteContent()
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&site.HeroImg, s.Site.HeroImg)
	override(&site.HeroTitle, s.Site.HeroTitle)
	override(&site.HeroDescription, s.Site.HeroDescription)
	override(&site.AboutImg, s.Site.AboutImg)
	override(&site.AboutTitle, s.Site.AboutTitle)
	override(&site.AboutDescription, s.Site.AboutDescription)
	override(&site.CtaTitle, s.Site.CtaTitle)
	override(&site.CtaDescription, s.Site.CtaDescription)

	depts := make([]models.Department, 0, len(s.Departments))
	for _, d := range s.Departments {
		depts = append(depts, models.Department{ID: models.DepartmentID(d.ID), Name: d.Name, Description: d.Description})
	}

	return &models.University{
		Login:          strings.TrimSpace(s.Login),
		Email:          strings.TrimSpace(s.Email),
		PasswordHash:   hash,
		UniversityName: s.UniversityName,
		ShortName:      s.ShortName,
		SiteContent:    site,
		Departments:    depts,
	}, nil
}

func applySeed(ctx context.Context, repo mongorepo.UniversityRepository, seeds []seedUniversity, log *logrus.Logger) (seedResult, error) {
	var res seedResult
	for _, s := range seeds {
		existing, err := repo.FindByLogin(ctx, s.Login)
		if err != nil {
			return res, err
		}
		if len(existing) > 0 {
			log.WithField("login", s.Login).Info("university exists, skipped")
			res.Skipped++
			continue
		}

		u, err := s.toModel()
		if err != nil {
			return res, err
		}
		if err := repo.Insert(ctx, u); err != nil {
			return res, fmt.Errorf("insert %s: %w", s.Login, err)
		}
		log.WithFields(logrus.Fields{"login": u.Login, "departments": len(u.Departments)}).Info("university seeded")
		res.Inserted++
	}
	return res, nil
}
