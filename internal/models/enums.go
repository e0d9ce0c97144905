package models

import (
	"errors"
	"fmt"
)

// ErrUnknownValue is returned when a value is outside its declared set.
var ErrUnknownValue = errors.New("unknown value")

type ApplicationType string

const (
	ApplicationBachelor ApplicationType = "bachelor"
	ApplicationMaster   ApplicationType = "master"
)

func ParseApplicationType(s string) (ApplicationType, error) {
	switch t := ApplicationType(s); t {
	case ApplicationBachelor, ApplicationMaster:
		return t, nil
	}
	return "", fmt.Errorf("%w: applicationType %q", ErrUnknownValue, s)
}

type Sex string

const (
	SexMale   Sex = "Male"
	SexFemale Sex = "Female"
)

func ParseSex(s string) (Sex, error) {
	switch v := Sex(s); v {
	case SexMale, SexFemale:
		return v, nil
	}
	return "", fmt.Errorf("%w: sex %q", ErrUnknownValue, s)
}

type Citizenship string

const (
	CitizenshipKZ    Citizenship = "kz"
	CitizenshipRU    Citizenship = "ru"
	CitizenshipKG    Citizenship = "kg"
	CitizenshipUZ    Citizenship = "uz"
	CitizenshipOther Citizenship = "other"
)

var citizenships = []Citizenship{CitizenshipKZ, CitizenshipRU, CitizenshipKG, CitizenshipUZ, CitizenshipOther}

func Citizenships() []Citizenship { return append([]Citizenship(nil), citizenships...) }

func ParseCitizenship(s string) (Citizenship, error) {
	for _, c := range citizenships {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: citizenship %q", ErrUnknownValue, s)
}

type EducationType string

const (
	// bachelor tier
	EducationAttestat EducationType = "attestat"
	EducationDiploma  EducationType = "diploma"

	// master tier
	EducationBachelor   EducationType = "bachelor"
	EducationSpecialist EducationType = "specialist"
)

type ExamType string

const (
	ExamENT ExamType = "ent"
	ExamEGE ExamType = "ege"
	ExamSAT ExamType = "sat"
	ExamACT ExamType = "act"

	ExamCT ExamType = "ct"
)

// EducationTypes returns the education document types legal for the tier.
func (t ApplicationType) EducationTypes() []EducationType {
	switch t {
	case ApplicationBachelor:
		return []EducationType{EducationAttestat, EducationDiploma}
	case ApplicationMaster:
		return []EducationType{EducationBachelor, EducationSpecialist}
	}
	return nil
}

// ExamTypes returns the exam types legal for the tier.
func (t ApplicationType) ExamTypes() []ExamType {
	switch t {
	case ApplicationBachelor:
		return []ExamType{ExamENT, ExamEGE, ExamSAT, ExamACT}
	case ApplicationMaster:
		return []ExamType{ExamCT}
	}
	return nil
}

func (t ApplicationType) ParseEducationType(s string) (EducationType, error) {
	for _, e := range t.EducationTypes() {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: educationType %q for %s", ErrUnknownValue, s, t)
}

func (t ApplicationType) ParseExamType(s string) (ExamType, error) {
	for _, e := range t.ExamTypes() {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: examType %q for %s", ErrUnknownValue, s, t)
}
