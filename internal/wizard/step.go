package wizard

import (
	"strconv"

	"github.com/yoockh/unistep/internal/models"
)

type Step int

const (
	ChoosingType Step = iota
	StepPersonal
	StepEducation
	StepExam
	StepDocuments
	StepAgreement
	Submitted
)

// LastStep is the step whose forward transition submits.
const LastStep = StepAgreement

func (s Step) String() string {
	switch {
	case s == ChoosingType:
		return "choosing_type"
	case s == Submitted:
		return "submitted"
	case s.isForm():
		return "step_" + strconv.Itoa(int(s))
	}
	return "unknown"
}

func (s Step) isForm() bool { return s >= StepPersonal && s <= LastStep }

// editable lists the fields each step exposes for editing.
var editable = map[Step][]string{
	StepPersonal: {
		"lastName", "firstName", "middleName", "sex", "citizenship",
		"phone", "email", "address", "departmentId",
	},
	StepEducation: {"educationType", "educationInstitution", "graduationYear"},
	StepExam:      {"examType", "examScore"},
	StepDocuments: {
		string(models.FilePassport), string(models.FileMedicalCertificate),
		string(models.FilePhoto), string(models.FileVaccination),
		string(models.FileEntCertificate), string(models.FileTranscript),
		string(models.FileRecommendationLetter), string(models.FilePortfolio),
		string(models.FileEnglishCertificate), string(models.FileDiplomaAwards),
	},
	StepAgreement: {string(models.FileMotivationLetter), "agreementAccepted"},
}

func isEditable(s Step, field string) bool {
	for _, f := range editable[s] {
		if f == field {
			return true
		}
	}
	return false
}

type requirement struct {
	field  string
	filled func(a *models.Application) bool
}

func text(field string, get func(a *models.Application) string) requirement {
	return requirement{field: field, filled: func(a *models.Application) bool { return get(a) != "" }}
}

func file(f models.FileField) requirement {
	return requirement{field: string(f), filled: func(a *models.Application) bool { return a.File(f) != "" }}
}

// requirements is the validation table evaluated on a forward transition.
var requirements = map[Step][]requirement{
	StepPersonal: {
		text("lastName", func(a *models.Application) string { return a.LastName }),
		text("firstName", func(a *models.Application) string { return a.FirstName }),
		text("citizenship", func(a *models.Application) string { return string(a.Citizenship) }),
		text("phone", func(a *models.Application) string { return a.Phone }),
		text("email", func(a *models.Application) string { return a.Email }),
		text("address", func(a *models.Application) string { return a.Address }),
		text("departmentId", func(a *models.Application) string { return a.DepartmentID }),
	},
	StepEducation: {
		text("educationType", func(a *models.Application) string { return string(a.EducationType) }),
		text("educationInstitution", func(a *models.Application) string { return a.EducationInstitution }),
		text("graduationYear", func(a *models.Application) string { return a.GraduationYear }),
	},
	StepExam: {
		text("examType", func(a *models.Application) string { return string(a.ExamType) }),
		// a zero score counts as not entered
		{field: "examScore", filled: func(a *models.Application) bool { return a.ExamScore != nil && *a.ExamScore != 0 }},
	},
	StepDocuments: {
		file(models.FilePassport),
		file(models.FileMedicalCertificate),
		file(models.FilePhoto),
		file(models.FileVaccination),
	},
	StepAgreement: {
		{field: "agreementAccepted", filled: func(a *models.Application) bool { return a.AgreementAccepted }},
	},
}

// RequiredFields returns the names that must be filled to leave step s.
func RequiredFields(s Step) []string {
	out := make([]string, 0, len(requirements[s]))
	for _, r := range requirements[s] {
		out = append(out, r.field)
	}
	return out
}

// Missing returns the required fields of step s that a leaves empty.
func Missing(s Step, a *models.Application) []string {
	var out []string
	for _, r := range requirements[s] {
		if !r.filled(a) {
			out = append(out, r.field)
		}
	}
	return out
}
