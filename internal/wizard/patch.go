package wizard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yoockh/unistep/internal/models"
)

// Patch is a partial update of the in-progress application. Nil fields are
// left alone; an empty string clears a field.
type Patch struct {
	LastName    *string `json:"lastName,omitempty"`
	FirstName   *string `json:"firstName,omitempty"`
	MiddleName  *string `json:"middleName,omitempty"`
	Sex         *string `json:"sex,omitempty"`
	Citizenship *string `json:"citizenship,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	Address     *string `json:"address,omitempty"`

	DepartmentID *string `json:"departmentId,omitempty"`

	EducationType        *string `json:"educationType,omitempty"`
	EducationInstitution *string `json:"educationInstitution,omitempty"`
	GraduationYear       *string `json:"graduationYear,omitempty"`

	ExamType  *string  `json:"examType,omitempty"`
	ExamScore *float64 `json:"examScore,omitempty"`

	MotivationLetter  *string `json:"motivationLetter,omitempty"`
	AgreementAccepted *bool   `json:"agreementAccepted,omitempty"`
}

type change struct {
	field string
	apply func(a *models.Application)
}

// changes validates every set field of p against the tier, the resolved
// departments and the clock, and returns the edits to apply. Nothing is
// applied unless every field is valid.
func (p Patch) changes(tier models.ApplicationType, depts []models.Department, now time.Time) ([]change, error) {
	var out []change

	str := func(field string, v *string, set func(a *models.Application, s string)) {
		if v == nil {
			return
		}
		s := strings.TrimSpace(*v)
		out = append(out, change{field: field, apply: func(a *models.Application) { set(a, s) }})
	}

	str("lastName", p.LastName, func(a *models.Application, s string) { a.LastName = s })
	str("firstName", p.FirstName, func(a *models.Application, s string) { a.FirstName = s })
	str("middleName", p.MiddleName, func(a *models.Application, s string) { a.MiddleName = s })
	str("phone", p.Phone, func(a *models.Application, s string) { a.Phone = s })
	str("email", p.Email, func(a *models.Application, s string) { a.Email = s })
	str("address", p.Address, func(a *models.Application, s string) { a.Address = s })
	str("educationInstitution", p.EducationInstitution, func(a *models.Application, s string) { a.EducationInstitution = s })
	str("motivationLetter", p.MotivationLetter, func(a *models.Application, s string) { a.MotivationLetter = s })

	if v := trimmed(p.Sex); v != nil {
		var sex models.Sex
		if *v != "" {
			var err error
			if sex, err = models.ParseSex(*v); err != nil {
				return nil, err
			}
		}
		out = append(out, change{field: "sex", apply: func(a *models.Application) { a.Sex = sex }})
	}
	if v := trimmed(p.Citizenship); v != nil {
		var c models.Citizenship
		if *v != "" {
			var err error
			if c, err = models.ParseCitizenship(*v); err != nil {
				return nil, err
			}
		}
		out = append(out, change{field: "citizenship", apply: func(a *models.Application) { a.Citizenship = c }})
	}
	if v := trimmed(p.DepartmentID); v != nil {
		id := *v
		if id != "" && !models.HasDepartment(depts, id) {
			return nil, fmt.Errorf("%w: departmentId %q", models.ErrUnknownValue, id)
		}
		out = append(out, change{field: "departmentId", apply: func(a *models.Application) { a.DepartmentID = id }})
	}
	if v := trimmed(p.EducationType); v != nil {
		var e models.EducationType
		if *v != "" {
			var err error
			if e, err = tier.ParseEducationType(*v); err != nil {
				return nil, err
			}
		}
		out = append(out, change{field: "educationType", apply: func(a *models.Application) { a.EducationType = e }})
	}
	if v := trimmed(p.GraduationYear); v != nil {
		y := *v
		if y != "" && !isRecentYear(y, now) {
			return nil, fmt.Errorf("%w: graduationYear %q", models.ErrUnknownValue, y)
		}
		out = append(out, change{field: "graduationYear", apply: func(a *models.Application) { a.GraduationYear = y }})
	}
	if v := trimmed(p.ExamType); v != nil {
		var e models.ExamType
		if *v != "" {
			var err error
			if e, err = tier.ParseExamType(*v); err != nil {
				return nil, err
			}
		}
		out = append(out, change{field: "examType", apply: func(a *models.Application) { a.ExamType = e }})
	}
	if p.ExamScore != nil {
		score := *p.ExamScore
		if score < 0 {
			return nil, fmt.Errorf("%w: examScore %v", models.ErrUnknownValue, score)
		}
		out = append(out, change{field: "examScore", apply: func(a *models.Application) { a.ExamScore = &score }})
	}
	if p.AgreementAccepted != nil {
		ok := *p.AgreementAccepted
		out = append(out, change{field: "agreementAccepted", apply: func(a *models.Application) { a.AgreementAccepted = ok }})
	}
	return out, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	return &s
}

// RecentYears lists the selectable graduation years, newest first.
func RecentYears(now time.Time) []string {
	out := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		out = append(out, strconv.Itoa(now.Year()-i))
	}
	return out
}

func isRecentYear(y string, now time.Time) bool {
	for _, r := range RecentYears(now) {
		if r == y {
			return true
		}
	}
	return false
}
