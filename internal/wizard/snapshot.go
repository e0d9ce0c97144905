package wizard

import (
	"sort"

	"github.com/yoockh/unistep/internal/models"
	"github.com/yoockh/unistep/internal/notify"
)

// Snapshot is a copy of the wizard state, safe to hand out.
type Snapshot struct {
	ID            string                `json:"id"`
	University    string                `json:"university"`
	Step          Step                  `json:"step"`
	State         string                `json:"state"`
	Application   models.Application    `json:"application"`
	Uploading     []models.FileField    `json:"uploading"`
	Departments   []models.Department   `json:"departments"`
	Options       Options               `json:"options"`
	Notifications []notify.Notification `json:"notifications"`
	Reference     string                `json:"reference,omitempty"`
}

// Options lists what the current step may legally hold, for rendering.
type Options struct {
	Sexes           []models.Sex           `json:"sexes"`
	Citizenships    []models.Citizenship   `json:"citizenships"`
	EducationTypes  []models.EducationType `json:"educationTypes"`
	ExamTypes       []models.ExamType      `json:"examTypes"`
	GraduationYears []string               `json:"graduationYears"`
	Editable        []string               `json:"editable"`
	Required        []string               `json:"required"`
	// advisory only, not enforced
	AcceptedFiles string `json:"acceptedFiles"`
	MaxFileSizeMB int    `json:"maxFileSizeMb"`
}

func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Wizard) snapshotLocked() Snapshot {
	app := w.app
	if app.ExamScore != nil {
		v := *app.ExamScore
		app.ExamScore = &v
	}

	uploading := make([]models.FileField, 0, len(w.uploading))
	for f := range w.uploading {
		uploading = append(uploading, f)
	}
	sort.Slice(uploading, func(i, j int) bool { return uploading[i] < uploading[j] })

	tier := w.app.ApplicationType
	return Snapshot{
		ID:            w.id,
		University:    w.university,
		Step:          w.step,
		State:         w.step.String(),
		Application:   app,
		Uploading:     uploading,
		Departments:   append([]models.Department(nil), w.departments...),
		Notifications: append([]notify.Notification(nil), w.notes...),
		Reference:     w.reference,
		Options: Options{
			Sexes:           []models.Sex{models.SexMale, models.SexFemale},
			Citizenships:    models.Citizenships(),
			EducationTypes:  tier.EducationTypes(),
			ExamTypes:       tier.ExamTypes(),
			GraduationYears: RecentYears(w.now()),
			Editable:        append([]string(nil), editable[w.step]...),
			Required:        RequiredFields(w.step),
			AcceptedFiles:   ".pdf,.jpg,.jpeg,.png",
			MaxFileSizeMB:   5,
		},
	}
}
