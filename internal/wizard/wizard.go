// Package wizard is the five-step application form controller. A Wizard
// accumulates one applicant's data, gates every forward transition on the
// step's required fields, uploads file fields as they arrive and commits a
// single Application on the last step.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/unistep/internal/models"
	"github.com/yoockh/unistep/internal/notify"
	"github.com/yoockh/unistep/internal/storage"
	"github.com/yoockh/unistep/internal/utils"
)

const (
	MsgIncomplete     = "Please complete all required fields on this step."
	MsgDepartmentGone = "The selected department is no longer available."
	MsgUploaded       = "File uploaded successfully"
	MsgUploadFailed   = "An error occurred while uploading the file"
	// MsgUploadDiscarded is sent for a file that finished after submission began.
	MsgUploadDiscarded = "The file arrived after the application was sent and was not attached"
	MsgSubmitted       = "Application submitted successfully!"
	MsgSubmitFailed    = "Could not submit the application. Please try again."
)

var (
	ErrWrongState  = errors.New("not allowed in the current state")
	ErrSubmitting  = errors.New("submission in progress")
	ErrIncomplete  = errors.New("required fields are incomplete")
	ErrNotEditable = errors.New("field is not editable on this step")
	ErrSubmit      = errors.New("submission failed")
)

const maxNotes = 20

type ApplicationInserter interface {
	// Insert stores app and sets app.ID.
	Insert(ctx context.Context, app *models.Application) error
}

type DepartmentLookup interface {
	Lookup(ctx context.Context, login string) ([]models.Department, error)
}

// UploadResult describes a stored file, passed to Config.OnUpload.
type UploadResult struct {
	WizardID    string
	University  string
	Field       models.FileField
	ObjectName  string
	URL         string
	FileName    string
	ContentType string
	Size        int64
	At          time.Time
	// Discarded is set when the upload resolved after submission.
	Discarded bool
	Meta      map[string]any
}

type Config struct {
	University   string // tenant login
	Departments  []models.Department
	Applications ApplicationInserter
	Directory    DepartmentLookup
	Objects      storage.ObjectStore
	Notifier     notify.Notifier
	Logger       *logrus.Logger

	Now       func() time.Time
	Reference func() string

	OnUpload func(ctx context.Context, u UploadResult)
	OnSubmit func(ctx context.Context, app models.Application)
}

type Wizard struct {
	id         string
	university string

	applications ApplicationInserter
	directory    DepartmentLookup
	objects      storage.ObjectStore
	notifier     notify.Notifier
	log          *logrus.Logger
	now          func() time.Time
	newReference func() string
	onUpload     func(ctx context.Context, u UploadResult)
	onSubmit     func(ctx context.Context, app models.Application)

	mu          sync.Mutex
	step        Step
	app         models.Application
	departments []models.Department
	uploading   map[models.FileField]int
	notes       []notify.Notification
	reference   string
	submitting  bool

	tasks sync.WaitGroup
}

// New mounts a wizard for the tenant. CreatedAt is stamped here, once.
func New(cfg Config) (*Wizard, error) {
	if cfg.Applications == nil || cfg.Directory == nil || cfg.Objects == nil {
		return nil, errors.New("wizard: Applications, Directory and Objects must be set")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Reference == nil {
		cfg.Reference = NewReference
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	w := &Wizard{
		id:           uuid.NewString(),
		university:   cfg.University,
		applications: cfg.Applications,
		directory:    cfg.Directory,
		objects:      cfg.Objects,
		notifier:     cfg.Notifier,
		log:          cfg.Logger,
		now:          cfg.Now,
		newReference: cfg.Reference,
		onUpload:     cfg.OnUpload,
		onSubmit:     cfg.OnSubmit,
		step:         ChoosingType,
		departments:  append([]models.Department(nil), cfg.Departments...),
		uploading:    map[models.FileField]int{},
	}
	w.app.CreatedAt = cfg.Now().Format(models.CreatedAtLayout)
	return w, nil
}

// NewReference returns the human readable number shown after submission. It is
// not stored and not guaranteed unique.
func NewReference() string {
	return fmt.Sprintf("APP-%d", 100000+rand.Intn(900000))
}

func (w *Wizard) ID() string { return w.id }

func (w *Wizard) University() string { return w.university }

// ChooseType fixes the program tier and opens step 1. It can happen only once.
func (w *Wizard) ChooseType(typ string) (Snapshot, error) {
	const op = "Wizard.ChooseType"

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != ChoosingType {
		return w.snapshotLocked(), utils.E(utils.CodeConflict, op, "program tier is already chosen", ErrWrongState)
	}
	t, err := models.ParseApplicationType(typ)
	if err != nil {
		return w.snapshotLocked(), utils.E(utils.CodeInvalidArgument, op, "applicationType must be bachelor or master", err)
	}
	w.app.ApplicationType = t
	w.step = StepPersonal
	return w.snapshotLocked(), nil
}

// SetFields applies p when every touched field is editable on the current
// step and holds a legal value. Otherwise nothing changes.
func (w *Wizard) SetFields(p Patch) (Snapshot, error) {
	const op = "Wizard.SetFields"

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.formStateLocked(op); err != nil {
		return w.snapshotLocked(), err
	}

	changes, err := p.changes(w.app.ApplicationType, w.departments, w.now())
	if err != nil {
		return w.snapshotLocked(), utils.E(utils.CodeInvalidArgument, op, err.Error(), err)
	}
	for _, c := range changes {
		if !isEditable(w.step, c.field) {
			return w.snapshotLocked(), utils.E(utils.CodeInvalidArgument, op,
				fmt.Sprintf("%s is not editable on %s", c.field, w.step), ErrNotEditable)
		}
	}
	for _, c := range changes {
		c.apply(&w.app)
	}
	return w.snapshotLocked(), nil
}

// Next runs the current step's validation and moves forward. On the last step
// it submits instead: exactly one insert per successful completion.
func (w *Wizard) Next(ctx context.Context) (Snapshot, error) {
	const op = "Wizard.Next"

	w.mu.Lock()
	if err := w.formStateLocked(op); err != nil {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, err
	}

	if missing := Missing(w.step, &w.app); len(missing) > 0 {
		step := w.step
		w.mu.Unlock()

		w.log.WithFields(logrus.Fields{"wizard_id": w.id, "step": step.String(), "missing": missing}).Debug("step incomplete")
		w.notify(ctx, notify.LevelError, MsgIncomplete, "")
		return w.Snapshot(), utils.E(utils.CodeIncomplete, op, MsgIncomplete, ErrIncomplete)
	}

	if w.step < LastStep {
		w.step++
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, nil
	}

	w.submitting = true
	draft := w.app
	w.mu.Unlock()

	return w.submit(ctx, draft)
}

func (w *Wizard) submit(ctx context.Context, draft models.Application) (Snapshot, error) {
	const op = "Wizard.Submit"
	log := w.log.WithFields(logrus.Fields{"wizard_id": w.id, "university": w.university})

	// the department must still exist for this tenant at submission time
	depts, err := w.directory.Lookup(ctx, w.university)
	if err != nil {
		log.WithError(err).Error("department lookup before submit failed")
		return w.failSubmit(ctx, op, err)
	}
	if !models.HasDepartment(depts, draft.DepartmentID) {
		w.mu.Lock()
		w.submitting = false
		w.departments = depts
		w.mu.Unlock()

		w.notify(ctx, notify.LevelError, MsgDepartmentGone, "")
		return w.Snapshot(), utils.E(utils.CodeIncomplete, op, MsgDepartmentGone, ErrIncomplete)
	}

	submittedAt := w.now().UTC()
	draft.University = w.university
	draft.SubmittedAt = &submittedAt
	draft.WizardID = w.id

	if err := w.applications.Insert(ctx, &draft); err != nil {
		log.WithError(err).Error("application insert failed")
		return w.failSubmit(ctx, op, err)
	}

	w.mu.Lock()
	w.submitting = false
	w.step = Submitted
	w.app = draft
	w.departments = depts
	w.reference = w.newReference()
	snap := w.snapshotLocked()
	w.mu.Unlock()

	log.WithField("application_id", draft.ID.Hex()).Info("application submitted")
	w.notify(ctx, notify.LevelInfo, MsgSubmitted, "")
	if w.onSubmit != nil {
		w.onSubmit(ctx, draft)
	}
	return snap, nil
}

func (w *Wizard) failSubmit(ctx context.Context, op string, err error) (Snapshot, error) {
	w.mu.Lock()
	w.submitting = false
	w.mu.Unlock()

	w.notify(ctx, notify.LevelError, MsgSubmitFailed, "")
	return w.Snapshot(), utils.E(utils.CodeUnavailable, op, MsgSubmitFailed, errors.Join(ErrSubmit, err))
}

// Back moves one step back without validation. Step 1 cannot go back to the
// tier choice.
func (w *Wizard) Back() (Snapshot, error) {
	const op = "Wizard.Back"

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.formStateLocked(op); err != nil {
		return w.snapshotLocked(), err
	}
	if w.step == StepPersonal {
		return w.snapshotLocked(), utils.E(utils.CodeConflict, op, "cannot go back from the first step", ErrWrongState)
	}
	w.step--
	return w.snapshotLocked(), nil
}

// Busy reports whether an upload or the submission is still running.
func (w *Wizard) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting || len(w.uploading) > 0
}

func (w *Wizard) formStateLocked(op string) error {
	if w.submitting {
		return utils.E(utils.CodeConflict, op, "submission in progress", ErrSubmitting)
	}
	if !w.step.isForm() {
		return utils.E(utils.CodeConflict, op, "not allowed when "+w.step.String(), ErrWrongState)
	}
	return nil
}

// notify records n and forwards it. Must be called without w.mu held.
func (w *Wizard) notify(ctx context.Context, level notify.Level, title string, field models.FileField) {
	n := notify.Notification{Level: level, Title: title, Field: string(field), At: w.now().UTC()}

	w.mu.Lock()
	w.notes = append(w.notes, n)
	if len(w.notes) > maxNotes {
		w.notes = w.notes[len(w.notes)-maxNotes:]
	}
	w.mu.Unlock()

	if err := w.notifier.Notify(ctx, w.id, n); err != nil {
		w.log.WithError(err).WithField("wizard_id", w.id).Warn("notify failed")
	}
}
