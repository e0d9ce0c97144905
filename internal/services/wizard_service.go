package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/unistep/internal/docinfo"
	"github.com/yoockh/unistep/internal/models"
	"github.com/yoockh/unistep/internal/notify"
	pgrepo "github.com/yoockh/unistep/internal/repositories/postgres"
	"github.com/yoockh/unistep/internal/storage"
	"github.com/yoockh/unistep/internal/utils"
	"github.com/yoockh/unistep/internal/wizard"
	"gorm.io/datatypes"
)

// DefaultWizardIdleTTL is how long an untouched wizard stays mounted.
const DefaultWizardIdleTTL = 2 * time.Hour

type SubmissionPublisher interface {
	PublishSubmitted(ctx context.Context, ev models.SubmissionEvent) error
}

type WizardService interface {
	// Mount starts a wizard for the tenant and resolves its departments once.
	Mount(ctx context.Context, login string) (wizard.Snapshot, error)
	Get(ctx context.Context, id string) (wizard.Snapshot, error)
	ChooseType(ctx context.Context, id, typ string) (wizard.Snapshot, error)
	SetFields(ctx context.Context, id string, p wizard.Patch) (wizard.Snapshot, error)
	Upload(ctx context.Context, id, field string, in wizard.FileInput) (wizard.Snapshot, error)
	Next(ctx context.Context, id string) (wizard.Snapshot, error)
	Back(ctx context.Context, id string) (wizard.Snapshot, error)
	Abandon(ctx context.Context, id string) error
}

var _ WizardService = (*WizardRegistry)(nil)

type WizardDeps struct {
	Applications wizard.ApplicationInserter
	Departments  DepartmentService
	Objects      storage.ObjectStore
	Notifier     notify.Notifier
	Uploads      pgrepo.UploadRepository // optional
	Publisher    SubmissionPublisher     // optional
	Logger       *logrus.Logger
	IdleTTL      time.Duration
	Now          func() time.Time
}

type mounted struct {
	w        *wizard.Wizard
	lastSeen time.Time
}

// WizardRegistry keeps live wizards in memory. A process restart drops them.
type WizardRegistry struct {
	deps WizardDeps
	log  *logrus.Logger

	mu      sync.Mutex
	wizards map[string]*mounted
}

func NewWizardService(deps WizardDeps) *WizardRegistry {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = DefaultWizardIdleTTL
	}
	return &WizardRegistry{deps: deps, log: deps.Logger, wizards: map[string]*mounted{}}
}

func (s *WizardRegistry) Mount(ctx context.Context, login string) (wizard.Snapshot, error) {
	const op = "WizardService.Mount"

	if login == "" {
		return wizard.Snapshot{}, utils.E(utils.CodeInvalidArgument, op, "university login is required", nil)
	}

	log := s.log.WithField("university", login)
	depts, err := s.deps.Departments.Lookup(ctx, login)
	if err != nil {
		// the form still renders, step 1 just cannot be completed
		log.WithError(err).Error("department lookup failed")
		depts = nil
	}

	w, err := wizard.New(wizard.Config{
		University:   login,
		Departments:  depts,
		Applications: s.deps.Applications,
		Directory:    s.deps.Departments,
		Objects:      s.deps.Objects,
		Notifier:     s.deps.Notifier,
		Logger:       s.log,
		Now:          s.deps.Now,
		OnUpload:     s.recordUpload,
		OnSubmit:     s.publishSubmitted,
	})
	if err != nil {
		return wizard.Snapshot{}, utils.E(utils.CodeInternal, op, "failed to mount wizard", err)
	}

	s.mu.Lock()
	s.wizards[w.ID()] = &mounted{w: w, lastSeen: s.deps.Now()}
	s.mu.Unlock()

	log.WithFields(logrus.Fields{"wizard_id": w.ID(), "departments": len(depts)}).Info("wizard mounted")
	return w.Snapshot(), nil
}

func (s *WizardRegistry) Get(_ context.Context, id string) (wizard.Snapshot, error) {
	w, err := s.lookup("WizardService.Get", id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	return w.Snapshot(), nil
}

func (s *WizardRegistry) ChooseType(_ context.Context, id, typ string) (wizard.Snapshot, error) {
	w, err := s.lookup("WizardService.ChooseType", id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	return w.ChooseType(typ)
}

func (s *WizardRegistry) SetFields(_ context.Context, id string, p wizard.Patch) (wizard.Snapshot, error) {
	w, err := s.lookup("WizardService.SetFields", id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	return w.SetFields(p)
}

func (s *WizardRegistry) Upload(ctx context.Context, id, field string, in wizard.FileInput) (wizard.Snapshot, error) {
	const op = "WizardService.Upload"

	w, err := s.lookup(op, id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	f, err := models.ParseFileField(field)
	if err != nil {
		return w.Snapshot(), utils.E(utils.CodeInvalidArgument, op, "unknown file field", err)
	}
	if len(in.Data) == 0 {
		return w.Snapshot(), utils.E(utils.CodeInvalidArgument, op, "file is empty", nil)
	}
	in.Meta = docinfo.Inspect(in.ContentType, in.Data)
	return w.StartUpload(ctx, f, in)
}

func (s *WizardRegistry) Next(ctx context.Context, id string) (wizard.Snapshot, error) {
	w, err := s.lookup("WizardService.Next", id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	return w.Next(ctx)
}

func (s *WizardRegistry) Back(_ context.Context, id string) (wizard.Snapshot, error) {
	w, err := s.lookup("WizardService.Back", id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	return w.Back()
}

// Abandon drops the wizard. Files it already stored stay in the object store.
func (s *WizardRegistry) Abandon(_ context.Context, id string) error {
	const op = "WizardService.Abandon"

	s.mu.Lock()
	_, ok := s.wizards[id]
	delete(s.wizards, id)
	s.mu.Unlock()

	if !ok {
		return utils.E(utils.CodeNotFound, op, "wizard not found", utils.ErrNotFound)
	}
	s.log.WithField("wizard_id", id).Info("wizard abandoned")
	return nil
}

// Sweep evicts wizards idle for longer than the TTL. Wizards with an upload
// or a submission in flight are kept.
func (s *WizardRegistry) Sweep() int {
	now := s.deps.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, m := range s.wizards {
		if now.Sub(m.lastSeen) < s.deps.IdleTTL || m.w.Busy() {
			continue
		}
		delete(s.wizards, id)
		n++
	}
	if n > 0 {
		s.log.WithField("evicted", n).Info("idle wizards evicted")
	}
	return n
}

// Run sweeps on every tick until ctx is done.
func (s *WizardRegistry) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

// Len reports how many wizards are mounted.
func (s *WizardRegistry) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wizards)
}

func (s *WizardRegistry) lookup(op, id string) (*wizard.Wizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.wizards[id]
	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "wizard not found", utils.ErrNotFound)
	}
	m.lastSeen = s.deps.Now()
	return m.w, nil
}

func (s *WizardRegistry) recordUpload(ctx context.Context, u wizard.UploadResult) {
	if s.deps.Uploads == nil {
		return
	}
	fields := map[string]any{"discarded": u.Discarded}
	for k, v := range u.Meta {
		fields[k] = v
	}
	meta, _ := json.Marshal(fields)
	rec := &models.UploadRecord{
		ID:         uuid.NewString(),
		WizardID:   u.WizardID,
		University: u.University,
		Field:      string(u.Field),
		ObjectName: u.ObjectName,
		URL:        u.URL,
		FileName:   u.FileName,
		FileSize:   u.Size,
		MimeType:   u.ContentType,
		Metadata:   datatypes.JSON(meta),
		UploadedAt: u.At.UTC(),
	}
	if err := s.deps.Uploads.Insert(ctx, rec); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"wizard_id": u.WizardID, "object": u.ObjectName}).Warn("upload ledger insert failed")
	}
}

func (s *WizardRegistry) publishSubmitted(ctx context.Context, app models.Application) {
	if s.deps.Publisher == nil {
		return
	}
	ev := models.SubmissionEvent{
		ApplicationID: app.ID.Hex(),
		WizardID:      app.WizardID,
		University:    app.University,
	}
	if app.SubmittedAt != nil {
		ev.SubmittedAt = *app.SubmittedAt
	}
	if err := s.deps.Publisher.PublishSubmitted(ctx, ev); err != nil {
		s.log.WithError(err).WithField("application_id", ev.ApplicationID).Warn("publish submission event failed")
	}
}
