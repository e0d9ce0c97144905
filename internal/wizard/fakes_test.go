package wizard

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yoockh/unistep/internal/logger"
	"github.com/yoockh/unistep/internal/models"
	"github.com/yoockh/unistep/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

type fakeApplications struct {
	mu       sync.Mutex
	err      error
	calls    int
	inserted []models.Application

	// when set, Insert signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func (f *fakeApplications) Insert(_ context.Context, app *models.Application) error {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	app.ID = primitive.NewObjectID()
	f.inserted = append(f.inserted, *app)
	return nil
}

func (f *fakeApplications) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDirectory struct {
	mu      sync.Mutex
	byLogin map[string][]models.Department
	err     error
	calls   int
}

func (f *fakeDirectory) Lookup(_ context.Context, login string) ([]models.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Department(nil), f.byLogin[login]...), nil
}

func (f *fakeDirectory) set(login string, depts []models.Department) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byLogin[login] = depts
}

type fakeObjects struct {
	mu   sync.Mutex
	fail map[models.FileField]bool
	gate chan struct{}
	puts []string
}

func (f *fakeObjects) Upload(_ context.Context, name, _ string, _ int64, r io.Reader) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	_, _ = io.ReadAll(r)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, name)
	for field := range f.fail {
		if strings.Contains(name, "/"+string(field)+"/") {
			return "", errors.New("object store unavailable")
		}
	}
	return name, nil
}

func (f *fakeObjects) DownloadURL(_ context.Context, handle string) (string, error) {
	return "https://files.test/" + handle, nil
}

func (f *fakeObjects) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, _ string, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

// forField returns the titles of notifications about one file field.
func (r *recordingNotifier) forField(field models.FileField) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notes {
		if n.Field == string(field) {
			out = append(out, n.Title)
		}
	}
	return out
}

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Title)
	}
	return out
}

type harness struct {
	w       *Wizard
	apps    *fakeApplications
	dir     *fakeDirectory
	objects *fakeObjects
	notes   *recordingNotifier
	uploads []UploadResult
	submits []models.Application
	mu      sync.Mutex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		apps: &fakeApplications{},
		dir: &fakeDirectory{byLogin: map[string][]models.Department{
			"kaznu":  {{ID: "1", Name: "Computer Science"}, {ID: "2", Name: "Mathematics"}},
			"narxoz": {{ID: "9", Name: "Economics"}},
		}},
		objects: &fakeObjects{fail: map[models.FileField]bool{}},
		notes:   &recordingNotifier{},
	}
	depts, _ := h.dir.Lookup(context.Background(), "kaznu")
	w, err := New(Config{
		University:   "kaznu",
		Departments:  depts,
		Applications: h.apps,
		Directory:    h.dir,
		Objects:      h.objects,
		Notifier:     h.notes,
		Logger:       logger.Discard(),
		Now:          func() time.Time { return testNow },
		Reference:    func() string { return "APP-123456" },
		OnUpload: func(_ context.Context, u UploadResult) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.uploads = append(h.uploads, u)
		},
		OnSubmit: func(_ context.Context, app models.Application) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.submits = append(h.submits, app)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.w = w
	return h
}

func ptr[T any](v T) *T { return &v }

func (h *harness) set(t *testing.T, p Patch) Snapshot {
	t.Helper()
	snap, err := h.w.SetFields(p)
	if err != nil {
		t.Fatalf("SetFields: %v", err)
	}
	return snap
}

func (h *harness) next(t *testing.T) Snapshot {
	t.Helper()
	snap, err := h.w.Next(context.Background())
	if err != nil {
		t.Fatalf("Next from %s: %v", h.w.Snapshot().State, err)
	}
	return snap
}

func (h *harness) upload(t *testing.T, field models.FileField) {
	t.Helper()
	_, err := h.w.StartUpload(context.Background(), field, FileInput{
		Name:        string(field) + ".pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("StartUpload(%s): %v", field, err)
	}
}

func personalPatch() Patch {
	return Patch{
		LastName:     ptr("Abenov"),
		FirstName:    ptr("Nurlan"),
		Sex:          ptr("Male"),
		Citizenship:  ptr("kz"),
		Phone:        ptr("+77001234567"),
		Email:        ptr("nurlan@example.com"),
		Address:      ptr("Almaty, Abay ave 1"),
		DepartmentID: ptr("1"),
	}
}

// advance fills every step up to target with valid bachelor data.
func (h *harness) advance(t *testing.T, target Step) {
	t.Helper()
	if h.w.Snapshot().Step == ChoosingType {
		if _, err := h.w.ChooseType("bachelor"); err != nil {
			t.Fatalf("ChooseType: %v", err)
		}
	}
	for h.w.Snapshot().Step < target {
		switch h.w.Snapshot().Step {
		case StepPersonal:
			h.set(t, personalPatch())
		case StepEducation:
			h.set(t, Patch{EducationType: ptr("attestat"), EducationInstitution: ptr("School 42"), GraduationYear: ptr("2026")})
		case StepExam:
			h.set(t, Patch{ExamType: ptr("ent"), ExamScore: ptr(110.0)})
		case StepDocuments:
			for _, f := range []models.FileField{models.FilePassport, models.FileMedicalCertificate, models.FilePhoto, models.FileVaccination} {
				h.upload(t, f)
			}
			h.w.Wait()
		case StepAgreement:
			h.set(t, Patch{AgreementAccepted: ptr(true)})
		}
		h.next(t)
	}
}
