package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yoockh/unistep/internal/logger"
	"github.com/yoockh/unistep/internal/models"
	"github.com/yoockh/unistep/internal/utils"
	"github.com/yoockh/unistep/internal/wizard"
)

type wizardFixture struct {
	svc       *WizardRegistry
	unis      *fakeUniversities
	apps      *fakeApplicationRepo
	objects   *fakeObjects
	ledger    *fakeLedger
	publisher *fakePublisher
	now       time.Time
}

func newWizardFixture(t *testing.T) *wizardFixture {
	t.Helper()
	f := &wizardFixture{
		unis:      &fakeUniversities{},
		apps:      &fakeApplicationRepo{},
		objects:   &fakeObjects{},
		ledger:    &fakeLedger{},
		publisher: &fakePublisher{},
		now:       time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
	}
	f.unis.add(models.University{Login: "kaznu", Departments: []models.Department{{ID: "1", Name: "CS"}}})
	f.svc = NewWizardService(WizardDeps{
		Applications: f.apps,
		Departments:  NewDepartmentService(f.unis),
		Objects:      f.objects,
		Uploads:      f.ledger,
		Publisher:    f.publisher,
		Logger:       logger.Discard(),
		IdleTTL:      time.Hour,
		Now:          func() time.Time { return f.now },
	})
	return f
}

func (f *wizardFixture) must(t *testing.T) func(wizard.Snapshot, error) wizard.Snapshot {
	return func(snap wizard.Snapshot, err error) wizard.Snapshot {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return snap
	}
}

func TestMountResolvesDepartments(t *testing.T) {
	f := newWizardFixture(t)
	snap := f.must(t)(f.svc.Mount(context.Background(), "kaznu"))
	if snap.State != "choosing_type" || len(snap.Departments) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Application.CreatedAt != "2026-10-19 09:30:00" {
		t.Fatalf("createdAt = %q", snap.Application.CreatedAt)
	}
}

func TestMountDegradesOnLookupFailure(t *testing.T) {
	f := newWizardFixture(t)
	f.unis.findErr = errors.New("mongo timeout")

	snap := f.must(t)(f.svc.Mount(context.Background(), "kaznu"))
	if len(snap.Departments) != 0 {
		t.Fatalf("departments = %+v", snap.Departments)
	}
}

func TestUnknownWizard(t *testing.T) {
	f := newWizardFixture(t)
	if _, err := f.svc.Get(context.Background(), "missing"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("Get: %v", err)
	}
	if err := f.svc.Abandon(context.Background(), "missing"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("Abandon: %v", err)
	}
}

func TestUploadValidatesFieldName(t *testing.T) {
	f := newWizardFixture(t)
	snap := f.must(t)(f.svc.Mount(context.Background(), "kaznu"))
	f.must(t)(f.svc.ChooseType(context.Background(), snap.ID, "bachelor"))

	_, err := f.svc.Upload(context.Background(), snap.ID, "selfieFile", wizard.FileInput{Name: "a.png", Data: []byte{1}})
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("unknown field: %v", err)
	}
	_, err = f.svc.Upload(context.Background(), snap.ID, "photoFile", wizard.FileInput{Name: "a.png"})
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("empty file: %v", err)
	}
}

func TestFullSubmissionRecordsLedgerAndPublishes(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	snap := f.must(t)(f.svc.Mount(ctx, "kaznu"))
	id := snap.ID
	f.must(t)(f.svc.ChooseType(ctx, id, "bachelor"))
	f.must(t)(f.svc.SetFields(ctx, id, wizard.Patch{
		LastName: ptr("Abenov"), FirstName: ptr("Nurlan"), Citizenship: ptr("kz"),
		Phone: ptr("+77001234567"), Email: ptr("n@example.com"), Address: ptr("Almaty"),
		DepartmentID: ptr("1"),
	}))
	f.must(t)(f.svc.Next(ctx, id))
	f.must(t)(f.svc.SetFields(ctx, id, wizard.Patch{EducationType: ptr("attestat"), EducationInstitution: ptr("School 42"), GraduationYear: ptr("2026")}))
	f.must(t)(f.svc.Next(ctx, id))
	f.must(t)(f.svc.SetFields(ctx, id, wizard.Patch{ExamType: ptr("ent"), ExamScore: ptr(120.0)}))
	f.must(t)(f.svc.Next(ctx, id))

	for _, field := range []string{"passportFile", "medicalCertificateFile", "photoFile", "vaccinationFile"} {
		f.must(t)(f.svc.Upload(ctx, id, field, wizard.FileInput{Name: field + ".pdf", ContentType: "application/pdf", Data: []byte("%PDF")}))
	}
	waitIdle(t, f.svc, id)

	f.must(t)(f.svc.Next(ctx, id))
	f.must(t)(f.svc.SetFields(ctx, id, wizard.Patch{AgreementAccepted: ptr(true)}))
	snap = f.must(t)(f.svc.Next(ctx, id))

	if snap.State != "submitted" || len(f.apps.apps) != 1 {
		t.Fatalf("state=%s stored=%d", snap.State, len(f.apps.apps))
	}
	// ledger rows are written after the upload lands
	waitFor(t, func() bool { return len(f.ledger.all()) == 4 })
	for _, r := range f.ledger.all() {
		if r.WizardID != id || r.University != "kaznu" || r.ApplicationID != nil {
			t.Fatalf("ledger row = %+v", r)
		}
		if string(r.Metadata) != `{"discarded":false,"readable":false}` {
			t.Fatalf("metadata = %s", r.Metadata)
		}
	}
	if len(f.publisher.events) != 1 {
		t.Fatalf("events = %d", len(f.publisher.events))
	}
	ev := f.publisher.events[0]
	if ev.ApplicationID != f.apps.apps[0].ID.Hex() || ev.WizardID != id || ev.University != "kaznu" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestSweepEvictsIdleButNotBusyWizards(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	idle := f.must(t)(f.svc.Mount(ctx, "kaznu")).ID
	busy := f.must(t)(f.svc.Mount(ctx, "kaznu")).ID

	// walk the busy wizard to the documents step and leave an upload hanging
	f.must(t)(f.svc.ChooseType(ctx, busy, "bachelor"))
	f.must(t)(f.svc.SetFields(ctx, busy, wizard.Patch{
		LastName: ptr("A"), FirstName: ptr("B"), Citizenship: ptr("kz"),
		Phone: ptr("1"), Email: ptr("e"), Address: ptr("x"), DepartmentID: ptr("1"),
	}))
	f.must(t)(f.svc.Next(ctx, busy))
	f.must(t)(f.svc.SetFields(ctx, busy, wizard.Patch{EducationType: ptr("diploma"), EducationInstitution: ptr("C"), GraduationYear: ptr("2020")}))
	f.must(t)(f.svc.Next(ctx, busy))
	f.must(t)(f.svc.SetFields(ctx, busy, wizard.Patch{ExamType: ptr("sat"), ExamScore: ptr(1400.0)}))
	f.must(t)(f.svc.Next(ctx, busy))
	f.objects.gate = make(chan struct{})
	f.must(t)(f.svc.Upload(ctx, busy, "photoFile", wizard.FileInput{Name: "me.png", Data: []byte{1}}))

	f.now = f.now.Add(2 * time.Hour)
	if n := f.svc.Sweep(); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if _, err := f.svc.Get(ctx, idle); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("idle wizard kept: %v", err)
	}
	if _, err := f.svc.Get(ctx, busy); err != nil {
		t.Fatalf("busy wizard evicted: %v", err)
	}

	close(f.objects.gate)
	waitIdle(t, f.svc, busy)
}

func TestAbandonDropsWizard(t *testing.T) {
	f := newWizardFixture(t)
	id := f.must(t)(f.svc.Mount(context.Background(), "kaznu")).ID
	if err := f.svc.Abandon(context.Background(), id); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if f.svc.Len() != 0 {
		t.Fatalf("registry still holds %d wizards", f.svc.Len())
	}
}

func waitIdle(t *testing.T, svc *WizardRegistry, id string) {
	t.Helper()
	waitFor(t, func() bool {
		snap, err := svc.Get(context.Background(), id)
		return err == nil && len(snap.Uploading) == 0
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
