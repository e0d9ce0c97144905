package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/unistep/internal/utils"
	"github.com/yoockh/unistep/internal/wizard"
)

type stubWizards struct {
	snap    wizard.Snapshot
	err     error
	lastID  string
	patch   wizard.Patch
	field   string
	upload  wizard.FileInput
	typ     string
	mounted string
}

func (s *stubWizards) Mount(_ context.Context, login string) (wizard.Snapshot, error) {
	s.mounted = login
	return s.snap, s.err
}
func (s *stubWizards) Get(_ context.Context, id string) (wizard.Snapshot, error) {
	s.lastID = id
	return s.snap, s.err
}
func (s *stubWizards) ChooseType(_ context.Context, id, typ string) (wizard.Snapshot, error) {
	s.lastID, s.typ = id, typ
	return s.snap, s.err
}
func (s *stubWizards) SetFields(_ context.Context, id string, p wizard.Patch) (wizard.Snapshot, error) {
	s.lastID, s.patch = id, p
	return s.snap, s.err
}
func (s *stubWizards) Upload(_ context.Context, id, field string, in wizard.FileInput) (wizard.Snapshot, error) {
	s.lastID, s.field, s.upload = id, field, in
	return s.snap, s.err
}
func (s *stubWizards) Next(_ context.Context, id string) (wizard.Snapshot, error) {
	s.lastID = id
	return s.snap, s.err
}
func (s *stubWizards) Back(_ context.Context, id string) (wizard.Snapshot, error) {
	s.lastID = id
	return s.snap, s.err
}
func (s *stubWizards) Abandon(_ context.Context, id string) error {
	s.lastID = id
	return s.err
}

func wizardRouter(svc *stubWizards, maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWizardHandler(svc, maxBytes)
	r.POST("/apply/:login/wizards", h.Mount)
	r.PATCH("/wizards/:id/fields", h.SetFields)
	r.POST("/wizards/:id/files/:field", h.Upload)
	r.POST("/wizards/:id/next", h.Next)
	r.DELETE("/wizards/:id", h.Abandon)
	return r
}

func TestMountReturnsCreatedSnapshot(t *testing.T) {
	svc := &stubWizards{snap: wizard.Snapshot{ID: "w1", State: "choosing_type"}}
	rec := httptest.NewRecorder()
	wizardRouter(svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/apply/kaznu/wizards", nil))

	if rec.Code != http.StatusCreated || svc.mounted != "kaznu" {
		t.Fatalf("status=%d mounted=%q", rec.Code, svc.mounted)
	}
	var got wizard.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got.ID != "w1" {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestSetFieldsDecodesPatch(t *testing.T) {
	svc := &stubWizards{snap: wizard.Snapshot{ID: "w1"}}
	body := bytes.NewBufferString(`{"lastName":"Abenov","examScore":87.5,"departmentId":"3"}`)
	req := httptest.NewRequest(http.MethodPatch, "/wizards/w1/fields", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	wizardRouter(svc, 0).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.patch.LastName == nil || *svc.patch.LastName != "Abenov" || svc.patch.ExamScore == nil || *svc.patch.ExamScore != 87.5 {
		t.Fatalf("patch = %+v", svc.patch)
	}
	if svc.patch.FirstName != nil {
		t.Fatalf("absent field decoded as set")
	}
}

func TestNextIncompleteCarriesSnapshot(t *testing.T) {
	svc := &stubWizards{
		snap: wizard.Snapshot{ID: "w1", State: "step_1"},
		err:  utils.E(utils.CodeIncomplete, "Wizard.Next", wizard.MsgIncomplete, wizard.ErrIncomplete),
	}
	rec := httptest.NewRecorder()
	wizardRouter(svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wizards/w1/next", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var got WizardError
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Code != utils.CodeIncomplete || got.Message != wizard.MsgIncomplete || got.Wizard == nil || got.Wizard.State != "step_1" {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestUnknownWizardIsNotFound(t *testing.T) {
	svc := &stubWizards{err: utils.E(utils.CodeNotFound, "WizardService.Next", "wizard not found", utils.ErrNotFound)}
	rec := httptest.NewRecorder()
	wizardRouter(svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wizards/nope/next", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var got WizardError
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Wizard != nil {
		t.Fatalf("empty snapshot rendered: %s", rec.Body.String())
	}
}

func multipartFile(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()
	return buf, mw.FormDataContentType()
}

func TestUploadReadsFileAndAccepts(t *testing.T) {
	svc := &stubWizards{snap: wizard.Snapshot{ID: "w1"}}
	body, ct := multipartFile(t, "passport.pdf", []byte("%PDF-1.4 test"))
	req := httptest.NewRequest(http.MethodPost, "/wizards/w1/files/passportFile", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	wizardRouter(svc, 0).ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if svc.field != "passportFile" || svc.upload.Name != "passport.pdf" || string(svc.upload.Data) != "%PDF-1.4 test" {
		t.Fatalf("upload = %q %q %q", svc.field, svc.upload.Name, svc.upload.Data)
	}
	if svc.upload.ContentType != "application/pdf" {
		t.Fatalf("content type = %q", svc.upload.ContentType)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc := &stubWizards{snap: wizard.Snapshot{ID: "w1"}}
	body, ct := multipartFile(t, "big.pdf", bytes.Repeat([]byte("a"), 64))
	req := httptest.NewRequest(http.MethodPost, "/wizards/w1/files/photoFile", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	wizardRouter(svc, 32).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest || svc.field != "" {
		t.Fatalf("status=%d field=%q", rec.Code, svc.field)
	}
}

func TestUploadWithoutFile(t *testing.T) {
	svc := &stubWizards{}
	rec := httptest.NewRecorder()
	wizardRouter(svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wizards/w1/files/photoFile", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
