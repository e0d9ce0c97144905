package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/unistep/internal/logger"
	"github.com/yoockh/unistep/internal/utils"
)

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws/wizards/w1", nil)
		r.Header.Set("Origin", origin)
		return r
	}

	open := originChecker(nil)
	if !open(req("https://anything.example")) {
		t.Fatal("empty allow list should accept any origin")
	}

	check := originChecker([]string{"https://kaznu.unistep.kz"})
	if !check(req("https://kaznu.unistep.kz")) {
		t.Fatal("listed origin rejected")
	}
	if check(req("https://evil.example")) {
		t.Fatal("unlisted origin accepted")
	}
}

func TestWizardWSUnknownWizard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubWizards{err: utils.E(utils.CodeNotFound, "WizardService.Get", "wizard not found", utils.ErrNotFound)}
	h := NewWSHandler(svc, nil, logger.Discard(), nil)

	r := gin.New()
	r.GET("/ws/wizards/:id", h.WizardWS)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/wizards/gone", nil))

	if rec.Code != http.StatusNotFound || svc.lastID != "gone" {
		t.Fatalf("status=%d id=%q", rec.Code, svc.lastID)
	}
}
