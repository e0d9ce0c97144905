package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/unistep/internal/services"
)

type DashboardHandler struct {
	svc services.DashboardService
}

func NewDashboardHandler(svc services.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) ListApplications(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	apps, err := h.svc.ListApplications(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(apps), "applications": apps})
}

func (h *DashboardHandler) GetApplication(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	app, err := h.svc.GetApplication(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	st, err := h.svc.Stats(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
