package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/unistep/internal/services"
	"github.com/yoockh/unistep/internal/utils"
	"github.com/yoockh/unistep/internal/wizard"
)

type WizardHandler struct {
	svc      services.WizardService
	maxBytes int64
}

func NewWizardHandler(svc services.WizardService, maxUploadBytes int64) *WizardHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &WizardHandler{svc: svc, maxBytes: maxUploadBytes}
}

// WizardError carries the wizard state alongside the error, so the form can
// re-render with the notification it just raised.
type WizardError struct {
	APIError
	Wizard *wizard.Snapshot `json:"wizard,omitempty"`
}

type ChooseTypeRequest struct {
	ApplicationType string `json:"applicationType" binding:"required"`
}

func (h *WizardHandler) Mount(c *gin.Context) {
	snap, err := h.svc.Mount(c.Request.Context(), c.Param("login"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (h *WizardHandler) Get(c *gin.Context) {
	snap, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, snap, err)
}

func (h *WizardHandler) Abandon(c *gin.Context) {
	if err := h.svc.Abandon(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WizardHandler) ChooseType(c *gin.Context) {
	var req ChooseTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WizardHandler.ChooseType", "applicationType is required", err))
		return
	}
	snap, err := h.svc.ChooseType(c.Request.Context(), c.Param("id"), req.ApplicationType)
	h.respond(c, http.StatusOK, snap, err)
}

func (h *WizardHandler) SetFields(c *gin.Context) {
	var req wizard.Patch
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WizardHandler.SetFields", "invalid request body", err))
		return
	}
	snap, err := h.svc.SetFields(c.Request.Context(), c.Param("id"), req)
	h.respond(c, http.StatusOK, snap, err)
}

func (h *WizardHandler) Upload(c *gin.Context) {
	up, err := readUpload(c, "WizardHandler.Upload", h.maxBytes)
	if err != nil {
		writeError(c, err)
		return
	}
	snap, err := h.svc.Upload(c.Request.Context(), c.Param("id"), c.Param("field"), wizard.FileInput{
		Name:        up.Name,
		ContentType: up.ContentType,
		Data:        up.Data,
	})
	h.respond(c, http.StatusAccepted, snap, err)
}

func (h *WizardHandler) Next(c *gin.Context) {
	snap, err := h.svc.Next(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, snap, err)
}

func (h *WizardHandler) Back(c *gin.Context) {
	snap, err := h.svc.Back(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, snap, err)
}

func (h *WizardHandler) respond(c *gin.Context, status int, snap wizard.Snapshot, err error) {
	if err == nil {
		c.JSON(status, snap)
		return
	}
	var ae *utils.AppError
	if snap.ID == "" || !errors.As(err, &ae) {
		writeError(c, err)
		return
	}
	c.JSON(utils.HTTPStatus(err), WizardError{
		APIError: APIError{Code: ae.Code, Message: ae.Message},
		Wizard:   &snap,
	})
}
