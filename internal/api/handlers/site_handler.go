package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/unistep/internal/models"
	"github.com/yoockh/unistep/internal/services"
	"github.com/yoockh/unistep/internal/utils"
)

type SiteHandler struct {
	svc      services.SiteService
	maxBytes int64
}

func NewSiteHandler(svc services.SiteService, maxUploadBytes int64) *SiteHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &SiteHandler{svc: svc, maxBytes: maxUploadBytes}
}

func (h *SiteHandler) Public(c *gin.Context) {
	site, err := h.svc.GetPublic(c.Request.Context(), c.Param("login"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, site)
}

func (h *SiteHandler) Get(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	u, err := h.svc.GetOwn(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *SiteHandler) Update(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	var req services.SitePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SiteHandler.Update", "invalid request body", err))
		return
	}

	u, err := h.svc.Update(c.Request.Context(), sess, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *SiteHandler) UploadImage(c *gin.Context) {
	const op = "SiteHandler.UploadImage"

	sess, ok := requireSession(c)
	if !ok {
		return
	}
	up, err := readUpload(c, op, h.maxBytes)
	if err != nil {
		writeError(c, err)
		return
	}

	u, err := h.svc.UploadImage(c.Request.Context(), sess, c.Param("field"), services.ImageInput{
		Name:        up.Name,
		ContentType: up.ContentType,
		Data:        up.Data,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *SiteHandler) AddDepartment(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	var req models.Department
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SiteHandler.AddDepartment", "invalid request body", err))
		return
	}

	u, err := h.svc.AddDepartment(c.Request.Context(), sess, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *SiteHandler) DeleteDepartment(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	u, err := h.svc.DeleteDepartment(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
