package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/unistep/internal/api/middleware"
	"github.com/yoockh/unistep/internal/session"
	"github.com/yoockh/unistep/internal/utils"
)

// DefaultMaxUploadBytes caps a single multipart file. The 5 MB shown to
// applicants is advisory; this is the hard transport limit.
const DefaultMaxUploadBytes = 10 << 20

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

func requireSession(c *gin.Context) (*session.Context, bool) {
	if v, ok := c.Get(middleware.KeySession); ok {
		if s, ok := v.(*session.Context); ok && s != nil {
			return s, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return nil, false
}

type upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// readUpload reads the multipart field "file" fully. The request's temp files
// are gone once the handler returns, so background work gets the bytes.
func readUpload(c *gin.Context, op string, maxBytes int64) (*upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'file'", err)
	}
	if fh.Size <= 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file is empty", nil)
	}
	if fh.Size > maxBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file too large", nil)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to open upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to read upload", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file too large", nil)
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return &upload{Name: fh.Filename, ContentType: ct, Data: data}, nil
}
