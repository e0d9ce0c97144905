package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/unistep/internal/session"
	"github.com/yoockh/unistep/internal/utils"
)

// Context keys set by SessionAuth.
const (
	KeySession = "session"
	KeyUserID  = "user_id"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

type TokenParser interface {
	Parse(raw string) (sessionID, userID string, err error)
}

// SessionAuth accepts a bearer token only while the session it names is still
// stored and belongs to the token's subject.
func SessionAuth(tokens TokenParser, store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if raw == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		sid, uid, err := tokens.Parse(raw)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		sess, err := store.Load(c.Request.Context(), sid)
		if err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				abortUnauthorized(c, "session expired")
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, apiError{
				Code:    utils.CodeUnavailable,
				Message: "session store unavailable",
			})
			return
		}
		if sess.UserID() != uid {
			abortUnauthorized(c, "invalid token subject")
			return
		}

		c.Set(KeySession, sess)
		c.Set(KeyUserID, uid)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{Code: utils.CodeUnauthorized, Message: msg})
}
