package services

import (
	"context"
	"errors"

	"github.com/yoockh/unistep/internal/models"
	mongorepo "github.com/yoockh/unistep/internal/repositories/mongo"
	"github.com/yoockh/unistep/internal/session"
	"github.com/yoockh/unistep/internal/utils"
)

// tenantOf loads the university the session belongs to.
func tenantOf(ctx context.Context, universities mongorepo.UniversityRepository, sess *session.Context, op string) (*models.University, error) {
	if sess == nil || sess.UserID() == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "not logged in", nil)
	}
	u, err := universities.GetByID(ctx, sess.UserID())
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, "university not found for session", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load university", err)
	}
	return u, nil
}
