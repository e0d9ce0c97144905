package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/unistep/internal/models"
	mongorepo "github.com/yoockh/unistep/internal/repositories/mongo"
	"github.com/yoockh/unistep/internal/session"
	"github.com/yoockh/unistep/internal/utils"
)

type TokenIssuer interface {
	Issue(c *session.Context) (string, error)
}

type RegisterInput struct {
	Login          string `json:"login"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	UniversityName string `json:"universityName"`
	ShortName      string `json:"shortName"`
}

type AuthResult struct {
	Token      string             `json:"token"`
	University *models.University `json:"university"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	// Login accepts either the tenant login or its email as identifier.
	Login(ctx context.Context, identifier, password string) (*AuthResult, error)
	Logout(ctx context.Context, sess *session.Context) error
}

type authService struct {
	universities mongorepo.UniversityRepository
	sessions     session.Store
	tokens       TokenIssuer
	log          *logrus.Logger
}

func NewAuthService(universities mongorepo.UniversityRepository, sessions session.Store, tokens TokenIssuer, log *logrus.Logger) AuthService {
	if log == nil {
		log = logrus.New()
	}
	return &authService{universities: universities, sessions: sessions, tokens: tokens, log: log}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	const op = "AuthService.Register"

	login := strings.TrimSpace(in.Login)
	email := strings.TrimSpace(in.Email)

	if login == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "This login already exists or is empty. Please choose another.", nil)
	}
	if strings.ContainsAny(login, "/?#% ") {
		return nil, utils.E(utils.CodeInvalidArgument, op, "login may not contain spaces or URL separators", nil)
	}
	existing, err := s.universities.FindByLogin(ctx, login)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to check login", err)
	}
	if len(existing) > 0 {
		return nil, utils.E(utils.CodeConflict, op, "This login already exists or is empty. Please choose another.", utils.ErrDuplicate)
	}

	if email == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "This email is already registered or empty.", nil)
	}
	if _, err := s.universities.FindByEmail(ctx, email); err == nil {
		return nil, utils.E(utils.CodeConflict, op, "This email is already registered or empty.", utils.ErrDuplicate)
	} else if !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to check email", err)
	}

	if utils.PasswordTooShort(in.Password) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Password must be at least 8 characters long.", nil)
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}

	u := &models.University{
		Login:          login,
		Email:          email,
		PasswordHash:   hash,
		UniversityName: strings.TrimSpace(in.UniversityName),
		ShortName:      strings.TrimSpace(in.ShortName),
		SiteContent:    models.DefaultSiteContent(),
		Departments:    []models.Department{},
	}
	if err := s.universities.Insert(ctx, u); err != nil {
		if errors.Is(err, utils.ErrDuplicate) {
			// lost a race against a concurrent registration
			return nil, utils.E(utils.CodeConflict, op, "login or email already registered", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to create university", err)
	}

	s.log.WithFields(logrus.Fields{"university_id": u.ID.Hex(), "login": u.Login}).Info("university registered")
	return s.openSession(ctx, op, u)
}

func (s *authService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	const op = "AuthService.Login"

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || strings.TrimSpace(password) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "login and password are required", nil)
	}

	u, err := s.findAccount(ctx, identifier)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, "User not found.", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to find account", err)
	}
	if u.PasswordHash == "" || utils.CheckPassword(u.PasswordHash, password) != nil {
		return nil, utils.E(utils.CodeUnauthorized, op, "Incorrect password.", nil)
	}
	return s.openSession(ctx, op, u)
}

func (s *authService) Logout(ctx context.Context, sess *session.Context) error {
	const op = "AuthService.Logout"

	if sess == nil {
		return utils.E(utils.CodeUnauthorized, op, "not logged in", nil)
	}
	if err := s.sessions.Clear(ctx, sess.SessionID()); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to clear session", err)
	}
	return nil
}

// findAccount tries the login first, then the email.
func (s *authService) findAccount(ctx context.Context, identifier string) (*models.University, error) {
	byLogin, err := s.universities.FindByLogin(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if len(byLogin) > 0 {
		return &byLogin[0], nil
	}
	return s.universities.FindByEmail(ctx, identifier)
}

func (s *authService) openSession(ctx context.Context, op string, u *models.University) (*AuthResult, error) {
	sess, err := s.sessions.Save(ctx, u.ID.Hex())
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to open session", err)
	}
	token, err := s.tokens.Issue(sess)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to issue token", err)
	}
	return &AuthResult{Token: token, University: u}, nil
}
