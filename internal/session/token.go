package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Tokens signs and verifies the bearer tokens that point at a stored session.
// The token only names the session; Store decides whether it is still live.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(c *Context) (string, error) {
	if len(t.secret) == 0 {
		return "", errors.New("token secret is not set")
	}
	now := t.now()
	rc := jwt.RegisteredClaims{
		Subject:  c.UserID(),
		Issuer:   t.issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if t.ttl > 0 {
		rc.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{RegisteredClaims: rc, SessionID: c.SessionID()})
	return tok.SignedString(t.secret)
}

// Parse returns the session id and user id carried by raw.
func (t *Tokens) Parse(raw string) (sessionID, userID string, err error) {
	if len(t.secret) == 0 {
		return "", "", errors.New("token secret is not set")
	}
	c := &claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	tok, err := jwt.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil || tok == nil || !tok.Valid {
		return "", "", ErrInvalidToken
	}
	if c.SessionID == "" || c.Subject == "" {
		return "", "", ErrInvalidToken
	}
	return c.SessionID, c.Subject, nil
}
