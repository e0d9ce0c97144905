// Package session replaces the browser-global login record with an explicit
// context object. A Context is built once per request from the Session Store
// and handed to whatever needs the tenant identity.
package session

import (
	"context"
	"time"
)

// Record is the persisted shape: {userId, loginDate}.
type Record struct {
	UserID    string `json:"userId"`
	LoginDate string `json:"loginDate"`
}

type Context struct {
	id     string
	record Record
}

func NewContext(sessionID string, rec Record) *Context {
	return &Context{id: sessionID, record: rec}
}

func (c *Context) SessionID() string { return c.id }

// UserID is the id of the logged-in university document.
func (c *Context) UserID() string { return c.record.UserID }

func (c *Context) LoginDate() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, c.record.LoginDate)
	return t
}

type Store interface {
	Load(ctx context.Context, sessionID string) (*Context, error)
	Save(ctx context.Context, userID string) (*Context, error)
	Clear(ctx context.Context, sessionID string) error
}
