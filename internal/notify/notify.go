// Package notify carries the short, non-blocking messages a wizard surfaces to
// the applicant (the "toasts" of the web client).
package notify

import (
	"context"
	"time"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

type Notification struct {
	Level Level     `json:"level"`
	Title string    `json:"title"`
	Field string    `json:"field,omitempty"`
	At    time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, wizardID string, n Notification) error
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, string, Notification) error { return nil }

// Channel is the pub/sub channel notifications for a wizard are published on.
func Channel(wizardID string) string {
	return "wizard:" + wizardID + ":notifications"
}
