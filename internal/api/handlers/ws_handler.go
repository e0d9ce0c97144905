package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/unistep/internal/notify"
	"github.com/yoockh/unistep/internal/services"
	"github.com/yoockh/unistep/internal/wizard"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// wsFrame is one message on the notification socket. The first frame is the
// wizard snapshot; every later one is a notification as published.
type wsFrame struct {
	Type         string           `json:"type"`
	Wizard       *wizard.Snapshot `json:"wizard,omitempty"`
	Notification json.RawMessage  `json:"notification,omitempty"`
}

// WSHandler streams a wizard's notifications to the browser.
type WSHandler struct {
	wizards  services.WizardService
	redis    *redis.Client
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(wizards services.WizardService, rdb *redis.Client, log *logrus.Logger, allowedOrigins []string) *WSHandler {
	if log == nil {
		log = logrus.New()
	}
	return &WSHandler{
		wizards:  wizards,
		redis:    rdb,
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
	}
}

// originChecker allows any origin when the list is empty.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool { return set[r.Header.Get("Origin")] }
}

func (h *WSHandler) WizardWS(c *gin.Context) {
	wizardID := c.Param("id")
	snap, err := h.wizards.Get(c.Request.Context(), wizardID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// subscribe before the snapshot goes out so nothing falls in between
	sub := h.redis.Subscribe(ctx, notify.Channel(wizardID))
	defer sub.Close()

	log := h.log.WithField("wizard_id", wizardID)
	log.Debug("notification stream opened")
	defer log.Debug("notification stream closed")

	if err := writeFrame(conn, wsFrame{Type: "snapshot", Wizard: &snap}); err != nil {
		return
	}

	closed := make(chan struct{})
	go drainReads(conn, closed)

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	msgs := sub.Channel()
	for {
		var err error
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			err = conn.WriteMessage(websocket.PingMessage, nil)
		case m, ok := <-msgs:
			if !ok {
				return
			}
			err = writeFrame(conn, wsFrame{Type: "notification", Notification: json.RawMessage(m.Payload)})
		}
		if err != nil {
			log.WithError(err).Debug("notification write failed")
			return
		}
	}
}

// drainReads discards client frames and keeps the pong deadline fresh. Only
// the handler goroutine writes to conn.
func drainReads(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, f wsFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(f)
}
