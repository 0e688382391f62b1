package handlers

import (
	"net/http"
	"time"

	"irrigation_controller/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
	wsBuffer   = 32
)

// Stream message types.
const (
	wsTypeStatus     = "status"
	wsTypeTelemetry  = "telemetry"
	wsTypeDiagnostic = "diagnostic"
	wsTypeResponse   = "response"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // dashboard is served from another origin
}

// envelopeFor maps a controller line to a stream message. Unclassified
// lines are not forwarded.
func envelopeFor(l telemetry.Line) (wsEnvelope, bool) {
	switch l.Kind {
	case telemetry.KindRecord:
		return wsEnvelope{Type: wsTypeTelemetry, Data: l.Record}, true
	case telemetry.KindDiagnostic:
		return wsEnvelope{Type: wsTypeDiagnostic, Data: l.Text}, true
	case telemetry.KindAck, telemetry.KindError:
		return wsEnvelope{Type: wsTypeResponse, Data: l.Text}, true
	default:
		return wsEnvelope{}, false
	}
}

func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	// Subscribe before the initial status so no line falls in between.
	lines, unsubscribe := h.services.Monitoring.Subscribe(wsBuffer)
	defer unsubscribe()

	st, err := h.services.Monitoring.GetStatus(c.Request.Context())
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_get_status_failed", "err", err)
		}
		return
	}
	if err := h.writeEnvelope(conn, wsEnvelope{Type: wsTypeStatus, Data: st}); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case l, ok := <-lines:
			if !ok {
				_ = h.writeEnvelope(conn, wsEnvelope{Type: wsTypeStatus, Error: "controller link closed"})
				return
			}
			env, forward := envelopeFor(l)
			if !forward {
				continue
			}
			if err := h.writeEnvelope(conn, env); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

func (h *Handler) writeEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
