package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"irrigation_controller/internal/link"
	"irrigation_controller/internal/logger"
	"irrigation_controller/internal/models"
	"irrigation_controller/internal/service"
	"irrigation_controller/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialWS(t *testing.T, s *service.Service) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s, nil, RateLimit{})
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestWebSocket_StatusThenTelemetryStream(t *testing.T) {
	mon := &mockMonitoring{
		status: service.Status{Connected: true, Source: service.SourceLive, Mode: models.ModeManual, Faults: []string{}},
		lines:  make(chan telemetry.Line),
	}
	conn := dialWS(t, &service.Service{Monitoring: mon})

	env := readEnvelope(t, conn)
	if env.Type != wsTypeStatus {
		t.Fatalf("first envelope = %+v", env)
	}
	var st service.Status
	if err := json.Unmarshal(env.Data, &st); err != nil || st.Mode != models.ModeManual {
		t.Fatalf("status = %+v (%v)", st, err)
	}

	// unclassified noise is dropped, the record after it is forwarded
	mon.lines <- telemetry.Classify("boot: rst 0x1")
	mon.lines <- telemetry.Classify(`{"temperature":25,"humidity":60,"soil_moisture":45,"soil_moisture_raw":3382,"pump_command":"PUMP_OFF"}`)

	env = readEnvelope(t, conn)
	if env.Type != wsTypeTelemetry {
		t.Fatalf("expected telemetry, got %+v", env)
	}
	var rec telemetry.Record
	if err := json.Unmarshal(env.Data, &rec); err != nil || rec.SoilMoisture != 45 {
		t.Fatalf("record = %+v (%v)", rec, err)
	}

	mon.lines <- telemetry.Classify("INFO: " + telemetry.ExpiryNotice(5*time.Minute))
	env = readEnvelope(t, conn)
	var text string
	_ = json.Unmarshal(env.Data, &text)
	if env.Type != wsTypeDiagnostic || text != "INFO: Returning to automatic mode after 5 minute timeout" {
		t.Fatalf("diagnostic = %+v", env)
	}

	close(mon.lines)
	env = readEnvelope(t, conn)
	if env.Type != wsTypeStatus || env.Error == "" {
		t.Fatalf("expected link-closed notice, got %+v", env)
	}
}

type emptySnapshots struct{}

func (emptySnapshots) Save(context.Context, models.ControllerSnapshot) error { return nil }

func (emptySnapshots) Load(context.Context) (models.ControllerSnapshot, error) {
	return models.ControllerSnapshot{}, nil
}

func TestWebSocket_ControllerStreamEndReachesClient(t *testing.T) {
	fromCtl, toSup := io.Pipe()
	ln := link.New(struct {
		io.Reader
		io.Writer
	}{fromCtl, io.Discard}, time.Second, time.Second, logger.Get(logger.ErrorLevel))
	go func() { _ = ln.Run(context.Background()) }()

	conn := dialWS(t, &service.Service{Monitoring: service.NewMonitoringService(ln, emptySnapshots{})})
	if env := readEnvelope(t, conn); env.Type != wsTypeStatus || env.Error != "" {
		t.Fatalf("first envelope = %+v", env)
	}

	_ = toSup.Close()
	env := readEnvelope(t, conn)
	if env.Type != wsTypeStatus || env.Error != "controller link closed" {
		t.Fatalf("expected link-closed notice, got %+v", env)
	}
}

func TestWebSocket_InitialStatusError_Closes(t *testing.T) {
	conn := dialWS(t, &service.Service{Monitoring: &mockMonitoring{err: errors.New("boom")}})

	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected read error (closed), got message: %s", string(raw))
	}
}

func TestEnvelopeFor(t *testing.T) {
	cases := []struct {
		line string
		typ  string
		fwd  bool
	}{
		{"ACK: Pump is ON, Mode: AUTO", wsTypeResponse, true},
		{"ERROR: Unknown command: FOO", wsTypeResponse, true},
		{"WARNING: DHT sensor not connected, using demo data", wsTypeDiagnostic, true},
		{"{not json", "", false},
	}
	for _, tc := range cases {
		env, ok := envelopeFor(telemetry.Classify(tc.line))
		if ok != tc.fwd || env.Type != tc.typ {
			t.Fatalf("%q -> %+v %v", tc.line, env, ok)
		}
	}
}

func TestWebSocket_RequiresToken(t *testing.T) {
	mon := &mockMonitoring{status: service.Status{Source: service.SourceNone, Faults: []string{}}}
	s := &service.Service{Authorization: &mockAuth{parseID: 5}, Monitoring: mon}
	srv := httptest.NewServer(newTestRouter(s))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}

	if _, resp, err := dialer.Dial(u.String(), nil); err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, err=%v resp=%v", err, resp)
	}

	u.RawQuery = url.Values{"token": {"valid"}}.Encode()
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial with token: %v", err)
	}
	defer conn.Close()
	if env := readEnvelope(t, conn); env.Type != wsTypeStatus {
		t.Fatalf("first envelope = %+v", env)
	}
}
