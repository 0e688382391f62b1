package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"irrigation_controller/internal/models"
	"irrigation_controller/internal/service"
	"irrigation_controller/internal/telemetry"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockPump struct {
	mu      sync.Mutex
	result  service.CommandResult
	err     error
	actions []string
}

func (m *mockPump) Command(_ context.Context, action string) (service.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
	return m.result, m.err
}

func (m *mockPump) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.actions)
}

type mockMonitoring struct {
	status service.Status
	err    error
	lines  chan telemetry.Line
}

func (m *mockMonitoring) GetStatus(context.Context) (service.Status, error) {
	return m.status, m.err
}

func (m *mockMonitoring) Subscribe(int) (<-chan telemetry.Line, func()) {
	if m.lines == nil {
		m.lines = make(chan telemetry.Line)
	}
	return m.lines, func() {}
}

type mockEventLog struct {
	resp     []models.ControllerEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.ControllerEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	return newLimitedRouter(s, RateLimit{})
}

func newLimitedRouter(s *service.Service, rl RateLimit) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewHandler(s, nil, rl).InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request) *http.Request {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
