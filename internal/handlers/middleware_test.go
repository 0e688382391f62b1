package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"irrigation_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// minimal router wiring only the middleware + a protected endpoint
func newMiddlewareOnlyRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s, nil, RateLimit{})
	r.GET("/secure", h.userIdMiddleware, func(c *gin.Context) {
		uid, _ := c.Get(ctxUserID)
		c.JSON(http.StatusOK, gin.H{"ok": true, "userId": uid})
	})
	return r
}

func TestUserIDMiddleware_Errors(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		target   string
		upgrade  bool
		parseErr error
		errMsg   string
	}{
		{name: "missing header", errMsg: errMissingAuth},
		{name: "invalid scheme", header: "Token abc", errMsg: errAuthFormat},
		{name: "bearer without token", header: "Bearer", errMsg: errAuthFormat},
		{name: "bearer with blank token", header: "Bearer   ", errMsg: errAuthFormat},
		{name: "expired token", header: "Bearer expired", parseErr: errors.New("expired"), errMsg: errInvalidToken},
		{name: "query token without upgrade", target: "/secure?token=abc", errMsg: errMissingAuth},
		{name: "upgrade without any token", upgrade: true, errMsg: errMissingAuth},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &service.Service{Authorization: &mockAuth{parseErr: tc.parseErr}}
			r := newMiddlewareOnlyRouter(s)

			target := tc.target
			if target == "" {
				target = "/secure"
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.upgrade {
				req.Header.Set("Upgrade", "websocket")
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status: got %d, want 401 (body=%s)", w.Code, w.Body.String())
			}
			var out struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Error != tc.errMsg {
				t.Fatalf("error message: got %q, want %q", out.Error, tc.errMsg)
			}
		})
	}
}

func TestUserIDMiddleware_SuccessSetsUserIDAndProceeds(t *testing.T) {
	cases := []struct {
		name    string
		prepare func(*http.Request)
		target  string
	}{
		{
			name:    "header",
			target:  "/secure",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good-token") },
		},
		{
			name:    "websocket query token",
			target:  "/secure?token=good-token",
			prepare: func(r *http.Request) { r.Header.Set("Upgrade", "websocket") },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{parseID: 123}
			r := newMiddlewareOnlyRouter(&service.Service{Authorization: auth})

			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			tc.prepare(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status: got %d; body=%s", w.Code, w.Body.String())
			}
			var resp struct {
				OK     bool `json:"ok"`
				UserID int  `json:"userId"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !resp.OK || resp.UserID != 123 {
				t.Fatalf("unexpected response: %+v", resp)
			}
			if auth.lastParseToken != "good-token" {
				t.Fatalf("ParseToken got %q, want %q", auth.lastParseToken, "good-token")
			}
		})
	}
}
