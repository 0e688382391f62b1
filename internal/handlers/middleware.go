package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID       = "userId"
	tokenQueryParam = "token"

	errMissingAuth  = "missing Authorization header"
	errAuthFormat   = "invalid Authorization header format"
	errInvalidToken = "invalid or expired token"
)

// bearerToken extracts the token from the Authorization header. Browsers
// cannot set headers on a WebSocket handshake, so upgrades may pass it as
// ?token= instead.
func bearerToken(c *gin.Context) (token, errMsg string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if isUpgrade(c.Request) {
			if t := c.Query(tokenQueryParam); t != "" {
				return t, ""
			}
		}
		return "", errMissingAuth
	}
	t, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(t) == "" {
		return "", errAuthFormat
	}
	return t, ""
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func (h *Handler) userIdMiddleware(c *gin.Context) {
	token, msg := bearerToken(c)
	if msg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}

	userId, err := h.services.ParseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken})
		return
	}

	c.Set(ctxUserID, userId)
	c.Next()
}
