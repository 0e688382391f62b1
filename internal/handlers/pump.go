package handlers

import (
	"errors"
	"net/http"

	"irrigation_controller/internal/link"
	"irrigation_controller/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errGetStatus       = "failed to load status"
	errNoTelemetry     = "no telemetry received yet"
	errTooManyCommands = "too many pump commands, slow down"
	errCommandFailed   = "pump command failed"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// commandErrorStatus maps link and validation failures to HTTP codes.
func commandErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, link.ErrCommandTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, link.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, link.ErrCommandRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Controller status
// @Description  Live view while the controller reports, otherwise the last persisted snapshot (source=snapshot).
// @Tags         pump
// @Produce      json
// @Success      200  {object}  service.Status
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	st, err := h.services.Monitoring.GetStatus(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "status_load_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Latest telemetry record
// @Tags         pump
// @Produce      json
// @Success      200  {object}  telemetry.Record
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/telemetry [get]
// @Security     BearerAuth
func (h *Handler) getTelemetry(c *gin.Context) {
	st, err := h.services.Monitoring.GetStatus(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "telemetry_load_failed", err)
		return
	}
	if st.LastRecord == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errNoTelemetry})
		return
	}
	c.Header("X-Telemetry-Source", st.Source)
	c.JSON(http.StatusOK, st.LastRecord)
}

// @Summary      Send a pump command
// @Description  on and off start a manual override, auto returns to automatic control, status only queries.
// @Tags         pump
// @Produce      json
// @Param        action  path  string  true  "Pump action"  Enums(on,off,auto,status)
// @Success      200  {object}  service.CommandResult
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Failure      504  {object}  map[string]string
// @Router       /api/v1/pump/{action} [post]
// @Security     BearerAuth
func (h *Handler) commandPump(c *gin.Context) {
	action := c.Param("action")
	res, err := h.services.Pump.Command(c.Request.Context(), action)
	if err != nil {
		code := commandErrorStatus(err)
		msg := errCommandFailed
		label := action
		if code == http.StatusBadRequest {
			msg = err.Error()
			label = "invalid"
		}
		h.metrics.PumpCommand(label, code)
		if h.log != nil {
			h.log.Warnw("pump_command_failed", "action", action, "err", err, "response", res.Response)
		}
		body := gin.H{"error": msg}
		if res.Response != "" {
			body["response"] = res.Response
		}
		c.JSON(code, body)
		return
	}
	h.metrics.PumpCommand(action, http.StatusOK)
	c.JSON(http.StatusOK, res)
}
