package handlers

import (
	"net/http"

	"water_monitor/internal/models"
	"water_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// SetPumpModeRequest is the body of POST /pump/mode.
type SetPumpModeRequest struct {
	// Allowed: auto, manual
	Mode models.PumpMode `json:"mode" binding:"required" example:"manual"`
}

// PumpControlRequest is the body of POST /pump/control.
type PumpControlRequest struct {
	Active *bool `json:"active" binding:"required" example:"true"`
}

// pumpResponse is the shared body for pump writes.
func pumpResponse(status string, out service.PumpOutcome) gin.H {
	resp := gin.H{
		"status":       status,
		"state":        out.State,
		"transitioned": out.Transitioned,
	}
	if out.Log != nil {
		resp["log"] = out.Log
	}
	return resp
}

// @Summary      Pump state
// @Tags         pump
// @Produce      json
// @Success      200  {object}  models.PumpState
// @Router       /api/v1/pump [get]
// @Security     BearerAuth
func (h *Handler) getPump(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.PumpStatus())
}

// @Summary      Set pump mode
// @Description  Switching to auto re-evaluates the latest level and may start or stop the pump.
// @Tags         pump
// @Accept       json
// @Produce      json
// @Param        body  body      SetPumpModeRequest  true  "Mode payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/pump/mode [post]
// @Security     BearerAuth
func (h *Handler) setPumpMode(c *gin.Context) {
	var req SetPumpModeRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	out, err := h.services.SetPumpMode(c.Request.Context(), req.Mode)
	if err != nil {
		h.respondError(c, "pump_set_mode_failed", err, "mode", req.Mode)
		return
	}
	h.log.Infow("pump_mode_requested", "operator_id", operatorID(c), "mode", req.Mode, "changed", out.ModeChanged)
	c.JSON(http.StatusOK, pumpResponse(statusModeSet, out))
}

// @Summary      Start or stop the pump
// @Description  Only accepted in manual mode. Repeating the current state is a no-op.
// @Tags         pump
// @Accept       json
// @Produce      json
// @Param        body  body      PumpControlRequest  true  "Control payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/pump/control [post]
// @Security     BearerAuth
func (h *Handler) controlPump(c *gin.Context) {
	var req PumpControlRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	out, err := h.services.CommandPump(c.Request.Context(), *req.Active)
	if err != nil {
		h.respondError(c, "pump_command_failed", err, "active", *req.Active)
		return
	}
	if out.Err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to record pump transition", "pump_command_persist_failed", out.Err)
		return
	}
	status := "stopped"
	if out.State.IsActive {
		status = "running"
	}
	h.log.Infow("pump_command_requested", "operator_id", operatorID(c), "active", *req.Active, "transitioned", out.Transitioned)
	c.JSON(http.StatusOK, pumpResponse(status, out))
}

// @Summary      List pump runs
// @Tags         pump
// @Produce      json
// @Param        from   query     string  false  "Start of range"
// @Param        to     query     string  false  "End of range"
// @Param        limit  query     int     false  "Maximum rows"
// @Success      200    {object}  map[string]interface{}  "count, logs"
// @Failure      400    {object}  map[string]string
// @Router       /api/v1/pump/logs [get]
// @Security     BearerAuth
func (h *Handler) listPumpLogs(c *gin.Context) {
	r, msg := parseTimeRange(c.Query("from"), c.Query("to"), c.Query("limit"))
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	logs, err := h.services.ListPumpLogs(c.Request.Context(), service.HistoryFilter{From: r.From, To: r.To, Limit: r.Limit})
	if err != nil {
		h.respondError(c, "pump_logs_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(logs),
		"logs":  logs,
	})
}
