package handlers

import (
	"net/http"
	"strconv"

	"water_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary      List alerts
// @Tags         alerts
// @Produce      json
// @Param        from          query     string  false  "Start of range"
// @Param        to            query     string  false  "End of range"
// @Param        type          query     string  false  "Alert type"  Enums(warning,danger)
// @Param        acknowledged  query     bool    false  "Filter by acknowledgement"
// @Param        limit         query     int     false  "Maximum rows"
// @Success      200           {object}  map[string]interface{}  "count, alerts"
// @Failure      400           {object}  map[string]string
// @Router       /api/v1/alerts [get]
// @Security     BearerAuth
func (h *Handler) listAlerts(c *gin.Context) {
	r, msg := parseTimeRange(c.Query("from"), c.Query("to"), c.Query("limit"))
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	q := service.AlertQuery{From: r.From, To: r.To, Type: c.Query("type"), Limit: r.Limit}
	if s := c.Query("acknowledged"); s != "" {
		ack, err := strconv.ParseBool(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'acknowledged'; use true or false"})
			return
		}
		q.Acknowledged = &ack
	}

	alerts, err := h.services.ListAlerts(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, "alerts_list_failed", err, "type", q.Type)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

// @Summary      Acknowledge alert
// @Tags         alerts
// @Produce      json
// @Param        id   path      string  true  "Alert ID"
// @Success      200  {object}  map[string]interface{}  "status, alert"
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/alerts/{id}/acknowledge [post]
// @Security     BearerAuth
func (h *Handler) acknowledgeAlert(c *gin.Context) {
	id := c.Param("id")
	a, err := h.services.AcknowledgeAlert(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "alert_acknowledge_failed", err, "alert_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusAcknowledged, "alert": a})
}
