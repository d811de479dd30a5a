package handlers

import (
	"net/http"

	"water_monitor/internal/models"

	"github.com/gin-gonic/gin"
)

// @Summary      Threshold settings
// @Tags         settings
// @Produce      json
// @Success      200  {object}  models.ThresholdSettings
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/settings/thresholds [get]
// @Security     BearerAuth
func (h *Handler) getThresholds(c *gin.Context) {
	t, err := h.services.Thresholds(c.Request.Context())
	if err != nil {
		h.respondError(c, "thresholds_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary      Update threshold settings
// @Description  Requires min < max, warning < danger, deactivation < activation, all levels within [min, max].
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body      models.ThresholdSettings  true  "Thresholds"
// @Success      200   {object}  models.ThresholdSettings
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/settings/thresholds [put]
// @Security     BearerAuth
func (h *Handler) updateThresholds(c *gin.Context) {
	var req models.ThresholdSettings
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	t, err := h.services.UpdateThresholds(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "thresholds_update_failed", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary      Notification settings
// @Tags         settings
// @Produce      json
// @Success      200  {object}  models.NotificationSettings
// @Router       /api/v1/settings/notifications [get]
// @Security     BearerAuth
func (h *Handler) getNotifications(c *gin.Context) {
	n, err := h.services.NotificationSettings(c.Request.Context())
	if err != nil {
		h.respondError(c, "notifications_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// @Summary      Update notification settings
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body      models.NotificationSettings  true  "Notification settings"
// @Success      200   {object}  models.NotificationSettings
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/settings/notifications [put]
// @Security     BearerAuth
func (h *Handler) updateNotifications(c *gin.Context) {
	var req models.NotificationSettings
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	n, err := h.services.UpdateNotificationSettings(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "notifications_update_failed", err)
		return
	}
	c.JSON(http.StatusOK, n)
}
