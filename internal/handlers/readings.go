package handlers

import (
	"net/http"

	"water_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary      Push a reading
// @Description  Body carries either "distance" (sensor to surface) or "level". Returns 201 once the reading is stored, even if alert or pump steps failed.
// @Tags         readings
// @Accept       json
// @Produce      json
// @Param        body  body      service.ReadingPayload  true  "Reading"
// @Success      201   {object}  service.IngestResult
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /sensor/readings [post]
// @Router       /api/v1/readings [post]
func (h *Handler) pushReading(c *gin.Context) {
	var payload service.ReadingPayload
	if ok := h.bindJSONOrBadRequest(c, &payload); !ok {
		return
	}
	in, err := payload.ToInput()
	if err != nil {
		h.respondError(c, "reading_invalid", err)
		return
	}
	in.Source = "http"

	res, err := h.services.Ingest.Ingest(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "reading_ingest_failed", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// @Summary      List readings
// @Tags         readings
// @Produce      json
// @Param        from   query     string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"
// @Param        to     query     string  false  "End of range. Date-only treated as end of day."
// @Param        limit  query     int     false  "Maximum rows"
// @Success      200    {object}  map[string]interface{}  "count, readings"
// @Failure      400    {object}  map[string]string
// @Router       /api/v1/readings [get]
// @Security     BearerAuth
func (h *Handler) listReadings(c *gin.Context) {
	r, msg := parseTimeRange(c.Query("from"), c.Query("to"), c.Query("limit"))
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	readings, err := h.services.ListReadings(c.Request.Context(), service.HistoryFilter{From: r.From, To: r.To, Limit: r.Limit})
	if err != nil {
		h.respondError(c, "readings_list_failed", err, "from", r.From, "to", r.To)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(readings),
		"readings": readings,
	})
}

// @Summary      Latest reading
// @Tags         readings
// @Produce      json
// @Success      200  {object}  models.Reading
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/readings/latest [get]
// @Security     BearerAuth
func (h *Handler) latestReading(c *gin.Context) {
	r, err := h.services.LatestReading(c.Request.Context())
	if err != nil {
		h.respondError(c, "reading_latest_failed", err)
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no readings yet"})
		return
	}
	c.JSON(http.StatusOK, r)
}
