package handlers

import (
	"water_monitor/internal/broadcast"
	"water_monitor/internal/logger"
	"water_monitor/internal/metrics"
	"water_monitor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Subscriber hands out realtime subscriptions for websocket clients.
type Subscriber interface {
	Subscribe() *broadcast.Subscription
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	hub      Subscriber
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, hub Subscriber, log *logger.Logger) *Handler {
	return &Handler{services: services, hub: hub, log: logger.OrNop(log)}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), metrics.GinMiddleware())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)

	// Device push; sensors do not carry operator tokens.
	router.POST("/sensor/readings", h.pushReading)

	h.registerAPIRoutes(router)

	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.requireOperator)
	{
		h.registerReadingRoutes(api)
		h.registerAlertRoutes(api)
		h.registerPumpRoutes(api)
		h.registerSettingsRoutes(api)
	}
}

func (h *Handler) registerReadingRoutes(api *gin.RouterGroup) {
	readings := api.Group("/readings")
	{
		readings.POST("", h.pushReading)
		readings.GET("", h.listReadings)
		readings.GET("/latest", h.latestReading)
	}
}

func (h *Handler) registerAlertRoutes(api *gin.RouterGroup) {
	alerts := api.Group("/alerts")
	{
		alerts.GET("", h.listAlerts)
		alerts.POST("/:id/acknowledge", h.acknowledgeAlert)
	}
}

func (h *Handler) registerPumpRoutes(api *gin.RouterGroup) {
	pump := api.Group("/pump")
	{
		pump.GET("", h.getPump)
		// Body example: {"mode":"manual"}
		pump.POST("/mode", h.setPumpMode)
		// Body example: {"active":true}
		pump.POST("/control", h.controlPump)
		pump.GET("/logs", h.listPumpLogs)
	}
}

func (h *Handler) registerSettingsRoutes(api *gin.RouterGroup) {
	settings := api.Group("/settings")
	{
		settings.GET("/thresholds", h.getThresholds)
		settings.PUT("/thresholds", h.updateThresholds)
		settings.GET("/notifications", h.getNotifications)
		settings.PUT("/notifications", h.updateNotifications)
	}
}
