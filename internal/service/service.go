package service

import (
	"context"
	"time"

	"water_monitor/internal/logger"
	"water_monitor/internal/models"
	"water_monitor/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Ingest is the reading entry point used by the HTTP push endpoint.
type Ingest interface {
	Ingest(ctx context.Context, in ReadingInput) (IngestResult, error)
}

// Pump exposes the pump state machine to operators.
type Pump interface {
	PumpStatus() models.PumpState
	SetPumpMode(ctx context.Context, mode models.PumpMode) (PumpOutcome, error)
	CommandPump(ctx context.Context, activate bool) (PumpOutcome, error)
}

type Alerts interface {
	ListAlerts(ctx context.Context, q AlertQuery) ([]models.Alert, error)
	AcknowledgeAlert(ctx context.Context, id string) (*models.Alert, error)
}

type Settings interface {
	Thresholds(ctx context.Context) (models.ThresholdSettings, error)
	UpdateThresholds(ctx context.Context, t models.ThresholdSettings) (models.ThresholdSettings, error)
	NotificationSettings(ctx context.Context) (models.NotificationSettings, error)
	UpdateNotificationSettings(ctx context.Context, n models.NotificationSettings) (models.NotificationSettings, error)
}

// History exposes read-only listings of readings and pump runs.
type History interface {
	ListReadings(ctx context.Context, f HistoryFilter) ([]models.Reading, error)
	LatestReading(ctx context.Context) (*models.Reading, error)
	ListPumpLogs(ctx context.Context, f HistoryFilter) ([]models.PumpLog, error)
}

// Service aggregates everything the HTTP layer needs.
type Service struct {
	Ingest
	Pump
	Alerts
	Settings
	History
	Authorization
}

// Config holds the engine tunables read from configuration.
type Config struct {
	AlertCooldown time.Duration
	IngestQueue   int
	EmailQueue    int
	Auth          AuthConfig
}

// Engine is the running core: the Service facade plus the background workers
// main starts.
type Engine struct {
	*Service

	Dispatcher *Dispatcher
	Queue      *Queue
	Simulator  *SimulatorService

	settings   *SettingsService
	controller *PumpController
}

// NewEngine wires repositories, broadcaster and e-mail gateway into the engine.
// mailer may be nil to disable e-mail.
func NewEngine(repos *repository.Repository, b Broadcaster, mailer EmailGateway, cfg Config, log *logger.Logger) *Engine {
	log = logger.OrNop(log)
	opt := func(component string) Option { return WithLogger(log.With("component", component)) }

	dispatcher := NewDispatcher(b, mailer, repos.Settings, cfg.EmailQueue, opt("dispatcher"))
	controller := NewPumpController(repos.PumpLogs, repos.Settings, repos.Readings, dispatcher, opt("pump"))
	dedup := NewAlertDeduplicator(repos.Alerts, cfg.AlertCooldown, opt("alerts"))
	ingest := NewIngestService(repos.Readings, repos.Settings, dedup, controller, dispatcher, opt("ingest"))
	settings := NewSettingsService(repos.Settings, dispatcher, opt("settings"))
	queue := NewQueue(ingest, cfg.IngestQueue, opt("queue"))
	alerts := NewAlertService(repos.Alerts, dispatcher, opt("alerts"))
	alerts.dedup = dedup

	return &Engine{
		Service: &Service{
			Ingest:        ingest,
			Pump:          controller,
			Alerts:        alerts,
			Settings:      settings,
			History:       NewHistoryService(repos.Readings, repos.PumpLogs),
			Authorization: NewAuthService(repos.Auth, cfg.Auth),
		},
		Dispatcher: dispatcher,
		Queue:      queue,
		Simulator:  NewSimulatorService(queue, controller, repos.Settings, opt("simulator")),
		settings:   settings,
		controller: controller,
	}
}

// Bootstrap seeds default settings and restores the pump state. Call once before
// serving traffic.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if err := e.settings.Bootstrap(ctx); err != nil {
		return err
	}
	return e.controller.Restore(ctx)
}
