package repository

import (
	"context"
	"database/sql"
	"time"

	"water_monitor/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// ReadingRepo is the append-only store of water-level readings.
type ReadingRepo interface {
	Append(ctx context.Context, r models.Reading) (models.Reading, error)
	Latest(ctx context.Context) (*models.Reading, error)
	List(ctx context.Context, from, to time.Time, limit int) ([]models.Reading, error)
}

// SettingsRepo holds the single-row settings documents. Getters return (nil, nil)
// when the row has not been seeded yet.
type SettingsRepo interface {
	GetThresholds(ctx context.Context) (*models.ThresholdSettings, error)
	SaveThresholds(ctx context.Context, t models.ThresholdSettings) error
	GetNotifications(ctx context.Context) (*models.NotificationSettings, error)
	SaveNotifications(ctx context.Context, n models.NotificationSettings) error
	GetPumpMode(ctx context.Context) (models.PumpMode, error)
	SavePumpMode(ctx context.Context, m models.PumpMode) error
}

// AlertFilter narrows alert listings. Zero values mean "no filter".
type AlertFilter struct {
	From         time.Time
	To           time.Time
	Type         models.AlertType
	Acknowledged *bool
	Limit        int
}

type AlertRepo interface {
	FindLatestUnacknowledged(ctx context.Context, typ models.AlertType) (*models.Alert, error)
	Create(ctx context.Context, a models.Alert) (models.Alert, error)
	CountUnacknowledged(ctx context.Context) (int, error)
	Acknowledge(ctx context.Context, id string) (*models.Alert, error)
	List(ctx context.Context, f AlertFilter) ([]models.Alert, error)
}

// PumpLogUpdate carries the fields that may change on an existing pump log row.
type PumpLogUpdate struct {
	EndTime  *time.Time
	Duration *float64
}

type PumpLogRepo interface {
	FindLatestOpen(ctx context.Context) (*models.PumpLog, error)
	Latest(ctx context.Context) (*models.PumpLog, error)
	Create(ctx context.Context, l models.PumpLog) (models.PumpLog, error)
	Update(ctx context.Context, id string, u PumpLogUpdate) error
	List(ctx context.Context, from, to time.Time, limit int) ([]models.PumpLog, error)
}

type Repository struct {
	Readings ReadingRepo
	Settings SettingsRepo
	Alerts   AlertRepo
	PumpLogs PumpLogRepo
	Auth     Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Readings: NewReadingSQLite(db),
		Settings: NewSettingsSQLite(db),
		Alerts:   NewAlertSQLite(db),
		PumpLogs: NewPumpLogSQLite(db),
		Auth:     NewUserRepository(db),
	}
}

// defaultListLimit caps history queries when the caller passes no limit.
const defaultListLimit = 500

func listLimit(n int) int {
	if n <= 0 || n > defaultListLimit {
		return defaultListLimit
	}
	return n
}

// toUTCOrNow normalizes t to UTC, substituting the current time for zero values.
func toUTCOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
