package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"water_monitor/internal/models"
)

type SettingsSQLite struct {
	db *sql.DB
}

func NewSettingsSQLite(db *sql.DB) *SettingsSQLite {
	return &SettingsSQLite{db: db}
}

var _ SettingsRepo = (*SettingsSQLite)(nil)

// every settings table holds exactly one row with this id
const settingsRowID = 1

const (
	upsertThresholdsSQL = `
		INSERT INTO threshold_settings (id, warning_level, danger_level, min_level, max_level,
			pump_activation_level, pump_deactivation_level, unit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			warning_level=excluded.warning_level,
			danger_level=excluded.danger_level,
			min_level=excluded.min_level,
			max_level=excluded.max_level,
			pump_activation_level=excluded.pump_activation_level,
			pump_deactivation_level=excluded.pump_deactivation_level,
			unit=excluded.unit,
			updated_at=excluded.updated_at
	`
	selectThresholdsSQL = `
		SELECT warning_level, danger_level, min_level, max_level,
			pump_activation_level, pump_deactivation_level, unit, updated_at
		FROM threshold_settings WHERE id=?
	`

	upsertNotificationsSQL = `
		INSERT INTO notification_settings (id, email_enabled, email_address, notify_on_warning,
			notify_on_danger, notify_on_pump_activation, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email_enabled=excluded.email_enabled,
			email_address=excluded.email_address,
			notify_on_warning=excluded.notify_on_warning,
			notify_on_danger=excluded.notify_on_danger,
			notify_on_pump_activation=excluded.notify_on_pump_activation,
			updated_at=excluded.updated_at
	`
	selectNotificationsSQL = `
		SELECT email_enabled, email_address, notify_on_warning, notify_on_danger,
			notify_on_pump_activation, updated_at
		FROM notification_settings WHERE id=?
	`

	upsertPumpModeSQL = `
		INSERT INTO pump_mode (id, mode, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET mode=excluded.mode, updated_at=excluded.updated_at
	`
	selectPumpModeSQL = `SELECT mode FROM pump_mode WHERE id=?`
)

// SaveThresholds upserts the threshold row. Invariants are checked by the caller.
func (r *SettingsSQLite) SaveThresholds(ctx context.Context, t models.ThresholdSettings) error {
	_, err := r.db.ExecContext(ctx, upsertThresholdsSQL,
		settingsRowID,
		t.WarningLevel,
		t.DangerLevel,
		t.MinLevel,
		t.MaxLevel,
		t.PumpActivationLevel,
		t.PumpDeactivationLevel,
		t.Unit,
		toUTCOrNow(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert threshold settings: %w", err)
	}
	return nil
}

// GetThresholds returns the stored thresholds, or (nil, nil) if never seeded.
func (r *SettingsSQLite) GetThresholds(ctx context.Context) (*models.ThresholdSettings, error) {
	var t models.ThresholdSettings
	err := r.db.QueryRowContext(ctx, selectThresholdsSQL, settingsRowID).Scan(
		&t.WarningLevel,
		&t.DangerLevel,
		&t.MinLevel,
		&t.MaxLevel,
		&t.PumpActivationLevel,
		&t.PumpDeactivationLevel,
		&t.Unit,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select threshold settings: %w", err)
	}
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func (r *SettingsSQLite) SaveNotifications(ctx context.Context, n models.NotificationSettings) error {
	_, err := r.db.ExecContext(ctx, upsertNotificationsSQL,
		settingsRowID,
		n.EmailEnabled,
		n.EmailAddress,
		n.NotifyOnWarning,
		n.NotifyOnDanger,
		n.NotifyOnPumpActivation,
		toUTCOrNow(n.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert notification settings: %w", err)
	}
	return nil
}

func (r *SettingsSQLite) GetNotifications(ctx context.Context) (*models.NotificationSettings, error) {
	var n models.NotificationSettings
	err := r.db.QueryRowContext(ctx, selectNotificationsSQL, settingsRowID).Scan(
		&n.EmailEnabled,
		&n.EmailAddress,
		&n.NotifyOnWarning,
		&n.NotifyOnDanger,
		&n.NotifyOnPumpActivation,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select notification settings: %w", err)
	}
	n.UpdatedAt = n.UpdatedAt.UTC()
	return &n, nil
}

func (r *SettingsSQLite) SavePumpMode(ctx context.Context, m models.PumpMode) error {
	if _, err := r.db.ExecContext(ctx, upsertPumpModeSQL, settingsRowID, string(m), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert pump mode: %w", err)
	}
	return nil
}

// GetPumpMode returns the persisted mode, or "" when it was never stored.
func (r *SettingsSQLite) GetPumpMode(ctx context.Context) (models.PumpMode, error) {
	var mode string
	if err := r.db.QueryRowContext(ctx, selectPumpModeSQL, settingsRowID).Scan(&mode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("select pump mode: %w", err)
	}
	return models.PumpMode(mode), nil
}
