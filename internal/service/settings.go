package service

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"strings"

	"water_monitor/internal/models"
	"water_monitor/internal/repository"
)

const defaultUnit = "cm"

// DefaultThresholds are seeded on first start.
func DefaultThresholds() models.ThresholdSettings {
	return models.ThresholdSettings{
		WarningLevel:          70,
		DangerLevel:           85,
		MinLevel:              0,
		MaxLevel:              100,
		PumpActivationLevel:   75,
		PumpDeactivationLevel: 30,
		Unit:                  defaultUnit,
	}
}

// DefaultNotifications keeps e-mail off until an address is configured.
func DefaultNotifications() models.NotificationSettings {
	return models.NotificationSettings{
		NotifyOnWarning:        true,
		NotifyOnDanger:         true,
		NotifyOnPumpActivation: false,
	}
}

// ValidateThresholds enforces the invariants the evaluator relies on.
func ValidateThresholds(t models.ThresholdSettings) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"warning_level", t.WarningLevel},
		{"danger_level", t.DangerLevel},
		{"pump_activation_level", t.PumpActivationLevel},
		{"pump_deactivation_level", t.PumpDeactivationLevel},
		{"min_level", t.MinLevel},
		{"max_level", t.MaxLevel},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return invalidSettings(f.name, "must be a finite number")
		}
	}
	if t.MinLevel >= t.MaxLevel {
		return invalidSettings("min_level", "must be below max_level")
	}
	if t.WarningLevel >= t.DangerLevel {
		return invalidSettings("warning_level", "must be below danger_level")
	}
	if t.PumpDeactivationLevel >= t.PumpActivationLevel {
		return invalidSettings("pump_deactivation_level", "must be below pump_activation_level")
	}
	for _, f := range fields[:4] {
		if f.v < t.MinLevel || f.v > t.MaxLevel {
			return invalidSettings(f.name, fmt.Sprintf("must be within [%g, %g]", t.MinLevel, t.MaxLevel))
		}
	}
	return nil
}

// ValidateNotifications requires a parseable address while e-mail is enabled.
func ValidateNotifications(n models.NotificationSettings) error {
	if !n.EmailEnabled {
		return nil
	}
	if strings.TrimSpace(n.EmailAddress) == "" {
		return invalidSettings("email_address", "is required when email is enabled")
	}
	if _, err := mail.ParseAddress(n.EmailAddress); err != nil {
		return invalidSettings("email_address", "is not a valid address")
	}
	return nil
}

// SettingsService is the settings boundary: it validates writes and seeds defaults.
type SettingsService struct {
	repo       repository.SettingsRepo
	dispatcher EventDispatcher
	runtime
}

func NewSettingsService(repo repository.SettingsRepo, dispatcher EventDispatcher, opts ...Option) *SettingsService {
	return &SettingsService{repo: repo, dispatcher: dispatcher, runtime: newRuntime(opts)}
}

func (s *SettingsService) Thresholds(ctx context.Context) (models.ThresholdSettings, error) {
	t, err := s.repo.GetThresholds(ctx)
	if err != nil {
		return models.ThresholdSettings{}, fmt.Errorf("%w: %v", ErrSettingsUnavailable, err)
	}
	if t == nil {
		return models.ThresholdSettings{}, ErrSettingsUnavailable
	}
	return *t, nil
}

func (s *SettingsService) UpdateThresholds(ctx context.Context, t models.ThresholdSettings) (models.ThresholdSettings, error) {
	t.Unit = strings.TrimSpace(t.Unit)
	if t.Unit == "" {
		t.Unit = defaultUnit
	}
	if err := ValidateThresholds(t); err != nil {
		return models.ThresholdSettings{}, err
	}
	t.UpdatedAt = s.now()
	if err := s.repo.SaveThresholds(ctx, t); err != nil {
		return models.ThresholdSettings{}, err
	}
	s.log.Infow("thresholds_updated",
		"warning", t.WarningLevel, "danger", t.DangerLevel,
		"pump_on", t.PumpActivationLevel, "pump_off", t.PumpDeactivationLevel)
	s.dispatch(ctx, SettingsChanged{Thresholds: &t})
	return t, nil
}

// NotificationSettings falls back to defaults when nothing is stored.
func (s *SettingsService) NotificationSettings(ctx context.Context) (models.NotificationSettings, error) {
	n, err := s.repo.GetNotifications(ctx)
	if err != nil {
		return models.NotificationSettings{}, err
	}
	if n == nil {
		return DefaultNotifications(), nil
	}
	return *n, nil
}

func (s *SettingsService) UpdateNotificationSettings(ctx context.Context, n models.NotificationSettings) (models.NotificationSettings, error) {
	n.EmailAddress = strings.TrimSpace(n.EmailAddress)
	if err := ValidateNotifications(n); err != nil {
		return models.NotificationSettings{}, err
	}
	n.UpdatedAt = s.now()
	if err := s.repo.SaveNotifications(ctx, n); err != nil {
		return models.NotificationSettings{}, err
	}
	s.log.Infow("notification_settings_updated", "email_enabled", n.EmailEnabled)
	s.dispatch(ctx, SettingsChanged{Notifications: &n})
	return n, nil
}

// Bootstrap seeds any settings document that does not exist yet.
func (s *SettingsService) Bootstrap(ctx context.Context) error {
	t, err := s.repo.GetThresholds(ctx)
	if err != nil {
		return err
	}
	if t == nil {
		d := DefaultThresholds()
		d.UpdatedAt = s.now()
		if err := s.repo.SaveThresholds(ctx, d); err != nil {
			return err
		}
		s.log.Infow("default_thresholds_seeded")
	}

	n, err := s.repo.GetNotifications(ctx)
	if err != nil {
		return err
	}
	if n == nil {
		d := DefaultNotifications()
		d.UpdatedAt = s.now()
		if err := s.repo.SaveNotifications(ctx, d); err != nil {
			return err
		}
		s.log.Infow("default_notification_settings_seeded")
	}

	mode, err := s.repo.GetPumpMode(ctx)
	if err != nil {
		return err
	}
	if mode == "" {
		if err := s.repo.SavePumpMode(ctx, models.PumpModeAuto); err != nil {
			return err
		}
		s.log.Infow("default_pump_mode_seeded", "mode", models.PumpModeAuto)
	}
	return nil
}

func (s *SettingsService) dispatch(ctx context.Context, ev Event) {
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, ev)
	}
}
