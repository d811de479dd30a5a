package models

import "time"

// ThresholdSettings holds the level boundaries the engine evaluates readings against.
type ThresholdSettings struct {
	WarningLevel          float64   `json:"warning_level"`
	DangerLevel           float64   `json:"danger_level"`
	MinLevel              float64   `json:"min_level"`
	MaxLevel              float64   `json:"max_level"`
	PumpActivationLevel   float64   `json:"pump_activation_level"`
	PumpDeactivationLevel float64   `json:"pump_deactivation_level"`
	Unit                  string    `json:"unit"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// NotificationSettings controls which events produce an e-mail.
type NotificationSettings struct {
	EmailEnabled           bool      `json:"email_enabled"`
	EmailAddress           string    `json:"email_address"`
	NotifyOnWarning        bool      `json:"notify_on_warning"`
	NotifyOnDanger         bool      `json:"notify_on_danger"`
	NotifyOnPumpActivation bool      `json:"notify_on_pump_activation"`
	UpdatedAt              time.Time `json:"updated_at"`
}
