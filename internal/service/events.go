package service

import (
	"time"

	"water_monitor/internal/models"
)

// Broadcast event types as seen by realtime subscribers.
const (
	EventWaterLevel        = "water-level"
	EventAlert             = "alert"
	EventAlarmClear        = "alarm-clear"
	EventAlertAcknowledged = "alert-acknowledged"
	EventPumpStatus        = "pump-status"
	EventSettings          = "settings"
)

// Event is a state change handed to the dispatcher.
type Event interface {
	EventName() string
}

// WaterLevelUpdated is emitted for every persisted reading.
type WaterLevelUpdated struct {
	Reading        models.Reading `json:"reading"`
	Classification Classification `json:"classification"`
}

func (WaterLevelUpdated) EventName() string { return EventWaterLevel }

// AlertCreated is emitted after an alert row was persisted.
type AlertCreated struct {
	Alert models.Alert `json:"alert"`
}

func (AlertCreated) EventName() string { return EventAlert }

// AlarmCleared signals that no unacknowledged alert remains and the level is normal.
type AlarmCleared struct {
	At time.Time `json:"at"`
}

func (AlarmCleared) EventName() string { return EventAlarmClear }

type AlertAcknowledged struct {
	Alert models.Alert `json:"alert"`
}

func (AlertAcknowledged) EventName() string { return EventAlertAcknowledged }

// PumpTransitioned carries the pump snapshot after a transition or mode change.
// Log is the row written for the transition, nil for a pure mode change.
type PumpTransitioned struct {
	State models.PumpState `json:"state"`
	Log   *models.PumpLog  `json:"log,omitempty"`
}

func (PumpTransitioned) EventName() string { return EventPumpStatus }

// activation reports whether the event opened a pump run.
func (e PumpTransitioned) activation() bool {
	return e.Log != nil && e.Log.Open()
}

type SettingsChanged struct {
	Thresholds    *models.ThresholdSettings    `json:"thresholds,omitempty"`
	Notifications *models.NotificationSettings `json:"notifications,omitempty"`
}

func (SettingsChanged) EventName() string { return EventSettings }
