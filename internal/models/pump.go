package models

import "time"

// PumpMode selects who drives pump transitions.
type PumpMode string

const (
	PumpModeAuto   PumpMode = "auto"
	PumpModeManual PumpMode = "manual"
)

// Valid reports whether m is a known mode.
func (m PumpMode) Valid() bool {
	return m == PumpModeAuto || m == PumpModeManual
}

// PumpState is the in-memory pump snapshot. Callers always receive copies.
type PumpState struct {
	IsActive      bool       `json:"is_active"`
	Mode          PumpMode   `json:"mode"`
	LastActivated *time.Time `json:"last_activated"`
}

// PumpLog is one activation or deactivation edge.
type PumpLog struct {
	ID                     string     `json:"id"`
	IsActive               bool       `json:"is_active"`
	StartTime              *time.Time `json:"start_time,omitempty"`
	EndTime                *time.Time `json:"end_time,omitempty"`
	Duration               *float64   `json:"duration,omitempty"` // seconds
	ActivatedBy            PumpMode   `json:"activated_by"`
	WaterLevelAtActivation *float64   `json:"water_level_at_activation,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// Open reports whether the row is an activation that has not been closed yet.
func (l PumpLog) Open() bool {
	return l.IsActive && l.StartTime != nil && l.EndTime == nil
}
