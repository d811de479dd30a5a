package service

import (
	"errors"
	"fmt"

	"water_monitor/internal/repository"
)

var (
	// ErrInvalidReading marks readings rejected before persistence.
	ErrInvalidReading = errors.New("invalid reading")
	// ErrInvalidSettings marks settings updates that break the threshold invariants.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrSettingsUnavailable means thresholds could not be loaded for an evaluation cycle.
	ErrSettingsUnavailable = errors.New("threshold settings unavailable")
	// ErrModeConflict is returned for manual pump commands outside manual mode.
	ErrModeConflict = errors.New("pump command not allowed in current mode")
	// ErrInvalidQuery marks malformed history filters.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrAlertNotFound is returned when acknowledging an unknown alert.
	ErrAlertNotFound = repository.ErrAlertNotFound

	errInvalidTimeRange = &ValidationError{Field: "from", Reason: "must be <= to", kind: ErrInvalidQuery}
)

// ValidationError describes a rejected input field. It unwraps to ErrInvalidReading,
// ErrInvalidSettings or ErrInvalidQuery depending on where it was raised.
type ValidationError struct {
	Field  string
	Reason string
	kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s %s", e.kind, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.kind }

func invalidReading(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, kind: ErrInvalidReading}
}

func invalidSettings(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, kind: ErrInvalidSettings}
}

func invalidQuery(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, kind: ErrInvalidQuery}
}
