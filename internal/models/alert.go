package models

import "time"

// AlertType is the severity class of an alert.
type AlertType string

const (
	AlertWarning AlertType = "warning"
	AlertDanger  AlertType = "danger"
)

// Alert is an append-only record; only Acknowledged ever changes (false -> true).
type Alert struct {
	ID           string    `json:"id"`
	Level        float64   `json:"level"`
	Type         AlertType `json:"type"`
	Message      string    `json:"message"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
}
