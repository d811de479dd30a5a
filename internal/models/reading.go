package models

import "time"

// Reading is a single water-level observation. Immutable once persisted.
type Reading struct {
	ID         string    `json:"id"`
	Level      float64   `json:"level"`
	Unit       string    `json:"unit"` // e.g. "cm"
	ObservedAt time.Time `json:"observed_at"`
}
