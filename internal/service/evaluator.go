package service

import (
	"math"

	"water_monitor/internal/models"
)

// Classification is the alert band a reading falls into.
type Classification string

const (
	ClassNone    Classification = "none"
	ClassWarning Classification = "warning"
	ClassDanger  Classification = "danger"
)

// AlertType maps a non-none classification to the alert type it produces.
func (c Classification) AlertType() (models.AlertType, bool) {
	switch c {
	case ClassWarning:
		return models.AlertWarning, true
	case ClassDanger:
		return models.AlertDanger, true
	default:
		return "", false
	}
}

// Classify checks danger before warning. Thresholds are trusted as stored, so an
// inverted configuration (danger below warning) still resolves to danger first.
func Classify(level float64, t models.ThresholdSettings) Classification {
	switch {
	case level >= t.DangerLevel:
		return ClassDanger
	case level >= t.WarningLevel:
		return ClassWarning
	default:
		return ClassNone
	}
}

// LevelFromDistance converts a sensor-to-surface distance into a water level,
// clamped to [0, maxLevel].
func LevelFromDistance(distance, maxLevel float64) float64 {
	return clampLevel(maxLevel-distance, maxLevel)
}

func clampLevel(level, maxLevel float64) float64 {
	return math.Max(0, math.Min(level, maxLevel))
}

// ValidateLevel rejects non-finite and negative levels.
func ValidateLevel(level float64) error {
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return invalidReading("level", "must be a finite number")
	}
	if level < 0 {
		return invalidReading("level", "must not be negative")
	}
	return nil
}
