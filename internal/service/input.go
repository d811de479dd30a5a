package service

import (
	"math"
	"strings"
	"time"
)

// InputKind tells ingress how to interpret ReadingInput.Value.
type InputKind int

const (
	// InputLevel is a water level measured from the tank floor.
	InputLevel InputKind = iota + 1
	// InputDistance is an ultrasonic sensor-to-surface distance.
	InputDistance
)

func (k InputKind) String() string {
	switch k {
	case InputLevel:
		return "level"
	case InputDistance:
		return "distance"
	default:
		return "unknown"
	}
}

// ReadingInput is the single message type flowing from reading sources into ingress.
type ReadingInput struct {
	Kind       InputKind
	Value      float64
	Unit       string    // level inputs only; empty means the configured unit
	ObservedAt time.Time // zero means "when ingested"
	Source     string    // http, simulator, kafka
}

// LevelInput builds a direct level reading.
func LevelInput(level float64, unit string) ReadingInput {
	return ReadingInput{Kind: InputLevel, Value: level, Unit: unit}
}

// DistanceInput builds a raw distance reading.
func DistanceInput(distance float64) ReadingInput {
	return ReadingInput{Kind: InputDistance, Value: distance}
}

// validate runs the checks that need no settings.
func (in ReadingInput) validate() error {
	switch in.Kind {
	case InputLevel:
		return ValidateLevel(in.Value)
	case InputDistance:
		if math.IsNaN(in.Value) || math.IsInf(in.Value, 0) {
			return invalidReading("distance", "must be a finite number")
		}
		return nil
	default:
		return invalidReading("kind", "must be level or distance")
	}
}

// ReadingPayload is the wire shape shared by HTTP pushes and Kafka messages:
// either {"distance": 12.5} or {"level": 40, "unit": "cm"}.
type ReadingPayload struct {
	Distance   *float64   `json:"distance,omitempty"`
	Level      *float64   `json:"level,omitempty"`
	Unit       string     `json:"unit,omitempty"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
}

// ToInput picks exactly one of distance or level.
func (p ReadingPayload) ToInput() (ReadingInput, error) {
	var in ReadingInput
	switch {
	case p.Distance != nil && p.Level != nil:
		return ReadingInput{}, invalidReading("payload", "must carry either distance or level, not both")
	case p.Distance != nil:
		in = DistanceInput(*p.Distance)
	case p.Level != nil:
		in = LevelInput(*p.Level, strings.TrimSpace(p.Unit))
	default:
		return ReadingInput{}, invalidReading("level", "is required")
	}
	if p.ObservedAt != nil {
		in.ObservedAt = p.ObservedAt.UTC()
	}
	if err := in.validate(); err != nil {
		return ReadingInput{}, err
	}
	return in, nil
}
