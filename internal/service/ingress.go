package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"water_monitor/internal/metrics"
	"water_monitor/internal/models"
	"water_monitor/internal/repository"
)

// IngestResult reports what one reading caused. Only the reading itself is
// guaranteed; Alert.Err and Pump.Err carry downstream failures that were logged.
type IngestResult struct {
	Reading             models.Reading `json:"reading"`
	Classification      Classification `json:"classification"`
	Alert               AlertOutcome   `json:"alert_outcome"`
	Pump                PumpOutcome    `json:"pump_outcome"`
	SettingsUnavailable bool           `json:"settings_unavailable,omitempty"`
}

// IngestService runs the evaluation cycle for each reading.
type IngestService struct {
	readings   repository.ReadingRepo
	settings   repository.SettingsRepo
	alerts     *AlertDeduplicator
	pump       *PumpController
	dispatcher EventDispatcher
	runtime
}

func NewIngestService(
	readings repository.ReadingRepo,
	settings repository.SettingsRepo,
	alerts *AlertDeduplicator,
	pump *PumpController,
	dispatcher EventDispatcher,
	opts ...Option,
) *IngestService {
	return &IngestService{
		readings:   readings,
		settings:   settings,
		alerts:     alerts,
		pump:       pump,
		dispatcher: dispatcher,
		runtime:    newRuntime(opts),
	}
}

// Ingest validates, persists and evaluates a reading. Only validation errors and
// a failure to store the reading are returned.
func (s *IngestService) Ingest(ctx context.Context, in ReadingInput) (IngestResult, error) {
	start := time.Now()
	source := in.Source
	if source == "" {
		source = "unknown"
	}
	defer func() { metrics.IngestDuration.Observe(time.Since(start).Seconds()) }()

	if err := in.validate(); err != nil {
		metrics.ReadingsIngestedTotal.WithLabelValues(source, "rejected").Inc()
		return IngestResult{}, err
	}

	thresholds, terr := s.loadThresholds(ctx)

	reading := s.normalize(in, thresholds)
	reading, err := s.readings.Append(ctx, reading)
	if err != nil {
		metrics.ReadingsIngestedTotal.WithLabelValues(source, "failed").Inc()
		s.log.Errorw("ingest_reading_persist_failed", "source", source, "err", err)
		return IngestResult{}, fmt.Errorf("persist reading: %w", err)
	}
	metrics.ReadingsIngestedTotal.WithLabelValues(source, "accepted").Inc()
	metrics.WaterLevel.Set(reading.Level)

	res := IngestResult{Reading: reading, Classification: ClassNone}

	if terr != nil {
		s.log.Errorw("ingest_settings_unavailable", "reading_id", reading.ID, "err", terr)
		res.SettingsUnavailable = true
		s.dispatch(ctx, WaterLevelUpdated{Reading: reading, Classification: ClassNone})
		return res, nil
	}

	res.Classification = Classify(reading.Level, *thresholds)
	res.Alert = s.alerts.Evaluate(ctx, reading, res.Classification)
	if res.Alert.Err != nil {
		s.log.Errorw("ingest_alert_failed", "reading_id", reading.ID, "classification", res.Classification, "err", res.Alert.Err)
	}
	res.Pump = s.pump.EvaluateAuto(ctx, reading.Level, *thresholds)

	// Everything is persisted at this point; broadcast in level, alert, pump order.
	events := []Event{WaterLevelUpdated{Reading: reading, Classification: res.Classification}}
	switch {
	case res.Alert.Alert != nil:
		events = append(events, AlertCreated{Alert: *res.Alert.Alert})
	case res.Alert.AlarmClear:
		events = append(events, AlarmCleared{At: reading.ObservedAt})
	}
	if ev := res.Pump.event(); ev != nil {
		events = append(events, ev)
	}
	s.dispatch(ctx, events...)

	s.log.Debugw("reading_ingested",
		"reading_id", reading.ID,
		"level", reading.Level,
		"classification", res.Classification,
		"alert_created", res.Alert.Alert != nil,
		"pump_transitioned", res.Pump.Transitioned)
	return res, nil
}

// loadThresholds returns ErrSettingsUnavailable when the row is missing or unreadable.
func (s *IngestService) loadThresholds(ctx context.Context) (*models.ThresholdSettings, error) {
	t, err := s.settings.GetThresholds(ctx)
	if err != nil {
		return nil, errors.Join(ErrSettingsUnavailable, err)
	}
	if t == nil {
		return nil, ErrSettingsUnavailable
	}
	return t, nil
}

// normalize turns a validated input into the reading to persist. Distances are
// converted against the configured max level, or the default one when settings are missing.
func (s *IngestService) normalize(in ReadingInput, t *models.ThresholdSettings) models.Reading {
	base := DefaultThresholds()
	if t != nil {
		base = *t
	}

	r := models.Reading{ObservedAt: in.ObservedAt}
	if r.ObservedAt.IsZero() {
		r.ObservedAt = s.now()
	}

	switch in.Kind {
	case InputDistance:
		r.Level = LevelFromDistance(in.Value, base.MaxLevel)
		r.Unit = base.Unit
	default:
		r.Level = in.Value
		r.Unit = in.Unit
		if r.Unit == "" {
			r.Unit = base.Unit
		}
	}
	if r.Unit == "" {
		r.Unit = defaultUnit
	}
	return r
}

func (s *IngestService) dispatch(ctx context.Context, events ...Event) {
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, events...)
	}
}
