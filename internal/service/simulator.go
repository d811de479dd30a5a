package service

import (
	"context"
	"time"

	"water_monitor/internal/models"
	"water_monitor/internal/repository"
)

// ----------- Simulation constants -----------
const (
	InflowPerSec      = 0.8  // level units per second while the tank fills
	PumpOutflowPerSec = 2.5  // level units per second drained by a running pump
	InitialLevelRatio = 0.25 // starting level as a share of max level
)

// ReadingSubmitter accepts readings for evaluation.
type ReadingSubmitter interface {
	Submit(ctx context.Context, in ReadingInput) error
}

// PumpStatusReader exposes the pump snapshot.
type PumpStatusReader interface {
	PumpStatus() models.PumpState
}

// SimulatorService stands in for the ultrasonic sensor: it models a tank that
// fills steadily and drains while the pump runs, and reports sensor distances.
type SimulatorService struct {
	queue    ReadingSubmitter
	pump     PumpStatusReader
	settings repository.SettingsRepo

	level    float64
	lastTick time.Time
	started  bool
	runtime
}

func NewSimulatorService(queue ReadingSubmitter, pump PumpStatusReader, settings repository.SettingsRepo, opts ...Option) *SimulatorService {
	return &SimulatorService{
		queue:    queue,
		pump:     pump,
		settings: settings,
		runtime:  newRuntime(opts),
	}
}

// Run ticks at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.Step(ctx); err != nil && ctx.Err() == nil {
				s.log.Warnw("simulator_submit_failed", "err", err)
			}
		}
	}
}

// Step advances the tank model to the current clock time and submits one
// distance reading.
func (s *SimulatorService) Step(ctx context.Context) error {
	now := s.now()
	maxLevel := s.maxLevel(ctx)

	if !s.started {
		s.level = maxLevel * InitialLevelRatio
		s.lastTick = now
		s.started = true
	} else {
		elapsed := now.Sub(s.lastTick).Seconds()
		s.lastTick = now
		if elapsed > 0 {
			s.advance(elapsed, maxLevel)
		}
	}

	in := DistanceInput(maxLevel - s.level)
	in.ObservedAt = now
	in.Source = "simulator"
	return s.queue.Submit(ctx, in)
}

// Level returns the simulated water level.
func (s *SimulatorService) Level() float64 { return s.level }

// advance applies inflow and, when the pump is on, outflow.
func (s *SimulatorService) advance(elapsed, maxLevel float64) {
	s.level += InflowPerSec * elapsed
	if s.pump != nil && s.pump.PumpStatus().IsActive {
		s.level -= PumpOutflowPerSec * elapsed
	}
	s.level = clampLevel(s.level, maxLevel)
}

func (s *SimulatorService) maxLevel(ctx context.Context) float64 {
	if s.settings != nil {
		t, err := s.settings.GetThresholds(ctx)
		if err == nil && t != nil && t.MaxLevel > 0 {
			return t.MaxLevel
		}
	}
	return DefaultThresholds().MaxLevel
}
