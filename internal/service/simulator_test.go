package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"water_monitor/internal/models"
)

type recordingSubmitter struct {
	mu  sync.Mutex
	got []ReadingInput
}

func (r *recordingSubmitter) Submit(ctx context.Context, in ReadingInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, in)
	return nil
}

type stubPump struct{ active bool }

func (s *stubPump) PumpStatus() models.PumpState {
	return models.PumpState{IsActive: s.active, Mode: models.PumpModeAuto}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSimulator_StepFillsAndDrains(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	sub := &recordingSubmitter{}
	pump := &stubPump{}
	sim := NewSimulatorService(sub, pump, newMemSettings(DefaultThresholds()), WithClock(clock))

	if err := sim.Step(ctx); err != nil {
		t.Fatal(err)
	}
	if !almostEqual(sim.Level(), 25) {
		t.Fatalf("initial level = %v, want 25", sim.Level())
	}

	clock.Advance(10 * time.Second)
	if err := sim.Step(ctx); err != nil {
		t.Fatal(err)
	}
	if !almostEqual(sim.Level(), 33) {
		t.Fatalf("level after fill = %v, want 33", sim.Level())
	}

	pump.active = true
	clock.Advance(10 * time.Second)
	if err := sim.Step(ctx); err != nil {
		t.Fatal(err)
	}
	if !almostEqual(sim.Level(), 16) {
		t.Fatalf("level after drain = %v, want 16", sim.Level())
	}

	if len(sub.got) != 3 {
		t.Fatalf("expected 3 submitted readings, got %d", len(sub.got))
	}
	last := sub.got[2]
	if last.Kind != InputDistance || !almostEqual(last.Value, 84) || last.Source != "simulator" {
		t.Fatalf("unexpected submitted input %+v", last)
	}
	if !last.ObservedAt.Equal(clock.Now()) {
		t.Fatalf("observed_at = %v, want %v", last.ObservedAt, clock.Now())
	}
}

func TestSimulator_ClampsToTank(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	pump := &stubPump{}
	sim := NewSimulatorService(&recordingSubmitter{}, pump, nil, WithClock(clock))

	_ = sim.Step(ctx)
	clock.Advance(time.Hour)
	_ = sim.Step(ctx)
	if sim.Level() != 100 {
		t.Fatalf("expected full tank, got %v", sim.Level())
	}

	pump.active = true
	clock.Advance(time.Hour)
	_ = sim.Step(ctx)
	if sim.Level() != 0 {
		t.Fatalf("expected empty tank, got %v", sim.Level())
	}
}

func TestSimulator_FeedsPipeline(t *testing.T) {
	f := newIngestFixture(t, pumpThresholds())
	sim := NewSimulatorService(ingestSubmitter{f.svc}, f.pump, f.settings, WithClock(f.clock))
	ctx := context.Background()

	// 25 -> 41 after 20s of inflow; activation is at 40.
	_ = sim.Step(ctx)
	f.clock.Advance(20 * time.Second)
	_ = sim.Step(ctx)

	if !f.pump.PumpStatus().IsActive {
		t.Fatalf("expected pump to start once the simulated level crossed activation")
	}
	if n := len(f.readings.rows); n != 2 {
		t.Fatalf("expected 2 readings persisted, got %d", n)
	}
}

type ingestSubmitter struct{ svc *IngestService }

func (s ingestSubmitter) Submit(ctx context.Context, in ReadingInput) error {
	_, err := s.svc.Ingest(ctx, in)
	return err
}
