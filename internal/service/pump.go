package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"water_monitor/internal/metrics"
	"water_monitor/internal/models"
	"water_monitor/internal/repository"
)

// PumpOutcome describes what a pump request or auto evaluation did.
type PumpOutcome struct {
	Transitioned bool             `json:"transitioned"`
	ModeChanged  bool             `json:"mode_changed,omitempty"`
	State        models.PumpState `json:"state"`
	Log          *models.PumpLog  `json:"log,omitempty"` // row written for the transition
	Err          error            `json:"-"`             // persistence failure, already logged
}

// event returns the pump-status event for this outcome, or nil when nothing changed.
func (o PumpOutcome) event() Event {
	if !o.Transitioned && !o.ModeChanged {
		return nil
	}
	return PumpTransitioned{State: o.State, Log: o.Log}
}

// PumpController owns the pump state. Writers serialize on mu for the whole
// read-decide-persist-write step; readers load an immutable snapshot.
type PumpController struct {
	mu        sync.Mutex
	state     atomic.Pointer[models.PumpState]
	lastLevel *float64 // guarded by mu

	logs       repository.PumpLogRepo
	settings   repository.SettingsRepo
	readings   repository.ReadingRepo
	dispatcher EventDispatcher
	runtime
}

func NewPumpController(
	logs repository.PumpLogRepo,
	settings repository.SettingsRepo,
	readings repository.ReadingRepo,
	dispatcher EventDispatcher,
	opts ...Option,
) *PumpController {
	p := &PumpController{
		logs:       logs,
		settings:   settings,
		readings:   readings,
		dispatcher: dispatcher,
		runtime:    newRuntime(opts),
	}
	p.state.Store(&models.PumpState{Mode: models.PumpModeAuto})
	return p
}

// PumpStatus returns a copy of the current state.
func (p *PumpController) PumpStatus() models.PumpState {
	st := *p.state.Load()
	if st.LastActivated != nil {
		t := *st.LastActivated
		st.LastActivated = &t
	}
	return st
}

// Restore rebuilds the in-memory state from the persisted mode and pump log.
func (p *PumpController) Restore(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	mode, err := p.settings.GetPumpMode(ctx)
	if err != nil {
		return fmt.Errorf("load pump mode: %w", err)
	}
	if !mode.Valid() {
		mode = models.PumpModeAuto
	}

	latest, err := p.logs.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load latest pump log: %w", err)
	}

	next := models.PumpState{Mode: mode}
	if latest != nil && latest.Open() {
		next.IsActive = true
		t := *latest.StartTime
		next.LastActivated = &t
	}
	p.commit(next)

	if p.readings != nil {
		r, err := p.readings.Latest(ctx)
		if err != nil {
			p.log.Warnw("pump_restore_latest_reading_failed", "err", err)
		} else if r != nil {
			lvl := r.Level
			p.lastLevel = &lvl
		}
	}

	p.log.Infow("pump_state_restored", "mode", next.Mode, "is_active", next.IsActive)
	return nil
}

// EvaluateAuto applies the auto-mode thresholds to level. It only decides and
// persists; the caller dispatches the resulting event so it can order broadcasts.
func (p *PumpController) EvaluateAuto(ctx context.Context, level float64, t models.ThresholdSettings) PumpOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	lvl := level
	p.lastLevel = &lvl
	return p.evaluateAutoLocked(ctx, level, t)
}

func (p *PumpController) evaluateAutoLocked(ctx context.Context, level float64, t models.ThresholdSettings) PumpOutcome {
	st := *p.state.Load()
	if st.Mode != models.PumpModeAuto {
		return PumpOutcome{State: st}
	}
	switch {
	case !st.IsActive && level >= t.PumpActivationLevel:
		return p.activateLocked(ctx, st, models.PumpModeAuto, &level)
	case st.IsActive && level <= t.PumpDeactivationLevel:
		return p.deactivateLocked(ctx, st, models.PumpModeAuto)
	default:
		return PumpOutcome{State: st}
	}
}

// CommandPump switches the pump on or off by operator request. Only accepted in
// manual mode; repeating the current state is a silent no-op.
func (p *PumpController) CommandPump(ctx context.Context, activate bool) (PumpOutcome, error) {
	p.mu.Lock()
	st := *p.state.Load()
	if st.Mode != models.PumpModeManual {
		p.mu.Unlock()
		return PumpOutcome{State: st}, ErrModeConflict
	}

	var out PumpOutcome
	switch {
	case activate == st.IsActive:
		out = PumpOutcome{State: st}
	case activate:
		out = p.activateLocked(ctx, st, models.PumpModeManual, p.lastLevel)
	default:
		out = p.deactivateLocked(ctx, st, models.PumpModeManual)
	}
	p.mu.Unlock()

	p.dispatch(ctx, out)
	return out, nil
}

// SetPumpMode switches between auto and manual. Entering auto re-evaluates the
// latest known level and may transition the pump right away.
func (p *PumpController) SetPumpMode(ctx context.Context, mode models.PumpMode) (PumpOutcome, error) {
	if !mode.Valid() {
		return PumpOutcome{State: p.PumpStatus()}, invalidSettings("mode", "must be auto or manual")
	}

	p.mu.Lock()
	st := *p.state.Load()
	if st.Mode == mode {
		p.mu.Unlock()
		return PumpOutcome{State: st}, nil
	}

	st.Mode = mode
	p.commit(st)
	if err := p.settings.SavePumpMode(ctx, mode); err != nil {
		p.log.Errorw("pump_mode_persist_failed", "mode", mode, "err", err)
	}
	p.log.Infow("pump_mode_changed", "mode", mode)

	out := PumpOutcome{ModeChanged: true, State: st}
	if mode == models.PumpModeAuto {
		if level, t, ok := p.autoInputsLocked(ctx); ok {
			auto := p.evaluateAutoLocked(ctx, level, t)
			auto.ModeChanged = true
			out = auto
		}
	}
	p.mu.Unlock()

	p.dispatch(ctx, out)
	return out, nil
}

// autoInputsLocked finds the level and thresholds for a post-switch evaluation.
func (p *PumpController) autoInputsLocked(ctx context.Context) (float64, models.ThresholdSettings, bool) {
	var level float64
	switch {
	case p.lastLevel != nil:
		level = *p.lastLevel
	case p.readings != nil:
		r, err := p.readings.Latest(ctx)
		if err != nil {
			p.log.Warnw("pump_latest_reading_failed", "err", err)
			return 0, models.ThresholdSettings{}, false
		}
		if r == nil {
			return 0, models.ThresholdSettings{}, false
		}
		level = r.Level
		p.lastLevel = &level
	default:
		return 0, models.ThresholdSettings{}, false
	}

	t, err := p.settings.GetThresholds(ctx)
	if err != nil || t == nil {
		p.log.Warnw("pump_thresholds_unavailable", "err", err)
		return 0, models.ThresholdSettings{}, false
	}
	return level, *t, true
}

// activateLocked opens a pump log row and, once it is stored, marks the pump active.
func (p *PumpController) activateLocked(ctx context.Context, st models.PumpState, by models.PumpMode, level *float64) PumpOutcome {
	now := p.now()

	var lvl *float64
	if level != nil {
		v := *level
		lvl = &v
	}
	row, err := p.logs.Create(ctx, models.PumpLog{
		IsActive:               true,
		StartTime:              &now,
		ActivatedBy:            by,
		WaterLevelAtActivation: lvl,
		CreatedAt:              now,
	})
	if err != nil {
		p.log.Errorw("pump_activation_log_failed", "activated_by", by, "err", err)
		return PumpOutcome{State: st, Err: err}
	}

	next := models.PumpState{IsActive: true, Mode: st.Mode, LastActivated: &now}
	p.commit(next)
	metrics.PumpTransitionsTotal.WithLabelValues("on", string(by)).Inc()
	p.log.Infow("pump_activated", "activated_by", by, "level", lvl)
	return PumpOutcome{Transitioned: true, State: next, Log: &row}
}

// deactivateLocked appends the deactivation marker and only then closes the
// open run. The marker is the commit point: if it cannot be stored the open row
// is left untouched so the log and the in-memory state keep agreeing.
func (p *PumpController) deactivateLocked(ctx context.Context, st models.PumpState, by models.PumpMode) PumpOutcome {
	now := p.now()

	open, err := p.logs.FindLatestOpen(ctx)
	if err != nil {
		p.log.Errorw("pump_open_log_lookup_failed", "err", err)
		open = nil
	}

	marker, err := p.logs.Create(ctx, models.PumpLog{
		IsActive:    false,
		EndTime:     &now,
		ActivatedBy: by,
		CreatedAt:   now,
	})
	if err != nil {
		p.log.Errorw("pump_deactivation_log_failed", "activated_by", by, "err", err)
		return PumpOutcome{State: st, Err: err}
	}

	next := models.PumpState{IsActive: false, Mode: st.Mode, LastActivated: st.LastActivated}
	p.commit(next)
	metrics.PumpTransitionsTotal.WithLabelValues("off", string(by)).Inc()

	if open == nil {
		p.log.Warnw("pump_deactivated_without_open_log", "activated_by", by)
	} else {
		dur := runDuration(*open.StartTime, now)
		if err := p.logs.Update(ctx, open.ID, repository.PumpLogUpdate{EndTime: &now, Duration: &dur}); err != nil {
			p.log.Errorw("pump_close_log_failed", "log_id", open.ID, "err", err)
		}
	}

	p.log.Infow("pump_deactivated", "activated_by", by)
	return PumpOutcome{Transitioned: true, State: next, Log: &marker}
}

// commit replaces the whole snapshot.
func (p *PumpController) commit(next models.PumpState) {
	p.state.Store(&next)
	if next.IsActive {
		metrics.PumpActive.Set(1)
	} else {
		metrics.PumpActive.Set(0)
	}
}

func (p *PumpController) dispatch(ctx context.Context, out PumpOutcome) {
	if ev := out.event(); ev != nil && p.dispatcher != nil {
		p.dispatcher.Dispatch(ctx, ev)
	}
}

// runDuration is the run length in seconds, never negative.
func runDuration(start, end time.Time) float64 {
	d := end.Sub(start).Seconds()
	if d < 0 {
		return 0
	}
	return d
}
