package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"water_monitor/internal/metrics"
	"water_monitor/internal/models"
	"water_monitor/internal/repository"
)

// DefaultAlertCooldown is how long an open alert suppresses a new one of the same type.
const DefaultAlertCooldown = 30 * time.Minute

// AlertOutcome is the deduplicator's verdict for one reading.
type AlertOutcome struct {
	Classification Classification `json:"-"`
	Alert          *models.Alert  `json:"alert,omitempty"` // set only when a new alert was persisted
	Suppressed     bool           `json:"suppressed"`
	AlarmClear     bool           `json:"alarm_clear"` // set once when the last open alert goes away, not on every normal reading
	Err            error          `json:"-"`
}

// AlertDeduplicator decides whether a classified reading opens a new alert.
type AlertDeduplicator struct {
	mu       sync.Mutex
	repo     repository.AlertRepo
	cooldown time.Duration
	cleared  bool // alarm-clear already signalled for the current quiet period
	runtime
}

func NewAlertDeduplicator(repo repository.AlertRepo, cooldown time.Duration, opts ...Option) *AlertDeduplicator {
	if cooldown <= 0 {
		cooldown = DefaultAlertCooldown
	}
	return &AlertDeduplicator{repo: repo, cooldown: cooldown, runtime: newRuntime(opts)}
}

// ShouldCreateAlert reports whether c warrants a new alert at now.
func (d *AlertDeduplicator) ShouldCreateAlert(ctx context.Context, c Classification, now time.Time) (bool, error) {
	typ, ok := c.AlertType()
	if !ok {
		return false, nil
	}
	open, err := d.repo.FindLatestUnacknowledged(ctx, typ)
	if err != nil {
		return false, err
	}
	if open == nil {
		return true, nil
	}
	return now.Sub(open.CreatedAt) > d.cooldown, nil
}

// Evaluate runs the dedup policy for one reading and persists the alert if warranted.
// Lookup and create are serialized so concurrent readings cannot both open one.
func (d *AlertDeduplicator) Evaluate(ctx context.Context, r models.Reading, c Classification) AlertOutcome {
	out := AlertOutcome{Classification: c}

	d.mu.Lock()
	defer d.mu.Unlock()

	typ, ok := c.AlertType()
	if !ok {
		n, err := d.repo.CountUnacknowledged(ctx)
		if err != nil {
			out.Err = fmt.Errorf("count open alerts: %w", err)
			return out
		}
		out.AlarmClear = n == 0 && !d.cleared
		d.cleared = n == 0
		return out
	}

	now := d.now()
	create, err := d.ShouldCreateAlert(ctx, c, now)
	if err != nil {
		out.Err = fmt.Errorf("find open %s alert: %w", typ, err)
		return out
	}
	if !create {
		out.Suppressed = true
		metrics.AlertsSuppressedTotal.WithLabelValues(string(typ)).Inc()
		return out
	}

	a, err := d.repo.Create(ctx, models.Alert{
		Level:     r.Level,
		Type:      typ,
		Message:   AlertMessage(typ, r.Level, r.Unit),
		CreatedAt: now,
	})
	if err != nil {
		out.Err = err
		return out
	}
	metrics.AlertsCreatedTotal.WithLabelValues(string(typ)).Inc()
	d.cleared = false
	out.Alert = &a
	return out
}

// markCleared records an alarm-clear sent outside the reading path.
func (d *AlertDeduplicator) markCleared() {
	d.mu.Lock()
	d.cleared = true
	d.mu.Unlock()
}

// AlertMessage is the human-readable alert text, e.g. "Water level is at danger level: 90.0 cm".
func AlertMessage(typ models.AlertType, level float64, unit string) string {
	if unit == "" {
		return fmt.Sprintf("Water level is at %s level: %.1f", typ, level)
	}
	return fmt.Sprintf("Water level is at %s level: %.1f %s", typ, level, unit)
}

// AlertQuery filters alert listings.
type AlertQuery struct {
	From         time.Time
	To           time.Time
	Type         string
	Acknowledged *bool
	Limit        int
}

// AlertService serves alert history and the acknowledge action.
type AlertService struct {
	repo       repository.AlertRepo
	dispatcher EventDispatcher
	dedup      *AlertDeduplicator // optional; told about clears sent on acknowledge
	runtime
}

func NewAlertService(repo repository.AlertRepo, dispatcher EventDispatcher, opts ...Option) *AlertService {
	return &AlertService{repo: repo, dispatcher: dispatcher, runtime: newRuntime(opts)}
}

func (s *AlertService) ListAlerts(ctx context.Context, q AlertQuery) ([]models.Alert, error) {
	from, to, err := normalizeRange(q.From, q.To)
	if err != nil {
		return nil, err
	}
	typ := models.AlertType(normalizeType(q.Type))
	if typ != "" && typ != models.AlertWarning && typ != models.AlertDanger {
		return nil, invalidQuery("type", "must be warning or danger")
	}
	return s.repo.List(ctx, repository.AlertFilter{
		From:         from,
		To:           to,
		Type:         typ,
		Acknowledged: q.Acknowledged,
		Limit:        q.Limit,
	})
}

// AcknowledgeAlert marks an alert as seen. When it was the last open alert the
// alarm-clear signal is broadcast as well.
func (s *AlertService) AcknowledgeAlert(ctx context.Context, id string) (*models.Alert, error) {
	a, err := s.repo.Acknowledge(ctx, id)
	if err != nil {
		return nil, err
	}

	events := []Event{AlertAcknowledged{Alert: *a}}
	n, err := s.repo.CountUnacknowledged(ctx)
	switch {
	case err != nil:
		s.log.Warnw("count_open_alerts_failed", "err", err)
	case n == 0:
		events = append(events, AlarmCleared{At: s.now()})
		if s.dedup != nil {
			s.dedup.markCleared()
		}
	}
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, events...)
	}
	return a, nil
}
