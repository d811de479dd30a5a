package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"water_monitor/internal/models"
	"water_monitor/internal/repository"
)

// ---- Clock ----

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ---- Repositories ----

type memReadings struct {
	mu        sync.Mutex
	rows      []models.Reading
	appendErr error
}

func (m *memReadings) Append(ctx context.Context, r models.Reading) (models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return models.Reading{}, m.appendErr
	}
	r.ID = fmt.Sprintf("r-%d", len(m.rows)+1)
	m.rows = append(m.rows, r)
	return r, nil
}

func (m *memReadings) Latest(ctx context.Context) (*models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		return nil, nil
	}
	r := m.rows[len(m.rows)-1]
	return &r, nil
}

func (m *memReadings) List(ctx context.Context, from, to time.Time, limit int) ([]models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Reading(nil), m.rows...)
	return out, nil
}

type memSettings struct {
	mu            sync.Mutex
	thresholds    *models.ThresholdSettings
	notifications *models.NotificationSettings
	mode          models.PumpMode
	getErr        error
	saveErr       error
	modeSaves     []models.PumpMode
}

func newMemSettings(t models.ThresholdSettings) *memSettings {
	return &memSettings{thresholds: &t, mode: models.PumpModeAuto}
}

func (m *memSettings) GetThresholds(ctx context.Context) (*models.ThresholdSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.thresholds == nil {
		return nil, nil
	}
	t := *m.thresholds
	return &t, nil
}

func (m *memSettings) SaveThresholds(ctx context.Context, t models.ThresholdSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.thresholds = &t
	return nil
}

func (m *memSettings) GetNotifications(ctx context.Context) (*models.NotificationSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.notifications == nil {
		return nil, nil
	}
	n := *m.notifications
	return &n, nil
}

func (m *memSettings) SaveNotifications(ctx context.Context, n models.NotificationSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.notifications = &n
	return nil
}

func (m *memSettings) GetPumpMode(ctx context.Context) (models.PumpMode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode, nil
}

func (m *memSettings) SavePumpMode(ctx context.Context, mode models.PumpMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modeSaves = append(m.modeSaves, mode)
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mode = mode
	return nil
}

type memAlerts struct {
	mu        sync.Mutex
	rows      []models.Alert
	createErr error
	findErr   error
	seq       int
}

func (m *memAlerts) FindLatestUnacknowledged(ctx context.Context, typ models.AlertType) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var latest *models.Alert
	for i := range m.rows {
		a := m.rows[i]
		if a.Type != typ || a.Acknowledged {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = &a
		}
	}
	return latest, nil
}

func (m *memAlerts) Create(ctx context.Context, a models.Alert) (models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return models.Alert{}, m.createErr
	}
	m.seq++
	a.ID = fmt.Sprintf("a-%d", m.seq)
	m.rows = append(m.rows, a)
	return a, nil
}

func (m *memAlerts) CountUnacknowledged(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.rows {
		if !a.Acknowledged {
			n++
		}
	}
	return n, nil
}

func (m *memAlerts) Acknowledge(ctx context.Context, id string) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Acknowledged = true
			a := m.rows[i]
			return &a, nil
		}
	}
	return nil, repository.ErrAlertNotFound
}

func (m *memAlerts) List(ctx context.Context, f repository.AlertFilter) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Alert
	for _, a := range m.rows {
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memAlerts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memPumpLogs struct {
	mu        sync.Mutex
	rows      []models.PumpLog
	createErr error
	updateErr error
	seq       int
}

func (m *memPumpLogs) FindLatestOpen(ctx context.Context) (*models.PumpLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].Open() {
			l := m.rows[i]
			return &l, nil
		}
	}
	return nil, nil
}

func (m *memPumpLogs) Latest(ctx context.Context) (*models.PumpLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		return nil, nil
	}
	l := m.rows[len(m.rows)-1]
	return &l, nil
}

func (m *memPumpLogs) Create(ctx context.Context, l models.PumpLog) (models.PumpLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return models.PumpLog{}, m.createErr
	}
	m.seq++
	l.ID = fmt.Sprintf("p-%d", m.seq)
	m.rows = append(m.rows, l)
	return l, nil
}

func (m *memPumpLogs) Update(ctx context.Context, id string, u repository.PumpLogUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].EndTime = u.EndTime
			m.rows[i].Duration = u.Duration
			return nil
		}
	}
	return repository.ErrPumpLogNotFound
}

func (m *memPumpLogs) List(ctx context.Context, from, to time.Time, limit int) ([]models.PumpLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PumpLog(nil), m.rows...), nil
}

func (m *memPumpLogs) snapshot() []models.PumpLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PumpLog(nil), m.rows...)
}

// ---- Dispatch / broadcast / mail ----

type recordingDispatcher struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, events ...Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recordingDispatcher) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventName())
	}
	return out
}

func (r *recordingDispatcher) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type published struct {
	eventType string
	payload   any
}

type fakeBroadcaster struct {
	mu        sync.Mutex
	sent      []published
	delivered bool
}

func (f *fakeBroadcaster) Publish(ctx context.Context, eventType string, payload any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{eventType: eventType, payload: payload})
	return f.delivered
}

func (f *fakeBroadcaster) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, p := range f.sent {
		out = append(out, p.eventType)
	}
	return out
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
	got  chan sentMail
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{got: make(chan sentMail, 16)}
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	f.sent = append(f.sent, sentMail{to, subject, body})
	err := f.err
	f.mu.Unlock()
	f.got <- sentMail{to, subject, body}
	return err
}

var errBoom = errors.New("boom")

// ---- Fixtures ----

// pumpThresholds uses the activation/deactivation levels from the pump cycle scenario.
func pumpThresholds() models.ThresholdSettings {
	return models.ThresholdSettings{
		WarningLevel:          60,
		DangerLevel:           80,
		MinLevel:              0,
		MaxLevel:              100,
		PumpActivationLevel:   40,
		PumpDeactivationLevel: 20,
		Unit:                  "cm",
	}
}

func floatPtr(v float64) *float64 { return &v }

func eventNames(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventName())
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
