package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"water_monitor/internal/models"
)

func enabledNotifications() *models.NotificationSettings {
	return &models.NotificationSettings{
		EmailEnabled:           true,
		EmailAddress:           "ops@example.com",
		NotifyOnWarning:        false,
		NotifyOnDanger:         true,
		NotifyOnPumpActivation: true,
	}
}

func TestDispatcher_BroadcastsInGivenOrder(t *testing.T) {
	b := &fakeBroadcaster{delivered: true}
	d := NewDispatcher(b, nil, nil, 0)

	start := time.Now()
	d.Dispatch(context.Background(),
		WaterLevelUpdated{Reading: models.Reading{Level: 90}},
		AlertCreated{Alert: models.Alert{Type: models.AlertDanger}},
		PumpTransitioned{State: models.PumpState{IsActive: true}, Log: &models.PumpLog{IsActive: true, StartTime: &start}},
	)

	want := []string{EventWaterLevel, EventAlert, EventPumpStatus}
	if got := b.types(); !equalStrings(got, want) {
		t.Fatalf("broadcast order = %v, want %v", got, want)
	}
}

func TestDispatcher_NoSubscribersIsNotAFailure(t *testing.T) {
	b := &fakeBroadcaster{delivered: false}
	d := NewDispatcher(b, nil, nil, 0)
	d.Dispatch(context.Background(), AlarmCleared{At: time.Now()})
	if len(b.types()) != 1 {
		t.Fatalf("expected publish attempt")
	}
}

func TestDispatcher_EmailGating(t *testing.T) {
	start := time.Now()
	activation := PumpTransitioned{
		State: models.PumpState{IsActive: true},
		Log:   &models.PumpLog{IsActive: true, StartTime: &start, ActivatedBy: models.PumpModeAuto, WaterLevelAtActivation: floatPtr(77)},
	}
	deactivation := PumpTransitioned{
		State: models.PumpState{},
		Log:   &models.PumpLog{IsActive: false, EndTime: &start},
	}

	tests := []struct {
		name     string
		prefs    *models.NotificationSettings
		events   []Event
		wantSent int
	}{
		{
			name:     "danger alert notifies",
			prefs:    enabledNotifications(),
			events:   []Event{AlertCreated{Alert: models.Alert{Type: models.AlertDanger, Message: "m"}}},
			wantSent: 1,
		},
		{
			name:   "warning alert muted",
			prefs:  enabledNotifications(),
			events: []Event{AlertCreated{Alert: models.Alert{Type: models.AlertWarning}}},
		},
		{
			name:     "pump activation notifies, deactivation does not",
			prefs:    enabledNotifications(),
			events:   []Event{activation, deactivation},
			wantSent: 1,
		},
		{
			name: "email disabled",
			prefs: &models.NotificationSettings{
				EmailEnabled: false, EmailAddress: "ops@example.com", NotifyOnDanger: true,
			},
			events: []Event{AlertCreated{Alert: models.Alert{Type: models.AlertDanger}}},
		},
		{
			name:   "no notification settings stored",
			events: []Event{AlertCreated{Alert: models.Alert{Type: models.AlertDanger}}},
		},
		{
			name:   "water level never emails",
			prefs:  enabledNotifications(),
			events: []Event{WaterLevelUpdated{}, SettingsChanged{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := &memSettings{notifications: tt.prefs}
			mailer := newFakeMailer()
			d := NewDispatcher(nil, mailer, settings, 8)
			d.Dispatch(context.Background(), tt.events...)
			for len(d.emails) > 0 {
				d.sendEmail(context.Background(), <-d.emails)
			}
			if got := len(mailer.sent); got != tt.wantSent {
				t.Fatalf("sent %d e-mails, want %d", got, tt.wantSent)
			}
		})
	}
}

func TestDispatcher_DispatchDoesNotReadSettings(t *testing.T) {
	settings := &memSettings{notifications: enabledNotifications(), getErr: errBoom}
	d := NewDispatcher(nil, newFakeMailer(), settings, 4)

	d.Dispatch(context.Background(),
		WaterLevelUpdated{},
		AlertCreated{Alert: models.Alert{Type: models.AlertDanger}},
	)
	if len(d.emails) != 1 {
		t.Fatalf("expected the alert to be queued regardless of settings, got %d", len(d.emails))
	}
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	settings := &memSettings{notifications: enabledNotifications()}
	d := NewDispatcher(nil, newFakeMailer(), settings, 1)

	alert := AlertCreated{Alert: models.Alert{Type: models.AlertDanger}}
	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), alert, alert, alert)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Dispatch blocked on a full e-mail queue")
	}
	if len(d.emails) != 1 {
		t.Fatalf("expected queue to hold 1 e-mail, got %d", len(d.emails))
	}
}

func TestDispatcher_RunSendsOnceAndSurvivesFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := newFakeMailer()
	mailer.err = errBoom
	settings := &memSettings{notifications: enabledNotifications()}
	d := NewDispatcher(nil, mailer, settings, 4)
	go d.Run(ctx)

	d.Dispatch(ctx, AlertCreated{Alert: models.Alert{Type: models.AlertDanger, Message: "Water level is at danger level: 91.0 cm"}})
	d.Dispatch(ctx, AlertCreated{Alert: models.Alert{Type: models.AlertDanger, Message: "second"}})

	for i := 0; i < 2; i++ {
		select {
		case m := <-mailer.got:
			if m.to != "ops@example.com" || !strings.Contains(m.subject, "danger") {
				t.Fatalf("unexpected mail %+v", m)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for mail %d", i+1)
		}
	}

	select {
	case m := <-mailer.got:
		t.Fatalf("unexpected retry %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestComposeEmail_PumpBodyIncludesLevel(t *testing.T) {
	start := time.Now()
	ev := PumpTransitioned{Log: &models.PumpLog{IsActive: true, StartTime: &start, ActivatedBy: models.PumpModeManual, WaterLevelAtActivation: floatPtr(42)}}
	subject, body, ok := composeEmail(ev, *enabledNotifications())
	if !ok || subject != "Pump activated" || !strings.Contains(body, "42.0") || !strings.Contains(body, "manual") {
		t.Fatalf("unexpected e-mail %q / %q / %v", subject, body, ok)
	}
}
