package service

import (
	"context"
	"fmt"

	"water_monitor/internal/metrics"
	"water_monitor/internal/models"
	"water_monitor/internal/repository"
)

// Broadcaster pushes events to realtime subscribers. false means nobody received it.
type Broadcaster interface {
	Publish(ctx context.Context, eventType string, payload any) bool
}

// EmailGateway sends a single plain-text message.
type EmailGateway interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EventDispatcher is what the engine components depend on.
type EventDispatcher interface {
	Dispatch(ctx context.Context, events ...Event)
}

const defaultEmailQueueSize = 64

// Dispatcher fans engine events out to the broadcaster and, when enabled,
// to e-mail. Broadcasts happen inline in the order given. E-mail candidates are
// queued as is; Run applies the notification settings and sends each once.
type Dispatcher struct {
	broadcaster Broadcaster
	mailer      EmailGateway
	settings    repository.SettingsRepo
	emails      chan Event
	runtime
}

var _ EventDispatcher = (*Dispatcher)(nil)

func NewDispatcher(b Broadcaster, mailer EmailGateway, settings repository.SettingsRepo, queueSize int, opts ...Option) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultEmailQueueSize
	}
	return &Dispatcher{
		broadcaster: b,
		mailer:      mailer,
		settings:    settings,
		emails:      make(chan Event, queueSize),
		runtime:     newRuntime(opts),
	}
}

// Dispatch never fails; broadcast and e-mail problems are logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, events ...Event) {
	for _, ev := range events {
		d.broadcast(ctx, ev)
	}
	d.enqueueEmails(events)
}

func (d *Dispatcher) broadcast(ctx context.Context, ev Event) {
	if d.broadcaster == nil {
		return
	}
	name := ev.EventName()
	delivered := d.broadcaster.Publish(ctx, name, ev)
	metrics.BroadcastsTotal.WithLabelValues(name, metrics.BoolLabel(delivered)).Inc()
	if !delivered {
		d.log.Debugw("broadcast_no_subscribers", "event", name)
	}
}

// enqueueEmails never touches storage; it only filters and queues.
func (d *Dispatcher) enqueueEmails(events []Event) {
	if d.mailer == nil || d.settings == nil {
		return
	}
	for _, ev := range events {
		if !emailCandidate(ev) {
			continue
		}
		select {
		case d.emails <- ev:
		default:
			metrics.EmailsTotal.WithLabelValues("dropped").Inc()
			d.log.Warnw("email_queue_full", "event", ev.EventName())
		}
	}
}

func emailCandidate(ev Event) bool {
	switch e := ev.(type) {
	case AlertCreated:
		return true
	case PumpTransitioned:
		return e.activation()
	default:
		return false
	}
}

// composeEmail applies the per-event notification switches.
func composeEmail(ev Event, prefs models.NotificationSettings) (subject, body string, ok bool) {
	switch e := ev.(type) {
	case AlertCreated:
		a := e.Alert
		if (a.Type == models.AlertWarning && !prefs.NotifyOnWarning) ||
			(a.Type == models.AlertDanger && !prefs.NotifyOnDanger) {
			return "", "", false
		}
		subject = fmt.Sprintf("Water level %s alert", a.Type)
		body = fmt.Sprintf("%s\n\nRecorded at %s.", a.Message, a.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		return subject, body, true
	case PumpTransitioned:
		if !prefs.NotifyOnPumpActivation || !e.activation() {
			return "", "", false
		}
		subject = "Pump activated"
		body = fmt.Sprintf("The pump was switched on (%s mode)", e.Log.ActivatedBy)
		if lvl := e.Log.WaterLevelAtActivation; lvl != nil {
			body += fmt.Sprintf(" at a water level of %.1f", *lvl)
		}
		body += "."
		return subject, body, true
	default:
		return "", "", false
	}
}

// Run sends queued e-mails until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.emails:
			d.sendEmail(ctx, ev)
		}
	}
}

// sendEmail loads the current notification settings and makes a single attempt.
func (d *Dispatcher) sendEmail(ctx context.Context, ev Event) {
	prefs, err := d.settings.GetNotifications(ctx)
	if err != nil {
		d.log.Warnw("notification_settings_load_failed", "err", err)
		return
	}
	if prefs == nil || !prefs.EmailEnabled || prefs.EmailAddress == "" {
		return
	}
	subject, body, ok := composeEmail(ev, *prefs)
	if !ok {
		return
	}
	if err := d.mailer.Send(ctx, prefs.EmailAddress, subject, body); err != nil {
		metrics.EmailsTotal.WithLabelValues("failed").Inc()
		d.log.Warnw("email_send_failed", "to", prefs.EmailAddress, "subject", subject, "err", err)
		return
	}
	metrics.EmailsTotal.WithLabelValues("sent").Inc()
	d.log.Infow("email_sent", "to", prefs.EmailAddress, "subject", subject)
}
