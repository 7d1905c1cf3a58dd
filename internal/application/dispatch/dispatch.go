// Package dispatch fans workflow events out to best-effort sinks.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Event kinds raised after a transition commits.
const (
	ApplicationSubmitted     = "application.submitted"
	ApplicationApproved      = "application.approved"
	ApplicationRejected      = "application.rejected"
	ApplicationInfoRequested = "application.info_requested"
	ApplicationResubmitted   = "application.resubmitted"
	ApplicationDeleted       = "application.deleted"
	RegistrationRequested    = "registration.requested"
	RegistrationApproved     = "registration.approved"
	RegistrationRejected     = "registration.rejected"
	RegistrationCancelled    = "registration.cancelled"
	RegistrationRemoved      = "registration.removed"
	CheckInRecorded          = "checkin.recorded"
)

// Payload keys.
const (
	KeyApplicationID  = "applicationId"
	KeyRegistrationID = "registrationId"
	KeyActivityID     = "activityId"
	KeyAthleteID      = "athleteId"
	KeyUserID         = "userId"
	KeyClubID         = "clubId"
	KeyProfileID      = "profileId"
	KeyStatus         = "status"
	KeyReason         = "reason"
	KeyNote           = "note"
	KeyTimestamp      = "timestamp"
)

// Payload carries the identifiers of the record an event is about.
type Payload map[string]string

// Event is one dispatched lifecycle event.
type Event struct {
	Kind    string
	Payload Payload
	At      time.Time
}

// Notifier is the collaborator the workflow calls after every successful transition.
type Notifier interface {
	Notify(ctx context.Context, kind string, payload Payload) error
}

// Sink consumes dispatched events.
type Sink interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

// Recorder counts dispatched events and failed sinks.
type Recorder interface {
	RecordEvent(kind string)
	RecordNotifyFailure(sink string)
}

// Dispatcher delivers each event to every sink. A failing sink does not stop the others.
type Dispatcher struct {
	sinks    []Sink
	recorder Recorder
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a Dispatcher over sinks.
func New(sinks []Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{sinks: sinks, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ Notifier = (*Dispatcher)(nil)

// Notify delivers the event to every sink.
// POST: every sink was called; the returned error joins the sink failures
func (d *Dispatcher) Notify(ctx context.Context, kind string, payload Payload) error {
	e := Event{Kind: kind, Payload: payload, At: d.now()}
	if d.recorder != nil {
		d.recorder.RecordEvent(kind)
	}
	var errs []error
	for _, s := range d.sinks {
		if err := s.Handle(ctx, e); err != nil {
			if d.recorder != nil {
				d.recorder.RecordNotifyFailure(s.Name())
			}
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogSink writes each event as a structured log line.
type LogSink struct{}

// Name implements Sink.
func (LogSink) Name() string { return "log" }

// Handle implements Sink.
func (LogSink) Handle(_ context.Context, e Event) error {
	keys := make([]string, 0, len(e.Payload))
	for k := range e.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]any, 0, 2+2*len(keys))
	attrs = append(attrs, "event", e.Kind)
	for _, k := range keys {
		attrs = append(attrs, k, e.Payload[k])
	}
	slog.Info("workflow_event", attrs...)
	return nil
}
