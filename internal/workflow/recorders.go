package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/stegai/steg-cli/internal/events"
	"github.com/stegai/steg-cli/internal/history"
	"github.com/stegai/steg-cli/internal/stegapi"
)

// JobRecorder stores finished jobs; *history.Store implements it.
type JobRecorder interface {
	Insert(r history.JobRecord) error
}

// HistoryObserver writes every finished encode or decode job to a ledger.
// The encode record is updated with the downloaded path once the download
// stage completes.
type HistoryObserver struct {
	recorder   JobRecorder
	sourcePath string
	debugFunc  func(format string, args ...any)

	lastEncode *history.JobRecord
}

// NewHistoryObserver creates an observer recording jobs started from
// sourcePath (may be empty for standalone jobs).
func NewHistoryObserver(recorder JobRecorder, sourcePath string, debug func(format string, args ...any)) *HistoryObserver {
	return &HistoryObserver{recorder: recorder, sourcePath: sourcePath, debugFunc: debug}
}

// Observe implements Observer.
func (h *HistoryObserver) Observe(_ context.Context, ev Event) {
	switch {
	case ev.Kind == EventJobFinished && ev.Job != nil:
		rec := jobRecord(ev)
		rec.SourcePath = h.sourcePath
		if ev.Phase == PhaseEncode {
			h.lastEncode = &rec
		}
		h.insert(rec)

	case ev.Kind == EventStageFinished && ev.Phase == PhaseDownload && ev.Err == nil:
		if h.lastEncode != nil && h.lastEncode.RequestID == ev.RequestID {
			h.lastEncode.OutputPath = ev.Detail
			h.insert(*h.lastEncode)
		}
	}
}

func (h *HistoryObserver) insert(rec history.JobRecord) {
	if err := h.recorder.Insert(rec); err != nil && h.debugFunc != nil {
		h.debugFunc("history: could not record job %s: %v", rec.RequestID, err)
	}
}

func jobRecord(ev Event) history.JobRecord {
	job := ev.Job
	rec := history.JobRecord{
		RunID:        ev.RunID,
		Kind:         string(job.Phase),
		MediaID:      job.MediaID,
		RequestID:    job.RequestID,
		Outcome:      outcome(ev.Err),
		RemoteStatus: job.LastStatus,
		Attempts:     job.Attempts,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		DurationMs:   job.Duration().Milliseconds(),
	}
	if ev.Err != nil {
		rec.ErrorMessage = ev.Err.Error()
	}
	return rec
}

func outcome(err error) string {
	var failed *stegapi.JobFailedError
	var timeout *stegapi.TimeoutError
	switch {
	case err == nil:
		return history.OutcomeCompleted
	case errors.As(err, &failed):
		return history.OutcomeFailed
	case errors.As(err, &timeout):
		return history.OutcomeTimeout
	default:
		return history.OutcomeError
	}
}

// EventPublisher sends workflow events; *events.RedisPublisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// publishTimeout bounds each publish so a slow broker cannot stall a run.
const publishTimeout = 2 * time.Second

// EventsObserver forwards pipeline events to a publisher. Publishing
// failures are logged and otherwise ignored.
type EventsObserver struct {
	publisher EventPublisher
	debugFunc func(format string, args ...any)
}

// NewEventsObserver creates an observer publishing to p.
func NewEventsObserver(p EventPublisher, debug func(format string, args ...any)) *EventsObserver {
	return &EventsObserver{publisher: p, debugFunc: debug}
}

// Observe implements Observer.
func (o *EventsObserver) Observe(ctx context.Context, ev Event) {
	typ, ok := eventTypes[ev.Kind]
	if !ok {
		return
	}

	// Publish even after the run context is cancelled.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	out := events.Event{
		Timestamp:  ev.Time.UTC().Format(time.RFC3339Nano),
		RunID:      ev.RunID,
		Type:       typ,
		Phase:      string(ev.Phase),
		MediaID:    ev.MediaID,
		RequestID:  ev.RequestID,
		Status:     ev.Status,
		Attempt:    ev.Attempt,
		DurationMs: ev.Elapsed.Milliseconds(),
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}

	if err := o.publisher.Publish(pctx, out); err != nil && o.debugFunc != nil {
		o.debugFunc("events: publish %s failed: %v", typ, err)
	}
}

var eventTypes = map[EventKind]string{
	EventRunStarted:    events.TypeRunStarted,
	EventStageStarted:  events.TypeStageStarted,
	EventStageFinished: events.TypeStageFinished,
	EventJobSubmitted:  events.TypeJobSubmitted,
	EventJobStatus:     events.TypeJobStatus,
	EventJobFinished:   events.TypeJobFinished,
	EventRunFinished:   events.TypeRunFinished,
}
