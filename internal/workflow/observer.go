package workflow

import (
	"context"
	"time"
)

// EventKind classifies pipeline events.
type EventKind string

const (
	EventRunStarted    EventKind = "run_started"
	EventStageStarted  EventKind = "stage_started"
	EventStageFinished EventKind = "stage_finished"
	EventJobSubmitted  EventKind = "job_submitted"
	EventJobStatus     EventKind = "job_status"
	EventJobFinished   EventKind = "job_finished"
	EventRunFinished   EventKind = "run_finished"
)

// Event describes one step of a run. Fields that do not apply to a kind
// are left zero.
type Event struct {
	Kind  EventKind
	RunID string
	Phase Phase
	Time  time.Time

	MediaID   string
	RequestID string
	Status    string
	Attempt   int

	// Detail is free text such as the input path or a downloaded file
	Detail string

	Elapsed time.Duration
	Err     error

	// Job is set on EventJobFinished
	Job *JobOutcome
}

// Observer receives pipeline events. Observers run synchronously on the
// pipeline goroutine and must not block for long; they cannot fail a run.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// Observe calls f(ctx, ev).
func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

func (p *Pipeline) notify(ctx context.Context, ev Event) {
	ev.RunID = p.runID
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	for _, o := range p.observers {
		o.Observe(ctx, ev)
	}
}
