// Package workflow runs the watermark round trip as an ordered pipeline of
// named stages:
//
//	upload-original → encode (+await) → download →
//	upload-encoded → decode (+await) → usage
//
// Each stage returns a typed result consumed by the next one. A fatal error
// stops the run and is returned as a *StageError naming the phase.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stegai/steg-cli/internal/poll"
	"github.com/stegai/steg-cli/internal/stegapi"
)

// Phase names a pipeline stage.
type Phase string

const (
	PhaseUploadOriginal Phase = "upload-original"
	PhaseEncode         Phase = "encode"
	PhaseDownload       Phase = "download"
	PhaseUploadEncoded  Phase = "upload-encoded"
	PhaseDecode         Phase = "decode"
	PhaseUsage          Phase = "usage"
)

// Phases lists the stages in execution order.
var Phases = []Phase{
	PhaseUploadOriginal,
	PhaseEncode,
	PhaseDownload,
	PhaseUploadEncoded,
	PhaseDecode,
	PhaseUsage,
}

// StageError reports which phase a run failed in.
type StageError struct {
	Phase Phase
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// PhaseOf returns the phase recorded in err, or "" if err carries none.
func PhaseOf(err error) Phase {
	var se *StageError
	if errors.As(err, &se) {
		return se.Phase
	}
	return ""
}

// API is the subset of *stegapi.Client the pipeline needs.
type API interface {
	Upload(ctx context.Context, opts stegapi.UploadOptions) (*stegapi.UploadResult, error)
	Encode(ctx context.Context, req stegapi.JobRequest) (*stegapi.JobTicket, error)
	Decode(ctx context.Context, mediaID string) (*stegapi.JobTicket, error)
	Await(ctx context.Context, requestID string, poller *poll.Poller, onStatus stegapi.StatusFunc) (*stegapi.StatusResult, error)
	Download(ctx context.Context, mediaURL, destPath string) (*stegapi.DownloadResult, error)
	Usage(ctx context.Context, q stegapi.UsageQuery) (*stegapi.UsageReport, error)
}

var _ API = (*stegapi.Client)(nil)

// Config wires a Pipeline.
type Config struct {
	// API performs the remote calls (required)
	API API

	// Poll bounds every await; zero fields take the poll package defaults
	Poll poll.Config

	// Observers receive progress events in registration order
	Observers []Observer

	// RunID identifies the run in events and history (default: a new UUID)
	RunID string

	// DebugFunc is an optional callback for debug logging
	DebugFunc func(format string, args ...any)
}

// Options describe one run. They replace the hard-coded key, path and
// date of a one-off script.
type Options struct {
	// InputPath is the image to watermark (required)
	InputPath string

	// OutputDir receives <name>_encoded.<ext> (default: current directory)
	OutputDir string

	// ContentType overrides the type derived from the file extension
	ContentType string

	Owner   string
	License stegapi.License
	Method  int
	Custom  map[string]any

	// Usage selects the reporting window of the final stage
	Usage stegapi.UsageQuery

	// SkipUsage ends the run after decode
	SkipUsage bool
}

// JobOutcome is the result of an awaited encode or decode job.
type JobOutcome struct {
	Phase       Phase
	MediaID     string
	RequestID   string
	Status      *stegapi.StatusResult
	Attempts    int
	LastStatus  string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration is the time from submission to the final status.
func (j *JobOutcome) Duration() time.Duration {
	return j.CompletedAt.Sub(j.StartedAt)
}

// MediaData returns the media_data of the final status, if any.
func (j *JobOutcome) MediaData() json.RawMessage {
	if j == nil || j.Status == nil {
		return nil
	}
	return j.Status.MediaData
}

// Result collects the typed output of every stage that ran.
type Result struct {
	RunID     string
	InputPath string

	Original *stegapi.UploadResult
	Encode   *JobOutcome
	Download *stegapi.DownloadResult
	Encoded  *stegapi.UploadResult
	Decode   *JobOutcome
	Usage    *stegapi.UsageReport

	StartedAt time.Time
	Elapsed   time.Duration
}

// Pipeline executes the stages against an API.
type Pipeline struct {
	api       API
	poller    *poll.Poller
	observers []Observer
	runID     string
	debugFunc func(format string, args ...any)
}

// New validates cfg and creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.API == nil {
		return nil, errors.New("workflow: API is required")
	}
	if err := cfg.Poll.Validate(); err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Pipeline{
		api:       cfg.API,
		poller:    poll.New(cfg.Poll),
		observers: cfg.Observers,
		runID:     runID,
		debugFunc: cfg.DebugFunc,
	}, nil
}

// RunID returns the identifier attached to every event of this pipeline.
func (p *Pipeline) RunID() string {
	return p.runID
}

func (p *Pipeline) debug(format string, args ...any) {
	if p.debugFunc != nil {
		p.debugFunc(format, args...)
	}
}

// Run executes every stage in order and stops at the first fatal error.
// The returned Result holds whatever completed before the failure.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{
		RunID:     p.runID,
		InputPath: opts.InputPath,
		StartedAt: time.Now(),
	}
	p.notify(ctx, Event{Kind: EventRunStarted, Detail: opts.InputPath})

	err := p.run(ctx, opts, res)
	res.Elapsed = time.Since(res.StartedAt)

	p.notify(ctx, Event{Kind: EventRunFinished, Phase: PhaseOf(err), Elapsed: res.Elapsed, Err: err})
	return res, err
}

func (p *Pipeline) run(ctx context.Context, opts Options, res *Result) error {
	var err error

	if res.Original, err = p.UploadOriginal(ctx, opts); err != nil {
		return err
	}
	if res.Encode, err = p.Encode(ctx, res.Original.MediaID, opts); err != nil {
		return err
	}
	if res.Download, err = p.Download(ctx, res.Encode, opts); err != nil {
		return err
	}
	if res.Encoded, err = p.UploadEncoded(ctx, res.Download.Path, opts); err != nil {
		return err
	}
	if res.Decode, err = p.Decode(ctx, res.Encoded.MediaID); err != nil {
		return err
	}
	if opts.SkipUsage {
		p.debug("workflow: usage stage skipped")
		return nil
	}
	if res.Usage, err = p.Report(ctx, opts.Usage); err != nil {
		return err
	}
	return nil
}
