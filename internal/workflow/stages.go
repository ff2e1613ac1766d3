package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stegai/steg-cli/internal/media"
	"github.com/stegai/steg-cli/internal/stegapi"
)

// stage brackets fn with start and finish events and tags its error with
// the phase.
func (p *Pipeline) stage(ctx context.Context, phase Phase, fn func() (Event, error)) error {
	p.notify(ctx, Event{Kind: EventStageStarted, Phase: phase})
	start := time.Now()

	ev, err := fn()

	ev.Kind = EventStageFinished
	ev.Phase = phase
	ev.Elapsed = time.Since(start)
	if err != nil {
		var se *StageError
		if !errors.As(err, &se) {
			err = &StageError{Phase: phase, Err: err}
		}
		ev.Err = err
	}
	p.notify(ctx, ev)
	return err
}

// UploadOriginal uploads the input image with request_type "encode".
func (p *Pipeline) UploadOriginal(ctx context.Context, opts Options) (*stegapi.UploadResult, error) {
	return p.upload(ctx, PhaseUploadOriginal, opts.InputPath, stegapi.RequestTypeEncode, opts)
}

// UploadEncoded uploads the downloaded encoded image under a fresh ticket
// with request_type "decode".
func (p *Pipeline) UploadEncoded(ctx context.Context, path string, opts Options) (*stegapi.UploadResult, error) {
	return p.upload(ctx, PhaseUploadEncoded, path, stegapi.RequestTypeDecode, opts)
}

func (p *Pipeline) upload(ctx context.Context, phase Phase, path, requestType string, opts Options) (*stegapi.UploadResult, error) {
	var res *stegapi.UploadResult
	err := p.stage(ctx, phase, func() (Event, error) {
		name, _ := media.Split(path)
		contentType := opts.ContentType
		if contentType == "" {
			ct, err := media.ContentType(path)
			if err != nil {
				return Event{}, &stegapi.ValidationError{Op: "upload", Field: "content_type", Reason: "cannot be derived", Err: err}
			}
			contentType = ct
		}

		p.debug("workflow: %s %s as %q (%s)", phase, path, name, contentType)
		r, err := p.api.Upload(ctx, stegapi.UploadOptions{
			Path:        path,
			Name:        name,
			ContentType: contentType,
			RequestType: requestType,
			Owner:       opts.Owner,
			License:     licenseOrDefault(opts.License),
			Custom:      opts.Custom,
		})
		if err != nil {
			return Event{Detail: path}, err
		}
		res = r
		return Event{MediaID: r.MediaID, Detail: path}, nil
	})
	return res, err
}

// Encode submits an encode job for mediaID and waits for it to finish.
func (p *Pipeline) Encode(ctx context.Context, mediaID string, opts Options) (*JobOutcome, error) {
	method := opts.Method
	return p.job(ctx, PhaseEncode, mediaID, func() (*stegapi.JobTicket, error) {
		return p.api.Encode(ctx, stegapi.JobRequest{
			MediaID: mediaID,
			License: licenseOrDefault(opts.License),
			Owner:   opts.Owner,
			Method:  &method,
			Custom:  opts.Custom,
		})
	})
}

// Decode submits a decode job for mediaID and waits for it to finish.
func (p *Pipeline) Decode(ctx context.Context, mediaID string) (*JobOutcome, error) {
	return p.job(ctx, PhaseDecode, mediaID, func() (*stegapi.JobTicket, error) {
		return p.api.Decode(ctx, mediaID)
	})
}

// Await waits for an already submitted job. It is used to resume a job by
// request ID; phase only labels events and errors.
func (p *Pipeline) Await(ctx context.Context, phase Phase, requestID string) (*JobOutcome, error) {
	var out *JobOutcome
	err := p.stage(ctx, phase, func() (Event, error) {
		o, err := p.await(ctx, phase, "", requestID)
		out = o
		return Event{RequestID: requestID, Status: o.LastStatus}, err
	})
	return out, err
}

func (p *Pipeline) job(ctx context.Context, phase Phase, mediaID string, submit func() (*stegapi.JobTicket, error)) (*JobOutcome, error) {
	var out *JobOutcome
	err := p.stage(ctx, phase, func() (Event, error) {
		ticket, err := submit()
		if err != nil {
			return Event{MediaID: mediaID}, err
		}
		p.notify(ctx, Event{Kind: EventJobSubmitted, Phase: phase, MediaID: mediaID, RequestID: ticket.RequestID})

		o, err := p.await(ctx, phase, mediaID, ticket.RequestID)
		out = o
		return Event{MediaID: mediaID, RequestID: ticket.RequestID, Status: o.LastStatus}, err
	})
	return out, err
}

// await polls requestID and always returns an outcome describing what was
// observed, together with any error.
func (p *Pipeline) await(ctx context.Context, phase Phase, mediaID, requestID string) (*JobOutcome, error) {
	out := &JobOutcome{
		Phase:     phase,
		MediaID:   mediaID,
		RequestID: requestID,
		StartedAt: time.Now(),
	}

	status, err := p.api.Await(ctx, requestID, p.poller, func(attempt int, st string) {
		out.Attempts = attempt
		out.LastStatus = st
		p.notify(ctx, Event{Kind: EventJobStatus, Phase: phase, MediaID: mediaID, RequestID: requestID, Status: st, Attempt: attempt})
	})
	out.CompletedAt = time.Now()
	out.Status = status

	var failed *stegapi.JobFailedError
	var timeout *stegapi.TimeoutError
	switch {
	case errors.As(err, &failed):
		out.LastStatus = failed.Status
	case errors.As(err, &timeout):
		out.Attempts = timeout.Attempts
		out.LastStatus = timeout.LastStatus
	}

	p.notify(ctx, Event{
		Kind:      EventJobFinished,
		Phase:     phase,
		MediaID:   mediaID,
		RequestID: requestID,
		Status:    out.LastStatus,
		Attempt:   out.Attempts,
		Elapsed:   out.Duration(),
		Err:       err,
		Job:       out,
	})
	return out, err
}

// Download saves the encoded image of job as <name>_encoded.<ext> in the
// output directory.
func (p *Pipeline) Download(ctx context.Context, job *JobOutcome, opts Options) (*stegapi.DownloadResult, error) {
	var res *stegapi.DownloadResult
	err := p.stage(ctx, PhaseDownload, func() (Event, error) {
		ev := Event{RequestID: job.RequestID, MediaID: job.MediaID}

		mediaURL := ""
		if job.Status != nil {
			mediaURL = job.Status.MediaURL()
		}
		if mediaURL == "" {
			return ev, &stegapi.ValidationError{Op: "download", Field: "media_data.media_url", Reason: "is missing from the completed encode status"}
		}

		dest := media.EncodedPath(opts.OutputDir, opts.InputPath)
		p.debug("workflow: downloading %s to %s", mediaURL, dest)
		r, err := p.api.Download(ctx, mediaURL, dest)
		if err != nil {
			return ev, err
		}
		res = r
		ev.Detail = r.Path
		return ev, nil
	})
	return res, err
}

// Report fetches the usage report for q.
func (p *Pipeline) Report(ctx context.Context, q stegapi.UsageQuery) (*stegapi.UsageReport, error) {
	var res *stegapi.UsageReport
	err := p.stage(ctx, PhaseUsage, func() (Event, error) {
		r, err := p.api.Usage(ctx, q)
		if err != nil {
			return Event{}, err
		}
		res = r
		return Event{Detail: fmt.Sprintf("%d items", r.Total)}, nil
	})
	return res, err
}

func licenseOrDefault(l stegapi.License) stegapi.License {
	if len(l) == 0 {
		return stegapi.DefaultLicense()
	}
	return l
}
