package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/stegai/steg-cli/internal/events"
	"github.com/stegai/steg-cli/internal/history"
	"github.com/stegai/steg-cli/internal/poll"
	"github.com/stegai/steg-cli/internal/stegapi"
)

// fakeAPI answers every call from fields so stages can be tested alone.
type fakeAPI struct {
	uploads   []stegapi.UploadOptions
	uploadErr error

	encodeReqs []stegapi.JobRequest
	decodeIDs  []string

	statuses []string // returned in order by Await's callback
	final    *stegapi.StatusResult
	awaitErr error

	downloads   []string
	downloadErr error

	usage    *stegapi.UsageReport
	usageErr error
}

func (f *fakeAPI) Upload(_ context.Context, opts stegapi.UploadOptions) (*stegapi.UploadResult, error) {
	f.uploads = append(f.uploads, opts)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &stegapi.UploadResult{MediaID: "media-" + opts.Name}, nil
}

func (f *fakeAPI) Encode(_ context.Context, req stegapi.JobRequest) (*stegapi.JobTicket, error) {
	f.encodeReqs = append(f.encodeReqs, req)
	return &stegapi.JobTicket{RequestID: "enc-" + req.MediaID}, nil
}

func (f *fakeAPI) Decode(_ context.Context, mediaID string) (*stegapi.JobTicket, error) {
	f.decodeIDs = append(f.decodeIDs, mediaID)
	return &stegapi.JobTicket{RequestID: "dec-" + mediaID}, nil
}

func (f *fakeAPI) Await(_ context.Context, requestID string, _ *poll.Poller, onStatus stegapi.StatusFunc) (*stegapi.StatusResult, error) {
	for i, st := range f.statuses {
		onStatus(i+1, st)
	}
	if f.awaitErr != nil {
		return nil, f.awaitErr
	}
	return f.final, nil
}

func (f *fakeAPI) Download(_ context.Context, mediaURL, destPath string) (*stegapi.DownloadResult, error) {
	f.downloads = append(f.downloads, mediaURL+" -> "+destPath)
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return &stegapi.DownloadResult{Path: destPath, Bytes: 3}, nil
}

func (f *fakeAPI) Usage(_ context.Context, _ stegapi.UsageQuery) (*stegapi.UsageReport, error) {
	return f.usage, f.usageErr
}

func completed(mediaURL string) *stegapi.StatusResult {
	md, _ := json.Marshal(map[string]string{"media_url": mediaURL})
	return &stegapi.StatusResult{Status: stegapi.StatusCompleted, MediaData: md}
}

func newFakePipeline(t *testing.T, api API, observers ...Observer) *Pipeline {
	t.Helper()
	p, err := New(Config{API: api, Poll: fastPoll(5), Observers: observers, RunID: "run-fake"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestUploadOriginalDerivesNameAndType(t *testing.T) {
	api := &fakeAPI{}
	p := newFakePipeline(t, api)

	res, err := p.UploadOriginal(context.Background(), Options{InputPath: "/photos/holiday.JPG"})
	if err != nil {
		t.Fatalf("UploadOriginal: %v", err)
	}
	if res.MediaID != "media-holiday" {
		t.Errorf("MediaID = %q", res.MediaID)
	}
	got := api.uploads[0]
	if got.Name != "holiday" || got.ContentType != "image/jpeg" || got.RequestType != stegapi.RequestTypeEncode {
		t.Errorf("upload options = %+v", got)
	}
	if got.License["editorial"] != true {
		t.Errorf("License = %v, want default editorial license", got.License)
	}
}

func TestUploadContentTypeOverride(t *testing.T) {
	api := &fakeAPI{}
	p := newFakePipeline(t, api)

	if _, err := p.UploadOriginal(context.Background(), Options{InputPath: "scan", ContentType: "image/png"}); err != nil {
		t.Fatalf("UploadOriginal: %v", err)
	}
	if api.uploads[0].ContentType != "image/png" {
		t.Errorf("ContentType = %q", api.uploads[0].ContentType)
	}
}

func TestUploadWithoutExtensionFails(t *testing.T) {
	api := &fakeAPI{}
	p := newFakePipeline(t, api)

	_, err := p.UploadOriginal(context.Background(), Options{InputPath: "scan"})
	var ve *stegapi.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if PhaseOf(err) != PhaseUploadOriginal {
		t.Errorf("phase = %q", PhaseOf(err))
	}
	if len(api.uploads) != 0 {
		t.Error("Upload should not be called")
	}
}

func TestEncodeSendsOptions(t *testing.T) {
	api := &fakeAPI{statuses: []string{"Processing.", stegapi.StatusCompleted}, final: completed("u")}
	rec := &recorder{}
	p := newFakePipeline(t, api, rec)

	out, err := p.Encode(context.Background(), "m1", Options{Owner: "Ada", Method: 2, License: stegapi.License{"commercial": true}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	req := api.encodeReqs[0]
	if req.MediaID != "m1" || req.Owner != "Ada" || req.Method == nil || *req.Method != 2 {
		t.Errorf("encode request = %+v", req)
	}
	if req.License["commercial"] != true {
		t.Errorf("License = %v", req.License)
	}
	if out.RequestID != "enc-m1" || out.Attempts != 2 || out.LastStatus != stegapi.StatusCompleted {
		t.Errorf("outcome = %+v", out)
	}

	statuses := rec.kinds(EventJobStatus)
	if len(statuses) != 2 || statuses[0].Status != "Processing." || statuses[1].Attempt != 2 {
		t.Errorf("status events = %+v", statuses)
	}
	if len(rec.kinds(EventJobSubmitted)) != 1 || len(rec.kinds(EventJobFinished)) != 1 {
		t.Error("expected one submitted and one finished event")
	}
}

func TestDownloadRequiresMediaURL(t *testing.T) {
	api := &fakeAPI{}
	p := newFakePipeline(t, api)

	job := &JobOutcome{RequestID: "r1", Status: &stegapi.StatusResult{Status: stegapi.StatusCompleted}}
	_, err := p.Download(context.Background(), job, Options{InputPath: "cat.png"})

	var ve *stegapi.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if PhaseOf(err) != PhaseDownload {
		t.Errorf("phase = %q", PhaseOf(err))
	}
	if len(api.downloads) != 0 {
		t.Error("Download should not be called")
	}
}

func TestDownloadNamesEncodedFile(t *testing.T) {
	api := &fakeAPI{}
	p := newFakePipeline(t, api)

	job := &JobOutcome{RequestID: "r1", Status: completed("https://cdn/x.png")}
	res, err := p.Download(context.Background(), job, Options{InputPath: "/in/cat.png", OutputDir: "/out"})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if want := filepath.Join("/out", "cat_encoded.png"); res.Path != want {
		t.Errorf("Path = %q, want %q", res.Path, want)
	}
}

func TestFailuresNameTheirPhase(t *testing.T) {
	transport := &stegapi.TransportError{Op: "x", StatusCode: 503}

	tests := []struct {
		name      string
		api       *fakeAPI
		wantPhase Phase
	}{
		{"upload", &fakeAPI{uploadErr: transport}, PhaseUploadOriginal},
		{"encode await", &fakeAPI{awaitErr: &stegapi.JobFailedError{RequestID: "enc-media-cat", Status: "Failed."}}, PhaseEncode},
		{"download", &fakeAPI{final: completed("u"), downloadErr: transport}, PhaseDownload},
		{"usage", &fakeAPI{final: completed("u"), usageErr: &stegapi.RequestError{Op: "usage", StatusCode: 400}}, PhaseUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePipeline(t, tt.api)
			_, err := p.Run(context.Background(), Options{InputPath: "cat.png", OutputDir: t.TempDir()})
			if err == nil {
				t.Fatal("Run should fail")
			}
			if PhaseOf(err) != tt.wantPhase {
				t.Errorf("phase = %q, want %q (err %v)", PhaseOf(err), tt.wantPhase, err)
			}
		})
	}
}

func TestDecodeFailureAfterReupload(t *testing.T) {
	api := &decodeFailsAPI{fakeAPI: fakeAPI{final: completed("u"), usage: &stegapi.UsageReport{}}}
	p := newFakePipeline(t, api)

	res, err := p.Run(context.Background(), Options{InputPath: "cat.png", OutputDir: t.TempDir()})
	if PhaseOf(err) != PhaseDecode {
		t.Fatalf("phase = %q, want decode (err %v)", PhaseOf(err), err)
	}
	if res.Encoded == nil || res.Encoded.MediaID != "media-cat_encoded" {
		t.Errorf("Encoded = %+v", res.Encoded)
	}
	if len(api.decodeIDs) != 1 || api.decodeIDs[0] != "media-cat_encoded" {
		t.Errorf("decode IDs = %v, want the re-uploaded media", api.decodeIDs)
	}
}

// decodeFailsAPI completes the encode job and fails the decode job.
type decodeFailsAPI struct {
	fakeAPI
}

func (d *decodeFailsAPI) Await(ctx context.Context, requestID string, p *poll.Poller, onStatus stegapi.StatusFunc) (*stegapi.StatusResult, error) {
	if len(d.decodeIDs) > 0 {
		return nil, &stegapi.JobFailedError{RequestID: requestID, Status: "Error: no watermark"}
	}
	return d.fakeAPI.Await(ctx, requestID, p, onStatus)
}

func TestCancelledContextStopsRun(t *testing.T) {
	api := &fakeAPI{awaitErr: context.Canceled}
	p := newFakePipeline(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, Options{InputPath: "cat.png"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestHistoryObserverRecordsJobs(t *testing.T) {
	store, err := history.OpenStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	api := &fakeAPI{statuses: []string{stegapi.StatusCompleted}, final: completed("u"), usage: &stegapi.UsageReport{Total: 1}}
	obs := NewHistoryObserver(store, "cat.png", nil)
	p := newFakePipeline(t, api, obs)

	if _, err := p.Run(context.Background(), Options{InputPath: "cat.png", OutputDir: t.TempDir()}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records, err := store.ByRun("run-fake")
	if err != nil {
		t.Fatalf("ByRun: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	enc, dec := records[0], records[1]
	if enc.Kind != string(PhaseEncode) || enc.RequestID != "enc-media-cat" || enc.Outcome != history.OutcomeCompleted {
		t.Errorf("encode record = %+v", enc)
	}
	if filepath.Base(enc.OutputPath) != "cat_encoded.png" {
		t.Errorf("encode OutputPath = %q", enc.OutputPath)
	}
	if enc.SourcePath != "cat.png" || enc.Attempts != 1 {
		t.Errorf("encode record = %+v", enc)
	}
	if dec.Kind != string(PhaseDecode) || dec.MediaID != "media-cat_encoded" {
		t.Errorf("decode record = %+v", dec)
	}
}

func TestHistoryOutcomes(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, history.OutcomeCompleted},
		{&stegapi.JobFailedError{}, history.OutcomeFailed},
		{&StageError{Phase: PhaseEncode, Err: &stegapi.TimeoutError{}}, history.OutcomeTimeout},
		{errors.New("boom"), history.OutcomeError},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestEventsObserverPublishes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	pub, err := events.NewRedisPublisher(events.RedisPublisherConfig{RedisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisPublisher: %v", err)
	}
	defer pub.Close()

	api := &fakeAPI{statuses: []string{stegapi.StatusCompleted}, final: completed("u"), usage: &stegapi.UsageReport{}}
	p := newFakePipeline(t, api, NewEventsObserver(pub, nil))

	if _, err := p.Run(context.Background(), Options{InputPath: "cat.png", OutputDir: t.TempDir()}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer raw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	entries, err := raw.XRange(ctx, pub.StreamName(), "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no events on the stream")
	}
	if entries[0].Values["type"] != events.TypeRunStarted {
		t.Errorf("first event = %v, want %s", entries[0].Values["type"], events.TypeRunStarted)
	}
	last := entries[len(entries)-1]
	if last.Values["type"] != events.TypeRunFinished || last.Values["runId"] != "run-fake" {
		t.Errorf("last event = %v", last.Values)
	}
}
