package stegapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
)

// UploadOptions describes a local file to upload.
type UploadOptions struct {
	// Path is the local file to upload (required)
	Path string

	// Name is the media name sent to the service (required)
	Name string

	// ContentType is the file's MIME type, e.g. "image/png" (required)
	ContentType string

	// RequestType is RequestTypeEncode or RequestTypeDecode
	RequestType string

	Owner   string
	License License
	Custom  map[string]any
}

// UploadResult is the outcome of a completed upload.
type UploadResult struct {
	MediaID string
	Ticket  UploadTicket
	Bytes   int64
}

// Upload requests a presigned upload ticket and posts the file to it.
// The returned media_id identifies the file in later calls.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) (*UploadResult, error) {
	if opts.Path == "" {
		return nil, &ValidationError{Op: "upload", Field: "path", Reason: "is required"}
	}
	if opts.Name == "" || opts.ContentType == "" {
		return nil, &ValidationError{Op: "upload", Field: "name/content_type", Reason: "are required"}
	}
	switch opts.RequestType {
	case "", RequestTypeEncode, RequestTypeDecode:
	default:
		return nil, &ValidationError{Op: "upload", Field: "request_type", Reason: fmt.Sprintf("must be %q or %q, got %q", RequestTypeEncode, RequestTypeDecode, opts.RequestType)}
	}

	// Read the file before asking for a ticket so a bad path does not
	// leave a dangling media record on the server.
	data, err := os.ReadFile(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", opts.Path, err)
	}

	ticket, err := c.RequestUploadTicket(ctx, UploadRequest{
		Name:        opts.Name,
		ContentType: opts.ContentType,
		RequestType: opts.RequestType,
		Owner:       opts.Owner,
		License:     opts.License,
		Custom:      opts.Custom,
	})
	if err != nil {
		return nil, err
	}

	if err := c.PostFile(ctx, ticket.PostTo, filepath.Base(opts.Path), data); err != nil {
		return nil, err
	}

	c.debug("upload: stored %d bytes as media %s", len(data), ticket.MediaID)
	return &UploadResult{MediaID: ticket.MediaID, Ticket: *ticket, Bytes: int64(len(data))}, nil
}

// RequestUploadTicket calls POST /upload and returns the presigned ticket.
func (c *Client) RequestUploadTicket(ctx context.Context, req UploadRequest) (*UploadTicket, error) {
	const op = "upload"

	env, err := c.doJSON(ctx, op, http.MethodPost, "/upload", nil, req)
	if err != nil {
		return nil, err
	}

	var ticket UploadTicket
	if err := decodeData(op, env, &ticket); err != nil {
		return nil, err
	}
	if ticket.MediaID == "" {
		return nil, &ValidationError{Op: op, Field: "data.media_id", Reason: "missing or empty"}
	}
	if ticket.PostTo.URL == "" {
		return nil, &ValidationError{Op: op, Field: "data.post_to.url", Reason: "missing or empty"}
	}
	if ticket.PostTo.Fields == nil {
		ticket.PostTo.Fields = map[string]string{}
	}
	return &ticket, nil
}

// PostFile submits data to a presigned URL as a multipart form containing
// every ticket field unchanged plus the file under the key "file".
func (c *Client) PostFile(ctx context.Context, target PostTo, filename string, data []byte) error {
	const op = "presigned upload"

	body, contentType, err := buildUploadForm(target.Fields, filename, data)
	if err != nil {
		return fmt.Errorf("%s: failed to build form: %w", op, err)
	}

	return c.withRetry(ctx, op, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("%s: failed to create request: %w", op, err)
		}
		req.Header.Set("Content-Type", contentType)

		c.debug("request: POST %s (multipart, %d fields, %d file bytes)", target.URL, len(target.Fields), len(data))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransportError{Op: op, Err: err}
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.debug("response: %d", resp.StatusCode)
		return classifyStatus(op, resp.StatusCode, respBody)
	})
}

// buildUploadForm encodes the ticket fields in sorted order followed by the
// file part. Presigned POST targets require the file to be the last part.
func buildUploadForm(fields map[string]string, filename string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
