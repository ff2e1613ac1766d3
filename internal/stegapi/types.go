// Package stegapi is a typed HTTP client for the Steg.AI media API.
//
// Every call is authenticated with the x-api-key header and every response
// body is an envelope of the form {"message": ..., "data": ...}. The client
// validates the shape of "data" before handing fields to the caller, so a
// missing media_id or request_id surfaces as a ValidationError instead of a
// zero value.
package stegapi

import (
	"encoding/json"
	"strings"
)

// Request types accepted by the upload endpoint. The service uses them to
// decide whether to generate thumbnails.
const (
	RequestTypeEncode = "encode"
	RequestTypeDecode = "decode"
)

// StatusCompleted is the literal status the service reports when a job has
// finished successfully. The trailing period is part of the value.
const StatusCompleted = "Completed."

// License describes usage rights attached to a media file. The client
// passes it through without interpreting it.
type License map[string]any

// DefaultLicense is the license the sample workflow attaches to uploads.
func DefaultLicense() License {
	return License{"editorial": true}
}

// envelope is the common wrapper around every API response.
type envelope struct {
	Message json.RawMessage `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// UploadRequest is the body of POST /upload.
type UploadRequest struct {
	Name        string         `json:"name"`
	ContentType string         `json:"content_type"`
	RequestType string         `json:"request_type,omitempty"`
	Owner       string         `json:"owner,omitempty"`
	License     License        `json:"license,omitempty"`
	Custom      map[string]any `json:"custom,omitempty"`
}

// PostTo is the presigned upload target returned in an upload ticket.
type PostTo struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// UploadTicket is the data payload of a successful POST /upload.
type UploadTicket struct {
	PostTo  PostTo `json:"post_to"`
	MediaID string `json:"media_id"`
}

// JobRequest is the body of the encode and decode endpoints. Decode only
// uses MediaID.
type JobRequest struct {
	MediaID string         `json:"media_id"`
	License License        `json:"license,omitempty"`
	Owner   string         `json:"owner,omitempty"`
	Method  *int           `json:"method,omitempty"`
	Custom  map[string]any `json:"custom,omitempty"`
}

// JobTicket identifies an asynchronous encode or decode job.
type JobTicket struct {
	RequestID string `json:"request_id"`
}

// StatusResult is the data payload of GET /media_status.
type StatusResult struct {
	Status    string          `json:"status"`
	MediaData json.RawMessage `json:"media_data,omitempty"`
}

// Completed reports whether the job finished successfully.
func (s *StatusResult) Completed() bool {
	return s.Status == StatusCompleted
}

// Failed reports whether the status is a terminal failure.
func (s *StatusResult) Failed() bool {
	st := strings.ToLower(strings.TrimSpace(s.Status))
	for _, prefix := range []string{"fail", "error", "cancel", "rejected"} {
		if strings.HasPrefix(st, prefix) {
			return true
		}
	}
	return false
}

// MediaURL returns media_data.media_url, or "" when the payload has none.
func (s *StatusResult) MediaURL() string {
	if len(s.MediaData) == 0 {
		return ""
	}
	var md struct {
		MediaURL string `json:"media_url"`
	}
	if err := json.Unmarshal(s.MediaData, &md); err != nil {
		return ""
	}
	return md.MediaURL
}

// UsageReport is the result of GET /usage. Items keep the server's order
// and are left as raw JSON objects.
type UsageReport struct {
	Total int
	Items []json.RawMessage
}
