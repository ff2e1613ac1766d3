package stegapi

import (
	"errors"
	"fmt"
	"time"
)

// TransportError is a network or server-side failure (connection errors,
// HTTP 5xx, HTTP 429). The client retries these a bounded number of times
// before returning one to the caller.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("%s: server returned status %d: %s", e.Op, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s: server returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError means the API key was missing or rejected.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return "authentication failed: " + e.Message
	}
	if e.Message != "" {
		return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("authentication failed (status %d)", e.StatusCode)
}

// RequestError is a 4xx response other than an authentication failure.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: request rejected with status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: request rejected with status %d", e.Op, e.StatusCode)
}

// ValidationError reports a response (or local input) that does not have
// the expected shape.
type ValidationError struct {
	Op     string
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := e.Op + ": invalid"
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// JobFailedError is returned when the service reports a terminal failure
// status for an asynchronous job.
type JobFailedError struct {
	RequestID string
	Status    string
	MediaData []byte
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed with status %q", e.RequestID, e.Status)
}

// TimeoutError is returned when a job did not complete within the polling
// bound.
type TimeoutError struct {
	RequestID  string
	Attempts   int
	Elapsed    time.Duration
	LastStatus string
}

func (e *TimeoutError) Error() string {
	if e.LastStatus != "" {
		return fmt.Sprintf("job %s did not complete after %d attempts (%s), last status %q",
			e.RequestID, e.Attempts, e.Elapsed.Round(time.Millisecond), e.LastStatus)
	}
	return fmt.Sprintf("job %s did not complete after %d attempts (%s)",
		e.RequestID, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// IsRetryable reports whether err is a transient transport failure.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
