package stegapi

import (
	"context"
	"errors"
	"time"

	"github.com/stegai/steg-cli/internal/poll"
)

// StatusFunc is called with every status observed while awaiting a job.
type StatusFunc func(attempt int, status string)

// Await polls /media_status until the job completes, fails or the poller's
// bound is exhausted. It returns a *JobFailedError for terminal failure
// statuses and a *TimeoutError when the bound is exhausted.
func (c *Client) Await(ctx context.Context, requestID string, poller *poll.Poller, onStatus StatusFunc) (*StatusResult, error) {
	if poller == nil {
		poller = poll.New(poll.Config{})
	}

	start := time.Now()
	var last *StatusResult

	attempts, err := poller.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		result, err := c.MediaStatus(ctx, requestID)
		if err != nil {
			// Transient failures were already retried by the client;
			// what reaches here is fatal.
			return false, err
		}
		last = result

		if onStatus != nil {
			onStatus(attempt, result.Status)
		}
		c.debug("media status: request %s attempt %d status %q", requestID, attempt, result.Status)

		if result.Completed() {
			return true, nil
		}
		if result.Failed() {
			return false, &JobFailedError{
				RequestID: requestID,
				Status:    result.Status,
				MediaData: result.MediaData,
			}
		}
		return false, nil
	})

	if err != nil {
		if errors.Is(err, poll.ErrExhausted) {
			te := &TimeoutError{RequestID: requestID, Attempts: attempts, Elapsed: time.Since(start)}
			if last != nil {
				te.LastStatus = last.Status
			}
			return nil, te
		}
		return nil, err
	}
	return last, nil
}
