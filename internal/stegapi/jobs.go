package stegapi

import (
	"context"
	"net/http"
	"net/url"
)

// Encode starts an asynchronous encode job for an uploaded media file.
func (c *Client) Encode(ctx context.Context, req JobRequest) (*JobTicket, error) {
	return c.submitJob(ctx, "encode", "/encode_image_async", req)
}

// Decode starts an asynchronous decode job for an uploaded media file.
// Only the media ID is sent.
func (c *Client) Decode(ctx context.Context, mediaID string) (*JobTicket, error) {
	return c.submitJob(ctx, "decode", "/decode_image_async", JobRequest{MediaID: mediaID})
}

func (c *Client) submitJob(ctx context.Context, op, path string, req JobRequest) (*JobTicket, error) {
	if req.MediaID == "" {
		return nil, &ValidationError{Op: op, Field: "media_id", Reason: "is required"}
	}

	env, err := c.doJSON(ctx, op, http.MethodPost, path, nil, req)
	if err != nil {
		return nil, err
	}

	var ticket JobTicket
	if err := decodeData(op, env, &ticket); err != nil {
		return nil, err
	}
	if ticket.RequestID == "" {
		return nil, &ValidationError{Op: op, Field: "data.request_id", Reason: "missing or empty"}
	}

	c.debug("%s: media %s -> request %s", op, req.MediaID, ticket.RequestID)
	return &ticket, nil
}

// MediaStatus fetches the current status of an asynchronous job once.
func (c *Client) MediaStatus(ctx context.Context, requestID string) (*StatusResult, error) {
	const op = "media status"

	if requestID == "" {
		return nil, &ValidationError{Op: op, Field: "request_id", Reason: "is required"}
	}

	env, err := c.doJSON(ctx, op, http.MethodGet, "/media_status", url.Values{"request_id": {requestID}}, nil)
	if err != nil {
		return nil, err
	}

	var result StatusResult
	if err := decodeData(op, env, &result); err != nil {
		return nil, err
	}
	if result.Status == "" {
		return nil, &ValidationError{Op: op, Field: "data.status", Reason: "missing or empty"}
	}
	return &result, nil
}
