package stegapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// DownloadResult describes a file fetched from a media URL.
type DownloadResult struct {
	Path   string
	Bytes  int64
	SHA256 string
}

// Download fetches mediaURL into destPath. The body is written to a
// temporary file next to destPath and renamed into place once complete.
// Media URLs are pre-signed, so no API key is sent.
func (c *Client) Download(ctx context.Context, mediaURL, destPath string) (*DownloadResult, error) {
	const op = "download"

	if mediaURL == "" {
		return nil, &ValidationError{Op: op, Field: "media_url", Reason: "is empty"}
	}

	var result *DownloadResult
	err := c.withRetry(ctx, op, func() error {
		var err error
		result, err = c.downloadOnce(ctx, op, mediaURL, destPath)
		return err
	})
	return result, err
}

func (c *Client) downloadOnce(ctx context.Context, op, mediaURL, destPath string) (*DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, &ValidationError{Op: op, Field: "media_url", Err: err}
	}

	c.debug("request: GET %s", mediaURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err := classifyStatus(op, resp.StatusCode, body); err != nil {
			return nil, err
		}
		return nil, &RequestError{Op: op, StatusCode: resp.StatusCode, Message: "unexpected status"}
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".*.part")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), resp.Body)
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmpPath)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to write file: %w", err)}
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to move download into place: %w", err)
	}

	c.debug("download: wrote %d bytes to %s", n, destPath)
	return &DownloadResult{Path: destPath, Bytes: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}
