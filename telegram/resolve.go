package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mediabed/mediabed"
)

type getFileResponse struct {
	OK     bool `json:"ok"`
	Result *struct {
		FilePath string `json:"file_path"`
	} `json:"result"`
}

// getFilePath redeems a file handle for its ephemeral path. Returns the
// path and whether the response carried one; transport-level failures are
// returned as errors.
func (c *Client) getFilePath(ctx context.Context, fileID string) (string, bool, error) {
	u := c.methodURL("getFile") + "?file_id=" + url.QueryEscape(fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", mediabed.ErrTransport, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", mediabed.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("%w: getFile status %d", mediabed.ErrTransport, resp.StatusCode)
	}

	var parsed getFileResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, fmt.Errorf("%w: decode getFile response: %v", mediabed.ErrTransport, err)
	}

	if parsed.OK && parsed.Result != nil && parsed.Result.FilePath != "" {
		return parsed.Result.FilePath, true, nil
	}
	return "", false, nil
}

// Resolve redeems a durable file handle for a byte stream.
//
// The getFile step is retried up to pathAttempts times, but only for the
// well-formed-yet-pathless case: the ephemeral path fails transiently on
// first issuance. A transport fault (unreachable endpoint, non-success
// status) aborts immediately with mediabed.ErrTransport, and exhausting
// the budget without a path is mediabed.ErrPathNotFound. The byte fetch
// happens exactly once; a failure there is a terminal content-delivery
// fault (mediabed.ErrFetch) worth surfacing rather than masking.
//
// The caller owns the returned stream and must close it.
func (c *Client) Resolve(ctx context.Context, fileID string) (mediabed.Blob, error) {
	var filePath string
	for attempt := 0; attempt < pathAttempts; attempt++ {
		path, ok, err := c.getFilePath(ctx, fileID)
		if err != nil {
			return mediabed.Blob{}, fmt.Errorf("resolve: %w", err)
		}
		if ok {
			filePath = path
			break
		}
	}

	if filePath == "" {
		return mediabed.Blob{}, fmt.Errorf("resolve: %w", mediabed.ErrPathNotFound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL(filePath), nil)
	if err != nil {
		return mediabed.Blob{}, fmt.Errorf("resolve: %w: %v", mediabed.ErrFetch, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mediabed.Blob{}, fmt.Errorf("resolve: %w: %v", mediabed.ErrFetch, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return mediabed.Blob{}, fmt.Errorf("resolve: %w: status %d", mediabed.ErrFetch, resp.StatusCode)
	}

	return mediabed.Blob{Content: resp.Body, Header: resp.Header.Clone()}, nil
}
