// Package bing proxies the Bing wallpaper-of-the-day API, caching the
// reshaped answer in the edge cache under the upstream URL.
package bing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mediabed/mediabed"
)

const defaultEndpoint = "https://cn.bing.com/HPImageArchive.aspx?format=js&idx=0&n=5"

type Config struct {
	// Endpoint overrides the wallpaper archive URL, mainly for tests.
	Endpoint   string
	HTTPClient *http.Client
}

type Client struct {
	endpoint string
	http     *http.Client
	cache    mediabed.EdgeCache
}

func New(cfg Config, cache mediabed.EdgeCache) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{endpoint: endpoint, http: httpClient, cache: cache}
}

type archiveResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Image is one wallpaper entry in the reshaped answer.
type Image struct {
	URL string `json:"url"`
}

// Result is the response shape served to clients.
type Result struct {
	Status  bool    `json:"status"`
	Message string  `json:"message"`
	Data    []Image `json:"data"`
}

// Daily returns the wallpaper list as a complete response, served from
// the edge cache when present. Upstream rejection is passed through with
// the upstream status and is not cached.
func (c *Client) Daily(ctx context.Context) (mediabed.CachedResponse, error) {
	if resp, ok := c.cache.Get(c.endpoint); ok {
		return resp, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return mediabed.CachedResponse{}, fmt.Errorf("bing daily: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mediabed.CachedResponse{}, fmt.Errorf("bing daily: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		h := make(http.Header, 1)
		h.Set("Content-Type", "text/plain; charset=utf-8")
		return mediabed.CachedResponse{
			Status: resp.StatusCode,
			Header: h,
			Body:   []byte("bing api request failed"),
		}, nil
	}

	var archive archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&archive); err != nil {
		return mediabed.CachedResponse{}, fmt.Errorf("bing daily: decode response: %w", err)
	}

	result := Result{Status: true, Message: "ok", Data: make([]Image, 0, len(archive.Images))}
	for _, img := range archive.Images {
		result.Data = append(result.Data, Image{URL: "https://cn.bing.com" + img.URL})
	}

	body, err := json.Marshal(result)
	if err != nil {
		return mediabed.CachedResponse{}, fmt.Errorf("bing daily: encode result: %w", err)
	}

	h := make(http.Header, 1)
	h.Set("Content-Type", "application/json")
	cached := mediabed.CachedResponse{Status: http.StatusOK, Header: h, Body: body}
	c.cache.Put(c.endpoint, cached)
	return cached, nil
}
