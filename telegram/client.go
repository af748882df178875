// Package telegram implements the mediabed.BlobStore interface on top of
// the Telegram Bot API: uploads go out as sendDocument calls and reads
// redeem a file_id via getFile before fetching the bytes from the file
// endpoint.
package telegram

import (
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// pathAttempts is the total retry budget for the getFile step. The
// ephemeral file_path is known to be absent transiently right after a
// handle is issued, so only this step is retried.
const pathAttempts = 3

// Config holds the Bot API credentials and target chat.
type Config struct {
	BotToken string
	ChatID   string
	// BaseURL overrides the Bot API host, mainly for tests.
	BaseURL string
	// HTTPClient overrides the default client used for all calls.
	HTTPClient *http.Client
}

// Client talks to the Telegram Bot API. It is safe for concurrent use.
type Client struct {
	token   string
	chatID  string
	baseURL string
	http    *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("new telegram client: bot token cannot be empty")
	}
	if cfg.ChatID == "" {
		return nil, fmt.Errorf("new telegram client: chat id cannot be empty")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		baseURL: baseURL,
		http:    httpClient,
	}, nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) fileURL(path string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, path)
}
