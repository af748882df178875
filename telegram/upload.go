package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/mediabed/mediabed"
)

// fileRef is the fragment of a sendDocument result that carries a handle.
type fileRef struct {
	FileID string `json:"file_id"`
}

// sendResult is the heterogeneous success shape of sendDocument: the
// handle lands under a different key depending on what Telegram detected
// the payload to be.
type sendResult struct {
	Video    *fileRef `json:"video"`
	Document *fileRef `json:"document"`
	Sticker  *fileRef `json:"sticker"`
}

type sendResponse struct {
	OK          bool        `json:"ok"`
	Description string      `json:"description"`
	Result      *sendResult `json:"result"`
}

// fileIDExtractors is the priority order in which the result shapes are
// probed for a handle.
var fileIDExtractors = []func(*sendResult) (string, bool){
	func(r *sendResult) (string, bool) {
		if r.Video != nil && r.Video.FileID != "" {
			return r.Video.FileID, true
		}
		return "", false
	},
	func(r *sendResult) (string, bool) {
		if r.Document != nil && r.Document.FileID != "" {
			return r.Document.FileID, true
		}
		return "", false
	},
	func(r *sendResult) (string, bool) {
		if r.Sticker != nil && r.Sticker.FileID != "" {
			return r.Sticker.FileID, true
		}
		return "", false
	},
}

func extractFileID(r *sendResult) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, extract := range fileIDExtractors {
		if id, ok := extract(r); ok {
			return id, true
		}
	}
	return "", false
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// filePart creates a multipart file part carrying an explicit content
// type. multipart.Writer.CreateFormFile always labels parts as
// application/octet-stream, which loses the (possibly rewritten) type.
func filePart(w *multipart.Writer, fieldName, fileName, contentType string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(fieldName), quoteEscaper.Replace(fileName)))
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}

// Upload forwards a document to the configured chat via sendDocument and
// returns the file handle Telegram issued for it.
//
// A non-success status is mediabed.ErrUpstream, carrying Telegram's own
// description when the error body has one. A success response without a
// recognizable handle under any known shape is mediabed.ErrNoFileID.
func (c *Client) Upload(ctx context.Context, doc mediabed.Document) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("chat_id", c.chatID); err != nil {
		return "", fmt.Errorf("upload: write chat_id: %w", err)
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	part, err := filePart(mw, "document", doc.Name, contentType)
	if err != nil {
		return "", fmt.Errorf("upload: create document part: %w", err)
	}
	if _, err := io.Copy(part, doc.Content); err != nil {
		return "", fmt.Errorf("upload: copy document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("upload: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &buf)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w: %v", mediabed.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("upload: read response: %w", err)
	}

	var parsed sendResponse
	if resp.StatusCode != http.StatusOK {
		// Surface Telegram's own description when the error body has one.
		_ = json.Unmarshal(body, &parsed)
		if parsed.Description != "" {
			return "", fmt.Errorf("upload: %w: %s", mediabed.ErrUpstream, parsed.Description)
		}
		return "", fmt.Errorf("upload: %w: status %d", mediabed.ErrUpstream, resp.StatusCode)
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("upload: decode response: %w", err)
	}

	fileID, ok := extractFileID(parsed.Result)
	if !ok {
		return "", fmt.Errorf("upload: %w", mediabed.ErrNoFileID)
	}

	return fileID, nil
}
