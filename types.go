package mediabed

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Media is a catalog row mapping a stable public URL to the Telegram
// file handle holding the actual bytes. The URL is the primary key and
// the file handle is write-once.
type Media struct {
	URL        string     `json:"url"`
	FileID     string     `json:"fileId"`
	FolderID   *uuid.UUID `json:"folder_id"`
	UploadedAt time.Time  `json:"uploaded_at"`
	FileSize   int64      `json:"file_size"`
}

// Folder groups media rows on the admin surface. Media rows reference
// folders by ID only; deleting a folder clears the references first so
// no dangling reference is ever observable.
type Folder struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Upload is an incoming file from the upload endpoint. Index and Total
// are client-supplied batch markers passed through unchanged.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
	Index       string
	Total       string
}

// Document is a payload forwarded to the remote blob service. Its name
// and content type may differ from the originating Upload (see the GIF
// relabeling in Service.Ingest); the bytes are always forwarded as-is.
type Document struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Blob is a resolved byte stream from the remote blob service together
// with the headers the remote content endpoint answered with.
type Blob struct {
	Content io.ReadCloser
	Header  http.Header
}

// CachedResponse is a complete HTTP response as held by the edge cache,
// keyed by the stable request URL.
type CachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewCachedResponse builds a response with a copied header map so cached
// entries never alias a live request's headers.
func NewCachedResponse(status int, header http.Header, body []byte) CachedResponse {
	h := make(http.Header, len(header))
	for k, v := range header {
		h[k] = append([]string(nil), v...)
	}
	return CachedResponse{Status: status, Header: h, Body: body}
}

// Tables holds configurable table names for the catalog.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Media   string `mapstructure:"media"`
	Folders string `mapstructure:"folders"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	for _, name := range []string{t.Media, t.Folders} {
		if name == "" {
			return errors.New("validate tables: table name cannot be empty")
		}
		if !IsValidTableName(name) {
			return fmt.Errorf("validate tables: invalid table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", name)
		}
	}
	return nil
}
