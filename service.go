package mediabed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BlobStore is the remote blob service holding the actual media bytes.
//
// Upload forwards a document and returns the durable, opaque file handle
// the service issued for it. A rejected upload is reported as ErrUpstream
// (with the service's own description when available) and a well-formed
// response without any recognizable handle as ErrNoFileID.
//
// Resolve redeems a file handle for a byte stream. The handle-to-path
// step is retried a bounded number of times because the ephemeral path is
// known to fail transiently on first issuance; exhausting the budget is
// ErrPathNotFound. A transport-level failure on the metadata endpoint is
// ErrTransport and is never retried. The byte fetch itself happens exactly
// once; a failure there is ErrFetch.
type BlobStore interface {
	Upload(ctx context.Context, doc Document) (string, error)
	Resolve(ctx context.Context, fileID string) (Blob, error)
}

// EdgeCache is a best-effort cache of complete HTTP responses keyed by the
// stable request URL. It holds negative ("not found") results as well as
// positive ones and may be observed stale until the explicit eviction that
// follows a catalog mutation. All operations are best-effort; a miss or a
// failed store only costs a repeated backend lookup.
type EdgeCache interface {
	Get(key string) (CachedResponse, bool)
	Put(key string, resp CachedResponse)
	Delete(key string)
}

// ServiceConfig holds configuration for the media service.
type ServiceConfig struct {
	// Domain is the host under which stable URLs are minted.
	Domain string
}

// Service orchestrates the catalog, the edge cache, and the remote blob
// store. It owns the only paths with cross-store consistency concerns:
// resolution (cache -> catalog -> remote -> cache), ingestion
// (remote -> catalog), and mutation (catalog -> cache eviction).
type Service struct {
	catalog Catalog
	blobs   BlobStore
	cache   EdgeCache
	domain  string
	now     func() time.Time
}

func NewService(catalog Catalog, blobs BlobStore, cache EdgeCache, cfg ServiceConfig) (*Service, error) {
	if cfg.Domain == "" {
		return nil, fmt.Errorf("new service: %w: domain cannot be empty", ErrInvalidInput)
	}
	return &Service{
		catalog: catalog,
		blobs:   blobs,
		cache:   cache,
		domain:  cfg.Domain,
		now:     time.Now,
	}, nil
}

// Resolve turns a stable URL into a complete response, consulting the edge
// cache before the catalog and the catalog before the remote service.
//
// Permanent absence (no catalog row, or a handle the remote service never
// yields a path for) produces a 404 that is stored back into the cache so
// dead links stop hitting the catalog. Transient upstream faults
// (ErrTransport, ErrFetch) and catalog faults are returned as errors and
// deliberately never cached, so a temporarily unavailable resource
// self-heals on the next request.
func (s *Service) Resolve(ctx context.Context, requestURL string) (CachedResponse, error) {
	if err := ctx.Err(); err != nil {
		return CachedResponse{}, fmt.Errorf("resolve %s: %w", requestURL, err)
	}

	if resp, ok := s.cache.Get(requestURL); ok {
		return resp, nil
	}

	fileID, err := s.catalog.LookupFileID(ctx, requestURL)
	if errors.Is(err, ErrNotFound) {
		resp := plainResponse(http.StatusNotFound, "resource not found")
		s.cache.Put(requestURL, resp)
		return resp, nil
	}
	if err != nil {
		return CachedResponse{}, fmt.Errorf("resolve %s: %w", requestURL, err)
	}

	blob, err := s.blobs.Resolve(ctx, fileID)
	if errors.Is(err, ErrPathNotFound) {
		resp := plainResponse(http.StatusNotFound, "file path not found")
		s.cache.Put(requestURL, resp)
		return resp, nil
	}
	if err != nil {
		return CachedResponse{}, fmt.Errorf("resolve %s: %w", requestURL, err)
	}
	defer func() { _ = blob.Content.Close() }()

	body, err := io.ReadAll(blob.Content)
	if err != nil {
		return CachedResponse{}, fmt.Errorf("resolve %s: read content: %w: %v", requestURL, ErrFetch, err)
	}

	resp := NewCachedResponse(http.StatusOK, blob.Header, body)
	resp.Header.Set("Content-Type", ContentTypeForURL(requestURL))
	resp.Header.Set("Content-Disposition", "inline")
	resp.Header.Set("Cache-Control", "public, max-age=31536000")
	s.cache.Put(requestURL, resp)
	return resp, nil
}

var gifSuffix = regexp.MustCompile(`(?i)\.gif$`)

// normalizeUpload rewrites animated-image payloads at the container level
// only: a GIF keeps its bytes but is forwarded under a .jpeg name with an
// image/jpeg type. The stable URL still uses the original extension, so
// the served Content-Type stays image/gif.
func normalizeUpload(up Upload) Document {
	doc := Document{
		Name:        up.FileName,
		ContentType: up.ContentType,
		Size:        up.Size,
		Content:     up.Content,
	}
	if strings.HasPrefix(up.ContentType, "image/gif") {
		doc.Name = gifSuffix.ReplaceAllString(up.FileName, ".jpeg")
		doc.ContentType = "image/jpeg"
	}
	return doc
}

// Ingest forwards an uploaded file to the remote blob service, mints a
// stable URL from the upload timestamp and the original file extension,
// and records the mapping in the catalog. A URL collision (same
// millisecond, same extension) is silently absorbed: the insert is
// idempotent and the first writer wins.
//
// Ingest never touches the edge cache; a freshly minted URL has never
// been requested. Authentication is enforced by the caller before any
// remote traffic is generated.
func (s *Service) Ingest(ctx context.Context, up Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("ingest: %w", err)
	}

	if up.Content == nil || up.FileName == "" {
		return "", fmt.Errorf("ingest: %w: missing file", ErrInvalidInput)
	}

	fileID, err := s.blobs.Upload(ctx, normalizeUpload(up))
	if err != nil {
		return "", fmt.Errorf("ingest %s: %w", up.FileName, err)
	}

	ext := FileExtension(up.FileName)
	if ext == "" {
		ext = up.FileName
	}

	now := s.now()
	url := fmt.Sprintf("https://%s/%d.%s", s.domain, now.UnixMilli(), ext)

	m := Media{
		URL:        url,
		FileID:     fileID,
		UploadedAt: now.UTC(),
		FileSize:   up.Size,
	}
	if err := s.catalog.InsertMediaIfAbsent(ctx, m); err != nil {
		return "", fmt.Errorf("ingest %s: %w", up.FileName, err)
	}

	return url, nil
}

// DeleteMedia removes catalog rows and evicts the corresponding cache
// entries. Eviction runs for every URL in the input regardless of whether
// it matched a row, so a cached negative entry for an already-absent URL
// is cleared too. The two steps are sequential and independent: a delete
// that committed is never rolled back by a cache problem.
//
// Returns ErrInvalidInput for an empty batch and ErrNotFound when no row
// matched at all.
func (s *Service) DeleteMedia(ctx context.Context, urls []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("delete media: %w", err)
	}

	if len(urls) == 0 {
		return 0, fmt.Errorf("delete media: %w: empty batch", ErrInvalidInput)
	}

	n, err := s.catalog.DeleteMedia(ctx, urls)
	if err != nil {
		return 0, fmt.Errorf("delete media: %w", err)
	}

	for _, u := range urls {
		s.cache.Delete(u)
	}

	if n == 0 {
		return 0, fmt.Errorf("delete media: %w", ErrNotFound)
	}

	return n, nil
}

// MoveMedia reassigns the folder of each URL concurrently. Every update is
// issued even when another one fails; the aggregate outcome reports only
// the first error, with no per-item breakdown. A nil folderID clears the
// assignment.
func (s *Service) MoveMedia(ctx context.Context, urls []string, folderID *uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("move media: %w", err)
	}

	if len(urls) == 0 {
		return fmt.Errorf("move media: %w: empty batch", ErrInvalidInput)
	}

	var g errgroup.Group
	for _, u := range urls {
		g.Go(func() error {
			return s.catalog.ReassignFolder(ctx, u, folderID)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("move media: %w", err)
	}

	return nil
}

func (s *Service) CreateFolder(ctx context.Context, name string) (Folder, error) {
	if err := ctx.Err(); err != nil {
		return Folder{}, fmt.Errorf("create folder: %w", err)
	}

	if name == "" {
		return Folder{}, fmt.Errorf("create folder: %w: name cannot be empty", ErrInvalidInput)
	}

	f, err := s.catalog.CreateFolder(ctx, name)
	if err != nil {
		return Folder{}, fmt.Errorf("create folder: %w", err)
	}
	return f, nil
}

func (s *Service) RenameFolder(ctx context.Context, id uuid.UUID, name string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}

	if name == "" {
		return fmt.Errorf("rename folder: %w: name cannot be empty", ErrInvalidInput)
	}

	if err := s.catalog.RenameFolder(ctx, id, name); err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}
	return nil
}

func (s *Service) DeleteFolder(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}

	if err := s.catalog.DeleteFolder(ctx, id); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	return nil
}

// Snapshot is the catalog view backing the admin surface.
type Snapshot struct {
	Folders []Folder `json:"folders"`
	Media   []Media  `json:"media"`
}

func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}

	folders, err := s.catalog.ListFolders(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}

	media, err := s.catalog.ListMedia(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}

	return Snapshot{Folders: folders, Media: media}, nil
}

func plainResponse(status int, msg string) CachedResponse {
	h := make(http.Header, 1)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	return CachedResponse{Status: status, Header: h, Body: []byte(msg)}
}
