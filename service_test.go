package mediabed_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mediabed/mediabed"
)

type SpyCatalog struct {
	mock.Mock
}

func (s *SpyCatalog) InsertMediaIfAbsent(ctx context.Context, m mediabed.Media) error {
	args := s.Called(ctx, m)
	return args.Error(0)
}

func (s *SpyCatalog) LookupFileID(ctx context.Context, url string) (string, error) {
	args := s.Called(ctx, url)
	return args.String(0), args.Error(1)
}

func (s *SpyCatalog) DeleteMedia(ctx context.Context, urls []string) (int64, error) {
	args := s.Called(ctx, urls)
	return args.Get(0).(int64), args.Error(1)
}

func (s *SpyCatalog) ReassignFolder(ctx context.Context, url string, folderID *uuid.UUID) error {
	args := s.Called(ctx, url, folderID)
	return args.Error(0)
}

func (s *SpyCatalog) ListMedia(ctx context.Context) ([]mediabed.Media, error) {
	args := s.Called(ctx)
	return args.Get(0).([]mediabed.Media), args.Error(1)
}

func (s *SpyCatalog) CreateFolder(ctx context.Context, name string) (mediabed.Folder, error) {
	args := s.Called(ctx, name)
	return args.Get(0).(mediabed.Folder), args.Error(1)
}

func (s *SpyCatalog) RenameFolder(ctx context.Context, id uuid.UUID, name string) error {
	args := s.Called(ctx, id, name)
	return args.Error(0)
}

func (s *SpyCatalog) DeleteFolder(ctx context.Context, id uuid.UUID) error {
	args := s.Called(ctx, id)
	return args.Error(0)
}

func (s *SpyCatalog) ListFolders(ctx context.Context) ([]mediabed.Folder, error) {
	args := s.Called(ctx)
	return args.Get(0).([]mediabed.Folder), args.Error(1)
}

type SpyBlobStore struct {
	mock.Mock
}

func (s *SpyBlobStore) Upload(ctx context.Context, doc mediabed.Document) (string, error) {
	args := s.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

func (s *SpyBlobStore) Resolve(ctx context.Context, fileID string) (mediabed.Blob, error) {
	args := s.Called(ctx, fileID)
	return args.Get(0).(mediabed.Blob), args.Error(1)
}

// fakeCache is a plain map-backed EdgeCache for tests that care about
// cache contents rather than call counts.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]mediabed.CachedResponse
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]mediabed.CachedResponse)}
}

func (c *fakeCache) Get(key string) (mediabed.CachedResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, ok := c.entries[key]
	return resp, ok
}

func (c *fakeCache) Put(key string, resp mediabed.CachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = resp
}

func (c *fakeCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deletes = append(c.deletes, key)
}

func newTestService(t *testing.T) (*mediabed.Service, *SpyCatalog, *SpyBlobStore, *fakeCache) {
	t.Helper()
	catalog := new(SpyCatalog)
	blobs := new(SpyBlobStore)
	cache := newFakeCache()
	s, err := mediabed.NewService(catalog, blobs, cache, mediabed.ServiceConfig{Domain: "img.test"})
	assert.NoError(t, err, "new service")
	return s, catalog, blobs, cache
}

func TestNewService_EmptyDomain(t *testing.T) {
	_, err := mediabed.NewService(new(SpyCatalog), new(SpyBlobStore), newFakeCache(), mediabed.ServiceConfig{})
	assert.ErrorIs(t, err, mediabed.ErrInvalidInput)
}

func TestService_Resolve(t *testing.T) {
	const requestURL = "https://img.test/1700000000000.png"

	t.Run("cache hit skips catalog and blob store", func(t *testing.T) {
		service, catalog, blobs, cache := newTestService(t)
		ctx := context.Background()

		cached := mediabed.CachedResponse{Status: http.StatusOK, Header: http.Header{}, Body: []byte("bytes")}
		cache.Put(requestURL, cached)

		resp, err := service.Resolve(ctx, requestURL)
		assert.NoError(t, err)
		assert.Equal(t, cached, resp)

		catalog.AssertNotCalled(t, "LookupFileID")
		blobs.AssertNotCalled(t, "Resolve")
	})

	t.Run("missing catalog row yields cached 404", func(t *testing.T) {
		service, catalog, blobs, cache := newTestService(t)
		ctx := context.Background()

		catalog.On("LookupFileID", ctx, requestURL).Return("", mediabed.ErrNotFound).Once()

		resp, err := service.Resolve(ctx, requestURL)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.Status)
		assert.Equal(t, "resource not found", string(resp.Body))

		stored, ok := cache.Get(requestURL)
		assert.True(t, ok)
		assert.Equal(t, resp, stored)

		// A second resolve is answered from the cache without another
		// catalog round trip.
		again, err := service.Resolve(ctx, requestURL)
		assert.NoError(t, err)
		assert.Equal(t, resp, again)

		catalog.AssertExpectations(t)
		blobs.AssertNotCalled(t, "Resolve")
	})

	t.Run("pathless handle yields cached 404", func(t *testing.T) {
		service, catalog, blobs, cache := newTestService(t)
		ctx := context.Background()

		catalog.On("LookupFileID", ctx, requestURL).Return("file-1", nil)
		blobs.On("Resolve", ctx, "file-1").Return(mediabed.Blob{}, mediabed.ErrPathNotFound)

		resp, err := service.Resolve(ctx, requestURL)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.Status)
		assert.Equal(t, "file path not found", string(resp.Body))

		stored, ok := cache.Get(requestURL)
		assert.True(t, ok)
		assert.Equal(t, resp, stored)
	})

	t.Run("catalog fault is returned and never cached", func(t *testing.T) {
		service, catalog, _, cache := newTestService(t)
		ctx := context.Background()

		catalog.On("LookupFileID", ctx, requestURL).Return("", io.ErrUnexpectedEOF)

		_, err := service.Resolve(ctx, requestURL)
		assert.Error(t, err)

		_, ok := cache.Get(requestURL)
		assert.False(t, ok)
	})

	t.Run("transport fault is returned and never cached", func(t *testing.T) {
		service, catalog, blobs, cache := newTestService(t)
		ctx := context.Background()

		catalog.On("LookupFileID", ctx, requestURL).Return("file-1", nil)
		blobs.On("Resolve", ctx, "file-1").Return(mediabed.Blob{}, mediabed.ErrTransport)

		_, err := service.Resolve(ctx, requestURL)
		assert.ErrorIs(t, err, mediabed.ErrTransport)

		_, ok := cache.Get(requestURL)
		assert.False(t, ok)
	})

	t.Run("success composes and caches the response", func(t *testing.T) {
		service, catalog, blobs, cache := newTestService(t)
		ctx := context.Background()

		catalog.On("LookupFileID", ctx, requestURL).Return("file-1", nil)
		blobs.On("Resolve", ctx, "file-1").Return(mediabed.Blob{
			Content: io.NopCloser(bytes.NewReader([]byte("png bytes"))),
			Header:  http.Header{},
		}, nil)

		resp, err := service.Resolve(ctx, requestURL)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "png bytes", string(resp.Body))
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.Equal(t, "inline", resp.Header.Get("Content-Disposition"))
		assert.Equal(t, "public, max-age=31536000", resp.Header.Get("Cache-Control"))

		stored, ok := cache.Get(requestURL)
		assert.True(t, ok)
		assert.Equal(t, resp, stored)
	})

	t.Run("unknown extension served as download", func(t *testing.T) {
		service, catalog, blobs, _ := newTestService(t)
		ctx := context.Background()

		url := "https://img.test/1700000000000.bin"
		catalog.On("LookupFileID", ctx, url).Return("file-2", nil)
		blobs.On("Resolve", ctx, "file-2").Return(mediabed.Blob{
			Content: io.NopCloser(bytes.NewReader([]byte("opaque"))),
			Header:  http.Header{},
		}, nil)

		resp, err := service.Resolve(ctx, url)
		assert.NoError(t, err)
		assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	})
}

var mintedURL = regexp.MustCompile(`^https://img\.test/(\d+)\.png$`)

func TestService_Ingest(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		service, catalog, blobs, _ := newTestService(t)

		_, err := service.Ingest(context.Background(), mediabed.Upload{FileName: "a.png"})
		assert.ErrorIs(t, err, mediabed.ErrInvalidInput)

		_, err = service.Ingest(context.Background(), mediabed.Upload{Content: strings.NewReader("x")})
		assert.ErrorIs(t, err, mediabed.ErrInvalidInput)

		blobs.AssertNotCalled(t, "Upload")
		catalog.AssertNotCalled(t, "InsertMediaIfAbsent")
	})

	t.Run("mints url from timestamp and extension", func(t *testing.T) {
		service, catalog, blobs, _ := newTestService(t)
		ctx := context.Background()

		blobs.On("Upload", ctx, mock.Anything).Return("file-9", nil)
		catalog.On("InsertMediaIfAbsent", ctx, mock.MatchedBy(func(m mediabed.Media) bool {
			return m.FileID == "file-9" && m.FileSize == 3 && mintedURL.MatchString(m.URL)
		})).Return(nil)

		before := time.Now().UnixMilli()
		url, err := service.Ingest(ctx, mediabed.Upload{
			FileName:    "photo.png",
			ContentType: "image/png",
			Size:        3,
			Content:     strings.NewReader("abc"),
		})
		after := time.Now().UnixMilli()

		assert.NoError(t, err)
		match := mintedURL.FindStringSubmatch(url)
		assert.NotNil(t, match)
		assert.GreaterOrEqual(t, after, before)

		catalog.AssertExpectations(t)
		blobs.AssertExpectations(t)
	})

	t.Run("gif relabeled at the container level only", func(t *testing.T) {
		service, catalog, blobs, _ := newTestService(t)
		ctx := context.Background()

		blobs.On("Upload", ctx, mock.MatchedBy(func(doc mediabed.Document) bool {
			return doc.Name == "anim.jpeg" && doc.ContentType == "image/jpeg"
		})).Return("file-g", nil)
		catalog.On("InsertMediaIfAbsent", ctx, mock.MatchedBy(func(m mediabed.Media) bool {
			// The stable URL keeps the original extension.
			return strings.HasSuffix(m.URL, ".gif")
		})).Return(nil)

		url, err := service.Ingest(ctx, mediabed.Upload{
			FileName:    "anim.gif",
			ContentType: "image/gif",
			Size:        10,
			Content:     strings.NewReader("gif bytes!"),
		})
		assert.NoError(t, err)
		assert.True(t, strings.HasSuffix(url, ".gif"))

		blobs.AssertExpectations(t)
		catalog.AssertExpectations(t)
	})

	t.Run("upload failure skips catalog", func(t *testing.T) {
		service, catalog, blobs, _ := newTestService(t)
		ctx := context.Background()

		blobs.On("Upload", ctx, mock.Anything).Return("", mediabed.ErrUpstream)

		_, err := service.Ingest(ctx, mediabed.Upload{
			FileName: "a.png",
			Content:  strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, mediabed.ErrUpstream)

		catalog.AssertNotCalled(t, "InsertMediaIfAbsent")
	})
}

func TestService_DeleteMedia(t *testing.T) {
	urls := []string{"https://img.test/1.png", "https://img.test/2.png"}

	t.Run("empty batch", func(t *testing.T) {
		service, catalog, _, _ := newTestService(t)

		_, err := service.DeleteMedia(context.Background(), nil)
		assert.ErrorIs(t, err, mediabed.ErrInvalidInput)

		catalog.AssertNotCalled(t, "DeleteMedia")
	})

	t.Run("evicts every url on success", func(t *testing.T) {
		service, catalog, _, cache := newTestService(t)
		ctx := context.Background()

		cache.Put(urls[0], mediabed.CachedResponse{Status: http.StatusOK})
		catalog.On("DeleteMedia", ctx, urls).Return(int64(2), nil)

		n, err := service.DeleteMedia(ctx, urls)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.ElementsMatch(t, urls, cache.deletes)

		_, ok := cache.Get(urls[0])
		assert.False(t, ok)
	})

	t.Run("evicts even when nothing matched", func(t *testing.T) {
		service, catalog, _, cache := newTestService(t)
		ctx := context.Background()

		catalog.On("DeleteMedia", ctx, urls).Return(int64(0), nil)

		_, err := service.DeleteMedia(ctx, urls)
		assert.ErrorIs(t, err, mediabed.ErrNotFound)
		// Cached negative entries for already-absent URLs are cleared too.
		assert.ElementsMatch(t, urls, cache.deletes)
	})

	t.Run("catalog fault skips eviction", func(t *testing.T) {
		service, catalog, _, cache := newTestService(t)
		ctx := context.Background()

		catalog.On("DeleteMedia", ctx, urls).Return(int64(0), io.ErrClosedPipe)

		_, err := service.DeleteMedia(ctx, urls)
		assert.Error(t, err)
		assert.Empty(t, cache.deletes)
	})
}

func TestService_MoveMedia(t *testing.T) {
	urls := []string{"https://img.test/1.png", "https://img.test/2.png", "https://img.test/3.png"}

	t.Run("empty batch", func(t *testing.T) {
		service, catalog, _, _ := newTestService(t)

		err := service.MoveMedia(context.Background(), nil, nil)
		assert.ErrorIs(t, err, mediabed.ErrInvalidInput)

		catalog.AssertNotCalled(t, "ReassignFolder")
	})

	t.Run("reassigns every url", func(t *testing.T) {
		service, catalog, _, _ := newTestService(t)
		ctx := context.Background()

		id := uuid.New()
		for _, u := range urls {
			catalog.On("ReassignFolder", ctx, u, &id).Return(nil).Once()
		}

		err := service.MoveMedia(ctx, urls, &id)
		assert.NoError(t, err)
		catalog.AssertExpectations(t)
	})

	t.Run("every update is issued even when one fails", func(t *testing.T) {
		service, catalog, _, _ := newTestService(t)
		ctx := context.Background()

		catalog.On("ReassignFolder", ctx, urls[0], (*uuid.UUID)(nil)).Return(nil).Once()
		catalog.On("ReassignFolder", ctx, urls[1], (*uuid.UUID)(nil)).Return(io.ErrClosedPipe).Once()
		catalog.On("ReassignFolder", ctx, urls[2], (*uuid.UUID)(nil)).Return(nil).Once()

		err := service.MoveMedia(ctx, urls, nil)
		assert.Error(t, err)
		catalog.AssertExpectations(t)
	})
}

func TestService_Folders(t *testing.T) {
	t.Run("create rejects empty name", func(t *testing.T) {
		service, catalog, _, _ := newTestService(t)

		_, err := service.CreateFolder(context.Background(), "")
		assert.ErrorIs(t, err, mediabed.ErrInvalidInput)
		catalog.AssertNotCalled(t, "CreateFolder")
	})

	t.Run("create delegates to catalog", func(t *testing.T) {
		service, catalog, _, _ := newTestService(t)
		ctx := context.Background()

		want := mediabed.Folder{ID: uuid.New(), Name: "vacation"}
		catalog.On("CreateFolder", ctx, "vacation").Return(want, nil)

		got, err := service.CreateFolder(ctx, "vacation")
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("rename rejects empty name", func(t *testing.T) {
		service, catalog, _, _ := newTestService(t)

		err := service.RenameFolder(context.Background(), uuid.New(), "")
		assert.ErrorIs(t, err, mediabed.ErrInvalidInput)
		catalog.AssertNotCalled(t, "RenameFolder")
	})

	t.Run("delete propagates not found", func(t *testing.T) {
		service, catalog, _, _ := newTestService(t)
		ctx := context.Background()

		id := uuid.New()
		catalog.On("DeleteFolder", ctx, id).Return(mediabed.ErrNotFound)

		err := service.DeleteFolder(ctx, id)
		assert.ErrorIs(t, err, mediabed.ErrNotFound)
	})
}

func TestService_Snapshot(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	ctx := context.Background()

	folders := []mediabed.Folder{{ID: uuid.New(), Name: "a"}}
	media := []mediabed.Media{{URL: "https://img.test/1.png", FileID: "f1"}}

	catalog.On("ListFolders", ctx).Return(folders, nil)
	catalog.On("ListMedia", ctx).Return(media, nil)

	snap, err := service.Snapshot(ctx)
	assert.NoError(t, err)
	assert.Equal(t, folders, snap.Folders)
	assert.Equal(t, media, snap.Media)
}
