package telegram_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mediabed/mediabed"
	"github.com/mediabed/mediabed/telegram"
)

func newTestClient(t *testing.T, handler http.Handler) (*telegram.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := telegram.New(telegram.Config{
		BotToken: "test-token",
		ChatID:   "42",
		BaseURL:  srv.URL,
	})
	assert.NoError(t, err, "new telegram client")
	return client, srv
}

func TestNew_Validation(t *testing.T) {
	_, err := telegram.New(telegram.Config{ChatID: "42"})
	assert.Error(t, err)

	_, err = telegram.New(telegram.Config{BotToken: "t"})
	assert.Error(t, err)
}

func sendDocumentJSON(result string) string {
	return fmt.Sprintf(`{"ok":true,"result":%s}`, result)
}

func TestClient_Upload(t *testing.T) {
	t.Run("sends multipart document to the configured chat", func(t *testing.T) {
		var gotChatID, gotContentType, gotFileName string

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/bottest-token/sendDocument", r.URL.Path)

			assert.NoError(t, r.ParseMultipartForm(1<<20))
			gotChatID = r.FormValue("chat_id")

			file, header, err := r.FormFile("document")
			assert.NoError(t, err)
			defer func() { _ = file.Close() }()
			gotFileName = header.Filename
			gotContentType = header.Header.Get("Content-Type")

			_, _ = w.Write([]byte(sendDocumentJSON(`{"document":{"file_id":"doc-1"}}`)))
		}))

		fileID, err := client.Upload(context.Background(), mediabed.Document{
			Name:        "photo.jpeg",
			ContentType: "image/jpeg",
			Content:     strings.NewReader("jpeg bytes"),
		})
		assert.NoError(t, err)
		assert.Equal(t, "doc-1", fileID)
		assert.Equal(t, "42", gotChatID)
		assert.Equal(t, "photo.jpeg", gotFileName)
		assert.Equal(t, "image/jpeg", gotContentType)
	})

	t.Run("probes result shapes in priority order", func(t *testing.T) {
		tests := []struct {
			name   string
			result string
			want   string
		}{
			{"video wins over document", `{"video":{"file_id":"vid-1"},"document":{"file_id":"doc-1"}}`, "vid-1"},
			{"document wins over sticker", `{"document":{"file_id":"doc-1"},"sticker":{"file_id":"stk-1"}}`, "doc-1"},
			{"sticker alone", `{"sticker":{"file_id":"stk-1"}}`, "stk-1"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(sendDocumentJSON(tt.result)))
				}))

				fileID, err := client.Upload(context.Background(), mediabed.Document{
					Name:    "f.bin",
					Content: strings.NewReader("x"),
				})
				assert.NoError(t, err)
				assert.Equal(t, tt.want, fileID)
			})
		}
	})

	t.Run("no recognizable handle", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(sendDocumentJSON(`{"photo":[{"file_id":"ph-1"}]}`)))
		}))

		_, err := client.Upload(context.Background(), mediabed.Document{
			Name:    "f.bin",
			Content: strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, mediabed.ErrNoFileID)
	})

	t.Run("rejection surfaces the upstream description", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Request Entity Too Large"}`))
		}))

		_, err := client.Upload(context.Background(), mediabed.Document{
			Name:    "huge.bin",
			Content: strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, mediabed.ErrUpstream)
		assert.Contains(t, err.Error(), "Request Entity Too Large")
	})

	t.Run("rejection without a description reports the status", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		_, err := client.Upload(context.Background(), mediabed.Document{
			Name:    "f.bin",
			Content: strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, mediabed.ErrUpstream)
		assert.Contains(t, err.Error(), "502")
	})
}

func getFileJSON(path string) string {
	if path == "" {
		return `{"ok":true,"result":{}}`
	}
	return fmt.Sprintf(`{"ok":true,"result":{"file_path":"%s"}}`, path)
}

func TestClient_Resolve(t *testing.T) {
	t.Run("redeems handle and fetches bytes", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/bottest-token/getFile":
				assert.Equal(t, "file-1", r.URL.Query().Get("file_id"))
				_, _ = w.Write([]byte(getFileJSON("documents/file_1.png")))
			case "/file/bottest-token/documents/file_1.png":
				w.Header().Set("Content-Length", "9")
				_, _ = w.Write([]byte("png bytes"))
			default:
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
		}))

		blob, err := client.Resolve(context.Background(), "file-1")
		assert.NoError(t, err)
		defer func() { _ = blob.Content.Close() }()

		body, err := io.ReadAll(blob.Content)
		assert.NoError(t, err)
		assert.Equal(t, "png bytes", string(body))
	})

	t.Run("retries a pathless answer and succeeds", func(t *testing.T) {
		var getFileCalls atomic.Int32

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/bottest-token/getFile":
				if getFileCalls.Add(1) < 3 {
					_, _ = w.Write([]byte(getFileJSON("")))
					return
				}
				_, _ = w.Write([]byte(getFileJSON("documents/file_1.png")))
			case "/file/bottest-token/documents/file_1.png":
				_, _ = w.Write([]byte("bytes"))
			}
		}))

		blob, err := client.Resolve(context.Background(), "file-1")
		assert.NoError(t, err)
		_ = blob.Content.Close()
		assert.Equal(t, int32(3), getFileCalls.Load())
	})

	t.Run("exhausting the retry budget is path not found", func(t *testing.T) {
		var getFileCalls atomic.Int32

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			getFileCalls.Add(1)
			_, _ = w.Write([]byte(getFileJSON("")))
		}))

		_, err := client.Resolve(context.Background(), "file-1")
		assert.ErrorIs(t, err, mediabed.ErrPathNotFound)
		assert.Equal(t, int32(3), getFileCalls.Load())
	})

	t.Run("transport fault aborts without retrying", func(t *testing.T) {
		var getFileCalls atomic.Int32

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			getFileCalls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))

		_, err := client.Resolve(context.Background(), "file-1")
		assert.ErrorIs(t, err, mediabed.ErrTransport)
		assert.Equal(t, int32(1), getFileCalls.Load())
	})

	t.Run("byte fetch failure is terminal", func(t *testing.T) {
		var fetchCalls atomic.Int32

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/bottest-token/getFile" {
				_, _ = w.Write([]byte(getFileJSON("documents/file_1.png")))
				return
			}
			fetchCalls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))

		_, err := client.Resolve(context.Background(), "file-1")
		assert.ErrorIs(t, err, mediabed.ErrFetch)
		assert.Equal(t, int32(1), fetchCalls.Load())
	})
}

// Ensure the decode path tolerates an ok:false getFile answer without a
// result block by treating it as transport-level noise on non-200 only;
// a 200 with ok:false but no path counts against the retry budget.
func TestClient_Resolve_OKFalseCountsAgainstBudget(t *testing.T) {
	var getFileCalls atomic.Int32

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		getFileCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))

	_, err := client.Resolve(context.Background(), "file-1")
	assert.ErrorIs(t, err, mediabed.ErrPathNotFound)
	assert.Equal(t, int32(3), getFileCalls.Load())
}
