package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/mediabed/mediabed"
)

// Service is the subset of the media service the HTTP surface needs.
type Service interface {
	Resolve(ctx context.Context, requestURL string) (mediabed.CachedResponse, error)
	Ingest(ctx context.Context, up mediabed.Upload) (string, error)
	DeleteMedia(ctx context.Context, urls []string) (int64, error)
	MoveMedia(ctx context.Context, urls []string, folderID *uuid.UUID) error
	CreateFolder(ctx context.Context, name string) (mediabed.Folder, error)
	RenameFolder(ctx context.Context, id uuid.UUID, name string) error
	DeleteFolder(ctx context.Context, id uuid.UUID) error
	Snapshot(ctx context.Context) (mediabed.Snapshot, error)
}

// Wallpapers serves the cached wallpaper-of-the-day proxy.
type Wallpapers interface {
	Daily(ctx context.Context) (mediabed.CachedResponse, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// Domain is the host stable URLs were minted under; incoming paths are
	// canonicalized against it before cache and catalog lookups.
	Domain string
	// AdminPath is the path segment of the admin page (default "admin").
	AdminPath string
	// RequireReadAuth additionally protects the landing page and uploads.
	RequireReadAuth bool
	Credentials     Credentials
	// StaticDir serves /static/* and the landing page when set.
	StaticDir string
	CORS      CORSConfig
}

// Handler provides the HTTP surface for the media host.
type Handler struct {
	config     HandlerConfig
	service    Service
	wallpapers Wallpapers
}

// NewHandler creates a new Handler with the given configuration,
// service, and wallpaper proxy (which may be nil to disable /bing-images).
func NewHandler(config *HandlerConfig, service Service, wallpapers Wallpapers) *Handler {
	h := &Handler{
		config:     *config,
		service:    service,
		wallpapers: wallpapers,
	}
	if h.config.AdminPath == "" {
		h.config.AdminPath = "admin"
	}
	return h
}

// Router returns the configured http.Handler. Routed API paths take
// precedence; anything left over is treated as a stable media URL.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Post("/upload", h.handleUpload)
	r.Get("/bing-images", h.handleWallpapers)

	r.Group(func(r chi.Router) {
		r.Use(BasicAuthMiddleware(h.config.Credentials))
		r.Post("/delete-images", h.handleDeleteMedia)
		r.Post("/move-images", h.handleMoveMedia)
		r.Post("/folders", h.handleFolders)
		r.Get("/"+h.config.AdminPath, h.handleAdmin)
	})

	if h.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(h.config.StaticDir))
		r.Handle("/static/*", http.StripPrefix("/static/", fs))
	}

	r.Get("/", h.handleIndex)
	r.Get("/*", h.handleMedia)

	return r
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if h.config.RequireReadAuth && !h.config.Credentials.Authenticate(r) {
		RequireUnauthorized(w)
		return
	}
	if h.config.StaticDir == "" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.config.StaticDir, "index.html"))
}

// handleMedia is the terminal route: every unrouted GET is treated as a
// stable URL and resolved through cache, catalog, and remote service.
func (h *Handler) handleMedia(w http.ResponseWriter, r *http.Request) {
	requestURL := "https://" + h.config.Domain + r.URL.Path

	resp, err := h.service.Resolve(r.Context(), requestURL)
	if err != nil {
		HandleError(w, err)
		return
	}

	WriteCached(w, resp)
}

type uploadResponse struct {
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Index   string `json:"index"`
	Total   string `json:"total"`
	Success bool   `json:"success"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	index := r.FormValue("index")
	total := r.FormValue("total")

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = WriteJSON(w, http.StatusInternalServerError, uploadResponse{
			Error: "missing file", Index: index, Total: total,
		})
		return
	}
	defer func() { _ = file.Close() }()

	// Authentication comes before any upstream traffic but after the
	// payload check, matching the upload pipeline's step order.
	if h.config.RequireReadAuth && !h.config.Credentials.Authenticate(r) {
		RequireUnauthorized(w)
		return
	}

	up := mediabed.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
		Index:       index,
		Total:       total,
	}

	url, err := h.service.Ingest(r.Context(), up)
	if err != nil {
		_ = WriteJSON(w, http.StatusInternalServerError, uploadResponse{
			Error: err.Error(), Index: index, Total: total,
		})
		return
	}

	_ = WriteJSON(w, http.StatusOK, uploadResponse{
		Data: url, Index: index, Total: total, Success: true,
	})
}

func (h *Handler) handleWallpapers(w http.ResponseWriter, r *http.Request) {
	if h.wallpapers == nil {
		http.NotFound(w, r)
		return
	}

	resp, err := h.wallpapers.Daily(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	WriteCached(w, resp)
}

func (h *Handler) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	var urls []string
	if err := json.NewDecoder(r.Body).Decode(&urls); err != nil {
		_ = WriteJSON(w, http.StatusBadRequest, MessageResponse{Message: "nothing to delete"})
		return
	}

	if _, err := h.service.DeleteMedia(r.Context(), urls); err != nil {
		switch {
		case errors.Is(err, mediabed.ErrInvalidInput):
			_ = WriteJSON(w, http.StatusBadRequest, MessageResponse{Message: "nothing to delete"})
		case errors.Is(err, mediabed.ErrNotFound):
			_ = WriteJSON(w, http.StatusNotFound, MessageResponse{Message: "no matching items found"})
		default:
			HandleError(w, err)
		}
		return
	}

	_ = WriteJSON(w, http.StatusOK, MessageResponse{Message: "deleted"})
}

type moveRequest struct {
	URLs     []string `json:"urls"`
	FolderID string   `json:"folderId"`
}

func (h *Handler) handleMoveMedia(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = WriteJSON(w, http.StatusBadRequest, MessageResponse{Message: "nothing to move"})
		return
	}

	// An empty folderId clears the assignment.
	var folderID *uuid.UUID
	if req.FolderID != "" {
		id, err := uuid.Parse(req.FolderID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid folder id")
			return
		}
		folderID = &id
	}

	if err := h.service.MoveMedia(r.Context(), req.URLs, folderID); err != nil {
		if errors.Is(err, mediabed.ErrInvalidInput) {
			_ = WriteJSON(w, http.StatusBadRequest, MessageResponse{Message: "nothing to move"})
			return
		}
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, MessageResponse{Message: "moved"})
}

type folderRequest struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	Name   string `json:"name"`
}

func (h *Handler) handleFolders(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid request body")
		return
	}

	switch req.Action {
	case "create":
		if req.Name == "" {
			WriteError(w, http.StatusBadRequest, "invalid_input", "Folder name cannot be empty")
			return
		}
		if _, err := h.service.CreateFolder(r.Context(), req.Name); err != nil {
			HandleError(w, err)
			return
		}

	case "update":
		if req.ID == "" || req.Name == "" {
			WriteError(w, http.StatusBadRequest, "invalid_input", "Missing folder id or name")
			return
		}
		id, err := uuid.Parse(req.ID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid folder id")
			return
		}
		if err := h.service.RenameFolder(r.Context(), id, req.Name); err != nil {
			HandleError(w, err)
			return
		}

	case "delete":
		if req.ID == "" {
			WriteError(w, http.StatusBadRequest, "invalid_input", "Missing folder id")
			return
		}
		id, err := uuid.Parse(req.ID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid folder id")
			return
		}
		if err := h.service.DeleteFolder(r.Context(), id); err != nil {
			HandleError(w, err)
			return
		}

	default:
		WriteError(w, http.StatusBadRequest, "invalid_input", "Unknown action")
		return
	}

	_ = WriteJSON(w, http.StatusOK, MessageResponse{Message: "ok"})
}
