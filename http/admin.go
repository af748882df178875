package http

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mediabed/mediabed"
)

// adminItem is the per-file view model embedded in the admin page.
type adminItem struct {
	URL        string `json:"url"`
	FileName   string `json:"fileName"`
	Extension  string `json:"extension"`
	Timestamp  int64  `json:"timestamp"`
	FolderID   string `json:"folderId,omitempty"`
	FolderName string `json:"folderName,omitempty"`
	FileSize   int64  `json:"fileSize"`
}

type adminFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type adminData struct {
	Folders    []adminFolder `json:"folders"`
	Media      []adminItem   `json:"media"`
	TotalFiles int           `json:"totalFiles"`
	TotalSize  string        `json:"totalSize"`
}

var adminTemplate = template.Must(template.New("admin").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Media Admin</title>
<link rel="stylesheet" href="/static/admin.css">
</head>
<body>
<div id="app"></div>
<script>window.__DATA__ = {{.}};</script>
<script src="/static/admin.js"></script>
</body>
</html>
`))

func buildAdminData(snap mediabed.Snapshot) adminData {
	folderNames := make(map[string]string, len(snap.Folders))
	folders := make([]adminFolder, 0, len(snap.Folders))
	for _, f := range snap.Folders {
		folderNames[f.ID.String()] = f.Name
		folders = append(folders, adminFolder{ID: f.ID.String(), Name: f.Name})
	}

	var totalSize int64
	media := make([]adminItem, 0, len(snap.Media))
	for _, m := range snap.Media {
		fileName := m.URL
		if idx := strings.LastIndex(m.URL, "/"); idx >= 0 {
			fileName = m.URL[idx+1:]
		}

		item := adminItem{
			URL:       m.URL,
			FileName:  fileName,
			Extension: strings.ToLower(mediabed.FileExtension(fileName)),
			Timestamp: m.UploadedAt.UnixMilli(),
			FileSize:  m.FileSize,
		}
		if m.FolderID != nil {
			item.FolderID = m.FolderID.String()
			item.FolderName = folderNames[m.FolderID.String()]
		}
		media = append(media, item)
		totalSize += m.FileSize
	}

	return adminData{
		Folders:    folders,
		Media:      media,
		TotalFiles: len(media),
		TotalSize:  mediabed.FormatSize(totalSize),
	}
}

func (h *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	data := buildAdminData(snap)
	payload, err := json.Marshal(data)
	if err != nil {
		HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := adminTemplate.Execute(w, template.JS(payload)); err != nil { //nolint:gosec // G203: payload is locally marshaled JSON
		slog.Error("failed to render admin page", "error", err)
	}
}
