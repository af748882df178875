package mediabed

import (
	"fmt"
	"math"
	"strings"
)

// contentTypes is the fixed extension table used when composing a media
// response. Anything outside it is served as an opaque download.
var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"mp4":  "video/mp4",
}

// ContentTypeForURL infers the content type from the file extension of a
// stable URL. Unknown or missing extensions fall back to application/octet-stream.
func ContentTypeForURL(url string) string {
	ext := strings.ToLower(FileExtension(url))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// FileExtension returns the extension of a file name or URL without the
// leading dot, or "" if there is none.
func FileExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx+1:]
}

// FormatSize renders a byte count as a human-readable string for the
// admin surface.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	return fmt.Sprintf("%.1f %s", float64(bytes)/math.Pow(1024, float64(i)), units[i])
}
