// Package enrich resolves the presentation details of a search result:
// its content type, icon and link.
package enrich

import (
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
)

// DirectoryMimeType is the content type reported for folders.
const DirectoryMimeType = "httpd/unix-directory"

const defaultMimeType = "application/octet-stream"

// extra covers extensions missing from the system mime tables.
var extra = map[string]string{
	".md":      "text/markdown",
	".heic":    "image/heic",
	".flac":    "audio/flac",
	".m4a":     "audio/mp4",
	".mkv":     "video/x-matroska",
	".odt":     "application/vnd.oasis.opendocument.text",
	".ods":     "application/vnd.oasis.opendocument.spreadsheet",
	".odp":     "application/vnd.oasis.opendocument.presentation",
	".docx":    "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx":    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx":    "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".numbers": "application/x-iwork-numbers-sffnumbers",
	".pages":   "application/x-iwork-pages-sffpages",
	".keynote": "application/x-iwork-keynote-sffkey",
}

// MimeResolver detects content types from paths and maps them to icons
// served under BaseURL.
type MimeResolver struct {
	BaseURL string
}

// NewMimeResolver returns a resolver whose icon links are rooted at baseURL.
func NewMimeResolver(baseURL string) *MimeResolver {
	return &MimeResolver{BaseURL: strings.TrimRight(baseURL, "/")}
}

// Detect returns the content type for p based on its extension.
func (m *MimeResolver) Detect(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("cannot detect mime type of an empty path")
	}
	if strings.HasSuffix(p, "/") {
		return DirectoryMimeType, nil
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return defaultMimeType, nil
	}
	if t, ok := extra[ext]; ok {
		return t, nil
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return defaultMimeType, nil
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		t = mt
	}
	return t, nil
}

// IconFor returns the icon URL for a content type.
func (m *MimeResolver) IconFor(mimeType string) (string, error) {
	if mimeType == "" {
		return "", errors.New("cannot resolve icon of an empty mime type")
	}
	return fmt.Sprintf("%s/core/img/filetypes/%s.svg", m.BaseURL, iconName(mimeType)), nil
}

func iconName(mimeType string) string {
	switch mimeType {
	case DirectoryMimeType:
		return "folder"
	case "application/pdf":
		return "application-pdf"
	case "text/markdown":
		return "text-markdown"
	case "text/csv":
		return "x-office-spreadsheet"
	}

	switch {
	case strings.Contains(mimeType, "spreadsheet"), strings.Contains(mimeType, "ms-excel"), strings.Contains(mimeType, "numbers"):
		return "x-office-spreadsheet"
	case strings.Contains(mimeType, "presentation"), strings.Contains(mimeType, "powerpoint"), strings.Contains(mimeType, "keynote"):
		return "x-office-presentation"
	case strings.Contains(mimeType, "wordprocessing"), strings.Contains(mimeType, "msword"),
		strings.Contains(mimeType, "opendocument.text"), strings.Contains(mimeType, "rtf"), strings.Contains(mimeType, "pages"):
		return "x-office-document"
	}

	major, _, _ := strings.Cut(mimeType, "/")
	switch major {
	case "image", "audio", "video", "text":
		return major
	}
	return "file"
}
