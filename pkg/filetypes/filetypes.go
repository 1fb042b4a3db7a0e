// Package filetypes maps user facing file type categories to file extensions.
package filetypes

import (
	"sort"
	"strings"
)

// Category names accepted by ExtensionsFor.
const (
	Images        = "images"
	Music         = "music"
	PDFs          = "pdfs"
	Spreadsheets  = "spreadsheets"
	Documents     = "documents"
	Presentations = "presentations"
	Videos        = "videos"
)

var categories = map[string][]string{
	Images:        {"jpg", "jpeg", "png", "gif", "webp", "bmp", "svg", "ico", "heic"},
	Music:         {"mp3", "ogg", "flac", "wav", "m4a", "aac", "wma"},
	PDFs:          {"pdf"},
	Spreadsheets:  {"xls", "xlsx", "ods", "csv", "numbers"},
	Documents:     {"doc", "docx", "odt", "txt", "rtf", "md", "pages"},
	Presentations: {"ppt", "pptx", "odp", "keynote"},
	Videos:        {"mp4", "webm", "mkv", "avi", "mov", "wmv"},
}

// ExtensionsFor returns the union of the extensions of the given categories,
// lowercase, deduplicated and sorted. Unknown categories are ignored.
func ExtensionsFor(names []string) []string {
	seen := make(map[string]struct{})
	for _, name := range names {
		for _, ext := range categories[strings.ToLower(strings.TrimSpace(name))] {
			seen[strings.ToLower(ext)] = struct{}{}
		}
	}

	exts := make([]string, 0, len(seen))
	for ext := range seen {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Categories returns the known category names, sorted.
func Categories() []string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a known category.
func Known(name string) bool {
	_, ok := categories[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
