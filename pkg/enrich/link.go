package enrich

import (
	"errors"
	"net/url"
	"strings"
)

// LinkBuilder creates links that open a file in the web file browser.
type LinkBuilder struct {
	BaseURL string
}

// NewLinkBuilder returns a builder for links rooted at baseURL.
func NewLinkBuilder(baseURL string) *LinkBuilder {
	return &LinkBuilder{BaseURL: strings.TrimRight(baseURL, "/")}
}

// AbsoluteLink returns the link that shows dir with fileID opened.
func (l *LinkBuilder) AbsoluteLink(dir, fileID string) (string, error) {
	if fileID == "" {
		return "", errors.New("missing file id")
	}
	if dir == "" || dir == "." {
		dir = "/"
	}
	q := url.Values{}
	q.Set("dir", dir)
	q.Set("fileid", fileID)
	q.Set("openfile", fileID)
	return l.BaseURL + "/apps/files/?" + q.Encode(), nil
}
