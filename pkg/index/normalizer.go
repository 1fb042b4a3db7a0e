package index

import (
	"errors"
	"path"
	"strings"

	"github.com/rubiojr/filefinder/pkg/search"
)

// Hit is one raw document returned by the index.
type Hit struct {
	ID        string              `json:"_id"`
	Score     float64             `json:"_score"`
	Source    Source              `json:"_source"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

// Source holds the stored document fields.
type Source struct {
	Title        string `json:"title"`
	LastModified *int64 `json:"lastModified,omitempty"`
	// ShareNames maps each user a document is shared with to the path of
	// the document in that user's file tree.
	ShareNames map[string]string `json:"share_names"`
	Attachment Attachment        `json:"attachment"`
}

// Attachment holds the metadata extracted by the ingest pipeline.
type Attachment struct {
	ContentType string `json:"content_type,omitempty"`
}

// FileID extracts the file id from a document id of the form
// "<provider>:<fileid>".
func FileID(docID string) (string, error) {
	parts := strings.Split(docID, ":")
	if len(parts) < 2 || parts[1] == "" {
		return "", errors.New("malformed document id " + docID)
	}
	return parts[1], nil
}

// Normalizer turns index hits into search records.
type Normalizer struct {
	Mime  search.MimeResolver
	Links search.LinkBuilder
}

// Normalize maps hit to a record for user. Hits not shared with user are
// dropped. Hits whose content type, icon or link cannot be resolved are
// returned as error records.
func (n *Normalizer) Normalize(hit Hit, user string) (search.Record, bool) {
	sharePath, ok := hit.Source.ShareNames[user]
	if !ok || sharePath == "" {
		return search.Record{}, false
	}

	name := hit.Source.Title
	if name == "" {
		name = strings.TrimPrefix(sharePath, "/")
	}

	fileID, err := FileID(hit.ID)
	if err != nil {
		return search.ErrorRecord(name, err), true
	}
	mimeType, err := n.Mime.Detect(sharePath)
	if err != nil {
		return search.ErrorRecord(name, err), true
	}
	icon, err := n.Mime.IconFor(mimeType)
	if err != nil {
		return search.ErrorRecord(name, err), true
	}
	link, err := n.Links.AbsoluteLink(path.Dir(sharePath), fileID)
	if err != nil {
		return search.ErrorRecord(name, err), true
	}

	highlights := hit.Highlight
	if highlights == nil {
		highlights = map[string][]string{}
	}
	return search.Record{
		ContentType: mimeType,
		Name:        name,
		Link:        link,
		IconLink:    icon,
		ModifiedAt:  hit.Source.LastModified,
		Highlights:  highlights,
	}, true
}
