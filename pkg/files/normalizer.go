package files

import (
	"path"
	"strconv"
	"strings"

	"github.com/rubiojr/filefinder/pkg/enrich"
	"github.com/rubiojr/filefinder/pkg/search"
)

// Node is one entry of the file cache as returned by a search. Path is the
// absolute virtual path, rooted at HomePath of the owner.
type Node struct {
	FileID   int64
	Path     string
	Name     string
	MimeType string
	MTime    int64
	Size     int64
	IsDir    bool
}

// HomePath returns the virtual root of user's files.
func HomePath(user string) string {
	return "/" + user + "/files"
}

// RelativePath returns p relative to the home of user without a leading
// separator. ok is false when p is outside the home.
func RelativePath(user, p string) (rel string, ok bool) {
	home := HomePath(user)
	if p == home {
		return "", true
	}
	if !strings.HasPrefix(p, home+"/") {
		return "", false
	}
	return strings.TrimPrefix(p, home+"/"), true
}

// Normalizer turns file cache nodes into search records.
type Normalizer struct {
	Mime  search.MimeResolver
	Links search.LinkBuilder
}

// Normalize maps node to a record for user. Nodes outside the home of user
// are dropped. Directory names get a trailing slash.
func (n *Normalizer) Normalize(node Node, user string) (search.Record, bool) {
	rel, ok := RelativePath(user, node.Path)
	if !ok || rel == "" {
		return search.Record{}, false
	}

	name := rel
	if node.IsDir {
		name += "/"
	}

	mimeType := node.MimeType
	if node.IsDir {
		mimeType = enrich.DirectoryMimeType
	}
	if mimeType == "" {
		var err error
		if mimeType, err = n.Mime.Detect(rel); err != nil {
			return search.ErrorRecord(name, err), true
		}
	}
	icon, err := n.Mime.IconFor(mimeType)
	if err != nil {
		return search.ErrorRecord(name, err), true
	}

	dir := path.Dir("/" + rel)
	link, err := n.Links.AbsoluteLink(dir, strconv.FormatInt(node.FileID, 10))
	if err != nil {
		return search.ErrorRecord(name, err), true
	}

	mtime := node.MTime
	return search.Record{
		ContentType: mimeType,
		Name:        name,
		Link:        link,
		IconLink:    icon,
		ModifiedAt:  &mtime,
		Highlights:  map[string][]string{},
	}, true
}
