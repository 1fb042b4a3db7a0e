// Package index searches a full-text index holding file contents and
// metadata. Queries are compiled to the Elasticsearch boolean query DSL
// and executed either against an Elasticsearch cluster or against an
// embedded bleve index with the same document layout.
package index

import (
	"regexp"
	"strings"

	"github.com/rubiojr/filefinder/pkg/filetypes"
	"github.com/rubiojr/filefinder/pkg/search"
)

// Document fields.
const (
	FieldTitle        = "title"
	FieldTitleKeyword = "title.keyword"
	FieldContent      = "content"
	FieldLastModified = "lastModified"
	FieldShareNames   = "share_names"
	FieldContentType  = "attachment.content_type"
)

// ShareField returns the field holding the path under which a document is
// shared with user.
func ShareField(user string) string {
	return FieldShareNames + "." + user
}

// Compiler builds index queries from validated criteria.
type Compiler struct{}

// Compile builds the query for user. Only documents shared with user can
// match: the share field of user must exist on every hit.
func (Compiler) Compile(v *search.Validated, user string, p search.Paging) (*Query, error) {
	if !v.HasSearchTerm() {
		return nil, search.ErrMissingSearchTerm()
	}

	b := &Bool{
		Filter: []Clause{
			Regexp{Field: FieldTitleKeyword, Value: ".+"},
			Exists{Field: ShareField(user)},
		},
	}
	q := &Query{From: p.Offset(), Size: p.Size, Bool: b}

	if content := strings.TrimSpace(v.Content); content != "" {
		b.Must = append(b.Must, Match{Field: FieldContent, Query: content})
		q.Highlight = &Highlight{Fields: map[string]HighlightField{
			FieldContent: {Type: "plain", Fragmenter: "span"},
		}}
	}

	if filename := strings.TrimSpace(v.Filename); filename != "" {
		b.Filter = append(b.Filter, Wildcard{Field: FieldTitleKeyword, Value: AnchorPattern(filename)})
	}

	if exts := filetypes.ExtensionsFor(v.FileTypes); len(exts) > 0 {
		b.Filter = append(b.Filter, Regexp{
			Field:           FieldTitleKeyword,
			Value:           ExtensionPattern(exts),
			CaseInsensitive: true,
		})
	}

	if v.Before != nil {
		b.Filter = append(b.Filter, Range{Field: FieldLastModified, LT: v.Before})
	}
	if v.After != nil {
		b.Filter = append(b.Filter, Range{Field: FieldLastModified, GT: v.After})
	}

	for _, folder := range v.ExcludeFolders {
		b.MustNot = append(b.MustNot,
			Prefix{Field: FieldTitleKeyword, Value: folder + "/"},
			Term{Field: FieldTitleKeyword, Value: folder},
		)
	}

	q.Sort = sortKeys(p)
	return q, nil
}

// AnchorPattern prefixes pattern with * so that it matches in any folder.
func AnchorPattern(pattern string) string {
	if strings.HasPrefix(pattern, "*") {
		return pattern
	}
	return "*" + pattern
}

// ExtensionPattern returns a regular expression matching paths ending in
// one of exts.
func ExtensionPattern(exts []string) string {
	quoted := make([]string, len(exts))
	for i, ext := range exts {
		quoted[i] = regexp.QuoteMeta(ext)
	}
	return `.*\.(` + strings.Join(quoted, "|") + `)`
}

func sortKeys(p search.Paging) []SortKey {
	order := search.ParseOrder(string(p.Order))
	switch search.ParseSortField(string(p.Sort)) {
	case search.SortModified:
		return []SortKey{{Field: FieldLastModified, Order: order}, {Field: ScoreField}}
	case search.SortPath:
		return []SortKey{{Field: FieldTitleKeyword, Order: order}, {Field: ScoreField}}
	default:
		return nil
	}
}
