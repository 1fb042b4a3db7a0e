// Package files searches the metadata of the files in each user's home
// directory. File metadata is kept in a sqlite cache filled by a Scanner;
// queries are comparison trees over the path, name and mtime columns.
package files

import (
	"strings"

	"github.com/rubiojr/filefinder/pkg/filetypes"
	"github.com/rubiojr/filefinder/pkg/search"
)

// Compiler builds file cache queries from validated criteria.
type Compiler struct{}

// Compile builds the query for user. The cache holds no file contents, so
// a content term is matched as a substring of the file name.
//
// sqlite LIKE folds ASCII case, so "Report.pdf" matches report.pdf here
// while the Elasticsearch wildcard on title.keyword is case sensitive.
func (Compiler) Compile(v *search.Validated, user string, p search.Paging) (*Query, error) {
	if !v.HasSearchTerm() {
		return nil, search.ErrMissingSearchTerm()
	}

	var clauses []Operator
	if filename := strings.TrimSpace(v.Filename); filename != "" {
		clauses = append(clauses, &Comparison{Type: Like, Field: FieldPath, Value: WildcardToLike(AnchorPattern(filename))})
	}
	if content := strings.TrimSpace(v.Content); content != "" {
		clauses = append(clauses, &Comparison{Type: Like, Field: FieldName, Value: "%" + EscapeLike(content) + "%"})
	}

	if exts := filetypes.ExtensionsFor(v.FileTypes); len(exts) > 0 {
		alternatives := make([]Operator, len(exts))
		for i, ext := range exts {
			alternatives[i] = &Comparison{Type: Like, Field: FieldName, Value: "%." + EscapeLike(ext)}
		}
		clauses = append(clauses, Or(alternatives...))
	}

	if v.Before != nil {
		clauses = append(clauses, &Comparison{Type: LessThanEqual, Field: FieldMtime, Value: *v.Before})
	}
	if v.After != nil {
		clauses = append(clauses, &Comparison{Type: GreaterThanEqual, Field: FieldMtime, Value: *v.After})
	}

	for _, folder := range v.ExcludeFolders {
		escaped := EscapeLike(folder)
		clauses = append(clauses,
			Not(&Comparison{Type: Like, Field: FieldPath, Value: escaped + "/%"}),
			Not(&Comparison{Type: Like, Field: FieldPath, Value: escaped}),
		)
	}

	field := FieldPath
	if search.ParseSortField(string(p.Sort)) == search.SortModified {
		field = FieldMtime
	}

	return &Query{
		Root:  And(clauses...),
		Order: []Order{{Field: field, Direction: search.ParseOrder(string(p.Order))}},
		From:  p.Offset(),
		Size:  p.Size,
		User:  user,
	}, nil
}

// AnchorPattern prefixes pattern with * so that it matches in any folder.
func AnchorPattern(pattern string) string {
	if strings.HasPrefix(pattern, "*") {
		return pattern
	}
	return "*" + pattern
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the LIKE metacharacters of s.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// WildcardToLike translates a * and ? pattern to a LIKE pattern. Literal
// LIKE metacharacters are escaped.
func WildcardToLike(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
