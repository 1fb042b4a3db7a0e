package index

import (
	"encoding/json"

	"github.com/rubiojr/filefinder/pkg/search"
)

// Clause is one node of a boolean query. Every clause marshals to the
// Elasticsearch query DSL.
type Clause interface {
	json.Marshaler
	clause()
}

// Regexp matches field values against a regular expression anchored at
// both ends.
type Regexp struct {
	Field           string
	Value           string
	CaseInsensitive bool
}

// Wildcard matches field values against a pattern using * and ?.
type Wildcard struct {
	Field string
	Value string
}

// Range bounds a numeric field. GT and LT are exclusive; nil means unbounded.
type Range struct {
	Field string
	GT    *int64
	LT    *int64
}

// Prefix matches field values starting with Value.
type Prefix struct {
	Field string
	Value string
}

// Term matches field values equal to Value.
type Term struct {
	Field string
	Value string
}

// Exists matches documents that have a value for Field.
type Exists struct {
	Field string
}

// Match is a relevance scored full-text match.
type Match struct {
	Field string
	Query string
}

// Bool combines clauses. Filter clauses must match without affecting the
// score, Must clauses must match and are scored, MustNot clauses must not
// match.
type Bool struct {
	Filter  []Clause
	Must    []Clause
	MustNot []Clause
}

func (Regexp) clause()   {}
func (Wildcard) clause() {}
func (Range) clause()    {}
func (Prefix) clause()   {}
func (Term) clause()     {}
func (Exists) clause()   {}
func (Match) clause()    {}
func (*Bool) clause()    {}

type object = map[string]any

func (r Regexp) MarshalJSON() ([]byte, error) {
	if !r.CaseInsensitive {
		return json.Marshal(object{"regexp": object{r.Field: r.Value}})
	}
	return json.Marshal(object{"regexp": object{r.Field: object{"value": r.Value, "case_insensitive": true}}})
}

func (w Wildcard) MarshalJSON() ([]byte, error) {
	return json.Marshal(object{"wildcard": object{w.Field: w.Value}})
}

func (r Range) MarshalJSON() ([]byte, error) {
	bounds := object{}
	if r.GT != nil {
		bounds["gt"] = *r.GT
	}
	if r.LT != nil {
		bounds["lt"] = *r.LT
	}
	return json.Marshal(object{"range": object{r.Field: bounds}})
}

func (p Prefix) MarshalJSON() ([]byte, error) {
	return json.Marshal(object{"prefix": object{p.Field: object{"value": p.Value}}})
}

func (t Term) MarshalJSON() ([]byte, error) {
	return json.Marshal(object{"term": object{t.Field: object{"value": t.Value}}})
}

func (e Exists) MarshalJSON() ([]byte, error) {
	return json.Marshal(object{"exists": object{"field": e.Field}})
}

func (m Match) MarshalJSON() ([]byte, error) {
	return json.Marshal(object{"match": object{m.Field: m.Query}})
}

func (b *Bool) MarshalJSON() ([]byte, error) {
	body := object{}
	if len(b.Filter) > 0 {
		body["filter"] = b.Filter
	}
	if len(b.Must) > 0 {
		body["must"] = b.Must
	}
	if len(b.MustNot) > 0 {
		body["must_not"] = b.MustNot
	}
	return json.Marshal(object{"bool": body})
}

// ScoreField is the pseudo field that sorts by relevance.
const ScoreField = "_score"

// SortKey orders results by Field. A SortKey on ScoreField marshals to the
// bare "_score" string, which sorts by descending relevance.
type SortKey struct {
	Field string
	Order search.Order
}

func (s SortKey) MarshalJSON() ([]byte, error) {
	if s.Field == ScoreField {
		return json.Marshal(ScoreField)
	}
	return json.Marshal(object{s.Field: object{"order": s.Order}})
}

// HighlightField configures highlighting of one field.
type HighlightField struct {
	Type       string `json:"type"`
	Fragmenter string `json:"fragmenter"`
}

// Highlight requests highlighted fragments for the listed fields.
type Highlight struct {
	Fields map[string]HighlightField `json:"fields"`
}

// Query is a compiled search against the full-text index.
type Query struct {
	From      int
	Size      int
	Bool      *Bool
	Sort      []SortKey
	Highlight *Highlight
}

var _ search.Query = (*Query)(nil)

func (q *Query) Offset() int { return q.From }
func (q *Query) Limit() int  { return q.Size }

func (q *Query) MarshalJSON() ([]byte, error) {
	body := object{
		"from":  q.From,
		"size":  q.Size,
		"query": q.Bool,
	}
	if len(q.Sort) > 0 {
		body["sort"] = q.Sort
	}
	if q.Highlight != nil {
		body["highlight"] = q.Highlight
	}
	return json.Marshal(body)
}
