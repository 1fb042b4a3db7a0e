package index

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	_ "github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	_ "github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/rubiojr/filefinder/pkg/log"
	"github.com/rubiojr/filefinder/pkg/search"
)

// fieldTitleLower is a lowercased copy of the title used for case
// insensitive regular expressions, which bleve does not support natively.
const fieldTitleLower = "title.lowercase"

// BuildMapping returns the bleve mapping of file documents.
func BuildMapping() (mapping.IndexMapping, error) {
	m := bleve.NewIndexMapping()
	err := m.AddCustomAnalyzer("keyword_lc", map[string]interface{}{
		"type":          "custom",
		"tokenizer":     "single",
		"token_filters": []string{"to_lower"},
	})
	if err != nil {
		return nil, fmt.Errorf("adding keyword_lc analyzer: %w", err)
	}

	doc := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Store = true
	titleKeyword := bleve.NewKeywordFieldMapping()
	titleKeyword.Name = FieldTitleKeyword
	titleKeyword.Store = false
	titleLower := bleve.NewTextFieldMapping()
	titleLower.Name = fieldTitleLower
	titleLower.Analyzer = "keyword_lc"
	titleLower.Store = false
	titleLower.IncludeInAll = false
	doc.AddFieldMappingsAt(FieldTitle, title, titleKeyword, titleLower)

	content := bleve.NewTextFieldMapping()
	content.Store = true
	content.IncludeTermVectors = true
	doc.AddFieldMappingsAt(FieldContent, content)

	modified := bleve.NewNumericFieldMapping()
	modified.Store = true
	doc.AddFieldMappingsAt(FieldLastModified, modified)

	shares := bleve.NewDocumentMapping()
	shares.Dynamic = true
	shares.DefaultAnalyzer = keyword.Name
	doc.AddSubDocumentMapping(FieldShareNames, shares)

	attachment := bleve.NewDocumentMapping()
	contentType := bleve.NewKeywordFieldMapping()
	contentType.Store = true
	attachment.AddFieldMappingsAt("content_type", contentType)
	doc.AddSubDocumentMapping("attachment", attachment)

	m.DefaultMapping = doc
	return m, nil
}

// OpenBleve opens the index at path, creating it when it does not exist.
// An empty path creates an in-memory index.
func OpenBleve(path string) (bleve.Index, error) {
	if path == "" {
		m, err := BuildMapping()
		if err != nil {
			return nil, err
		}
		return bleve.NewMemOnly(m)
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		m, merr := BuildMapping()
		if merr != nil {
			return nil, merr
		}
		idx, err = bleve.New(path, m)
		if err != nil {
			return nil, fmt.Errorf("creating bleve index at %s: %w", path, err)
		}
		log.ForService("bleve").Infof("created index at %s", path)
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening bleve index at %s: %w", path, err)
	}
	return idx, nil
}

// BleveExecutor runs compiled queries against an embedded bleve index.
type BleveExecutor struct {
	idx    bleve.Index
	logger *log.Logger
}

var _ Executor = (*BleveExecutor)(nil)

// NewBleveExecutor wraps idx.
func NewBleveExecutor(idx bleve.Index) *BleveExecutor {
	return &BleveExecutor{idx: idx, logger: log.ForService("bleve")}
}

func (b *BleveExecutor) Name() string {
	return "bleve"
}

// Execute translates q to a bleve search request and runs it.
func (b *BleveExecutor) Execute(ctx context.Context, q *Query) (*Result, error) {
	bq, err := translateBool(q.Bool)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(bq, q.Size, q.From, false)
	req.Fields = []string{"*"}
	if q.Highlight != nil {
		req.Highlight = bleve.NewHighlight()
		for field := range q.Highlight.Fields {
			req.Highlight.AddField(field)
		}
	}
	if len(q.Sort) > 0 {
		req.SortBy(translateSort(q.Sort))
	}

	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}
	b.logger.Debugf("bleve matched %d documents in %s", res.Total, res.Took)

	out := &Result{StatusCode: http.StatusOK, Total: int(res.Total), Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		out.Hits = append(out.Hits, Hit{
			ID:        h.ID,
			Score:     h.Score,
			Source:    sourceFromFields(h.Fields),
			Highlight: h.Fragments,
		})
	}
	return out, nil
}

func translateBool(b *Bool) (query.Query, error) {
	if b == nil {
		return bleve.NewMatchAllQuery(), nil
	}

	var must, mustNot []query.Query
	for _, group := range [][]Clause{b.Filter, b.Must} {
		for _, c := range group {
			q, err := translateClause(c)
			if err != nil {
				return nil, err
			}
			must = append(must, q)
		}
	}
	for _, c := range b.MustNot {
		q, err := translateClause(c)
		if err != nil {
			return nil, err
		}
		mustNot = append(mustNot, q)
	}
	if len(must) == 0 {
		must = append(must, bleve.NewMatchAllQuery())
	}
	return query.NewBooleanQuery(must, nil, mustNot), nil
}

func translateClause(c Clause) (query.Query, error) {
	switch c := c.(type) {
	case Regexp:
		if c.CaseInsensitive && c.Field == FieldTitleKeyword {
			q := bleve.NewRegexpQuery(strings.ToLower(c.Value))
			q.SetField(fieldTitleLower)
			return q, nil
		}
		q := bleve.NewRegexpQuery(c.Value)
		q.SetField(c.Field)
		return q, nil
	case Wildcard:
		q := bleve.NewWildcardQuery(c.Value)
		q.SetField(c.Field)
		return q, nil
	case Range:
		var min, max *float64
		if c.GT != nil {
			v := float64(*c.GT)
			min = &v
		}
		if c.LT != nil {
			v := float64(*c.LT)
			max = &v
		}
		exclusive := false
		q := bleve.NewNumericRangeInclusiveQuery(min, max, &exclusive, &exclusive)
		q.SetField(c.Field)
		return q, nil
	case Prefix:
		q := bleve.NewPrefixQuery(c.Value)
		q.SetField(c.Field)
		return q, nil
	case Term:
		q := bleve.NewTermQuery(c.Value)
		q.SetField(c.Field)
		return q, nil
	case Exists:
		q := bleve.NewWildcardQuery("*")
		q.SetField(c.Field)
		return q, nil
	case Match:
		q := bleve.NewMatchQuery(c.Query)
		q.SetField(c.Field)
		return q, nil
	case *Bool:
		return translateBool(c)
	default:
		return nil, fmt.Errorf("unsupported clause %T", c)
	}
}

func translateSort(keys []SortKey) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k.Field == ScoreField {
			out = append(out, "-_score")
			continue
		}
		if k.Order == search.Asc {
			out = append(out, k.Field)
		} else {
			out = append(out, "-"+k.Field)
		}
	}
	return out
}

// sourceFromFields rebuilds a Source from the flat stored fields of a hit.
func sourceFromFields(fields map[string]interface{}) Source {
	src := Source{ShareNames: map[string]string{}}
	for name, value := range fields {
		switch {
		case name == FieldTitle:
			src.Title, _ = value.(string)
		case name == FieldLastModified:
			if f, ok := value.(float64); ok {
				ts := int64(f)
				src.LastModified = &ts
			}
		case name == FieldContentType:
			src.Attachment.ContentType, _ = value.(string)
		case strings.HasPrefix(name, FieldShareNames+"."):
			if s, ok := value.(string); ok {
				src.ShareNames[strings.TrimPrefix(name, FieldShareNames+".")] = s
			}
		}
	}
	return src
}

// Document is a file as stored in the index.
type Document struct {
	FileID       string
	Title        string
	Content      string
	LastModified int64
	ContentType  string
	// ShareNames maps users to the path of the file in their tree.
	ShareNames map[string]string
}

// DocID returns the index id of the document.
func (d Document) DocID() string {
	return "files:" + d.FileID
}

func (d Document) fields() map[string]interface{} {
	shares := make(map[string]interface{}, len(d.ShareNames))
	for user, p := range d.ShareNames {
		shares[user] = p
	}
	return map[string]interface{}{
		FieldTitle:        d.Title,
		FieldContent:      d.Content,
		FieldLastModified: float64(d.LastModified),
		FieldShareNames:   shares,
		"attachment":      map[string]interface{}{"content_type": d.ContentType},
	}
}

// Indexer adds and removes documents in a bleve index.
type Indexer struct {
	mu  sync.Mutex
	idx bleve.Index
}

// NewIndexer wraps idx.
func NewIndexer(idx bleve.Index) *Indexer {
	return &Indexer{idx: idx}
}

// Index stores docs in a single batch.
func (i *Indexer) Index(docs ...Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.idx.NewBatch()
	for _, d := range docs {
		if d.FileID == "" {
			return fmt.Errorf("document %q has no file id", d.Title)
		}
		if err := batch.Index(d.DocID(), d.fields()); err != nil {
			return fmt.Errorf("indexing %s: %w", d.Title, err)
		}
	}
	return i.idx.Batch(batch)
}

// Delete removes the document of fileID.
func (i *Indexer) Delete(fileID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.idx.Delete(Document{FileID: fileID}.DocID())
}

// Count returns the number of indexed documents.
func (i *Indexer) Count() (uint64, error) {
	return i.idx.DocCount()
}
