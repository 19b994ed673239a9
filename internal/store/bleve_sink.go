package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
	"github.com/Aman-CERP/ancestry/internal/preprocess"
)

// Reserved document fields. Index field ids must not collide with them.
const (
	FieldEntityID   = "doc_entity"
	FieldDatasource = "doc_datasource"
	FieldLabel      = "doc_label"
)

// Hit is one search result.
type Hit struct {
	ID       string
	EntityID string
	Label    string
	Score    float64
}

// BleveSink writes preprocessed items to a bleve index. Field values are
// indexed verbatim so identifier lookups are exact; only the label is
// analyzed for text matching.
type BleveSink struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// validateIndexIntegrity checks index_meta.json of an existing index.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// NewBleveSink opens or creates the index at path. An empty path creates an
// in-memory index. A corrupted index is removed and recreated empty.
func NewBleveSink(path string) (*BleveSink, error) {
	indexMapping := createIndexMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateIndexIntegrity(path); validErr != nil {
			slog.Warn("search_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, ancerrors.New(ancerrors.ErrCodeCorruptIndex,
					"search index corrupted and cannot be removed", removeErr).WithDetail("path", path)
			}
			slog.Info("search_index_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, please reindex"))
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, ancerrors.StoreError("failed to create/open search index", err).WithDetail("path", path)
	}

	return &BleveSink{index: idx, path: path}, nil
}

func createIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = keyword.Name

	label := bleve.NewTextFieldMapping()
	label.Analyzer = standard.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(FieldLabel, label)
	indexMapping.DefaultMapping = doc

	return indexMapping
}

// Index writes documents in one batch, replacing existing ones.
func (b *BleveSink) Index(ctx context.Context, docs []*preprocess.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ancerrors.StoreError("search index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID(), toBleve(doc)); err != nil {
			return ancerrors.New(ancerrors.ErrCodeIndexFailed,
				fmt.Sprintf("failed to index document %s", doc.ID()), err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return ancerrors.New(ancerrors.ErrCodeIndexFailed, "failed to execute batch", err)
	}
	return nil
}

func toBleve(doc *preprocess.Document) map[string]interface{} {
	out := map[string]interface{}{
		FieldEntityID:   doc.EntityID(),
		FieldDatasource: doc.Datasource,
	}
	for _, id := range doc.FieldIDs() {
		values := doc.Field(id).Values()
		if len(values) == 0 {
			continue
		}
		out[id] = values
	}
	if label := doc.Field(FieldLabel); label != nil && len(label.Values()) > 0 {
		out[FieldLabel] = strings.Join(label.Values(), " ")
	}
	return out
}

// SearchWithin returns documents whose field holds ancestorID, optionally
// narrowed by a text match on the label.
func (b *BleveSink) SearchWithin(ctx context.Context, field, ancestorID, text string, limit int) ([]Hit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ancerrors.StoreError("search index is closed", nil)
	}
	if limit <= 0 {
		limit = 10
	}

	within := bleve.NewTermQuery(ancestorID)
	within.SetField(field)

	var q query.Query = within
	if strings.TrimSpace(text) != "" {
		match := bleve.NewMatchQuery(text)
		match.SetField(FieldLabel)
		q = bleve.NewConjunctionQuery(within, match)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{FieldEntityID, FieldLabel}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, ancerrors.New(ancerrors.ErrCodeSearchFailed, "search failed", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, Hit{
			ID:       h.ID,
			EntityID: fieldString(h.Fields[FieldEntityID]),
			Label:    fieldString(h.Fields[FieldLabel]),
			Score:    h.Score,
		})
	}
	return hits, nil
}

func fieldString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Delete removes documents by id.
func (b *BleveSink) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ancerrors.StoreError("search index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return ancerrors.New(ancerrors.ErrCodeIndexFailed, "failed to delete documents", err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (b *BleveSink) Count() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, ancerrors.StoreError("search index is closed", nil)
	}
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveSink) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}
