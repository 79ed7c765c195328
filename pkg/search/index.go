package search

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var indexTracer = otel.Tracer("pastebin/search/index")

// Index wraps the full-text index. It is constructed once at process start
// and passed to every component that needs it; there is no ambient global
// index handle.
//
// Consistency is asynchronous: a document is not guaranteed searchable the
// moment Upsert returns.
type Index struct {
	idx bleve.Index
}

// OpenIndex opens the index at path, creating it when it does not exist yet.
func OpenIndex(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open index at %s: %w", path, err)
	}
	return &Index{idx: idx}, nil
}

// NewMemoryIndex creates an in-memory index, used in tests.
func NewMemoryIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create memory index: %w", err)
	}
	return &Index{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	// Text fields are indexed but not stored: queries return ids only and
	// pastes are hydrated from the primary store, so there is no reason to
	// keep a second copy of large content fields in the index.
	text := bleve.NewTextFieldMapping()
	text.Store = false

	created := bleve.NewDateTimeFieldMapping()
	created.Store = false
	created.IncludeInAll = false

	rank := bleve.NewNumericFieldMapping()
	rank.Store = false
	rank.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("author", text)
	doc.AddFieldMappingsAt("description", text)
	doc.AddFieldMappingsAt("filename", text)
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("created", created)
	doc.AddFieldMappingsAt("rank", rank)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Close releases the underlying index.
func (i *Index) Close() error {
	return i.idx.Close()
}

// Upsert adds or replaces the document for a paste. Documents are keyed by
// doc id, so indexing the same paste again overwrites the previous document:
// last writer wins, no duplicates.
func (i *Index) Upsert(ctx context.Context, doc Document) error {
	_, span := indexTracer.Start(ctx, "Upsert",
		trace.WithAttributes(attribute.String("doc_id", doc.DocID)),
	)
	defer span.End()

	fields := map[string]interface{}{
		"author":      doc.Author,
		"description": doc.Description,
		"filename":    doc.Filename,
		"content":     doc.Content,
		"created":     doc.Created,
		"rank":        doc.Rank,
	}

	if err := i.idx.Index(doc.DocID, fields); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index write failed")
		return fmt.Errorf("failed to index document %s: %w", doc.DocID, err)
	}
	return nil
}

// Delete removes the document for a paste. The reconciliation jobs never
// call this; it exists for stores that delete pastes outright.
func (i *Index) Delete(ctx context.Context, docID string) error {
	if err := i.idx.Delete(docID); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", docID, err)
	}
	return nil
}

// DocCount returns the number of documents in the index.
func (i *Index) DocCount() (uint64, error) {
	return i.idx.DocCount()
}

// Query runs an expression against the index and returns one page of doc
// ids, newest pastes first. The cursor is an opaque token from a previous
// page, or empty to start from the beginning. The returned cursor is empty
// when there are no further pages.
//
// Ids only: content is never read back from the index.
func (i *Index) Query(ctx context.Context, expression, cursor string, limit int) ([]string, string, error) {
	ctx, span := indexTracer.Start(ctx, "Query",
		trace.WithAttributes(
			attribute.String("expression", expression),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	q, err := parseExpression(expression)
	if err != nil {
		span.SetStatus(codes.Error, "query parse failed")
		return nil, "", err
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	// Documents rank by created time, so this sorts newest first. The id
	// tiebreak keeps the order stable for pastes created in the same second.
	req.SortBy([]string{"-rank", "-_id"})

	if cursor != "" {
		after, err := decodeCursor(cursor)
		if err != nil {
			span.SetStatus(codes.Error, "cursor decode failed")
			return nil, "", err
		}
		req.SearchAfter = after
	}

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, "", fmt.Errorf("search failed: %w", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}

	next := ""
	if len(res.Hits) == limit {
		next = encodeCursor(res.Hits[len(res.Hits)-1].Sort)
	}

	span.SetAttributes(attribute.Int("hits", len(ids)))
	return ids, next, nil
}

func parseExpression(expression string) (query.Query, error) {
	if expression == "" {
		// Browsing without terms lists everything, newest first.
		return bleve.NewMatchAllQuery(), nil
	}

	q := bleve.NewQueryStringQuery(expression)
	if _, err := q.Parse(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrQuerySyntax, err)
	}
	return q, nil
}

// Cursors are the sort key of the last hit on a page, wrapped into an opaque
// token. The next page picks up strictly after that key.

func encodeCursor(sortKey []string) string {
	data, err := json.Marshal(sortKey)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeCursor(cursor string) ([]string, error) {
	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCursorInvalid, err)
	}
	var sortKey []string
	if err := json.Unmarshal(data, &sortKey); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCursorInvalid, err)
	}
	if len(sortKey) == 0 {
		return nil, fmt.Errorf("%w: empty sort key", ErrCursorInvalid)
	}
	return sortKey, nil
}
