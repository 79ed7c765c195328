package search

import (
	"context"
	"errors"
	"strconv"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/davidwtbuxton/pastebin/pkg/observability"
	"github.com/davidwtbuxton/pastebin/pkg/paste"
	"github.com/davidwtbuxton/pastebin/pkg/storage"
)

var serviceTracer = otel.Tracer("pastebin/search/service")

// IDQuery is the id-returning half of the search pipeline. Index implements
// it; tests substitute fakes so ordering and gap handling can be verified
// without an index backend.
type IDQuery interface {
	Query(ctx context.Context, expression, cursor string, limit int) (ids []string, next string, err error)
}

// Page is one page of hydrated search results.
//
// Results may contain nils: the index can briefly reference pastes that were
// deleted from the primary store, and those positions are kept as gaps
// rather than silently filtered, so pagination stays aligned with the index.
type Page struct {
	Results       []*paste.Paste
	HasNext       bool
	NextPageToken string
}

// Service runs searches as a two-step pipeline: query the index for ids,
// then hydrate each id from the primary store, preserving the index's
// ordering.
type Service struct {
	queries  IDQuery
	store    storage.PasteReader
	pageSize int
	metrics  *observability.Metrics
	log      *logrus.Entry
}

// NewService creates a search service. pageSize is the default page size
// when a caller does not specify a limit.
func NewService(queries IDQuery, store storage.PasteReader, pageSize int) *Service {
	return &Service{
		queries:  queries,
		store:    store,
		pageSize: pageSize,
		log:      logrus.WithField("component", "search"),
	}
}

// WithMetrics attaches metrics to the service and returns it.
func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	s.metrics = m
	return s
}

// Search builds a query expression from the given parameters and returns one
// page of results. pageToken is the NextPageToken of a previous page, or
// empty for the first page. A limit of zero or less uses the configured
// default.
//
// ErrQuerySyntax and ErrCursorInvalid surface to the caller, which should
// degrade to an empty or first-page response rather than failing the
// request.
func (s *Service) Search(ctx context.Context, params map[string]string, pageToken string, limit int) (*Page, error) {
	if limit <= 0 {
		limit = s.pageSize
	}

	expression := JoinTerms(BuildQuery(params))

	ctx, span := serviceTracer.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("expression", expression),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	ids, next, err := s.queries.Query(ctx, expression, pageToken, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "id query failed")
		if s.metrics != nil {
			s.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues("ok").Inc()
	}

	page := &Page{
		Results:       make([]*paste.Paste, 0, len(ids)),
		HasNext:       next != "",
		NextPageToken: next,
	}

	// Hydrate in the order the index returned: result ordering comes from
	// the index sort and must survive this step.
	for _, id := range ids {
		page.Results = append(page.Results, s.hydrate(ctx, id))
	}

	span.SetAttributes(attribute.Int("results", len(page.Results)))
	return page, nil
}

func (s *Service) hydrate(ctx context.Context, id string) *paste.Paste {
	pasteID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		s.log.WithField("doc_id", id).Warn("index returned a non-numeric doc id")
		return nil
	}

	p, err := s.store.GetPaste(ctx, pasteID)
	if errors.Is(err, storage.ErrNotFound) {
		// Stale document: the paste was deleted but the index has not caught
		// up. Leave a gap at this position.
		s.log.WithField("paste_id", pasteID).Warn("search hit references a missing paste")
		if s.metrics != nil {
			s.metrics.SearchHydrationGaps.Inc()
		}
		return nil
	}
	if err != nil {
		s.log.WithError(err).WithField("paste_id", pasteID).Warn("failed to hydrate search hit")
		return nil
	}
	return p
}
