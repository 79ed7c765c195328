package reconcile

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/davidwtbuxton/pastebin/pkg/observability"
)

const (
	defaultWorkers    = 4
	defaultBatchSize  = 100
	defaultMaxRetries = 3
)

// ScanFunc returns one batch of entities. An empty cursor starts the scan;
// an empty returned cursor ends it.
type ScanFunc[T any] func(ctx context.Context, cursor string, limit int) ([]T, string, error)

// HandlerFunc processes a single entity. Handlers must be idempotent: the
// mapper delivers at least once, and a failed batch is redelivered whole,
// including entities that already succeeded.
type HandlerFunc[T any] func(ctx context.Context, entity T) error

// Stats summarizes a mapper run.
type Stats struct {
	Visited       int64
	Retried       int64
	FailedBatches int64
}

// Mapper walks every entity of a kind in batches, fanning batches out to a
// worker pool. It is the explicit form of the visit-everything pattern both
// reconciliation jobs share: a producer scans the primary store in stable
// order, workers pull batches and invoke the handler per entity.
//
// Delivery is at-least-once. Batches are retried as a unit; a batch that
// keeps failing is counted and abandoned rather than stalling the run.
// Nothing orders one batch relative to another.
type Mapper[T any] struct {
	// Name is the stable job name, used as the metrics label.
	Name string

	// RunID identifies this invocation, for log correlation.
	RunID string

	Scan   ScanFunc[T]
	Handle HandlerFunc[T]

	Workers    int
	BatchSize  int
	MaxRetries int

	Metrics *observability.Metrics

	visited atomic.Int64
	retried atomic.Int64
	failed  atomic.Int64
}

type batch[T any] struct {
	id       string
	entities []T
}

// Run drains the scan. It returns an error only when the scan itself fails
// or the context is cancelled; handler failures are recorded in the stats
// and metrics instead.
func (m *Mapper[T]) Run(ctx context.Context) (Stats, error) {
	workers := m.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	batchSize := m.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	log := logrus.WithFields(logrus.Fields{"job": m.Name, "run": m.RunID})

	g, ctx := errgroup.WithContext(ctx)
	batches := make(chan batch[T])

	g.Go(func() error {
		defer close(batches)
		cursor := ""
		for {
			entities, next, err := m.Scan(ctx, cursor, batchSize)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			if len(entities) > 0 {
				b := batch[T]{id: uuid.NewString(), entities: entities}
				select {
				case batches <- b:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if next == "" {
				return nil
			}
			cursor = next
		}
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for b := range batches {
				m.processBatch(ctx, log, b)
			}
			return nil
		})
	}

	err := g.Wait()

	stats := Stats{
		Visited:       m.visited.Load(),
		Retried:       m.retried.Load(),
		FailedBatches: m.failed.Load(),
	}
	log.WithFields(logrus.Fields{
		"visited": stats.Visited,
		"retried": stats.Retried,
		"failed":  stats.FailedBatches,
	}).Info("mapper run finished")

	return stats, err
}

func (m *Mapper[T]) processBatch(ctx context.Context, log *logrus.Entry, b batch[T]) {
	maxRetries := m.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		err := m.handleAll(ctx, b)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt >= maxRetries {
			m.failed.Add(1)
			if m.Metrics != nil {
				m.Metrics.JobBatchFailuresTotal.WithLabelValues(m.Name).Inc()
			}
			log.WithError(err).WithField("batch", b.id).Error("abandoning batch after retries")
			return
		}

		m.retried.Add(1)
		if m.Metrics != nil {
			m.Metrics.JobBatchRetriesTotal.WithLabelValues(m.Name).Inc()
		}
		log.WithError(err).WithFields(logrus.Fields{
			"batch":   b.id,
			"attempt": attempt + 1,
		}).Warn("retrying batch")
	}
}

func (m *Mapper[T]) handleAll(ctx context.Context, b batch[T]) error {
	for _, entity := range b.entities {
		m.visited.Add(1)
		if m.Metrics != nil {
			m.Metrics.JobEntitiesVisitedTotal.WithLabelValues(m.Name).Inc()
		}
		if err := m.Handle(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}
