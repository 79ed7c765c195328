package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davidwtbuxton/pastebin/pkg/observability"
	"github.com/davidwtbuxton/pastebin/pkg/paste"
	"github.com/davidwtbuxton/pastebin/pkg/search"
	"github.com/davidwtbuxton/pastebin/pkg/storage"
)

const resaveJobName = "resave-pastes"

// DocumentIndexer is the slice of the search index the jobs need.
type DocumentIndexer interface {
	Upsert(ctx context.Context, doc search.Document) error
}

// ResaveJob walks every paste, repairs legacy records in the primary store
// and refreshes the search index. Running it repeatedly is safe: a paste
// already in its canonical form is re-indexed but never re-written.
type ResaveJob struct {
	store   storage.EntityStore
	blobs   storage.BlobStore
	index   DocumentIndexer
	workers int
	batch   int
	metrics *observability.Metrics
	log     *logrus.Entry
}

func NewResaveJob(store storage.EntityStore, blobs storage.BlobStore, index DocumentIndexer, workers, batchSize int, metrics *observability.Metrics) *ResaveJob {
	return &ResaveJob{
		store:   store,
		blobs:   blobs,
		index:   index,
		workers: workers,
		batch:   batchSize,
		metrics: metrics,
		log:     logrus.WithField("job", resaveJobName),
	}
}

func (j *ResaveJob) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	defer func() {
		if j.metrics != nil {
			j.metrics.JobDurationSeconds.WithLabelValues(resaveJobName).Observe(time.Since(start).Seconds())
		}
	}()

	m := &Mapper[*paste.Paste]{
		Name:      resaveJobName,
		RunID:     start.UTC().Format(time.RFC3339),
		Scan:      j.store.ScanPastes,
		Handle:    j.resave,
		Workers:   j.workers,
		BatchSize: j.batch,
		Metrics:   j.metrics,
	}
	return m.Run(ctx)
}

func (j *ResaveJob) resave(ctx context.Context, p *paste.Paste) error {
	// Legacy records carry NULL description/filename or files saved without
	// a relative path. Writing the paste back through the store normalizes
	// both; a clean paste skips the write so repeated runs converge.
	dirty := p.NeedsRepair
	for i := range p.Files {
		if p.Files[i].RelativePath == "" {
			p.Files[i].RelativePath = paste.RelativePathFromPath(p.Files[i].Path)
			dirty = true
		}
	}
	if dirty {
		if err := j.store.PutPaste(ctx, p); err != nil {
			return fmt.Errorf("failed to resave paste %d: %w", p.ID, err)
		}
	}

	doc, err := search.BuildDocument(p, j.blobs)
	if err != nil {
		if errors.Is(err, search.ErrContentUnavailable) {
			// Leave the stale document in place; the next run retries.
			j.log.WithError(err).WithField("paste_id", p.ID).Warn("skipping index for paste with unreadable content")
			return nil
		}
		return err
	}
	if err := j.index.Upsert(ctx, doc); err != nil {
		if j.metrics != nil {
			j.metrics.IndexErrorsTotal.Inc()
		}
		return fmt.Errorf("failed to index paste %d: %w", p.ID, err)
	}
	if j.metrics != nil {
		j.metrics.IndexUpsertsTotal.Inc()
	}
	return nil
}
