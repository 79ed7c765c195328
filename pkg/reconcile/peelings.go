package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davidwtbuxton/pastebin/pkg/observability"
	"github.com/davidwtbuxton/pastebin/pkg/paste"
	"github.com/davidwtbuxton/pastebin/pkg/storage"
)

const convertJobName = "convert-peelings"

// languageExtensions maps a peeling's declared language to the filename
// extension of the converted paste. Unknown languages fall back to .txt.
var languageExtensions = map[string]string{
	"JSCRIPT":    ".js",
	"PLAIN":      ".txt",
	"BASH":       ".sh",
	"PYTHON":     ".py",
	"CSS":        ".css",
	"SQL":        ".sql",
	"CPP":        ".cpp",
	"DIFF":       ".diff",
	"POWERSHELL": ".ps1",
}

func peelingFilename(language string) string {
	ext, ok := languageExtensions[language]
	if !ok {
		ext = ".txt"
	}
	return "untitled" + ext
}

// ConvertPeelingsJob migrates records from the legacy peelings table into
// pastes. Conversion keys on the legacy id, so re-running it overwrites the
// same pastes rather than duplicating them. Converted pastes are not indexed
// here; the resave job picks them up on its next pass.
type ConvertPeelingsJob struct {
	store   storage.EntityStore
	workers int
	batch   int
	metrics *observability.Metrics
	log     *logrus.Entry
}

func NewConvertPeelingsJob(store storage.EntityStore, workers, batchSize int, metrics *observability.Metrics) *ConvertPeelingsJob {
	return &ConvertPeelingsJob{
		store:   store,
		workers: workers,
		batch:   batchSize,
		metrics: metrics,
		log:     logrus.WithField("job", convertJobName),
	}
}

func (j *ConvertPeelingsJob) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	defer func() {
		if j.metrics != nil {
			j.metrics.JobDurationSeconds.WithLabelValues(convertJobName).Observe(time.Since(start).Seconds())
		}
	}()

	m := &Mapper[*storage.Peeling]{
		Name:      convertJobName,
		RunID:     start.UTC().Format(time.RFC3339),
		Scan:      j.store.ScanPeelings,
		Handle:    j.convert,
		Workers:   j.workers,
		BatchSize: j.batch,
		Metrics:   j.metrics,
	}
	return m.Run(ctx)
}

func (j *ConvertPeelingsJob) convert(ctx context.Context, pl *storage.Peeling) error {
	filename := peelingFilename(pl.Language)
	p := &paste.Paste{
		ID:          pl.ID,
		Description: pl.Title,
		Filename:    filename,
		Created:     pl.Created,
		ForkedFrom:  pl.ForkOfID,
	}
	files := []storage.NewFile{{Name: filename, Content: pl.Content}}
	if err := j.store.CreatePasteWithFiles(ctx, p, files); err != nil {
		return fmt.Errorf("failed to convert peeling %d: %w", pl.ID, err)
	}
	return nil
}
