package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/davidwtbuxton/pastebin/pkg/paste"
)

// ErrNotFound is returned when an entity lookup finds nothing. The search
// layer treats it as a gap in the results rather than a failure: the index may
// briefly reference pastes that no longer exist.
var ErrNotFound = errors.New("entity not found")

// PasteReader loads pastes by id.
type PasteReader interface {
	GetPaste(ctx context.Context, id int64) (*paste.Paste, error)
}

// PasteWriter persists pastes.
type PasteWriter interface {
	// PutPaste updates an existing paste and its file rows.
	PutPaste(ctx context.Context, p *paste.Paste) error

	// CreatePasteWithFiles creates a paste with the given id, writing each
	// file's content to the blob store. An existing paste with the same id is
	// replaced, which makes migration re-runs safe as long as the id space has
	// not been reused.
	CreatePasteWithFiles(ctx context.Context, p *paste.Paste, files []NewFile) error
}

// Scanner enumerates stored entities in stable ascending id order. The cursor
// is opaque to callers: pass the returned cursor to continue, an empty string
// to start over. An empty next cursor means the scan is done.
type Scanner interface {
	ScanPastes(ctx context.Context, cursor string, limit int) ([]*paste.Paste, string, error)
	ScanPeelings(ctx context.Context, cursor string, limit int) ([]*Peeling, string, error)
}

// EntityStore is the full primary store contract consumed by the search and
// reconciliation layers.
type EntityStore interface {
	PasteReader
	PasteWriter
	Scanner
}

// BlobStore holds file contents addressed by the paths recorded on paste
// files.
type BlobStore interface {
	Open(path string) (io.ReadCloser, error)
	Write(path string, content []byte) error
}

// NewFile is a named content pair for CreatePasteWithFiles.
type NewFile struct {
	Name    string
	Content string
}

// Peeling is a record in the legacy paste schema. Peelings carry a language
// but no filename; the conversion job derives one.
type Peeling struct {
	ID       int64
	Title    string
	Content  string
	Language string
	ForkOfID *int64
	Created  time.Time
}
