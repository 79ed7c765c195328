package search

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/davidwtbuxton/pastebin/pkg/paste"
	"github.com/davidwtbuxton/pastebin/pkg/storage"
)

// contentSeparator joins file contents in the aggregated content field.
const contentSeparator = "\n\n"

// Document is the indexable representation of a paste. It is ephemeral:
// rebuilt from the paste on every index write, never stored elsewhere.
type Document struct {
	DocID       string
	Author      string
	Description string
	Filename    string
	Content     string
	Created     time.Time
	Rank        int64
}

// BuildDocument derives a document from a fully-loaded paste, reading every
// file's content from the blob store and joining them in file order.
//
// The doc id is the string form of the paste id, so re-indexing a paste
// replaces its document rather than adding a duplicate. The rank is the
// created time as epoch seconds, which keeps default result ordering at
// newest-first without any relevance scoring. The index backend refuses
// timezone-aware timestamps, so the created time is normalized to UTC first.
func BuildDocument(p *paste.Paste, blobs storage.BlobStore) (Document, error) {
	contents := make([]string, 0, len(p.Files))
	for _, f := range p.Files {
		content, err := readBlob(blobs, f.Path)
		if err != nil {
			return Document{}, fmt.Errorf("%w: %s: %s", ErrContentUnavailable, f.Path, err)
		}
		contents = append(contents, content)
	}

	created := p.Created.UTC()

	return Document{
		DocID:       strconv.FormatInt(p.ID, 10),
		Author:      p.Author,
		Description: p.Description,
		Filename:    p.Filename,
		Content:     strings.Join(contents, contentSeparator),
		Created:     created,
		Rank:        created.Unix(),
	}, nil
}

// readBlob reads a blob completely, releasing the handle on every exit path.
func readBlob(blobs storage.BlobStore, path string) (string, error) {
	rc, err := blobs.Open(path)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(content), nil
}
