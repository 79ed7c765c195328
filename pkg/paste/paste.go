package paste

import (
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
)

// DefaultContentType is used when a file's type cannot be guessed from its name.
const DefaultContentType = "text/plain"

// Paste is a collection of text files with some metadata. The file order is
// significant: it is the order contents are concatenated for indexing.
type Paste struct {
	ID          int64      `json:"id"`
	Author      string     `json:"author"`
	Description string     `json:"description"`
	Filename    string     `json:"filename"`
	Created     time.Time  `json:"created"`
	ForkedFrom  *int64     `json:"forked_from,omitempty"`
	Files       []File     `json:"files"`

	// NeedsRepair is set by the storage layer when the persisted row predates
	// the current schema defaults (NULL author/filename/description or a file
	// without a relative path). The resave job clears it with a single put.
	NeedsRepair bool `json:"-"`
}

// String implements fmt.Stringer as "author / filename", with "anonymous" for
// pastes that have no author.
func (p *Paste) String() string {
	author := p.Author
	if author == "" {
		author = "anonymous"
	}
	return fmt.Sprintf("%s / %s", author, p.Filename)
}

// File is a single named file owned by a paste. Path locates the content in
// the blob store; RelativePath is the display name relative to the paste.
type File struct {
	Path         string `json:"path"`
	RelativePath string `json:"relative_path"`
}

// ContentType guesses the media type from the file's name. Parameters such as
// charset are stripped. Unknown extensions fall back to text/plain.
func (f File) ContentType() string {
	ext := path.Ext(f.RelativePath)
	if ext == "" {
		ext = path.Ext(f.Path)
	}

	ctype := mime.TypeByExtension(ext)
	if ctype == "" {
		return DefaultContentType
	}
	if i := strings.Index(ctype, ";"); i != -1 {
		ctype = strings.TrimSpace(ctype[:i])
	}
	return ctype
}

// BlobPath returns the blob store locator for a file belonging to a paste.
func BlobPath(id int64, relativePath string) string {
	return fmt.Sprintf("pastes/%d/%s", id, relativePath)
}

// RelativePathFromPath derives a display path from a blob store locator,
// stripping the "pastes/<id>/" prefix. Locators that don't match the layout
// fall back to the base name, which is always non-empty for non-empty input.
func RelativePathFromPath(p string) string {
	parts := strings.SplitN(p, "/", 3)
	if len(parts) == 3 && parts[0] == "pastes" {
		return parts[2]
	}
	return path.Base(p)
}
