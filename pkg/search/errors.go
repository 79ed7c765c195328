package search

import "errors"

var (
	// ErrContentUnavailable means a file's content could not be read while
	// building a document. The paste is skipped for that indexing cycle and
	// picked up again on the next reconciliation pass.
	ErrContentUnavailable = errors.New("paste content unavailable")

	// ErrQuerySyntax means the query expression is malformed. Surfaced to the
	// caller as an invalid search; never retried.
	ErrQuerySyntax = errors.New("invalid query syntax")

	// ErrCursorInvalid means a pagination token could not be decoded. Callers
	// should restart from the first page.
	ErrCursorInvalid = errors.New("invalid page cursor")
)
