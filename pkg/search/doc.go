// Package search maintains the full-text index over pastes and runs queries
// against it.
//
// # Overview
//
// The index is derived data: the primary store stays authoritative and the
// index follows it. Writes go through BuildDocument + Index.Upsert, keyed by
// the paste id so re-indexing never duplicates. Reads are a two-step
// pipeline: the index returns ordered doc ids only, and Service hydrates
// each id from the primary store without disturbing the order.
//
// # Query syntax
//
// Queries use the index's query-string language. BuildQuery maps the
// structured UI parameters onto it:
//
//	{"author": "alice", "q": "foo"}  ->  author:"alice" foo
//
// Concatenated terms are an implicit AND. Default ordering is newest first
// (documents rank by their created time); there is no relevance scoring.
//
// # Pagination
//
// Query returns an opaque cursor token with each full page. Passing it back
// continues after the last result; an empty returned cursor means the scan
// is complete. Tokens that cannot be decoded fail with ErrCursorInvalid,
// which callers treat as "restart from the first page".
//
// # Consistency
//
// Upsert is best-effort and asynchronous: a crash between a store write and
// the matching index write leaves the two briefly inconsistent, and the
// reconcile package's resave job is the repair mechanism. Hits for pastes
// that no longer exist hydrate to nil gaps in the page.
package search
