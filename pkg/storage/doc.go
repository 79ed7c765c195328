// Package storage provides the primary store for pastes and their file
// contents.
//
// Metadata lives in a SQL database (PostgreSQL in production, SQLite for
// tests and single-node setups) behind the EntityStore interface. File
// contents are kept out of the database in a BlobStore, addressed by the
// paths recorded on paste file rows. CachedStore adds a read-through
// hydration cache (in-process LRU plus optional Redis) in front of any
// EntityStore.
//
// The store is deliberately dumb: get by id, put, and stable-order batch
// scans. Search indexing and schema repair are the search and reconcile
// packages' business; they consume this package's interfaces.
//
// The legacy "peeling" schema is exposed read-only through Scanner so the
// one-time conversion job can migrate it into the paste model.
package storage
