// Package reconcile holds the background jobs that keep the primary store
// and the search index converging: a resave pass that repairs legacy paste
// records and refreshes their documents, and a one-way conversion of the
// legacy peelings schema into pastes. Both run on the same batch mapper,
// which delivers entities at least once and requires idempotent handlers.
package reconcile
