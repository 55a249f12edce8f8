// Package store persists the pipeline's four record collections (candidates,
// processed videos, topic history, published posts) plus the keyword queue in
// a single SQLite database.
//
// The orchestrator assumes a single active writer. Open enforces that
// invariant with an advisory file lock held for the lifetime of the store, so
// a second invocation fails fast instead of silently racing.
package store
