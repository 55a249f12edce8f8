// Package candidate defines the topic candidate model and its lifecycle.
//
// A candidate moves forward-only through collected, researched, generated,
// and published. Skipped and failed are the terminal side exits; no terminal
// state has outgoing transitions. The store persists candidates, but only the
// pipeline runner applies transitions.
package candidate
