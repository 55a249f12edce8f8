// Package notifications pushes run-level events to ntfy when a topic is
// configured, and degrades to a noop otherwise. Notification failures are
// reported to the caller but never interrupt the pipeline.
package notifications
