// Package logging configures slog output for newsmill: a key=value console
// handler for interactive use, a JSON handler for structured collection, and
// helpers that thread candidate/stage/correlation fields through context.
package logging
