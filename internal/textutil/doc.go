// Package textutil provides text normalization primitives shared across the
// pipeline: slug derivation, keyword sanitization, and string similarity.
package textutil
