// Package logging configures structured slog output for Criterion.
//
// Logs are JSON lines written to a size-rotated file under ~/.criterion/logs/
// and, for interactive commands, mirrored to stderr. Stdio servers never
// write to stderr or stdout so the protocol stream stays clean.
package logging
