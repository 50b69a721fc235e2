// Package display renders session output for the user: status changes,
// transcripts in arrival order, notices, and per-segment errors.
package display
