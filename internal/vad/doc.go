// Package vad implements energy-based voice activity detection with a
// debounced silence boundary. A detector consumes one loudness value per
// frame and reports when sustained silence after speech marks the end of
// an utterance.
package vad
