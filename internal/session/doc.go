// Package session wires capture, silence detection, accumulation,
// encoding, dispatch, and display into one recording session and owns its
// lifecycle.
package session
