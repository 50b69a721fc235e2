// Package segment buffers voiced audio frames into contiguous segments
// between silence boundaries and encodes completed segments into
// wire-ready payloads for transcription.
package segment
