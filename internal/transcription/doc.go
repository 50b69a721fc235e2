// Package transcription delivers encoded audio segments to the remote
// transcription service and surfaces per-segment results. Two transports
// implement the same dispatcher contract: a persistent WebSocket channel
// and a multipart HTTP request/response client.
package transcription
