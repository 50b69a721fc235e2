// Package protocol defines the wire messages of the persistent-channel
// transcription transport: the client-to-server audio chunk envelope and
// the server-to-client result payload.
package protocol
