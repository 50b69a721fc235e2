// Package audio provides the sample-level primitives of the recording
// pipeline: audio frames, loudness metering, PCM16 quantization, and WAV
// container encoding for transcription uploads.
package audio
