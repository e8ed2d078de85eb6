// Package pipeline wires the capture, normalization, classification,
// endpointing and transcription stages into a running two-goroutine system.
// The producer goroutine owns the hot path from raw chunks to endpointing
// events; the dispatcher goroutine pops finished utterances from the sample
// ring and blocks on transcription without ever stalling capture.
package pipeline
