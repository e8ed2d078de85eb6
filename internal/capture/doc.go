// Package capture produces the raw audio the pipeline consumes. Two sources
// are provided: live microphone capture through PortAudio, and paced replay
// of a WAV file that feeds samples at the speed of the original recording.
// Both deliver interleaved float32 chunks in whatever rate and channel layout
// the source natively uses; format normalization happens downstream.
package capture
