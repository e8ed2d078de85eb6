package capture

import "context"

// Source is a producer of interleaved float32 audio chunks.
type Source interface {
	// SampleRate returns the native rate of the source in Hz.
	SampleRate() int

	// Channels returns the interleaved channel count (1 or 2).
	Channels() int

	// Run delivers chunks to emit until the source is exhausted or ctx is
	// cancelled. A nil return means the source ended normally (end of file,
	// cancellation); emit errors are propagated as-is.
	Run(ctx context.Context, emit func(chunk []float32) error) error
}
