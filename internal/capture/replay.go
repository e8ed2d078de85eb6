package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/taliyahwebb/whisper-real-time/internal/audio"
)

var _ Source = (*Replay)(nil)

// Replay feeds a WAV file through the pipeline at recording speed, emitting
// one chunk per pacing interval. Useful for regression runs and for
// transcribing recordings with the exact behavior of a live session.
type Replay struct {
	samples    []float32
	sampleRate int
	channels   int
	chunkSize  int // interleaved samples per emitted chunk
}

// NewReplay loads the WAV file at path. 16-bit PCM, mono or stereo, any rate.
func NewReplay(path string) (*Replay, error) {
	pcm, rate, channels, err := audio.ReadWAVFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load replay file: %w", err)
	}

	samples := make([]float32, len(pcm))
	for i, s := range pcm {
		samples[i] = audio.Float32FromSample(s)
	}

	return &Replay{
		samples:    samples,
		sampleRate: rate,
		channels:   channels,
		chunkSize:  framesPerBuffer(rate) * channels,
	}, nil
}

// SampleRate returns the file's sample rate in Hz.
func (r *Replay) SampleRate() int { return r.sampleRate }

// Channels returns the file's channel count.
func (r *Replay) Channels() int { return r.channels }

// Duration returns the length of the recording.
func (r *Replay) Duration() time.Duration {
	frames := len(r.samples) / r.channels
	return time.Duration(frames) * time.Second / time.Duration(r.sampleRate)
}

// Run emits chunks paced to the recording's own rate: after each chunk the
// replay sleeps for the chunk's duration, so downstream timing matches a live
// capture. Returns nil at end of file or cancellation.
func (r *Replay) Run(ctx context.Context, emit func(chunk []float32) error) error {
	for off := 0; off < len(r.samples); off += r.chunkSize {
		end := off + r.chunkSize
		if end > len(r.samples) {
			end = len(r.samples)
		}
		chunk := r.samples[off:end]

		if err := emit(chunk); err != nil {
			return err
		}

		frames := len(chunk) / r.channels
		pace := time.Duration(frames) * time.Second / time.Duration(r.sampleRate)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(pace):
		}
	}

	return nil
}
