package vad

// Classifier decides whether a single fixed-size frame of mono PCM samples
// at the target rate contains speech. Implementations may keep internal
// smoothing state; they are driven by a single goroutine.
type Classifier interface {
	// IsSpeech classifies one frame. The frame length must match the size
	// the classifier was configured with.
	IsSpeech(frame []int16) (bool, error)

	// Reset clears any internal smoothing or streaming state.
	Reset()
}

// Stats reports classification counters for diagnostics.
type Stats struct {
	TotalFrames  uint64  `json:"total_frames"`
	SpeechFrames uint64  `json:"speech_frames"`
	SpeechRatio  float64 `json:"speech_ratio"`
}
