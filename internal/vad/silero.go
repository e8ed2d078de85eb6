package vad

import (
	"fmt"
	"strings"

	"github.com/streamer45/silero-vad-go/speech"
)

// SileroClassifier classifies frames with the Silero VAD ONNX model. The
// model operates as a stream detector emitting start/end events; this
// adapter folds those events into the per-frame boolean the endpointer
// consumes.
type SileroClassifier struct {
	detector *speech.Detector
	floats   []float32
	inSpeech bool
}

// NewSileroClassifier loads the Silero model from modelPath. The model only
// accepts fixed window sizes (512 samples at 16 kHz, 256 at 8 kHz), so
// frameSize is validated against sampleRate before the model is touched.
func NewSileroClassifier(modelPath string, sampleRate, frameSize int, threshold float32) (*SileroClassifier, error) {
	var want int
	switch sampleRate {
	case 16000:
		want = 512
	case 8000:
		want = 256
	default:
		return nil, fmt.Errorf("silero supports 8000 or 16000 Hz, got %d", sampleRate)
	}

	if frameSize != want {
		return nil, fmt.Errorf("silero requires frame_size %d at %d Hz, got %d", want, sampleRate, frameSize)
	}

	detector, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:  modelPath,
		SampleRate: sampleRate,
		Threshold:  threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create silero detector: %w", err)
	}

	return &SileroClassifier{
		detector: detector,
		floats:   make([]float32, frameSize),
	}, nil
}

// IsSpeech classifies one frame. The detector keeps its own streaming state;
// between a start and an end event every frame counts as speech.
func (c *SileroClassifier) IsSpeech(frame []int16) (bool, error) {
	if len(frame) != len(c.floats) {
		return false, fmt.Errorf("expected %d samples, got %d", len(c.floats), len(frame))
	}

	for i, s := range frame {
		c.floats[i] = float32(s) / 32768.0
	}

	event, err := c.detector.DetectStreamFrame(c.floats)
	if err != nil {
		// The detector occasionally reports an end without a matching
		// start after internal state loss; recover by resetting.
		if strings.Contains(err.Error(), "unexpected speech end") {
			c.Reset()
			return false, nil
		}
		return false, fmt.Errorf("silero detection failed: %w", err)
	}

	if event != nil {
		if event.IsStart {
			c.inSpeech = true
		}
		if event.IsEnd {
			c.inSpeech = false
		}
	}

	return c.inSpeech, nil
}

// Reset clears the detector's streaming state.
func (c *SileroClassifier) Reset() {
	c.detector.Reset()
	c.inSpeech = false
}

// Close releases the ONNX runtime resources.
func (c *SileroClassifier) Close() error {
	return c.detector.Destroy()
}

var _ Classifier = (*SileroClassifier)(nil)
