package vad

import (
	"fmt"
	"math"
	"sync"
)

// EnergyClassifier is a dependency-free speech classifier based on smoothed
// RMS energy. It is deliberately simple: energy is normalized against a
// nominal speech level, lightly smoothed across frames, and compared to a
// threshold. Good enough for quiet-room dictation; use the silero engine for
// noisy input.
type EnergyClassifier struct {
	threshold float32
	frameSize int
	smoothing float32

	lastResult float32

	totalFrames  uint64
	speechFrames uint64

	mu sync.RWMutex
}

// nominalSpeechRMS is the RMS amplitude treated as "definitely speech"
// (probability 1.0) when normalizing frame energy.
const nominalSpeechRMS = 10000.0

// NewEnergyClassifier creates an energy classifier for frames of frameSize
// samples. threshold is the normalized energy (0..1) above which a frame
// counts as speech.
func NewEnergyClassifier(threshold float32, frameSize int) (*EnergyClassifier, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %f", threshold)
	}

	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameSize)
	}

	return &EnergyClassifier{
		threshold: threshold,
		frameSize: frameSize,
		smoothing: 0.3,
	}, nil
}

// IsSpeech classifies one frame by smoothed normalized RMS energy.
func (c *EnergyClassifier) IsSpeech(frame []int16) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(frame) != c.frameSize {
		return false, fmt.Errorf("expected %d samples, got %d", c.frameSize, len(frame))
	}

	var energy float64
	for _, sample := range frame {
		energy += float64(sample) * float64(sample)
	}
	energy = math.Sqrt(energy / float64(len(frame)))

	probability := float32(energy / nominalSpeechRMS)
	if probability > 1 {
		probability = 1
	}

	if c.totalFrames > 0 {
		probability = c.smoothing*probability + (1-c.smoothing)*c.lastResult
	}
	c.lastResult = probability

	isSpeech := probability >= c.threshold

	c.totalFrames++
	if isSpeech {
		c.speechFrames++
	}

	return isSpeech, nil
}

// Reset clears smoothing state and statistics.
func (c *EnergyClassifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastResult = 0
	c.totalFrames = 0
	c.speechFrames = 0
}

// UpdateThreshold changes the detection threshold at runtime.
func (c *EnergyClassifier) UpdateThreshold(threshold float32) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", threshold)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.threshold = threshold
	return nil
}

// GetStats returns classification counters.
func (c *EnergyClassifier) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ratio := float64(0)
	if c.totalFrames > 0 {
		ratio = float64(c.speechFrames) / float64(c.totalFrames)
	}

	return Stats{
		TotalFrames:  c.totalFrames,
		SpeechFrames: c.speechFrames,
		SpeechRatio:  ratio,
	}
}

var _ Classifier = (*EnergyClassifier)(nil)
