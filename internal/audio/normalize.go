package audio

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Normalizer converts raw device chunks into mono int16 samples at the
// target rate. Stereo input is averaged into mono; a resampler is only
// instantiated when the source rate differs from the target rate.
// Resampling happens on float samples, before quantization.
//
// One Normalizer serves one source; it is not safe for concurrent use.
type Normalizer struct {
	channels  int
	srcRate   int
	dstRate   int
	resampler resampling.Resampler

	mono []float64 // scratch, reused across calls
}

// NewNormalizer creates a Normalizer for a source with the given channel
// count and sample rate. Sources with more than two channels are rejected;
// the device negotiation layer never hands one through, so hitting this from
// a negotiated config is a bug upstream.
func NewNormalizer(channels, srcRate, dstRate int) (*Normalizer, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("unsupported channel count %d: only mono and stereo input is supported", channels)
	}

	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("sample rates must be positive, got src=%d dst=%d", srcRate, dstRate)
	}

	n := &Normalizer{
		channels: channels,
		srcRate:  srcRate,
		dstRate:  dstRate,
	}

	if srcRate != dstRate {
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(srcRate),
			OutputRate: float64(dstRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityMedium},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create resampler %d->%d Hz: %w", srcRate, dstRate, err)
		}
		n.resampler = rs
	}

	return n, nil
}

// Resampling reports whether this normalizer converts the sample rate.
func (n *Normalizer) Resampling() bool {
	return n.resampler != nil
}

// Normalize converts one chunk of interleaved float32 samples into mono
// int16 samples at the target rate. The returned slice is freshly allocated
// per call; the internal scratch buffer is reused.
func (n *Normalizer) Normalize(chunk []float32) ([]int16, error) {
	if n.channels == 2 && len(chunk)%2 != 0 {
		return nil, fmt.Errorf("stereo chunk length must be even, got %d", len(chunk))
	}

	frames := len(chunk) / n.channels
	if cap(n.mono) < frames {
		n.mono = make([]float64, frames)
	}
	mono := n.mono[:frames]

	switch n.channels {
	case 1:
		for i, s := range chunk {
			mono[i] = float64(s)
		}
	case 2:
		for i := 0; i < frames; i++ {
			mono[i] = (float64(chunk[2*i]) + float64(chunk[2*i+1])) / 2
		}
	}

	if n.resampler != nil {
		out, err := n.resampler.Process(mono)
		if err != nil {
			return nil, fmt.Errorf("resampling failed: %w", err)
		}
		return QuantizeFloat64(out), nil
	}

	return QuantizeFloat64(mono), nil
}

// QuantizeFloat64 converts normalized float samples ([-1, 1]) into int16
// with saturating round-to-nearest.
func QuantizeFloat64(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = quantize(s)
	}
	return out
}

// Float32FromSample converts one int16 sample to the normalized float range
// used throughout the pipeline. quantize(Float32FromSample(s)) == s for all s.
func Float32FromSample(s int16) float32 {
	return float32(s) / 32768.0
}

func quantize(s float64) int16 {
	v := math.Round(s * 32768.0)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
