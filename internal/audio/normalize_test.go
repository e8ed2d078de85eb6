package audio

import (
	"math"
	"testing"
)

func TestNormalizerRejectsChannelCounts(t *testing.T) {
	tests := []struct {
		name      string
		channels  int
		expectErr bool
	}{
		{name: "mono", channels: 1, expectErr: false},
		{name: "stereo", channels: 2, expectErr: false},
		{name: "5.1 surround", channels: 6, expectErr: true},
		{name: "zero channels", channels: 0, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNormalizer(tt.channels, 16000, 16000)
			if tt.expectErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}

func TestNormalizeMonoTargetRateIsIdentity(t *testing.T) {
	n, err := NewNormalizer(1, 16000, 16000)
	if err != nil {
		t.Fatalf("failed to create normalizer: %v", err)
	}

	if n.Resampling() {
		t.Error("no resampler should be instantiated for matching rates")
	}

	input := []int16{0, 1, -1, 1000, -1000, math.MaxInt16, math.MinInt16}
	floats := make([]float32, len(input))
	for i, s := range input {
		floats[i] = Float32FromSample(s)
	}

	out, err := n.Normalize(floats)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if len(out) != len(input) {
		t.Fatalf("expected %d samples, got %d", len(input), len(out))
	}

	for i, s := range out {
		if s != input[i] {
			t.Errorf("sample %d: expected %d, got %d", i, input[i], s)
		}
	}
}

func TestNormalizeStereoDownmix(t *testing.T) {
	n, err := NewNormalizer(2, 16000, 16000)
	if err != nil {
		t.Fatalf("failed to create normalizer: %v", err)
	}

	// L=0.5, R=-0.5 averages to silence; L=R=0.25 stays 0.25.
	out, err := n.Normalize([]float32{0.5, -0.5, 0.25, 0.25})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("expected 2 mono samples from 2 stereo pairs, got %d", len(out))
	}

	if out[0] != 0 {
		t.Errorf("expected cancelled pair to downmix to 0, got %d", out[0])
	}

	if want := int16(8192); out[1] != want {
		t.Errorf("expected %d, got %d", want, out[1])
	}
}

func TestNormalizeStereoOddLength(t *testing.T) {
	n, err := NewNormalizer(2, 16000, 16000)
	if err != nil {
		t.Fatalf("failed to create normalizer: %v", err)
	}

	if _, err := n.Normalize([]float32{0.1, 0.2, 0.3}); err == nil {
		t.Error("expected error for odd-length stereo chunk")
	}
}

func TestNormalizeResamplingProportionality(t *testing.T) {
	n, err := NewNormalizer(1, 48000, 16000)
	if err != nil {
		t.Fatalf("failed to create normalizer: %v", err)
	}

	if !n.Resampling() {
		t.Fatal("resampler should be instantiated for 48k->16k")
	}

	// One second of a 440 Hz tone at 48 kHz should come out close to one
	// second at 16 kHz. Resamplers buffer a little internally, so allow a
	// small tolerance rather than demanding exact counts.
	input := make([]float32, 48000)
	for i := range input {
		input[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/48000))
	}

	var total int
	for start := 0; start < len(input); start += 4800 {
		out, err := n.Normalize(input[start : start+4800])
		if err != nil {
			t.Fatalf("normalize failed: %v", err)
		}
		total += len(out)
	}

	if total < 15000 || total > 17000 {
		t.Errorf("expected ~16000 output samples for 48000 input, got %d", total)
	}
}

func TestQuantizeSaturates(t *testing.T) {
	out := QuantizeFloat64([]float64{2.0, -2.0, 0.0, 1.0, -1.0})

	if out[0] != math.MaxInt16 {
		t.Errorf("expected positive overflow to saturate at %d, got %d", math.MaxInt16, out[0])
	}

	if out[1] != math.MinInt16 {
		t.Errorf("expected negative overflow to saturate at %d, got %d", math.MinInt16, out[1])
	}

	if out[2] != 0 {
		t.Errorf("expected 0, got %d", out[2])
	}

	if out[4] != math.MinInt16 {
		t.Errorf("expected -1.0 to quantize to %d, got %d", math.MinInt16, out[4])
	}
}
