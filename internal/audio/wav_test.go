package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	samples := []int16{100, -100, 2000, -2000}

	data, err := EncodeWAVBytes(samples, 16000)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if len(data) != wavHeaderSize+len(samples)*2 {
		t.Fatalf("expected %d bytes, got %d", wavHeaderSize+len(samples)*2, len(data))
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}

	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
		t.Errorf("expected sample rate 16000 in header, got %d", rate)
	}

	if channels := binary.LittleEndian.Uint16(data[22:24]); channels != 1 {
		t.Errorf("expected mono, got %d channels", channels)
	}

	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Errorf("expected 16 bits per sample, got %d", bits)
	}
}

func TestEncodeWAVRejectsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeWAV(&buf, nil, 16000); err == nil {
		t.Error("expected error for empty samples")
	}
	if err := EncodeWAV(&buf, []int16{1}, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1234, -1234}

	data, err := EncodeWAVBytes(samples, 16000)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, rate, channels, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if rate != 16000 {
		t.Errorf("expected rate 16000, got %d", rate)
	}

	if channels != 1 {
		t.Errorf("expected mono, got %d channels", channels)
	}

	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}

	for i, s := range decoded {
		if s != samples[i] {
			t.Errorf("sample %d: expected %d, got %d", i, samples[i], s)
		}
	}
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	samples := []int16{10, 20, 30}
	data, err := EncodeWAVBytes(samples, 44100)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// Splice a LIST chunk between "fmt " and "data", the way common tools
	// write metadata.
	var spliced bytes.Buffer
	spliced.Write(data[:36]) // RIFF header + fmt chunk
	spliced.WriteString("LIST")
	binary.Write(&spliced, binary.LittleEndian, uint32(4))
	spliced.WriteString("INFO")
	spliced.Write(data[36:]) // data chunk
	riff := spliced.Bytes()
	binary.LittleEndian.PutUint32(riff[4:8], uint32(len(riff)-8))

	decoded, rate, _, err := DecodeWAV(riff)
	if err != nil {
		t.Fatalf("decode with LIST chunk failed: %v", err)
	}

	if rate != 44100 {
		t.Errorf("expected rate 44100, got %d", rate)
	}

	if len(decoded) != 3 || decoded[2] != 30 {
		t.Errorf("unexpected samples after chunk skip: %v", decoded)
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "too short", data: []byte("RIFF")},
		{name: "not riff", data: bytes.Repeat([]byte{0}, 64)},
		{
			name: "truncated chunk",
			data: append([]byte("RIFFxxxxWAVEdata\xff\xff\xff\xff"), 0, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}
