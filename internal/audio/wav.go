package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const wavHeaderSize = 44

// wavFormat mirrors the fields of a PCM "fmt " chunk.
type wavFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// EncodeWAV writes samples as a canonical WAV stream (PCM 16-bit signed,
// mono, the given rate) to w. This is the exact format the external
// transcription process expects on its standard input.
func EncodeWAV(w io.Writer, samples []int16, sampleRate int) error {
	if len(samples) == 0 {
		return fmt.Errorf("cannot encode empty audio")
	}

	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	dataSize := uint32(len(samples) * 2)

	var header bytes.Buffer
	header.WriteString("RIFF")
	binary.Write(&header, binary.LittleEndian, uint32(wavHeaderSize-8)+dataSize)
	header.WriteString("WAVE")
	header.WriteString("fmt ")
	binary.Write(&header, binary.LittleEndian, uint32(16))
	binary.Write(&header, binary.LittleEndian, wavFormat{
		AudioFormat:   1, // PCM
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
	})
	header.WriteString("data")
	binary.Write(&header, binary.LittleEndian, dataSize)

	if _, err := w.Write(header.Bytes()); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}

	return nil
}

// EncodeWAVBytes encodes samples into an in-memory WAV file.
func EncodeWAVBytes(samples []int16, sampleRate int) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(samples)*2))
	if err := EncodeWAV(buf, samples, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeWAV parses a WAV file into interleaved int16 samples. Mono and
// stereo are accepted at any sample rate; the normalizer downstream handles
// both, so replay input does not need to match the target format. Chunks
// other than "fmt " and "data" (LIST, INFO, ...) are skipped.
func DecodeWAV(data []byte) (samples []int16, sampleRate int, channels int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: missing RIFF/WAVE header")
	}

	var format *wavFormat
	var pcm []byte

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			return nil, 0, 0, fmt.Errorf("invalid WAV file: chunk %q exceeds file size", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, fmt.Errorf("invalid WAV file: fmt chunk too short (%d bytes)", size)
			}
			var f wavFormat
			if err := binary.Read(bytes.NewReader(data[body:body+16]), binary.LittleEndian, &f); err != nil {
				return nil, 0, 0, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			format = &f
		case "data":
			pcm = data[body : body+size]
		}

		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if format == nil {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}

	if pcm == nil {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: missing data chunk")
	}

	if format.AudioFormat != 1 {
		return nil, 0, 0, fmt.Errorf("unsupported audio format %d: only PCM is supported", format.AudioFormat)
	}

	if format.BitsPerSample != 16 {
		return nil, 0, 0, fmt.Errorf("unsupported bit depth %d: only 16-bit is supported", format.BitsPerSample)
	}

	if format.NumChannels != 1 && format.NumChannels != 2 {
		return nil, 0, 0, fmt.Errorf("unsupported channel count %d: only mono and stereo are supported", format.NumChannels)
	}

	samples = make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}

	return samples, int(format.SampleRate), int(format.NumChannels), nil
}

// ReadWAVFile reads and decodes a WAV file from disk for replay.
func ReadWAVFile(path string) (samples []int16, sampleRate int, channels int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read WAV file %s: %w", path, err)
	}

	return DecodeWAV(data)
}
