package audio

import "fmt"

// Accumulator regroups normalized samples, which arrive in whatever chunk
// size the source delivers, into fixed-size classification frames. Leftover
// samples (fewer than one frame) stay staged across calls.
type Accumulator struct {
	frameSize int
	buf       []int16
	r         int // read offset into buf; buf[r:] is staged data
}

// NewAccumulator creates an accumulator producing frames of frameSize
// samples.
func NewAccumulator(frameSize int) (*Accumulator, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameSize)
	}

	return &Accumulator{
		frameSize: frameSize,
		buf:       make([]int16, 0, frameSize*4),
	}, nil
}

// Feed appends a chunk of normalized samples to the staging buffer.
func (a *Accumulator) Feed(chunk []int16) {
	if a.r > 0 {
		// Compact consumed frames before growing.
		n := copy(a.buf, a.buf[a.r:])
		a.buf = a.buf[:n]
		a.r = 0
	}
	a.buf = append(a.buf, chunk...)
}

// NextFrame returns the next complete classification frame, or nil when
// fewer than frameSize samples are staged. The returned slice aliases the
// internal buffer and is only valid until the next Feed call.
func (a *Accumulator) NextFrame() []int16 {
	if len(a.buf)-a.r < a.frameSize {
		return nil
	}
	frame := a.buf[a.r : a.r+a.frameSize]
	a.r += a.frameSize
	return frame
}

// Staged returns the number of samples currently staged, always smaller than
// one frame after NextFrame has been drained.
func (a *Accumulator) Staged() int {
	return len(a.buf) - a.r
}

// FrameSize returns the configured frame size in samples.
func (a *Accumulator) FrameSize() int {
	return a.frameSize
}
