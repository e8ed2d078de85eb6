package endpoint

import (
	"fmt"
	"sync"
)

// EventType distinguishes the two endpointing events.
type EventType uint8

const (
	// SpeechStart marks the opening of a speech window. The pre-roll and
	// first frame have already been pushed to the sink when it is emitted.
	SpeechStart EventType = iota
	// SpeechEnd marks the close of a speech window. Samples carries the
	// exact number of sink samples belonging to the utterance.
	SpeechEnd
)

func (t EventType) String() string {
	switch t {
	case SpeechStart:
		return "speech_start"
	case SpeechEnd:
		return "speech_end"
	default:
		return "unknown"
	}
}

// Event is an endpointing event. Events alternate strictly: a SpeechStart
// always precedes its matching SpeechEnd, and no two events of the same type
// are emitted back-to-back.
type Event struct {
	Type    EventType
	Samples int  // SpeechEnd only: utterance length in samples, pre-roll included
	Forced  bool // SpeechEnd only: the window was split at capacity, not by silence
}

// Sink receives utterance samples as they are accepted. Push writes as many
// samples as fit and returns the delivered count; it must not block. The
// bounded SPSC ring satisfies this.
type Sink interface {
	Push(samples []int16) int
}

// Config carries the endpointing thresholds. Everything that earlier
// iterations kept as module-level constants is explicit here.
type Config struct {
	FrameSize             int    // samples per classification frame
	EndThresholdFrames    uint64 // consecutive-ish silence frames that close the window
	LingerThresholdFrames uint64 // silence frames still recorded into the utterance
	PreRollSamples        int    // silence seeded before each utterance
	MaxUtteranceSamples   int    // capacity bound, pre-roll included
}

func (c Config) validate() error {
	if c.FrameSize <= 0 {
		return fmt.Errorf("frame size must be positive, got %d", c.FrameSize)
	}
	if c.EndThresholdFrames < 1 {
		return fmt.Errorf("end threshold must be at least 1 frame, got %d", c.EndThresholdFrames)
	}
	if c.LingerThresholdFrames >= c.EndThresholdFrames {
		return fmt.Errorf("linger threshold (%d) must be below end threshold (%d)",
			c.LingerThresholdFrames, c.EndThresholdFrames)
	}
	if c.PreRollSamples < 0 {
		return fmt.Errorf("pre-roll cannot be negative, got %d", c.PreRollSamples)
	}
	if c.MaxUtteranceSamples <= c.PreRollSamples+c.FrameSize {
		return fmt.Errorf("max utterance (%d samples) must exceed pre-roll plus one frame (%d)",
			c.MaxUtteranceSamples, c.PreRollSamples+c.FrameSize)
	}
	return nil
}

// Stats reports endpointer counters for diagnostics.
type Stats struct {
	FramesProcessed   uint64 `json:"frames_processed"`
	UtterancesStarted uint64 `json:"utterances_started"`
	UtterancesEnded   uint64 `json:"utterances_ended"`
	ForcedSplits      uint64 `json:"forced_splits"`
	DroppedSamples    uint64 `json:"dropped_samples"`
	Listening         bool   `json:"listening"`
}

// Endpointer is the hysteresis state machine. It has two states: Idle (no
// open speech window, lastSpeechFrame unset) and Listening (window open).
// Process is synchronous and owned by the producer goroutine; Stats may be
// read from elsewhere.
type Endpointer struct {
	cfg  Config
	sink Sink

	// State. currentFrame and lastSpeechFrame are only meaningful while
	// listening; accumulated counts sink samples of the open utterance.
	listening       bool
	currentFrame    uint64
	lastSpeechFrame uint64
	accumulated     int

	preRoll []int16 // zero-filled, pushed at every window open

	stats   Stats
	statsMu sync.Mutex
}

// New creates an Endpointer writing utterance samples to sink.
func New(cfg Config, sink Sink) (*Endpointer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid endpointer config: %w", err)
	}

	if sink == nil {
		return nil, fmt.Errorf("sink cannot be nil")
	}

	return &Endpointer{
		cfg:     cfg,
		sink:    sink,
		preRoll: make([]int16, cfg.PreRollSamples),
	}, nil
}

// Process consumes one classified frame and returns the events it caused
// (none, a single event, or SpeechEnd followed by SpeechStart when the
// utterance was force-split at capacity). len(frame) must equal the
// configured frame size.
func (e *Endpointer) Process(frame []int16, isSpeech bool) ([]Event, error) {
	if len(frame) != e.cfg.FrameSize {
		return nil, fmt.Errorf("expected frame of %d samples, got %d", e.cfg.FrameSize, len(frame))
	}

	e.statsMu.Lock()
	e.stats.FramesProcessed++
	e.statsMu.Unlock()

	if !e.listening {
		if !isSpeech {
			return nil, nil
		}
		return e.openWindow(frame), nil
	}

	e.currentFrame++
	silenceRun := e.currentFrame - e.lastSpeechFrame

	if !isSpeech && silenceRun >= e.cfg.EndThresholdFrames {
		ev := Event{Type: SpeechEnd, Samples: e.accumulated}
		e.reset()
		e.bumpEnded(false)
		return []Event{ev}, nil
	}

	if isSpeech {
		e.lastSpeechFrame = e.currentFrame
	}

	if isSpeech || silenceRun <= e.cfg.LingerThresholdFrames {
		return e.appendFrame(frame), nil
	}

	// Dead zone: silence longer than the linger window but not yet long
	// enough to end the utterance. The frame is discarded.
	return nil, nil
}

// Flush force-closes an open speech window, e.g. when the source ends
// mid-utterance. Returns the SpeechEnd event, or nil when idle.
func (e *Endpointer) Flush() []Event {
	if !e.listening {
		return nil
	}

	ev := Event{Type: SpeechEnd, Samples: e.accumulated}
	e.reset()
	e.bumpEnded(false)
	return []Event{ev}
}

// Listening reports whether a speech window is open.
func (e *Endpointer) Listening() bool {
	return e.listening
}

// GetStats returns a snapshot of the endpointer counters.
func (e *Endpointer) GetStats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	return e.stats
}

// openWindow seeds the pre-roll, records the first frame and opens the
// speech window.
func (e *Endpointer) openWindow(frame []int16) []Event {
	delivered := e.push(e.preRoll)
	delivered += e.push(frame)

	e.listening = true
	e.currentFrame = 0
	e.lastSpeechFrame = 0
	e.accumulated = delivered

	e.statsMu.Lock()
	e.stats.UtterancesStarted++
	e.stats.Listening = true
	e.statsMu.Unlock()

	return []Event{{Type: SpeechStart}}
}

// appendFrame records one frame into the open utterance, force-splitting at
// capacity so the buffer can never overrun. On a split the leftover tail of
// the same frame seeds the next segment (after a fresh pre-roll) and the
// speech window stays open; the total sample count is conserved across the
// split.
func (e *Endpointer) appendFrame(frame []int16) []Event {
	remaining := e.cfg.MaxUtteranceSamples - e.accumulated
	if len(frame) <= remaining {
		e.accumulated += e.push(frame)
		return nil
	}

	e.accumulated += e.push(frame[:remaining])
	end := Event{Type: SpeechEnd, Samples: e.accumulated, Forced: true}
	e.bumpEnded(true)

	delivered := e.push(e.preRoll)
	delivered += e.push(frame[remaining:])
	e.accumulated = delivered

	e.statsMu.Lock()
	e.stats.UtterancesStarted++
	e.statsMu.Unlock()

	return []Event{end, {Type: SpeechStart}}
}

// push writes samples to the sink and accounts drops. Only the delivered
// count ever enters the accumulated total, so a full sink shortens an
// utterance but never desynchronizes the SpeechEnd contract.
func (e *Endpointer) push(samples []int16) int {
	if len(samples) == 0 {
		return 0
	}

	n := e.sink.Push(samples)
	if n < len(samples) {
		e.statsMu.Lock()
		e.stats.DroppedSamples += uint64(len(samples) - n)
		e.statsMu.Unlock()
	}
	return n
}

func (e *Endpointer) reset() {
	e.listening = false
	e.currentFrame = 0
	e.lastSpeechFrame = 0
	e.accumulated = 0
}

func (e *Endpointer) bumpEnded(forced bool) {
	e.statsMu.Lock()
	e.stats.UtterancesEnded++
	e.stats.Listening = e.listening
	if forced {
		e.stats.ForcedSplits++
	}
	e.statsMu.Unlock()
}
