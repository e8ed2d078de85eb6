package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/taliyahwebb/whisper-real-time/internal/audio"
	"github.com/taliyahwebb/whisper-real-time/internal/capture"
	"github.com/taliyahwebb/whisper-real-time/internal/config"
	"github.com/taliyahwebb/whisper-real-time/internal/endpoint"
	"github.com/taliyahwebb/whisper-real-time/internal/metrics"
	"github.com/taliyahwebb/whisper-real-time/internal/transcribe"
	"github.com/taliyahwebb/whisper-real-time/internal/vad"
)

// utteranceQueueSize bounds the dispatcher's backlog. When it is full the
// newest utterance is dropped with a warning; the producer never blocks.
const utteranceQueueSize = 64

// utterance describes one finished speech window awaiting transcription.
// skipBefore counts ring samples of utterances that were dropped on a full
// queue before this one was enqueued; they sit ahead of it in FIFO order and
// the dispatcher frees them before popping.
type utterance struct {
	skipBefore int
	samples    int // exact sample count to pop from the ring
}

// Stats reports pipeline counters for the status API.
type Stats struct {
	Endpointer            endpoint.Stats `json:"endpointer"`
	RingOccupancy         int            `json:"ring_occupancy"`
	RingCapacity          int            `json:"ring_capacity"`
	UtterancesTranscribed uint64         `json:"utterances_transcribed"`
	UtterancesDiscarded   uint64         `json:"utterances_discarded"`
	TranscriptionFailures uint64         `json:"transcription_failures"`
}

// Pipeline owns the full path from raw capture chunks to printed transcripts.
type Pipeline struct {
	cfg *config.Config

	normalizer  *audio.Normalizer
	accumulator *audio.Accumulator
	classifier  vad.Classifier
	endpointer  *endpoint.Endpointer
	ring        *audio.Ring
	transcriber transcribe.Transcriber
	metrics     *metrics.Metrics

	utterances chan utterance
	out        io.Writer

	// Samples of utterances whose descriptors were dropped on a full
	// queue since the last successful send. They still occupy the ring,
	// so the next descriptor that does get through carries the count as
	// its skipBefore. Producer-owned; never touched by the dispatcher.
	pendingOrphans int

	// Dispatcher counters
	transcribed uint64
	discarded   uint64
	failures    uint64
	statsMu     sync.Mutex

	wg sync.WaitGroup
}

// New assembles a pipeline for a source with the given native channel count
// and sample rate. Transcripts are written to out, one line per utterance.
func New(cfg *config.Config, srcChannels, srcRate int, classifier vad.Classifier,
	transcriber transcribe.Transcriber, m *metrics.Metrics, out io.Writer) (*Pipeline, error) {

	normalizer, err := audio.NewNormalizer(srcChannels, srcRate, cfg.Audio.TargetSampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create normalizer: %w", err)
	}

	accumulator, err := audio.NewAccumulator(cfg.Audio.FrameSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create accumulator: %w", err)
	}

	// Twice the utterance bound: one utterance can await transcription
	// while the next fills up behind it without forcing drops.
	ring, err := audio.NewRing(2 * cfg.MaxUtteranceSamples())
	if err != nil {
		return nil, fmt.Errorf("failed to create ring: %w", err)
	}

	endpointer, err := endpoint.New(endpoint.Config{
		FrameSize:             cfg.Audio.FrameSize,
		EndThresholdFrames:    uint64(cfg.Endpointing.EndThresholdFrames),
		LingerThresholdFrames: uint64(cfg.Endpointing.LingerThresholdFrames),
		PreRollSamples:        cfg.PreRollSamples(),
		MaxUtteranceSamples:   cfg.MaxUtteranceSamples(),
	}, ring)
	if err != nil {
		return nil, fmt.Errorf("failed to create endpointer: %w", err)
	}

	return &Pipeline{
		cfg:         cfg,
		normalizer:  normalizer,
		accumulator: accumulator,
		classifier:  classifier,
		endpointer:  endpointer,
		ring:        ring,
		transcriber: transcriber,
		metrics:     m,
		utterances:  make(chan utterance, utteranceQueueSize),
		out:         out,
	}, nil
}

// Run drives the source until it ends or ctx is cancelled, then flushes any
// open speech window and drains the dispatcher. Returns the source error, if
// any.
func (p *Pipeline) Run(ctx context.Context, source capture.Source) error {
	p.wg.Add(1)
	go p.dispatch(ctx)

	err := source.Run(ctx, p.feed)

	for _, ev := range p.endpointer.Flush() {
		p.handleEvent(ev)
	}

	close(p.utterances)
	p.wg.Wait()

	if err != nil {
		return fmt.Errorf("source failed: %w", err)
	}
	return nil
}

// GetStats returns a snapshot of the pipeline counters.
func (p *Pipeline) GetStats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	return Stats{
		Endpointer:            p.endpointer.GetStats(),
		RingOccupancy:         p.ring.Len(),
		RingCapacity:          p.ring.Cap(),
		UtterancesTranscribed: p.transcribed,
		UtterancesDiscarded:   p.discarded,
		TranscriptionFailures: p.failures,
	}
}

// feed is the producer hot path: one raw source chunk in, zero or more
// classified frames through the endpointer.
func (p *Pipeline) feed(chunk []float32) error {
	p.metrics.RecordChunkCaptured()

	pcm, err := p.normalizer.Normalize(chunk)
	if err != nil {
		return fmt.Errorf("normalization failed: %w", err)
	}

	p.accumulator.Feed(pcm)

	for frame := p.accumulator.NextFrame(); frame != nil; frame = p.accumulator.NextFrame() {
		isSpeech, err := p.classifier.IsSpeech(frame)
		if err != nil {
			// A failing classifier must not kill capture; the frame is
			// treated as silence and the stream continues.
			slog.Warn("classification failed, treating frame as silence", "error", err)
			isSpeech = false
		}
		p.metrics.RecordFrameClassified(isSpeech)

		events, err := p.endpointer.Process(frame, isSpeech)
		if err != nil {
			return fmt.Errorf("endpointing failed: %w", err)
		}

		for _, ev := range events {
			p.handleEvent(ev)
		}
	}

	p.metrics.SetRingOccupancy(p.ring.Len())
	return nil
}

// handleEvent reacts to one endpointing event on the producer goroutine.
func (p *Pipeline) handleEvent(ev endpoint.Event) {
	switch ev.Type {
	case endpoint.SpeechStart:
		slog.Info("speech started")
		p.metrics.RecordUtteranceStarted()

	case endpoint.SpeechEnd:
		slog.Debug("speech ended", "samples", ev.Samples, "forced", ev.Forced)
		if ev.Forced {
			p.metrics.RecordForcedSplit()
		}

		select {
		case p.utterances <- utterance{skipBefore: p.pendingOrphans, samples: ev.Samples}:
			p.pendingOrphans = 0
		default:
			// Queue full: drop the newest utterance rather than stall
			// capture. Its samples are already committed to the ring, so
			// the count rides along on the next descriptor that gets
			// through, keeping the skip positional: a descriptor never
			// asks the dispatcher to skip samples dropped after it was
			// enqueued.
			p.pendingOrphans += ev.Samples
			p.metrics.RecordSamplesDropped(ev.Samples)
			slog.Warn("utterance queue full, dropping utterance", "samples", ev.Samples)
		}
	}
}

// dispatch is the consumer loop: it pops finished utterances from the ring
// and blocks on transcription. After ctx is cancelled, remaining utterances
// are popped but no longer transcribed so shutdown stays prompt.
func (p *Pipeline) dispatch(ctx context.Context) {
	defer p.wg.Done()

	minSamples := p.cfg.MinUtteranceSamples()
	rate := p.cfg.Audio.TargetSampleRate

	for u := range p.utterances {
		// Utterances dropped before u was enqueued sit in the ring ahead
		// of it; free them first. The count travels inside the descriptor,
		// so drops that happen after the send can never shift this skip
		// onto the wrong span.
		if u.skipBefore > 0 {
			if err := p.ring.Skip(u.skipBefore); err != nil {
				panic(fmt.Sprintf("ring accounting violated: skip %d orphaned samples: %v", u.skipBefore, err))
			}
		}

		if u.samples < minSamples || ctx.Err() != nil {
			if err := p.ring.Skip(u.samples); err != nil {
				panic(fmt.Sprintf("ring accounting violated: skip %d samples: %v", u.samples, err))
			}
			if ctx.Err() == nil {
				slog.Debug("discarding short utterance", "samples", u.samples)
				p.metrics.RecordUtteranceDiscarded()
				p.bumpDiscarded()
			}
			continue
		}

		buf := make([]int16, u.samples)
		if err := p.ring.PopExact(buf); err != nil {
			// The producer only announces sample counts it has delivered,
			// so a failed pop means the ring accounting is broken.
			panic(fmt.Sprintf("ring accounting violated: pop %d samples: %v", u.samples, err))
		}

		duration := time.Duration(u.samples) * time.Second / time.Duration(rate)
		p.metrics.RecordUtteranceDispatched(duration.Seconds(), u.samples)
		p.metrics.RecordTranscriptionRequest()

		tctx, cancel := context.WithTimeout(context.Background(), p.cfg.Transcription.GetTimeoutDuration())
		start := time.Now()
		text, err := p.transcriber.Transcribe(tctx, buf)
		cancel()

		elapsed := time.Since(start)
		if err != nil {
			p.metrics.RecordTranscriptionFailure(elapsed.Seconds())
			p.bumpFailures()
			slog.Error("transcription failed", "duration", duration, "error", err)
			continue
		}

		p.metrics.RecordTranscriptionSuccess(elapsed.Seconds())
		p.bumpTranscribed()
		slog.Info("utterance transcribed", "audio", duration, "took", elapsed)

		if text != "" {
			fmt.Fprintln(p.out, text)
		}
	}
}

func (p *Pipeline) bumpTranscribed() {
	p.statsMu.Lock()
	p.transcribed++
	p.statsMu.Unlock()
}

func (p *Pipeline) bumpDiscarded() {
	p.statsMu.Lock()
	p.discarded++
	p.statsMu.Unlock()
}

func (p *Pipeline) bumpFailures() {
	p.statsMu.Lock()
	p.failures++
	p.statsMu.Unlock()
}
