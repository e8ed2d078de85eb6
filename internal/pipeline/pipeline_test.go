package pipeline

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/taliyahwebb/whisper-real-time/internal/config"
	"github.com/taliyahwebb/whisper-real-time/internal/endpoint"
	"github.com/taliyahwebb/whisper-real-time/internal/metrics"
)

// Prometheus collectors register globally, so the test binary shares one set.
var (
	testMetrics     *metrics.Metrics
	testMetricsOnce sync.Once
)

func getTestMetrics() *metrics.Metrics {
	testMetricsOnce.Do(func() {
		testMetrics = metrics.NewMetrics()
	})
	return testMetrics
}

// fakeSource feeds pre-built samples as fixed-size chunks without pacing.
type fakeSource struct {
	samples    []float32
	sampleRate int
	chunkSize  int
}

func (s *fakeSource) SampleRate() int { return s.sampleRate }
func (s *fakeSource) Channels() int   { return 1 }

func (s *fakeSource) Run(ctx context.Context, emit func(chunk []float32) error) error {
	for off := 0; off < len(s.samples); off += s.chunkSize {
		if ctx.Err() != nil {
			return nil
		}
		end := off + s.chunkSize
		if end > len(s.samples) {
			end = len(s.samples)
		}
		if err := emit(s.samples[off:end]); err != nil {
			return err
		}
	}
	return nil
}

// amplitudeClassifier flags a frame as speech when any sample is loud. The
// test signal uses zeros for silence and a constant tone for speech, so the
// classification is deterministic.
type amplitudeClassifier struct{}

func (amplitudeClassifier) IsSpeech(frame []int16) (bool, error) {
	for _, s := range frame {
		if s > 8000 || s < -8000 {
			return true, nil
		}
	}
	return false, nil
}

func (amplitudeClassifier) Reset() {}

// recordingTranscriber captures every dispatched utterance.
type recordingTranscriber struct {
	mu    sync.Mutex
	sizes []int
	text  string
}

func (r *recordingTranscriber) Transcribe(_ context.Context, samples []int16) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes = append(r.sizes, len(samples))
	return r.text, nil
}

func (r *recordingTranscriber) Close() error { return nil }

func (r *recordingTranscriber) calls() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.sizes...)
}

// buildSignal concatenates seconds of silence, tone and trailing silence at
// 16 kHz mono.
func buildSignal(silenceSec, toneSec, tailSec float64) []float32 {
	const rate = 16000
	signal := make([]float32, 0, int((silenceSec+toneSec+tailSec)*rate))

	for i := 0; i < int(silenceSec*rate); i++ {
		signal = append(signal, 0)
	}
	for i := 0; i < int(toneSec*rate); i++ {
		signal = append(signal, 0.5) // loud constant level, well above the gate
	}
	for i := 0; i < int(tailSec*rate); i++ {
		signal = append(signal, 0)
	}
	return signal
}

func testPipeline(t *testing.T, cfg *config.Config, tr *recordingTranscriber, out *bytes.Buffer) *Pipeline {
	t.Helper()

	p, err := New(cfg, 1, 16000, amplitudeClassifier{}, tr, getTestMetrics(), out)
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	return p
}

func TestPipelineTranscribesOneUtterance(t *testing.T) {
	cfg := config.Default()
	tr := &recordingTranscriber{text: "hello world"}
	var out bytes.Buffer

	p := testPipeline(t, cfg, tr, &out)

	// Two seconds of silence, one second of speech, half a second of
	// trailing silence: exactly one utterance.
	src := &fakeSource{samples: buildSignal(2, 1, 0.5), sampleRate: 16000, chunkSize: 1600}
	if err := p.Run(context.Background(), src); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	calls := tr.calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one transcription, got %d", len(calls))
	}

	// The utterance carries the pre-roll, the tone and up to the linger
	// window of trailing silence.
	preRoll := cfg.PreRollSamples()
	min := preRoll + 16000
	max := preRoll + 16000 + 5*cfg.Audio.FrameSize
	if calls[0] < min || calls[0] > max {
		t.Errorf("utterance size %d outside expected range [%d, %d]", calls[0], min, max)
	}

	if got := out.String(); got != "hello world\n" {
		t.Errorf("expected transcript line, got %q", got)
	}

	stats := p.GetStats()
	if stats.UtterancesTranscribed != 1 {
		t.Errorf("expected 1 transcribed utterance in stats, got %d", stats.UtterancesTranscribed)
	}
	if stats.RingOccupancy != 0 {
		t.Errorf("ring should be drained after the run, holds %d samples", stats.RingOccupancy)
	}
}

func TestPipelineSilenceOnlyProducesNothing(t *testing.T) {
	cfg := config.Default()
	tr := &recordingTranscriber{text: "should not appear"}
	var out bytes.Buffer

	p := testPipeline(t, cfg, tr, &out)

	src := &fakeSource{samples: buildSignal(3, 0, 0), sampleRate: 16000, chunkSize: 1600}
	if err := p.Run(context.Background(), src); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	if calls := tr.calls(); len(calls) != 0 {
		t.Errorf("silence produced %d transcriptions", len(calls))
	}
	if out.Len() != 0 {
		t.Errorf("silence produced output: %q", out.String())
	}
}

func TestPipelineDiscardsShortUtterances(t *testing.T) {
	cfg := config.Default()
	cfg.Endpointing.MinUtteranceSec = 2 // above pre-roll + burst
	tr := &recordingTranscriber{text: "nope"}
	var out bytes.Buffer

	p := testPipeline(t, cfg, tr, &out)

	// Half a second of speech is below the two-second dispatch floor even
	// with the pre-roll included.
	src := &fakeSource{samples: buildSignal(1, 0.5, 1), sampleRate: 16000, chunkSize: 1600}
	if err := p.Run(context.Background(), src); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	if calls := tr.calls(); len(calls) != 0 {
		t.Errorf("short utterance was transcribed (%d calls)", len(calls))
	}

	stats := p.GetStats()
	if stats.UtterancesDiscarded != 1 {
		t.Errorf("expected 1 discarded utterance, got %d", stats.UtterancesDiscarded)
	}
	if stats.RingOccupancy != 0 {
		t.Errorf("discarded samples must be skipped, ring holds %d", stats.RingOccupancy)
	}
}

func TestPipelineFlushesOpenWindowAtEndOfSource(t *testing.T) {
	cfg := config.Default()
	tr := &recordingTranscriber{text: "tail"}
	var out bytes.Buffer

	p := testPipeline(t, cfg, tr, &out)

	// The source ends while speech is still running; the open window must
	// be flushed and transcribed.
	src := &fakeSource{samples: buildSignal(1, 1.5, 0), sampleRate: 16000, chunkSize: 1600}
	if err := p.Run(context.Background(), src); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	calls := tr.calls()
	if len(calls) != 1 {
		t.Fatalf("expected the flushed utterance to be transcribed, got %d calls", len(calls))
	}

	if !strings.Contains(out.String(), "tail") {
		t.Errorf("expected flushed transcript, got %q", out.String())
	}
}

func TestPipelineForceSplitsLongSpeech(t *testing.T) {
	cfg := config.Default()
	cfg.Endpointing.MaxUtteranceSec = 5 // keep the fixture small
	tr := &recordingTranscriber{text: "segment"}
	var out bytes.Buffer

	p := testPipeline(t, cfg, tr, &out)

	// Twelve seconds of continuous speech against a five-second bound:
	// at least two forced splits plus the flushed tail.
	src := &fakeSource{samples: buildSignal(0.5, 12, 1), sampleRate: 16000, chunkSize: 1600}
	if err := p.Run(context.Background(), src); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	calls := tr.calls()
	if len(calls) < 3 {
		t.Fatalf("expected at least 3 utterances from force-splitting, got %d", len(calls))
	}

	capSamples := cfg.MaxUtteranceSamples()
	for i, size := range calls {
		if size > capSamples {
			t.Errorf("utterance %d exceeds the capacity bound: %d > %d", i, size, capSamples)
		}
	}

	stats := p.GetStats()
	if stats.Endpointer.ForcedSplits < 2 {
		t.Errorf("expected at least 2 forced splits, got %d", stats.Endpointer.ForcedSplits)
	}
}

// gatedTranscriber blocks its first call until released, letting a test pile
// up a backlog behind a slow engine. It records the first sample of every
// utterance it receives.
type gatedTranscriber struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	first []int16
}

func (g *gatedTranscriber) Transcribe(_ context.Context, samples []int16) (string, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	g.mu.Lock()
	g.first = append(g.first, samples[0])
	g.mu.Unlock()
	return "", nil
}

func (g *gatedTranscriber) Close() error { return nil }

func (g *gatedTranscriber) values() []int16 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int16(nil), g.first...)
}

func TestPipelineDropsDoNotShiftLaterUtterances(t *testing.T) {
	cfg := config.Default()
	cfg.Endpointing.MinUtteranceSec = 0.01 // keep the fixture utterances small

	tr := &gatedTranscriber{started: make(chan struct{}), release: make(chan struct{})}
	var out bytes.Buffer
	p, err := New(cfg, 1, 16000, amplitudeClassifier{}, tr, getTestMetrics(), &out)
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}

	p.wg.Add(1)
	go p.dispatch(context.Background())

	// Each utterance is filled with a distinct value so a transcription can
	// be matched to the speech window it came from.
	const size = 200
	enqueue := func(value int16) {
		t.Helper()
		samples := make([]int16, size)
		for i := range samples {
			samples[i] = value
		}
		if n := p.ring.Push(samples); n != size {
			t.Fatalf("ring refused samples: pushed %d of %d", n, size)
		}
		p.handleEvent(endpoint.Event{Type: endpoint.SpeechEnd, Samples: size})
	}

	// The dispatcher pops the first utterance and blocks inside the engine.
	enqueue(1)
	<-tr.started

	// Fill every queue slot behind it, then one more, which must be dropped.
	for v := int16(2); v <= utteranceQueueSize+1; v++ {
		enqueue(v)
	}
	enqueue(utteranceQueueSize + 2)
	if p.pendingOrphans != size {
		t.Fatalf("expected %d orphaned samples after the drop, got %d", size, p.pendingOrphans)
	}

	// Release the engine, wait for the backlog to drain, and enqueue a last
	// utterance whose descriptor carries the skip for the dropped span.
	close(tr.release)
	const final = utteranceQueueSize + 10
	deadline := time.Now().Add(5 * time.Second)
	for {
		enqueue(final)
		if p.pendingOrphans == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("utterance queue never drained")
		}
		time.Sleep(time.Millisecond)
	}

	close(p.utterances)
	p.wg.Wait()

	// Every surviving utterance must have been transcribed with its own
	// samples; the dropped span must never surface as someone else's audio.
	got := tr.values()
	want := make([]int16, 0, utteranceQueueSize+2)
	for v := int16(1); v <= utteranceQueueSize+1; v++ {
		want = append(want, v)
	}
	want = append(want, final)

	if len(got) != len(want) {
		t.Fatalf("expected %d transcriptions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("utterance %d transcribed with samples of value %d, want %d", i, got[i], want[i])
		}
	}

	if p.ring.Len() != 0 {
		t.Errorf("dropped samples must be skipped, ring holds %d", p.ring.Len())
	}
}
