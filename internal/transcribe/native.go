package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/taliyahwebb/whisper-real-time/internal/audio"
)

var _ Transcriber = (*NativeTranscriber)(nil)

// NativeTranscriber runs whisper.cpp in-process through the CGO bindings.
// The model is loaded once at construction; each Transcribe call creates a
// fresh context, because contexts are not reusable across inferences while
// the model itself is.
type NativeTranscriber struct {
	model     whisperlib.Model
	language  string
	translate bool

	// Inference pins a full CPU's worth of threads; serialize calls so a
	// burst of short utterances cannot oversubscribe the machine.
	mu sync.Mutex

	floats []float32 // conversion scratch, reused between calls
}

// NativeConfig configures the in-process whisper engine.
type NativeConfig struct {
	ModelPath string
	Language  string // BCP-47 code, or "auto"
	Translate bool   // translate to English instead of transcribing
}

// NewNative loads the whisper model from cfg.ModelPath. The caller must Close
// the transcriber to release the model.
func NewNative(cfg NativeConfig) (*NativeTranscriber, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path cannot be empty")
	}

	model, err := whisperlib.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model %s: %w", cfg.ModelPath, err)
	}

	language := cfg.Language
	if language == "" {
		language = "en"
	}

	return &NativeTranscriber{
		model:     model,
		language:  language,
		translate: cfg.Translate,
	}, nil
}

// Transcribe runs one inference over the utterance and returns the cleaned
// concatenation of all decoded segments.
func (t *NativeTranscriber) Transcribe(ctx context.Context, samples []int16) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if cap(t.floats) < len(samples) {
		t.floats = make([]float32, len(samples))
	}
	floats := t.floats[:len(samples)]
	for i, s := range samples {
		floats[i] = audio.Float32FromSample(s)
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("failed to create whisper context: %w", err)
	}

	if err := wctx.SetLanguage(t.language); err != nil {
		slog.Warn("failed to set whisper language, using model default",
			"language", t.language, "error", err)
	}
	wctx.SetTranslate(t.translate)

	if err := wctx.Process(floats, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper inference failed: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read whisper segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) > 1 {
		// Endpointed utterances are short enough that a single segment is
		// the norm; more usually means the decode drifted.
		slog.Warn("whisper returned multiple segments", "segments", len(parts))
	}

	return CleanTranscript(strings.Join(parts, " ")), nil
}

// Close releases the whisper model.
func (t *NativeTranscriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model != nil {
		err := t.model.Close()
		t.model = nil
		return err
	}
	return nil
}
