package transcribe

import (
	"context"
	"strings"
)

// Transcriber converts one utterance of mono PCM16 samples at the pipeline's
// target rate into text. Implementations may block for the duration of the
// inference; callers bound it through ctx.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []int16) (string, error)
	Close() error
}

// CleanTranscript normalizes engine output: surrounding whitespace is
// stripped and the bare "you" hallucination whisper produces on silent or
// near-silent audio is discarded.
func CleanTranscript(text string) string {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "you") || strings.EqualFold(text, "you.") {
		return ""
	}
	return text
}
