package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/taliyahwebb/whisper-real-time/internal/audio"
)

var _ Transcriber = (*ExecTranscriber)(nil)

// ExecTranscriber shells out to a whisper.cpp CLI binary for every utterance.
// The samples are encoded as a WAV file and streamed over stdin; the decoded
// text is read from stdout. Slower than the native engine per call, but needs
// no CGO toolchain.
type ExecTranscriber struct {
	binaryPath string
	modelPath  string
	language   string
	translate  bool
	sampleRate int
}

// ExecConfig configures the subprocess whisper engine.
type ExecConfig struct {
	BinaryPath string // whisper.cpp main binary, e.g. "whisper-cli"
	ModelPath  string
	Language   string // BCP-47 code, or "auto"
	Translate  bool
	SampleRate int // rate of the samples handed to Transcribe
}

// NewExec creates an ExecTranscriber. The binary is resolved through PATH at
// call time, so it only needs to exist when utterances arrive.
func NewExec(cfg ExecConfig) (*ExecTranscriber, error) {
	if cfg.BinaryPath == "" {
		return nil, errors.New("binary path cannot be empty")
	}
	if cfg.ModelPath == "" {
		return nil, errors.New("model path cannot be empty")
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}

	language := cfg.Language
	if language == "" {
		language = "en"
	}

	return &ExecTranscriber{
		binaryPath: cfg.BinaryPath,
		modelPath:  cfg.ModelPath,
		language:   language,
		translate:  cfg.Translate,
		sampleRate: cfg.SampleRate,
	}, nil
}

// args builds the CLI argument list. "-f -" makes the binary read the WAV
// payload from stdin; prints and timestamps are suppressed so stdout carries
// nothing but the transcript.
func (t *ExecTranscriber) args() []string {
	args := []string{
		"--no-prints",
		"--no-timestamps",
		"-f", "-",
		"-m", t.modelPath,
		"-l", t.language,
	}
	if t.translate {
		args = append(args, "-tr")
	}
	return args
}

// Transcribe encodes the utterance as WAV, runs the binary and returns the
// cleaned stdout text.
func (t *ExecTranscriber) Transcribe(ctx context.Context, samples []int16) (string, error) {
	wav, err := audio.EncodeWAVBytes(samples, t.sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to encode utterance: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.binaryPath, t.args()...)
	cmd.Stdin = bytes.NewReader(wav)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s failed: %w (stderr: %s)",
			t.binaryPath, err, strings.TrimSpace(stderr.String()))
	}

	// The binary emits one line per segment; join them into a single
	// transcript.
	var parts []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}

	return CleanTranscript(strings.Join(parts, " ")), nil
}

// Close is a no-op: every Transcribe call owns its subprocess.
func (t *ExecTranscriber) Close() error {
	return nil
}
