package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	// The transcription section needs an engine-specific path to validate,
	// the way the CLI fills it in from flags.
	cfg.Transcription.ModelPath = "./models/ggml-base.en.bin"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	if cfg.Audio.TargetSampleRate != 16000 {
		t.Errorf("expected target sample rate 16000, got %d", cfg.Audio.TargetSampleRate)
	}

	if cfg.Audio.FrameSize != 480 {
		t.Errorf("expected frame size 480, got %d", cfg.Audio.FrameSize)
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := Default()

	if got := cfg.PreRollSamples(); got != 11200 {
		t.Errorf("expected 11200 pre-roll samples (700ms at 16kHz), got %d", got)
	}

	if got := cfg.MaxUtteranceSamples(); got != 480000 {
		t.Errorf("expected 480000 max utterance samples (30s at 16kHz), got %d", got)
	}

	if got := cfg.MinUtteranceSamples(); got != 16000 {
		t.Errorf("expected 16000 min utterance samples (1s at 16kHz), got %d", got)
	}

	if got := cfg.FrameDuration().Milliseconds(); got != 30 {
		t.Errorf("expected 30ms frame duration, got %dms", got)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not be an error: %v", err)
	}

	if cfg.Endpointing.EndThresholdFrames != 8 {
		t.Errorf("expected default end threshold 8, got %d", cfg.Endpointing.EndThresholdFrames)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	content := `
audio:
  target_sample_rate: 16000
  frame_size: 512
endpointing:
  end_threshold_frames: 10
  linger_threshold_frames: 2
  pre_roll_ms: 500
  max_utterance_sec: 20
  min_utterance_sec: 0.5
vad:
  engine: energy
  threshold: 0.6
transcription:
  engine: exec
  model_path: ./model.bin
  binary_path: ./whisper-cli
  timeout: 30
  max_retries: 1
  max_concurrent: 1
  language: uk
logging:
  level: debug
  format: json
  output: stderr
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Audio.FrameSize != 512 {
		t.Errorf("expected frame size 512, got %d", cfg.Audio.FrameSize)
	}

	if cfg.Endpointing.EndThresholdFrames != 10 {
		t.Errorf("expected end threshold 10, got %d", cfg.Endpointing.EndThresholdFrames)
	}

	if cfg.Transcription.Language != "uk" {
		t.Errorf("expected language 'uk', got '%s'", cfg.Transcription.Language)
	}

	// Sections absent from the file keep their defaults.
	if cfg.HTTP.Port != 8090 {
		t.Errorf("expected default http port 8090, got %d", cfg.HTTP.Port)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "linger above end threshold",
			mutate: func(c *Config) { c.Endpointing.LingerThresholdFrames = 9 },
		},
		{
			name:   "zero end threshold",
			mutate: func(c *Config) { c.Endpointing.EndThresholdFrames = 0 },
		},
		{
			name:   "negative pre-roll",
			mutate: func(c *Config) { c.Endpointing.PreRollMs = -1 },
		},
		{
			name:   "min utterance above max",
			mutate: func(c *Config) { c.Endpointing.MinUtteranceSec = 60 },
		},
		{
			name:   "unknown vad engine",
			mutate: func(c *Config) { c.VAD.Engine = "webrtc" },
		},
		{
			name:   "silero without model",
			mutate: func(c *Config) { c.VAD.Engine = "silero" },
		},
		{
			name:   "vad threshold out of range",
			mutate: func(c *Config) { c.VAD.Threshold = 1.5 },
		},
		{
			name:   "exec without binary",
			mutate: func(c *Config) { c.Transcription.Engine = "exec"; c.Transcription.BinaryPath = "" },
		},
		{
			name:   "http without endpoint",
			mutate: func(c *Config) { c.Transcription.Engine = "http" },
		},
		{
			name:   "frame size too small",
			mutate: func(c *Config) { c.Audio.FrameSize = 10 },
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Transcription.ModelPath = "./model.bin"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error but got none")
			}
		})
	}
}
