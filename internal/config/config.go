package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pipeline configuration
type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	Endpointing   EndpointingConfig   `yaml:"endpointing"`
	VAD           VADConfig           `yaml:"vad"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// AudioConfig contains the audio format shared by the classifier and the
// transcription engine
type AudioConfig struct {
	TargetSampleRate int `yaml:"target_sample_rate"` // Hz, rate the classifier and transcriber expect
	FrameSize        int `yaml:"frame_size"`         // samples per classification frame
}

// EndpointingConfig contains the hysteresis thresholds of the speech
// endpointer. Values that were module-level constants in earlier iterations
// all live here.
type EndpointingConfig struct {
	EndThresholdFrames    int     `yaml:"end_threshold_frames"`    // silence frames that close an utterance
	LingerThresholdFrames int     `yaml:"linger_threshold_frames"` // silence frames still recorded into the utterance
	PreRollMs             int     `yaml:"pre_roll_ms"`             // silence prepended to each utterance
	MaxUtteranceSec       float64 `yaml:"max_utterance_sec"`       // force-dispatch bound
	MinUtteranceSec       float64 `yaml:"min_utterance_sec"`       // utterances shorter than this are discarded
}

// VADConfig selects and configures the frame classifier
type VADConfig struct {
	Engine    string  `yaml:"engine"`     // "energy" or "silero"
	ModelPath string  `yaml:"model_path"` // silero only
	Threshold float32 `yaml:"threshold"`
}

// TranscriptionConfig selects and configures the transcription engine
type TranscriptionConfig struct {
	Engine        string  `yaml:"engine"`     // "native", "exec" or "http"
	ModelPath     string  `yaml:"model_path"` // whisper model (native, exec)
	BinaryPath    string  `yaml:"binary_path"`
	Endpoint      string  `yaml:"endpoint"`
	APIKey        string  `yaml:"api_key"`
	Timeout       int     `yaml:"timeout"` // seconds
	MaxRetries    int     `yaml:"max_retries"`
	MaxConcurrent int     `yaml:"max_concurrent"`
	Language      string  `yaml:"language"`
	TranslateEN   bool    `yaml:"translate_en"`
	Temperature   float32 `yaml:"temperature"`
}

// HTTPConfig contains the optional status/metrics HTTP server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration: 16 kHz, 30 ms frames, 240 ms
// end-of-speech threshold, 90 ms linger, 700 ms pre-roll, 30 s utterance
// bound, 1 s dispatch floor.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			TargetSampleRate: 16000,
			FrameSize:        480,
		},
		Endpointing: EndpointingConfig{
			EndThresholdFrames:    8,
			LingerThresholdFrames: 3,
			PreRollMs:             700,
			MaxUtteranceSec:       30,
			MinUtteranceSec:       1,
		},
		VAD: VADConfig{
			Engine:    "energy",
			Threshold: 0.5,
		},
		Transcription: TranscriptionConfig{
			Engine:        "native",
			Timeout:       60,
			MaxRetries:    2,
			MaxConcurrent: 1,
			Language:      "en",
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    8090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads and parses the configuration file. A missing file is not an
// error: the binary must be able to run from flags alone, so the defaults are
// returned instead.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Endpointing.Validate(); err != nil {
		return fmt.Errorf("endpointing config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.TargetSampleRate < 8000 || a.TargetSampleRate > 48000 {
		return fmt.Errorf("target_sample_rate must be between 8000 and 48000 Hz, got %d", a.TargetSampleRate)
	}

	if a.FrameSize < 80 || a.FrameSize > 4096 {
		return fmt.Errorf("frame_size must be between 80 and 4096 samples, got %d", a.FrameSize)
	}

	return nil
}

// Validate validates endpointing configuration
func (e *EndpointingConfig) Validate() error {
	if e.EndThresholdFrames < 1 {
		return fmt.Errorf("end_threshold_frames must be at least 1, got %d", e.EndThresholdFrames)
	}

	if e.LingerThresholdFrames < 0 {
		return fmt.Errorf("linger_threshold_frames cannot be negative, got %d", e.LingerThresholdFrames)
	}

	if e.LingerThresholdFrames >= e.EndThresholdFrames {
		return fmt.Errorf("linger_threshold_frames (%d) must be below end_threshold_frames (%d)",
			e.LingerThresholdFrames, e.EndThresholdFrames)
	}

	if e.PreRollMs < 0 {
		return fmt.Errorf("pre_roll_ms cannot be negative, got %d", e.PreRollMs)
	}

	if e.MaxUtteranceSec <= 0 {
		return fmt.Errorf("max_utterance_sec must be positive, got %f", e.MaxUtteranceSec)
	}

	if e.MinUtteranceSec < 0 {
		return fmt.Errorf("min_utterance_sec cannot be negative, got %f", e.MinUtteranceSec)
	}

	if e.MinUtteranceSec >= e.MaxUtteranceSec {
		return fmt.Errorf("min_utterance_sec (%f) must be below max_utterance_sec (%f)",
			e.MinUtteranceSec, e.MaxUtteranceSec)
	}

	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	validEngines := map[string]bool{"energy": true, "silero": true}
	if !validEngines[v.Engine] {
		return fmt.Errorf("engine must be 'energy' or 'silero', got '%s'", v.Engine)
	}

	if v.Engine == "silero" && v.ModelPath == "" {
		return fmt.Errorf("model_path cannot be empty for the silero engine")
	}

	if v.Threshold < 0 || v.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", v.Threshold)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	switch t.Engine {
	case "native":
		if t.ModelPath == "" {
			return fmt.Errorf("model_path cannot be empty for the native engine")
		}
	case "exec":
		if t.ModelPath == "" {
			return fmt.Errorf("model_path cannot be empty for the exec engine")
		}
		if t.BinaryPath == "" {
			return fmt.Errorf("binary_path cannot be empty for the exec engine")
		}
	case "http":
		if t.Endpoint == "" {
			return fmt.Errorf("endpoint cannot be empty for the http engine")
		}
	default:
		return fmt.Errorf("engine must be 'native', 'exec' or 'http', got '%s'", t.Engine)
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	if t.Language == "" {
		return fmt.Errorf("language cannot be empty (use 'auto' for detection)")
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// FrameDuration returns the duration of one classification frame
func (c *Config) FrameDuration() time.Duration {
	return time.Duration(c.Audio.FrameSize) * time.Second / time.Duration(c.Audio.TargetSampleRate)
}

// PreRollSamples returns the pre-roll length in samples at the target rate
func (c *Config) PreRollSamples() int {
	return c.Endpointing.PreRollMs * c.Audio.TargetSampleRate / 1000
}

// MaxUtteranceSamples returns the utterance capacity in samples, pre-roll
// included
func (c *Config) MaxUtteranceSamples() int {
	return int(c.Endpointing.MaxUtteranceSec * float64(c.Audio.TargetSampleRate))
}

// MinUtteranceSamples returns the dispatch floor in samples, pre-roll included
func (c *Config) MinUtteranceSamples() int {
	return int(c.Endpointing.MinUtteranceSec * float64(c.Audio.TargetSampleRate))
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}
