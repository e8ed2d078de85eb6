package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taliyahwebb/whisper-real-time/internal/capture"
	"github.com/taliyahwebb/whisper-real-time/internal/config"
	"github.com/taliyahwebb/whisper-real-time/internal/metrics"
	"github.com/taliyahwebb/whisper-real-time/internal/pipeline"
	"github.com/taliyahwebb/whisper-real-time/internal/server"
	"github.com/taliyahwebb/whisper-real-time/internal/transcribe"
	"github.com/taliyahwebb/whisper-real-time/internal/vad"
)

const (
	defaultConfigPath = "config.yaml"
	serviceName       = "whisper-real-time"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	modelPath := flag.String("model", "", "Whisper model path (overrides config)")
	binaryPath := flag.String("whisper-cpp", "", "whisper.cpp binary path; selects the exec engine")
	filePath := flag.String("file", "", "Transcribe a WAV file at recording speed instead of the microphone")
	deviceName := flag.String("device", "", "Input device name (substring match, default input when empty)")
	language := flag.String("lang", "", "Transcription language (overrides config)")
	translate := flag.Bool("translate", false, "Translate the transcript to English")
	listDevices := flag.Bool("list", false, "List input devices and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flag overrides
	if *modelPath != "" {
		cfg.Transcription.ModelPath = *modelPath
	}
	if *binaryPath != "" {
		cfg.Transcription.BinaryPath = *binaryPath
		cfg.Transcription.Engine = "exec"
	}
	if *language != "" {
		cfg.Transcription.Language = *language
	}
	if *translate {
		cfg.Transcription.TranslateEN = true
	}

	slog.SetDefault(initLogger(cfg.Logging))

	if *listDevices {
		if err := printDevices(); err != nil {
			slog.Error("failed to list devices", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("service starting",
		"service", serviceName,
		"config_path", *configPath,
		"sample_rate", cfg.Audio.TargetSampleRate,
		"frame_size", cfg.Audio.FrameSize,
		"vad_engine", cfg.VAD.Engine,
		"transcription_engine", cfg.Transcription.Engine,
	)

	if err := run(cfg, *filePath, *deviceName); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}

	slog.Info("service stopped")
}

func run(cfg *config.Config, filePath, deviceName string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Capture source: WAV replay or live device.
	var source capture.Source
	if filePath != "" {
		replay, err := capture.NewReplay(filePath)
		if err != nil {
			return err
		}
		slog.Info("replaying file",
			"path", filePath,
			"sample_rate", replay.SampleRate(),
			"channels", replay.Channels(),
			"duration", replay.Duration(),
		)
		source = replay
	} else {
		if err := capture.Init(); err != nil {
			return err
		}
		defer capture.Terminate()

		device, err := capture.OpenDevice(deviceName, cfg.Audio.TargetSampleRate)
		if err != nil {
			return err
		}
		defer device.Close()
		source = device
	}

	classifier, err := newClassifier(cfg)
	if err != nil {
		return err
	}
	if closer, ok := classifier.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	transcriber, err := newTranscriber(cfg)
	if err != nil {
		return err
	}
	defer transcriber.Close()

	appMetrics := metrics.NewMetrics()

	p, err := pipeline.New(cfg, source.Channels(), source.SampleRate(),
		classifier, transcriber, appMetrics, os.Stdout)
	if err != nil {
		return err
	}

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, cfg, p, appMetrics)
		if err := httpServer.Start(); err != nil {
			return err
		}
	}

	slog.Info("listening for speech")
	runErr := p.Run(ctx, source)

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Stop(shutdownCtx); err != nil {
			slog.Error("error stopping HTTP server", "error", err)
		}
	}

	stats := p.GetStats()
	slog.Info("final statistics",
		"frames_processed", stats.Endpointer.FramesProcessed,
		"utterances_transcribed", stats.UtterancesTranscribed,
		"utterances_discarded", stats.UtterancesDiscarded,
		"transcription_failures", stats.TranscriptionFailures,
		"dropped_samples", stats.Endpointer.DroppedSamples,
	)

	return runErr
}

// newClassifier builds the configured frame classifier.
func newClassifier(cfg *config.Config) (vad.Classifier, error) {
	switch cfg.VAD.Engine {
	case "silero":
		return vad.NewSileroClassifier(cfg.VAD.ModelPath,
			cfg.Audio.TargetSampleRate, cfg.Audio.FrameSize, cfg.VAD.Threshold)
	default:
		return vad.NewEnergyClassifier(cfg.VAD.Threshold, cfg.Audio.FrameSize)
	}
}

// newTranscriber builds the configured transcription engine.
func newTranscriber(cfg *config.Config) (transcribe.Transcriber, error) {
	t := cfg.Transcription
	switch t.Engine {
	case "exec":
		return transcribe.NewExec(transcribe.ExecConfig{
			BinaryPath: t.BinaryPath,
			ModelPath:  t.ModelPath,
			Language:   t.Language,
			Translate:  t.TranslateEN,
			SampleRate: cfg.Audio.TargetSampleRate,
		})
	case "http":
		return transcribe.NewHTTP(transcribe.HTTPConfig{
			Endpoint:      t.Endpoint,
			APIKey:        t.APIKey,
			Timeout:       t.GetTimeoutDuration(),
			MaxRetries:    t.MaxRetries,
			MaxConcurrent: t.MaxConcurrent,
			Language:      t.Language,
			Temperature:   t.Temperature,
			SampleRate:    cfg.Audio.TargetSampleRate,
		})
	default:
		return transcribe.NewNative(transcribe.NativeConfig{
			ModelPath: t.ModelPath,
			Language:  t.Language,
			Translate: t.TranslateEN,
		})
	}
}

// printDevices lists every input device on stdout.
func printDevices() error {
	if err := capture.Init(); err != nil {
		return err
	}
	defer capture.Terminate()

	devices, err := capture.ListDevices()
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("no input devices found")
		return nil
	}

	for _, dev := range devices {
		marker := " "
		if dev.Default {
			marker = "*"
		}
		fmt.Printf("%s %s (%d ch, %d Hz)\n", marker, dev.Name, dev.MaxInputChannels, dev.DefaultSampleRate)
	}
	return nil
}

// initLogger creates the structured logger from configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Transcripts go to stdout, so diagnostics default to stderr.
	var output *os.File
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
