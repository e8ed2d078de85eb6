package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Candidate rates probed during negotiation, ascending. PortAudio has no
// supported-rate enumeration, so negotiation asks the host about each one.
var candidateRates = []int{8000, 11025, 16000, 22050, 24000, 32000, 44100, 48000, 88200, 96000}

var _ Source = (*Device)(nil)

// Device is a live PortAudio input stream. The caller owns the PortAudio
// lifecycle: Init must have succeeded before OpenDevice, and Terminate runs
// after Close.
type Device struct {
	stream     *portaudio.Stream
	buffer     []float32
	name       string
	sampleRate int
	channels   int
}

// DeviceSummary describes one input device for --list output.
type DeviceSummary struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate int
	Default           bool
}

// Init initializes the PortAudio host API. Pair with Terminate.
func Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	return nil
}

// Terminate releases the PortAudio host API.
func Terminate() {
	if err := portaudio.Terminate(); err != nil {
		slog.Warn("portaudio terminate failed", "error", err)
	}
}

// ListDevices returns all devices with at least one input channel.
func ListDevices() ([]DeviceSummary, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	defaultDev, err := portaudio.DefaultInputDevice()
	if err != nil {
		defaultDev = nil // headless hosts have no default input
	}

	var summaries []DeviceSummary
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		summaries = append(summaries, DeviceSummary{
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			DefaultSampleRate: int(dev.DefaultSampleRate),
			Default:           defaultDev != nil && dev.Name == defaultDev.Name,
		})
	}

	return summaries, nil
}

// OpenDevice opens an input stream on the named device, or the default input
// when name is empty. The stream rate is negotiated against targetRate; the
// returned Device reports the rate actually granted.
func OpenDevice(name string, targetRate int) (*Device, error) {
	dev, err := findDevice(name)
	if err != nil {
		return nil, err
	}

	if dev.MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %q has no input channels", dev.Name)
	}

	channels := dev.MaxInputChannels
	if channels > 2 {
		channels = 2
	}

	params := portaudio.HighLatencyParameters(dev, nil)
	params.Input.Channels = channels

	rate, err := negotiateRate(targetRate, int(dev.DefaultSampleRate), func(rate int) bool {
		probe := params
		probe.SampleRate = float64(rate)
		return portaudio.IsFormatSupported(probe, make([]float32, channels)) == nil
	})
	if err != nil {
		return nil, fmt.Errorf("device %q: %w", dev.Name, err)
	}

	frames := framesPerBuffer(rate)
	params.SampleRate = float64(rate)
	params.FramesPerBuffer = frames

	buffer := make([]float32, frames*channels)
	stream, err := portaudio.OpenStream(params, buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream on %q: %w", dev.Name, err)
	}

	slog.Info("opened input device",
		"device", dev.Name,
		"sample_rate", rate,
		"channels", channels,
		"frames_per_buffer", frames)

	return &Device{
		stream:     stream,
		buffer:     buffer,
		name:       dev.Name,
		sampleRate: rate,
		channels:   channels,
	}, nil
}

// Name returns the PortAudio device name.
func (d *Device) Name() string { return d.name }

// SampleRate returns the negotiated stream rate in Hz.
func (d *Device) SampleRate() int { return d.sampleRate }

// Channels returns the opened channel count.
func (d *Device) Channels() int { return d.channels }

// Run starts the stream and blocks reading buffers until ctx is cancelled.
// Each chunk handed to emit is only valid for the duration of the call.
func (d *Device) Run(ctx context.Context, emit func(chunk []float32) error) error {
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	defer func() {
		if err := d.stream.Stop(); err != nil {
			slog.Warn("failed to stop stream", "device", d.name, "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := d.stream.Read(); err != nil {
			// Overflows mean the host dropped input between reads; the
			// buffer still holds valid samples, so keep going.
			if errors.Is(err, portaudio.InputOverflowed) {
				slog.Warn("input overflow", "device", d.name)
			} else {
				return fmt.Errorf("stream read failed: %w", err)
			}
		}

		if err := emit(d.buffer); err != nil {
			return err
		}
	}
}

// Close releases the stream.
func (d *Device) Close() error {
	return d.stream.Close()
}

// findDevice resolves a device by case-insensitive substring match, or the
// default input device when name is empty.
func findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	for _, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		if strings.Contains(strings.ToLower(dev.Name), strings.ToLower(name)) {
			return dev, nil
		}
	}

	return nil, fmt.Errorf("no input device matching %q", name)
}

// negotiateRate picks the stream sample rate: the target itself when the
// device supports it, otherwise the smallest supported candidate above the
// target (downsampling keeps full quality), otherwise the largest supported
// candidate below it, otherwise the device default.
func negotiateRate(target, deviceDefault int, supported func(rate int) bool) (int, error) {
	if supported(target) {
		return target, nil
	}

	for _, rate := range candidateRates {
		if rate > target && supported(rate) {
			return rate, nil
		}
	}

	for i := len(candidateRates) - 1; i >= 0; i-- {
		if rate := candidateRates[i]; rate < target && supported(rate) {
			return rate, nil
		}
	}

	if deviceDefault > 0 && supported(deviceDefault) {
		return deviceDefault, nil
	}

	return 0, errors.New("no supported sample rate found")
}

// framesPerBuffer sizes the read buffer at roughly a 30th of a second,
// rounded up to a multiple of 32 frames as the hosts prefer, never below 32.
func framesPerBuffer(rate int) int {
	frames := (rate + 29) / 30
	frames = (frames + 31) &^ 31
	if frames < 32 {
		frames = 32
	}
	return frames
}
