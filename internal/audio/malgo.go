package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

var _ Backend = (*MalgoBackend)(nil)

// MalgoBackend implements Backend on top of miniaudio. Loopback streams
// capture a playback device's output, which miniaudio supports on WASAPI.
type MalgoBackend struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

// NewMalgoBackend initializes a miniaudio context. Close releases it.
func NewMalgoBackend() (*MalgoBackend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		slog.Debug("miniaudio", "msg", strings.TrimSpace(msg))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	return &MalgoBackend{ctx: ctx}, nil
}

// Devices enumerates capture devices, or playback devices for loopback.
func (b *MalgoBackend) Devices(loopback bool) ([]DeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return nil, fmt.Errorf("malgo context closed")
	}

	kind, prefix := malgo.Capture, "capture"
	if loopback {
		kind, prefix = malgo.Playback, "playback"
	}

	infos, err := b.ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		formats := info.Formats
		if full, err := b.ctx.DeviceInfo(kind, info.ID, malgo.Shared); err == nil && len(full.Formats) > 0 {
			formats = full.Formats
		}
		maxCh, rate := nativeFormat(formats)

		dev := DeviceInfo{
			ID:                fmt.Sprintf("%s-%d", prefix, i),
			Name:              info.Name(),
			Index:             i,
			IsDefault:         info.IsDefault > 0,
			DefaultSampleRate: rate,
			native:            info.ID,
		}
		if loopback {
			dev.MaxOutputChannels = maxCh
		} else {
			dev.MaxInputChannels = maxCh
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// nativeFormat picks the widest channel layout and the first concrete rate
// miniaudio reports. Zero values mean "any" and are left for the caller's
// fallbacks.
func nativeFormat(formats []malgo.DataFormat) (channels, rate int) {
	for _, f := range formats {
		if int(f.Channels) > channels {
			channels = int(f.Channels)
		}
		if rate == 0 && f.SampleRate > 0 {
			rate = int(f.SampleRate)
		}
	}
	return channels, rate
}

// Open starts a float32 capture stream with exactly the requested format.
func (b *MalgoBackend) Open(params StreamParams, fn FrameFunc) (io.Closer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return nil, fmt.Errorf("malgo context closed")
	}

	kind := malgo.Capture
	if params.Loopback {
		kind = malgo.Loopback
	}

	deviceConfig := malgo.DefaultDeviceConfig(kind)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(params.Channels)
	deviceConfig.SampleRate = uint32(params.SampleRate)
	if params.PeriodFrames > 0 {
		deviceConfig.PeriodSizeInFrames = uint32(params.PeriodFrames)
	}
	// WASAPI would otherwise resample for us and accept any rate.
	deviceConfig.Wasapi.NoAutoConvertSRC = 1
	if params.Device != nil {
		if id, ok := params.Device.native.(malgo.DeviceID); ok {
			deviceConfig.Capture.DeviceID = id.Pointer()
		}
	}

	var scratch []float32
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			n := len(input) / 4
			if cap(scratch) < n {
				scratch = make([]float32, n)
			}
			samples := scratch[:n]
			for i := range samples {
				samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(input[i*4:]))
			}
			fn(samples)
		},
	}

	device, err := malgo.InitDevice(b.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize device: %w", err)
	}
	if got := int(device.SampleRate()); got != params.SampleRate {
		device.Uninit()
		return nil, fmt.Errorf("device runs at %d Hz, not %d Hz", got, params.SampleRate)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start device: %w", err)
	}
	return &malgoStream{device: device}, nil
}

// Close uninitializes the miniaudio context.
func (b *MalgoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return nil
	}
	err := b.ctx.Uninit()
	b.ctx.Free()
	b.ctx = nil
	return err
}

type malgoStream struct {
	once   sync.Once
	device *malgo.Device
	err    error
}

func (s *malgoStream) Close() error {
	s.once.Do(func() {
		if err := s.device.Stop(); err != nil {
			s.err = fmt.Errorf("failed to stop device: %w", err)
		}
		s.device.Uninit()
	})
	return s.err
}
