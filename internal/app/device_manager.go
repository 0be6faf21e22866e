package app

import (
	"fmt"
	"io"

	"github.com/emmett/minutes/internal/audio"
)

// DeviceManager handles audio device selection and listing
type DeviceManager struct {
	backend audio.Backend
	out     io.Writer
}

// NewDeviceManager creates a new DeviceManager printing to out
func NewDeviceManager(backend audio.Backend, out io.Writer) *DeviceManager {
	return &DeviceManager{backend: backend, out: out}
}

// Devices returns capture devices, or loopback-capable playback devices.
func (dm *DeviceManager) Devices(loopback bool) ([]audio.DeviceInfo, error) {
	devices, err := dm.backend.Devices(loopback)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// ListDevices prints microphones and system (loopback) devices
func (dm *DeviceManager) ListDevices() error {
	fmt.Fprintln(dm.out, "Detecting audio devices...")
	fmt.Fprintln(dm.out)

	total := 0
	for _, section := range []struct {
		title    string
		loopback bool
		flag     string
	}{
		{"Microphones", false, "--mic"},
		{"System audio (loopback)", true, "--system"},
	} {
		devices, err := dm.Devices(section.loopback)
		if err != nil {
			return err
		}
		total += len(devices)

		fmt.Fprintf(dm.out, "%s (%d):\n\n", section.title, len(devices))
		if len(devices) == 0 {
			fmt.Fprintln(dm.out, "  none")
			fmt.Fprintln(dm.out)
			continue
		}
		for _, device := range devices {
			marker := ""
			if device.IsDefault {
				marker = " [DEFAULT]"
			}
			fmt.Fprintf(dm.out, "%d. %s%s\n", device.Index, device.Name, marker)
			fmt.Fprintf(dm.out, "   ID: %s\n", device.ID)
			channels := device.MaxInputChannels
			if section.loopback {
				channels = device.MaxOutputChannels
			}
			if channels > 0 {
				fmt.Fprintf(dm.out, "   Channels: %d\n", channels)
			}
			if device.DefaultSampleRate > 0 {
				fmt.Fprintf(dm.out, "   Default Rate: %d Hz\n", device.DefaultSampleRate)
			}
			fmt.Fprintln(dm.out)
		}
		fmt.Fprintf(dm.out, "  select with: minutes %s \"<name or index>\"\n\n", section.flag)
	}

	if total == 0 {
		return fmt.Errorf("no devices found")
	}
	return nil
}

// SelectDevice resolves name among capture or loopback devices. An empty
// name selects the default device.
func (dm *DeviceManager) SelectDevice(name string, loopback bool) (*audio.DeviceInfo, error) {
	devices, err := dm.Devices(loopback)
	if err != nil {
		return nil, err
	}
	dev, err := audio.ResolveDevice(devices, name)
	if err != nil {
		fmt.Fprintf(dm.out, "Error: Device '%s' not found\n\n", name)
		fmt.Fprintln(dm.out, "Available devices:")
		for _, device := range devices {
			fmt.Fprintf(dm.out, "  - %s\n", device.String())
		}
		fmt.Fprintln(dm.out)
		fmt.Fprintln(dm.out, "Use --list-devices for more details")
		return nil, fmt.Errorf("invalid audio device %q: %w", name, err)
	}
	return dev, nil
}
