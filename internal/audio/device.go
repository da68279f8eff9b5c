// SPDX-License-Identifier: MIT
package audio

// Device is a host audio device as shown by the list command.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// Kind returns "Input", "Output", "Input/Output" or "".
func (d Device) Kind() string {
	return deviceKind(d.MaxInputChannels, d.MaxOutputChannels)
}

// Stereo reports whether the device can deliver the two input channels
// the analyzer needs.
func (d Device) Stereo() bool {
	return d.MaxInputChannels >= 2
}

// HostDevices returns all host devices. PortAudio must be initialized.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		}
	}

	return devices, nil
}

func deviceKind(inputs, outputs int) string {
	switch {
	case inputs > 0 && outputs > 0:
		return "Input/Output"
	case inputs > 0:
		return "Input"
	case outputs > 0:
		return "Output"
	default:
		return ""
	}
}
