// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"
	"github.com/rotisserie/eris"
)

// DefaultDeviceID selects the host's default input device.
const DefaultDeviceID = -1

var (
	ErrInvalidDevice = eris.New("invalid device ID")
	ErrNotInput      = eris.New("device does not support input")
)

// PortAudio entry points, replaceable in tests.
var (
	paLibInitialize             = portaudio.Initialize
	paLibTerminate              = portaudio.Terminate
	paLibDevicesFunc            = portaudio.Devices
	paLibDefaultInputDeviceFunc = portaudio.DefaultInputDevice
	paDevicesFunc               = paDevices
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return eris.Wrap(err, "failed to initialize PortAudio")
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return eris.Wrap(err, "failed to terminate PortAudio")
	}
	return nil
}

// InputDevice retrieves the input device for deviceID, or the system
// default input device for DefaultDeviceID.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == DefaultDeviceID {
		device, err := paLibDefaultInputDeviceFunc()
		if err != nil {
			return nil, eris.Wrap(err, "failed to get default input device")
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, eris.Wrapf(ErrInvalidDevice, "%d", deviceID)
	}
	device := devices[deviceID]
	if device.MaxInputChannels == 0 {
		return nil, eris.Wrapf(ErrNotInput, "[%d] %s", deviceID, device.Name)
	}
	return device, nil
}

// ListDevices writes a description of every host device to w.
func ListDevices(w io.Writer) error {
	devices, err := paDevicesFunc()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for i, device := range devices {
		fmt.Fprintf(w, "[%d] %s (%s)\n", i, device.Name, deviceKind(device.MaxInputChannels, device.MaxOutputChannels))
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			device.DefaultLowInputLatency.Seconds()*1000,
			device.DefaultHighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}

	return nil
}

// paDevices returns all PortAudio devices, never a nil slice on success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, eris.Wrap(err, "failed to enumerate devices")
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
