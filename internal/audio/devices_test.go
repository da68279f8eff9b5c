// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rotisserie/eris"
)

func setupPortAudio(t *testing.T) {
	t.Helper()
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := Terminate(); err != nil {
			t.Fatalf("Failed to terminate PortAudio: %v", err)
		}
	})
}

// mockDevices replaces device enumeration with a fixed set for the test.
func mockDevices(t *testing.T, devices []*portaudio.DeviceInfo, defaultInput int) {
	t.Helper()
	origDevices, origDefault := paDevicesFunc, paLibDefaultInputDeviceFunc
	t.Cleanup(func() {
		paDevicesFunc = origDevices
		paLibDefaultInputDeviceFunc = origDefault
	})

	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return devices, nil }
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		if defaultInput < 0 {
			return nil, fmt.Errorf("no default input")
		}
		return devices[defaultInput], nil
	}
}

func fakeDevices() []*portaudio.DeviceInfo {
	return []*portaudio.DeviceInfo{
		{Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{Name: "USB Mic", MaxInputChannels: 1, DefaultSampleRate: 44100},
		{
			Name:                    "Loopback",
			MaxInputChannels:        2,
			MaxOutputChannels:       2,
			DefaultSampleRate:       44100,
			DefaultLowInputLatency:  5 * time.Millisecond,
			DefaultHighInputLatency: 40 * time.Millisecond,
		},
	}
}

func TestHostDevices(t *testing.T) {
	mockDevices(t, fakeDevices(), 2)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("len(devices) = %d, want 3", len(devices))
	}

	wantKinds := []string{"Output", "Input", "Input/Output"}
	wantStereo := []bool{false, false, true}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Kind() != wantKinds[i] {
			t.Errorf("Device %d kind = %q, want %q", i, d.Kind(), wantKinds[i])
		}
		if d.Stereo() != wantStereo[i] {
			t.Errorf("Device %d stereo = %t, want %t", i, d.Stereo(), wantStereo[i])
		}
	}
}

func TestHostDevicesOnHost(t *testing.T) {
	setupPortAudio(t)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) == 0 {
		t.Skip("No audio devices found on system")
	}
	for i, d := range devices {
		if d.Name == "" {
			t.Errorf("Device %d has empty name", i)
		}
		if d.DefaultSampleRate <= 0 {
			t.Errorf("Device %d has invalid sample rate: %f", i, d.DefaultSampleRate)
		}
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice(t *testing.T) {
	mockDevices(t, fakeDevices(), 2)

	dev, err := InputDevice(DefaultDeviceID)
	if err != nil || dev.Name != "Loopback" {
		t.Errorf("InputDevice(default) = %v, %v; want Loopback", dev, err)
	}

	dev, err = InputDevice(1)
	if err != nil || dev.Name != "USB Mic" {
		t.Errorf("InputDevice(1) = %v, %v; want USB Mic", dev, err)
	}

	tests := []struct {
		name    string
		id      int
		wantErr error
	}{
		{"Negative ID", -2, ErrInvalidDevice},
		{"Too high ID", 13, ErrInvalidDevice},
		{"Non-input device", 0, ErrNotInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InputDevice(tt.id)
			if !eris.Is(err, tt.wantErr) {
				t.Errorf("InputDevice(%d) error = %v, want %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestInputDevice_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := InputDevice(DefaultDeviceID)
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice_paDefaultInputDeviceError(t *testing.T) {
	mockDevices(t, fakeDevices(), -1)

	_, err := InputDevice(DefaultDeviceID)
	if err == nil || !strings.Contains(err.Error(), "no default input") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestListDevices(t *testing.T) {
	mockDevices(t, fakeDevices(), 2)

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatalf("ListDevices error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"[0] Speakers (Output)",
		"[1] USB Mic (Input)",
		"[2] Loopback (Input/Output)",
		"Latency: Low=5.00ms, High=40.00ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ListDevices output missing %q:\n%s", want, out)
		}
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestNilDevices(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, nil
	}

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil {
		t.Errorf("expected empty slice, got nil")
	}
	if len(devices) != 0 {
		t.Errorf("expected length 0, got %d", len(devices))
	}
}

func TestPortAudioNotInitialized(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("PortAudio not initialized")
	}

	devices, err := paDevices()
	if err == nil || !strings.Contains(err.Error(), "PortAudio not initialized") {
		t.Errorf("expected 'PortAudio not initialized' error, got %v", err)
	}
	if devices != nil {
		t.Errorf("expected devices to be nil on error, got %v", devices)
	}
}
