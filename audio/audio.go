// Package audio abstracts OS-level audio capture. Backends deliver raw
// 16-bit little-endian PCM to a data callback; the callback runs on the
// capture backend's thread and must return within one frame period.
package audio

import (
	"fmt"
	"strings"
)

// DataCallback receives one block of interleaved PCM frames.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
}

// DeviceError reports that a capture device could not be found, opened, or
// configured with the requested format. The session never starts.
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("audio device: %v", e.Err)
	}
	return fmt.Sprintf("audio device %q: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// FindDevice resolves a configured device by substring match against the
// enumerated device names, the way an aggregate device set up once by the
// user (e.g. loopback + microphone) is addressed later.
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, &DeviceError{Device: name, Err: err}
	}
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), strings.ToLower(name)) {
			return &devices[i], nil
		}
	}
	return nil, &DeviceError{Device: name, Err: fmt.Errorf("not found among %d capture devices", len(devices))}
}

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses whether a device name belongs to a Bluetooth headset,
// which typically drops to a low-bandwidth codec while its mic is open.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
