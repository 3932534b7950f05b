package audio

import (
	"sync"
	"time"
)

const fakeBlockFrames = 1024

// FakeContext is a capture backend for tests. It plays a fixed PCM buffer
// into the data callback, either as fast as possible or paced at the
// configured sample rate.
type FakeContext struct {
	pcm      []byte
	realtime bool

	// OpenErr, when set, is returned from NewCapture to simulate a device
	// that cannot be opened.
	OpenErr error
}

func NewFakeContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake aggregate"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, cfg CaptureConfig) (CaptureDevice, error) {
	if f.OpenErr != nil {
		return nil, &DeviceError{Device: "fake aggregate", Err: f.OpenErr}
	}
	return &FakeCapture{
		pcm:           f.pcm,
		realtime:      realtimeInterval(f.realtime, cfg),
		bytesPerFrame: int(cfg.Channels) * 2,
		audioDone:     make(chan struct{}),
	}, nil
}

func realtimeInterval(realtime bool, cfg CaptureConfig) time.Duration {
	if !realtime {
		return 0
	}
	return time.Duration(fakeBlockFrames) * time.Second / time.Duration(cfg.SampleRate)
}

type FakeCapture struct {
	pcm           []byte
	realtime      time.Duration // 0 means feed instantly
	bytesPerFrame int
	audioDone     chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
}

// AudioDone closes once the whole PCM buffer has been delivered; after that
// the capture keeps feeding silence until stopped, like a live device.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) loadCallback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/f.bytesPerFrame))
	return end
}

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	chunkBytes := fakeBlockFrames * f.bytesPerFrame
	silence := make([]byte, chunkBytes)

	go func() {
		defer close(f.feedDone)
		pos := 0
		audioFinished := false

		for {
			select {
			case <-f.stopCh:
				return
			default:
			}

			cb := f.loadCallback()
			if cb == nil {
				time.Sleep(time.Millisecond)
				continue
			}

			if pos < len(f.pcm) {
				pos = f.feedChunk(cb, pos, chunkBytes)
			} else {
				if !audioFinished {
					audioFinished = true
					close(f.audioDone)
				}
				cb(silence, uint32(fakeBlockFrames))
			}

			if f.realtime > 0 {
				select {
				case <-f.stopCh:
					return
				case <-time.After(f.realtime):
				}
			} else if pos >= len(f.pcm) {
				// Instant mode: don't spin silence at full speed.
				select {
				case <-f.stopCh:
					return
				case <-time.After(time.Millisecond):
				}
			}
		}
	}()

	return nil
}

func (f *FakeCapture) Stop() {
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	if f.feedDone != nil {
		<-f.feedDone
	}
}

func (f *FakeCapture) Close() {}
