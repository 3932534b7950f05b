package session

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"minute/audio"
	"minute/log"
	"minute/wav"
)

// Recorder pumps capture callbacks into the session's WAV file and
// guarantees the file is finalized exactly once on every exit path.
//
// The frame callback is the only code reachable from two contexts at once
// (capture backend vs. a stop triggered from a signal). It takes the mutex
// with TryLock so it can never stall the real-time capture thread: if the
// lock is held — which only happens while Stop is finalizing — the block is
// dropped and counted instead.
type Recorder struct {
	sess    *Session
	capture audio.CaptureDevice

	mu      sync.Mutex
	w       *wav.Writer
	stopped bool

	dropped    atomic.Uint64
	storageMu  sync.Mutex
	storageErr error
}

// StartRecorder opens the capture device and the container file and begins
// appending frames. On failure nothing is left behind: the provisional file
// is removed.
func StartRecorder(actx audio.Context, dev *audio.DeviceInfo, sess *Session) (*Recorder, error) {
	w, err := wav.Create(sess.AudioPath, sess.SampleRate, sess.Channels)
	if err != nil {
		return nil, err
	}

	capture, err := actx.NewCapture(dev, audio.CaptureConfig{
		SampleRate: uint32(sess.SampleRate),
		Channels:   uint32(sess.Channels),
	})
	if err != nil {
		w.Finalize()
		os.Remove(sess.AudioPath)
		return nil, err
	}

	r := &Recorder{sess: sess, capture: capture, w: w}
	capture.SetCallback(r.onFrames)

	if err := capture.Start(); err != nil {
		capture.Close()
		w.Finalize()
		os.Remove(sess.AudioPath)
		return nil, err
	}

	log.RecordingStart(sess.Device, sess.SampleRate, sess.Channels, sess.AudioPath)
	return r, nil
}

func (r *Recorder) onFrames(data []byte, frameCount uint32) {
	if !r.mu.TryLock() {
		// Finalization in progress; no frame may land after it begins.
		r.dropped.Add(uint64(frameCount))
		return
	}
	defer r.mu.Unlock()

	if r.stopped {
		r.dropped.Add(uint64(frameCount))
		return
	}
	if err := r.w.WritePCM(data); err != nil {
		// Disk fault: keep capturing so a partial recording survives,
		// but remember the first cause.
		r.dropped.Add(uint64(frameCount))
		r.storageMu.Lock()
		if r.storageErr == nil {
			r.storageErr = err
			log.Errorf("recording write failed, continuing with frames so far: %v", err)
		}
		r.storageMu.Unlock()
	}
}

// Stop finalizes the container header with the true frame count and releases
// the device. Idempotent and safe to call concurrently with in-flight frame
// callbacks; the second and later calls are no-ops.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	err := r.w.Finalize()
	r.mu.Unlock()

	r.capture.ClearCallback()
	r.capture.Stop()
	r.capture.Close()

	log.RecordingStop(r.w.Frames(), r.dropped.Load(), r.w.Duration())
	return err
}

// Frames reports sample frames written to the container.
func (r *Recorder) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Frames()
}

// Duration reports the recorded audio length.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Duration()
}

// Dropped reports frames discarded to protect real-time capture.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// StorageErr returns the first disk fault hit while appending, if any. The
// recording up to that point is still finalized and valid.
func (r *Recorder) StorageErr() error {
	r.storageMu.Lock()
	defer r.storageMu.Unlock()
	return r.storageErr
}
