// Package wav writes 16-bit PCM RIFF/WAVE files with a provisional header
// that is patched to the true length on finalize. A file produced by this
// package is valid after Finalize even if the recording was cut short.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	HeaderSize     = 44
	BitsPerSample  = 16
	bytesPerSample = BitsPerSample / 8
)

// StorageError wraps a disk fault encountered while writing or finalizing.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Writer appends PCM frames to a WAV file. Not safe for concurrent use;
// callers serialize Write and Finalize externally.
type Writer struct {
	f          *os.File
	path       string
	sampleRate int
	channels   int
	dataBytes  uint64
	finalized  bool
}

// Create opens path for writing and emits a provisional header with zero
// lengths. The header is only made consistent by Finalize.
func Create(path string, sampleRate, channels int) (*Writer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("wav: invalid format %d Hz / %d ch", sampleRate, channels)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, &StorageError{Path: path, Err: err}
	}
	w := &Writer{f: f, path: path, sampleRate: sampleRate, channels: channels}
	if err := w.writeHeader(0); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	// writeHeader uses WriteAt; position the append cursor past it.
	if _, err := f.Seek(HeaderSize, io.SeekStart); err != nil {
		f.Close()
		os.Remove(path)
		return nil, &StorageError{Path: path, Err: err}
	}
	return w, nil
}

func (w *Writer) writeHeader(dataSize uint32) error {
	var hdr [HeaderSize]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36+dataSize)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(w.sampleRate))
	byteRate := uint32(w.sampleRate * w.channels * bytesPerSample)
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(w.channels*bytesPerSample))
	binary.LittleEndian.PutUint16(hdr[34:36], BitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataSize)

	if _, err := w.f.WriteAt(hdr[:], 0); err != nil {
		return &StorageError{Path: w.path, Err: err}
	}
	return nil
}

// WritePCM appends interleaved little-endian 16-bit samples. Returns an error
// after Finalize has begun, so a racing producer can drop instead of corrupt.
func (w *Writer) WritePCM(p []byte) error {
	if w.finalized {
		return errors.New("wav: write after finalize")
	}
	n, err := w.f.Write(p)
	w.dataBytes += uint64(n)
	if err != nil {
		return &StorageError{Path: w.path, Err: err}
	}
	return nil
}

// Frames reports the number of sample frames written so far.
func (w *Writer) Frames() uint64 {
	return w.dataBytes / uint64(w.channels*bytesPerSample)
}

// Duration reports the audio length represented by the frames written.
func (w *Writer) Duration() time.Duration {
	return time.Duration(w.Frames()) * time.Second / time.Duration(w.sampleRate)
}

// Path returns the destination file path.
func (w *Writer) Path() string { return w.path }

// Finalize patches the header with the true data length, flushes, and closes
// the file. Idempotent: a second call is a no-op. Even when the header patch
// fails (e.g. the disk filled), the file is closed and the first error is
// returned; frames already on disk are never discarded.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	w.finalized = true

	hdrErr := w.writeHeader(uint32(w.dataBytes))
	syncErr := w.f.Sync()
	closeErr := w.f.Close()

	if hdrErr != nil {
		return hdrErr
	}
	if syncErr != nil {
		return &StorageError{Path: w.path, Err: syncErr}
	}
	if closeErr != nil {
		return &StorageError{Path: w.path, Err: closeErr}
	}
	return nil
}
