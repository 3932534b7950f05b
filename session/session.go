// Package session owns the recording session lifecycle: the state machine,
// the frame-to-file recorder, and the controller that drives capture through
// transcription to the output documents.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TimestampLayout names every session artifact after the recording start.
const TimestampLayout = "20060102_150405"

// Session is the single active recording. Its identity is the start
// timestamp; all artifact paths derive from it.
type Session struct {
	StartedAt      time.Time
	Device         string
	Dir            string
	AudioPath      string
	TranscriptPath string
	SummaryPath    string
	SampleRate     int
	Channels       int
}

// New lays out a session directory under outputRoot, named by start time.
func New(outputRoot, device string, sampleRate, channels int, startedAt time.Time) (*Session, error) {
	ts := startedAt.Format(TimestampLayout)
	dir := filepath.Join(outputRoot, ts)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &Session{
		StartedAt:      startedAt,
		Device:         device,
		Dir:            dir,
		AudioPath:      filepath.Join(dir, "recording_"+ts+".wav"),
		TranscriptPath: filepath.Join(dir, "transcript_"+ts+".md"),
		SummaryPath:    filepath.Join(dir, "summary_"+ts+".md"),
		SampleRate:     sampleRate,
		Channels:       channels,
	}, nil
}

// ForExistingAudio builds a session around an already-finalized recording,
// writing artifacts next to it. Used to retry transcription without
// re-recording.
func ForExistingAudio(audioPath string, startedAt time.Time) *Session {
	dir := filepath.Dir(audioPath)
	ts := startedAt.Format(TimestampLayout)
	return &Session{
		StartedAt:      startedAt,
		Dir:            dir,
		AudioPath:      audioPath,
		TranscriptPath: filepath.Join(dir, "transcript_"+ts+".md"),
		SummaryPath:    filepath.Join(dir, "summary_"+ts+".md"),
	}
}

// State is the controller lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateRecording
	StateFinalizingAudio
	StateTranscribing
	StateWritingArtifacts
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalizingAudio:
		return "finalizing_audio"
	case StateTranscribing:
		return "transcribing"
	case StateWritingArtifacts:
		return "writing_artifacts"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// StateError rejects a lifecycle operation that is invalid in the current
// state, e.g. starting a second session while one is recording. No state
// change happens.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}
