// Package transcriber submits finalized session audio to a diarizing
// speech-to-text service and returns speaker-labeled utterances.
package transcriber

import (
	"context"
	"fmt"
	"os"
)

// Utterance is one speaker turn. Start and End are offsets in seconds from
// the beginning of the recording. Speaker labels are opaque and stable only
// within a single response.
type Utterance struct {
	Speaker string
	Start   float64
	End     float64
	Text    string
}

// Transcriber sends a finalized audio file for diarized transcription.
// Implementations must return utterances ordered by non-decreasing Start.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) ([]Utterance, error)
}

// TranscriptionError means the remote service failed after retries were
// exhausted or returned an unrecoverable status. The audio file is preserved
// so the session can be retried without re-recording.
type TranscriptionError struct {
	Attempts int
	Err      error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// ConfigurationError means credentials are missing or rejected. Never
// retried; detected before any network attempt where possible.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return fmt.Sprintf("configuration: %v", e.Err) }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// InputError means the service rejected the audio itself (unsupported or
// corrupt). Never retried.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return fmt.Sprintf("audio input: %v", e.Err) }
func (e *InputError) Unwrap() error { return e.Err }

// New builds the Deepgram transcriber from the environment.
func New(opts ...DeepgramOption) (Transcriber, error) {
	key := os.Getenv("DEEPGRAM_API_KEY")
	if key == "" {
		return nil, &ConfigurationError{Err: fmt.Errorf("DEEPGRAM_API_KEY not set")}
	}
	return NewDeepgram(key, opts...), nil
}
