// Package log is the process-wide structured logger. Events are no-ops
// until Init runs, so library code can log unconditionally and tests stay
// quiet.
package log

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger   zerolog.Logger
	logFile  *os.File
	logMu    sync.Mutex
	logReady bool
)

// Init routes log output to stderr, or to an append-only file when path is
// non-empty.
func Init(path string) error {
	logMu.Lock()
	defer logMu.Unlock()

	out := os.Stderr
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logFile = f
		out = f
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    path != "",
	}
	logger = zerolog.New(consoleWriter).With().Timestamp().Int("pid", os.Getpid()).Logger()
	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		logger.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		logger.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		logger.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		logger.Error().Msg(fmt.Sprintf(format, args...))
	}
}

// StateChange records a session lifecycle transition.
func StateChange(state string) {
	if logReady {
		logger.Info().Str("state", state).Msg("session_state")
	}
}

// RecordingStart records the capture parameters of a new session.
func RecordingStart(device string, sampleRate, channels int, audioPath string) {
	if logReady {
		logger.Info().
			Str("device", device).
			Int("sample_rate", sampleRate).
			Int("channels", channels).
			Str("audio", audioPath).
			Msg("recording_start")
	}
}

// RecordingStop records the finalized container stats.
func RecordingStop(frames, dropped uint64, duration time.Duration) {
	if logReady {
		logger.Info().
			Uint64("frames", frames).
			Uint64("dropped", dropped).
			Float64("audio_s", duration.Seconds()).
			Msg("recording_stop")
	}
}

// Transcribed records a completed transcription response.
func Transcribed(provider string, utterances int) {
	if logReady {
		logger.Info().
			Str("provider", provider).
			Int("utterances", utterances).
			Msg("transcribed")
	}
}

// ArtifactWritten records a published output document.
func ArtifactWritten(kind, path string) {
	if logReady {
		logger.Info().Str("kind", kind).Str("path", path).Msg("artifact_written")
	}
}
