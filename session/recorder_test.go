package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"minute/audio"
	"minute/wav"
)

func testSession(t *testing.T) *Session {
	t.Helper()
	sess, err := New(t.TempDir(), "fake aggregate", 16000, 1, time.Now())
	if err != nil {
		t.Fatalf("New session: %v", err)
	}
	return sess
}

// ramp returns n mono frames of deterministic non-silent PCM.
func ramp(n int) []byte {
	pcm := make([]byte, n*2)
	for i := range n {
		pcm[i*2] = byte(i)
		pcm[i*2+1] = byte(i >> 8)
	}
	return pcm
}

func waitFrames(t *testing.T, rec *Recorder, want uint64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for rec.Frames() < want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out at %d frames, want %d", rec.Frames(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRecorderWritesCapturedPCM(t *testing.T) {
	pcm := ramp(16000)
	sess := testSession(t)

	rec, err := StartRecorder(audio.NewFakeContext(pcm, false), nil, sess)
	if err != nil {
		t.Fatalf("StartRecorder: %v", err)
	}
	waitFrames(t, rec, 16000)
	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got, info, err := wav.ReadPCM(sess.AudioPath)
	if err != nil {
		t.Fatalf("ReadPCM: %v", err)
	}
	if info.SampleRate != 16000 || info.Channels != 1 {
		t.Errorf("format %d Hz / %d ch, want 16000/1", info.SampleRate, info.Channels)
	}
	if len(got) < len(pcm) {
		t.Fatalf("file has %d PCM bytes, want at least %d", len(got), len(pcm))
	}
	for i := range pcm {
		if got[i] != pcm[i] {
			t.Fatalf("PCM mismatch at byte %d", i)
		}
	}
}

func TestRecorderStopIdempotent(t *testing.T) {
	sess := testSession(t)
	rec, err := StartRecorder(audio.NewFakeContext(ramp(2048), false), nil, sess)
	if err != nil {
		t.Fatalf("StartRecorder: %v", err)
	}
	waitFrames(t, rec, 2048)

	if err := rec.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	frames := rec.Frames()
	if err := rec.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if rec.Frames() != frames {
		t.Errorf("frame count changed across repeated Stop: %d -> %d", frames, rec.Frames())
	}
}

func TestRecorderDeviceOpenFailureLeavesNoFile(t *testing.T) {
	sess := testSession(t)
	actx := audio.NewFakeContext(nil, false)
	actx.OpenErr = errors.New("device busy")

	_, err := StartRecorder(actx, nil, sess)
	var devErr *audio.DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("got %v, want DeviceError", err)
	}
	if _, statErr := os.Stat(sess.AudioPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("provisional file left behind at %s", sess.AudioPath)
	}
	// The session directory itself survives for diagnostics.
	if _, statErr := os.Stat(sess.Dir); statErr != nil {
		t.Errorf("session dir missing: %v", statErr)
	}
}

func TestRecorderFileValidAfterEarlyStop(t *testing.T) {
	// Stop long before the fake runs out of audio; the file must still be a
	// well-formed container for whatever landed.
	sess := testSession(t)
	rec, err := StartRecorder(audio.NewFakeContext(ramp(160000), true), nil, sess)
	if err != nil {
		t.Fatalf("StartRecorder: %v", err)
	}
	waitFrames(t, rec, 1024)
	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	_, info, err := wav.ReadPCM(sess.AudioPath)
	if err != nil {
		t.Fatalf("container not valid after early stop: %v", err)
	}
	if info.Frames == 0 {
		t.Error("no frames recorded before stop")
	}
	if got := rec.Duration(); got != time.Duration(info.Frames)*time.Second/16000 {
		t.Errorf("Duration = %v, disagrees with %d frames", got, info.Frames)
	}
}

func TestSessionArtifactNaming(t *testing.T) {
	started := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	sess, err := New(t.TempDir(), "mic", 16000, 1, started)
	if err != nil {
		t.Fatal(err)
	}
	if got := filepath.Base(sess.AudioPath); got != "recording_20260825_093000.wav" {
		t.Errorf("audio name = %q", got)
	}
	if got := filepath.Base(sess.TranscriptPath); got != "transcript_20260825_093000.md" {
		t.Errorf("transcript name = %q", got)
	}
	if got := filepath.Base(sess.SummaryPath); got != "summary_20260825_093000.md" {
		t.Errorf("summary name = %q", got)
	}
}
