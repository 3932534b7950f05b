package transcriber

import (
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"minute/wav"
)

const utterancesJSON = `{"results":{"utterances":[
	{"start":0.0,"end":1.2,"speaker":0,"transcript":"Hello"},
	{"start":1.3,"end":2.0,"speaker":1,"transcript":"Hi"}
]}}`

func testWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rec.wav")
	w, err := wav.Create(path, 16000, 1)
	if err != nil {
		t.Fatalf("wav.Create: %v", err)
	}
	pcm := make([]byte, 16000*2)
	for i := 0; i+1 < len(pcm); i += 2 {
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(i%512)))
	}
	if err := w.WritePCM(pcm); err != nil {
		t.Fatalf("WritePCM: %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return path
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{Attempts: attempts, Base: time.Millisecond, Factor: 2, Cap: 10 * time.Millisecond}
}

func TestTranscribeParsesUtterances(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		if r.Header.Get("Authorization") != "Token test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(utterancesJSON))
	}))
	defer srv.Close()

	d := NewDeepgram("test-key", WithBaseURL(srv.URL), WithRetryPolicy(fastRetry(1)))
	utts, err := d.Transcribe(context.Background(), testWAV(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	want := []Utterance{
		{Speaker: "Speaker 0", Start: 0.0, End: 1.2, Text: "Hello"},
		{Speaker: "Speaker 1", Start: 1.3, End: 2.0, Text: "Hi"},
	}
	if len(utts) != len(want) {
		t.Fatalf("got %d utterances, want %d", len(utts), len(want))
	}
	for i := range want {
		if utts[i] != want[i] {
			t.Errorf("utterance %d = %+v, want %+v", i, utts[i], want[i])
		}
	}

	q := gotQuery.Load().(string)
	for _, param := range []string{"diarize=true", "smart_format=true", "utterances=true", "model=nova-2"} {
		if !strings.Contains(q, param) {
			t.Errorf("query %q missing %q", q, param)
		}
	}
}

func TestTranscribeRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(utterancesJSON))
	}))
	defer srv.Close()

	d := NewDeepgram("k", WithBaseURL(srv.URL), WithRetryPolicy(fastRetry(5)))
	utts, err := d.Transcribe(context.Background(), testWAV(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if len(utts) != 2 {
		t.Errorf("got %d utterances", len(utts))
	}
}

func TestTranscribeExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDeepgram("k", WithBaseURL(srv.URL), WithRetryPolicy(fastRetry(3)))
	_, err := d.Transcribe(context.Background(), testWAV(t))

	var trErr *TranscriptionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TranscriptionError, got %v", err)
	}
	if trErr.Attempts != 3 || calls.Load() != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3/3", trErr.Attempts, calls.Load())
	}
}

func TestTranscribeAuthFailureNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := NewDeepgram("bad", WithBaseURL(srv.URL), WithRetryPolicy(fastRetry(5)))
	_, err := d.Transcribe(context.Background(), testWAV(t))

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestTranscribeBadAudioNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewDeepgram("k", WithBaseURL(srv.URL), WithRetryPolicy(fastRetry(5)))
	_, err := d.Transcribe(context.Background(), testWAV(t))

	var inErr *InputError
	if !errors.As(err, &inErr) {
		t.Fatalf("expected InputError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestTranscribeCancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDeepgram("k", WithBaseURL(srv.URL),
		WithRetryPolicy(RetryPolicy{Attempts: 5, Base: 10 * time.Second, Factor: 2}))

	ctx, cancel := context.WithCancel(context.Background())
	path := testWAV(t)
	done := make(chan error, 1)
	go func() {
		_, err := d.Transcribe(ctx, path)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		var trErr *TranscriptionError
		if !errors.As(err, &trErr) {
			t.Fatalf("expected TranscriptionError, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Transcribe did not return after cancel")
	}
}

func TestTranscribeFLACUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "audio/flac" {
			t.Errorf("Content-Type = %q, want audio/flac", ct)
		}
		w.Write([]byte(utterancesJSON))
	}))
	defer srv.Close()

	path := testWAV(t)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	d := NewDeepgram("k", WithBaseURL(srv.URL), WithFLACUpload(true), WithRetryPolicy(fastRetry(1)))
	if _, err := d.Transcribe(context.Background(), path); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(before) != string(after) {
		t.Error("FLAC upload modified the durable WAV")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")
	_, err := New()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
