package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"minute/transcriber"
)

func testMeta() Meta {
	return Meta{
		StartedAt: time.Date(2026, 8, 25, 14, 3, 5, 0, time.UTC),
		Device:    "Aggregate Device (Unit)",
		AudioPath: "/sessions/recording_20260825_140305.wav",
		Duration:  42*time.Minute + 10*time.Second,
	}
}

func TestWriteTranscriptOrderAndContent(t *testing.T) {
	utts := []transcriber.Utterance{
		{Speaker: "Speaker 0", Start: 0.0, End: 1.2, Text: "Hello"},
		{Speaker: "Speaker 1", Start: 1.3, End: 2.0, Text: "Hi"},
		{Speaker: "Speaker 0", Start: 75.4, End: 80.0, Text: "Back to the agenda"},
	}

	path := filepath.Join(t.TempDir(), "transcript.md")
	if err := WriteTranscript(path, testMeta(), utts); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	doc := string(data)

	// Every utterance appears verbatim exactly once, in order.
	lastIdx := -1
	for _, u := range utts {
		if strings.Count(doc, u.Text) != 1 {
			t.Errorf("text %q appears %d times, want 1", u.Text, strings.Count(doc, u.Text))
		}
		idx := strings.Index(doc, u.Text)
		if idx <= lastIdx {
			t.Errorf("text %q out of order", u.Text)
		}
		lastIdx = idx
	}
	for _, want := range []string{"**Speaker 0**", "**Speaker 1**", "[00:00]", "[00:01]", "[01:15]"} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if !strings.Contains(doc, "42m10s") {
		t.Errorf("document missing duration, got:\n%s", doc)
	}
}

func TestWriteTranscriptEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.md")
	if err := WriteTranscript(path, testMeta(), nil); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "No speech detected") {
		t.Errorf("empty transcript rendering wrong:\n%s", data)
	}
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")
	if err := WriteSummary(path, testMeta(), "## Key Topics\n- Budget\n"); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "# Call Summary — 2026-08-25 14:03") {
		t.Errorf("summary header missing:\n%s", data)
	}
	if !strings.Contains(string(data), "- Budget") {
		t.Errorf("summary body missing:\n%s", data)
	}
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.md")
	if err := WriteTranscript(path, testMeta(), nil); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "transcript.md" {
		t.Errorf("unexpected directory contents: %v", entries)
	}
}

func TestOffsetTS(t *testing.T) {
	cases := []struct {
		sec  float64
		want string
	}{
		{0, "00:00"},
		{61.4, "01:01"},
		{3599.9, "59:59"},
		{3661, "01:01:01"},
	}
	for _, c := range cases {
		if got := offsetTS(c.sec); got != c.want {
			t.Errorf("offsetTS(%v) = %q, want %q", c.sec, got, c.want)
		}
	}
}
