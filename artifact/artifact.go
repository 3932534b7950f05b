// Package artifact renders session output documents. Writes are atomic
// (temp file + rename) so a reader never observes a partial document.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"minute/transcriber"
)

// Meta carries the session facts rendered into document headers.
type Meta struct {
	StartedAt time.Time
	Device    string
	AudioPath string
	Duration  time.Duration
}

// WriteTranscript renders every utterance, in the given order, with its
// speaker label and offset from session start, then writes the document
// atomically.
func WriteTranscript(path string, meta Meta, utterances []transcriber.Utterance) error {
	return writeAtomic(path, RenderTranscript(meta, utterances))
}

// WriteSummary writes an already-generated summary document atomically.
func WriteSummary(path string, meta Meta, summary string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Call Summary — %s\n\n", meta.StartedAt.Format("2006-01-02 15:04"))
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n")
	return writeAtomic(path, b.String())
}

// RenderTranscript produces the transcript markdown.
func RenderTranscript(meta Meta, utterances []transcriber.Utterance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Call Transcript — %s\n\n", meta.StartedAt.Format("2006-01-02 15:04"))
	if meta.Device != "" {
		fmt.Fprintf(&b, "- Device: `%s`\n", meta.Device)
	}
	if meta.AudioPath != "" {
		fmt.Fprintf(&b, "- Audio: `%s`\n", filepath.Base(meta.AudioPath))
	}
	if meta.Duration > 0 {
		fmt.Fprintf(&b, "- Duration: %s\n", meta.Duration.Truncate(time.Second))
	}
	b.WriteString("\n---\n\n")

	if len(utterances) == 0 {
		b.WriteString("*No speech detected.*\n")
		return b.String()
	}

	for _, u := range utterances {
		fmt.Fprintf(&b, "[%s] **%s**: %s\n\n", offsetTS(u.Start), u.Speaker, strings.TrimSpace(u.Text))
	}
	return b.String()
}

// offsetTS formats a second offset as MM:SS, growing to HH:MM:SS past an
// hour.
func offsetTS(sec float64) string {
	d := time.Duration(sec*1000) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("artifact: writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("artifact: syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("artifact: closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("artifact: publishing %s: %w", path, err)
	}
	return nil
}
