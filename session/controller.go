package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"minute/artifact"
	"minute/audio"
	"minute/log"
	"minute/summarize"
	"minute/transcriber"
)

// Result reports what a session produced. Populated on success and on
// abort, so the caller can always tell the user which artifacts exist.
type Result struct {
	Session    *Session
	Utterances []transcriber.Utterance

	AudioSaved      bool
	TranscriptSaved bool
	SummarySaved    bool
	Warnings        []string
}

// Controller drives one session at a time through the lifecycle
// idle → recording → finalizing_audio → transcribing → writing_artifacts →
// done, aborting from any non-done state on unrecoverable failure.
type Controller struct {
	audio       audio.Context
	transcriber transcriber.Transcriber
	summarizer  summarize.Summarizer // nil degrades to transcript-only
	outputRoot  string
	sampleRate  int
	channels    int

	state atomic.Int32

	stopMu   sync.Mutex
	stopCh   chan struct{}
	stopOnce *sync.Once
}

func NewController(actx audio.Context, t transcriber.Transcriber, s summarize.Summarizer,
	outputRoot string, sampleRate, channels int) *Controller {
	return &Controller{
		audio:       actx,
		transcriber: t,
		summarizer:  s,
		outputRoot:  outputRoot,
		sampleRate:  sampleRate,
		channels:    channels,
	}
}

// State reports the current lifecycle state.
func (c *Controller) State() State { return State(c.state.Load()) }

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
	log.StateChange(s.String())
}

// Stop requests the recording → finalizing_audio transition. Safe to call
// from a signal handler at any time, any number of times; outside recording
// it is a no-op.
func (c *Controller) Stop() {
	c.stopMu.Lock()
	once, ch := c.stopOnce, c.stopCh
	c.stopMu.Unlock()
	if once != nil {
		once.Do(func() { close(ch) })
	}
}

// Run executes one full session: record until Stop or ctx cancellation,
// finalize the audio, transcribe, write artifacts. A second Run while one is
// active fails with StateError. The returned Result is non-nil whenever a
// session actually started, even on abort.
func (c *Controller) Run(ctx context.Context, dev *audio.DeviceInfo) (*Result, error) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRecording)) {
		return nil, &StateError{Op: "start recording", State: c.State()}
	}
	log.StateChange(StateRecording.String())

	deviceName := "system default"
	if dev != nil {
		deviceName = dev.Name
	}

	// Arm Stop before the device opens so an early signal cannot be lost.
	c.stopMu.Lock()
	c.stopCh = make(chan struct{})
	c.stopOnce = &sync.Once{}
	stopCh := c.stopCh
	c.stopMu.Unlock()

	sess, err := New(c.outputRoot, deviceName, c.sampleRate, c.channels, time.Now())
	if err != nil {
		c.setState(StateAborted)
		return nil, err
	}
	res := &Result{Session: sess}

	rec, err := StartRecorder(c.audio, dev, sess)
	if err != nil {
		c.setState(StateAborted)
		return res, err
	}

	interrupted := false
	select {
	case <-stopCh:
	case <-ctx.Done():
		// An interruption during recording still runs the normal
		// finalization path; the container must never be left with a
		// provisional header.
		interrupted = true
	}

	c.setState(StateFinalizingAudio)
	finalizeErr := rec.Stop()
	if finalizeErr != nil {
		c.setState(StateAborted)
		return res, fmt.Errorf("finalizing audio: %w", finalizeErr)
	}
	res.AudioSaved = true
	if storageErr := rec.StorageErr(); storageErr != nil {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("disk fault during recording; audio is partial (%d frames dropped): %v",
				rec.Dropped(), storageErr))
	} else if dropped := rec.Dropped(); dropped > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d frames dropped during capture", dropped))
	}

	if interrupted {
		c.setState(StateAborted)
		return res, fmt.Errorf("session interrupted during recording: %w", ctx.Err())
	}

	if rec.Frames() == 0 {
		res.Warnings = append(res.Warnings, "no audio captured")
	}

	return c.process(ctx, res)
}

// ProcessFile runs the transcribe → artifacts half of the pipeline against
// an already-finalized recording.
func (c *Controller) ProcessFile(ctx context.Context, audioPath string) (*Result, error) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateTranscribing)) {
		return nil, &StateError{Op: "process file", State: c.State()}
	}
	log.StateChange(StateTranscribing.String())

	sess := ForExistingAudio(audioPath, time.Now())
	res := &Result{Session: sess, AudioSaved: true}
	return c.processFrom(ctx, res)
}

func (c *Controller) process(ctx context.Context, res *Result) (*Result, error) {
	c.setState(StateTranscribing)
	return c.processFrom(ctx, res)
}

func (c *Controller) processFrom(ctx context.Context, res *Result) (*Result, error) {
	sess := res.Session

	utterances, err := c.transcriber.Transcribe(ctx, sess.AudioPath)
	if err != nil {
		// The finalized audio stays on disk so transcription can be
		// retried later without re-recording.
		c.setState(StateAborted)
		return res, fmt.Errorf("audio saved at %s, transcription failed: %w", sess.AudioPath, err)
	}
	res.Utterances = utterances
	log.Transcribed(c.transcriber.Name(), len(utterances))

	c.setState(StateWritingArtifacts)
	meta := artifact.Meta{
		StartedAt: sess.StartedAt,
		Device:    sess.Device,
		AudioPath: sess.AudioPath,
	}
	if len(utterances) > 0 {
		last := utterances[len(utterances)-1]
		meta.Duration = time.Duration(last.End*1000) * time.Millisecond
	}

	if err := artifact.WriteTranscript(sess.TranscriptPath, meta, utterances); err != nil {
		c.setState(StateAborted)
		return res, fmt.Errorf("audio saved at %s, writing transcript failed: %w", sess.AudioPath, err)
	}
	res.TranscriptSaved = true
	log.ArtifactWritten("transcript", sess.TranscriptPath)

	// Summary failure degrades to transcript-only, never a session failure.
	if warn := c.writeSummary(ctx, sess, meta, utterances); warn != "" {
		res.Warnings = append(res.Warnings, warn)
	} else {
		res.SummarySaved = true
		log.ArtifactWritten("summary", sess.SummaryPath)
	}

	c.setState(StateDone)
	return res, nil
}

func (c *Controller) writeSummary(ctx context.Context, sess *Session, meta artifact.Meta,
	utterances []transcriber.Utterance) string {
	if c.summarizer == nil {
		return "no summarizer configured; transcript only"
	}
	summary, err := c.summarizer.Summarize(ctx, artifact.RenderTranscript(meta, utterances))
	if err != nil {
		return fmt.Sprintf("summary generation failed; transcript only: %v", err)
	}
	if err := artifact.WriteSummary(sess.SummaryPath, meta, summary); err != nil {
		return fmt.Sprintf("writing summary failed; transcript only: %v", err)
	}
	return ""
}
