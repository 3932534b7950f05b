package transcriber

import "context"

// Fake is a Transcriber for tests and offline runs.
type Fake struct {
	Utterances []Utterance
	Err        error

	// Calls records the audio paths passed to Transcribe.
	Calls []string
}

func NewFake(utterances []Utterance, err error) *Fake {
	return &Fake{Utterances: utterances, Err: err}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Transcribe(ctx context.Context, audioPath string) ([]Utterance, error) {
	f.Calls = append(f.Calls, audioPath)
	if err := ctx.Err(); err != nil {
		return nil, &TranscriptionError{Attempts: 1, Err: err}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Utterances, nil
}
