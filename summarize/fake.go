package summarize

import "context"

// Fake is a Summarizer for tests and offline runs.
type Fake struct {
	Summary string
	Err     error

	// Transcripts records what was passed to Summarize.
	Transcripts []string
}

func NewFake(summary string, err error) *Fake {
	return &Fake{Summary: summary, Err: err}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Summarize(_ context.Context, transcript string) (string, error) {
	f.Transcripts = append(f.Transcripts, transcript)
	if f.Err != nil {
		return "", f.Err
	}
	return f.Summary, nil
}
