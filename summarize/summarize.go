// Package summarize condenses a session transcript into a short markdown
// summary. Summary generation is best-effort: a failure here never fails a
// session that already has its transcript.
package summarize

import (
	"context"
	"fmt"
	"os"
)

// Summarizer turns a full transcript into a condensed markdown document.
type Summarizer interface {
	Name() string
	Summarize(ctx context.Context, transcript string) (string, error)
}

// New builds the OpenAI summarizer from the environment.
func New(model string, opts ...OpenAIOption) (Summarizer, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	return NewOpenAI(key, model, opts...)
}
