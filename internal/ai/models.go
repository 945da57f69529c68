package ai

import (
	"context"
	"time"
)

// SightingFact is the structured fact set handed to the language model:
// one line of evidence about where an object was last seen.
type SightingFact struct {
	Label      string
	Zone       string
	Timestamp  time.Time
	Confidence float64
	Count      int
}

// LanguageModel is the external LLM collaborator boundary. Implementations
// are best effort: callers degrade to templated answers when the model is
// unavailable or erroring.
type LanguageModel interface {
	IsAvailable(ctx context.Context) bool
	AnswerObjectQuestion(ctx context.Context, question string, facts []SightingFact) (string, error)
}
