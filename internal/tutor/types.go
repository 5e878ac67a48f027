// Package tutor implements the per-turn orchestration at the heart of the
// tutoring service: one user message fans out into four independent model
// calls plus a fifth that depends on the tutor's reply, and the results merge
// into a single all-or-nothing aggregate.
package tutor

import (
	"errors"
	"fmt"
	"strings"
)

// TurnRequest is one user message plus the session parameters that shape the
// tutor's behaviour. It is consumed once per turn and never stored.
type TurnRequest struct {
	// UserInput is the learner's message, in the practice language (or an
	// attempt at it).
	UserInput string `json:"userInput"`

	// Language is the target practice language (e.g., "Spanish").
	Language string `json:"language"`

	// NativeLanguage is the learner's own language; explanations and the
	// reply translation are rendered in it.
	NativeLanguage string `json:"nativeLanguage"`

	// Level is the learner's proficiency (e.g., "beginner").
	Level string `json:"level"`

	// Topic is the conversation topic keeping the exchange on rails.
	Topic string `json:"topic"`
}

// Validate checks that every field required to start a turn is present.
// It runs before any model call is issued.
func (r TurnRequest) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"userInput", r.UserInput},
		{"language", r.Language},
		{"nativeLanguage", r.NativeLanguage},
		{"level", r.Level},
		{"topic", r.Topic},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// GrammarResult is the grammar-check verdict for the user's input.
type GrammarResult struct {
	// IsCorrect reports whether the input had no grammar errors.
	IsCorrect bool `json:"isCorrect"`

	// CorrectedText is the repaired input; when IsCorrect is true it echoes
	// the input unchanged.
	CorrectedText string `json:"correctedText"`

	// Explanation describes the errors and fixes, always in the learner's
	// native language.
	Explanation string `json:"explanation"`
}

// RefinementResult carries alternative phrasings of the user's input in the
// practice language. The prompt asks for at least three, but fewer is a
// tolerated degenerate case, not an error.
type RefinementResult struct {
	Suggestions []string `json:"suggestions"`
}

// CorrectionResult is the fully corrected user sentence, kept in the
// sentence's own language — never translated into the native language.
type CorrectionResult struct {
	CorrectedSentence string `json:"correctedSentence"`
}

// TranslationResult is the tutor reply rendered in the native language.
type TranslationResult struct {
	TranslatedText string `json:"translatedText"`
}

// TurnResponse is the merged aggregate of one turn's five model calls.
// Every field is populated whenever a turn succeeds; a partial aggregate is
// never surfaced.
type TurnResponse struct {
	TutorResponse string           `json:"tutorResponse"`
	Translation   string           `json:"translation"`
	Grammar       GrammarResult    `json:"grammar"`
	Refinement    RefinementResult `json:"refinement"`
	Correction    CorrectionResult `json:"correction"`
}

// SuggestionsRequest asks for replies the learner could say next, given the
// tutor's last message. Issued on explicit request only, never as part of a
// turn.
type SuggestionsRequest struct {
	TutorResponse string `json:"tutorResponse"`
	Language      string `json:"language"`
	Level         string `json:"level"`
	Topic         string `json:"topic"`
}

// Validate checks that every field required for a suggestion call is present.
func (r SuggestionsRequest) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"tutorResponse", r.TutorResponse},
		{"language", r.Language},
		{"level", r.Level},
		{"topic", r.Topic},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// SuggestionsResult carries the suggested replies, intended length three
// (prompted, not enforced).
type SuggestionsResult struct {
	Suggestions []string `json:"suggestions"`
}

// ErrInvalidInput marks requests rejected before any model call was issued.
var ErrInvalidInput = errors.New("tutor: invalid input")

// TurnError is the single structured failure value crossing the orchestration
// boundary. It carries the failing operation and internal cause for logs while
// exposing only a generic retry-able message to end users.
type TurnError struct {
	// Op names the requester that failed ("conversation", "grammar",
	// "refinement", "correction", "translation", "suggestions").
	Op string

	// RequestID correlates the failure with server logs.
	RequestID string

	// Err is the internal cause. Never shown to end users.
	Err error
}

// Error implements the error interface.
func (e *TurnError) Error() string {
	return fmt.Sprintf("tutor: turn %s: %s: %v", e.RequestID, e.Op, e.Err)
}

// Unwrap exposes the internal cause for errors.Is/As.
func (e *TurnError) Unwrap() error {
	return e.Err
}

// UserMessage is the generic message safe to show to the learner.
func (e *TurnError) UserMessage() string {
	if e.Op == "suggestions" {
		return "Failed to get suggestions. Please try again."
	}
	return "Failed to get response from AI. Please try again."
}
