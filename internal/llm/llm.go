package llm

import (
	"context"
	"errors"
)

// Client abstracts the generative-AI provider behind the two journal operations.
type Client interface {
	// AnalyzeEntry extracts the emotional state and key themes from raw journal text.
	AnalyzeEntry(ctx context.Context, content string) (Analysis, error)
	// GenerateCheckInQuestion produces a single open-ended follow-up question for
	// the given emotion and qualities.
	GenerateCheckInQuestion(ctx context.Context, emotion string, qualities []string) (string, error)
}

// Analysis is the structured result of analyzing one journal entry.
type Analysis struct {
	Emotion   string   `json:"emotion"`
	Qualities []string `json:"qualities"`
	Summary   string   `json:"summary,omitempty"`
}

var (
	// ErrMalformedAnalysis signals that the model output could not be parsed
	// into the required {emotion, qualities} shape.
	ErrMalformedAnalysis = errors.New("malformed analysis output")
	// ErrEmptyQuestion signals that the model returned a blank question.
	ErrEmptyQuestion = errors.New("empty question from model")
)
