package journal

import "errors"

var (
	// ErrNotConfigured is returned by AI-dependent operations when no API
	// credential was supplied at startup.
	ErrNotConfigured = errors.New("AI gateway not configured")
	// ErrEmptyQueue is returned by an analysis pass with nothing to analyze.
	ErrEmptyQueue = errors.New("no journal entries to analyze")
	// ErrInsufficientData is returned by suggestion generation when no
	// analyzed entries exist yet.
	ErrInsufficientData = errors.New("no analyzed entries to generate suggestions from")
	// ErrPassInFlight is returned when a batch pass of the same kind is
	// already running.
	ErrPassInFlight = errors.New("a pass is already in flight")
	// ErrNotFound is returned when a suggestion or check-in id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyResponded is returned when dismissing a check-in that has
	// responses.
	ErrAlreadyResponded = errors.New("check-in already responded")
)
