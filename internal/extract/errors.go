package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrNoJSON is returned when no fenced block or brace span can be located.
	ErrNoJSON = errors.New("Could not find JSON in AI response")

	// ErrUnparseable is returned when every parse strategy rejects the located candidate.
	ErrUnparseable = errors.New("Could not parse the AI response as valid JSON")
)

// ParseError reports which strategies were tried on a candidate and why each failed.
type ParseError struct {
	Candidate string
	Attempts  []AttemptError
}

// AttemptError is the failure of a single parse strategy.
type AttemptError struct {
	Strategy string
	Err      error
}

func (e *ParseError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrUnparseable.Error()
	}
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("%s (%d attempts, last %s: %v)", ErrUnparseable, len(e.Attempts), last.Strategy, last.Err)
}

// Unwrap lets errors.Is match ErrUnparseable.
func (e *ParseError) Unwrap() error {
	return ErrUnparseable
}
