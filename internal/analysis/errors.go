package analysis

import (
	"errors"
	"fmt"

	"rxguardian/internal/extract"
)

// ErrEmptyInput is returned for blank prescription text.
var ErrEmptyInput = errors.New("Invalid or empty prescription text provided")

// Kind classifies why an analysis could not be produced.
type Kind int

const (
	KindInput Kind = iota
	KindRateLimit
	KindUpstream
	KindEmptyResponse
	KindExtraction
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindRateLimit:
		return "rate_limit"
	case KindUpstream:
		return "upstream"
	case KindEmptyResponse:
		return "empty_response"
	case KindExtraction:
		return "extraction"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a failed analysis. Callers outside the package only ever see it
// rendered into a record through Reasoning.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("analysis: %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Reasoning is the user-visible message placed in the failure record.
func (e *Error) Reasoning() string {
	switch e.Kind {
	case KindInput:
		return ErrEmptyInput.Error()
	case KindRateLimit:
		return "Rate limit exceeded: " + e.Err.Error()
	case KindUpstream:
		return "Error communicating with AI model: " + e.Err.Error()
	case KindEmptyResponse:
		return "Received an invalid response from the AI model"
	case KindExtraction:
		if errors.Is(e.Err, extract.ErrNoJSON) {
			return extract.ErrNoJSON.Error()
		}
		return extract.ErrUnparseable.Error()
	default:
		return "Error analyzing prescription: " + e.Err.Error()
	}
}

// MedicationName is the name the failure record is filed under.
func (e *Error) MedicationName() string {
	if e.Kind == KindRateLimit {
		return "Rate Limit"
	}
	return "Error"
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
