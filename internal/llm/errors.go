package llm

import (
	"errors"
)

// ErrGeneration matches every GenerationError and TransportError via errors.Is.
var ErrGeneration = errors.New("generation failed")

// ErrNotConfigured is returned when no Gemini client could be built (usually a missing API key).
var ErrNotConfigured = errors.New("gemini client not configured (set GEMINI_API_KEY)")

const (
	opText  = "generate poster text"
	opImage = "generate poster image"
)

// GenerationError means the endpoint answered but gave no usable payload:
// unparseable or incomplete text, or no inline image part.
type GenerationError struct {
	Op     string
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	msg := e.Op + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// TransportError wraps a failure of the underlying SDK call (network, auth, quota).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": request failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrGeneration }
