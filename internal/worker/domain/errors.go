package domain

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidPayload is returned when a queue message is not a usable job
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrNoOutput is returned when the converter exits cleanly without writing a JSON file
	ErrNoOutput = errors.New("converter produced no output")
)

// ConversionError is a failure reported by the external converter.
// Message is what the client sees on the FAILURE record.
type ConversionError struct {
	Message string
	Err     error
}

func (e *ConversionError) Error() string {
	return "conversion failed: " + e.Message
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// NewConversionError derives the client message from the tool's stderr, falling back to err
func NewConversionError(stderr []byte, err error) *ConversionError {
	msg := lastLine(string(stderr))
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &ConversionError{Message: msg, Err: err}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
