package task

import "errors"

var (
	// ErrTaskNotFound covers absent records, records owned by someone else
	// and terminal results that were already delivered
	ErrTaskNotFound = errors.New("task not found")

	// ErrUnknownPhase is returned for a state code or Phase value outside the four known phases
	ErrUnknownPhase = errors.New("unknown task phase")
)

// ValidationError rejects a launch request before any state is created
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
