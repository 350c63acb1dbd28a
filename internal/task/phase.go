package task

import "time"

// State is the integer encoding of a phase in the status record
type State int

const (
	StatePending State = iota + 1
	StateStarted
	StateSuccess
	StateFailure
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateStarted:
		return "STARTED"
	case StateSuccess:
		return "SUCCESS"
	case StateFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Phase is one of Pending, Started, Succeeded or Failed.
// The set is closed: only this package can add implementations.
type Phase interface {
	State() State
	phase()
}

// Pending means the job was accepted but no worker has picked it up yet
type Pending struct{}

// Started means a worker is running the conversion
type Started struct {
	PID         int
	HeartbeatAt time.Time
}

// Succeeded carries the id of the dataset the job created
type Succeeded struct {
	DataSetID int64
}

// Failed carries the message reported to the client
type Failed struct {
	Message string
}

func (Pending) State() State   { return StatePending }
func (Started) State() State   { return StateStarted }
func (Succeeded) State() State { return StateSuccess }
func (Failed) State() State    { return StateFailure }

func (Pending) phase()   {}
func (Started) phase()   {}
func (Succeeded) phase() {}
func (Failed) phase()    {}

// IsTerminal reports whether p ends the job
func IsTerminal(p Phase) bool {
	switch p.(type) {
	case Succeeded, Failed:
		return true
	default:
		return false
	}
}
