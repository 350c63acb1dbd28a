package task

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the status of one job as kept in the store
type Record struct {
	Owner int64
	Phase Phase
}

type wireRecord struct {
	User        int64   `json:"user"`
	State       State   `json:"state"`
	PID         int     `json:"pid,omitempty"`
	HeartbeatAt int64   `json:"heartbeat_at,omitempty"`
	DataSetID   int64   `json:"data_set_id,omitempty"`
	Message     *string `json:"message,omitempty"`
}

// MarshalJSON encodes the record with the keys user, state and the phase's own fields
func (r Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{User: r.Owner}

	switch p := r.Phase.(type) {
	case Pending:
		w.State = StatePending
	case Started:
		w.State = StateStarted
		w.PID = p.PID
		w.HeartbeatAt = p.HeartbeatAt.Unix()
	case Succeeded:
		w.State = StateSuccess
		w.DataSetID = p.DataSetID
	case Failed:
		w.State = StateFailure
		msg := p.Message
		w.Message = &msg
	default:
		return nil, fmt.Errorf("failed to encode record: %w", ErrUnknownPhase)
	}

	return json.Marshal(w)
}

// UnmarshalJSON decodes a record; an unknown state yields ErrUnknownPhase
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var phase Phase
	switch w.State {
	case StatePending:
		phase = Pending{}
	case StateStarted:
		phase = Started{PID: w.PID, HeartbeatAt: time.Unix(w.HeartbeatAt, 0)}
	case StateSuccess:
		phase = Succeeded{DataSetID: w.DataSetID}
	case StateFailure:
		var msg string
		if w.Message != nil {
			msg = *w.Message
		}
		phase = Failed{Message: msg}
	default:
		return fmt.Errorf("state %d: %w", w.State, ErrUnknownPhase)
	}

	r.Owner = w.User
	r.Phase = phase
	return nil
}
