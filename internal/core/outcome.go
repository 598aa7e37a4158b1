package core

import "fmt"

// State is the phase of the current submission cycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "idle"
	}
}

// MarshalText lets State serialise as its name in JSON and YAML.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "loading":
		*s = StateLoading
	case "success":
		*s = StateSuccess
	case "failure":
		*s = StateFailure
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

// Outcome is the tagged RequestOutcome variant. Result is only set for
// StateSuccess and Message only for StateFailure.
type Outcome struct {
	State   State                `json:"state"`
	Result  ClassificationResult `json:"predictions,omitempty"`
	Message string               `json:"error,omitempty"`
}

// IdleOutcome is the state before any submission in the current cycle.
func IdleOutcome() Outcome { return Outcome{State: StateIdle} }

// LoadingOutcome marks a submission in flight.
func LoadingOutcome() Outcome { return Outcome{State: StateLoading} }

// SuccessOutcome carries the ranked result.
func SuccessOutcome(result ClassificationResult) Outcome {
	return Outcome{State: StateSuccess, Result: result}
}

// FailureOutcome carries the user-facing error text.
func FailureOutcome(message string) Outcome {
	return Outcome{State: StateFailure, Message: message}
}

func (o Outcome) IsIdle() bool    { return o.State == StateIdle }
func (o Outcome) IsLoading() bool { return o.State == StateLoading }
func (o Outcome) IsSuccess() bool { return o.State == StateSuccess }
func (o Outcome) IsFailure() bool { return o.State == StateFailure }
