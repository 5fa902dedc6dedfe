package visual

// attempt.go models the lifecycle of one visual generation attempt as an
// explicit state machine. The transition table is data, not scattered
// conditionals, so the loop's legal paths are enumerable and testable:
//
//	Pending → Generated → Validated
//	                    → Rejected → Retry (iterations left)
//	                                → Fallback (exhausted)
//	Pending → Rejected (generation call failed)
//	Retry behaves like Pending for the next attempt.

import "fmt"

// AttemptState is one state in the generation attempt lifecycle.
type AttemptState string

const (
	StatePending   AttemptState = "pending"
	StateGenerated AttemptState = "generated"
	StateValidated AttemptState = "validated"
	StateRejected  AttemptState = "rejected"
	StateRetry     AttemptState = "retry"
	StateFallback  AttemptState = "fallback"
)

// AttemptEvent triggers a state transition.
type AttemptEvent string

const (
	EventGenerated      AttemptEvent = "generated"
	EventGenerateFailed AttemptEvent = "generate_failed"
	EventAccepted       AttemptEvent = "accepted"
	EventRejected       AttemptEvent = "rejected"
	EventIterationsLeft AttemptEvent = "iterations_left"
	EventExhausted      AttemptEvent = "exhausted"
)

// transitions is the complete legal transition table.
var transitions = map[AttemptState]map[AttemptEvent]AttemptState{
	StatePending: {
		EventGenerated:      StateGenerated,
		EventGenerateFailed: StateRejected,
	},
	StateGenerated: {
		EventAccepted: StateValidated,
		EventRejected: StateRejected,
	},
	StateRejected: {
		EventIterationsLeft: StateRetry,
		EventExhausted:      StateFallback,
	},
	StateRetry: {
		EventGenerated:      StateGenerated,
		EventGenerateFailed: StateRejected,
	},
}

// Next returns the state reached from s on event ev. An event that is not
// legal in s is a programming error and returns it as such.
func (s AttemptState) Next(ev AttemptEvent) (AttemptState, error) {
	if next, ok := transitions[s][ev]; ok {
		return next, nil
	}
	return s, fmt.Errorf("illegal transition: %s on %s", s, ev)
}

// Terminal reports whether no further transition can leave s.
func (s AttemptState) Terminal() bool {
	return len(transitions[s]) == 0
}
