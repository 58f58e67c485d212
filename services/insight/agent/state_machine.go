// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"fmt"
	"sync"
)

// StateMachine manages valid state transitions for the workflow loop.
//
// The state machine enforces the following transition graph:
//
//	IDLE → PLAN          : Question received
//	PLAN → EXECUTE       : Candidates produced (possibly zero)
//	EXECUTE → EVALUATE   : Round executed
//	EVALUATE → PLAN      : Evidence insufficient, iteration remains
//	EVALUATE → COMPLETE  : Evidence sufficient or synthesis forced
//	* → ERROR            : Any non-terminal state on unrecoverable failure
//
// Thread Safety:
//
//	StateMachine is safe for concurrent use.
type StateMachine struct {
	mu sync.RWMutex

	// transitions maps (from, to) pairs that are valid.
	transitions map[State]map[State]bool
}

// NewStateMachine creates a state machine with all valid transitions.
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[State]map[State]bool),
	}

	for _, state := range AllStates() {
		sm.transitions[state] = make(map[State]bool)
	}

	sm.addTransition(StateIdle, StatePlan)
	sm.addTransition(StatePlan, StateExecute)
	sm.addTransition(StateExecute, StateEvaluate)
	sm.addTransition(StateEvaluate, StatePlan)
	sm.addTransition(StateEvaluate, StateComplete)

	// Any non-terminal state can fail.
	for _, state := range AllStates() {
		if !state.IsTerminal() {
			sm.addTransition(state, StateError)
		}
	}

	return sm
}

// addTransition registers a valid transition.
func (sm *StateMachine) addTransition(from, to State) {
	sm.transitions[from][to] = true
}

// CanTransition checks if a transition from one state to another is valid.
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) CanTransition(from, to State) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if toMap, ok := sm.transitions[from]; ok {
		return toMap[to]
	}
	return false
}

// Transition moves the session to the target state.
//
// Outputs:
//
//	error - ErrInvalidTransition if the transition is not allowed.
//
// Thread Safety: This method is safe for concurrent use; the session
// itself is owned by the calling run.
func (sm *StateMachine) Transition(s *Session, to State) error {
	if !sm.CanTransition(s.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, to)
	}
	s.State = to
	return nil
}

// ValidTransitionsFrom returns all valid target states from a given state.
func (sm *StateMachine) ValidTransitionsFrom(from State) []State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var result []State
	if toMap, ok := sm.transitions[from]; ok {
		for state, valid := range toMap {
			if valid {
				result = append(result, state)
			}
		}
	}
	return result
}
