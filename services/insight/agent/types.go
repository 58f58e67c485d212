// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agent implements the bounded-iteration workflow controller that
// turns a natural-language analytical question into a structured answer by
// looping through planning, execution, and evaluation stages.
package agent

import (
	"context"
	"time"

	"github.com/AleutianAI/PersonaInsight/services/insight/store"
)

// State identifies a workflow state.
type State string

// Workflow states.
const (
	StateIdle     State = "IDLE"
	StatePlan     State = "PLAN"
	StateExecute  State = "EXECUTE"
	StateEvaluate State = "EVALUATE"
	StateComplete State = "COMPLETE"
	StateError    State = "ERROR"
)

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether the state ends a run.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateError
}

// AllStates returns every workflow state.
func AllStates() []State {
	return []State{
		StateIdle, StatePlan, StateExecute, StateEvaluate, StateComplete, StateError,
	}
}

// SQLQuery is one candidate statement from the planning stage, carrying its
// validation verdict.
type SQLQuery struct {
	// Text is the statement as extracted from the model response.
	Text string `json:"text"`

	// Normalized is the validated form actually executed. Empty when the
	// candidate was rejected.
	Normalized string `json:"normalized,omitempty"`

	// Accepted reports whether the safety validator passed the statement.
	Accepted bool `json:"accepted"`

	// RejectReason explains a rejection.
	RejectReason string `json:"reject_reason,omitempty"`
}

// Answer is the structured result synthesized by the evaluation stage.
//
// Failure paths produce Answer values too, with ReturnAnswer=false and the
// explanation carrying the failure text, so the API surface always speaks
// one shape.
type Answer struct {
	SimpleSummary       string   `json:"simple_summary"`
	KeyInsights         []string `json:"key_insights"`
	DetailedExplanation string   `json:"detailed_explanation"`

	// ContextRelevance is the model's judgment of how well the evidence
	// supports the answer, clamped to [0, 1].
	ContextRelevance float64 `json:"context_relevance"`

	// ReturnAnswer is false for error-shaped answers and clarification
	// situations where the summary should not be presented as a result.
	ReturnAnswer bool `json:"return_answer"`
}

// Session is the mutable state of one workflow run. A session is owned by
// exactly one controller run and discarded afterwards; it is not safe for
// concurrent use and never shared between runs.
type Session struct {
	ID            string
	Question      string
	PriorContext  string
	State         State
	Iteration     int
	MaxIterations int

	// PlanText is the reasoning text from the latest planning round.
	PlanText string

	// Candidates are the latest round's statements with verdicts.
	Candidates []SQLQuery

	// RoundResults are the latest round's execution results in candidate
	// order; AllResults accumulates every executed result across rounds.
	RoundResults []store.QueryResult
	AllResults   []store.QueryResult

	// Context is the accumulated evidence text fed to later prompts.
	Context string

	// Feedback is the evaluation stage's explanation of what is missing,
	// consumed by the next planning round.
	Feedback string

	// Evaluations counts evaluation decisions; it never exceeds
	// MaxIterations+1.
	Evaluations int

	Answer    *Answer
	StartedAt time.Time
}

// Evaluation is the outcome of one evaluation decision.
type Evaluation struct {
	// Sufficient is true when the evidence supports a final answer.
	Sufficient bool

	// Feedback describes what is missing when insufficient.
	Feedback string

	// Answer is set when Sufficient, and always set in forced mode.
	Answer *Answer
}

// PlanningStage produces a plan and candidate statements for the current
// iteration, mutating the session.
type PlanningStage interface {
	Plan(ctx context.Context, s *Session) error
}

// ExecutionStage runs the session's accepted candidates and folds the
// results into the session context.
type ExecutionStage interface {
	ExecuteRound(ctx context.Context, s *Session) error
}

// EvaluationStage judges sufficiency and synthesizes the answer. In forced
// mode it must return an answer regardless of sufficiency.
type EvaluationStage interface {
	Evaluate(ctx context.Context, s *Session, forced bool) (Evaluation, error)
}

// RunResult is what a finished run reports across the API boundary. Only
// COMPLETE and ERROR states appear here.
type RunResult struct {
	RunID           string        `json:"run_id"`
	State           State         `json:"state"`
	Answer          Answer        `json:"answer"`
	Iterations      int           `json:"iterations"`
	QueriesExecuted int           `json:"queries_executed"`
	Duration        time.Duration `json:"duration"`
}
