// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Default controller limits.
const (
	DefaultMaxIterations = 4
	DefaultRunTimeout    = 5 * time.Minute
)

// Controller drives a session through the workflow state machine.
//
// One Run call owns one session for its whole lifetime; the controller
// itself holds no per-run state and is safe for concurrent Run calls.
type Controller struct {
	sm            *StateMachine
	planner       PlanningStage
	executor      ExecutionStage
	evaluator     EvaluationStage
	maxIterations int
	runTimeout    time.Duration
	logger        *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithMaxIterations sets the iteration budget. Values below zero are
// ignored; zero means a single planning round followed by forced synthesis.
func WithMaxIterations(n int) ControllerOption {
	return func(c *Controller) {
		if n >= 0 {
			c.maxIterations = n
		}
	}
}

// WithRunTimeout bounds the total wall-clock time of a run. Zero disables
// the controller-level deadline; callers may still cancel via ctx.
func WithRunTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.runTimeout = d
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a workflow controller over the three stages.
func NewController(planner PlanningStage, executor ExecutionStage, evaluator EvaluationStage, opts ...ControllerOption) *Controller {
	c := &Controller{
		sm:            NewStateMachine(),
		planner:       planner,
		executor:      executor,
		evaluator:     evaluator,
		maxIterations: DefaultMaxIterations,
		runTimeout:    DefaultRunTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the full workflow for one question.
//
// Description:
//
//	Drives the session PLAN → EXECUTE → EVALUATE, looping back to PLAN on
//	insufficient evidence until the iteration budget is spent, at which
//	point synthesis is forced. Cancellation and the run timeout are
//	checked at phase boundaries only; a phase in flight finishes or fails
//	on its own derived context. Every exit path yields a COMPLETE or
//	ERROR result carrying an Answer, so callers never see a partial
//	state.
//
// Inputs:
//
//	ctx - Caller context; cancellation aborts at the next boundary.
//	question - The natural-language analytical question.
//	priorContext - Opaque caller-supplied context, may be empty.
//
// Outputs:
//
//	RunResult - Terminal state, answer, and run accounting.
func (c *Controller) Run(ctx context.Context, question, priorContext string) RunResult {
	if c.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.runTimeout)
		defer cancel()
	}

	s := &Session{
		ID:            uuid.NewString(),
		Question:      question,
		PriorContext:  priorContext,
		State:         StateIdle,
		MaxIterations: c.maxIterations,
		StartedAt:     time.Now(),
	}

	logger := c.logger.With("run_id", s.ID)
	logger.Info("workflow run started", "max_iterations", c.maxIterations)

	if err := c.sm.Transition(s, StatePlan); err != nil {
		return c.fail(s, logger, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return c.fail(s, logger, fmt.Errorf("%w: %v", ErrRunTimeout, err))
			}
			return c.fail(s, logger, fmt.Errorf("run canceled: %w", err))
		}

		switch s.State {
		case StatePlan:
			if s.Iteration > s.MaxIterations {
				return c.fail(s, logger, fmt.Errorf("%w: iteration %d", ErrIterationOverflow, s.Iteration))
			}
			logger.Info("planning", "iteration", s.Iteration)
			if err := c.planner.Plan(ctx, s); err != nil {
				return c.fail(s, logger, fmt.Errorf("%w: %v", ErrPlanningFailed, err))
			}
			if err := c.sm.Transition(s, StateExecute); err != nil {
				return c.fail(s, logger, err)
			}

		case StateExecute:
			logger.Info("executing round", "iteration", s.Iteration, "candidates", len(s.Candidates))
			if err := c.executor.ExecuteRound(ctx, s); err != nil {
				return c.fail(s, logger, fmt.Errorf("%w: %v", ErrExecutionFailed, err))
			}
			if err := c.sm.Transition(s, StateEvaluate); err != nil {
				return c.fail(s, logger, err)
			}

		case StateEvaluate:
			forced := s.Iteration >= s.MaxIterations
			logger.Info("evaluating", "iteration", s.Iteration, "forced", forced)

			eval, err := c.evaluator.Evaluate(ctx, s, forced)
			if err != nil {
				return c.fail(s, logger, fmt.Errorf("%w: %v", ErrEvaluationFailed, err))
			}
			s.Evaluations++

			if eval.Sufficient || forced {
				s.Answer = eval.Answer
				if err := c.sm.Transition(s, StateComplete); err != nil {
					return c.fail(s, logger, err)
				}
				return c.buildResult(s, logger)
			}

			s.Feedback = eval.Feedback
			s.Iteration++
			if err := c.sm.Transition(s, StatePlan); err != nil {
				return c.fail(s, logger, err)
			}

		default:
			return c.fail(s, logger, fmt.Errorf("%w: loop reached %s", ErrInvalidTransition, s.State))
		}
	}
}

// fail moves the session to ERROR and builds an error-shaped result.
func (c *Controller) fail(s *Session, logger *slog.Logger, err error) RunResult {
	logger.Error("workflow run failed", "state", s.State, "iteration", s.Iteration, "error", err)

	if !s.State.IsTerminal() {
		s.State = StateError
	}
	s.Answer = &Answer{
		SimpleSummary:       "I was unable to complete the analysis.",
		KeyInsights:         []string{},
		DetailedExplanation: fmt.Sprintf("The analysis stopped before an answer could be produced: %v", err),
		ContextRelevance:    0.0,
		ReturnAnswer:        false,
	}
	return c.buildResult(s, logger)
}

// buildResult assembles the terminal RunResult from the session.
func (c *Controller) buildResult(s *Session, logger *slog.Logger) RunResult {
	answer := Answer{ReturnAnswer: false}
	if s.Answer != nil {
		answer = *s.Answer
	}

	result := RunResult{
		RunID:           s.ID,
		State:           s.State,
		Answer:          answer,
		Iterations:      s.Iteration,
		QueriesExecuted: len(s.AllResults),
		Duration:        time.Since(s.StartedAt),
	}

	logger.Info("workflow run finished",
		"state", s.State,
		"iterations", s.Iteration,
		"evaluations", s.Evaluations,
		"queries_executed", result.QueriesExecuted,
		"duration", result.Duration,
	)
	return result
}
