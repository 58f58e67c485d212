// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package phases

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/PersonaInsight/services/insight/agent"
	"github.com/AleutianAI/PersonaInsight/services/insight/store"
)

// Execution runs a round's accepted candidates against the store.
type Execution struct {
	deps Dependencies
}

// NewExecution creates the execution stage.
func NewExecution(deps Dependencies) *Execution {
	return &Execution{deps: deps}
}

// ExecuteRound implements agent.ExecutionStage.
//
// Description:
//
//	Accepted candidates run concurrently; rejected candidates contribute a
//	failure result carrying their rejection reason so the evaluation model
//	sees why a statement never ran. Round results stay in candidate order
//	regardless of completion order, then fold into the session context.
//	A round with zero candidates is a no-op that still advances the loop.
func (x *Execution) ExecuteRound(ctx context.Context, s *agent.Session) error {
	ctx, span := tracer.Start(ctx, "Execution.ExecuteRound")
	defer span.End()
	span.SetAttributes(
		attribute.Int("workflow.iteration", s.Iteration),
		attribute.Int("round.candidates", len(s.Candidates)),
	)

	if len(s.Candidates) == 0 {
		s.RoundResults = nil
		x.deps.logger().Debug("round has no candidates", "iteration", s.Iteration)
		return nil
	}

	// Collect accepted statements with their candidate positions.
	var statements []string
	var positions []int
	for i, c := range s.Candidates {
		if c.Accepted {
			statements = append(statements, c.Normalized)
			positions = append(positions, i)
		}
	}

	executed := x.deps.Executor.ExecuteAll(ctx, statements)

	round := make([]store.QueryResult, len(s.Candidates))
	for i, c := range s.Candidates {
		if !c.Accepted {
			round[i] = store.QueryResult{
				Query:   c.Text,
				Success: false,
				Error:   "rejected before execution: " + c.RejectReason,
			}
		}
	}
	for j, pos := range positions {
		round[pos] = executed[j]
	}

	s.RoundResults = round
	s.AllResults = append(s.AllResults, round...)
	s.Context = x.deps.Accumulator.Fold(s.Context, s.Iteration, round)

	span.SetAttributes(attribute.Int("round.executed", len(statements)))
	return nil
}

var _ agent.ExecutionStage = (*Execution)(nil)
