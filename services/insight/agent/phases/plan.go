// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package phases

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/PersonaInsight/services/insight/agent"
	"github.com/AleutianAI/PersonaInsight/services/insight/cache"
	"github.com/AleutianAI/PersonaInsight/services/insight/safety"
)

// Planning generates a plan and candidate SQL statements for the current
// iteration.
type Planning struct {
	deps Dependencies
}

// NewPlanning creates the planning stage.
func NewPlanning(deps Dependencies) *Planning {
	return &Planning{deps: deps}
}

// Plan implements agent.PlanningStage.
//
// Description:
//
//	Builds the iteration's prompt (question, prior context, schema
//	grounding, and on later iterations the accumulated evidence plus the
//	last evaluation feedback), runs it through the cached model call, and
//	parses the response into a plan and up to MaxCandidates statements.
//	Each statement is validated independently; rejected candidates stay
//	on the session with their reasons. Zero extractable candidates is a
//	valid outcome.
func (p *Planning) Plan(ctx context.Context, s *agent.Session) error {
	ctx, span := tracer.Start(ctx, "Planning.Plan")
	defer span.End()
	span.SetAttributes(attribute.Int("workflow.iteration", s.Iteration))

	promptKey := cache.Key(fmt.Sprintf("plan|%d|%s|%s|%s|%s",
		s.Iteration, s.Question, s.PriorContext, s.Context, s.Feedback))
	prompt := cachedPrompt(ctx, p.deps, promptKey, func() string {
		return p.buildPrompt(ctx, s)
	})
	response, err := generate(ctx, p.deps, prompt)
	if err != nil {
		return fmt.Errorf("planning model call: %w", err)
	}

	planText, statements := ParsePlanningOutput(response, p.deps.maxCandidates())
	s.PlanText = planText
	s.Candidates = validateCandidates(statements)

	accepted := 0
	for _, c := range s.Candidates {
		if c.Accepted {
			accepted++
		}
	}
	span.SetAttributes(
		attribute.Int("plan.candidates", len(s.Candidates)),
		attribute.Int("plan.accepted", accepted),
	)
	p.deps.logger().Debug("planning round parsed",
		"iteration", s.Iteration,
		"candidates", len(s.Candidates),
		"accepted", accepted,
	)
	return nil
}

// buildPrompt assembles the planning prompt for the session's iteration.
func (p *Planning) buildPrompt(ctx context.Context, s *agent.Session) string {
	var b strings.Builder

	b.WriteString("You are planning read-only SQL analysis against a persona analytics database.\n\n")

	if schema := schemaText(ctx, p.deps); schema != "" {
		b.WriteString(schema)
		b.WriteString("\n\n")
	}

	if s.PriorContext != "" {
		b.WriteString("PRIOR CONTEXT\n")
		b.WriteString(s.PriorContext)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "QUESTION\n%s\n\n", s.Question)

	if s.Iteration > 0 {
		b.WriteString("RESULTS SO FAR\n")
		b.WriteString(s.Context)
		b.WriteString("\n\n")
		if s.Feedback != "" {
			fmt.Fprintf(&b, "WHAT IS STILL MISSING\n%s\n\n", s.Feedback)
		}
	}

	fmt.Fprintf(&b,
		"Respond in exactly this format:\n"+
			"PLAN:\n<your reasoning about what data is needed>\n"+
			"QUERIES:\n<up to %d SELECT statements, each ending with a semicolon>\n\n"+
			"Only SELECT statements are allowed. Do not modify data.",
		p.deps.maxCandidates(),
	)

	return b.String()
}

// validateCandidates runs each extracted statement through the safety
// validator, preserving candidate order.
func validateCandidates(statements []string) []agent.SQLQuery {
	candidates := make([]agent.SQLQuery, 0, len(statements))
	for _, text := range statements {
		verdict := safety.Validate(text)
		if verdict.Accepted {
			candidates = append(candidates, agent.SQLQuery{
				Text:       text,
				Normalized: verdict.Normalized,
				Accepted:   true,
			})
		} else {
			candidates = append(candidates, agent.SQLQuery{
				Text:         text,
				Accepted:     false,
				RejectReason: verdict.Reason,
			})
		}
	}
	return candidates
}

var _ agent.PlanningStage = (*Planning)(nil)
