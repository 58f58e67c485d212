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
	"github.com/AleutianAI/PersonaInsight/services/insight/agent/classifier"
	"github.com/AleutianAI/PersonaInsight/services/insight/cache"
)

// forcedRelevanceCap discounts the model's relevance claim when the answer
// was forced out at the iteration budget.
const forcedRelevanceCap = 0.5

const budgetNote = "Note: the iteration budget was exhausted before the evidence was judged sufficient; this answer is based on the data gathered so far."

// Evaluating judges whether the gathered evidence answers the question and
// synthesizes the final answer.
type Evaluating struct {
	deps Dependencies
}

// NewEvaluating creates the evaluation stage.
func NewEvaluating(deps Dependencies) *Evaluating {
	return &Evaluating{deps: deps}
}

// Evaluate implements agent.EvaluationStage.
//
// Description:
//
//	Asks the model to either declare the evidence INSUFFICIENT with
//	feedback, or declare it SUFFICIENT and synthesize the answer
//	sections. A local clarification check runs on every synthesized
//	answer and overrides a claimed sufficiency: an answer that asks the
//	user a question is not an answer. In forced mode the model must
//	synthesize from whatever evidence exists; the relevance score is
//	discounted and the explanation notes the exhausted budget.
func (e *Evaluating) Evaluate(ctx context.Context, s *agent.Session, forced bool) (agent.Evaluation, error) {
	ctx, span := tracer.Start(ctx, "Evaluating.Evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("workflow.iteration", s.Iteration),
		attribute.Bool("evaluate.forced", forced),
	)

	if forced {
		return e.forcedSynthesis(ctx, s)
	}

	promptKey := cache.Key(fmt.Sprintf("evaluate|%s|%s", s.Question, s.Context))
	prompt := cachedPrompt(ctx, e.deps, promptKey, func() string {
		return e.buildPrompt(s)
	})
	response, err := generate(ctx, e.deps, prompt)
	if err != nil {
		return agent.Evaluation{}, fmt.Errorf("evaluation model call: %w", err)
	}

	if insufficient, feedback := parseSufficiency(response); insufficient {
		span.SetAttributes(attribute.Bool("evaluate.sufficient", false))
		return agent.Evaluation{Sufficient: false, Feedback: feedback}, nil
	}

	answer := ParseAnswer(response)
	if classifier.LooksLikeClarificationRequest(answer.SimpleSummary + " " + answer.DetailedExplanation) {
		e.deps.logger().Info("claimed sufficiency overridden, answer asks for clarification",
			"iteration", s.Iteration)
		span.SetAttributes(attribute.Bool("evaluate.clarification_override", true))
		return agent.Evaluation{
			Sufficient: false,
			Feedback:   "The draft answer asked the user for clarification. Gather more specific evidence and answer directly instead of asking questions.",
		}, nil
	}

	answer.ReturnAnswer = true
	span.SetAttributes(attribute.Bool("evaluate.sufficient", true))
	return agent.Evaluation{Sufficient: true, Answer: &answer}, nil
}

// forcedSynthesis demands a final answer from whatever evidence exists.
func (e *Evaluating) forcedSynthesis(ctx context.Context, s *agent.Session) (agent.Evaluation, error) {
	response, err := generate(ctx, e.deps, e.buildForcedPrompt(s))
	if err != nil {
		return agent.Evaluation{}, fmt.Errorf("forced synthesis model call: %w", err)
	}

	answer := ParseAnswer(response)
	if answer.ContextRelevance > forcedRelevanceCap {
		answer.ContextRelevance = forcedRelevanceCap
	}
	if answer.DetailedExplanation != "" {
		answer.DetailedExplanation += "\n\n" + budgetNote
	} else {
		answer.DetailedExplanation = budgetNote
	}
	answer.ReturnAnswer = true

	return agent.Evaluation{Sufficient: true, Answer: &answer}, nil
}

// buildPrompt assembles the sufficiency-judgment prompt.
func (e *Evaluating) buildPrompt(s *agent.Session) string {
	var b strings.Builder

	b.WriteString("You are evaluating whether gathered SQL evidence answers an analytical question.\n\n")
	fmt.Fprintf(&b, "QUESTION\n%s\n\n", s.Question)
	fmt.Fprintf(&b, "EVIDENCE\n%s\n\n", s.Context)

	b.WriteString("If the evidence does NOT answer the question, respond with exactly one line:\n")
	b.WriteString("INSUFFICIENT: <what specific data is still needed>\n\n")
	b.WriteString("If the evidence DOES answer the question, respond with:\n")
	b.WriteString(answerFormatInstructions)

	return b.String()
}

// buildForcedPrompt assembles the budget-exhausted synthesis prompt.
func (e *Evaluating) buildForcedPrompt(s *agent.Session) string {
	var b strings.Builder

	b.WriteString("Produce the best possible final answer from the evidence below. ")
	b.WriteString("You must answer now; do not ask for more data or clarification.\n\n")
	fmt.Fprintf(&b, "QUESTION\n%s\n\n", s.Question)
	fmt.Fprintf(&b, "EVIDENCE\n%s\n\n", s.Context)
	b.WriteString("Respond with:\n")
	b.WriteString(answerFormatInstructions)

	return b.String()
}

const answerFormatInstructions = `SUFFICIENT
SIMPLE SUMMARY: <one or two sentences a non-analyst can read>
KEY INSIGHTS:
- <insight>
- <insight>
DETAILED EXPLANATION: <the full reasoning grounded in the evidence>
CONTEXT RELEVANCE: <0.0 to 1.0, how well the evidence supports the answer>`

// parseSufficiency reports whether the response declares insufficiency and
// extracts the feedback text.
func parseSufficiency(response string) (insufficient bool, feedback string) {
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, "INSUFFICIENT") {
			feedback = strings.TrimSpace(strings.TrimPrefix(line[len("INSUFFICIENT"):], ":"))
			if feedback == "" {
				feedback = "The evidence gathered so far does not answer the question."
			}
			return true, feedback
		}
		// First meaningful line decides; anything else means the model
		// went straight to the answer sections.
		return false, ""
	}
	return true, "The evaluation response was empty."
}

var _ agent.EvaluationStage = (*Evaluating)(nil)
