// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package phases

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/PersonaInsight/services/insight/agent"
	insightctx "github.com/AleutianAI/PersonaInsight/services/insight/agent/context"
	"github.com/AleutianAI/PersonaInsight/services/insight/cache"
	"github.com/AleutianAI/PersonaInsight/services/insight/llm"
	"github.com/AleutianAI/PersonaInsight/services/insight/store"
)

// fakeLLM replays canned responses in call order.
type fakeLLM struct {
	responses []string
	prompts   []string
	err       error
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	i := len(f.prompts) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

// fakeQueryStore serves every statement one fixed row.
type fakeQueryStore struct{}

func (fakeQueryStore) Query(ctx context.Context, sql string) ([]string, [][]any, error) {
	return []string{"n"}, [][]any{{1}}, nil
}

func (fakeQueryStore) Ping(ctx context.Context) error { return nil }

func testDeps(model *fakeLLM) Dependencies {
	return Dependencies{
		LLM:         model,
		Caches:      cache.NewLayer(10, 10),
		Executor:    store.NewQueryExecutor(fakeQueryStore{}, time.Second, nil),
		Accumulator: insightctx.NewAccumulator(0),
	}
}

func TestPlanning_ValidatesCandidates(t *testing.T) {
	model := &fakeLLM{responses: []string{
		"PLAN:\nCount, then mutate.\nQUERIES:\nSELECT count(*) FROM personas;\nSELECT id, (DELETE FROM personas) FROM personas;",
	}}
	p := NewPlanning(testDeps(model))
	s := &agent.Session{Question: "how many personas?"}

	if err := p.Plan(context.Background(), s); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if s.PlanText == "" {
		t.Error("PlanText empty")
	}

	// The second statement extracts but carries a DELETE, so validation
	// must reject it while the first passes.
	var accepted, rejected int
	for _, c := range s.Candidates {
		if c.Accepted {
			accepted++
			if c.Normalized == "" {
				t.Errorf("accepted candidate without normalized text: %+v", c)
			}
		} else {
			rejected++
			if c.RejectReason == "" {
				t.Errorf("rejected candidate without reason: %+v", c)
			}
		}
	}
	if accepted < 1 || rejected < 1 {
		t.Errorf("accepted=%d rejected=%d, want both present (candidates %+v)", accepted, rejected, s.Candidates)
	}
}

func TestPlanning_LaterIterationCarriesFeedback(t *testing.T) {
	model := &fakeLLM{responses: []string{"PLAN:\nx\nQUERIES:\nSELECT 1;"}}
	p := NewPlanning(testDeps(model))
	s := &agent.Session{
		Question:  "q",
		Iteration: 1,
		Context:   "--- ITERATION 0 ---\nearlier evidence",
		Feedback:  "need per-region counts",
	}

	if err := p.Plan(context.Background(), s); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	prompt := model.prompts[0]
	if !strings.Contains(prompt, "earlier evidence") {
		t.Error("prompt missing accumulated evidence")
	}
	if !strings.Contains(prompt, "need per-region counts") {
		t.Error("prompt missing evaluation feedback")
	}
}

func TestPlanning_ResponseCacheHit(t *testing.T) {
	model := &fakeLLM{responses: []string{"PLAN:\nx\nQUERIES:\nSELECT 1;"}}
	deps := testDeps(model)
	p := NewPlanning(deps)

	s1 := &agent.Session{Question: "same question"}
	s2 := &agent.Session{Question: "same question"}
	if err := p.Plan(context.Background(), s1); err != nil {
		t.Fatal(err)
	}
	if err := p.Plan(context.Background(), s2); err != nil {
		t.Fatal(err)
	}

	if len(model.prompts) != 1 {
		t.Errorf("model called %d times, want 1 (second call should hit cache)", len(model.prompts))
	}
	if len(s2.Candidates) != 1 {
		t.Errorf("cached response not parsed: %+v", s2.Candidates)
	}
}

func TestPlanning_ModelFailure(t *testing.T) {
	model := &fakeLLM{err: errors.New("upstream 500")}
	p := NewPlanning(testDeps(model))

	if err := p.Plan(context.Background(), &agent.Session{Question: "q"}); err == nil {
		t.Fatal("Plan succeeded against failing model")
	}
}

func TestExecution_RoundKeepsCandidateOrder(t *testing.T) {
	x := NewExecution(testDeps(&fakeLLM{}))
	s := &agent.Session{
		Candidates: []agent.SQLQuery{
			{Text: "SELECT 1;", Normalized: "SELECT 1;", Accepted: true},
			{Text: "DROP TABLE t;", Accepted: false, RejectReason: "dangerous keyword 'DROP' detected"},
			{Text: "SELECT 2;", Normalized: "SELECT 2;", Accepted: true},
		},
	}

	if err := x.ExecuteRound(context.Background(), s); err != nil {
		t.Fatalf("ExecuteRound: %v", err)
	}
	if len(s.RoundResults) != 3 {
		t.Fatalf("RoundResults = %d, want 3", len(s.RoundResults))
	}
	if !s.RoundResults[0].Success || !s.RoundResults[2].Success {
		t.Error("accepted candidates did not execute")
	}
	if s.RoundResults[1].Success {
		t.Error("rejected candidate reported success")
	}
	if !strings.Contains(s.RoundResults[1].Error, "rejected before execution") {
		t.Errorf("rejection result error = %q", s.RoundResults[1].Error)
	}
	if !strings.Contains(s.Context, "ITERATION 0") {
		t.Error("results not folded into session context")
	}
	if len(s.AllResults) != 3 {
		t.Errorf("AllResults = %d, want 3", len(s.AllResults))
	}
}

func TestExecution_EmptyRound(t *testing.T) {
	x := NewExecution(testDeps(&fakeLLM{}))
	s := &agent.Session{Candidates: nil, Context: "prior"}

	if err := x.ExecuteRound(context.Background(), s); err != nil {
		t.Fatalf("ExecuteRound: %v", err)
	}
	if s.Context != "prior" {
		t.Errorf("empty round changed context: %q", s.Context)
	}
}

func TestEvaluating_Insufficient(t *testing.T) {
	model := &fakeLLM{responses: []string{"INSUFFICIENT: need counts per region"}}
	e := NewEvaluating(testDeps(model))

	eval, err := e.Evaluate(context.Background(), &agent.Session{Question: "q", Context: "evidence"}, false)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.Sufficient {
		t.Error("Sufficient = true")
	}
	if eval.Feedback != "need counts per region" {
		t.Errorf("Feedback = %q", eval.Feedback)
	}
}

func TestEvaluating_Sufficient(t *testing.T) {
	model := &fakeLLM{responses: []string{sampleAnswer}}
	e := NewEvaluating(testDeps(model))

	eval, err := e.Evaluate(context.Background(), &agent.Session{Question: "q", Context: "evidence"}, false)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !eval.Sufficient {
		t.Fatalf("Sufficient = false, feedback %q", eval.Feedback)
	}
	if eval.Answer == nil || !eval.Answer.ReturnAnswer {
		t.Fatalf("Answer = %+v", eval.Answer)
	}
	if eval.Answer.ContextRelevance != 0.9 {
		t.Errorf("ContextRelevance = %v", eval.Answer.ContextRelevance)
	}
}

func TestEvaluating_ClarificationOverride(t *testing.T) {
	model := &fakeLLM{responses: []string{
		"SUFFICIENT\nSIMPLE SUMMARY: Could you clarify which region you mean?\nCONTEXT RELEVANCE: 0.8",
	}}
	e := NewEvaluating(testDeps(model))

	eval, err := e.Evaluate(context.Background(), &agent.Session{Question: "q", Context: "evidence"}, false)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.Sufficient {
		t.Error("clarification-shaped answer passed as sufficient")
	}
	if eval.Feedback == "" {
		t.Error("override produced no feedback")
	}
}

func TestEvaluating_ForcedSynthesis(t *testing.T) {
	model := &fakeLLM{responses: []string{sampleAnswer}}
	e := NewEvaluating(testDeps(model))

	eval, err := e.Evaluate(context.Background(), &agent.Session{Question: "q", Context: "partial evidence"}, true)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !eval.Sufficient || eval.Answer == nil {
		t.Fatalf("forced mode did not produce an answer: %+v", eval)
	}
	if eval.Answer.ContextRelevance > forcedRelevanceCap {
		t.Errorf("ContextRelevance = %v, want capped at %v", eval.Answer.ContextRelevance, forcedRelevanceCap)
	}
	if !strings.Contains(eval.Answer.DetailedExplanation, "iteration budget") {
		t.Error("forced answer missing budget note")
	}
	if !strings.Contains(model.prompts[0], "do not ask for more data") {
		t.Error("forced prompt missing synthesis demand")
	}
}

func TestEvaluating_ModelFailure(t *testing.T) {
	model := &fakeLLM{err: errors.New("timeout")}
	e := NewEvaluating(testDeps(model))

	if _, err := e.Evaluate(context.Background(), &agent.Session{Question: "q"}, false); err == nil {
		t.Fatal("Evaluate succeeded against failing model")
	}
}
