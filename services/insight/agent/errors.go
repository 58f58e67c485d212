// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import "errors"

// Sentinel errors for the workflow controller.
var (
	// ErrInvalidTransition indicates an attempted state transition that the
	// state machine does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrPlanningFailed indicates the planning stage failed unrecoverably.
	ErrPlanningFailed = errors.New("planning stage failed")

	// ErrExecutionFailed indicates the execution stage failed as a whole.
	// Individual statement failures are results, not errors.
	ErrExecutionFailed = errors.New("execution stage failed")

	// ErrEvaluationFailed indicates the evaluation stage failed
	// unrecoverably, including forced mode.
	ErrEvaluationFailed = errors.New("evaluation stage failed")

	// ErrRunTimeout indicates the overall run deadline elapsed at a phase
	// boundary.
	ErrRunTimeout = errors.New("workflow run timed out")

	// ErrIterationOverflow indicates the controller attempted to start an
	// iteration beyond the configured maximum. This is a controller bug
	// guard, not an expected runtime condition.
	ErrIterationOverflow = errors.New("iteration exceeded configured maximum")
)
