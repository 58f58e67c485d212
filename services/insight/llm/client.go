// Package llm defines the language-model collaborator used by the planning
// and evaluation stages, plus the OpenAI-backed implementation.
package llm

import "context"

// GenerationParams are optional decoding parameters. Nil fields use the
// provider's defaults.
type GenerationParams struct {
	Temperature *float32
	MaxTokens   *int
	TopP        *float32
	Stop        []string
}

// Client generates text from a prompt. Implementations must honor ctx
// cancellation and deadlines.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
