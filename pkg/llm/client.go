// Package llm defines the minimal synchronous LLM collaborator the PER
// controller, repair loop, and vector memory depend on. There is
// deliberately no streaming and no batch-embedding entry point: every
// embedding call corresponds to exactly one document, matching the
// original agent's one-call-per-document embedding behavior.
package llm

import "context"

// Client is implemented by whatever LLM provider the caller wires in.
// ikoma's core never talks to a provider SDK directly — it only depends on
// this interface, the same narrow-interface-per-collaborator shape hector
// uses for its reasoning package dependencies (LLMService, ToolService,
// ...).
type Client interface {
	// Generate produces a single completion for prompt. No streaming.
	Generate(ctx context.Context, prompt string) (string, error)

	// Embed returns the embedding vector for a single piece of text. There
	// is no batch variant: callers embed one document per call.
	Embed(ctx context.Context, text string) ([]float32, error)
}
