package embeddings

import (
	"context"
	"os"
	"strings"
)

// Provider defines a simple embeddings provider interface.
// Implementations must be concurrency-safe.
type Provider interface {
	// Name returns the provider name (e.g., "openai", "ollama").
	Name() string
	// Dimensions returns the embedding dimensionality this provider produces.
	Dimensions() int
	// Embed returns one embedding per input string.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// NewFromEnv constructs a provider based on environment variables.
// EMBEDDINGS_PROVIDER: "openai", "ollama", or empty for disabled.
func NewFromEnv() Provider {
	return NewNamed(os.Getenv("EMBEDDINGS_PROVIDER"))
}

// NewNamed constructs a provider by name, or nil for an unknown or empty
// name. Provider credentials still come from the environment.
func NewNamed(name string) Provider {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return newOpenAIFromEnv()
	case "ollama":
		return newOllamaFromEnv()
	default:
		return nil
	}
}
