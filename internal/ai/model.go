package ai

import (
	"context"
	"errors"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options are per-request generation settings. Zero values mean backend defaults.
type Options struct {
	Temperature float32
	MaxTokens   int
	JSONOutput  bool
}

// Model is a single-shot text completion backend.
type Model interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

var errDisabled = errors.New("ai provider disabled")

// Disabled is the Model used when no provider is configured. Every call fails,
// so callers always take their heuristic path.
type Disabled struct{}

func (Disabled) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	return "", errDisabled
}

// splitSystem separates system messages from the conversation for backends
// that take the instruction out of band.
func splitSystem(messages []Message) (system string, rest []Message) {
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
