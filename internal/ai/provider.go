package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ProviderConfig selects and configures a generation backend.
type ProviderConfig struct {
	Provider string // groq, openai, gemini, ollama, disabled
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewModel builds the backend named by cfg.Provider. A keyed provider without
// a key resolves to Disabled so the pipeline still runs on heuristics.
func NewModel(ctx context.Context, cfg ProviderConfig) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "disabled", "none":
		return Disabled{}, nil
	case "groq":
		if cfg.APIKey == "" {
			return Disabled{}, nil
		}
		return NewChatCompletionsModel(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case "openai":
		if cfg.APIKey == "" {
			return Disabled{}, nil
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return NewChatCompletionsModel(baseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case "gemini":
		if cfg.APIKey == "" {
			return Disabled{}, nil
		}
		return NewGeminiModel(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
	case "ollama":
		return NewOllamaClient(cfg.BaseURL, "", cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
