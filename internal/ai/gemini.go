package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type GeminiModel struct {
	client     *genai.Client
	httpClient *http.Client
	modelName  string
}

// NewGeminiModel builds a Gemini backend. baseURL is optional and points the
// client at another endpoint; timeout bounds every request when positive.
func NewGeminiModel(ctx context.Context, apiKey, baseURL, modelName string, timeout time.Duration) (*GeminiModel, error) {
	httpClient := &http.Client{}
	if timeout > 0 {
		httpClient.Timeout = timeout
	}
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiModel{client: client, httpClient: httpClient, modelName: modelName}, nil
}

func (g *GeminiModel) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	system, rest := splitSystem(messages)

	prompt := system
	for _, m := range rest {
		if prompt != "" {
			prompt += "\n\n"
		}
		prompt += m.Content
	}

	temperature := opts.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(opts.MaxTokens),
	}
	if opts.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}
