package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxTemperature is the ceiling applied to every analysis request.
const MaxTemperature float32 = 0.4

// ErrInvocationFailed is matched by every error the adapter returns.
var ErrInvocationFailed = errors.New("ai invocation failed")

type Stage string

const (
	StageRequest Stage = "request"
	StageStatus  Stage = "status"
	StageEmpty   Stage = "empty"
	StageParse   Stage = "parse"
	StageSchema  Stage = "schema"
)

// InvocationError records where an invocation broke down. Callers are expected
// to treat all stages the same way.
type InvocationError struct {
	Stage Stage
	Err   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("ai invocation failed at %s: %v", e.Stage, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

func (e *InvocationError) Is(target error) bool { return target == ErrInvocationFailed }

// StatusError is returned by HTTP backends on a non-2xx reply.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s returned status %d", e.Provider, e.Code)
}

// Invoker is what the analyzers depend on.
type Invoker interface {
	Invoke(ctx context.Context, prompt, schemaHint string) (*Invocation, error)
}

// Invocation is a successful model reply with its JSON span already located.
type Invocation struct {
	Raw  string
	JSON string

	validate *validator.Validate
}

// Decode unmarshals the JSON span into v and checks its validate tags.
func (inv *Invocation) Decode(v any) error {
	if err := json.Unmarshal([]byte(inv.JSON), v); err != nil {
		return &InvocationError{Stage: StageParse, Err: err}
	}
	if inv.validate == nil {
		return nil
	}
	if err := inv.validate.Struct(v); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// v is not a struct; nothing to check.
			return nil
		}
		return &InvocationError{Stage: StageSchema, Err: err}
	}
	return nil
}

type Adapter struct {
	model    Model
	opts     Options
	validate *validator.Validate
}

// NewAdapter wraps model with the JSON-only contract. Temperature is capped at
// MaxTemperature.
func NewAdapter(model Model, opts Options) *Adapter {
	if model == nil {
		model = Disabled{}
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.3
	}
	if opts.Temperature > MaxTemperature {
		opts.Temperature = MaxTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	opts.JSONOutput = true
	return &Adapter{
		model:    model,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

const systemContract = `Você é um analista especialista em licitações públicas brasileiras.
Responda SOMENTE com um único objeto JSON válido, sem texto antes ou depois e sem blocos de código.
O JSON deve seguir exatamente este formato:
%s`

// Invoke sends a single request. There are no retries; any failure comes back
// as an *InvocationError.
func (a *Adapter) Invoke(ctx context.Context, prompt, schemaHint string) (*Invocation, error) {
	messages := []Message{
		{Role: RoleSystem, Content: fmt.Sprintf(systemContract, schemaHint)},
		{Role: RoleUser, Content: prompt},
	}

	raw, err := a.model.Complete(ctx, messages, a.opts)
	if err != nil {
		stage := StageRequest
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			stage = StageStatus
		}
		return nil, &InvocationError{Stage: stage, Err: err}
	}

	if strings.TrimSpace(raw) == "" {
		return nil, &InvocationError{Stage: StageEmpty, Err: errors.New("empty completion")}
	}

	span, ok := ExtractFirstJSONSpan(raw)
	if !ok {
		log.Printf("[AI] No JSON span in completion (%d chars)", len(raw))
		return nil, &InvocationError{Stage: StageParse, Err: errors.New("no JSON object in completion")}
	}
	if !json.Valid([]byte(span)) {
		return nil, &InvocationError{Stage: StageParse, Err: errors.New("malformed JSON in completion")}
	}

	return &Invocation{Raw: raw, JSON: span, validate: a.validate}, nil
}
