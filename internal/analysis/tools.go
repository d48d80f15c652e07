package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	ToolClassifyRisk     = "classify_risk"
	ToolExtractDocument  = "extract_document"
	ToolMonitorDeadlines = "monitor_deadlines"
	ToolProposalInsights = "generate_proposal_insights"
	ToolGenerateSummary  = "generate_summary"
)

type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var toolCatalog = []Tool{
	{ToolClassifyRisk, "Classifica o risco de participação em uma licitação (0-100, baixo a crítico)"},
	{ToolExtractDocument, "Extrai texto, tabelas, requisitos e informações-chave de um documento de licitação"},
	{ToolMonitorDeadlines, "Lista prazos próximos com urgência, checklist e eventos de calendário"},
	{ToolProposalInsights, "Gera probabilidade de vitória, estratégia de preço e recomendações para uma proposta"},
	{ToolGenerateSummary, "Resume uma licitação em poucas frases com seus pontos-chave"},
}

// Toolbox dispatches tool calls by name. Arguments are decoded and validated
// before any analyzer runs.
type Toolbox struct {
	risk      *RiskClassifier
	documents *DocumentExtractor
	deadlines *DeadlineMonitor
	proposals *ProposalInsightGenerator
	summaries *SummaryGenerator
	validate  *validator.Validate
}

func NewToolbox(risk *RiskClassifier, docs *DocumentExtractor, deadlines *DeadlineMonitor, proposals *ProposalInsightGenerator, summaries *SummaryGenerator) *Toolbox {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Toolbox{
		risk:      risk,
		documents: docs,
		deadlines: deadlines,
		proposals: proposals,
		summaries: summaries,
		validate:  v,
	}
}

// Tools lists the available tools in a stable order.
func (tb *Toolbox) Tools() []Tool {
	out := make([]Tool, len(toolCatalog))
	copy(out, toolCatalog)
	return out
}

// Invoke runs the named tool. extract_document returns its failed result
// alongside the error; every other tool returns a nil result on error.
func (tb *Toolbox) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolClassifyRisk:
		var in RiskInput
		if err := tb.decode(name, args, &in); err != nil {
			return nil, err
		}
		res, err := tb.risk.Classify(ctx, in)
		if err != nil {
			return nil, err
		}
		return res, nil

	case ToolExtractDocument:
		var in DocumentInput
		if err := tb.decode(name, args, &in); err != nil {
			return nil, err
		}
		res, err := tb.documents.Extract(ctx, in)
		if res == nil {
			return nil, err
		}
		return res, err

	case ToolMonitorDeadlines:
		var in DeadlineInput
		if err := tb.decode(name, args, &in); err != nil {
			return nil, err
		}
		res, err := tb.deadlines.Monitor(ctx, in)
		if err != nil {
			return nil, err
		}
		return res, nil

	case ToolProposalInsights:
		var in ProposalInput
		if err := tb.decode(name, args, &in); err != nil {
			return nil, err
		}
		res, err := tb.proposals.Generate(ctx, in)
		if err != nil {
			return nil, err
		}
		return res, nil

	case ToolGenerateSummary:
		var in SummaryInput
		if err := tb.decode(name, args, &in); err != nil {
			return nil, err
		}
		res, err := tb.summaries.Summarize(ctx, in)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
}

func (tb *Toolbox) decode(tool string, args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return &ValidationError{Tool: tool, Fields: []string{err.Error()}}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &ValidationError{Tool: tool, Fields: []string{describeDecodeError(err)}}
	}

	if err := tb.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate %s arguments: %w", tool, err)
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, describeFieldError(fe))
		}
		return &ValidationError{Tool: tool, Fields: fields}
	}
	return nil
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
	}
	return err.Error()
}

func describeFieldError(fe validator.FieldError) string {
	// Drop the Go struct name from "DeadlineInput.days_ahead".
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_without":
		return field + " is required when " + strings.ToLower(fe.Param()) + " is empty"
	case "url":
		return field + " must be a valid URL"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "min", "gte":
		return field + " must be at least " + fe.Param()
	case "max", "lte":
		return field + " must be at most " + fe.Param()
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
