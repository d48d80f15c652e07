package analysis

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/ai"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/documents"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

type SummaryInput struct {
	NoticeID uuid.UUID `json:"notice_id" validate:"required"`
}

const (
	summarySentences = 3
	maxSummaryChars  = 1200
	maxKeyPoints     = 6
)

// Model output is stored and later rendered, so it is reduced to plain text.
var summaryPolicy = bluemonday.StrictPolicy()

type SummaryGenerator struct {
	notices NoticeStore
	ai      ai.Invoker
}

func NewSummaryGenerator(notices NoticeStore, invoker ai.Invoker) *SummaryGenerator {
	return &SummaryGenerator{notices: notices, ai: invoker}
}

func (g *SummaryGenerator) Summarize(ctx context.Context, in SummaryInput) (*models.NoticeSummary, error) {
	notice, err := loadNotice(ctx, g.notices, in.NoticeID)
	if err != nil {
		return nil, err
	}

	summary, err := g.summarizeWithAI(ctx, notice)
	if err != nil {
		log.Printf("[SummaryGenerator] AI unavailable for notice %s, using heuristics: %v", notice.ID, err)
		summary = SummarizeFallback(notice)
	}
	summary.NoticeID = notice.ID

	text := summary.Summary
	if err := g.notices.UpdateNotice(ctx, notice.ID, models.NoticePatch{Summary: &text}); err != nil {
		return nil, fmt.Errorf("persist summary: %w", err)
	}
	return summary, nil
}

type summaryPayload struct {
	Summary   string   `json:"summary" validate:"required"`
	KeyPoints []string `json:"key_points"`
}

const summarySchema = `{"summary": "string", "key_points": ["string"]}`

func (g *SummaryGenerator) summarizeWithAI(ctx context.Context, n *models.Notice) (*models.NoticeSummary, error) {
	if g.ai == nil {
		return nil, ai.ErrInvocationFailed
	}

	prompt := "Resuma em até 3 frases, em português, a licitação abaixo e liste seus pontos-chave.\n\n" +
		noticeFacts(n) + "\nDescrição: " + documents.TruncateText(documents.HTMLToText(n.Description), aiTextLimit)
	inv, err := g.ai.Invoke(ctx, prompt, summarySchema)
	if err != nil {
		return nil, err
	}
	var p summaryPayload
	if err := inv.Decode(&p); err != nil {
		return nil, err
	}

	text := sanitizeSummary(p.Summary)
	if text == "" {
		return nil, &ai.InvocationError{Stage: ai.StageEmpty, Err: fmt.Errorf("summary empty after sanitizing")}
	}
	out := &models.NoticeSummary{Summary: text, KeyPoints: []string{}, Source: models.SourceAI}
	for _, kp := range p.KeyPoints {
		if kp = sanitizeSummary(kp); kp != "" && len(out.KeyPoints) < maxKeyPoints {
			out.KeyPoints = append(out.KeyPoints, kp)
		}
	}
	return out, nil
}

// SummarizeFallback uses the opening sentences of the description followed by
// the notice's key facts.
func SummarizeFallback(n *models.Notice) *models.NoticeSummary {
	points := keyPoints(n)

	lead := leadingSentences(documents.HTMLToText(n.Description), summarySentences)
	if lead == "" {
		lead = strings.TrimSpace(n.Title)
	}
	parts := []string{}
	if lead != "" {
		parts = append(parts, lead)
	}
	if len(points) > 0 {
		parts = append(parts, strings.Join(points, ". ")+".")
	}

	return &models.NoticeSummary{
		Summary:   documents.TruncateText(strings.Join(parts, " "), maxSummaryChars),
		KeyPoints: points,
		Source:    models.SourceHeuristic,
	}
}

func keyPoints(n *models.Notice) []string {
	points := []string{}
	if n.Organ != "" {
		points = append(points, "Órgão: "+n.Organ)
	}
	if n.Modality != "" {
		points = append(points, "Modalidade: "+n.Modality)
	}
	if n.EstimatedValue > 0 {
		points = append(points, "Valor estimado: "+FormatBRL(n.EstimatedValue))
	}
	if n.SubmissionDeadline != nil {
		points = append(points, "Prazo para propostas: "+FormatBRDate(*n.SubmissionDeadline))
	}
	return points
}

func noticeFacts(n *models.Notice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Título: %s\n", n.Title)
	for _, p := range keyPoints(n) {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.String()
}

func sanitizeSummary(s string) string {
	s = html.UnescapeString(summaryPolicy.Sanitize(s))
	return documents.TruncateText(strings.Join(strings.Fields(s), " "), maxSummaryChars)
}
