package analysis

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/ai"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

type ProposalInput struct {
	NoticeID            uuid.UUID                   `json:"notice_id" validate:"required"`
	CompanyProfile      *models.CompanyProfile      `json:"company_profile"`
	HistoricalProposals []models.HistoricalProposal `json:"historical_proposals" validate:"omitempty,dive"`
	Competitors         []models.Competitor         `json:"competitors" validate:"omitempty,dive"`
}

const (
	organHistoryLimit   = 5
	organValueThreshold = 1.5
	organValuePenalty   = -10
	similarNoticeLimit  = 3

	factorAboveOrganAverage = "Valor acima da média histórica"
)

// ProposalInsightGenerator advises a company on whether and how to bid.
type ProposalInsightGenerator struct {
	notices   NoticeStore
	artifacts ArtifactStore
	ai        ai.Invoker
	embedder  ai.Embedder
	similar   SimilarNoticeFinder
	now       func() time.Time
}

func NewProposalInsightGenerator(notices NoticeStore, artifacts ArtifactStore, invoker ai.Invoker, now func() time.Time) *ProposalInsightGenerator {
	if now == nil {
		now = time.Now
	}
	return &ProposalInsightGenerator{notices: notices, artifacts: artifacts, ai: invoker, now: now}
}

// WithSimilarity enables nearest-notice context for prompts.
func (g *ProposalInsightGenerator) WithSimilarity(embedder ai.Embedder, finder SimilarNoticeFinder) *ProposalInsightGenerator {
	g.embedder = embedder
	g.similar = finder
	return g
}

func (g *ProposalInsightGenerator) Generate(ctx context.Context, in ProposalInput) (*models.ProposalInsights, error) {
	notice, err := loadNotice(ctx, g.notices, in.NoticeID)
	if err != nil {
		return nil, err
	}
	company := in.CompanyProfile
	if company == nil {
		company = &models.CompanyProfile{}
	}
	now := g.now()

	similar := g.similarNotices(ctx, notice)
	fallback := GenerateProposalFallback(notice, in, now)

	insights, err := g.generateWithAI(ctx, notice, in, similar, now)
	if err != nil {
		log.Printf("[ProposalInsights] AI unavailable for notice %s, using heuristics: %v", notice.ID, err)
		insights = fallback
	} else {
		fillProposalGaps(insights, fallback)
	}

	g.applyOrganAdjustment(ctx, notice, insights)

	insights.NoticeID = notice.ID
	insights.CompanyName = company.Name
	insights.RiskAnalysis = notice.RiskAnalysis
	insights.SimilarNotices = similar
	insights.WinProbability.Score = Clamp(insights.WinProbability.Score, 0, 100)
	sortRecommendations(insights.Recommendations)
	if insights.Source == models.SourceAI {
		insights.Confidence = 75
	} else {
		insights.Confidence = confidenceFromInputs(in)
	}
	insights.GeneratedAt = now.UTC()

	if g.artifacts != nil {
		if err := g.artifacts.SaveProposalInsights(ctx, insights); err != nil {
			log.Printf("[ProposalInsights] Failed to save insights for %s: %v", notice.ID, err)
		}
	}
	return insights, nil
}

// applyOrganAdjustment compares the notice value with recent notices of the
// same organ. A lookup failure skips the step.
func (g *ProposalInsightGenerator) applyOrganAdjustment(ctx context.Context, n *models.Notice, insights *models.ProposalInsights) {
	if n.Organ == "" || n.EstimatedValue <= 0 {
		return
	}
	history, err := g.notices.ListNoticesByOrgan(ctx, n.Organ, n.ID, organHistoryLimit)
	if err != nil {
		log.Printf("[ProposalInsights] Organ history unavailable for %q: %v", n.Organ, err)
		return
	}

	var total float64
	count := 0
	for _, h := range history {
		if h.EstimatedValue > 0 {
			total += h.EstimatedValue
			count++
		}
	}
	if count == 0 {
		return
	}
	avg := total / float64(count)
	if n.EstimatedValue <= organValueThreshold*avg {
		return
	}

	insights.WinProbability.Score = Clamp(insights.WinProbability.Score+organValuePenalty, 0, 100)
	insights.WinProbability.Factors = append(insights.WinProbability.Factors, models.WinFactor{
		Factor: factorAboveOrganAverage,
		Weight: organValuePenalty,
		Impact: models.ImpactNegative,
		Description: fmt.Sprintf("Valor estimado de %s supera em mais de 50%% a média de %s das últimas %d licitações do órgão",
			FormatBRL(n.EstimatedValue), FormatBRL(avg), count),
	})
}

func (g *ProposalInsightGenerator) similarNotices(ctx context.Context, n *models.Notice) []models.SimilarNotice {
	if g.embedder == nil || g.similar == nil {
		return nil
	}
	vec, err := g.embedder.GenerateEmbedding(ctx, n.Title+"\n"+n.Description)
	if err != nil {
		log.Printf("[ProposalInsights] Embedding failed for %s: %v", n.ID, err)
		return nil
	}
	if err := g.similar.SetNoticeEmbedding(ctx, n.ID, vec); err != nil {
		log.Printf("[ProposalInsights] Failed to store embedding for %s: %v", n.ID, err)
	}
	similar, err := g.similar.ListSimilarNotices(ctx, vec, n.ID, similarNoticeLimit)
	if err != nil {
		log.Printf("[ProposalInsights] Similar notice search failed for %s: %v", n.ID, err)
		return nil
	}
	return similar
}

type proposalPayload struct {
	WinProbability struct {
		Score   *ai.FlexibleInt `json:"score" validate:"required"`
		Factors []struct {
			Factor      string         `json:"factor"`
			Weight      ai.LooseInt    `json:"weight"`
			Impact      string         `json:"impact"`
			Description string         `json:"description"`
		} `json:"factors"`
		ConfidenceLevel string `json:"confidence_level"`
	} `json:"win_probability"`
	PricingStrategy struct {
		Approach   string `json:"approach"`
		PriceRange struct {
			Min     ai.LooseFloat `json:"min"`
			Optimal ai.LooseFloat `json:"optimal"`
			Max     ai.LooseFloat `json:"max"`
		} `json:"price_range"`
		Rationale string `json:"rationale"`
	} `json:"pricing_strategy"`
	TechnicalStrategy   models.TechnicalStrategy `json:"technical_strategy"`
	ComplianceChecklist []models.ComplianceItem  `json:"compliance_checklist"`
	TimelineStrategy    []struct {
		Milestone string `json:"milestone"`
		Date      string `json:"date"`
	} `json:"timeline_strategy"`
	ResourceRequirements struct {
		TeamSize        ai.LooseInt   `json:"team_size"`
		Roles           []string      `json:"roles"`
		EstimatedBudget ai.LooseFloat `json:"estimated_budget"`
	} `json:"resource_requirements"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

const proposalSchema = `{
  "win_probability": {"score": 0-100, "factors": [{"factor": "string", "weight": -20..20, "impact": "positivo|negativo|neutro", "description": "string"}], "confidence_level": "baixa|média|alta"},
  "pricing_strategy": {"approach": "agressiva|competitiva|valor", "price_range": {"min": 0, "optimal": 0, "max": 0}, "rationale": "string"},
  "technical_strategy": {"strengths": ["string"], "differentiators": ["string"], "risk_mitigation": ["string"]},
  "compliance_checklist": [{"requirement": "string", "status": "ok|pendente|verificar", "notes": "string"}],
  "timeline_strategy": [{"milestone": "string", "date": "DD/MM/AAAA"}],
  "resource_requirements": {"team_size": 0, "roles": ["string"], "estimated_budget": 0},
  "recommendations": [{"priority": "alta|média|baixa", "category": "string", "action": "string"}]
}`

func (g *ProposalInsightGenerator) generateWithAI(ctx context.Context, n *models.Notice, in ProposalInput, similar []models.SimilarNotice, now time.Time) (*models.ProposalInsights, error) {
	if g.ai == nil {
		return nil, ai.ErrInvocationFailed
	}

	inv, err := g.ai.Invoke(ctx, proposalPrompt(n, in, similar), proposalSchema)
	if err != nil {
		return nil, err
	}
	var p proposalPayload
	if err := inv.Decode(&p); err != nil {
		return nil, err
	}

	out := &models.ProposalInsights{
		WinProbability: models.WinProbability{
			Score:           int(*p.WinProbability.Score),
			ConfidenceLevel: normalizeConfidenceLevel(p.WinProbability.ConfidenceLevel),
		},
		PricingStrategy: models.PricingStrategy{
			Approach: models.PricingApproach(foldAccents(p.PricingStrategy.Approach)),
			PriceRange: models.PriceRange{
				Min:     roundMoney(float64(p.PricingStrategy.PriceRange.Min)),
				Optimal: roundMoney(float64(p.PricingStrategy.PriceRange.Optimal)),
				Max:     roundMoney(float64(p.PricingStrategy.PriceRange.Max)),
			},
			Rationale: p.PricingStrategy.Rationale,
		},
		TechnicalStrategy:   p.TechnicalStrategy,
		ComplianceChecklist: p.ComplianceChecklist,
		ResourceRequirements: models.ResourceRequirements{
			TeamSize:        int(p.ResourceRequirements.TeamSize),
			Roles:           p.ResourceRequirements.Roles,
			EstimatedBudget: roundMoney(float64(p.ResourceRequirements.EstimatedBudget)),
		},
		Source: models.SourceAI,
	}

	for _, f := range p.WinProbability.Factors {
		if strings.TrimSpace(f.Factor) == "" {
			continue
		}
		weight := int(f.Weight)
		out.WinProbability.Factors = append(out.WinProbability.Factors, models.WinFactor{
			Factor:      f.Factor,
			Weight:      weight,
			Impact:      impactForSign(f.Impact, weight),
			Description: f.Description,
		})
	}
	for _, m := range p.TimelineStrategy {
		date, ok := normalizeDate(m.Date)
		if !ok || strings.TrimSpace(m.Milestone) == "" {
			continue
		}
		t, _ := ParseBRDate(date)
		out.TimelineStrategy = append(out.TimelineStrategy, models.TimelineMilestone{Milestone: m.Milestone, Date: t})
	}
	for _, r := range p.Recommendations {
		if strings.TrimSpace(r.Action) == "" {
			continue
		}
		r.Priority = normalizePriority(r.Priority)
		out.Recommendations = append(out.Recommendations, r)
	}
	return out, nil
}

func proposalPrompt(n *models.Notice, in ProposalInput, similar []models.SimilarNotice) string {
	var b strings.Builder
	b.WriteString("Gere insights para a elaboração de uma proposta na licitação abaixo.\n\n")
	fmt.Fprintf(&b, "Título: %s\nÓrgão: %s\nModalidade: %s\nValor estimado: %s\n", n.Title, n.Organ, n.Modality, FormatBRL(n.EstimatedValue))
	if n.SubmissionDeadline != nil {
		fmt.Fprintf(&b, "Prazo de entrega: %s\n", FormatBRDate(*n.SubmissionDeadline))
	}
	if n.Description != "" {
		fmt.Fprintf(&b, "Descrição: %s\n", n.Description)
	}
	if n.Summary != nil && *n.Summary != "" {
		fmt.Fprintf(&b, "Resumo: %s\n", *n.Summary)
	}
	if n.RiskAnalysis != nil {
		fmt.Fprintf(&b, "Risco previamente avaliado: %s (%d/100)\n", n.RiskAnalysis.RiskLevel, n.RiskAnalysis.RiskScore)
		for _, f := range n.RiskAnalysis.RiskFactors {
			fmt.Fprintf(&b, "- %s: %s\n", f.Factor, f.Description)
		}
	}

	if c := in.CompanyProfile; c != nil {
		fmt.Fprintf(&b, "\nEmpresa: %s\n", c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, "Descrição da empresa: %s\n", c.Description)
		}
		fmt.Fprintf(&b, "Anos de experiência: %d\nFuncionários: %d\n", c.ExperienceYears, c.Employees)
		if len(c.Sectors) > 0 {
			fmt.Fprintf(&b, "Setores: %s\n", strings.Join(c.Sectors, ", "))
		}
		if len(c.Certifications) > 0 {
			fmt.Fprintf(&b, "Certificações: %s\n", strings.Join(c.Certifications, ", "))
		}
	}
	if len(in.HistoricalProposals) > 0 {
		b.WriteString("\nHistórico de propostas:\n")
		for _, h := range in.HistoricalProposals {
			result := "perdida"
			if h.Won {
				result = "vencida"
			}
			fmt.Fprintf(&b, "- %d, %s, %s, %s\n", h.Year, h.Organ, FormatBRL(h.Value), result)
		}
	}
	if len(in.Competitors) > 0 {
		b.WriteString("\nConcorrentes conhecidos:\n")
		for _, c := range in.Competitors {
			fmt.Fprintf(&b, "- %s (taxa de vitória %.0f%%): %s\n", c.Name, c.WinRate, strings.Join(c.Strengths, ", "))
		}
	}
	if len(similar) > 0 {
		b.WriteString("\nLicitações semelhantes:\n")
		for _, s := range similar {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", s.Title, s.Organ, FormatBRL(s.EstimatedValue))
		}
	}
	return b.String()
}

// fillProposalGaps completes an AI result with the heuristic sections it lacks.
func fillProposalGaps(out, fb *models.ProposalInsights) {
	if len(out.WinProbability.Factors) == 0 {
		out.WinProbability.Factors = fb.WinProbability.Factors
	}
	if out.WinProbability.ConfidenceLevel == "" {
		out.WinProbability.ConfidenceLevel = fb.WinProbability.ConfidenceLevel
	}

	switch out.PricingStrategy.Approach {
	case models.PricingAggressive, models.PricingCompetitive, models.PricingValue:
	default:
		out.PricingStrategy.Approach = fb.PricingStrategy.Approach
	}
	pr := out.PricingStrategy.PriceRange
	if pr.Min <= 0 || pr.Optimal < pr.Min || pr.Max < pr.Optimal {
		out.PricingStrategy.PriceRange = fb.PricingStrategy.PriceRange
	}
	if out.PricingStrategy.Rationale == "" {
		out.PricingStrategy.Rationale = fb.PricingStrategy.Rationale
	}

	ts := &out.TechnicalStrategy
	if len(ts.Strengths) == 0 {
		ts.Strengths = fb.TechnicalStrategy.Strengths
	}
	if len(ts.Differentiators) == 0 {
		ts.Differentiators = fb.TechnicalStrategy.Differentiators
	}
	if len(ts.RiskMitigation) == 0 {
		ts.RiskMitigation = fb.TechnicalStrategy.RiskMitigation
	}
	if len(out.ComplianceChecklist) == 0 {
		out.ComplianceChecklist = fb.ComplianceChecklist
	}
	if len(out.TimelineStrategy) == 0 {
		out.TimelineStrategy = fb.TimelineStrategy
	}

	rr := &out.ResourceRequirements
	if rr.TeamSize <= 0 {
		rr.TeamSize = fb.ResourceRequirements.TeamSize
	}
	if len(rr.Roles) == 0 {
		rr.Roles = fb.ResourceRequirements.Roles
	}
	if rr.EstimatedBudget <= 0 {
		rr.EstimatedBudget = fb.ResourceRequirements.EstimatedBudget
	}
	if len(out.Recommendations) == 0 {
		out.Recommendations = fb.Recommendations
	}
}

var priorityRank = map[string]int{"alta": 0, "média": 1, "baixa": 2}

func sortRecommendations(recs []models.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})
}

func normalizePriority(p string) string {
	switch foldAccents(p) {
	case "alta", "high", "critica":
		return "alta"
	case "baixa", "low":
		return "baixa"
	default:
		return "média"
	}
}

func normalizeConfidenceLevel(s string) string {
	switch foldAccents(s) {
	case "alta", "high":
		return "alta"
	case "media", "medium":
		return "média"
	case "baixa", "low":
		return "baixa"
	}
	return ""
}

func impactForSign(label string, weight int) models.FactorImpact {
	switch foldAccents(label) {
	case "positivo", "positive":
		return models.ImpactPositive
	case "negativo", "negative":
		return models.ImpactNegative
	}
	switch {
	case weight > 0:
		return models.ImpactPositive
	case weight < 0:
		return models.ImpactNegative
	default:
		return models.ImpactNeutral
	}
}

func confidenceFromInputs(in ProposalInput) int {
	confidence := 40
	if in.CompanyProfile != nil {
		confidence += 15
	}
	if len(in.HistoricalProposals) > 0 {
		confidence += 15
	}
	if len(in.Competitors) > 0 {
		confidence += 10
	}
	return confidence
}
