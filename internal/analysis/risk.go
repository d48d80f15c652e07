package analysis

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/ai"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

type RiskInput struct {
	NoticeID       uuid.UUID `json:"notice_id" validate:"required"`
	CompanyProfile string    `json:"company_profile"`
}

// RiskClassifier scores how risky it is to pursue a notice.
type RiskClassifier struct {
	notices NoticeStore
	ai      ai.Invoker
	now     func() time.Time
}

func NewRiskClassifier(notices NoticeStore, invoker ai.Invoker, now func() time.Time) *RiskClassifier {
	if now == nil {
		now = time.Now
	}
	return &RiskClassifier{notices: notices, ai: invoker, now: now}
}

func (c *RiskClassifier) Classify(ctx context.Context, in RiskInput) (*models.RiskAnalysis, error) {
	notice, err := loadNotice(ctx, c.notices, in.NoticeID)
	if err != nil {
		return nil, err
	}

	analysis, err := c.classifyWithAI(ctx, notice, in.CompanyProfile)
	if err != nil {
		log.Printf("[RiskClassifier] AI unavailable for notice %s, using heuristics: %v", notice.ID, err)
		analysis = ClassifyRiskFallback(notice, c.now())
	}
	validateAndEnrich(analysis, notice)

	level, score := analysis.RiskLevel, analysis.RiskScore
	patch := models.NoticePatch{RiskLevel: &level, RiskScore: &score, RiskAnalysis: analysis}
	if err := c.notices.UpdateNotice(ctx, notice.ID, patch); err != nil {
		return nil, fmt.Errorf("persist risk analysis: %w", err)
	}

	log.Printf("[RiskClassifier] Notice %s scored %d (%s, %s)", notice.ID, score, level, analysis.Source)
	return analysis, nil
}

type riskPayload struct {
	RiskScore   *ai.FlexibleFloat `json:"risk_score" validate:"required"`
	RiskFactors []struct {
		Category    string `json:"category"`
		Factor      string `json:"factor"`
		Impact      string `json:"impact"`
		Description string `json:"description"`
	} `json:"risk_factors"`
	Recommendations     []string `json:"recommendations"`
	CompetitiveAnalysis struct {
		EstimatedCompetitors ai.LooseInt `json:"estimated_competitors"`
		MarketDifficulty     string      `json:"market_difficulty"`
		SuccessProbability   ai.LooseInt `json:"success_probability"`
	} `json:"competitive_analysis"`
	FinancialAnalysis struct {
		EstimatedCost        ai.LooseFloat `json:"estimated_cost"`
		ProfitMarginEstimate ai.LooseFloat `json:"profit_margin_estimate"`
		ROIProjection        ai.LooseFloat `json:"roi_projection"`
	} `json:"financial_analysis"`
}

const riskSchema = `{
  "risk_score": 0-100,
  "risk_factors": [{"category": "string", "factor": "string", "impact": "baixo|médio|alto", "description": "string"}],
  "recommendations": ["string"],
  "competitive_analysis": {"estimated_competitors": 0, "market_difficulty": "baixa|média|alta", "success_probability": 0-100},
  "financial_analysis": {"estimated_cost": 0, "profit_margin_estimate": 0, "roi_projection": 0}
}`

func (c *RiskClassifier) classifyWithAI(ctx context.Context, n *models.Notice, companyProfile string) (*models.RiskAnalysis, error) {
	if c.ai == nil {
		return nil, ai.ErrInvocationFailed
	}

	inv, err := c.ai.Invoke(ctx, riskPrompt(n, companyProfile), riskSchema)
	if err != nil {
		return nil, err
	}
	var p riskPayload
	if err := inv.Decode(&p); err != nil {
		return nil, err
	}

	a := &models.RiskAnalysis{
		NoticeID:        n.ID,
		RiskScore:       int(math.Round(float64(*p.RiskScore))),
		Recommendations: p.Recommendations,
		CompetitiveAnalysis: models.CompetitiveAnalysis{
			EstimatedCompetitors: int(p.CompetitiveAnalysis.EstimatedCompetitors),
			MarketDifficulty:     models.Difficulty(foldDifficulty(p.CompetitiveAnalysis.MarketDifficulty)),
			SuccessProbability:   int(p.CompetitiveAnalysis.SuccessProbability),
		},
		FinancialAnalysis: models.FinancialAnalysis{
			EstimatedCost:        float64(p.FinancialAnalysis.EstimatedCost),
			ProfitMarginEstimate: float64(p.FinancialAnalysis.ProfitMarginEstimate),
			ROIProjection:        float64(p.FinancialAnalysis.ROIProjection),
		},
		Source: models.SourceAI,
	}
	for _, f := range p.RiskFactors {
		a.RiskFactors = append(a.RiskFactors, models.RiskFactor{
			Category:    f.Category,
			Factor:      f.Factor,
			Impact:      models.Impact(foldImpact(f.Impact)),
			Description: f.Description,
		})
	}
	return a, nil
}

func riskPrompt(n *models.Notice, companyProfile string) string {
	var b strings.Builder
	b.WriteString("Analise o risco de participação na licitação abaixo.\n\n")
	fmt.Fprintf(&b, "Título: %s\n", n.Title)
	fmt.Fprintf(&b, "Órgão: %s\n", n.Organ)
	fmt.Fprintf(&b, "Modalidade: %s\n", n.Modality)
	fmt.Fprintf(&b, "Valor estimado: %s\n", FormatBRL(n.EstimatedValue))
	if n.OpeningDate != nil {
		fmt.Fprintf(&b, "Data de abertura: %s\n", FormatBRDate(*n.OpeningDate))
	}
	if n.SubmissionDeadline != nil {
		fmt.Fprintf(&b, "Prazo de entrega das propostas: %s\n", FormatBRDate(*n.SubmissionDeadline))
	}
	if n.Description != "" {
		fmt.Fprintf(&b, "Descrição: %s\n", n.Description)
	}
	if strings.TrimSpace(companyProfile) != "" {
		fmt.Fprintf(&b, "\nPerfil da empresa: %s\n", companyProfile)
	}
	b.WriteString("\nConsidere prazo, valor, modalidade, exigências de habilitação e concorrência. ")
	b.WriteString("O risk_score vai de 0 (nenhum risco) a 100 (risco extremo).")
	return b.String()
}

type riskFacts struct {
	DaysToDeadline *int
	Value          float64
	Modality       string
}

var riskRules = RuleSet[riskFacts]{
	Base: 30,
	Rules: []Rule[riskFacts]{
		{
			Name:        "short_deadline",
			Category:    "prazo",
			Factor:      "Prazo muito curto",
			Description: "Menos de 7 dias até o prazo de entrega das propostas",
			Weight:      25,
			Predicate:   func(f riskFacts) bool { return f.DaysToDeadline != nil && *f.DaysToDeadline < 7 },
		},
		{
			Name:        "high_value",
			Category:    "financeiro",
			Factor:      "Alto valor",
			Description: "Valor estimado acima de R$ 1.000.000,00",
			Weight:      20,
			Predicate:   func(f riskFacts) bool { return f.Value > 1_000_000 },
		},
		{
			Name:        "open_competition",
			Category:    "competitivo",
			Factor:      "Concorrência pública",
			Description: "Modalidade aberta a ampla participação de concorrentes",
			Weight:      15,
			Predicate:   func(f riskFacts) bool { return isConcorrencia(f.Modality) },
		},
	},
}

var riskRuleRecommendations = map[string]string{
	"short_deadline":   "Priorizar imediatamente a preparação da documentação de habilitação e da proposta",
	"high_value":       "Verificar capacidade financeira, garantias e qualificação econômico-financeira exigidas",
	"open_competition": "Levantar preços de referência e concorrentes habituais do órgão",
}

// isConcorrencia matches "Concorrência", "Concorrência Eletrônica", "concorrencia"
// and similar spellings.
func isConcorrencia(modality string) bool {
	return strings.HasPrefix(foldAccents(modality), "concorrencia")
}

// ClassifyRiskFallback is the deterministic risk heuristic. It never fails.
func ClassifyRiskFallback(n *models.Notice, now time.Time) *models.RiskAnalysis {
	facts := riskFacts{Value: n.EstimatedValue, Modality: n.Modality}
	if n.SubmissionDeadline != nil {
		days := DaysUntil(now, *n.SubmissionDeadline)
		facts.DaysToDeadline = &days
	}

	outcome := riskRules.Evaluate(facts)

	a := &models.RiskAnalysis{
		NoticeID:  n.ID,
		RiskScore: outcome.Score,
		Source:    models.SourceHeuristic,
	}
	for _, r := range outcome.Matched {
		a.RiskFactors = append(a.RiskFactors, models.RiskFactor{
			Category:    r.Category,
			Factor:      r.Factor,
			Impact:      impactForWeight(r.Weight),
			Description: r.Description,
		})
		a.Recommendations = append(a.Recommendations, riskRuleRecommendations[r.Name])
	}
	return a
}

// validateAndEnrich clamps the score, derives the level from it and fills
// every missing sub-field with a default so both paths share one shape.
func validateAndEnrich(a *models.RiskAnalysis, n *models.Notice) {
	a.NoticeID = n.ID
	a.RiskScore = Clamp(a.RiskScore, 0, 100)
	a.RiskLevel = BandRisk(a.RiskScore)

	factors := make([]models.RiskFactor, 0, len(a.RiskFactors))
	for _, f := range a.RiskFactors {
		if strings.TrimSpace(f.Factor) == "" {
			continue
		}
		if f.Category == "" {
			f.Category = "geral"
		}
		switch f.Impact {
		case models.ImpactLow, models.ImpactMedium, models.ImpactHigh:
		default:
			f.Impact = models.ImpactMedium
		}
		factors = append(factors, f)
	}
	a.RiskFactors = factors

	recs := make([]string, 0, len(a.Recommendations)+1)
	for _, r := range a.Recommendations {
		if r = strings.TrimSpace(r); r != "" {
			recs = append(recs, r)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, defaultRiskRecommendation(a.RiskLevel))
	}
	a.Recommendations = recs

	ca := &a.CompetitiveAnalysis
	if ca.EstimatedCompetitors <= 0 {
		ca.EstimatedCompetitors = estimateCompetitors(n)
	}
	switch ca.MarketDifficulty {
	case models.DifficultyLow, models.DifficultyMedium, models.DifficultyHigh:
	default:
		ca.MarketDifficulty = difficultyForScore(a.RiskScore)
	}
	if ca.SuccessProbability <= 0 || ca.SuccessProbability > 100 {
		ca.SuccessProbability = Clamp(100-a.RiskScore, 10, 90)
	}

	fa := &a.FinancialAnalysis
	if fa.EstimatedCost <= 0 {
		fa.EstimatedCost = n.EstimatedValue * 0.85
	}
	if fa.ProfitMarginEstimate <= 0 {
		fa.ProfitMarginEstimate = 15
	}
	if fa.ROIProjection <= 0 && fa.EstimatedCost > 0 && n.EstimatedValue > fa.EstimatedCost {
		fa.ROIProjection = (n.EstimatedValue - fa.EstimatedCost) / fa.EstimatedCost * 100
	}
	fa.EstimatedCost = roundMoney(fa.EstimatedCost)
	fa.ProfitMarginEstimate = roundMoney(fa.ProfitMarginEstimate)
	fa.ROIProjection = roundMoney(fa.ROIProjection)

	if a.Source == "" {
		a.Source = models.SourceHeuristic
	}
	if a.Source == models.SourceAI {
		a.Confidence = 80
	} else {
		a.Confidence = 60
	}
}

func defaultRiskRecommendation(level models.RiskLevel) string {
	switch level {
	case models.RiskCritical:
		return "Avaliar com cautela a participação; o risco identificado é crítico"
	case models.RiskHigh:
		return "Participar apenas com equipe e documentação já preparadas"
	case models.RiskMedium:
		return "Revisar o edital e os anexos antes de decidir a participação"
	default:
		return "Oportunidade de baixo risco; seguir com a preparação usual da proposta"
	}
}

func estimateCompetitors(n *models.Notice) int {
	base := 5
	switch {
	case n.EstimatedValue > 1_000_000:
		base = 12
	case n.EstimatedValue > 100_000:
		base = 8
	}
	if isConcorrencia(n.Modality) {
		base += 3
	}
	return base
}

func difficultyForScore(score int) models.Difficulty {
	switch {
	case score >= 60:
		return models.DifficultyHigh
	case score >= 40:
		return models.DifficultyMedium
	default:
		return models.DifficultyLow
	}
}

func foldImpact(s string) string {
	switch foldAccents(s) {
	case "baixo", "baixa", "low":
		return string(models.ImpactLow)
	case "medio", "media", "medium":
		return string(models.ImpactMedium)
	case "alto", "alta", "high":
		return string(models.ImpactHigh)
	}
	return ""
}

func foldDifficulty(s string) string {
	switch foldAccents(s) {
	case "baixa", "baixo", "low":
		return string(models.DifficultyLow)
	case "media", "medio", "medium":
		return string(models.DifficultyMedium)
	case "alta", "alto", "high":
		return string(models.DifficultyHigh)
	}
	return ""
}
