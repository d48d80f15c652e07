package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

type proposalFacts struct {
	HasProfile      bool
	ExperienceYears int
	Certifications  int
	DaysToDeadline  *int
	Value           float64
	Proposals       int
	WinRate         float64 // percent
	WonSameOrgan    bool
	StrongRival     bool
	StoredRisk      models.RiskLevel
}

var winProbabilityRules = RuleSet[proposalFacts]{
	Base: 50,
	Rules: []Rule[proposalFacts]{
		{
			Name: "experienced", Factor: "Experiência consolidada", Weight: 15,
			Description: "Empresa com 5 anos ou mais de experiência",
			Predicate:   func(f proposalFacts) bool { return f.HasProfile && f.ExperienceYears >= 5 },
		},
		{
			Name: "some_experience", Factor: "Experiência moderada", Weight: 5,
			Description: "Empresa com 2 a 4 anos de experiência",
			Predicate:   func(f proposalFacts) bool { return f.HasProfile && f.ExperienceYears >= 2 && f.ExperienceYears < 5 },
		},
		{
			Name: "no_experience", Factor: "Sem experiência comprovada", Weight: -10,
			Description: "Nenhum ano de experiência informado",
			Predicate:   func(f proposalFacts) bool { return f.HasProfile && f.ExperienceYears == 0 },
		},
		{
			Name: "certified", Factor: "Certificações relevantes", Weight: 5,
			Description: "Empresa possui certificações que reforçam a habilitação técnica",
			Predicate:   func(f proposalFacts) bool { return f.Certifications > 0 },
		},
		{
			Name: "tight_deadline", Factor: "Prazo insuficiente para preparação", Weight: -15,
			Description: "Menos de 3 dias até a entrega das propostas",
			Predicate:   func(f proposalFacts) bool { return f.DaysToDeadline != nil && *f.DaysToDeadline < 3 },
		},
		{
			Name: "comfortable_deadline", Factor: "Prazo confortável", Weight: 5,
			Description: "10 dias ou mais para preparar a proposta",
			Predicate:   func(f proposalFacts) bool { return f.DaysToDeadline != nil && *f.DaysToDeadline >= 10 },
		},
		{
			Name: "large_contract", Factor: "Contrato de grande porte", Weight: -10,
			Description: "Valor estimado acima de R$ 1.000.000,00 atrai mais concorrentes e exige mais garantias",
			Predicate:   func(f proposalFacts) bool { return f.Value > 1_000_000 },
		},
		{
			Name: "small_contract", Factor: "Contrato de menor porte", Weight: 5,
			Description: "Valor estimado abaixo de R$ 100.000,00",
			Predicate:   func(f proposalFacts) bool { return f.Value > 0 && f.Value < 100_000 },
		},
		{
			Name: "good_track_record", Factor: "Histórico de vitórias favorável", Weight: 10,
			Description: "Taxa de vitória histórica de 50% ou mais",
			Predicate:   func(f proposalFacts) bool { return f.Proposals > 0 && f.WinRate >= 50 },
		},
		{
			Name: "poor_track_record", Factor: "Histórico de vitórias desfavorável", Weight: -5,
			Description: "Taxa de vitória histórica abaixo de 20% em ao menos 3 propostas",
			Predicate:   func(f proposalFacts) bool { return f.Proposals >= 3 && f.WinRate < 20 },
		},
		{
			Name: "won_same_organ", Factor: "Vitória anterior no mesmo órgão", Weight: 5,
			Description: "A empresa já venceu licitação deste órgão",
			Predicate:   func(f proposalFacts) bool { return f.WonSameOrgan },
		},
		{
			Name: "strong_rival", Factor: "Concorrente forte identificado", Weight: -5,
			Description: "Há concorrente conhecido com taxa de vitória acima de 50%",
			Predicate:   func(f proposalFacts) bool { return f.StrongRival },
		},
		{
			Name: "high_risk", Factor: "Risco elevado identificado", Weight: -10,
			Description: "A análise de risco classificou a licitação como alto ou crítico",
			Predicate: func(f proposalFacts) bool {
				return f.StoredRisk == models.RiskHigh || f.StoredRisk == models.RiskCritical
			},
		},
	},
}

func collectProposalFacts(n *models.Notice, in ProposalInput, now time.Time) proposalFacts {
	f := proposalFacts{Value: n.EstimatedValue}
	if c := in.CompanyProfile; c != nil {
		f.HasProfile = true
		f.ExperienceYears = c.ExperienceYears
		f.Certifications = len(c.Certifications)
	}
	if n.SubmissionDeadline != nil {
		days := DaysUntil(now, *n.SubmissionDeadline)
		f.DaysToDeadline = &days
	}

	won := 0
	organ := foldAccents(n.Organ)
	for _, h := range in.HistoricalProposals {
		if h.Won {
			won++
			if organ != "" && foldAccents(h.Organ) == organ {
				f.WonSameOrgan = true
			}
		}
	}
	f.Proposals = len(in.HistoricalProposals)
	if f.Proposals > 0 {
		f.WinRate = float64(won) / float64(f.Proposals) * 100
	}

	for _, c := range in.Competitors {
		if c.WinRate > 50 {
			f.StrongRival = true
		}
	}
	if n.RiskLevel != nil {
		f.StoredRisk = *n.RiskLevel
	} else if n.RiskAnalysis != nil {
		f.StoredRisk = n.RiskAnalysis.RiskLevel
	}
	return f
}

// GenerateProposalFallback builds a complete insight set from fixed rules.
// It never fails.
func GenerateProposalFallback(n *models.Notice, in ProposalInput, now time.Time) *models.ProposalInsights {
	facts := collectProposalFacts(n, in, now)
	outcome := winProbabilityRules.Evaluate(facts)

	factors := make([]models.WinFactor, 0, len(outcome.Matched))
	for _, r := range outcome.Matched {
		factors = append(factors, models.WinFactor{
			Factor:      r.Factor,
			Weight:      r.Weight,
			Impact:      impactForSign("", r.Weight),
			Description: r.Description,
		})
	}

	pricing := fallbackPricing(n.EstimatedValue, outcome.Score, len(in.Competitors))

	return &models.ProposalInsights{
		WinProbability: models.WinProbability{
			Score:           outcome.Score,
			Factors:         factors,
			ConfidenceLevel: confidenceLevelFromInputs(in),
		},
		PricingStrategy:      pricing,
		TechnicalStrategy:    fallbackTechnicalStrategy(n, in.CompanyProfile),
		ComplianceChecklist:  fallbackCompliance(in.CompanyProfile),
		TimelineStrategy:     fallbackTimeline(n, now),
		ResourceRequirements: fallbackResources(n.EstimatedValue),
		Recommendations:      fallbackProposalRecommendations(facts, pricing.Approach),
		Source:               models.SourceHeuristic,
	}
}

type priceBand struct{ min, optimal, max float64 }

var priceBands = map[models.PricingApproach]priceBand{
	models.PricingAggressive:  {0.80, 0.85, 0.92},
	models.PricingCompetitive: {0.85, 0.92, 0.97},
	models.PricingValue:       {0.90, 0.95, 1.00},
}

func fallbackPricing(value float64, score, competitors int) models.PricingStrategy {
	approach := models.PricingCompetitive
	rationale := "Equilíbrio entre preço e margem diante de concorrência moderada"
	switch {
	case score >= 65:
		approach = models.PricingValue
		rationale = "Boa chance de vitória permite priorizar a margem e destacar a qualidade técnica"
	case score < 40 || competitors >= 5:
		approach = models.PricingAggressive
		rationale = "Chance reduzida ou concorrência intensa exigem preço agressivo para disputar"
	}

	band := priceBands[approach]
	return models.PricingStrategy{
		Approach: approach,
		PriceRange: models.PriceRange{
			Min:     roundMoney(value * band.min),
			Optimal: roundMoney(value * band.optimal),
			Max:     roundMoney(value * band.max),
		},
		Rationale: rationale,
	}
}

func fallbackTechnicalStrategy(n *models.Notice, c *models.CompanyProfile) models.TechnicalStrategy {
	ts := models.TechnicalStrategy{
		Strengths:       []string{},
		Differentiators: []string{"Proposta técnica aderente a todos os itens do termo de referência"},
		RiskMitigation:  []string{"Revisar a documentação de habilitação antes do envio"},
	}
	if c != nil {
		if c.ExperienceYears > 0 {
			ts.Strengths = append(ts.Strengths, fmt.Sprintf("%d anos de experiência no mercado", c.ExperienceYears))
		}
		if len(c.Certifications) > 0 {
			ts.Strengths = append(ts.Strengths, "Certificações: "+strings.Join(c.Certifications, ", "))
		}
		if len(c.Sectors) > 0 {
			ts.Strengths = append(ts.Strengths, "Atuação em "+strings.Join(c.Sectors, ", "))
		}
	}
	if len(ts.Strengths) == 0 {
		ts.Strengths = append(ts.Strengths, "Capacidade de atendimento ao objeto da licitação")
	}
	if n.RiskAnalysis != nil {
		for _, f := range n.RiskAnalysis.RiskFactors {
			ts.RiskMitigation = append(ts.RiskMitigation, "Mitigar: "+f.Factor)
		}
	}
	return ts
}

func fallbackCompliance(c *models.CompanyProfile) []models.ComplianceItem {
	technicalStatus := "pendente"
	if c != nil && c.ExperienceYears >= 2 {
		technicalStatus = "verificar"
	}
	items := []models.ComplianceItem{
		{Requirement: "Certidões de regularidade fiscal e trabalhista", Status: "verificar", Notes: "Conferir validade na data da sessão"},
		{Requirement: "Atestados de capacidade técnica", Status: technicalStatus, Notes: "Devem ser compatíveis com o objeto"},
		{Requirement: "Balanço patrimonial e índices contábeis", Status: "verificar"},
		{Requirement: "Declarações exigidas pelo edital", Status: "pendente"},
	}
	if c != nil {
		for _, cert := range c.Certifications {
			items = append(items, models.ComplianceItem{Requirement: "Certificação " + cert, Status: "ok"})
		}
	}
	return items
}

func fallbackTimeline(n *models.Notice, now time.Time) []models.TimelineMilestone {
	steps := []struct {
		milestone string
		before    int // days before the deadline
	}{
		{"Análise do edital e decisão de participação", 5},
		{"Coleta de documentos e cotações", 3},
		{"Revisão final da proposta", 1},
		{"Envio da proposta", 0},
	}

	deadline := now.AddDate(0, 0, DefaultDaysAhead)
	if n.SubmissionDeadline != nil {
		deadline = *n.SubmissionDeadline
	}

	out := make([]models.TimelineMilestone, 0, len(steps))
	for _, s := range steps {
		date := deadline.AddDate(0, 0, -s.before)
		if date.Before(now) {
			date = now
		}
		out = append(out, models.TimelineMilestone{Milestone: s.milestone, Date: date.UTC()})
	}
	return out
}

func fallbackResources(value float64) models.ResourceRequirements {
	rr := models.ResourceRequirements{
		TeamSize: 2,
		Roles:    []string{"Analista de licitações", "Responsável comercial"},
	}
	switch {
	case value > 1_000_000:
		rr.TeamSize = 5
		rr.Roles = append(rr.Roles, "Responsável técnico", "Analista financeiro", "Assessor jurídico")
	case value > 100_000:
		rr.TeamSize = 3
		rr.Roles = append(rr.Roles, "Responsável técnico")
	}
	rr.EstimatedBudget = roundMoney(value * 0.02)
	return rr
}

func fallbackProposalRecommendations(f proposalFacts, approach models.PricingApproach) []models.Recommendation {
	recs := []models.Recommendation{
		{Priority: "alta", Category: "habilitação", Action: "Conferir a validade de todas as certidões antes do envio"},
	}
	if f.DaysToDeadline != nil && *f.DaysToDeadline < 3 {
		recs = append(recs, models.Recommendation{Priority: "alta", Category: "prazo", Action: "Mobilizar a equipe imediatamente; o prazo é muito curto"})
	}
	if f.StoredRisk == models.RiskHigh || f.StoredRisk == models.RiskCritical {
		recs = append(recs, models.Recommendation{Priority: "alta", Category: "risco", Action: "Reavaliar a participação à luz dos riscos identificados"})
	}
	switch approach {
	case models.PricingAggressive:
		recs = append(recs, models.Recommendation{Priority: "média", Category: "preço", Action: "Revisar custos para sustentar um preço agressivo sem comprometer a execução"})
	case models.PricingValue:
		recs = append(recs, models.Recommendation{Priority: "média", Category: "preço", Action: "Destacar diferenciais técnicos que justifiquem o preço"})
	default:
		recs = append(recs, models.Recommendation{Priority: "média", Category: "preço", Action: "Pesquisar preços praticados em contratações semelhantes"})
	}
	if f.StrongRival {
		recs = append(recs, models.Recommendation{Priority: "média", Category: "concorrência", Action: "Estudar as propostas vencedoras recentes do principal concorrente"})
	}
	if !f.HasProfile {
		recs = append(recs, models.Recommendation{Priority: "baixa", Category: "dados", Action: "Cadastrar o perfil da empresa para análises mais precisas"})
	}
	return recs
}

func confidenceLevelFromInputs(in ProposalInput) string {
	signals := 0
	if in.CompanyProfile != nil {
		signals++
	}
	if len(in.HistoricalProposals) > 0 {
		signals++
	}
	if len(in.Competitors) > 0 {
		signals++
	}
	switch {
	case signals >= 2:
		return "alta"
	case signals == 1:
		return "média"
	default:
		return "baixa"
	}
}
