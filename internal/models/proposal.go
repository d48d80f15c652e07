package models

import (
	"time"

	"github.com/google/uuid"
)

// CompanyProfile is the caller-supplied description of the bidding company.
type CompanyProfile struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	ExperienceYears int      `json:"experience_years" validate:"gte=0"`
	Certifications  []string `json:"certifications"`
	Employees       int      `json:"employees" validate:"gte=0"`
	Sectors         []string `json:"sectors"`
}

type HistoricalProposal struct {
	Organ string  `json:"organ"`
	Value float64 `json:"value" validate:"gte=0"`
	Won   bool    `json:"won"`
	Year  int     `json:"year"`
}

type Competitor struct {
	Name      string   `json:"name"`
	Strengths []string `json:"strengths"`
	WinRate   float64  `json:"win_rate" validate:"gte=0,lte=100"`
}

type FactorImpact string

const (
	ImpactPositive FactorImpact = "positivo"
	ImpactNegative FactorImpact = "negativo"
	ImpactNeutral  FactorImpact = "neutro"
)

type WinFactor struct {
	Factor      string       `json:"factor"`
	Weight      int          `json:"weight"` // signed points applied to the score
	Impact      FactorImpact `json:"impact"`
	Description string       `json:"description"`
}

type WinProbability struct {
	Score           int         `json:"score"`
	Factors         []WinFactor `json:"factors"`
	ConfidenceLevel string      `json:"confidence_level"` // baixa, média, alta
}

type PricingApproach string

const (
	PricingAggressive  PricingApproach = "agressiva"
	PricingCompetitive PricingApproach = "competitiva"
	PricingValue       PricingApproach = "valor"
)

type PriceRange struct {
	Min     float64 `json:"min"`
	Optimal float64 `json:"optimal"`
	Max     float64 `json:"max"`
}

type PricingStrategy struct {
	Approach   PricingApproach `json:"approach"`
	PriceRange PriceRange      `json:"price_range"`
	Rationale  string          `json:"rationale"`
}

type TechnicalStrategy struct {
	Strengths       []string `json:"strengths"`
	Differentiators []string `json:"differentiators"`
	RiskMitigation  []string `json:"risk_mitigation"`
}

type ComplianceItem struct {
	Requirement string `json:"requirement"`
	Status      string `json:"status"` // ok, pendente, verificar
	Notes       string `json:"notes"`
}

type TimelineMilestone struct {
	Milestone string    `json:"milestone"`
	Date      time.Time `json:"date"`
}

type ResourceRequirements struct {
	TeamSize        int      `json:"team_size"`
	Roles           []string `json:"roles"`
	EstimatedBudget float64  `json:"estimated_budget"`
}

type Recommendation struct {
	Priority string `json:"priority"` // alta, média, baixa
	Category string `json:"category"`
	Action   string `json:"action"`
}

type SimilarNotice struct {
	NoticeID       uuid.UUID `json:"notice_id"`
	Title          string    `json:"title"`
	Organ          string    `json:"organ"`
	EstimatedValue float64   `json:"estimated_value"`
	Distance       float64   `json:"distance"`
}

// ProposalInsights is the advisory package produced for one notice and company.
type ProposalInsights struct {
	NoticeID             uuid.UUID            `json:"notice_id"`
	CompanyName          string               `json:"company_name"`
	WinProbability       WinProbability       `json:"win_probability"`
	PricingStrategy      PricingStrategy      `json:"pricing_strategy"`
	TechnicalStrategy    TechnicalStrategy    `json:"technical_strategy"`
	ComplianceChecklist  []ComplianceItem     `json:"compliance_checklist"`
	TimelineStrategy     []TimelineMilestone  `json:"timeline_strategy"`
	ResourceRequirements ResourceRequirements `json:"resource_requirements"`
	RiskAnalysis         *RiskAnalysis        `json:"risk_analysis,omitempty"`
	Recommendations      []Recommendation     `json:"recommendations"`
	SimilarNotices       []SimilarNotice      `json:"similar_notices,omitempty"`
	Source               ResultSource         `json:"source"`
	Confidence           int                  `json:"confidence"`
	GeneratedAt          time.Time            `json:"generated_at"`
}
