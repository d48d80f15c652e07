package models

import "github.com/google/uuid"

type RiskLevel string

const (
	RiskLow      RiskLevel = "baixo"
	RiskMedium   RiskLevel = "médio"
	RiskHigh     RiskLevel = "alto"
	RiskCritical RiskLevel = "crítico"
)

type Impact string

const (
	ImpactLow    Impact = "baixo"
	ImpactMedium Impact = "médio"
	ImpactHigh   Impact = "alto"
)

type Difficulty string

const (
	DifficultyLow    Difficulty = "baixa"
	DifficultyMedium Difficulty = "média"
	DifficultyHigh   Difficulty = "alta"
)

type RiskFactor struct {
	Category    string `json:"category"`
	Factor      string `json:"factor"`
	Impact      Impact `json:"impact"`
	Description string `json:"description"`
}

type CompetitiveAnalysis struct {
	EstimatedCompetitors int        `json:"estimated_competitors"`
	MarketDifficulty     Difficulty `json:"market_difficulty"`
	SuccessProbability   int        `json:"success_probability"`
}

type FinancialAnalysis struct {
	EstimatedCost        float64 `json:"estimated_cost"`
	ProfitMarginEstimate float64 `json:"profit_margin_estimate"` // percent
	ROIProjection        float64 `json:"roi_projection"`         // percent
}

// RiskAnalysis is the normalized output of the risk classifier. RiskLevel is
// always the banding of RiskScore.
type RiskAnalysis struct {
	NoticeID            uuid.UUID           `json:"notice_id"`
	RiskLevel           RiskLevel           `json:"risk_level"`
	RiskScore           int                 `json:"risk_score"`
	RiskFactors         []RiskFactor        `json:"risk_factors"`
	Recommendations     []string            `json:"recommendations"`
	CompetitiveAnalysis CompetitiveAnalysis `json:"competitive_analysis"`
	FinancialAnalysis   FinancialAnalysis   `json:"financial_analysis"`
	Source              ResultSource        `json:"source"`
	Confidence          int                 `json:"confidence"`
}
