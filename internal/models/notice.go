package models

import (
	"time"

	"github.com/google/uuid"
)

// Notice is a public tender announcement ("edital") as held by the notice store.
type Notice struct {
	ID                 uuid.UUID     `json:"id"`
	ControlNumber      string        `json:"control_number"` // PNCP numeroControlePNCP
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	Organ              string        `json:"organ"`
	Modality           string        `json:"modality"`
	EstimatedValue     float64       `json:"estimated_value"`
	OpeningDate        *time.Time    `json:"opening_date"`
	SubmissionDeadline *time.Time    `json:"submission_deadline"`
	Status             string        `json:"status"`
	RiskLevel          *RiskLevel    `json:"risk_level"`
	RiskScore          *int          `json:"risk_score"`
	RiskAnalysis       *RiskAnalysis `json:"risk_analysis,omitempty"`
	Summary            *string       `json:"summary"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// NoticePatch carries the fields the pipeline is allowed to write back.
// Nil fields are left untouched.
type NoticePatch struct {
	RiskLevel    *RiskLevel
	RiskScore    *int
	RiskAnalysis *RiskAnalysis
	Summary      *string
}

// ResultSource tells consumers whether a result came from the model or the heuristics.
type ResultSource string

const (
	SourceAI        ResultSource = "ai"
	SourceHeuristic ResultSource = "heuristic"
)

// NoticeSummary is the output of the summary generator.
type NoticeSummary struct {
	NoticeID  uuid.UUID    `json:"notice_id"`
	Summary   string       `json:"summary"`
	KeyPoints []string     `json:"key_points"`
	Source    ResultSource `json:"source"`
}
