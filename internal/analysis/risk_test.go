package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

func TestRiskFallbackWorstCase(t *testing.T) {
	notice := newNotice(func(n *models.Notice) {
		n.EstimatedValue = 2_000_000
		n.Modality = "Concorrência"
		n.SubmissionDeadline = timePtr(fixedNow.Add(48 * time.Hour))
	})
	store := newMemStore(notice)
	classifier := NewRiskClassifier(store, disabledInvoker(), clock)

	got, err := classifier.Classify(context.Background(), RiskInput{NoticeID: notice.ID})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.RiskScore != 90 || got.RiskLevel != models.RiskCritical {
		t.Fatalf("got score %d level %s, want 90 crítico", got.RiskScore, got.RiskLevel)
	}
	if got.Source != models.SourceHeuristic || got.Confidence != 60 {
		t.Fatalf("unexpected source/confidence: %s %d", got.Source, got.Confidence)
	}
	if len(got.RiskFactors) != 3 {
		t.Fatalf("expected 3 factors, got %+v", got.RiskFactors)
	}
	if got.CompetitiveAnalysis.EstimatedCompetitors != 15 {
		t.Fatalf("competitors = %d, want 15", got.CompetitiveAnalysis.EstimatedCompetitors)
	}
	if got.FinancialAnalysis.EstimatedCost != 1_700_000 {
		t.Fatalf("estimated cost = %v", got.FinancialAnalysis.EstimatedCost)
	}

	if len(store.patches) != 1 {
		t.Fatalf("expected one notice update, got %d", len(store.patches))
	}
	p := store.patches[0]
	if p.RiskLevel == nil || *p.RiskLevel != models.RiskCritical || p.RiskScore == nil || *p.RiskScore != 90 {
		t.Fatalf("unexpected patch: %+v", p)
	}
}

func TestRiskFallbackBaseline(t *testing.T) {
	notice := newNotice(func(n *models.Notice) {
		n.SubmissionDeadline = timePtr(fixedNow.Add(20 * 24 * time.Hour))
	})
	got := ClassifyRiskFallback(notice, fixedNow)
	if got.RiskScore != 30 || len(got.RiskFactors) != 0 {
		t.Fatalf("got score %d with factors %+v, want base 30", got.RiskScore, got.RiskFactors)
	}
}

func TestRiskScoreAlwaysBanded(t *testing.T) {
	tests := []struct {
		reply string
		score int
		level models.RiskLevel
	}{
		{`{"risk_score": 150}`, 100, models.RiskCritical},
		{`{"risk_score": -5}`, 0, models.RiskLow},
		{`{"risk_score": 72.6}`, 73, models.RiskHigh},
		{`{"risk_score": "45"}`, 45, models.RiskMedium},
		{`{"risk_score": 39.4}`, 39, models.RiskLow},
	}
	for _, tt := range tests {
		notice := newNotice(nil)
		invoker, _ := scriptedInvoker(tt.reply)
		classifier := NewRiskClassifier(newMemStore(notice), invoker, clock)

		got, err := classifier.Classify(context.Background(), RiskInput{NoticeID: notice.ID})
		if err != nil {
			t.Fatalf("%s: Classify() error = %v", tt.reply, err)
		}
		if got.RiskScore != tt.score || got.RiskLevel != tt.level {
			t.Fatalf("%s: got %d %s, want %d %s", tt.reply, got.RiskScore, got.RiskLevel, tt.score, tt.level)
		}
		if got.Source != models.SourceAI {
			t.Fatalf("%s: source = %s, want ai", tt.reply, got.Source)
		}
	}
}

func TestRiskFallsBackOnUnusableReply(t *testing.T) {
	replies := []string{
		"não sei",
		`{"risk_factors": []}`,
		`{"risk_score": null}`,
		`{"risk_score": "alto", "risk_factors": []}`,
		"",
	}
	for _, reply := range replies {
		notice := newNotice(nil)
		invoker, model := scriptedInvoker(reply)
		classifier := NewRiskClassifier(newMemStore(notice), invoker, clock)

		got, err := classifier.Classify(context.Background(), RiskInput{NoticeID: notice.ID})
		if err != nil {
			t.Fatalf("%q: Classify() error = %v", reply, err)
		}
		if got.Source != models.SourceHeuristic || got.RiskScore != 30 {
			t.Fatalf("%q: source = %s score = %d, want heuristic 30", reply, got.Source, got.RiskScore)
		}
		if model.calls != 1 {
			t.Fatalf("%q: expected exactly one AI call, got %d", reply, model.calls)
		}
	}
}

func TestRiskClassifyIsIdempotent(t *testing.T) {
	notice := newNotice(func(n *models.Notice) {
		n.SubmissionDeadline = timePtr(fixedNow.Add(5 * 24 * time.Hour))
	})
	reply := `{
		"risk_score": 55,
		"risk_factors": [{"category": "prazo", "factor": "Prazo curto", "impact": "Alto", "description": "Menos de uma semana"}],
		"recommendations": ["Preparar documentação"],
		"competitive_analysis": {"estimated_competitors": 6, "market_difficulty": "media", "success_probability": 40},
		"financial_analysis": {"estimated_cost": "120.000,00", "profit_margin_estimate": 12}
	}`
	invoker, _ := scriptedInvoker(reply)
	classifier := NewRiskClassifier(newMemStore(notice), invoker, clock)

	first, err := classifier.Classify(context.Background(), RiskInput{NoticeID: notice.ID})
	if err != nil {
		t.Fatalf("first Classify() error = %v", err)
	}
	second, err := classifier.Classify(context.Background(), RiskInput{NoticeID: notice.ID})
	if err != nil {
		t.Fatalf("second Classify() error = %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Fatalf("results differ:\n%s\n%s", a, b)
	}

	if first.RiskFactors[0].Impact != models.ImpactHigh {
		t.Fatalf("impact = %s, want alto", first.RiskFactors[0].Impact)
	}
	if first.CompetitiveAnalysis.MarketDifficulty != models.DifficultyMedium {
		t.Fatalf("difficulty = %s, want média", first.CompetitiveAnalysis.MarketDifficulty)
	}
	if first.FinancialAnalysis.EstimatedCost != 120_000 {
		t.Fatalf("estimated cost = %v", first.FinancialAnalysis.EstimatedCost)
	}
}

func TestRiskNotFound(t *testing.T) {
	classifier := NewRiskClassifier(newMemStore(), disabledInvoker(), clock)
	_, err := classifier.Classify(context.Background(), RiskInput{NoticeID: uuid.New()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "notice" {
		t.Fatalf("expected *NotFoundError for notice, got %T", err)
	}
}

type failingUpdateStore struct{ *memStore }

func (s failingUpdateStore) UpdateNotice(ctx context.Context, id uuid.UUID, patch models.NoticePatch) error {
	return fmt.Errorf("connection reset: %w", errBoom)
}

func TestRiskPersistFailureIsReturned(t *testing.T) {
	notice := newNotice(nil)
	classifier := NewRiskClassifier(failingUpdateStore{newMemStore(notice)}, disabledInvoker(), clock)
	if _, err := classifier.Classify(context.Background(), RiskInput{NoticeID: notice.ID}); !errors.Is(err, errBoom) {
		t.Fatalf("expected persist error, got %v", err)
	}
}

func TestIsConcorrencia(t *testing.T) {
	tests := map[string]bool{
		"Concorrência":            true,
		"concorrencia eletrônica": true,
		"CONCORRÊNCIA":            true,
		"Pregão Eletrônico":       false,
		"":                        false,
	}
	for in, want := range tests {
		if got := isConcorrencia(in); got != want {
			t.Fatalf("isConcorrencia(%q) = %v, want %v", in, got, want)
		}
	}
}
