package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

func organHistory(organ string, value float64, count int) []*models.Notice {
	var out []*models.Notice
	for i := 0; i < count; i++ {
		out = append(out, newNotice(func(n *models.Notice) {
			n.Organ = organ
			n.EstimatedValue = value
		}))
	}
	return out
}

func findWinFactor(factors []models.WinFactor, name string) (models.WinFactor, bool) {
	for _, f := range factors {
		if f.Factor == name {
			return f, true
		}
	}
	return models.WinFactor{}, false
}

func TestProposalOrganAverageAdjustment(t *testing.T) {
	current := newNotice(func(n *models.Notice) { n.EstimatedValue = 200_000 })
	store := newMemStore(append(organHistory(current.Organ, 100_000, 5), current)...)
	gen := NewProposalInsightGenerator(store, store, disabledInvoker(), clock)

	got, err := gen.Generate(context.Background(), ProposalInput{NoticeID: current.ID})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	f, ok := findWinFactor(got.WinProbability.Factors, "Valor acima da média histórica")
	if !ok {
		t.Fatalf("missing organ average factor: %+v", got.WinProbability.Factors)
	}
	if f.Weight != -10 || f.Impact != models.ImpactNegative {
		t.Fatalf("factor = %+v, want weight -10 negativo", f)
	}
	if got.WinProbability.Score != 40 {
		t.Fatalf("score = %d, want 50 - 10", got.WinProbability.Score)
	}
	if len(store.insights) != 1 || store.insights[0].NoticeID != current.ID {
		t.Fatalf("expected insights to be saved, got %+v", store.insights)
	}
}

func TestProposalNoAdjustmentWithinAverage(t *testing.T) {
	current := newNotice(func(n *models.Notice) { n.EstimatedValue = 140_000 })
	store := newMemStore(append(organHistory(current.Organ, 100_000, 5), current)...)
	gen := NewProposalInsightGenerator(store, nil, disabledInvoker(), clock)

	got, err := gen.Generate(context.Background(), ProposalInput{NoticeID: current.ID})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, ok := findWinFactor(got.WinProbability.Factors, factorAboveOrganAverage); ok {
		t.Fatal("unexpected organ average factor")
	}
	if got.WinProbability.Score != 50 {
		t.Fatalf("score = %d, want 50", got.WinProbability.Score)
	}
}

func TestProposalOrganLookupFailureIsSkipped(t *testing.T) {
	current := newNotice(nil)
	store := newMemStore(current)
	store.organErr = errBoom
	gen := NewProposalInsightGenerator(store, nil, disabledInvoker(), clock)

	if _, err := gen.Generate(context.Background(), ProposalInput{NoticeID: current.ID}); err != nil {
		t.Fatalf("organ lookup failure must not fail the call: %v", err)
	}
}

func TestProposalFallbackFactors(t *testing.T) {
	current := newNotice(func(n *models.Notice) {
		n.EstimatedValue = 2_000_000
		n.SubmissionDeadline = timePtr(fixedNow.Add(2 * 24 * time.Hour))
		level := models.RiskHigh
		n.RiskLevel = &level
	})
	in := ProposalInput{
		NoticeID: current.ID,
		CompanyProfile: &models.CompanyProfile{
			Name:            "Acme Tecnologia",
			ExperienceYears: 6,
			Certifications:  []string{"ISO 9001"},
		},
		HistoricalProposals: []models.HistoricalProposal{
			{Organ: "PREFEITURA MUNICIPAL DE CAMPINAS", Value: 90_000, Won: true, Year: 2023},
			{Organ: "Governo do Estado", Value: 300_000, Won: true, Year: 2024},
			{Organ: "Governo do Estado", Value: 120_000, Won: false, Year: 2024},
		},
		Competitors: []models.Competitor{{Name: "Beta", WinRate: 60}},
	}
	gen := NewProposalInsightGenerator(newMemStore(current), nil, disabledInvoker(), clock)

	got, err := gen.Generate(context.Background(), in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// 50 +15 +5 -15 -10 +10 +5 -5 -10
	if got.WinProbability.Score != 45 {
		t.Fatalf("score = %d, want 45; factors %+v", got.WinProbability.Score, got.WinProbability.Factors)
	}
	if len(got.WinProbability.Factors) != 8 {
		t.Fatalf("expected 8 factors, got %d", len(got.WinProbability.Factors))
	}
	if got.Source != models.SourceHeuristic || got.Confidence != 80 || got.WinProbability.ConfidenceLevel != "alta" {
		t.Fatalf("unexpected source/confidence: %s %d %s", got.Source, got.Confidence, got.WinProbability.ConfidenceLevel)
	}
	if got.CompanyName != "Acme Tecnologia" {
		t.Fatalf("company name = %q", got.CompanyName)
	}

	ps := got.PricingStrategy
	if ps.Approach != models.PricingCompetitive {
		t.Fatalf("approach = %s, want competitiva", ps.Approach)
	}
	if ps.PriceRange.Min != 1_700_000 || ps.PriceRange.Optimal != 1_840_000 || ps.PriceRange.Max != 1_940_000 {
		t.Fatalf("price range = %+v", ps.PriceRange)
	}

	for i := 1; i < len(got.Recommendations); i++ {
		if priorityRank[got.Recommendations[i-1].Priority] > priorityRank[got.Recommendations[i].Priority] {
			t.Fatalf("recommendations not sorted: %+v", got.Recommendations)
		}
	}

	tl := got.TimelineStrategy
	if len(tl) != 4 || tl[0].Date.Before(fixedNow) || !tl[3].Date.Equal(*current.SubmissionDeadline) {
		t.Fatalf("timeline = %+v", tl)
	}
	if got.ResourceRequirements.TeamSize != 5 || got.ResourceRequirements.EstimatedBudget != 40_000 {
		t.Fatalf("resources = %+v", got.ResourceRequirements)
	}
}

func TestProposalAIResultIsCompletedByFallback(t *testing.T) {
	current := newNotice(nil)
	reply := `{
		"win_probability": {"score": "70", "factors": [{"factor": "Experiência no objeto", "weight": 10, "impact": "positive"}], "confidence_level": "Média"},
		"pricing_strategy": {"approach": "Agressiva"},
		"timeline_strategy": [{"milestone": "Envio", "date": "20/03/2025"}, {"milestone": "Sem data", "date": "logo"}],
		"recommendations": [{"priority": "low", "category": "preço", "action": "Revisar custos"}, {"priority": "Alta", "category": "prazo", "action": "Começar hoje"}]
	}`
	invoker, _ := scriptedInvoker(reply)
	gen := NewProposalInsightGenerator(newMemStore(current), nil, invoker, clock)

	got, err := gen.Generate(context.Background(), ProposalInput{NoticeID: current.ID})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Source != models.SourceAI || got.Confidence != 75 {
		t.Fatalf("source/confidence = %s %d", got.Source, got.Confidence)
	}
	if got.WinProbability.Score != 70 || got.WinProbability.ConfidenceLevel != "média" {
		t.Fatalf("win probability = %+v", got.WinProbability)
	}
	if got.WinProbability.Factors[0].Impact != models.ImpactPositive {
		t.Fatalf("impact = %s", got.WinProbability.Factors[0].Impact)
	}
	if got.PricingStrategy.Approach != models.PricingAggressive || got.PricingStrategy.PriceRange.Min <= 0 {
		t.Fatalf("pricing = %+v", got.PricingStrategy)
	}
	if len(got.ComplianceChecklist) == 0 || len(got.TechnicalStrategy.Strengths) == 0 || got.ResourceRequirements.TeamSize == 0 {
		t.Fatal("missing sections must be filled from the fallback")
	}
	if len(got.TimelineStrategy) != 1 || got.TimelineStrategy[0].Milestone != "Envio" {
		t.Fatalf("timeline = %+v", got.TimelineStrategy)
	}
	if got.Recommendations[0].Action != "Começar hoje" || got.Recommendations[1].Priority != "baixa" {
		t.Fatalf("recommendations = %+v", got.Recommendations)
	}
}

func TestProposalScoreMustBeNumeric(t *testing.T) {
	tests := []struct {
		reply      string
		wantSource models.ResultSource
		wantScore  int
	}{
		{`{"win_probability": {"score": "alta", "factors": []}}`, models.SourceHeuristic, 50},
		{`{"win_probability": {"factors": []}}`, models.SourceHeuristic, 50},
		// Unreadable optional numbers do not discard a readable score.
		{`{"win_probability": {"score": "70"}, "resource_requirements": {"team_size": "alguns", "estimated_budget": "a definir"}}`, models.SourceAI, 70},
	}

	for _, tt := range tests {
		current := newNotice(nil)
		invoker, model := scriptedInvoker(tt.reply)
		gen := NewProposalInsightGenerator(newMemStore(current), nil, invoker, clock)

		got, err := gen.Generate(context.Background(), ProposalInput{NoticeID: current.ID})
		if err != nil {
			t.Fatalf("%s: Generate() error = %v", tt.reply, err)
		}
		if model.calls != 1 {
			t.Fatalf("%s: expected one AI call, got %d", tt.reply, model.calls)
		}
		if got.Source != tt.wantSource || got.WinProbability.Score != tt.wantScore {
			t.Fatalf("%s: got %s score %d, want %s %d", tt.reply, got.Source, got.WinProbability.Score, tt.wantSource, tt.wantScore)
		}
		if got.ResourceRequirements.TeamSize == 0 {
			t.Fatalf("%s: team size not filled", tt.reply)
		}
	}
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (e *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeFinder struct {
	stored  map[uuid.UUID][]float32
	similar []models.SimilarNotice
	limit   int
}

func (f *fakeFinder) SetNoticeEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	f.stored[id] = embedding
	return nil
}

func (f *fakeFinder) ListSimilarNotices(ctx context.Context, embedding []float32, excludeID uuid.UUID, limit int) ([]models.SimilarNotice, error) {
	f.limit = limit
	return f.similar, nil
}

func TestProposalSimilarNotices(t *testing.T) {
	current := newNotice(nil)
	finder := &fakeFinder{
		stored:  map[uuid.UUID][]float32{},
		similar: []models.SimilarNotice{{NoticeID: uuid.New(), Title: "Aquisição de desktops", Distance: 0.12}},
	}
	gen := NewProposalInsightGenerator(newMemStore(current), nil, disabledInvoker(), clock).
		WithSimilarity(&fakeEmbedder{}, finder)

	got, err := gen.Generate(context.Background(), ProposalInput{NoticeID: current.ID})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got.SimilarNotices) != 1 || finder.limit != 3 {
		t.Fatalf("similar = %+v limit = %d", got.SimilarNotices, finder.limit)
	}
	if _, ok := finder.stored[current.ID]; !ok {
		t.Fatal("expected the notice embedding to be stored")
	}

	embedder := &fakeEmbedder{err: errBoom}
	gen = NewProposalInsightGenerator(newMemStore(current), nil, disabledInvoker(), clock).WithSimilarity(embedder, finder)
	got, err = gen.Generate(context.Background(), ProposalInput{NoticeID: current.ID})
	if err != nil {
		t.Fatalf("embedding failure must not fail the call: %v", err)
	}
	if len(got.SimilarNotices) != 0 || embedder.calls != 1 {
		t.Fatalf("similar = %+v", got.SimilarNotices)
	}
}
