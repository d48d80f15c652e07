package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/ai"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/documents"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

var fixedNow = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// memStore is an in-memory NoticeStore and ArtifactStore.
type memStore struct {
	mu sync.Mutex

	notices  []*models.Notice
	patches  []models.NoticePatch
	gets     int
	organErr error
	windows  [][2]time.Time

	documents []*models.DocumentProcessingResult
	alerts    map[string]*models.DeadlineMonitorResult
	insights  []*models.ProposalInsights
	followed  map[string][]uuid.UUID
}

func newMemStore(notices ...*models.Notice) *memStore {
	return &memStore{
		notices:  notices,
		alerts:   map[string]*models.DeadlineMonitorResult{},
		followed: map[string][]uuid.UUID{},
	}
}

func (s *memStore) GetNotice(ctx context.Context, id uuid.UUID) (*models.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	for _, n := range s.notices {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *memStore) UpdateNotice(ctx context.Context, id uuid.UUID, patch models.NoticePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notices {
		if n.ID != id {
			continue
		}
		s.patches = append(s.patches, patch)
		if patch.RiskLevel != nil {
			n.RiskLevel = patch.RiskLevel
		}
		if patch.RiskScore != nil {
			n.RiskScore = patch.RiskScore
		}
		if patch.RiskAnalysis != nil {
			n.RiskAnalysis = patch.RiskAnalysis
		}
		if patch.Summary != nil {
			n.Summary = patch.Summary
		}
		return nil
	}
	return models.ErrNotFound
}

func (s *memStore) ListNoticesByDeadlineWindow(ctx context.Context, start, end time.Time) ([]models.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, [2]time.Time{start, end})
	var out []models.Notice
	for _, n := range s.notices {
		d := n.SubmissionDeadline
		if d != nil && !d.Before(start) && !d.After(end) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *memStore) ListNoticesByOrgan(ctx context.Context, organ string, excludeID uuid.UUID, limit int) ([]models.Notice, error) {
	if s.organErr != nil {
		return nil, s.organErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notice
	for _, n := range s.notices {
		if n.Organ == organ && n.ID != excludeID && len(out) < limit {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *memStore) SaveDocumentResult(ctx context.Context, r *models.DocumentProcessingResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, r)
	return nil
}

func (s *memStore) SaveDeadlineAlerts(ctx context.Context, companyID string, r *models.DeadlineMonitorResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[companyID] = r
	return nil
}

func (s *memStore) SaveProposalInsights(ctx context.Context, in *models.ProposalInsights) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights = append(s.insights, in)
	return nil
}

func (s *memStore) FollowedNoticeIDs(ctx context.Context, companyID string) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.followed[companyID], nil
}

// scriptedModel replies with the same text on every call.
type scriptedModel struct {
	reply string
	err   error
	calls int
}

func (m *scriptedModel) Complete(ctx context.Context, messages []ai.Message, opts ai.Options) (string, error) {
	m.calls++
	return m.reply, m.err
}

func scriptedInvoker(reply string) (*ai.Adapter, *scriptedModel) {
	m := &scriptedModel{reply: reply}
	return ai.NewAdapter(m, ai.Options{}), m
}

func disabledInvoker() *ai.Adapter {
	return ai.NewAdapter(nil, ai.Options{})
}

type stubFetcher struct {
	body []byte
	err  error
	urls []string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (*documents.Fetched, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return &documents.Fetched{URL: url, Body: f.body, FetchedAt: fixedNow}, nil
}

var errBoom = errors.New("boom")

func timePtr(t time.Time) *time.Time { return &t }

func newNotice(mutate func(n *models.Notice)) *models.Notice {
	n := &models.Notice{
		ID:             uuid.New(),
		Title:          "Aquisição de notebooks",
		Description:    "Aquisição de notebooks para as escolas municipais.",
		Organ:          "Prefeitura Municipal de Campinas",
		Modality:       "Pregão Eletrônico",
		EstimatedValue: 150_000,
		Status:         "aberta",
		CreatedAt:      fixedNow.Add(-48 * time.Hour),
		UpdatedAt:      fixedNow.Add(-48 * time.Hour),
	}
	if mutate != nil {
		mutate(n)
	}
	return n
}
