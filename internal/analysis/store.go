package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/documents"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

// NoticeStore is the notice record collaborator. GetNotice returns an error
// matching models.ErrNotFound when the notice does not exist.
type NoticeStore interface {
	GetNotice(ctx context.Context, id uuid.UUID) (*models.Notice, error)
	UpdateNotice(ctx context.Context, id uuid.UUID, patch models.NoticePatch) error
	ListNoticesByDeadlineWindow(ctx context.Context, start, end time.Time) ([]models.Notice, error)
	ListNoticesByOrgan(ctx context.Context, organ string, excludeID uuid.UUID, limit int) ([]models.Notice, error)
}

// ArtifactStore persists analysis results. Every save is an upsert.
type ArtifactStore interface {
	SaveDocumentResult(ctx context.Context, result *models.DocumentProcessingResult) error
	SaveDeadlineAlerts(ctx context.Context, companyID string, result *models.DeadlineMonitorResult) error
	SaveProposalInsights(ctx context.Context, insights *models.ProposalInsights) error
	FollowedNoticeIDs(ctx context.Context, companyID string) ([]uuid.UUID, error)
}

// SimilarNoticeFinder is implemented by stores with vector search.
type SimilarNoticeFinder interface {
	SetNoticeEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	ListSimilarNotices(ctx context.Context, embedding []float32, excludeID uuid.UUID, limit int) ([]models.SimilarNotice, error)
}

// DocumentFetcher downloads a document body.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (*documents.Fetched, error)
}

func loadNotice(ctx context.Context, store NoticeStore, id uuid.UUID) (*models.Notice, error) {
	notice, err := store.GetNotice(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, &NotFoundError{Kind: "notice", ID: id.String()}
		}
		return nil, err
	}
	if notice == nil {
		return nil, &NotFoundError{Kind: "notice", ID: id.String()}
	}
	return notice, nil
}
