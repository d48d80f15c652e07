package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

// Store is the Postgres-backed notice and artifact store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type ListParams struct {
	Query     string
	Organ     string
	RiskLevel string
	Unscored  bool // only notices without a risk classification
	Limit     int
	Offset    int
}

type ListResult struct {
	Notices []models.Notice `json:"notices"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

const selectCols = `id, COALESCE(control_number, ''), title, description, organ, modality,
	estimated_value, opening_date, submission_deadline, status,
	risk_level, risk_score, risk_analysis, summary, created_at, updated_at`

func scanNotice(scan func(dest ...interface{}) error) (models.Notice, error) {
	var n models.Notice
	var riskLevel *string
	var riskRaw []byte

	err := scan(
		&n.ID, &n.ControlNumber, &n.Title, &n.Description, &n.Organ, &n.Modality,
		&n.EstimatedValue, &n.OpeningDate, &n.SubmissionDeadline, &n.Status,
		&riskLevel, &n.RiskScore, &riskRaw, &n.Summary, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return n, err
	}

	if riskLevel != nil {
		level := models.RiskLevel(*riskLevel)
		n.RiskLevel = &level
	}
	if len(riskRaw) > 0 {
		var ra models.RiskAnalysis
		if err := json.Unmarshal(riskRaw, &ra); err == nil {
			n.RiskAnalysis = &ra
		}
	}
	return n, nil
}

func collectNotices(rows pgx.Rows) ([]models.Notice, error) {
	defer rows.Close()
	var out []models.Notice
	for rows.Next() {
		n, err := scanNotice(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) GetNotice(ctx context.Context, id uuid.UUID) (*models.Notice, error) {
	sql := fmt.Sprintf(`SELECT %s FROM notices WHERE id = $1`, selectCols)
	n, err := scanNotice(s.pool.QueryRow(ctx, sql, id).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("notice %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get notice %s: %w", id, err)
	}
	return &n, nil
}

// buildNoticePatch renders the SET clause for the non-nil fields of patch.
// It returns an empty clause when there is nothing to write.
func buildNoticePatch(patch models.NoticePatch) (string, []interface{}, error) {
	var sets []string
	var args []interface{}
	argIdx := 1

	add := func(col string, v interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}

	if patch.RiskLevel != nil {
		add("risk_level", string(*patch.RiskLevel))
	}
	if patch.RiskScore != nil {
		add("risk_score", *patch.RiskScore)
	}
	if patch.RiskAnalysis != nil {
		raw, err := json.Marshal(patch.RiskAnalysis)
		if err != nil {
			return "", nil, fmt.Errorf("encode risk analysis: %w", err)
		}
		add("risk_analysis", raw)
	}
	if patch.Summary != nil {
		add("summary", *patch.Summary)
	}
	if len(sets) == 0 {
		return "", nil, nil
	}
	sets = append(sets, "updated_at = NOW()")
	return strings.Join(sets, ", "), args, nil
}

func (s *Store) UpdateNotice(ctx context.Context, id uuid.UUID, patch models.NoticePatch) error {
	set, args, err := buildNoticePatch(patch)
	if err != nil {
		return err
	}
	if set == "" {
		return nil
	}
	args = append(args, id)
	sql := fmt.Sprintf(`UPDATE notices SET %s WHERE id = $%d`, set, len(args))

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update notice %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notice %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// deadlineWindowWhere selects notices still open for proposals inside the
// window. Opening and request dates are derived per notice by the monitor.
const deadlineWindowWhere = `WHERE submission_deadline BETWEEN $1 AND $2`

// ListNoticesByDeadlineWindow returns notices whose submission deadline falls
// inside [start, end].
func (s *Store) ListNoticesByDeadlineWindow(ctx context.Context, start, end time.Time) ([]models.Notice, error) {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM notices
		%s
		ORDER BY submission_deadline ASC
	`, selectCols, deadlineWindowWhere)
	rows, err := s.pool.Query(ctx, sql, start, end)
	if err != nil {
		return nil, fmt.Errorf("list notices by deadline: %w", err)
	}
	return collectNotices(rows)
}

func (s *Store) ListNoticesByOrgan(ctx context.Context, organ string, excludeID uuid.UUID, limit int) ([]models.Notice, error) {
	if strings.TrimSpace(organ) == "" || limit <= 0 {
		return nil, nil
	}
	sql := fmt.Sprintf(`
		SELECT %s
		FROM notices
		WHERE lower(organ) = lower($1) AND id <> $2
		ORDER BY created_at DESC
		LIMIT $3
	`, selectCols)
	rows, err := s.pool.Query(ctx, sql, strings.TrimSpace(organ), excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notices by organ: %w", err)
	}
	return collectNotices(rows)
}

// buildNoticeWhere renders the WHERE clause for ListNotices.
func buildNoticeWhere(params ListParams) (string, []interface{}) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if q := strings.TrimSpace(params.Query); q != "" {
		where += fmt.Sprintf(" AND (title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", argIdx, argIdx)
		args = append(args, q)
		argIdx++
	}
	if organ := strings.TrimSpace(params.Organ); organ != "" {
		where += fmt.Sprintf(" AND organ ILIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, organ)
		argIdx++
	}
	if params.RiskLevel != "" {
		where += fmt.Sprintf(" AND risk_level = $%d", argIdx)
		args = append(args, params.RiskLevel)
	}
	if params.Unscored {
		where += " AND risk_level IS NULL"
	}
	return where, args
}

func (s *Store) ListNotices(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Limit <= 0 || params.Limit > 200 {
		params.Limit = 50
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	where, args := buildNoticeWhere(params)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM notices "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count notices: %w", err)
	}

	n := len(args)
	sql := fmt.Sprintf(`
		SELECT %s
		FROM notices
		%s
		ORDER BY submission_deadline ASC NULLS LAST, created_at DESC
		LIMIT $%d OFFSET $%d
	`, selectCols, where, n+1, n+2)
	rows, err := s.pool.Query(ctx, sql, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	notices, err := collectNotices(rows)
	if err != nil {
		return nil, err
	}
	if notices == nil {
		notices = []models.Notice{}
	}

	return &ListResult{Notices: notices, Total: total, Limit: params.Limit, Offset: params.Offset}, nil
}

func (s *Store) SaveDocumentResult(ctx context.Context, result *models.DocumentProcessingResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode document result: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO document_results (document_id, notice_id, document_url, document_type, processing_status, confidence_score, result, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (document_id) DO UPDATE SET
			notice_id = EXCLUDED.notice_id,
			document_url = EXCLUDED.document_url,
			document_type = EXCLUDED.document_type,
			processing_status = EXCLUDED.processing_status,
			confidence_score = EXCLUDED.confidence_score,
			result = EXCLUDED.result,
			processed_at = EXCLUDED.processed_at
	`, result.DocumentID, result.NoticeID, result.DocumentURL, string(result.DocumentType),
		string(result.ProcessingStatus), result.ConfidenceScore, raw, result.ProcessedAt)
	if err != nil {
		return fmt.Errorf("save document result %s: %w", result.DocumentID, err)
	}
	return nil
}

func (s *Store) GetDocumentResult(ctx context.Context, id uuid.UUID) (*models.DocumentProcessingResult, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT result FROM document_results WHERE document_id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get document result %s: %w", id, err)
	}
	var result models.DocumentProcessingResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode document result %s: %w", id, err)
	}
	return &result, nil
}

func (s *Store) SaveDeadlineAlerts(ctx context.Context, companyID string, result *models.DeadlineMonitorResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode deadline alerts: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO deadline_alerts (company_id, alert_count, result, generated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (company_id) DO UPDATE SET
			alert_count = EXCLUDED.alert_count,
			result = EXCLUDED.result,
			generated_at = EXCLUDED.generated_at
	`, companyID, len(result.Alerts), raw, result.GeneratedAt)
	if err != nil {
		return fmt.Errorf("save deadline alerts for %s: %w", companyID, err)
	}
	return nil
}

func (s *Store) SaveProposalInsights(ctx context.Context, insights *models.ProposalInsights) error {
	raw, err := json.Marshal(insights)
	if err != nil {
		return fmt.Errorf("encode proposal insights: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO proposal_insights (notice_id, company_name, win_score, insights, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (notice_id, company_name) DO UPDATE SET
			win_score = EXCLUDED.win_score,
			insights = EXCLUDED.insights,
			generated_at = EXCLUDED.generated_at
	`, insights.NoticeID, insights.CompanyName, insights.WinProbability.Score, raw, insights.GeneratedAt)
	if err != nil {
		return fmt.Errorf("save proposal insights for %s: %w", insights.NoticeID, err)
	}
	return nil
}

func (s *Store) FollowedNoticeIDs(ctx context.Context, companyID string) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT notice_id FROM company_followed_notices WHERE company_id = $1`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list followed notices: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan followed notice: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) FollowNotice(ctx context.Context, companyID string, noticeID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO company_followed_notices (company_id, notice_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, companyID, noticeID)
	if err != nil {
		return fmt.Errorf("follow notice %s: %w", noticeID, err)
	}
	return nil
}

func (s *Store) SetNoticeEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `UPDATE notices SET embedding = $1 WHERE id = $2`, pgvector.NewVector(embedding), id)
	if err != nil {
		return fmt.Errorf("set embedding for %s: %w", id, err)
	}
	return nil
}

// ListSimilarNotices orders embedded notices by cosine distance to embedding.
func (s *Store) ListSimilarNotices(ctx context.Context, embedding []float32, excludeID uuid.UUID, limit int) ([]models.SimilarNotice, error) {
	if len(embedding) == 0 || limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, organ, estimated_value, embedding <=> $1 AS distance
		FROM notices
		WHERE embedding IS NOT NULL AND id <> $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, pgvector.NewVector(embedding), excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("similar notices: %w", err)
	}
	defer rows.Close()

	var out []models.SimilarNotice
	for rows.Next() {
		var sn models.SimilarNotice
		if err := rows.Scan(&sn.NoticeID, &sn.Title, &sn.Organ, &sn.EstimatedValue, &sn.Distance); err != nil {
			return nil, fmt.Errorf("scan similar notice: %w", err)
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

type NoticeStats struct {
	Total       int            `json:"total"`
	Scored      int            `json:"scored"`
	Summarized  int            `json:"summarized"`
	Embedded    int            `json:"embedded"`
	Upcoming    int            `json:"upcoming"`
	ByRiskLevel map[string]int `json:"by_risk_level"`
}

func (s *Store) GetStats(ctx context.Context) (*NoticeStats, error) {
	stats := &NoticeStats{ByRiskLevel: map[string]int{}}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(risk_level),
			COUNT(summary),
			COUNT(embedding),
			COUNT(*) FILTER (WHERE submission_deadline > NOW())
		FROM notices
	`).Scan(&stats.Total, &stats.Scored, &stats.Summarized, &stats.Embedded, &stats.Upcoming)
	if err != nil {
		return nil, fmt.Errorf("notice stats: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT risk_level, COUNT(*) FROM notices WHERE risk_level IS NOT NULL GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("risk level counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("scan risk level count: %w", err)
		}
		stats.ByRiskLevel[level] = count
	}
	return stats, rows.Err()
}
