package analysis

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/ai"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/documents"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

type DocumentInput struct {
	URL                 string              `json:"url" validate:"omitempty,url"`
	Content             string              `json:"content" validate:"required_without=URL"`
	DocumentType        models.DocumentType `json:"document_type" validate:"omitempty,oneof=edital anexo ata resultado"`
	ExtractTables       *bool               `json:"extract_tables"`
	ExtractRequirements *bool               `json:"extract_requirements"`
	NoticeID            *uuid.UUID          `json:"notice_id"`
}

var (
	documentURLNamespace     = uuid.NameSpaceURL
	documentContentNamespace = uuid.MustParse("4f8c1a2e-6b7d-5e3f-9a0b-1c2d3e4f5a6b")
)

// DocumentExtractor turns a notice document into structured fields.
type DocumentExtractor struct {
	fetcher      DocumentFetcher
	artifacts    ArtifactStore
	ai           ai.Invoker
	maxTextChars int
	now          func() time.Time
}

func NewDocumentExtractor(fetcher DocumentFetcher, artifacts ArtifactStore, invoker ai.Invoker, maxTextChars int, now func() time.Time) *DocumentExtractor {
	if now == nil {
		now = time.Now
	}
	return &DocumentExtractor{
		fetcher:      fetcher,
		artifacts:    artifacts,
		ai:           invoker,
		maxTextChars: maxTextChars,
		now:          now,
	}
}

// Extract processes one document. Download, type and read failures return a
// failed result together with the error; everything else degrades to heuristics.
func (e *DocumentExtractor) Extract(ctx context.Context, in DocumentInput) (*models.DocumentProcessingResult, error) {
	extractTables := in.ExtractTables == nil || *in.ExtractTables
	extractRequirements := in.ExtractRequirements == nil || *in.ExtractRequirements

	result := &models.DocumentProcessingResult{
		DocumentID:   documentID(in),
		NoticeID:     in.NoticeID,
		DocumentURL:  in.URL,
		DocumentType: in.DocumentType,
		Source:       models.SourceHeuristic,
		ProcessedAt:  e.now().UTC(),
	}
	if result.DocumentType == "" {
		result.DocumentType = models.DocumentEdital
	}
	resetDocumentFields(result)

	extracted, err := e.load(ctx, in)
	if err != nil {
		log.Printf("[DocumentExtractor] Failed to load %s: %v", describeDocument(in), err)
		result.ProcessingStatus = models.ProcessingFailed
		result.Errors = []string{err.Error()}
		e.persist(ctx, result)
		return result, err
	}

	text := documents.TruncateText(documents.CleanText(extracted.Text), e.maxTextChars)
	result.ExtractedText = text
	if extractTables && len(extracted.Tables) > 0 {
		result.ExtractedTables = extracted.Tables
	}

	if keyInfo, err := e.keyInformationWithAI(ctx, text); err == nil {
		result.KeyInformation = keyInfo
		result.Source = models.SourceAI
	} else {
		if text != "" {
			log.Printf("[DocumentExtractor] AI key information unavailable for %s, using regex: %v", describeDocument(in), err)
		}
		result.KeyInformation = ExtractKeyInformationFallback(text)
	}

	if extractRequirements {
		if reqs, err := e.requirementsWithAI(ctx, text); err == nil {
			result.ExtractedRequirements = reqs
		} else {
			result.ExtractedRequirements = ExtractRequirementsFallback(text)
		}
	}

	result.ConfidenceScore = DocumentConfidence(text, result.ExtractedTables)
	result.ProcessingStatus = models.ProcessingSuccess
	if text == "" || result.KeyInformation.IsEmpty() || (extractRequirements && len(result.ExtractedRequirements) == 0) {
		result.ProcessingStatus = models.ProcessingPartial
	}

	e.persist(ctx, result)
	return result, nil
}

func (e *DocumentExtractor) load(ctx context.Context, in DocumentInput) (*documents.Extracted, error) {
	if in.URL == "" {
		return documents.ReadText([]byte(in.Content)), nil
	}

	format, ext, ok := documents.FormatFromURL(in.URL)
	if !ok {
		return nil, &UnsupportedTypeError{Extension: ext}
	}

	if e.fetcher == nil {
		return nil, &DownloadError{URL: in.URL, Err: fmt.Errorf("no fetcher configured")}
	}
	fetched, err := e.fetcher.Fetch(ctx, in.URL)
	if err != nil {
		return nil, &DownloadError{URL: in.URL, Err: err}
	}

	extracted, err := documents.Read(format, fetched.Body)
	if err != nil {
		return nil, &ParseError{Format: string(format), Err: err}
	}
	return extracted, nil
}

func (e *DocumentExtractor) persist(ctx context.Context, result *models.DocumentProcessingResult) {
	if e.artifacts == nil {
		return
	}
	if err := e.artifacts.SaveDocumentResult(ctx, result); err != nil {
		log.Printf("[DocumentExtractor] Failed to save result %s: %v", result.DocumentID, err)
	}
}

func resetDocumentFields(r *models.DocumentProcessingResult) {
	r.ExtractedText = ""
	r.ExtractedTables = []models.Table{}
	r.ExtractedRequirements = []models.Requirement{}
	r.KeyInformation = models.KeyInformation{
		Dates:     []models.DateInfo{},
		Values:    []models.ValueInfo{},
		Contacts:  []models.Contact{},
		Addresses: []string{},
	}
	r.ConfidenceScore = 0
	r.Errors = []string{}
}

func documentID(in DocumentInput) uuid.UUID {
	if in.URL != "" {
		return uuid.NewSHA1(documentURLNamespace, []byte(in.URL))
	}
	return uuid.NewSHA1(documentContentNamespace, []byte(in.Content))
}

func describeDocument(in DocumentInput) string {
	if in.URL != "" {
		return in.URL
	}
	return fmt.Sprintf("inline content (%d bytes)", len(in.Content))
}

// DocumentConfidence is 50, +20 for more than 1000 characters, +15 with any
// table, +15 when the text mentions "licitação" or "edital"; capped at 100.
func DocumentConfidence(text string, tables []models.Table) int {
	score := 50
	if len(text) > 1000 {
		score += 20
	}
	if len(tables) > 0 {
		score += 15
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "licitação") || strings.Contains(lower, "edital") {
		score += 15
	}
	return Clamp(score, 0, 100)
}

const aiTextLimit = 12000

type keyInfoPayload struct {
	Dates []struct {
		Date    string `json:"date"`
		Context string `json:"context"`
	} `json:"dates"`
	Values []struct {
		Amount  ai.LooseFloat `json:"amount"`
		Raw     string        `json:"raw"`
		Context string        `json:"context"`
	} `json:"values"`
	Contacts []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
		Role  string `json:"role"`
	} `json:"contacts"`
	Addresses []string `json:"addresses"`
}

const keyInfoSchema = `{
  "dates": [{"date": "DD/MM/AAAA", "context": "string"}],
  "values": [{"amount": 0.0, "raw": "R$ 0,00", "context": "string"}],
  "contacts": [{"name": "string", "email": "string", "phone": "string", "role": "string"}],
  "addresses": ["string"]
}`

func (e *DocumentExtractor) keyInformationWithAI(ctx context.Context, text string) (models.KeyInformation, error) {
	if e.ai == nil || strings.TrimSpace(text) == "" {
		return models.KeyInformation{}, ai.ErrInvocationFailed
	}

	prompt := "Extraia do documento de licitação abaixo todas as datas, valores monetários, contatos e endereços.\n\n" +
		documents.TruncateText(text, aiTextLimit)
	inv, err := e.ai.Invoke(ctx, prompt, keyInfoSchema)
	if err != nil {
		return models.KeyInformation{}, err
	}
	var p keyInfoPayload
	if err := inv.Decode(&p); err != nil {
		return models.KeyInformation{}, err
	}

	info := models.KeyInformation{
		Dates:     []models.DateInfo{},
		Values:    []models.ValueInfo{},
		Contacts:  []models.Contact{},
		Addresses: []string{},
	}
	for _, d := range p.Dates {
		if date, ok := normalizeDate(d.Date); ok {
			info.Dates = append(info.Dates, models.DateInfo{Date: date, Context: d.Context})
		}
	}
	for _, v := range p.Values {
		if v.Amount <= 0 {
			continue
		}
		info.Values = append(info.Values, models.ValueInfo{Amount: roundMoney(float64(v.Amount)), Raw: v.Raw, Context: v.Context})
	}
	for _, c := range p.Contacts {
		if c.Email == "" && c.Phone == "" {
			continue
		}
		info.Contacts = append(info.Contacts, models.Contact{Name: c.Name, Email: c.Email, Phone: c.Phone, Role: c.Role})
	}
	for _, a := range p.Addresses {
		if a = strings.TrimSpace(a); a != "" {
			info.Addresses = append(info.Addresses, a)
		}
	}
	return info, nil
}

type requirementsPayload struct {
	Requirements []struct {
		Category    string          `json:"category"`
		Requirement string          `json:"requirement"`
		Mandatory   ai.FlexibleBool `json:"mandatory"`
		Details     string          `json:"details"`
	} `json:"requirements"`
}

const requirementsSchema = `{
  "requirements": [{"category": "habilitação jurídica|regularidade fiscal|qualificação técnica|qualificação econômico-financeira|proposta|geral", "requirement": "string", "mandatory": true, "details": "string"}]
}`

// requirementsWithAI is a separate pass from key information to keep each
// prompt small.
func (e *DocumentExtractor) requirementsWithAI(ctx context.Context, text string) ([]models.Requirement, error) {
	if e.ai == nil || strings.TrimSpace(text) == "" {
		return nil, ai.ErrInvocationFailed
	}

	prompt := "Liste os requisitos de habilitação e de proposta exigidos pelo documento de licitação abaixo.\n\n" +
		documents.TruncateText(text, aiTextLimit)
	inv, err := e.ai.Invoke(ctx, prompt, requirementsSchema)
	if err != nil {
		return nil, err
	}
	var p requirementsPayload
	if err := inv.Decode(&p); err != nil {
		return nil, err
	}

	reqs := []models.Requirement{}
	for _, r := range p.Requirements {
		if strings.TrimSpace(r.Requirement) == "" {
			continue
		}
		category := r.Category
		if category == "" {
			category = "geral"
		}
		reqs = append(reqs, models.Requirement{
			Category:    category,
			Requirement: strings.TrimSpace(r.Requirement),
			Mandatory:   bool(r.Mandatory),
			Details:     r.Details,
		})
	}
	return reqs, nil
}

func normalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if t, ok := ParseBRDate(s); ok {
		return t.Format("02/01/2006"), true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("02/01/2006"), true
	}
	return "", false
}
