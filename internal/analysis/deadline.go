package analysis

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

const (
	DefaultDaysAhead = 7
	MaxDaysAhead     = 90
	DefaultMaxAlerts = 50

	// Clarification and impugnation requests close three days before submission.
	requestLeadDays = 3
)

type DeadlineInput struct {
	CompanyID         string                `json:"company_id" validate:"required"`
	DaysAhead         *int                  `json:"days_ahead" validate:"omitempty,min=1,max=90"`
	DeadlineTypes     []models.DeadlineType `json:"deadline_types" validate:"omitempty,dive,oneof=submission opening clarification impugnation"`
	FollowedNoticeIDs []uuid.UUID           `json:"followed_notice_ids"`
}

var calendarNamespace = uuid.MustParse("9b2e7c4a-3f1d-5a6b-8c9d-0e1f2a3b4c5d")

var deadlineLabels = map[models.DeadlineType]string{
	models.DeadlineSubmission:    "Entrega das propostas",
	models.DeadlineOpening:       "Abertura da sessão pública",
	models.DeadlineClarification: "Pedido de esclarecimentos",
	models.DeadlineImpugnation:   "Impugnação do edital",
}

// DeadlineMonitor builds the upcoming-deadline alert set for a company.
type DeadlineMonitor struct {
	notices   NoticeStore
	artifacts ArtifactStore
	maxAlerts int
	now       func() time.Time
}

func NewDeadlineMonitor(notices NoticeStore, artifacts ArtifactStore, maxAlerts int, now func() time.Time) *DeadlineMonitor {
	if maxAlerts <= 0 {
		maxAlerts = DefaultMaxAlerts
	}
	if now == nil {
		now = time.Now
	}
	return &DeadlineMonitor{notices: notices, artifacts: artifacts, maxAlerts: maxAlerts, now: now}
}

func (m *DeadlineMonitor) Monitor(ctx context.Context, in DeadlineInput) (*models.DeadlineMonitorResult, error) {
	daysAhead := DefaultDaysAhead
	if in.DaysAhead != nil {
		daysAhead = *in.DaysAhead
	}
	if daysAhead < 1 || daysAhead > MaxDaysAhead {
		return nil, &ValidationError{Tool: "monitor_deadlines", Fields: []string{fmt.Sprintf("days_ahead must be between 1 and %d", MaxDaysAhead)}}
	}
	types := normalizeDeadlineTypes(in.DeadlineTypes)

	now := m.now()
	notices, err := m.notices.ListNoticesByDeadlineWindow(ctx, now, now.AddDate(0, 0, daysAhead))
	if err != nil {
		return nil, fmt.Errorf("list notices by deadline: %w", err)
	}

	followed := make(map[uuid.UUID]bool, len(in.FollowedNoticeIDs))
	for _, id := range in.FollowedNoticeIDs {
		followed[id] = true
	}
	if m.artifacts != nil {
		ids, err := m.artifacts.FollowedNoticeIDs(ctx, in.CompanyID)
		if err != nil {
			log.Printf("[DeadlineMonitor] Could not load followed notices for %s: %v", in.CompanyID, err)
		}
		for _, id := range ids {
			followed[id] = true
		}
	}

	alerts := make([]models.DeadlineAlert, 0, len(notices)*len(types))
	for i := range notices {
		n := &notices[i]
		for _, t := range types {
			date, ok := deadlineDate(n, t)
			if !ok {
				continue
			}
			alerts = append(alerts, buildAlert(n, t, date, now, followed[n.ID]))
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := UrgencyRank(alerts[i].UrgencyLevel), UrgencyRank(alerts[j].UrgencyLevel)
		if ri != rj {
			return ri > rj
		}
		return alerts[i].DaysRemaining < alerts[j].DaysRemaining
	})

	summary := summarizeDeadlines(alerts)
	if len(alerts) > m.maxAlerts {
		alerts = alerts[:m.maxAlerts]
	}

	events := make([]models.CalendarEvent, 0, len(alerts))
	for _, a := range alerts {
		events = append(events, calendarEvent(a))
	}

	result := &models.DeadlineMonitorResult{
		CompanyID:       in.CompanyID,
		GeneratedAt:     now.UTC(),
		DaysAhead:       daysAhead,
		Alerts:          alerts,
		Summary:         summary,
		Recommendations: deadlineRecommendations(summary),
		CalendarEvents:  events,
		Source:          models.SourceHeuristic,
	}

	if m.artifacts != nil {
		if err := m.artifacts.SaveDeadlineAlerts(ctx, in.CompanyID, result); err != nil {
			log.Printf("[DeadlineMonitor] Failed to save alerts for %s: %v", in.CompanyID, err)
		}
	}

	log.Printf("[DeadlineMonitor] %d alerts for company %s (%d overdue, %d today)", len(alerts), in.CompanyID, summary.Overdue, summary.Today)
	return result, nil
}

func normalizeDeadlineTypes(requested []models.DeadlineType) []models.DeadlineType {
	if len(requested) == 0 {
		return models.AllDeadlineTypes
	}
	want := make(map[models.DeadlineType]bool, len(requested))
	for _, t := range requested {
		want[t] = true
	}
	var out []models.DeadlineType
	for _, t := range models.AllDeadlineTypes {
		if want[t] {
			out = append(out, t)
		}
	}
	return out
}

func deadlineDate(n *models.Notice, t models.DeadlineType) (time.Time, bool) {
	switch t {
	case models.DeadlineSubmission:
		if n.SubmissionDeadline != nil {
			return *n.SubmissionDeadline, true
		}
	case models.DeadlineOpening:
		if n.OpeningDate != nil {
			return *n.OpeningDate, true
		}
	case models.DeadlineClarification, models.DeadlineImpugnation:
		if n.SubmissionDeadline != nil {
			return n.SubmissionDeadline.AddDate(0, 0, -requestLeadDays), true
		}
	}
	return time.Time{}, false
}

func buildAlert(n *models.Notice, t models.DeadlineType, date, now time.Time, followed bool) models.DeadlineAlert {
	days := DaysUntil(now, date)
	status, urgency := DeadlineTier(days)
	if followed {
		urgency = UpgradeUrgency(urgency)
	}

	return models.DeadlineAlert{
		NoticeID:             n.ID,
		NoticeTitle:          n.Title,
		Organ:                n.Organ,
		DeadlineType:         t,
		DeadlineDate:         date,
		DaysRemaining:        days,
		UrgencyLevel:         urgency,
		Status:               status,
		Followed:             followed,
		ActionsRequired:      deadlineActions(t, days),
		PreparationChecklist: preparationChecklist(t, date),
	}
}

func daysBucket(days int) string {
	switch {
	case days < 0:
		return "overdue"
	case days == 0:
		return "today"
	case days <= 2:
		return "urgent"
	case days <= 5:
		return "soon"
	default:
		return "later"
	}
}

var actionTemplates = map[models.DeadlineType]map[string][]string{
	models.DeadlineSubmission: {
		"overdue": {"Verificar se o prazo foi prorrogado ou republicado", "Registrar a perda do prazo e revisar o processo interno"},
		"today":   {"Enviar a proposta no sistema imediatamente", "Conferir assinatura digital e anexos antes do envio"},
		"urgent":  {"Finalizar a proposta de preços", "Conferir validade das certidões de habilitação", "Agendar o envio com antecedência mínima de 2 horas"},
		"soon":    {"Concluir a planilha de custos", "Reunir a documentação de habilitação"},
		"later":   {"Ler o edital e os anexos na íntegra", "Definir a equipe responsável pela proposta"},
	},
	models.DeadlineOpening: {
		"overdue": {"Consultar a ata da sessão pública"},
		"today":   {"Acompanhar a sessão pública no sistema", "Manter um responsável disponível para a fase de lances"},
		"urgent":  {"Confirmar credenciamento no sistema de compras", "Definir o preço mínimo para a fase de lances"},
		"soon":    {"Confirmar credenciamento no sistema de compras"},
		"later":   {"Incluir a sessão pública na agenda da equipe"},
	},
	models.DeadlineClarification: {
		"overdue": {"Prazo de esclarecimentos encerrado; acompanhar respostas publicadas"},
		"today":   {"Protocolar hoje o pedido de esclarecimentos"},
		"urgent":  {"Redigir e protocolar o pedido de esclarecimentos"},
		"soon":    {"Levantar pontos obscuros do edital"},
		"later":   {"Revisar o edital em busca de dúvidas a esclarecer"},
	},
	models.DeadlineImpugnation: {
		"overdue": {"Prazo de impugnação encerrado; avaliar riscos das cláusulas restritivas"},
		"today":   {"Protocolar hoje a impugnação, se cabível"},
		"urgent":  {"Redigir a impugnação com fundamentação legal"},
		"soon":    {"Identificar cláusulas restritivas à competitividade"},
		"later":   {"Analisar a legalidade das exigências do edital"},
	},
}

func deadlineActions(t models.DeadlineType, days int) []string {
	actions := actionTemplates[t][daysBucket(days)]
	out := make([]string, len(actions))
	copy(out, actions)
	return out
}

type checklistStep struct {
	item     string
	offset   time.Duration
	priority string
}

var checklistTemplates = map[models.DeadlineType][]checklistStep{
	models.DeadlineSubmission: {
		{"Ler o edital e os anexos", -5 * 24 * time.Hour, "alta"},
		{"Reunir documentos de habilitação", -3 * 24 * time.Hour, "alta"},
		{"Elaborar a proposta de preços", -2 * 24 * time.Hour, "alta"},
		{"Revisar e assinar a proposta", -24 * time.Hour, "média"},
		{"Enviar a proposta no sistema", -2 * time.Hour, "alta"},
	},
	models.DeadlineOpening: {
		{"Confirmar credenciamento no sistema", -24 * time.Hour, "alta"},
		{"Definir estratégia de lances", -24 * time.Hour, "média"},
		{"Acompanhar a sessão pública", 0, "alta"},
	},
	models.DeadlineClarification: {
		{"Listar dúvidas sobre o edital", -2 * 24 * time.Hour, "média"},
		{"Protocolar o pedido de esclarecimentos", 0, "alta"},
	},
	models.DeadlineImpugnation: {
		{"Analisar cláusulas restritivas", -2 * 24 * time.Hour, "média"},
		{"Protocolar a impugnação", 0, "alta"},
	},
}

func preparationChecklist(t models.DeadlineType, deadline time.Time) []models.ChecklistItem {
	steps := checklistTemplates[t]
	items := make([]models.ChecklistItem, 0, len(steps))
	for _, s := range steps {
		items = append(items, models.ChecklistItem{
			Item:     s.item,
			Deadline: deadline.Add(s.offset),
			Priority: s.priority,
		})
	}
	return items
}

func calendarEvent(a models.DeadlineAlert) models.CalendarEvent {
	key := fmt.Sprintf("%s|%s|%s", a.NoticeID, a.DeadlineType, a.DeadlineDate.UTC().Format(time.RFC3339))
	return models.CalendarEvent{
		ID:              uuid.NewSHA1(calendarNamespace, []byte(key)),
		NoticeID:        a.NoticeID,
		Title:           fmt.Sprintf("%s: %s", deadlineLabels[a.DeadlineType], a.NoticeTitle),
		Description:     fmt.Sprintf("%s (%s)", a.Organ, FormatBRDate(a.DeadlineDate)),
		Start:           a.DeadlineDate,
		ReminderMinutes: []int{24 * 60, 60},
	}
}

func summarizeDeadlines(alerts []models.DeadlineAlert) models.DeadlineSummary {
	var s models.DeadlineSummary
	for _, a := range alerts {
		switch d := a.DaysRemaining; {
		case d < 0:
			s.Overdue++
		case d == 0:
			s.Today++
		case d <= 7:
			s.ThisWeek++
		case d <= 14:
			s.NextWeek++
		}
	}
	s.Total = len(alerts)
	return s
}

func deadlineRecommendations(s models.DeadlineSummary) []string {
	var recs []string
	if s.Overdue > 0 {
		recs = append(recs, fmt.Sprintf("%d prazo(s) vencido(s): verifique prorrogações e registre as perdas", s.Overdue))
	}
	if s.Today > 0 {
		recs = append(recs, fmt.Sprintf("%d prazo(s) vencem hoje: priorize o envio imediato", s.Today))
	}
	if s.ThisWeek > 0 {
		recs = append(recs, fmt.Sprintf("%d prazo(s) nesta semana: organize a equipe e a documentação", s.ThisWeek))
	}
	if s.NextWeek > 0 {
		recs = append(recs, fmt.Sprintf("%d prazo(s) na próxima semana: planeje a preparação com antecedência", s.NextWeek))
	}
	if len(recs) == 0 {
		recs = append(recs, "Nenhum prazo relevante no período monitorado")
	}
	return recs
}
