package models

import (
	"time"

	"github.com/google/uuid"
)

type DeadlineType string

const (
	DeadlineSubmission    DeadlineType = "submission"
	DeadlineOpening       DeadlineType = "opening"
	DeadlineClarification DeadlineType = "clarification"
	DeadlineImpugnation   DeadlineType = "impugnation"
)

// AllDeadlineTypes is the default set scanned by the monitor.
var AllDeadlineTypes = []DeadlineType{
	DeadlineSubmission,
	DeadlineOpening,
	DeadlineClarification,
	DeadlineImpugnation,
}

type Urgency string

const (
	UrgencyLow      Urgency = "baixa"
	UrgencyMedium   Urgency = "média"
	UrgencyHigh     Urgency = "alta"
	UrgencyCritical Urgency = "crítica"
)

type DeadlineStatus string

const (
	DeadlineUpcoming DeadlineStatus = "upcoming"
	DeadlineToday    DeadlineStatus = "today"
	DeadlineOverdue  DeadlineStatus = "overdue"
)

type ChecklistItem struct {
	Item      string    `json:"item"`
	Completed bool      `json:"completed"`
	Deadline  time.Time `json:"deadline"`
	Priority  string    `json:"priority"`
}

type DeadlineAlert struct {
	NoticeID             uuid.UUID       `json:"notice_id"`
	NoticeTitle          string          `json:"notice_title"`
	Organ                string          `json:"organ"`
	DeadlineType         DeadlineType    `json:"deadline_type"`
	DeadlineDate         time.Time       `json:"deadline_date"`
	DaysRemaining        int             `json:"days_remaining"`
	UrgencyLevel         Urgency         `json:"urgency_level"`
	Status               DeadlineStatus  `json:"status"`
	Followed             bool            `json:"followed"`
	ActionsRequired      []string        `json:"actions_required"`
	PreparationChecklist []ChecklistItem `json:"preparation_checklist"`
}

type CalendarEvent struct {
	ID              uuid.UUID `json:"id"`
	NoticeID        uuid.UUID `json:"notice_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Start           time.Time `json:"start"`
	ReminderMinutes []int     `json:"reminder_minutes"`
}

type DeadlineSummary struct {
	Today    int `json:"today"`
	ThisWeek int `json:"this_week"`
	NextWeek int `json:"next_week"`
	Overdue  int `json:"overdue"`
	Total    int `json:"total"`
}

// DeadlineMonitorResult is the alert set produced for one company.
type DeadlineMonitorResult struct {
	CompanyID       string          `json:"company_id"`
	GeneratedAt     time.Time       `json:"generated_at"`
	DaysAhead       int             `json:"days_ahead"`
	Alerts          []DeadlineAlert `json:"alerts"`
	Summary         DeadlineSummary `json:"summary"`
	Recommendations []string        `json:"recommendations"`
	CalendarEvents  []CalendarEvent `json:"calendar_events"`
	Source          ResultSource    `json:"source"`
}
