package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

func submissionOnly() []models.DeadlineType {
	return []models.DeadlineType{models.DeadlineSubmission}
}

func TestMonitorDeadlineExactlyNowIsToday(t *testing.T) {
	notice := newNotice(func(n *models.Notice) { n.SubmissionDeadline = timePtr(fixedNow) })
	monitor := NewDeadlineMonitor(newMemStore(notice), nil, 0, clock)

	got, err := monitor.Monitor(context.Background(), DeadlineInput{CompanyID: "acme", DeadlineTypes: submissionOnly()})
	if err != nil {
		t.Fatalf("Monitor() error = %v", err)
	}
	if len(got.Alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(got.Alerts))
	}
	a := got.Alerts[0]
	if a.Status != models.DeadlineToday || a.UrgencyLevel != models.UrgencyCritical || a.DaysRemaining != 0 {
		t.Fatalf("got %s/%s/%d, want today/crítica/0", a.Status, a.UrgencyLevel, a.DaysRemaining)
	}
	if got.Summary.Today != 1 || got.Summary.Total != 1 {
		t.Fatalf("summary = %+v", got.Summary)
	}
}

func TestMonitorFollowedNoticeIsUpgraded(t *testing.T) {
	notice := newNotice(func(n *models.Notice) { n.SubmissionDeadline = timePtr(fixedNow.Add(24 * time.Hour)) })

	monitor := NewDeadlineMonitor(newMemStore(notice), nil, 0, clock)
	got, err := monitor.Monitor(context.Background(), DeadlineInput{CompanyID: "acme", DeadlineTypes: submissionOnly()})
	if err != nil {
		t.Fatalf("Monitor() error = %v", err)
	}
	a := got.Alerts[0]
	if a.Status != models.DeadlineUpcoming || a.UrgencyLevel != models.UrgencyHigh || a.Followed {
		t.Fatalf("not followed: got %s/%s followed=%v, want upcoming/alta", a.Status, a.UrgencyLevel, a.Followed)
	}

	got, err = monitor.Monitor(context.Background(), DeadlineInput{
		CompanyID:         "acme",
		DeadlineTypes:     submissionOnly(),
		FollowedNoticeIDs: []uuid.UUID{notice.ID},
	})
	if err != nil {
		t.Fatalf("Monitor() error = %v", err)
	}
	a = got.Alerts[0]
	if a.UrgencyLevel != models.UrgencyCritical || !a.Followed {
		t.Fatalf("followed: got %s followed=%v, want crítica", a.UrgencyLevel, a.Followed)
	}
}

func TestMonitorReadsFollowedNoticesFromStore(t *testing.T) {
	notice := newNotice(func(n *models.Notice) { n.SubmissionDeadline = timePtr(fixedNow.Add(4 * 24 * time.Hour)) })
	store := newMemStore(notice)
	store.followed["acme"] = []uuid.UUID{notice.ID}

	monitor := NewDeadlineMonitor(store, store, 0, clock)
	got, err := monitor.Monitor(context.Background(), DeadlineInput{CompanyID: "acme", DeadlineTypes: submissionOnly()})
	if err != nil {
		t.Fatalf("Monitor() error = %v", err)
	}
	if got.Alerts[0].UrgencyLevel != models.UrgencyHigh {
		t.Fatalf("urgency = %s, want média upgraded to alta", got.Alerts[0].UrgencyLevel)
	}
	if store.alerts["acme"] != got {
		t.Fatal("expected the result to be saved for the company")
	}
}

func TestMonitorAllTypesOrderAndSummary(t *testing.T) {
	soon := newNotice(func(n *models.Notice) {
		n.SubmissionDeadline = timePtr(fixedNow.Add(2 * 24 * time.Hour))
		n.OpeningDate = timePtr(fixedNow.Add(2*24*time.Hour + time.Hour))
	})
	later := newNotice(func(n *models.Notice) {
		n.Title = "Serviços de limpeza"
		n.SubmissionDeadline = timePtr(fixedNow.Add(6 * 24 * time.Hour))
	})
	monitor := NewDeadlineMonitor(newMemStore(later, soon), nil, 0, clock)

	got, err := monitor.Monitor(context.Background(), DeadlineInput{CompanyID: "acme"})
	if err != nil {
		t.Fatalf("Monitor() error = %v", err)
	}

	// soon: submission +2 (alta), opening +3 (média), clarification/impugnation -1 (overdue).
	// later: submission +6 (baixa), clarification/impugnation +3 (média).
	if len(got.Alerts) != 7 {
		t.Fatalf("expected 7 alerts, got %d", len(got.Alerts))
	}
	for i := 1; i < len(got.Alerts); i++ {
		prev, cur := got.Alerts[i-1], got.Alerts[i]
		if UrgencyRank(prev.UrgencyLevel) < UrgencyRank(cur.UrgencyLevel) {
			t.Fatalf("alerts not sorted by urgency at %d: %s before %s", i, prev.UrgencyLevel, cur.UrgencyLevel)
		}
		if prev.UrgencyLevel == cur.UrgencyLevel && prev.DaysRemaining > cur.DaysRemaining {
			t.Fatalf("alerts not sorted by days at %d", i)
		}
	}
	if got.Alerts[0].Status != models.DeadlineOverdue {
		t.Fatalf("first alert = %+v, want an overdue request deadline", got.Alerts[0])
	}

	s := got.Summary
	if s.Overdue != 2 || s.ThisWeek != 5 || s.Today != 0 || s.Total != 7 {
		t.Fatalf("summary = %+v", s)
	}
	if len(got.CalendarEvents) != len(got.Alerts) {
		t.Fatalf("expected one calendar event per alert")
	}
	if len(got.Recommendations) == 0 {
		t.Fatal("expected recommendations")
	}
	for _, a := range got.Alerts {
		if len(a.ActionsRequired) == 0 || len(a.PreparationChecklist) == 0 {
			t.Fatalf("alert without actions or checklist: %+v", a)
		}
	}
}

func TestMonitorCapsAlertsButCountsAll(t *testing.T) {
	var notices []*models.Notice
	for i := 0; i < 4; i++ {
		d := fixedNow.Add(time.Duration(i+1) * 24 * time.Hour)
		notices = append(notices, newNotice(func(n *models.Notice) { n.SubmissionDeadline = &d }))
	}
	monitor := NewDeadlineMonitor(newMemStore(notices...), nil, 2, clock)

	got, err := monitor.Monitor(context.Background(), DeadlineInput{CompanyID: "acme", DeadlineTypes: submissionOnly()})
	if err != nil {
		t.Fatalf("Monitor() error = %v", err)
	}
	if len(got.Alerts) != 2 || got.Summary.Total != 4 {
		t.Fatalf("got %d alerts, total %d; want 2 and 4", len(got.Alerts), got.Summary.Total)
	}
}

func TestMonitorWindowIsSubmissionDeadline(t *testing.T) {
	closed := newNotice(func(n *models.Notice) {
		n.SubmissionDeadline = timePtr(fixedNow.Add(-24 * time.Hour))
		n.OpeningDate = timePtr(fixedNow.Add(2 * 24 * time.Hour))
	})
	store := newMemStore(closed)
	monitor := NewDeadlineMonitor(store, nil, 0, clock)

	days := 7
	got, err := monitor.Monitor(context.Background(), DeadlineInput{CompanyID: "acme", DaysAhead: &days})
	if err != nil {
		t.Fatalf("Monitor() error = %v", err)
	}
	if len(got.Alerts) != 0 || got.Summary.Overdue != 0 {
		t.Fatalf("closed notice must not alert: %d alerts, summary %+v", len(got.Alerts), got.Summary)
	}
	if len(store.windows) != 1 {
		t.Fatalf("expected one window query, got %d", len(store.windows))
	}
	w := store.windows[0]
	if !w[0].Equal(fixedNow) || !w[1].Equal(fixedNow.AddDate(0, 0, 7)) {
		t.Fatalf("window = [%s, %s], want [now, now+7d]", w[0], w[1])
	}
}

func TestMonitorCalendarIDsAreStable(t *testing.T) {
	notice := newNotice(func(n *models.Notice) { n.SubmissionDeadline = timePtr(fixedNow.Add(3 * 24 * time.Hour)) })
	monitor := NewDeadlineMonitor(newMemStore(notice), nil, 0, clock)

	first, _ := monitor.Monitor(context.Background(), DeadlineInput{CompanyID: "acme", DeadlineTypes: submissionOnly()})
	second, _ := monitor.Monitor(context.Background(), DeadlineInput{CompanyID: "acme", DeadlineTypes: submissionOnly()})
	if first.CalendarEvents[0].ID != second.CalendarEvents[0].ID {
		t.Fatal("calendar event ids must be deterministic")
	}
}

func TestMonitorRejectsDaysAheadOutOfRange(t *testing.T) {
	monitor := NewDeadlineMonitor(newMemStore(), nil, 0, clock)
	for _, days := range []int{0, 91} {
		d := days
		_, err := monitor.Monitor(context.Background(), DeadlineInput{CompanyID: "acme", DaysAhead: &d})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("days_ahead=%d: expected *ValidationError, got %v", days, err)
		}
	}
}
