package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/analysis"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/app"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/config"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

func main() {
	companyID := flag.String("company", "", "company id to monitor")
	daysAhead := flag.Int("days", analysis.DefaultDaysAhead, "days ahead to look")
	typesCSV := flag.String("types", "", "comma-separated deadline types (submission,opening,clarification,impugnation)")
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "optional YAML config file")
	flag.Parse()

	if *companyID == "" {
		log.Fatal("-company is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	in := analysis.DeadlineInput{CompanyID: *companyID, DaysAhead: daysAhead}
	for _, raw := range strings.Split(*typesCSV, ",") {
		if t := strings.TrimSpace(raw); t != "" {
			in.DeadlineTypes = append(in.DeadlineTypes, models.DeadlineType(t))
		}
	}

	result, err := a.Deadlines.Monitor(ctx, in)
	if err != nil {
		log.Fatalf("monitor: %v", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Urgency", "Days", "Type", "Date", "Organ", "Notice", "Followed"})
	for _, alert := range result.Alerts {
		followed := ""
		if alert.Followed {
			followed = "*"
		}
		t.AppendRow(table.Row{
			alert.UrgencyLevel, alert.DaysRemaining, alert.DeadlineType,
			alert.DeadlineDate.Local().Format("02/01/2006 15:04"), alert.Organ, truncate(alert.NoticeTitle, 60), followed,
		})
	}
	s := result.Summary
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("overdue %d | today %d | week %d | next %d", s.Overdue, s.Today, s.ThisWeek, s.NextWeek), fmt.Sprintf("total %d", s.Total), ""})
	t.Render()

	for _, rec := range result.Recommendations {
		fmt.Println("- " + rec)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
