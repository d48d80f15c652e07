package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/analysis"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/app"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/config"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/db"
)

func main() {
	all := flag.Bool("all", false, "reclassify every notice, not only unscored ones")
	maxItems := flag.Int("max-items", 200, "max notices to classify")
	profile := flag.String("profile", "", "company profile passed to the classifier")
	perNoticeTimeoutSec := flag.Int("notice-timeout-sec", 90, "timeout per notice")
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "optional YAML config file")
	flag.Parse()

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

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Notice", "Organ", "Score", "Level", "Source", "Error"})

	classified, failed := 0, 0
	for offset := 0; offset < *maxItems; {
		params := db.ListParams{Unscored: !*all, Limit: min(100, *maxItems-offset)}
		if *all {
			params.Offset = offset
		}
		page, err := a.Store.ListNotices(ctx, params)
		if err != nil {
			log.Fatalf("list notices: %v", err)
		}
		if len(page.Notices) == 0 {
			break
		}

		progressed := false
		for _, n := range page.Notices {
			noticeCtx, cancel := context.WithTimeout(ctx, time.Duration(*perNoticeTimeoutSec)*time.Second)
			res, err := a.Risk.Classify(noticeCtx, analysis.RiskInput{NoticeID: n.ID, CompanyProfile: *profile})
			cancel()

			if err != nil {
				failed++
				t.AppendRow(table.Row{n.ID.String()[:8], n.Organ, "-", "-", "-", err.Error()})
				continue
			}
			classified++
			progressed = true
			t.AppendRow(table.Row{n.ID.String()[:8], n.Organ, res.RiskScore, res.RiskLevel, res.Source, ""})
		}
		offset += len(page.Notices)

		// Unscored pages shrink as notices get classified; stop if a page made no progress.
		if !*all && !progressed {
			break
		}
	}

	t.AppendFooter(table.Row{"", "", "", "", "classified", classified})
	t.AppendFooter(table.Row{"", "", "", "", "failed", failed})
	t.Render()
}
