package main

import (
	"context"
	"log"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/config"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/db"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	stats, err := db.NewStore(pool).GetStats(ctx)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Metric", "Count"})
	t.AppendRows([]table.Row{
		{"Notices", stats.Total},
		{"Risk classified", stats.Scored},
		{"Summarized", stats.Summarized},
		{"Embedded", stats.Embedded},
		{"Open for proposals", stats.Upcoming},
	})
	t.AppendSeparator()

	levels := make([]string, 0, len(stats.ByRiskLevel))
	for level := range stats.ByRiskLevel {
		levels = append(levels, level)
	}
	sort.Strings(levels)
	for _, level := range levels {
		t.AppendRow(table.Row{"Risk " + level, stats.ByRiskLevel[level]})
	}
	t.Render()
}
