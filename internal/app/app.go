// Package app wires configuration, storage and the analyzers into one
// Toolbox shared by the server and the command-line tools.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/ai"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/analysis"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/config"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/db"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/documents"
)

type App struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	Store   *db.Store
	Toolbox *analysis.Toolbox

	Risk      *analysis.RiskClassifier
	Deadlines *analysis.DeadlineMonitor
}

// New connects to the database, applies migrations when configured and
// builds every analyzer. Close releases the pool.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.Database.ApplyMigrations {
		if err := db.ApplyMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	model, err := ai.NewModel(ctx, ai.ProviderConfig{
		Provider: cfg.AI.Provider,
		BaseURL:  cfg.AI.BaseURL,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		Timeout:  cfg.AI.Timeout(),
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("build ai model: %w", err)
	}
	if _, disabled := model.(ai.Disabled); disabled {
		log.Printf("[App] AI provider %q unavailable, analyzers will use heuristics only", cfg.AI.Provider)
	}
	invoker := ai.NewAdapter(model, ai.Options{
		Temperature: float32(cfg.AI.Temperature),
		MaxTokens:   cfg.AI.MaxTokens,
		JSONOutput:  true,
	})

	store := db.NewStore(pool)
	fetcher := documents.NewHTTPFetcher(cfg.Documents.Timeout(), cfg.Documents.MaxBytes)

	risk := analysis.NewRiskClassifier(store, invoker, time.Now)
	deadlines := analysis.NewDeadlineMonitor(store, store, cfg.Monitor.MaxAlerts, time.Now)
	proposals := analysis.NewProposalInsightGenerator(store, store, invoker, time.Now)
	if cfg.Embeddings.Enabled {
		embedder := ai.NewOllamaClient(cfg.Embeddings.BaseURL, cfg.Embeddings.Model, "", cfg.Embeddings.Timeout())
		proposals = proposals.WithSimilarity(embedder, store)
		log.Printf("[App] Similar-notice search enabled with %s", cfg.Embeddings.Model)
	}

	toolbox := analysis.NewToolbox(
		risk,
		analysis.NewDocumentExtractor(fetcher, store, invoker, cfg.Documents.MaxTextChars, time.Now),
		deadlines,
		proposals,
		analysis.NewSummaryGenerator(store, invoker),
	)

	return &App{
		Config:    cfg,
		Pool:      pool,
		Store:     store,
		Toolbox:   toolbox,
		Risk:      risk,
		Deadlines: deadlines,
	}, nil
}

func (a *App) Close() {
	a.Pool.Close()
}
