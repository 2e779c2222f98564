// The curator server wires the discovery and extraction pipelines behind a
// small HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-curator/internal/agent"
	"github.com/p-n-ai/pai-curator/internal/chunk"
	"github.com/p-n-ai/pai-curator/internal/curriculum"
	"github.com/p-n-ai/pai-curator/internal/discovery"
	"github.com/p-n-ai/pai-curator/internal/embed"
	"github.com/p-n-ai/pai-curator/internal/extract"
	"github.com/p-n-ai/pai-curator/internal/extraction"
	"github.com/p-n-ai/pai-curator/internal/job"
	"github.com/p-n-ai/pai-curator/internal/knownsource"
	"github.com/p-n-ai/pai-curator/internal/platform/cache"
	"github.com/p-n-ai/pai-curator/internal/platform/config"
	"github.com/p-n-ai/pai-curator/internal/platform/database"
	"github.com/p-n-ai/pai-curator/internal/report"
	"github.com/p-n-ai/pai-curator/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	app, err := newApp(ctx, cfg, db)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newMux(app),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Minute, // pipeline runs are slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogging(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// app holds the wired pipeline services.
type app struct {
	db         *database.DB
	cache      *cache.Cache
	discovery  *discovery.Service
	extraction *extraction.Service
	sources    source.Store
	maxSources int // default per-run source cap, 0 means no limit

	// Curriculum maps of this process's discovery runs, kept for report
	// export. Rebuilt by re-running discovery after a restart.
	mu   sync.RWMutex
	maps map[string]*curriculum.Map
}

func newApp(ctx context.Context, cfg *config.Config, db *database.DB) (*app, error) {
	sources, err := source.NewPostgresStore(db.Pool)
	if err != nil {
		return nil, err
	}
	chunks, err := chunk.NewPostgresStore(db.Pool)
	if err != nil {
		return nil, err
	}
	jobs, err := job.NewPostgresStore(db.Pool)
	if err != nil {
		return nil, err
	}
	knownStore, err := knownsource.NewPostgresStore(db.Pool)
	if err != nil {
		return nil, err
	}

	// The cache is an optimization; run without it when unreachable.
	var known knownsource.Store = knownStore
	c, err := cache.New(ctx, cfg.Cache.URL)
	if err != nil {
		slog.Warn("cache unavailable, lookups go straight to the database", "error", err)
		c = nil
	} else {
		known = knownsource.NewCachedStore(knownStore, c, time.Duration(cfg.Cache.TTL)*time.Second)
	}

	if err := knownsource.Seed(ctx, knownStore, cfg.SeedPath); err != nil {
		return nil, fmt.Errorf("seeding known sources: %w", err)
	}

	var oracle agent.Oracle
	var pages extract.PageReader
	if cfg.HasAgent() {
		client := agent.NewClient(cfg.Agent.BaseURL, cfg.Agent.APIKey,
			agent.WithMaxSteps(cfg.Agent.MaxSteps))
		oracle = client
		pages = client
	} else {
		slog.Warn("browser agent not configured, discovery is limited to cached sources")
	}

	embedder := embed.NewClient(cfg.Embedding.APIKey,
		embed.WithBaseURL(cfg.Embedding.BaseURL),
		embed.WithModel(cfg.Embedding.Model),
		embed.WithDimensions(cfg.Embedding.Dimensions),
		embed.WithBatchSize(cfg.Embedding.BatchSize),
	)

	dispatcher := extract.NewDispatcher(
		extract.NewHTMLExtractor(pages, http.DefaultClient),
		extract.NewPDFExtractor(http.DefaultClient, cfg.Pipeline.PDFMode),
		extract.NewVideoExtractor(cfg.Pipeline.VideoEnabled, pages),
	)

	chunker := chunk.New(chunk.Config{
		MinWords: cfg.Pipeline.MinChunkWords,
		MaxWords: cfg.Pipeline.MaxChunkWords,
		Mode:     cfg.Pipeline.ChunkingMode,
	})

	tracker := job.NewTracker(jobs)

	return &app{
		db:    db,
		cache: c,
		discovery: discovery.NewService(oracle, knownsource.NewMatcher(known), sources, tracker,
			discovery.Config{
				MinTotalScore:   cfg.Pipeline.MinTotalScore,
				MinLicenseScore: cfg.Pipeline.MinLicenseScore,
			}),
		extraction: extraction.NewService(sources, chunks, dispatcher, chunker, embedder, tracker,
			time.Duration(cfg.Pipeline.SourceDelaySecs)*time.Second),
		sources:    sources,
		maxSources: cfg.Pipeline.MaxSourcesPerRun,
		maps:       make(map[string]*curriculum.Map),
	}, nil
}

func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
	}
}

// newMux creates the HTTP router.
func newMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	mux.HandleFunc("POST /v1/discovery", a.handleDiscovery)
	mux.HandleFunc("POST /v1/extraction", a.handleExtraction)
	mux.HandleFunc("GET /v1/curricula/{id}/report.xlsx", a.handleReport)
	return mux
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *app) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		if err := a.db.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable", "reason": "database",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *app) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	var req curriculum.DiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Country == "" || req.Subject == "" || req.Grade <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "country, subject and a positive grade are required",
		})
		return
	}

	res := a.discovery.Run(r.Context(), req)
	if res.Success {
		a.mu.Lock()
		a.maps[res.Map.CurriculumID] = res.Map
		a.mu.Unlock()
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func (a *app) handleExtraction(w http.ResponseWriter, r *http.Request) {
	var req extraction.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.CurriculumID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "curriculum_id is required"})
		return
	}
	if req.MaxSources == 0 {
		req.MaxSources = a.maxSources
	}

	res := a.extraction.Run(r.Context(), req)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func (a *app) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	a.mu.RLock()
	m := a.maps[id]
	a.mu.RUnlock()
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no curriculum map for " + id + "; run discovery first",
		})
		return
	}

	records, err := a.sources.ListByCurriculum(r.Context(), id)
	if err != nil {
		slog.Error("listing sources for report", "curriculum_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing sources failed"})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.xlsx"`)
	if err := report.Write(m, records, w); err != nil {
		slog.Error("writing report", "curriculum_id", id, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
