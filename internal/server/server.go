package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/copilot/config"
	"github.com/mohammad-safakhou/copilot/internal/llm"
	"github.com/mohammad-safakhou/copilot/internal/orchestrator"
	"github.com/mohammad-safakhou/copilot/internal/search"
	"github.com/mohammad-safakhou/copilot/internal/solver"
	"github.com/mohammad-safakhou/copilot/internal/state"
	"github.com/mohammad-safakhou/copilot/internal/store"
)

// Run wires every service together and serves the HTTP API until the
// listener fails.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Shared dependencies (top-level DI)
	var rdb *redis.Client
	if cfg.Storage.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
	}
	cache := search.NewCache(rdb, cfg.Search.CacheTTL, log.New(log.Writer(), "[CACHE] ", log.LstdFlags))
	llmSvc := llm.NewService(cfg.LLM, log.New(log.Writer(), "[LLM] ", log.LstdFlags))
	searchSvc := search.NewService(cfg.Search, cache, log.New(log.Writer(), "[SEARCH] ", log.LstdFlags))
	sol := solver.New(cfg.Solver, llmSvc, searchSvc, log.New(log.Writer(), "[SOLVER] ", log.LstdFlags))
	orch := orchestrator.New(sol, log.New(log.Writer(), "[ORCH] ", log.LstdFlags))

	mgr, err := state.NewManager(cfg.Storage.DataDir, cfg.General.MaxChatHistory)
	if err != nil {
		return err
	}

	// Postgres plan archive is optional; file storage is the source of truth.
	var archive *store.Store
	if dsn := cfg.Storage.Postgres.URL; dsn != "" {
		if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
			baseLogger.Printf("archive migrations failed: %v", err)
		}
		archive, err = store.NewWithDSN(context.Background(), dsn, cfg.Storage.Postgres.Timeout)
		if err != nil {
			return fmt.Errorf("connecting plan archive: %w", err)
		}
	}

	api := e.Group("/api")

	sh := NewSessionHandler(orch, mgr, archive, cfg.General.MaxChatHistory, baseLogger)
	sh.Register(api)
	if cfg.General.AutoSaveInterval > 0 {
		sh.StartAutoSave(cfg.General.AutoSaveInterval)
		defer sh.StopAutoSave()
	}

	ph := &PlansHandler{Manager: mgr, Archive: archive}
	ph.Register(api)

	st := &StatusHandler{Config: cfg, LLM: llmSvc, Search: searchSvc, Orch: orch, Manager: mgr}
	st.Register(api)

	sched := &Scheduler{
		Manager:    mgr,
		CronSpec:   cfg.Server.CleanupCron,
		RetainDays: cfg.Server.RetainDays,
		Stop:       make(chan struct{}),
		Logger:     log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
	}
	sched.Start()
	defer close(sched.Stop)

	return e.Start(cfg.Server.Address)
}
