package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"go-jobsearch-agent/internal/app"
	"go-jobsearch-agent/internal/config"
	"go-jobsearch-agent/internal/logger"
	"go-jobsearch-agent/internal/server"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	logr, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("❌ Failed to init logger: %v", err)
	}
	defer func() { _ = logr.Sync() }()
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	a := app.Build(cfg, logr)
	defer func() {
		if err := a.Browser.Close(); err != nil {
			logr.Warnf("⚠️ Closing browser: %v", err)
		}
	}()

	searchers := make(map[string]server.Searcher, len(a.Controllers))
	for name, c := range a.Controllers {
		searchers[name] = c
	}
	srv := server.New(server.Options{
		Searchers:        searchers,
		DefaultStrategy:  cfg.Agent.Strategy,
		InferenceReady:   cfg.InferenceEnabled(),
		BrowserConnected: a.Browser.Connected,
		DefaultResults:   cfg.Search.MaxResults,
		DefaultPages:     cfg.Search.MaxPages,
	}, logr)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Infof("🚀 Server listening on port %s (default strategy: %s)", cfg.Server.Port, cfg.Agent.Strategy)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logr.Info("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logr.Warnf("⚠️ Graceful shutdown failed: %v", err)
	}
}
