// Package app wires configuration into the browser manager and one search
// controller per available selector strategy.
package app

import (
	"time"

	"go.uber.org/zap"

	"go-jobsearch-agent/internal/agent"
	"go-jobsearch-agent/internal/ai"
	"go-jobsearch-agent/internal/browser"
	"go-jobsearch-agent/internal/config"
	"go-jobsearch-agent/internal/extract"
	"go-jobsearch-agent/internal/selector"
	"go-jobsearch-agent/internal/session"
)

type App struct {
	Config      *config.Config
	Browser     *browser.PlaywrightManager
	Controllers map[string]*session.Controller
}

// Build connects nothing yet: the browser is reached on the first Acquire.
// The adaptive strategy is only offered when inference is configured.
func Build(cfg *config.Config, log *zap.SugaredLogger) *App {
	opts := browser.Options{CDPURL: cfg.Browser.CDPURL, Headless: cfg.Browser.Headless}
	if opts.CDPURL == "" {
		cookies, err := browser.LoadCookies(cfg.Browser.CookiesPath)
		if err != nil {
			log.Warnf("⚠️ Could not load cookies from %s: %v. Continuing.", cfg.Browser.CookiesPath, err)
		} else {
			opts.Cookies = cookies
		}
	}
	manager := browser.NewPlaywright(opts, log)

	pacer := browser.NewPacer(
		time.Duration(cfg.Agent.MinPauseMs)*time.Millisecond,
		time.Duration(cfg.Agent.MaxPauseMs)*time.Millisecond,
		float64(cfg.Agent.JitterPx),
	)

	machineCfg := agent.DefaultConfig()
	machineCfg.MaxErrors = cfg.Agent.MaxErrors
	if cfg.Browser.ScreenshotDir != "" {
		machineCfg.Screenshots = browser.NewScreenshotDebugger(cfg.Browser.ScreenshotDir, log)
	}

	sessionOpts := session.DefaultOptions()
	sessionOpts.NavTimeout = time.Duration(cfg.Browser.NavTimeoutMs) * time.Millisecond

	controllers := make(map[string]*session.Controller)
	newController := func(strategy selector.Strategy, extractor *extract.Extractor) {
		machine := agent.NewMachine(strategy, extractor, pacer, machineCfg, log)
		controllers[strategy.Name()] = session.NewController(manager, machine, pacer, sessionOpts, log)
	}

	if cfg.InferenceEnabled() {
		client := ai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
		newController(selector.NewStatic(), extract.New(client, log))
		newController(selector.NewAdaptive(client, log), extract.New(client, log))
		log.Infof("🤖 Inference configured (%s)", cfg.AI.Model)
	} else {
		newController(selector.NewStatic(), extract.New(nil, log))
	}

	return &App{Config: cfg, Browser: manager, Controllers: controllers}
}

// Controller returns the controller for strategy, or for the configured
// default when strategy is empty.
func (a *App) Controller(strategy string) (*session.Controller, bool) {
	if strategy == "" {
		strategy = a.Config.Agent.Strategy
	}
	c, ok := a.Controllers[strategy]
	return c, ok
}
