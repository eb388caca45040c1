package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-jobsearch-agent/internal/app"
	"go-jobsearch-agent/internal/config"
	"go-jobsearch-agent/internal/database"
	"go-jobsearch-agent/internal/dedup"
	"go-jobsearch-agent/internal/logger"
	"go-jobsearch-agent/internal/models"
	"go-jobsearch-agent/internal/reporter"
)

type flags struct {
	configPath string
	strategy   string
	outDir     string
	query      models.SearchQuery
	experience string
	posted     string
	workMode   string
	timeout    time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "scraper --keywords <text> --location <place>",
		Short: "Runs one LinkedIn job search and prints the jobs it finds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, f)
		},
		SilenceUsage: true,
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", config.DefaultPath, "path to the YAML config file")
	fl.StringVar(&f.strategy, "strategy", "", "selector strategy: static or adaptive (default from config)")
	fl.StringVar(&f.outDir, "out", "logs", "directory for the job-search-YYYY-MM-DD.json result file")
	fl.StringVarP(&f.query.Keywords, "keywords", "k", "", "search keywords")
	fl.StringVarP(&f.query.Location, "location", "l", "", "search location")
	fl.StringVar(&f.experience, "experience", string(models.ExperienceEntry), "internship, entry, mid or senior")
	fl.StringVar(&f.posted, "posted", string(models.Posted24h), "24h, week or month")
	fl.StringVar(&f.workMode, "work-mode", string(models.WorkRemote), "remote, hybrid or onsite")
	fl.IntVar(&f.query.MaxResults, "max-results", 0, "stop after this many jobs (default from config)")
	fl.IntVar(&f.query.MaxPages, "max-pages", 0, "visit at most this many result pages (default from config)")
	fl.DurationVar(&f.timeout, "timeout", 15*time.Minute, "overall time limit")
	_ = cmd.MarkFlagRequired("keywords")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, f *flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logr.Sync() }()

	q := f.query
	q.ExperienceLevel = models.ExperienceLevel(f.experience)
	q.PostedWithin = models.PostedWithin(f.posted)
	q.WorkMode = models.WorkMode(f.workMode)
	if q.MaxResults == 0 {
		q.MaxResults = cfg.Search.MaxResults
	}
	if q.MaxPages == 0 {
		q.MaxPages = cfg.Search.MaxPages
	}
	if err := q.Validate(); err != nil {
		return err
	}

	a := app.Build(cfg, logr)
	defer func() {
		if err := a.Browser.Close(); err != nil {
			logr.Warnf("⚠️ Closing browser: %v", err)
		}
	}()
	controller, ok := a.Controller(f.strategy)
	if !ok {
		return fmt.Errorf("strategy %q is not available (adaptive needs GROQ_API_KEY or OPENAI_API_KEY)", f.strategy)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	c := &collector{
		runID:      uuid.NewString(),
		out:        cmd.OutOrStdout(),
		log:        logr,
		relayDelay: time.Second,
	}
	if cfg.TelegramToken != "" {
		bot, err := reporter.NewTelegramReporter(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return err
		}
		c.relay = bot
		cache, err := dedup.NewCache(cfg.Browser.CacheDir, logr)
		if err != nil {
			return err
		}
		c.cache = cache
		logr.Infof("🤖 Telegram relay enabled (%d jobs remembered)", cache.Len())
	}

	var repo *database.Repository
	if cfg.DatabaseURL != "" {
		repo, err = openRepository(ctx, cfg.DatabaseURL, c.runID, q, controller.StrategyName(), logr)
		if err != nil {
			return err
		}
		defer repo.Close()
		c.store = repo
	}

	for ev := range controller.RunSearch(ctx, q) {
		c.handle(ctx, ev)
	}

	if err := c.finish(); err != nil {
		logr.Warnf("⚠️ %v", err)
	}
	if repo != nil {
		status, message := c.status()
		finishCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := repo.FinishSearchRun(finishCtx, c.runID, status, len(c.jobs), message); err != nil {
			logr.Warnf("⚠️ Failed to record search outcome: %v", err)
		}
	}

	path, err := saveJobs(f.outDir, c.jobs, time.Now())
	switch {
	case err != nil:
		logr.Warnf("⚠️ Failed to save results: %v", err)
	case path == "":
		logr.Info("ℹ️ No jobs to save.")
	default:
		logr.Infof("📁 Results saved to %s", path)
	}

	if status, message := c.status(); status == models.SearchFailed {
		return fmt.Errorf("search failed: %s", message)
	}
	logr.Info("🏁 Execution finished.")
	return nil
}

func openRepository(ctx context.Context, url, runID string, q models.SearchQuery, strategy string, log *zap.SugaredLogger) (*database.Repository, error) {
	repo, err := database.ConnectDB(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	if _, err := repo.CreateSearchRun(ctx, runID, q, strategy); err != nil {
		repo.Close()
		return nil, err
	}
	log.Infof("🗄️ Saving results to Postgres (run %s)", runID)
	return repo, nil
}
