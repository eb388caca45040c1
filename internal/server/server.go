// Package server exposes job searches over HTTP. POST /api/search streams a
// session's events as server-sent events.
package server

import (
	"context"
	"iter"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-jobsearch-agent/internal/logger"
	"go-jobsearch-agent/internal/models"
)

// Searcher runs one search. *session.Controller implements it.
type Searcher interface {
	RunSearch(ctx context.Context, q models.SearchQuery) iter.Seq[models.Event]
}

type Options struct {
	// Searchers maps a strategy name to the searcher that uses it.
	Searchers       map[string]Searcher
	DefaultStrategy string
	InferenceReady  bool
	// BrowserConnected reports the shared browser connection, if known.
	BrowserConnected func() bool
	DefaultResults   int
	DefaultPages     int
}

type Server struct {
	opts     Options
	log      *zap.SugaredLogger
	metrics  *Metrics
	registry *prometheus.Registry
	router   *gin.Engine
}

func New(opts Options, log *zap.SugaredLogger) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		opts:     opts,
		log:      logger.OrNop(log),
		metrics:  NewMetrics(reg),
		registry: reg,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Job Search Agent API is running!",
			"status":  "healthy",
		})
	})
	r.GET("/health", s.handleHealth)
	r.POST("/api/search", s.handleSearch)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	return r
}

func (s *Server) strategies() []string {
	names := make([]string, 0, len(s.opts.Searchers))
	for name := range s.opts.Searchers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":               "healthy",
		"inference_configured": s.opts.InferenceReady,
		"strategy":             s.opts.DefaultStrategy,
		"strategies":           s.strategies(),
	}
	if s.opts.BrowserConnected != nil {
		body["browser_connected"] = s.opts.BrowserConnected()
	}
	c.JSON(http.StatusOK, body)
}

type searchRequest struct {
	Keywords   string `json:"keywords"`
	Location   string `json:"location"`
	Experience string `json:"experience"`
	PostedTime string `json:"posted_time"`
	JobType    string `json:"job_type"`
	MaxResults int    `json:"max_results"`
	MaxPages   int    `json:"max_pages"`
	Strategy   string `json:"strategy"`
}

func (r searchRequest) query(defaultResults, defaultPages int) models.SearchQuery {
	q := models.SearchQuery{
		Keywords:        strings.TrimSpace(r.Keywords),
		Location:        strings.TrimSpace(r.Location),
		ExperienceLevel: models.ExperienceLevel(r.Experience),
		PostedWithin:    models.PostedWithin(r.PostedTime),
		WorkMode:        models.WorkMode(r.JobType),
		MaxResults:      r.MaxResults,
		MaxPages:        r.MaxPages,
	}
	if q.ExperienceLevel == "" {
		q.ExperienceLevel = models.ExperienceEntry
	}
	if q.PostedWithin == "" {
		q.PostedWithin = models.Posted24h
	}
	if q.WorkMode == "" {
		q.WorkMode = models.WorkRemote
	}
	if q.MaxResults == 0 {
		q.MaxResults = defaultResults
	}
	if q.MaxPages == 0 {
		q.MaxPages = defaultPages
	}
	return q
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Keywords) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Keywords are required"})
		return
	}
	if strings.TrimSpace(req.Location) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Location is required"})
		return
	}
	q := req.query(s.opts.DefaultResults, s.opts.DefaultPages)
	if err := q.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = s.opts.DefaultStrategy
	}
	searcher, ok := s.opts.Searchers[strategy]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Unknown or unavailable strategy: " + strategy, "strategies": s.strategies()})
		return
	}

	setSSEHeaders(c.Writer)
	c.Status(http.StatusOK)
	c.Writer.Flush()

	s.metrics.SessionsStarted.WithLabelValues(strategy).Inc()
	s.metrics.ActiveSessions.Inc()
	defer s.metrics.ActiveSessions.Dec()

	s.log.Infow("🔎 Search requested", "keywords", q.Keywords, "location", q.Location, "strategy", strategy, "client", c.ClientIP())
	terminal := false
	for ev := range searcher.RunSearch(c.Request.Context(), q) {
		s.metrics.observe(strategy, ev)
		terminal = ev.Terminal()
		if err := writeEvent(c.Writer, ev); err != nil {
			s.log.Warnw("⚠️ Client went away", "error", err)
			break
		}
	}
	if !terminal {
		s.metrics.SessionsFinished.WithLabelValues(strategy, "aborted").Inc()
	}
	if err := writeData(c.Writer, sseDone); err != nil {
		s.log.Debugf("write done frame: %v", err)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
