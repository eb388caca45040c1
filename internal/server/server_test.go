package server

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobsearch-agent/internal/logger"
	"go-jobsearch-agent/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSearcher struct {
	events []models.Event
	got    models.SearchQuery
	calls  int
}

func (f *fakeSearcher) RunSearch(_ context.Context, q models.SearchQuery) iter.Seq[models.Event] {
	f.calls++
	f.got = q
	return func(yield func(models.Event) bool) {
		for _, ev := range f.events {
			if !yield(ev) {
				return
			}
		}
	}
}

func newTestServer(searchers map[string]Searcher) *Server {
	return New(Options{
		Searchers:        searchers,
		DefaultStrategy:  "static",
		InferenceReady:   false,
		BrowserConnected: func() bool { return true },
		DefaultResults:   50,
		DefaultPages:     5,
	}, logger.Nop())
}

func post(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func frames(body string) []string {
	var out []string
	for _, chunk := range strings.Split(body, "\n\n") {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			out = append(out, strings.TrimPrefix(chunk, "data: "))
		}
	}
	return out
}

func TestSearch_StreamsEventsThenDone(t *testing.T) {
	job := models.Job{ID: "4012345678", Title: "Go Developer", Company: "Acme", CompanyInitial: "A"}
	searcher := &fakeSearcher{events: []models.Event{
		models.Progress("🚀 Starting"),
		models.RecordFound(job),
		models.Complete(1),
	}}
	s := newTestServer(map[string]Searcher{"static": searcher})

	w := post(t, s, `{"keywords":"go developer","location":"Berlin","experience":"mid","posted_time":"week","job_type":"hybrid","max_results":10}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))

	got := frames(w.Body.String())
	require.Len(t, got, 4)
	assert.JSONEq(t, `{"type":"progress","message":"🚀 Starting"}`, got[0])

	var record struct {
		Type string     `json:"type"`
		Data models.Job `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(got[1]), &record))
	assert.Equal(t, "job", record.Type)
	assert.Equal(t, "Acme", record.Data.Company)

	assert.JSONEq(t, `{"type":"complete","total":1}`, got[2])
	assert.Equal(t, "[DONE]", got[3])

	assert.Equal(t, models.SearchQuery{
		Keywords:        "go developer",
		Location:        "Berlin",
		ExperienceLevel: models.ExperienceMid,
		PostedWithin:    models.PostedWeek,
		WorkMode:        models.WorkHybrid,
		MaxResults:      10,
		MaxPages:        5,
	}, searcher.got)
}

func TestSearch_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{name: "broken json", body: `{"keywords":`, detail: "Invalid request body"},
		{name: "no keywords", body: `{"keywords":"  ","location":"Berlin"}`, detail: "Keywords are required"},
		{name: "no location", body: `{"keywords":"go"}`, detail: "Location is required"},
		{name: "bad limits", body: `{"keywords":"go","location":"Berlin","max_pages":-1}`, detail: models.ErrInvalidLimits.Error()},
		{name: "adaptive unavailable", body: `{"keywords":"go","location":"Berlin","strategy":"adaptive"}`, detail: "Unknown or unavailable strategy: adaptive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{}
			w := post(t, newTestServer(map[string]Searcher{"static": searcher}), tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.detail, body["detail"])
			assert.Zero(t, searcher.calls)
		})
	}
}

func TestSearch_PicksRequestedStrategy(t *testing.T) {
	static := &fakeSearcher{events: []models.Event{models.Complete(0)}}
	adaptive := &fakeSearcher{events: []models.Event{models.Error("login timeout")}}
	s := newTestServer(map[string]Searcher{"static": static, "adaptive": adaptive})

	w := post(t, s, `{"keywords":"go","location":"Berlin","strategy":"adaptive"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, static.calls)
	assert.Equal(t, 1, adaptive.calls)
	got := frames(w.Body.String())
	assert.JSONEq(t, `{"type":"error","message":"login timeout"}`, got[0])
	assert.Equal(t, models.ExperienceEntry, adaptive.got.ExperienceLevel)
	assert.Equal(t, models.Posted24h, adaptive.got.PostedWithin)
	assert.Equal(t, models.WorkRemote, adaptive.got.WorkMode)
	assert.Equal(t, 50, adaptive.got.MaxResults)
}

func TestHealthAndBanner(t *testing.T) {
	s := newTestServer(map[string]Searcher{"static": &fakeSearcher{}, "adaptive": &fakeSearcher{}})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","inference_configured":false,"strategy":"static","strategies":["adaptive","static"],"browser_connected":true}`, w.Body.String())

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestMetrics(t *testing.T) {
	searcher := &fakeSearcher{events: []models.Event{
		models.RecordFound(models.Job{ID: "1", Title: "t", Company: "c"}),
		models.RecordFound(models.Job{ID: "2", Title: "t", Company: "c"}),
		models.Complete(2),
	}}
	s := newTestServer(map[string]Searcher{"static": searcher})
	post(t, s, `{"keywords":"go","location":"Berlin"}`)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `jobsearch_sessions_started_total{strategy="static"} 1`)
	assert.Contains(t, body, `jobsearch_records_found_total{strategy="static"} 2`)
	assert.Contains(t, body, `jobsearch_sessions_finished_total{outcome="complete",strategy="static"} 1`)
	assert.Contains(t, body, "jobsearch_active_sessions 0")
}
