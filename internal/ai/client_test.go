package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Path   string
	Auth   string
	Prompt chatRequest
}

func newChatServer(t *testing.T, status int, answer string, got *recordedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Path = r.URL.Path
		got.Auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got.Prompt))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": answer}}},
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSuggestSelectors(t *testing.T) {
	var got recordedRequest
	answer := "```json\n{\"job_card_container\":\"li[data-occludable-job-id]\",\"job_title\":\"a.job-card-container__link\",\"company_name\":\".artdeco-entity-lockup__subtitle\",\"location\":\"\",\"next_page_button\":\"button[aria-label='Next']\",\"confidence\":0.8}\n```"
	srv := newChatServer(t, http.StatusOK, answer, &got)

	c := NewClient("gsk-test", srv.URL+"/", "llama-3.3-70b-versatile")
	html := strings.Repeat("x", MaxPageChars+500)
	s, err := c.SuggestSelectors(context.Background(), html)
	require.NoError(t, err)

	assert.Equal(t, "li[data-occludable-job-id]", s.CardContainer)
	assert.Equal(t, "a.job-card-container__link", s.Title)
	assert.Empty(t, s.Location)
	require.NotNil(t, s.Confidence)
	assert.InDelta(t, 0.8, *s.Confidence, 1e-9)

	assert.Equal(t, "/chat/completions", got.Path)
	assert.Equal(t, "Bearer gsk-test", got.Auth)
	assert.Equal(t, "llama-3.3-70b-versatile", got.Prompt.Model)
	require.Len(t, got.Prompt.Messages, 2)
	assert.Equal(t, "system", got.Prompt.Messages[0].Role)
	user := got.Prompt.Messages[1].Content
	assert.Contains(t, user, strings.Repeat("x", MaxPageChars))
	assert.NotContains(t, user, strings.Repeat("x", MaxPageChars+1))
}

func TestSuggestSelectors_DropsOutOfRangeConfidence(t *testing.T) {
	var got recordedRequest
	srv := newChatServer(t, http.StatusOK, `{"job_card_container":"li","confidence":7}`, &got)

	s, err := NewClient("k", srv.URL, "m").SuggestSelectors(context.Background(), "<html></html>")
	require.NoError(t, err)
	assert.Nil(t, s.Confidence)
}

func TestExtractFields(t *testing.T) {
	var got recordedRequest
	srv := newChatServer(t, http.StatusOK, `{"title":"Go Developer","company":"Acme","location":"Remote","posted_time":"1 day ago"}`, &got)

	panel := strings.Repeat("p", MaxPanelChars*2)
	f, err := NewClient("k", srv.URL, "m").ExtractFields(context.Background(), panel)
	require.NoError(t, err)
	assert.Equal(t, &JobFields{Title: "Go Developer", Company: "Acme", Location: "Remote", PostedTime: "1 day ago"}, f)
	assert.NotContains(t, got.Prompt.Messages[1].Content, strings.Repeat("p", MaxPanelChars+1))
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		answer string
		want   string
	}{
		{name: "api error", status: http.StatusBadRequest, want: "model overloaded"},
		{name: "not json", status: http.StatusOK, answer: "I think the selector is li", want: "failed to decode model answer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got recordedRequest
			srv := newChatServer(t, tt.status, tt.answer, &got)
			_, err := NewClient("k", srv.URL, "m").SuggestSelectors(context.Background(), "<html/>")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestComplete_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"title\":\"t\",\"company\":\"c\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "m")
	c.http.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)
	f, err := c.ExtractFields(context.Background(), "<div/>")
	require.NoError(t, err)
	assert.Equal(t, "c", f.Company)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCleanMarkdownJSON(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "{\"a\":1}", expected: "{\"a\":1}"},
		{in: "```json\n{\"a\":1}\n```", expected: "{\"a\":1}"},
		{in: "Here you go:\n```\n{\"a\":1}\n```\nthanks", expected: "{\"a\":1}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, cleanMarkdownJSON(tt.in))
	}
}
