package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobsearch-agent/internal/ai"
	"go-jobsearch-agent/internal/browser/browsertest"
	"go-jobsearch-agent/internal/logger"
	"go-jobsearch-agent/internal/selector"
)

func openCard(t *testing.T, b *browsertest.Board, idx int) {
	t.Helper()
	cards, err := b.QueryAll("li[data-fake-role=card]")
	require.NoError(t, err)
	require.Greater(t, len(cards), idx)
	require.NoError(t, cards[idx].Click())
}

func TestDeriveID(t *testing.T) {
	tests := []struct {
		name     string
		hint     string
		url      string
		expected string
	}{
		{name: "hint wins", hint: "3901", url: "https://www.linkedin.com/jobs/view/1234/", expected: "3901"},
		{name: "view path", url: "https://www.linkedin.com/jobs/view/4012345678/?refId=x", expected: "4012345678"},
		{name: "current job id", url: "https://www.linkedin.com/jobs/search/?currentJobId=4055&keywords=go", expected: "4055"},
		{name: "blank hint ignored", hint: "  ", url: "https://www.linkedin.com/jobs/view/77/", expected: "77"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveID(tt.hint, tt.url, "Go Developer", "Acme"))
		})
	}
}

func TestDeriveID_HashFallbackIsStable(t *testing.T) {
	url := "https://www.linkedin.com/jobs/search/?keywords=go"
	a := DeriveID("", url, "Go Developer", "Zürich GmbH")
	b := DeriveID("", url, "  go   developer ", "zurich gmbh")
	c := DeriveID("", url, "Go Developer", "Other GmbH")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "h"))
	assert.Len(t, a, 17)
}

func TestExtract_ReadsDetailPanel(t *testing.T) {
	listings := browsertest.Listings("j", 2)
	listings[1].Description = strings.Repeat("é", 2500)
	board := browsertest.NewBoard(listings)
	openCard(t, board, 1)

	job := New(nil, logger.Nop()).Extract(context.Background(), board, "4012345678", selector.Defaults())
	require.NotNil(t, job)
	assert.Equal(t, "4012345678", job.ID)
	assert.Equal(t, "Backend Engineer j2", job.Title)
	assert.Equal(t, "Company j2", job.Company)
	assert.Equal(t, "Berlin, Germany", job.Location)
	assert.Equal(t, "2 days ago", job.PostedTimeText)
	assert.Equal(t, "C", job.CompanyInitial)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/4012345678/", job.SourceURL)
	assert.Equal(t, 2000, len([]rune(job.Description)))
}

func TestExtract_RejectsImplausiblePostedTime(t *testing.T) {
	listings := browsertest.Listings("j", 1)
	listings[0].Posted = "Over 100 applicants"
	board := browsertest.NewBoard(listings)
	openCard(t, board, 0)

	job := New(nil, logger.Nop()).Extract(context.Background(), board, "", selector.Defaults())
	require.NotNil(t, job)
	assert.Empty(t, job.PostedTimeText)
	assert.True(t, strings.HasPrefix(job.ID, "h"))
	assert.Equal(t, board.URL(), job.SourceURL)
}

func TestExtract_EmptySelectorMeansAbsentField(t *testing.T) {
	board := browsertest.NewBoard(browsertest.Listings("j", 1))
	openCard(t, board, 0)

	m := selector.Defaults()
	m.Location = ""
	job := New(nil, logger.Nop()).Extract(context.Background(), board, "1", m)
	require.NotNil(t, job)
	assert.Empty(t, job.Location)
}

func TestExtract_MissingCompanyIsAbsent(t *testing.T) {
	listings := browsertest.Listings("j", 1)
	listings[0].Company = ""
	board := browsertest.NewBoard(listings)
	openCard(t, board, 0)

	assert.Nil(t, New(nil, logger.Nop()).Extract(context.Background(), board, "1", selector.Defaults()))
}

type fakeInferrer struct {
	fields *ai.JobFields
	err    error
	html   string
}

func (f *fakeInferrer) ExtractFields(_ context.Context, html string) (*ai.JobFields, error) {
	f.html = html
	return f.fields, f.err
}

func TestExtract_InferenceFillsMissingFields(t *testing.T) {
	listings := browsertest.Listings("j", 1)
	listings[0].Title = ""
	board := browsertest.NewBoard(listings)
	openCard(t, board, 0)

	inferrer := &fakeInferrer{fields: &ai.JobFields{Title: "Platform Engineer", Company: "Ignored Co", PostedTime: "yesterday-ish"}}
	job := New(inferrer, logger.Nop()).Extract(context.Background(), board, "", selector.Defaults())
	require.NotNil(t, job)
	assert.Equal(t, "Platform Engineer", job.Title)
	assert.Equal(t, "Company j1", job.Company)
	assert.Equal(t, "2 days ago", job.PostedTimeText)
	assert.Contains(t, inferrer.html, "job-details-jobs-unified-top-card")
}

func TestExtract_InferenceFailureIsAbsent(t *testing.T) {
	listings := browsertest.Listings("j", 1)
	listings[0].Title = ""
	board := browsertest.NewBoard(listings)
	openCard(t, board, 0)

	inferrer := &fakeInferrer{err: errors.New("upstream 503")}
	assert.Nil(t, New(inferrer, logger.Nop()).Extract(context.Background(), board, "", selector.Defaults()))
}
