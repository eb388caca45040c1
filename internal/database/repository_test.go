package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobsearch-agent/internal/models"
)

func TestStoredJobFrom(t *testing.T) {
	job := models.Job{
		ID:             "4012345678",
		Title:          "Go Developer",
		Company:        "Acme",
		Location:       "Berlin",
		PostedTimeText: "3 days ago",
		Description:    "Build things.",
		SourceURL:      "https://www.linkedin.com/jobs/view/4012345678/",
	}

	sj := StoredJobFrom(job, "run-1")
	assert.Equal(t, SourceLinkedIn, sj.Source)
	assert.Equal(t, "4012345678", sj.ExternalID)
	assert.Equal(t, "run-1", sj.SearchRunID)
	assert.Equal(t, job.SourceURL, sj.URL)
	require.NotNil(t, sj.PostedText)
	assert.Equal(t, "3 days ago", *sj.PostedText)

	job.PostedTimeText = ""
	assert.Nil(t, StoredJobFrom(job, "run-1").PostedText)
}

// Runs against a real database only when TEST_DATABASE_URL is set.
func TestRepository_RunLifecycle(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := ConnectDB(ctx, dsn)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Migrate(ctx))

	runID := uuid.NewString()
	run, err := repo.CreateSearchRun(ctx, runID, models.SearchQuery{Keywords: "go", Location: "Berlin"}, "static")
	require.NoError(t, err)
	assert.Equal(t, models.SearchRunning, run.Status)

	externalID := "t" + uuid.NewString()
	for _, title := range []string{"Go Developer", "Senior Go Developer"} {
		sj := StoredJobFrom(models.Job{ID: externalID, Title: title, Company: "Acme", SourceURL: "https://example.test"}, runID)
		_, err := repo.SaveJob(ctx, &sj)
		require.NoError(t, err)
	}

	jobs, err := repo.JobsForRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Senior Go Developer", jobs[0].Title)

	require.NoError(t, repo.FinishSearchRun(ctx, runID, models.SearchCompleted, 1, ""))
	assert.ErrorIs(t, repo.FinishSearchRun(ctx, uuid.NewString(), models.SearchFailed, 0, "x"), ErrRunNotFound)
}
