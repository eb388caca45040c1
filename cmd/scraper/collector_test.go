package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobsearch-agent/internal/dedup"
	"go-jobsearch-agent/internal/logger"
	"go-jobsearch-agent/internal/models"
)

type fakeRelay struct {
	jobs     []string
	statuses []string
	errs     []string
	failID   string
}

func (f *fakeRelay) SendJob(job models.Job) error {
	if job.ID == f.failID {
		return errors.New("Bad Request: chat not found")
	}
	f.jobs = append(f.jobs, job.ID)
	return nil
}

func (f *fakeRelay) SendStatus(message string) error {
	f.statuses = append(f.statuses, message)
	return nil
}

func (f *fakeRelay) SendError(err error) error {
	f.errs = append(f.errs, err.Error())
	return nil
}

type fakeStore struct{ saved []models.StoredJob }

func (f *fakeStore) SaveJob(_ context.Context, job *models.StoredJob) (*models.StoredJob, error) {
	f.saved = append(f.saved, *job)
	return job, nil
}

func job(id string) models.Job {
	return models.Job{ID: id, Title: "Go Developer", Company: "Acme", SourceURL: "https://www.linkedin.com/jobs/view/" + id + "/"}
}

func TestCollector_RelaysOnlyUnseenJobs(t *testing.T) {
	cache, err := dedup.NewCache(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, cache.Add("1"))

	relay := &fakeRelay{failID: "3"}
	store := &fakeStore{}
	var out bytes.Buffer
	c := &collector{runID: "run-1", relay: relay, store: store, cache: cache, out: &out, log: logger.Nop()}

	ctx := context.Background()
	for _, ev := range []models.Event{
		models.Progress("🚀 Starting"),
		models.RecordFound(job("1")),
		models.RecordFound(job("2")),
		models.RecordFound(job("3")),
		models.Complete(3),
	} {
		c.handle(ctx, ev)
	}
	require.NoError(t, c.finish())

	assert.Equal(t, []string{"2"}, relay.jobs)
	assert.Equal(t, []string{"✅ Found 3 jobs, sent 1 new."}, relay.statuses)
	assert.Empty(t, relay.errs)
	assert.Len(t, store.saved, 3)
	assert.Equal(t, "run-1", store.saved[0].SearchRunID)

	assert.True(t, cache.IsSeen("2"))
	assert.False(t, cache.IsSeen("3"))

	status, message := c.status()
	assert.Equal(t, models.SearchCompleted, status)
	assert.Empty(t, message)
	assert.Contains(t, out.String(), "[2] Go Developer @ Acme")
	assert.Contains(t, out.String(), "✅ Done: 3 jobs")
}

func TestCollector_Status(t *testing.T) {
	tests := []struct {
		name     string
		events   []models.Event
		status   models.SearchStatus
		message  string
		relayErr bool
	}{
		{name: "complete", events: []models.Event{models.Complete(0)}, status: models.SearchCompleted},
		{name: "error", events: []models.Event{models.Error("login timeout")}, status: models.SearchFailed, message: "login timeout", relayErr: true},
		{name: "interrupted", events: []models.Event{models.Progress("📄 Page 1")}, status: models.SearchFailed, message: "search interrupted", relayErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := &fakeRelay{}
			c := &collector{relay: relay, out: &bytes.Buffer{}, log: logger.Nop()}
			for _, ev := range tt.events {
				c.handle(context.Background(), ev)
			}
			status, message := c.status()
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, message)

			require.NoError(t, c.finish())
			if tt.relayErr {
				assert.Equal(t, []string{tt.message}, relay.errs)
			} else {
				assert.Len(t, relay.statuses, 1)
			}
		})
	}
}

func TestCollector_WithoutConsumers(t *testing.T) {
	c := &collector{out: &bytes.Buffer{}, log: logger.Nop()}
	c.handle(context.Background(), models.RecordFound(job("9")))
	c.handle(context.Background(), models.Complete(1))
	require.NoError(t, c.finish())
	assert.Len(t, c.jobs, 1)
}

func TestSaveJobs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	path, err := saveJobs(dir, nil, now)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = saveJobs(dir, []models.Job{job("1"), job("2")}, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "job-search-2026-03-14.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []models.Job
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[1].ID)
}

func TestRootCmd_RequiresQueryFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--location", "Berlin"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keywords")
}
