package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"go-jobsearch-agent/internal/database"
	"go-jobsearch-agent/internal/models"
)

type jobRelay interface {
	SendJob(job models.Job) error
	SendStatus(message string) error
	SendError(err error) error
}

type jobStore interface {
	SaveJob(ctx context.Context, job *models.StoredJob) (*models.StoredJob, error)
}

type seenCache interface {
	IsSeen(id string) bool
	Add(ids ...string) error
}

// collector consumes one search's events. relay, store and cache are optional.
type collector struct {
	runID      string
	relay      jobRelay
	store      jobStore
	cache      seenCache
	out        io.Writer
	log        *zap.SugaredLogger
	relayDelay time.Duration

	jobs     []models.Job
	relayed  []string
	terminal *models.Event
}

func (c *collector) handle(ctx context.Context, ev models.Event) {
	switch ev.Type {
	case models.EventProgress:
		fmt.Fprintf(c.out, "%s\n", ev.Message)
	case models.EventRecordFound:
		job := *ev.Job
		c.jobs = append(c.jobs, job)
		fmt.Fprintf(c.out, "  [%d] %s @ %s (%s)\n", len(c.jobs), job.Title, job.Company, job.SourceURL)
		c.save(ctx, job)
		c.forward(ctx, job)
	case models.EventComplete:
		fmt.Fprintf(c.out, "✅ Done: %d jobs\n", ev.Total)
		c.terminal = &ev
	case models.EventError:
		fmt.Fprintf(c.out, "❌ %s\n", ev.Message)
		c.terminal = &ev
	}
}

func (c *collector) save(ctx context.Context, job models.Job) {
	if c.store == nil {
		return
	}
	sj := database.StoredJobFrom(job, c.runID)
	if _, err := c.store.SaveJob(ctx, &sj); err != nil {
		c.log.Warnw("⚠️ Failed to save job", "id", job.ID, "error", err)
	}
}

func (c *collector) forward(ctx context.Context, job models.Job) {
	if c.relay == nil {
		return
	}
	if c.cache != nil && c.cache.IsSeen(job.ID) {
		c.log.Debugf("already relayed %s", job.ID)
		return
	}
	if len(c.relayed) > 0 && c.relayDelay > 0 {
		//spacing to avoid 429
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.relayDelay):
		}
	}
	if err := c.relay.SendJob(job); err != nil {
		c.log.Warnw("⚠️ Failed to send job to Telegram", "id", job.ID, "error", err)
		return
	}
	c.relayed = append(c.relayed, job.ID)
}

// status summarises how the search ended for the run record.
func (c *collector) status() (models.SearchStatus, string) {
	switch {
	case c.terminal == nil:
		return models.SearchFailed, "search interrupted"
	case c.terminal.Type == models.EventError:
		return models.SearchFailed, c.terminal.Message
	default:
		return models.SearchCompleted, ""
	}
}

// finish reports the outcome to the relay and remembers what was relayed.
func (c *collector) finish() error {
	if c.relay != nil {
		status, message := c.status()
		var err error
		if status == models.SearchFailed {
			err = c.relay.SendError(errors.New(message))
		} else {
			err = c.relay.SendStatus(fmt.Sprintf("✅ Found %d jobs, sent %d new.", len(c.jobs), len(c.relayed)))
		}
		if err != nil {
			c.log.Warnf("⚠️ Failed to send status to Telegram: %v", err)
		}
	}
	if c.cache != nil && len(c.relayed) > 0 {
		if err := c.cache.Add(c.relayed...); err != nil {
			return fmt.Errorf("remember relayed jobs: %w", err)
		}
		c.log.Infof("💾 Marked %d jobs as relayed", len(c.relayed))
	}
	return nil
}

// saveJobs writes jobs to <dir>/job-search-YYYY-MM-DD.json and returns the path.
func saveJobs(dir string, jobs []models.Job, now time.Time) (string, error) {
	if len(jobs) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	filePath := filepath.Join(dir, fmt.Sprintf("job-search-%s.json", now.Format("2006-01-02")))
	data, err := json.MarshalIndent(jobs, "", " ")
	if err != nil {
		return "", fmt.Errorf("marshal jobs: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", filePath, err)
	}
	return filePath, nil
}
