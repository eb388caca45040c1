package dedup

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobsearch-agent/internal/logger"
	"go-jobsearch-agent/internal/models"
)

func job(id string) models.Job {
	return models.Job{ID: id, Title: "Go Engineer " + id, Company: "Acme"}
}

func TestStore_AdmitIgnoresDuplicates(t *testing.T) {
	s := NewStore(10)
	assert.True(t, s.Admit(job("1")))
	assert.True(t, s.Admit(job("2")))
	assert.False(t, s.Admit(models.Job{ID: "1", Title: "other", Company: "other"}))

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "Go Engineer 1", records[0].Title)
	assert.Equal(t, "2", records[1].ID)
	assert.True(t, s.Seen("1"))
	assert.False(t, s.Seen("3"))
}

func TestStore_CapIsCheckedBeforeAdmission(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 10; i++ {
		s.Admit(job(fmt.Sprint(i)))
	}
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Full())
	assert.False(t, s.Seen("3"))

	unbounded := NewStore(0)
	for i := 0; i < 100; i++ {
		unbounded.Admit(job(fmt.Sprint(i)))
	}
	assert.Equal(t, 100, unbounded.Len())
	assert.False(t, unbounded.Full())
}

func TestStore_RecordsIsACopy(t *testing.T) {
	s := NewStore(5)
	s.Admit(job("1"))
	records := s.Records()
	records[0].Title = "changed"
	assert.Equal(t, "Go Engineer 1", s.Records()[0].Title)
}

func TestStore_RetainKeepsIDsSeen(t *testing.T) {
	s := NewStore(5)
	s.Admit(job("1"))
	s.Admit(models.Job{ID: "2"})
	s.Admit(job("3"))

	dropped := s.Retain(models.Job.Valid)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.Admit(job("2")))
	assert.Equal(t, []string{"1", "3"}, []string{s.Records()[0].ID, s.Records()[1].ID})
}

func TestCache_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir, logger.Nop())
	require.NoError(t, err)
	assert.False(t, c.IsSeen("4012345678"))

	require.NoError(t, c.Add("4012345678", "4012345679"))
	require.NoError(t, c.Add("4012345678"))

	reloaded, err := NewCache(dir, logger.Nop())
	require.NoError(t, err)
	assert.True(t, reloaded.IsSeen("4012345678"))
	assert.True(t, reloaded.IsSeen("4012345679"))
	assert.Equal(t, 2, reloaded.Len())
}

func TestCache_DropsExpiredEntries(t *testing.T) {
	dir := t.TempDir()
	fresh := time.Now().Add(-time.Hour).UnixMilli()
	stale := time.Now().Add(-31 * 24 * time.Hour).UnixMilli()
	body := fmt.Sprintf(`[{"id":"fresh","timestamp":%d},{"id":"stale","timestamp":%d}]`, fresh, stale)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seen_jobs.json"), []byte(body), 0644))

	c, err := NewCache(dir, logger.Nop())
	require.NoError(t, err)
	assert.True(t, c.IsSeen("fresh"))
	assert.False(t, c.IsSeen("stale"))
}

func TestCache_IgnoresCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seen_jobs.json"), []byte("{corrupt"), 0644))

	c, err := NewCache(dir, logger.Nop())
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}
