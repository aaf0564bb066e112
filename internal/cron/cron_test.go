package cron

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopRun(ctx context.Context, job Job) error { return nil }

func TestResolvePromptPrefersConfig(t *testing.T) {
	s := NewScheduler(noopRun, "", nil)
	prompt, source := s.resolvePrompt("custom prompt")
	assert.Equal(t, "custom prompt", prompt)
	assert.Equal(t, SourceConfig, source)
}

func TestResolvePromptFallsBackToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "HEARTBEAT.md")
	require.NoError(t, os.WriteFile(path, []byte("file prompt"), 0o644))

	s := NewScheduler(noopRun, path, nil)
	prompt, source := s.resolvePrompt("")
	assert.Equal(t, "file prompt", prompt)
	assert.Equal(t, SourceFile, source)
}

func TestResolvePromptDefaultForcesDisabled(t *testing.T) {
	s := NewScheduler(noopRun, "", nil)
	job, err := s.UpsertHeartbeat("@every 1h", true, "", "", false, "")
	require.NoError(t, err)
	assert.False(t, job.Enabled, "default-sourced prompt must force-disable even when enabled=true was requested")
}

func TestUpsertHeartbeatHonorsEnabledWithConfiguredPrompt(t *testing.T) {
	s := NewScheduler(noopRun, "", nil)
	job, err := s.UpsertHeartbeat("@every 1h", true, "status please", "", false, "")
	require.NoError(t, err)
	assert.True(t, job.Enabled)
	assert.Equal(t, "status please", job.Prompt)
}

func TestUpsertJobRejectsReservedID(t *testing.T) {
	s := NewScheduler(noopRun, "", nil)
	err := s.UpsertJob(&Job{ID: HeartbeatJobID, Schedule: "@every 1h"})
	assert.Error(t, err)
}

func TestRunRecordsHistory(t *testing.T) {
	s := NewScheduler(noopRun, "", nil)
	require.NoError(t, s.UpsertJob(&Job{ID: "job-1", Schedule: "@every 1h", Enabled: false}))

	s.mu.Lock()
	job := s.jobs["job-1"]
	s.mu.Unlock()
	s.execute(job) // invoke synchronously for deterministic assertions

	runs := s.Runs("job-1")
	assert.Len(t, runs, 1)
}

func TestRemoveRejectsHeartbeat(t *testing.T) {
	s := NewScheduler(noopRun, "", nil)
	err := s.Remove(HeartbeatJobID)
	assert.Error(t, err)
}
