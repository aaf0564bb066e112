// Package cron schedules the reserved heartbeat job and arbitrary
// user-defined jobs (§4.5 "Heartbeat", supplemented from original_source).
package cron

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// HeartbeatJobID is the reserved system job's fixed id and name (§4.5).
const HeartbeatJobID = "__heartbeat__"

// DefaultHeartbeatPrompt is used when neither config nor HEARTBEAT.md
// supplies a prompt. Resolving to this source forces the job disabled
// (§4.5 "When the resolved source is Default, the job is forced-disabled
// even if enabled == true").
const DefaultHeartbeatPrompt = "Report current status."

// PromptSource names where a heartbeat prompt was resolved from.
type PromptSource string

const (
	SourceConfig    PromptSource = "config"
	SourceFile      PromptSource = "file"
	SourceDefault   PromptSource = "default"
)

// Job is one scheduled cron entry, reserved (heartbeat) or user-defined.
type Job struct {
	ID            string
	Name          string
	Schedule      string
	Enabled       bool
	Prompt        string
	Model         string
	SandboxEnable bool
	SandboxImage  string

	entryID cron.EntryID
}

// RunRecord is one execution of a job, returned by cron.runs / heartbeat.runs.
type RunRecord struct {
	JobID     string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// RunFunc executes a job's action (e.g. sends the resolved prompt to chat).
type RunFunc func(ctx context.Context, job Job) error

// Scheduler wraps robfig/cron with job bookkeeping and run history, and
// owns the heartbeat prompt-resolution rule.
type Scheduler struct {
	log  *zap.Logger
	c    *cron.Cron
	run  RunFunc
	hbFile string // HEARTBEAT.md path

	mu      sync.Mutex
	jobs    map[string]*Job
	history map[string][]RunRecord
}

// NewScheduler constructs a Scheduler. run is invoked for every due job;
// heartbeatFilePath names the HEARTBEAT.md resolved as §4.5's middle
// priority source.
func NewScheduler(run RunFunc, heartbeatFilePath string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		log:     log.With(zap.String("component", "cron")),
		c:       cron.New(),
		run:     run,
		hbFile:  heartbeatFilePath,
		jobs:    make(map[string]*Job),
		history: make(map[string][]RunRecord),
	}
}

// Start begins the underlying cron scheduler loop.
func (s *Scheduler) Start() { s.c.Start() }

// Stop halts the scheduler without waiting; the returned context is done
// once in-flight jobs have finished.
func (s *Scheduler) Stop() context.Context { return s.c.Stop() }

// resolvePrompt applies §4.5's priority order: configured prompt, then
// HEARTBEAT.md contents, then the compiled-in default.
func (s *Scheduler) resolvePrompt(configured string) (prompt string, source PromptSource) {
	if configured != "" {
		return configured, SourceConfig
	}
	if s.hbFile != "" {
		if data, err := os.ReadFile(s.hbFile); err == nil {
			trimmed := string(data)
			if trimmed != "" {
				return trimmed, SourceFile
			}
		}
	}
	return DefaultHeartbeatPrompt, SourceDefault
}

// UpsertHeartbeat installs or updates the reserved heartbeat job
// (heartbeat.update). A resolved-Default prompt forces the job disabled
// regardless of the requested enabled flag.
func (s *Scheduler) UpsertHeartbeat(schedule string, enabled bool, configuredPrompt, model string, sandboxEnabled bool, sandboxImage string) (*Job, error) {
	prompt, source := s.resolvePrompt(configuredPrompt)
	effectiveEnabled := enabled && source != SourceDefault

	job := &Job{
		ID:            HeartbeatJobID,
		Name:          HeartbeatJobID,
		Schedule:      schedule,
		Enabled:       effectiveEnabled,
		Prompt:        prompt,
		Model:         model,
		SandboxEnable: sandboxEnabled,
		SandboxImage:  sandboxImage,
	}
	return job, s.install(job)
}

// UpsertJob installs or replaces a user-defined job (cron.add / cron.update).
func (s *Scheduler) UpsertJob(job *Job) error {
	if job.ID == HeartbeatJobID {
		return fmt.Errorf("cron: %s is reserved", HeartbeatJobID)
	}
	return s.install(job)
}

func (s *Scheduler) install(job *Job) error {
	s.mu.Lock()
	if existing, ok := s.jobs[job.ID]; ok {
		s.c.Remove(existing.entryID)
	}
	s.mu.Unlock()

	if !job.Enabled {
		s.mu.Lock()
		s.jobs[job.ID] = job
		s.mu.Unlock()
		return nil
	}

	entryID, err := s.c.AddFunc(job.Schedule, func() { s.execute(job) })
	if err != nil {
		return err
	}
	job.entryID = entryID

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) execute(job *Job) {
	started := time.Now()
	err := s.run(context.Background(), *job)
	rec := RunRecord{JobID: job.ID, StartedAt: started, Duration: time.Since(started), Err: err}
	if err != nil {
		s.log.Warn("cron job failed", zap.String("job_id", job.ID), zap.Error(err))
	}

	s.mu.Lock()
	s.history[job.ID] = append(s.history[job.ID], rec)
	if len(s.history[job.ID]) > 100 {
		s.history[job.ID] = s.history[job.ID][len(s.history[job.ID])-100:]
	}
	s.mu.Unlock()
}

// Run forces an immediate execution of jobID (cron.run / heartbeat.run).
func (s *Scheduler) Run(jobID string) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("cron: unknown job %s", jobID)
	}
	go s.execute(job)
	return nil
}

// Remove deletes a user-defined job (cron.remove). The heartbeat job cannot
// be removed, only disabled.
func (s *Scheduler) Remove(jobID string) error {
	if jobID == HeartbeatJobID {
		return fmt.Errorf("cron: %s is reserved", HeartbeatJobID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("cron: unknown job %s", jobID)
	}
	s.c.Remove(job.entryID)
	delete(s.jobs, jobID)
	delete(s.history, jobID)
	return nil
}

// List returns every installed job (cron.list).
func (s *Scheduler) List() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out
}

// Runs returns jobID's run history (cron.runs / heartbeat.runs).
func (s *Scheduler) Runs(jobID string) []RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RunRecord(nil), s.history[jobID]...)
}

// DefaultHeartbeatFilePath resolves the conventional HEARTBEAT.md location
// under a gateway configuration directory.
func DefaultHeartbeatFilePath(configDir string) string {
	return filepath.Join(configDir, "HEARTBEAT.md")
}
