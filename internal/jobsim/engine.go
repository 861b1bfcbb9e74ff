package jobsim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gentrack/internal/domain"
	"gentrack/internal/infra"
)

const (
	defaultProgressStep = 25
	defaultQuotaPerKey  = 50
	defaultPerPage      = 20
	maxPerPage          = 100
)

// EngineOptions configures the simulated job engine.
type EngineOptions struct {
	Logger infra.Logger
	// Generator produces result refs on success; required.
	Generator Generator
	// ProgressStep is the percentage added per tick while running
	// (default 25).
	ProgressStep int
	// QuotaPerKey caps accepted submissions per API key (default 50,
	// negative disables the cap).
	QuotaPerKey int
}

type simJob struct {
	job    domain.Job
	prompt string
	apiKey string
}

// Engine is the in-memory heart of the simulated job service. Accepted jobs
// advance queued -> running -> terminal as ticks arrive; a prompt containing
// the word "fail" deterministically fails at completion, which keeps failure
// paths scriptable from tests and demos.
type Engine struct {
	logger infra.Logger
	gen    Generator
	step   int
	quota  int

	mu    sync.Mutex
	order []string
	jobs  map[string]*simJob
	used  map[string]int
}

// NewEngine builds an Engine from options.
func NewEngine(opts EngineOptions) *Engine {
	step := opts.ProgressStep
	if step <= 0 {
		step = defaultProgressStep
	}
	quota := opts.QuotaPerKey
	if quota == 0 {
		quota = defaultQuotaPerKey
	}
	return &Engine{
		logger: opts.Logger,
		gen:    opts.Generator,
		step:   step,
		quota:  quota,
		jobs:   make(map[string]*simJob),
		used:   make(map[string]int),
	}
}

// Submit validates and accepts a new job in queued state. Returns the
// accepted record and the submitter's remaining quota.
func (e *Engine) Submit(apiKey string, req domain.SubmitRequest) (domain.Job, int, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return domain.Job{}, 0, fmt.Errorf("%w: prompt is required", domain.ErrInvalidPrompt)
	}
	switch req.Kind {
	case domain.JobKindImageGenerate, domain.JobKindImageEnhance, domain.JobKindVideoGenerate:
	default:
		return domain.Job{}, 0, fmt.Errorf("%w: unsupported kind %q", domain.ErrInvalidPrompt, req.Kind)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.quota > 0 && e.used[apiKey] >= e.quota {
		return domain.Job{}, 0, fmt.Errorf("%w: key has used all %d submissions", domain.ErrQuotaExceeded, e.quota)
	}
	e.used[apiKey]++

	now := time.Now()
	job := domain.Job{
		ID:          uuid.NewString(),
		Kind:        req.Kind,
		Status:      domain.JobStatusQueued,
		Title:       req.Title,
		Provider:    req.Provider,
		AspectRatio: req.AspectRatio,
		Quantity:    req.Quantity,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	e.jobs[job.ID] = &simJob{job: job, prompt: req.Prompt, apiKey: apiKey}
	e.order = append(e.order, job.ID)
	e.logger.Debug().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("jobsim: job accepted")
	return job, e.remainingLocked(apiKey), nil
}

// Get returns the current record for id.
func (e *Engine) Get(id string) (domain.Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return s.job, true
}

// List returns one filtered page of jobs, newest first.
func (e *Engine) List(q domain.ListQuery) domain.JobPage {
	e.mu.Lock()
	defer e.mu.Unlock()

	filtered := make([]domain.Job, 0, len(e.order))
	for i := len(e.order) - 1; i >= 0; i-- {
		job := e.jobs[e.order[i]].job
		if q.Status != "" && job.Status != q.Status {
			continue
		}
		if q.Kind != "" && job.Kind != q.Kind {
			continue
		}
		filtered = append(filtered, job)
	}

	perPage := q.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	total := len(filtered)
	totalPages := (total + perPage - 1) / perPage
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return domain.JobPage{
		Items: filtered[start:end],
		Page: domain.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: total,
			TotalPages: totalPages,
		},
	}
}

// Delete removes a job and its synthetic assets; reports whether it existed.
func (e *Engine) Delete(id string) bool {
	e.mu.Lock()
	if _, ok := e.jobs[id]; !ok {
		e.mu.Unlock()
		return false
	}
	delete(e.jobs, id)
	for i, existing := range e.order {
		if existing == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	if err := e.gen.Remove(id); err != nil {
		e.logger.Warn().Err(err).Str("job_id", id).Msg("jobsim: asset cleanup failed")
	}
	return true
}

// Advance runs one simulation tick: queued jobs start running, running jobs
// gain progress, and jobs that reach full progress finish.
func (e *Engine) Advance(ctx context.Context) {
	e.mu.Lock()
	live := make([]*simJob, 0, len(e.order))
	for _, id := range e.order {
		if s := e.jobs[id]; !s.job.Status.Terminal() {
			live = append(live, s)
		}
	}
	e.mu.Unlock()

	for _, s := range live {
		e.advanceOne(ctx, s)
	}
}

func (e *Engine) advanceOne(ctx context.Context, s *simJob) {
	e.mu.Lock()
	job := s.job
	prompt := s.prompt
	e.mu.Unlock()

	now := time.Now()
	switch job.Status {
	case domain.JobStatusQueued:
		job.Status = domain.JobStatusRunning
		job.Progress = 0
	case domain.JobStatusRunning:
		job.Progress += e.step
		if job.Progress > 100 {
			job.Progress = 100
		}
	default:
		return
	}

	if job.Status == domain.JobStatusRunning && job.Progress >= 100 {
		if strings.Contains(strings.ToLower(prompt), "fail") {
			job.Status = domain.JobStatusFailed
			job.ErrorInfo = "synthetic failure requested by prompt"
			job.ResultRefs = nil
		} else {
			refs, err := e.gen.Generate(ctx, job)
			if err != nil {
				e.logger.Error().Err(err).Str("job_id", job.ID).Msg("jobsim: generation failed")
				job.Status = domain.JobStatusFailed
				job.ErrorInfo = err.Error()
				job.ResultRefs = nil
			} else {
				job.Status = domain.JobStatusSucceeded
				job.ResultRefs = refs
				job.ErrorInfo = ""
			}
		}
	}
	job.UpdatedAt = now

	e.mu.Lock()
	// The job may have been deleted while generating; only publish if it is
	// still present.
	if _, ok := e.jobs[job.ID]; ok {
		s.job = job
	}
	e.mu.Unlock()

	if job.Status.Terminal() {
		e.logger.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("jobsim: job finished")
	}
}

// Run advances the simulation on a ticker until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Advance(ctx)
		}
	}
}

func (e *Engine) remainingLocked(apiKey string) int {
	if e.quota <= 0 {
		return -1
	}
	remaining := e.quota - e.used[apiKey]
	if remaining < 0 {
		return 0
	}
	return remaining
}
