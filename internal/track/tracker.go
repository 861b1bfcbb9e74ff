package track

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gentrack/internal/domain"
	"gentrack/internal/infra"
)

// JobService is the slice of the remote contract the tracker depends on.
// *remote.Client satisfies it.
type JobService interface {
	Submit(ctx context.Context, req domain.SubmitRequest) (domain.Job, error)
	Status(ctx context.Context, jobID string) (domain.StatusUpdate, error)
	List(ctx context.Context, q domain.ListQuery) (domain.JobPage, error)
}

// Options configures a Tracker. Zero fields get defaults.
type Options struct {
	Service JobService
	Store   *ListStore
	Clock   Clock
	Logger  infra.Logger
	Notify  Notifier

	// PollInterval is the base delay between status polls (default 5s).
	PollInterval time.Duration
	// PollCeiling bounds how long a job is watched before the tracker gives
	// up (default 10m). Giving up does not mark the job failed.
	PollCeiling time.Duration
	// BackoffCap bounds the doubled retry delay after transport errors
	// (default 60s).
	BackoffCap time.Duration
	// WarnAfterFailures is the consecutive transport-failure count after
	// which a degraded-polling notification fires (default 3).
	WarnAfterFailures int
	// Retention is how long terminal jobs are remembered to reject stale
	// list refreshes (default 24h).
	Retention time.Duration
	// RequestTimeout bounds each detached status/list request (default 15s).
	RequestTimeout time.Duration
}

type trackedJob struct {
	job      domain.Job
	timer    Timer
	interval time.Duration
	failures int
	warned   bool
}

type completedJob struct {
	job         domain.Job
	completedAt time.Time
}

// Tracker owns the lifecycle of in-flight generation jobs: it polls the
// remote service and reconciles poll results against independent list
// refreshes so that a job's visible status never moves backward along
// submitted < queued < running < terminal. Each Tracker is an independent
// instance; construct one per consumer rather than sharing a singleton.
type Tracker struct {
	svc     JobService
	store   *ListStore
	clock   Clock
	logger  infra.Logger
	notify  Notifier
	timeout time.Duration

	pollInterval time.Duration
	pollCeiling  time.Duration
	backoffCap   time.Duration
	warnAfter    int
	retention    time.Duration

	mu        sync.Mutex
	tracked   map[string]*trackedJob
	completed map[string]completedJob
	lastQuery domain.ListQuery
	closed    bool
}

// NewTracker constructs a Tracker from the given options.
func NewTracker(opts Options) (*Tracker, error) {
	if opts.Service == nil {
		return nil, errors.New("track: job service is required")
	}
	t := &Tracker{
		svc:          opts.Service,
		store:        opts.Store,
		clock:        opts.Clock,
		logger:       opts.Logger,
		notify:       opts.Notify,
		timeout:      opts.RequestTimeout,
		pollInterval: opts.PollInterval,
		pollCeiling:  opts.PollCeiling,
		backoffCap:   opts.BackoffCap,
		warnAfter:    opts.WarnAfterFailures,
		retention:    opts.Retention,
		tracked:      make(map[string]*trackedJob),
		completed:    make(map[string]completedJob),
	}
	if t.store == nil {
		t.store = NewListStore()
	}
	if t.clock == nil {
		t.clock = SystemClock()
	}
	if t.pollInterval <= 0 {
		t.pollInterval = 5 * time.Second
	}
	if t.pollCeiling <= 0 {
		t.pollCeiling = 10 * time.Minute
	}
	if t.backoffCap <= 0 {
		t.backoffCap = 60 * time.Second
	}
	if t.warnAfter <= 0 {
		t.warnAfter = 3
	}
	if t.retention <= 0 {
		t.retention = 24 * time.Hour
	}
	if t.timeout <= 0 {
		t.timeout = 15 * time.Second
	}
	return t, nil
}

// Store exposes the job list the tracker maintains.
func (t *Tracker) Store() *ListStore {
	return t.store
}

// Submit sends the creation request and, on acceptance, starts tracking the
// job: the record enters the tracked set in submitted state and the first
// poll is scheduled. A failed submission returns the error untouched and
// creates no tracking state. Acceptance also triggers an asynchronous list
// refresh so the new job becomes visible before the first poll lands.
func (t *Tracker) Submit(ctx context.Context, req domain.SubmitRequest) (domain.Job, error) {
	job, err := t.svc.Submit(ctx, req)
	if err != nil {
		return domain.Job{}, fmt.Errorf("submit job: %w", err)
	}

	now := t.clock.Now()
	if job.ClientHandle == "" {
		job.ClientHandle = job.ID
	}
	if job.Status.Rank() == 0 {
		job.Status = domain.JobStatusSubmitted
	}
	job.SubmittedAt = now
	job.UpdatedAt = now

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return domain.Job{}, errors.New("track: tracker is closed")
	}
	id := job.ID
	entry := &trackedJob{job: job, interval: t.pollInterval}
	t.tracked[id] = entry
	entry.timer = t.clock.AfterFunc(t.pollInterval, func() { t.poll(id) })
	t.pruneLocked(now)
	t.mu.Unlock()

	t.logger.Debug().Str("job_id", id).Str("kind", string(job.Kind)).Msg("track: job submitted")
	go t.backgroundRefresh()
	return job, nil
}

// poll runs one recurring status check. It is always entered from a timer
// callback; membership in the tracked set is the sole authority on whether
// the result may be applied, so a poll that raced with cancellation or
// completion degrades to a no-op.
func (t *Tracker) poll(id string) {
	t.mu.Lock()
	_, ok := t.tracked[id]
	if !ok || t.closed {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	upd, err := t.svc.Status(ctx, id)
	cancel()

	var notes []Notification
	defer func() {
		for _, n := range notes {
			t.emit(n)
		}
	}()

	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.tracked[id]
	if !ok || t.closed {
		// Cancelled or finalized while the request was in flight.
		return
	}
	now := t.clock.Now()

	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The job disappeared server-side; stop watching silently.
			delete(t.tracked, id)
			t.logger.Debug().Str("job_id", id).Msg("track: job gone server-side, tracking stopped")
			return
		}
		entry.failures++
		entry.interval *= 2
		if entry.interval > t.backoffCap {
			entry.interval = t.backoffCap
		}
		if entry.failures >= t.warnAfter && !entry.warned {
			entry.warned = true
			notes = append(notes, Notification{
				Kind:    NotifyPollDegraded,
				JobID:   id,
				Message: fmt.Sprintf("status polling degraded after %d failures: %v", entry.failures, err),
			})
		}
		t.logger.Warn().Err(err).Str("job_id", id).Dur("retry_in", entry.interval).Msg("track: poll failed")
		if n, timedOut := t.timeoutLocked(entry, id, now); timedOut {
			notes = append(notes, n)
			return
		}
		entry.timer = t.clock.AfterFunc(entry.interval, func() { t.poll(id) })
		return
	}

	entry.failures = 0
	entry.warned = false
	entry.interval = t.pollInterval

	// Merge against the record as it stands now, not the pre-request
	// snapshot: a list refresh may have advanced it while the status request
	// was in flight, and the monotonic check must see that newer state.
	next := advanceJob(entry.job, upd, now)
	if next.Status.Terminal() {
		t.finalizeLocked(id, next, now)
		t.store.Patch(id, next)
		notes = append(notes, terminalNote(next))
		return
	}
	entry.job = next
	t.store.Patch(id, next)

	if n, timedOut := t.timeoutLocked(entry, id, now); timedOut {
		notes = append(notes, n)
		return
	}
	entry.timer = t.clock.AfterFunc(entry.interval, func() { t.poll(id) })
}

// timeoutLocked abandons polling once the ceiling is exceeded. The job keeps
// its last known status; server truth is unresolved, so nothing is marked
// failed. Returns the notification to emit when tracking stopped.
func (t *Tracker) timeoutLocked(entry *trackedJob, id string, now time.Time) (Notification, bool) {
	if now.Sub(entry.job.SubmittedAt) < t.pollCeiling {
		return Notification{}, false
	}
	delete(t.tracked, id)
	t.logger.Warn().Str("job_id", id).Msg("track: polling ceiling reached, tracking stopped")
	return Notification{
		Kind:    NotifyPollTimeout,
		JobID:   id,
		Message: "still processing server-side, check back later",
	}, true
}

// MergeListRefresh reconciles an authoritative remote list against local
// tracking state and replaces the list store contents with the result.
// Frozen terminal records win over whatever the (possibly eventually
// consistent) remote list reports; tracked records keep their status when it
// is further along the lifecycle than the remote copy; everything else is
// adopted verbatim. When the remote list reveals a tracked job as terminal,
// that job is finalized here and its outstanding poll cancelled.
func (t *Tracker) MergeListRefresh(items []domain.Job, page domain.Pagination) []domain.Job {
	var notes []Notification
	defer func() {
		for _, n := range notes {
			t.emit(n)
		}
	}()

	t.mu.Lock()
	now := t.clock.Now()
	merged := make([]domain.Job, 0, len(items))
	for _, rec := range items {
		if frozen, ok := t.completed[rec.ID]; ok {
			m := rec
			m.Status = frozen.job.Status
			m.Progress = frozen.job.Progress
			m.ResultRefs = frozen.job.ResultRefs
			m.ErrorInfo = frozen.job.ErrorInfo
			m.UpdatedAt = frozen.job.UpdatedAt
			merged = append(merged, m)
			continue
		}
		entry, ok := t.tracked[rec.ID]
		if !ok {
			merged = append(merged, rec)
			continue
		}
		local := entry.job
		if local.Status.Rank() > rec.Status.Rank() {
			// Remote list is stale; keep the local lifecycle fields but
			// adopt remote metadata.
			m := rec
			m.Status = local.Status
			if local.Progress > m.Progress {
				m.Progress = local.Progress
			}
			m.SubmittedAt = local.SubmittedAt
			merged = append(merged, m)
			entry.job = mergeMetadata(local, rec)
			continue
		}
		adopted := rec
		if adopted.SubmittedAt.IsZero() {
			adopted.SubmittedAt = local.SubmittedAt
		}
		adopted.ClientHandle = local.ClientHandle
		if adopted.Status == local.Status && local.Progress > adopted.Progress {
			// Same lifecycle stage but an older progress sample.
			adopted.Progress = local.Progress
		}
		if adopted.Status.Terminal() {
			adopted = normalizeTerminal(adopted)
			t.finalizeLocked(rec.ID, adopted, now)
			notes = append(notes, terminalNote(adopted))
		} else {
			entry.job = adopted
		}
		merged = append(merged, adopted)
	}
	t.pruneLocked(now)
	// Publish under the same critical section that computed the merge, so a
	// concurrent poll cannot finalize a job between merge and replace and
	// then be overwritten by this stale snapshot.
	t.store.Replace(merged, page)
	t.mu.Unlock()
	return merged
}

// RefreshList fetches one page of the remote list and merges it. The tracker
// does not retry a failed list fetch; the error is returned to the caller.
func (t *Tracker) RefreshList(ctx context.Context, q domain.ListQuery) ([]domain.Job, error) {
	page, err := t.svc.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("refresh job list: %w", err)
	}
	t.mu.Lock()
	t.lastQuery = q
	t.mu.Unlock()
	return t.MergeListRefresh(page.Items, page.Page), nil
}

// CancelTracking drops all tracking state for id: the tracked entry, any
// frozen terminal record, and the pending poll timer. An in-flight poll
// response for id becomes a no-op because the membership check fails on
// arrival. Used when the user deletes a job so a stale poll cannot
// resurrect it.
func (t *Tracker) CancelTracking(id string) {
	t.mu.Lock()
	if entry, ok := t.tracked[id]; ok {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(t.tracked, id)
	}
	delete(t.completed, id)
	t.mu.Unlock()
}

// Tracking reports whether id is being actively polled.
func (t *Tracker) Tracking(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.tracked[id]
	return ok
}

// Completed returns the frozen terminal record for id, if retained.
func (t *Tracker) Completed(id string) (domain.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.completed[id]
	return c.job, ok
}

// InFlight reports how many jobs are currently being polled.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracked)
}

// Close stops all pending polls. In-flight responses become no-ops.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for id, entry := range t.tracked {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(t.tracked, id)
	}
}

// finalizeLocked moves a job from the tracked set into the completed set and
// cancels its pending poll. Caller holds t.mu and has already normalized the
// terminal record.
func (t *Tracker) finalizeLocked(id string, job domain.Job, now time.Time) {
	if entry, ok := t.tracked[id]; ok {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(t.tracked, id)
	}
	t.completed[id] = completedJob{job: job, completedAt: now}
	t.logger.Debug().Str("job_id", id).Str("status", string(job.Status)).Msg("track: job finalized")
}

// pruneLocked expires completed entries past the retention window. Expiry is
// hygiene: by the time an entry ages out, no stale refresh referencing it is
// expected.
func (t *Tracker) pruneLocked(now time.Time) {
	for id, c := range t.completed {
		if now.Sub(c.completedAt) > t.retention {
			delete(t.completed, id)
		}
	}
}

func (t *Tracker) backgroundRefresh() {
	t.mu.Lock()
	q := t.lastQuery
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	if _, err := t.RefreshList(ctx, q); err != nil {
		t.logger.Warn().Err(err).Msg("track: post-submit refresh failed")
		t.emit(Notification{Kind: NotifyRefreshFailed, Message: err.Error()})
	}
}

func (t *Tracker) emit(n Notification) {
	if t.notify != nil {
		t.notify(n)
	}
}

// advanceJob merges one poll result into the current record, producing a new
// value. Status never moves backward; progress never decreases while the job
// is live; terminal results carry exactly one of ResultRefs/ErrorInfo.
func advanceJob(cur domain.Job, upd domain.StatusUpdate, now time.Time) domain.Job {
	if upd.Status.Rank() < cur.Status.Rank() {
		// Out-of-order or stale response.
		return cur
	}
	next := cur
	next.Status = upd.Status
	if next.Status.Terminal() {
		next.ResultRefs = upd.ResultRefs
		next.ErrorInfo = upd.ErrorInfo
		next = normalizeTerminal(next)
	} else if upd.Progress > next.Progress {
		next.Progress = upd.Progress
	}
	next.UpdatedAt = now
	return next
}

// normalizeTerminal enforces terminal exclusivity: succeeded carries result
// refs and no error, failed carries an error and no results. A succeeded
// record without result refs is contract-breaking; it is recorded as a
// failure rather than shown as a success with nothing to open.
func normalizeTerminal(job domain.Job) domain.Job {
	switch job.Status {
	case domain.JobStatusSucceeded:
		if len(job.ResultRefs) == 0 {
			job.Status = domain.JobStatusFailed
			job.ErrorInfo = "completed without result assets"
			return job
		}
		job.ErrorInfo = ""
	case domain.JobStatusFailed:
		job.ResultRefs = nil
		if job.ErrorInfo == "" {
			job.ErrorInfo = "generation failed"
		}
	}
	return job
}

func terminalNote(job domain.Job) Notification {
	if job.Status == domain.JobStatusFailed {
		return Notification{Kind: NotifyFailed, JobID: job.ID, Message: job.ErrorInfo}
	}
	return Notification{Kind: NotifyCompleted, JobID: job.ID}
}

// mergeMetadata adopts the remote record's descriptive fields onto the local
// one without touching lifecycle state.
func mergeMetadata(local, rec domain.Job) domain.Job {
	if rec.Title != "" {
		local.Title = rec.Title
	}
	if rec.Provider != "" {
		local.Provider = rec.Provider
	}
	if rec.AspectRatio != "" {
		local.AspectRatio = rec.AspectRatio
	}
	if rec.Quantity != 0 {
		local.Quantity = rec.Quantity
	}
	return local
}
