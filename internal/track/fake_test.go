package track

import (
	"context"
	"fmt"
	"sync"

	"gentrack/internal/domain"
)

type statusReply struct {
	upd domain.StatusUpdate
	err error
}

// fakeService is an in-memory JobService. Status serves scripted replies per
// job (the last reply repeats once the script runs out); List reflects the
// last status each job was served with, like an eventually consistent server.
type fakeService struct {
	mu        sync.Mutex
	nextID    int
	order     []string
	jobs      map[string]domain.Job
	scripts   map[string][]statusReply
	submitErr error
	listErr   error
	onStatus  func(jobID string)

	statusCalls map[string]int
	listCalls   int
}

func newFakeService() *fakeService {
	return &fakeService{
		jobs:        make(map[string]domain.Job),
		scripts:     make(map[string][]statusReply),
		statusCalls: make(map[string]int),
	}
}

func (f *fakeService) script(jobID string, replies ...statusReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[jobID] = append(f.scripts[jobID], replies...)
}

func (f *fakeService) Submit(_ context.Context, req domain.SubmitRequest) (domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return domain.Job{}, f.submitErr
	}
	f.nextID++
	id := fmt.Sprintf("J%d", f.nextID)
	job := domain.Job{
		ID:     id,
		Kind:   req.Kind,
		Status: domain.JobStatusSubmitted,
		Title:  req.Title,
	}
	f.jobs[id] = job
	f.order = append(f.order, id)
	return job, nil
}

func (f *fakeService) Status(_ context.Context, jobID string) (domain.StatusUpdate, error) {
	f.mu.Lock()
	hook := f.onStatus
	f.mu.Unlock()
	if hook != nil {
		hook(jobID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls[jobID]++
	script := f.scripts[jobID]
	if len(script) == 0 {
		return domain.StatusUpdate{}, domain.ErrNotFound
	}
	reply := script[0]
	if len(script) > 1 {
		f.scripts[jobID] = script[1:]
	}
	if reply.err != nil {
		return domain.StatusUpdate{}, reply.err
	}
	if job, ok := f.jobs[jobID]; ok {
		job.Status = reply.upd.Status
		job.Progress = reply.upd.Progress
		job.ResultRefs = reply.upd.ResultRefs
		job.ErrorInfo = reply.upd.ErrorInfo
		f.jobs[jobID] = job
	}
	return reply.upd, nil
}

func (f *fakeService) List(_ context.Context, _ domain.ListQuery) (domain.JobPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return domain.JobPage{}, f.listErr
	}
	page := domain.JobPage{Page: domain.Pagination{Page: 1, PerPage: 20, TotalItems: len(f.order), TotalPages: 1}}
	for _, id := range f.order {
		page.Items = append(page.Items, f.jobs[id])
	}
	return page, nil
}

type noteRecorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *noteRecorder) notifier() Notifier {
	return func(n Notification) {
		r.mu.Lock()
		r.notes = append(r.notes, n)
		r.mu.Unlock()
	}
}

func (r *noteRecorder) count(kind NotificationKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if note.Kind == kind {
			n++
		}
	}
	return n
}
