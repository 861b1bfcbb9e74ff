package track

import (
	"testing"

	"gentrack/internal/domain"
)

func listIDs(s *ListStore) []string {
	jobs, _ := s.Snapshot()
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids
}

func TestListStorePatchPreservesOrder(t *testing.T) {
	s := NewListStore()
	s.Replace([]domain.Job{
		{ID: "a", Status: domain.JobStatusQueued},
		{ID: "b", Status: domain.JobStatusQueued},
		{ID: "c", Status: domain.JobStatusQueued},
	}, domain.Pagination{Page: 1})

	s.Patch("b", domain.Job{ID: "b", Status: domain.JobStatusRunning, Progress: 60})
	s.Patch("b", domain.Job{ID: "b", Status: domain.JobStatusRunning, Progress: 60})

	ids := listIDs(s)
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("order after patch = %v", ids)
	}
	got, ok := s.Get("b")
	if !ok || got.Status != domain.JobStatusRunning || got.Progress != 60 {
		t.Fatalf("patched record = %+v", got)
	}
}

func TestListStorePatchUnknownIDIsNoop(t *testing.T) {
	s := NewListStore()
	s.Replace([]domain.Job{{ID: "a"}}, domain.Pagination{})
	s.Patch("zzz", domain.Job{ID: "zzz", Status: domain.JobStatusRunning})
	if s.Len() != 1 {
		t.Fatalf("rows = %d, want 1", s.Len())
	}
	if _, ok := s.Get("zzz"); ok {
		t.Fatalf("patch must not insert new rows")
	}
}

func TestListStoreSnapshotIsIsolated(t *testing.T) {
	s := NewListStore()
	s.Replace([]domain.Job{{ID: "a", Status: domain.JobStatusQueued}}, domain.Pagination{Page: 2, PerPage: 10})

	jobs, page := s.Snapshot()
	jobs[0].Status = domain.JobStatusFailed
	if got, _ := s.Get("a"); got.Status != domain.JobStatusQueued {
		t.Fatalf("snapshot mutation leaked into store: %s", got.Status)
	}
	if page.Page != 2 || page.PerPage != 10 {
		t.Fatalf("pagination = %+v", page)
	}
}

func TestListStoreReplaceDropsStaleRows(t *testing.T) {
	s := NewListStore()
	s.Replace([]domain.Job{{ID: "a"}, {ID: "b"}}, domain.Pagination{})
	s.Replace([]domain.Job{{ID: "b"}}, domain.Pagination{})
	if s.Len() != 1 {
		t.Fatalf("rows = %d, want 1", s.Len())
	}
	if _, ok := s.Get("a"); ok {
		t.Fatalf("replaced-away row still resolvable")
	}
}
