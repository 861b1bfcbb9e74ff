package track

import (
	"testing"
	"time"

	"gentrack/internal/domain"
)

func TestAdvanceJob(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	base := domain.Job{ID: "J1", Status: domain.JobStatusRunning, Progress: 50}

	tests := []struct {
		name         string
		cur          domain.Job
		upd          domain.StatusUpdate
		wantStatus   domain.JobStatus
		wantProgress int
		wantRefs     int
		wantError    string
	}{
		{
			name:         "stale lower-rank status is rejected",
			cur:          base,
			upd:          domain.StatusUpdate{Status: domain.JobStatusQueued, Progress: 90},
			wantStatus:   domain.JobStatusRunning,
			wantProgress: 50,
		},
		{
			name:         "progress never decreases at the same stage",
			cur:          base,
			upd:          domain.StatusUpdate{Status: domain.JobStatusRunning, Progress: 30},
			wantStatus:   domain.JobStatusRunning,
			wantProgress: 50,
		},
		{
			name:         "progress advances at the same stage",
			cur:          base,
			upd:          domain.StatusUpdate{Status: domain.JobStatusRunning, Progress: 75},
			wantStatus:   domain.JobStatusRunning,
			wantProgress: 75,
		},
		{
			name:         "unknown remote status cannot displace local state",
			cur:          base,
			upd:          domain.StatusUpdate{Status: "exploded", Progress: 99},
			wantStatus:   domain.JobStatusRunning,
			wantProgress: 50,
		},
		{
			// Progress is left at its last live value; it carries no meaning
			// once the job is terminal.
			name:         "succeeded carries refs and clears error",
			cur:          base,
			upd:          domain.StatusUpdate{Status: domain.JobStatusSucceeded, ResultRefs: []string{"a", "b"}, ErrorInfo: "leftover"},
			wantStatus:   domain.JobStatusSucceeded,
			wantProgress: 50,
			wantRefs:     2,
		},
		{
			name:         "failed carries error and drops refs",
			cur:          base,
			upd:          domain.StatusUpdate{Status: domain.JobStatusFailed, ResultRefs: []string{"a"}, ErrorInfo: "quota burned mid-run"},
			wantStatus:   domain.JobStatusFailed,
			wantProgress: 50,
			wantError:    "quota burned mid-run",
		},
		{
			name:         "failed without diagnostics gets a placeholder",
			cur:          base,
			upd:          domain.StatusUpdate{Status: domain.JobStatusFailed},
			wantStatus:   domain.JobStatusFailed,
			wantProgress: 50,
			wantError:    "generation failed",
		},
		{
			name:         "succeeded without refs is recorded as failed",
			cur:          base,
			upd:          domain.StatusUpdate{Status: domain.JobStatusSucceeded},
			wantStatus:   domain.JobStatusFailed,
			wantProgress: 50,
			wantError:    "completed without result assets",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := advanceJob(tc.cur, tc.upd, now)
			if got.Status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", got.Status, tc.wantStatus)
			}
			if got.Progress != tc.wantProgress {
				t.Fatalf("progress = %d, want %d", got.Progress, tc.wantProgress)
			}
			if len(got.ResultRefs) != tc.wantRefs {
				t.Fatalf("result refs = %v, want %d entries", got.ResultRefs, tc.wantRefs)
			}
			if got.ErrorInfo != tc.wantError {
				t.Fatalf("error info = %q, want %q", got.ErrorInfo, tc.wantError)
			}
			if got.Status.Terminal() {
				hasRefs := len(got.ResultRefs) > 0
				hasErr := got.ErrorInfo != ""
				if hasRefs == hasErr {
					t.Fatalf("terminal exclusivity violated: refs=%v error=%q", got.ResultRefs, got.ErrorInfo)
				}
			}
		})
	}
}

func TestStatusRankOrdering(t *testing.T) {
	order := []domain.JobStatus{
		domain.JobStatusSubmitted,
		domain.JobStatusQueued,
		domain.JobStatusRunning,
		domain.JobStatusSucceeded,
	}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("%s should rank above %s", order[i], order[i-1])
		}
	}
	if domain.JobStatusSucceeded.Rank() != domain.JobStatusFailed.Rank() {
		t.Fatalf("terminal states must share the highest rank")
	}
	if domain.JobStatus("bogus").Rank() != 0 {
		t.Fatalf("unknown status must rank below everything")
	}
}
