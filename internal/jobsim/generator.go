package jobsim

import (
	"context"
	"fmt"
	"strings"

	"gentrack/internal/domain"
	"gentrack/internal/storage"
)

// Generator produces result refs for a job that finished successfully and
// disposes of them when the job is deleted.
type Generator interface {
	Generate(ctx context.Context, job domain.Job) ([]string, error)
	Remove(jobID string) error
}

// SyntheticGenerator writes placeholder asset bytes into a local file store
// and reports their public URLs. It stands in for real image/video providers
// the same way a key-less deployment falls back to synthetic output.
type SyntheticGenerator struct {
	store   *storage.FileStore
	baseURL string
}

// NewSyntheticGenerator builds a generator serving assets under baseURL.
func NewSyntheticGenerator(store *storage.FileStore, baseURL string) *SyntheticGenerator {
	return &SyntheticGenerator{store: store, baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *SyntheticGenerator) Generate(ctx context.Context, job domain.Job) ([]string, error) {
	quantity := job.Quantity
	if quantity < 1 || job.Kind == domain.JobKindVideoGenerate {
		quantity = 1
	}
	refs := make([]string, 0, quantity)
	for i := 0; i < quantity; i++ {
		key := assetKey(job, i)
		data := []byte(fmt.Sprintf("synthetic %s asset %d for job %s\n", job.Kind, i+1, job.ID))
		saved, err := g.store.Write(ctx, key, data)
		if err != nil {
			return nil, fmt.Errorf("synthetic asset: %w", err)
		}
		refs = append(refs, g.baseURL+"/"+saved)
	}
	return refs, nil
}

// Remove deletes every synthetic asset written for the job.
func (g *SyntheticGenerator) Remove(jobID string) error {
	if err := g.store.RemoveAll("generated/images/" + jobID); err != nil {
		return err
	}
	return g.store.RemoveAll("generated/videos/" + jobID)
}

func assetKey(job domain.Job, index int) string {
	if job.Kind == domain.JobKindVideoGenerate {
		return fmt.Sprintf("generated/videos/%s/video.mp4", job.ID)
	}
	return fmt.Sprintf("generated/images/%s/image-%02d.png", job.ID, index+1)
}
