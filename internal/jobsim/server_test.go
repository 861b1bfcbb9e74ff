package jobsim

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"gentrack/internal/storage"
)

func newTestServer(t *testing.T, rateLimit int) (*Engine, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	engine := NewEngine(EngineOptions{
		Logger:      zerolog.Nop(),
		Generator:   NewSyntheticGenerator(store, "/static"),
		QuotaPerKey: -1,
	})
	srv := httptest.NewServer(NewRouter(engine, RouterOptions{
		Logger:          zerolog.Nop(),
		StaticDir:       dir,
		RateLimitPerMin: rateLimit,
	}))
	t.Cleanup(srv.Close)
	return engine, srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestServerLifecycleAndStaticAssets(t *testing.T) {
	engine, srv := newTestServer(t, 0)

	resp := postJSON(t, srv.URL+"/v1/jobs", map[string]any{
		"kind":   "video_generate",
		"prompt": "a calm lake",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	var accepted submitResponse
	decodeInto(t, resp, &accepted)
	if accepted.JobID == "" || accepted.Status != "queued" {
		t.Fatalf("accepted = %+v", accepted)
	}

	for i := 0; i < 6; i++ {
		engine.Advance(context.Background())
	}

	resp, err := http.Get(srv.URL + "/v1/jobs/" + accepted.JobID)
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var job jobResponse
	decodeInto(t, resp, &job)
	if job.Status != "succeeded" {
		t.Fatalf("status = %s, want succeeded", job.Status)
	}
	if len(job.ResultRefs) != 1 || !strings.HasPrefix(job.ResultRefs[0], "/static/") {
		t.Fatalf("result refs = %v", job.ResultRefs)
	}

	// The synthetic asset is actually served.
	resp, err = http.Get(srv.URL + job.ResultRefs[0])
	if err != nil {
		t.Fatalf("GET asset: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("asset status = %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(data, []byte(accepted.JobID)) {
		t.Fatalf("asset body does not reference the job: %q", data)
	}
}

func TestServerRejectsBadPayload(t *testing.T) {
	_, srv := newTestServer(t, 0)

	resp, err := http.Post(srv.URL+"/v1/jobs", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/v1/jobs", map[string]any{"kind": "image_generate"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing prompt status = %d, want 400", resp.StatusCode)
	}
	var parsed map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if parsed["code"] != "invalid_prompt" {
		t.Fatalf("error code = %q", parsed["code"])
	}
}

func TestServerUnknownJobIs404(t *testing.T) {
	_, srv := newTestServer(t, 0)

	resp, err := http.Get(srv.URL + "/v1/jobs/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/jobs/nope", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete status = %d, want 404", resp.StatusCode)
	}
}

func TestServerRateLimits(t *testing.T) {
	_, srv := newTestServer(t, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/v1/healthz")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("first requests = %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", codes[2])
	}
}
