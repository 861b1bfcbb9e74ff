package jobsim

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"gentrack/internal/domain"
	"gentrack/internal/infra"
	"gentrack/internal/middleware"
)

// RouterOptions configures the simulated service's HTTP surface.
type RouterOptions struct {
	Logger infra.Logger
	// StaticDir, when set, exposes generated assets under /static/.
	StaticDir string
	// RateLimitPerMin caps requests per caller per minute (default 120).
	RateLimitPerMin int
	// AllowedOrigins is forwarded to the CORS middleware.
	AllowedOrigins []string
}

type server struct {
	engine *Engine
	logger infra.Logger
}

// NewRouter wires the engine behind the REST contract the gentrack client
// speaks.
func NewRouter(engine *Engine, opts RouterOptions) http.Handler {
	s := &server{engine: engine, logger: opts.Logger}

	limit := opts.RateLimitPerMin
	if limit <= 0 {
		limit = 120
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.RateLimit(limit, time.Minute))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}

	r.Get("/v1/healthz", s.health)
	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", s.submit)
		r.Get("/", s.list)
		r.Get("/{job_id}", s.status)
		r.Delete("/{job_id}", s.delete)
	})
	if opts.StaticDir != "" {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Handle("/static/*", fileServer)
	}
	return r
}

type submitRequest struct {
	Kind        string `json:"kind"`
	Prompt      string `json:"prompt"`
	Title       string `json:"title"`
	Provider    string `json:"provider"`
	AspectRatio string `json:"aspect_ratio"`
	Quantity    int    `json:"quantity"`
	Locale      string `json:"locale"`
}

type submitResponse struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"`
	RemainingQuota int    `json:"remaining_quota"`
}

type jobResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	Title       string    `json:"title,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	AspectRatio string    `json:"aspect_ratio,omitempty"`
	Quantity    int       `json:"quantity,omitempty"`
	ResultRefs  []string  `json:"result_refs,omitempty"`
	ErrorInfo   string    `json:"error_info,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type paginationResponse struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

type listJSON struct {
	Items      []jobResponse      `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	job, remaining, err := s.engine.Submit(apiKey(r), domain.SubmitRequest{
		Kind:        domain.JobKind(req.Kind),
		Prompt:      req.Prompt,
		Title:       req.Title,
		Provider:    req.Provider,
		AspectRatio: req.AspectRatio,
		Quantity:    req.Quantity,
		Locale:      req.Locale,
	})
	if err != nil {
		s.submitError(w, err)
		return
	}
	s.respond(w, http.StatusAccepted, submitResponse{
		JobID:          job.ID,
		Status:         string(job.Status),
		RemainingQuota: remaining,
	})
}

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, ok := s.engine.Get(jobID)
	if !ok {
		s.fail(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	s.respond(w, http.StatusOK, toJobResponse(job))
}

func (s *server) list(w http.ResponseWriter, r *http.Request) {
	q := domain.ListQuery{
		Status: domain.JobStatus(r.URL.Query().Get("status")),
		Kind:   domain.JobKind(r.URL.Query().Get("kind")),
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Page = n
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.PerPage = n
		}
	}
	page := s.engine.List(q)
	out := listJSON{
		Items: make([]jobResponse, 0, len(page.Items)),
		Pagination: paginationResponse{
			Page:       page.Page.Page,
			PerPage:    page.Page.PerPage,
			TotalItems: page.Page.TotalItems,
			TotalPages: page.Page.TotalPages,
		},
	}
	for _, job := range page.Items {
		out.Items = append(out.Items, toJobResponse(job))
	}
	s.respond(w, http.StatusOK, out)
}

func (s *server) delete(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if !s.engine.Delete(jobID) {
		s.fail(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) submitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		s.fail(w, http.StatusPaymentRequired, "quota_exceeded", err.Error())
	case errors.Is(err, domain.ErrInvalidPrompt):
		s.fail(w, http.StatusBadRequest, "invalid_prompt", err.Error())
	default:
		s.fail(w, http.StatusInternalServerError, "internal", "failed to accept job")
	}
}

func (s *server) respond(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) fail(w http.ResponseWriter, code int, errCode, message string) {
	s.respond(w, code, map[string]string{"code": errCode, "message": message})
}

func toJobResponse(job domain.Job) jobResponse {
	return jobResponse{
		ID:          job.ID,
		Kind:        string(job.Kind),
		Status:      string(job.Status),
		Progress:    job.Progress,
		Title:       job.Title,
		Provider:    job.Provider,
		AspectRatio: job.AspectRatio,
		Quantity:    job.Quantity,
		ResultRefs:  job.ResultRefs,
		ErrorInfo:   job.ErrorInfo,
		CreatedAt:   job.SubmittedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

func apiKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); token != "" {
		return token
	}
	return "anonymous"
}
