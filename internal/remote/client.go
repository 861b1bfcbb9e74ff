package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gentrack/internal/domain"
)

// Options configures a job service client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client speaks the generation job service's REST contract: submit a job,
// poll its status, fetch the authoritative list, delete a job.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient builds a Client from the given options, applying defaults for
// anything unset.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "http://localhost:8080"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

type submitPayload struct {
	Kind        string `json:"kind"`
	Prompt      string `json:"prompt"`
	Title       string `json:"title,omitempty"`
	Provider    string `json:"provider,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	Locale      string `json:"locale,omitempty"`
}

type submitResponse struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"`
	RemainingQuota int    `json:"remaining_quota"`
}

type jobPayload struct {
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

type listResponse struct {
	Items      []jobPayload `json:"items"`
	Pagination struct {
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		TotalItems int `json:"total_items"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Submit sends a creation request and returns the accepted job seeded with the
// server-assigned id. Validation and quota rejections come back as
// domain sentinel errors; anything transport-level as *TransportError.
func (c *Client) Submit(ctx context.Context, req domain.SubmitRequest) (domain.Job, error) {
	body, err := json.Marshal(submitPayload{
		Kind:        string(req.Kind),
		Prompt:      req.Prompt,
		Title:       req.Title,
		Provider:    req.Provider,
		AspectRatio: req.AspectRatio,
		Quantity:    req.Quantity,
		Locale:      req.Locale,
	})
	if err != nil {
		return domain.Job{}, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return domain.Job{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusCreated {
		return domain.Job{}, submissionError(resp)
	}
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Job{}, fmt.Errorf("decode submit response: %w", err)
	}
	if out.JobID == "" {
		return domain.Job{}, fmt.Errorf("%w: server returned no job id", domain.ErrSubmissionFailed)
	}
	status := domain.JobStatus(out.Status)
	if status.Rank() == 0 {
		status = domain.JobStatusSubmitted
	}
	return domain.Job{
		ID:          out.JobID,
		Kind:        req.Kind,
		Status:      status,
		Title:       req.Title,
		Provider:    req.Provider,
		AspectRatio: req.AspectRatio,
		Quantity:    req.Quantity,
	}, nil
}

// Status fetches the current state of one job. A 404 maps to
// domain.ErrNotFound; network failures and 5xx responses map to
// *TransportError so callers can retry with backoff.
func (c *Client) Status(ctx context.Context, jobID string) (domain.StatusUpdate, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return domain.StatusUpdate{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.StatusUpdate{}, domain.ErrNotFound
	case resp.StatusCode >= 500:
		return domain.StatusUpdate{}, &TransportError{Op: "status", Err: fmt.Errorf("server returned %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return domain.StatusUpdate{}, fmt.Errorf("status request rejected: %s", readError(resp))
	}
	var out jobPayload
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.StatusUpdate{}, &TransportError{Op: "status", Err: err}
	}
	return domain.StatusUpdate{
		Status:     domain.JobStatus(out.Status),
		Progress:   out.Progress,
		ResultRefs: out.ResultRefs,
		ErrorInfo:  out.ErrorInfo,
	}, nil
}

// List fetches one page of the authoritative job list.
func (c *Client) List(ctx context.Context, q domain.ListQuery) (domain.JobPage, error) {
	values := url.Values{}
	if q.Status != "" {
		values.Set("status", string(q.Status))
	}
	if q.Kind != "" {
		values.Set("kind", string(q.Kind))
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(q.PerPage))
	}
	path := "/v1/jobs"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.JobPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.JobPage{}, fmt.Errorf("list request failed: %s", readError(resp))
	}
	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.JobPage{}, fmt.Errorf("decode list response: %w", err)
	}
	page := domain.JobPage{
		Items: make([]domain.Job, 0, len(out.Items)),
		Page: domain.Pagination{
			Page:       out.Pagination.Page,
			PerPage:    out.Pagination.PerPage,
			TotalItems: out.Pagination.TotalItems,
			TotalPages: out.Pagination.TotalPages,
		},
	}
	for _, item := range out.Items {
		page.Items = append(page.Items, domain.Job{
			ID:          item.ID,
			Kind:        domain.JobKind(item.Kind),
			Status:      domain.JobStatus(item.Status),
			Progress:    item.Progress,
			Title:       item.Title,
			Provider:    item.Provider,
			AspectRatio: item.AspectRatio,
			Quantity:    item.Quantity,
			ResultRefs:  item.ResultRefs,
			ErrorInfo:   item.ErrorInfo,
			SubmittedAt: item.CreatedAt,
			UpdatedAt:   item.UpdatedAt,
		})
	}
	return page, nil
}

// Delete removes a job server-side. Used when the user discards a job; the
// caller is responsible for also cancelling any local tracking.
func (c *Client) Delete(ctx context.Context, jobID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/v1/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return fmt.Errorf("delete request failed: %s", readError(resp))
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}
	return resp, nil
}

func submissionError(resp *http.Response) error {
	reason := readError(resp)
	switch resp.StatusCode {
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, reason)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrInvalidPrompt, reason)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, reason)
	default:
		return fmt.Errorf("%w: %s", domain.ErrSubmissionFailed, reason)
	}
}

func readError(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(data) == 0 {
		return resp.Status
	}
	var parsed errorResponse
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != "" {
			return parsed.Code + ": " + parsed.Message
		}
		return parsed.Message
	}
	return strings.TrimSpace(string(data))
}
