// Package client is the Go caller side of the podcast API: submitting
// generation requests, reading job status and polling a job to its
// terminal state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrJobNotFound is returned for status reads on an unknown job id.
	ErrJobNotFound = errors.New("job not found")

	// ErrPollTimeout is returned when a poll's wall-clock deadline passes
	// without a terminal status. The job may still complete server-side.
	ErrPollTimeout = errors.New("timed out waiting for job to complete")
)

type Client struct {
	baseURL string
	hc      *http.Client
}

// New creates a client for one API base URL. httpClient may be nil.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), hc: httpClient}
}

// JobStatus decodes every status uniformly; Result and Error are only
// populated on the matching terminal status.
type JobStatus struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Terminal reports whether the job is completed or failed.
func (s *JobStatus) Terminal() bool {
	return s.Status == "completed" || s.Status == "failed"
}

type GenerateRequest struct {
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
	Title    string `json:"title,omitempty"`
}

type GenerateResponse struct {
	JobID         string `json:"jobId"`
	Status        string `json:"status"`
	StatusURL     string `json:"statusUrl"`
	EstimatedTime string `json:"estimatedTime"`
}

type apiError struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// Generate submits a generation request and returns the accepted job.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return nil, decodeError(resp)
	}

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JobStatus fetches the current job record.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.hc.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrJobNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var st JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

type PollOptions struct {
	Interval time.Duration // default 2s
	Timeout  time.Duration // default 10m
}

// PollJob reads the job status every Interval until it is terminal, the
// Timeout deadline passes (ErrPollTimeout) or ctx is cancelled. onUpdate,
// if non-nil, observes every snapshot, the terminal one included, before
// PollJob returns.
func (c *Client) PollJob(ctx context.Context, jobID string, onUpdate func(*JobStatus), opts PollOptions) (*JobStatus, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		st, err := c.JobStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}

		if onUpdate != nil {
			onUpdate(st)
		}
		if st.Terminal() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	return nil, ErrPollTimeout
}

func decodeError(resp *http.Response) error {
	var ae apiError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&ae); err == nil && ae.Error != "" {
		return fmt.Errorf("api error (status %d): %s", resp.StatusCode, ae.Error)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
