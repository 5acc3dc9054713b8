// Package compute provides the HTTP client for the remote tyre compute service.
//
// Every pipeline stage maps to one endpoint family on the compute service.
// All families share the same wire shape: POST {base}/{family} starts an
// operation and returns a remote job ID, GET {base}/{family}/status/{id}
// reports progress until the operation reaches a terminal status.
package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/treadscan/treadscan/internal/errors"
)

// Remote operation statuses reported by the compute service.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// StartResponse is the compute service's reply to a start request.
type StartResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StatusResponse is the compute service's reply to a status poll.
type StatusResponse struct {
	JobID    string         `json:"job_id"`
	Status   string         `json:"status"`
	Progress float64        `json:"progress,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// StageRequest describes one remote operation to run to completion.
type StageRequest struct {
	// Family is the endpoint family, e.g. "preprocess" or "reconstruct".
	Family string

	// Payload is the JSON body for the start request.
	Payload map[string]any

	// Budget bounds the whole start/poll cycle. When it elapses without a
	// terminal remote status the operation is abandoned with a timeout error.
	Budget time.Duration
}

// Runner abstracts the start/poll cycle for a single remote stage.
type Runner interface {
	Run(ctx context.Context, req StageRequest) (*StatusResponse, error)
}

// Client talks to the remote compute service.
type Client struct {
	baseURL      string
	pollInterval time.Duration
	client       *http.Client
	logger       *slog.Logger
}

// ClientOptions bundles dependencies for NewClient.
type ClientOptions struct {
	// BaseURL is the compute service base URL, without a trailing slash.
	BaseURL string

	// PollInterval is the delay between consecutive status polls.
	// Defaults to one second.
	PollInterval time.Duration

	// RequestTimeout bounds a single HTTP request. Only used when Client
	// is nil. Defaults to 30 seconds.
	RequestTimeout time.Duration

	Client *http.Client
	Logger *slog.Logger
}

// NewClient builds a compute service client. Callers should pass a validated config.
func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("compute base url is required")
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	hc := opts.Client
	if hc == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:      baseURL,
		pollInterval: pollInterval,
		client:       hc,
		logger:       logger,
	}, nil
}

// Run starts a remote operation and polls it until it reaches a terminal
// status or the request budget elapses. The status response already carries
// the stage metadata, so the poll that observes "completed" doubles as the
// final metadata fetch.
//
// A remote "failed" status is returned as a remote operation error carrying
// the service-supplied detail. An exhausted budget is returned as a timeout
// error. Run never retries: a new attempt requires a fresh request.
func (c *Client) Run(ctx context.Context, req StageRequest) (*StatusResponse, error) {
	if req.Budget <= 0 {
		return nil, apperrors.Validation("stage budget must be positive")
	}

	started, err := c.Start(ctx, req.Family, req.Payload)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("remote operation started",
		"family", req.Family,
		"remote_job_id", started.JobID,
	)

	deadline := time.Now().Add(req.Budget)
	for {
		status, err := c.Status(ctx, req.Family, started.JobID)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case StatusCompleted:
			return status, nil
		case StatusFailed:
			detail := status.Error
			if detail == "" {
				detail = "remote operation failed without detail"
			}
			return nil, apperrors.Remotef("%s: %s", req.Family, detail)
		case StatusQueued, StatusProcessing:
			// keep polling
		default:
			return nil, apperrors.Remotef("%s: unrecognized remote status %q", req.Family, status.Status)
		}

		if time.Now().Add(c.pollInterval).After(deadline) {
			return nil, apperrors.Timeoutf("%s did not finish within %s", req.Family, req.Budget)
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Start submits a new remote operation for the given endpoint family.
func (c *Client) Start(ctx context.Context, family string, payload map[string]any) (*StartResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", family, err)
	}

	url := c.baseURL + "/" + family
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", family, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out StartResponse
	if err := c.do(req, family, &out); err != nil {
		return nil, err
	}
	if out.JobID == "" {
		return nil, apperrors.Remotef("%s: start response missing job_id", family)
	}
	return &out, nil
}

// Status polls the remote operation with the given ID.
func (c *Client) Status(ctx context.Context, family, remoteID string) (*StatusResponse, error) {
	url := c.baseURL + "/" + family + "/status/" + remoteID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s status request: %w", family, err)
	}

	var out StatusResponse
	if err := c.do(req, family, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, family string, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.Remotef("%s: %v", family, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.Remotef("%s: %s: %s", family, resp.Status, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Remotef("%s: decode response: %v", family, err)
	}
	return nil
}
