// Package provider talks to the image and video generation task APIs.
//
// Both providers expose the same asynchronous shape: a POST submits a task and
// returns its id, a GET on the task reports its state and, once finished, the
// URL of the produced asset.
package provider

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

	"go.uber.org/zap"

	"presenter-studio/internal/config"
	"presenter-studio/internal/metrics"
	"presenter-studio/internal/models"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 2048

// TaskState is the provider-side state of a task.
type TaskState string

const (
	StatePending   TaskState = "pending"
	StateRunning   TaskState = "running"
	StateSucceeded TaskState = "succeeded"
	StateFailed    TaskState = "failed"
)

// TaskStatus is one poll result.
type TaskStatus struct {
	TaskID    string    `json:"task_id"`
	State     TaskState `json:"state"`
	ResultURL string    `json:"result_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
}

// Done reports whether the task reached a final state.
func (s TaskStatus) Done() bool {
	return s.State == StateSucceeded || s.State == StateFailed
}

// Err converts a failed task into the pipeline error taxonomy.
func (s TaskStatus) Err() error {
	switch {
	case s.State == StateSucceeded && s.ResultURL == "":
		return fmt.Errorf("%w: task %s succeeded without a result url", models.ErrRejected, s.TaskID)
	case s.State != StateFailed:
		return nil
	}
	msg := s.Error
	if msg == "" {
		msg = "task failed"
	}
	switch strings.ToLower(s.ErrorCode) {
	case "throttled", "rate_limited":
		return fmt.Errorf("%w: task %s: %s", models.ErrThrottled, s.TaskID, msg)
	case "timeout":
		return fmt.Errorf("%w: task %s: %s", models.ErrTimeout, s.TaskID, msg)
	default:
		return fmt.Errorf("%w: task %s: %s", models.ErrRejected, s.TaskID, msg)
	}
}

// Transient reports whether a failed status request is worth repeating. The
// task itself may still be running.
func Transient(err error) bool {
	return errors.Is(err, models.ErrThrottled) || errors.Is(err, models.ErrTimeout)
}

// ImageRequest submits an identity-conditioned image job.
type ImageRequest struct {
	Prompt          string   `json:"prompt"`
	ReferenceImages []string `json:"reference_images"`
	Seed            int64    `json:"seed"`
	AspectRatio     string   `json:"aspect_ratio,omitempty"`
}

// VideoRequest submits an image-conditioned video job.
type VideoRequest struct {
	Prompt            string `json:"prompt"`
	ReferenceImageURL string `json:"reference_image_url"`
	Seed              int64  `json:"seed"`
	AspectRatio       string `json:"aspect_ratio,omitempty"`
	DurationSeconds   int    `json:"duration_seconds,omitempty"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

// Client is an HTTP client for one provider.
type Client struct {
	name    string
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client. name labels logs and metrics ("image", "video").
func NewClient(name string, cfg config.ProviderConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.Named("provider").With(zap.String("provider", name)),
	}
}

// SubmitImage starts an image task and returns its id.
func (c *Client) SubmitImage(ctx context.Context, req ImageRequest) (string, error) {
	return c.submit(ctx, "/v1/images", req)
}

// ImageStatus polls an image task.
func (c *Client) ImageStatus(ctx context.Context, taskID string) (TaskStatus, error) {
	return c.status(ctx, "/v1/images/", taskID)
}

// SubmitVideo starts a video task and returns its id.
func (c *Client) SubmitVideo(ctx context.Context, req VideoRequest) (string, error) {
	return c.submit(ctx, "/v1/videos", req)
}

// VideoStatus polls a video task.
func (c *Client) VideoStatus(ctx context.Context, taskID string) (TaskStatus, error) {
	return c.status(ctx, "/v1/videos/", taskID)
}

func (c *Client) submit(ctx context.Context, path string, payload any) (taskID string, err error) {
	start := time.Now()
	defer func() { metrics.ProviderRequest(c.name, "submit", time.Since(start), err) }()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	endpointURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	c.logger.Debug("Submitting task", zap.String("url", endpointURL))
	var out submitResponse
	if err := c.doJSON(req, &out); err != nil {
		c.logger.Warn("Task submission failed", zap.Error(err))
		return "", err
	}
	if out.TaskID == "" {
		return "", fmt.Errorf("%w: provider returned no task id", models.ErrRejected)
	}
	c.logger.Info("Task submitted", zap.String("task_id", out.TaskID))
	return out.TaskID, nil
}

func (c *Client) status(ctx context.Context, prefix, taskID string) (st TaskStatus, err error) {
	start := time.Now()
	defer func() { metrics.ProviderRequest(c.name, "status", time.Since(start), err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+prefix+taskID, nil)
	if err != nil {
		return TaskStatus{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	if err := c.doJSON(req, &st); err != nil {
		return TaskStatus{}, err
	}
	if st.TaskID == "" {
		st.TaskID = taskID
	}
	return st, nil
}

// Download streams the asset at url into w.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.ProviderRequest(c.name, "download", time.Since(start), err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrDownloadFailed, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: %v", models.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, fmt.Errorf("%w: status %d: %s", models.ErrDownloadFailed, resp.StatusCode, string(body))
	}
	n, err = io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: %v", models.ErrDownloadFailed, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: empty body", models.ErrDownloadFailed)
	}
	return n, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		// Transport failures are retried like throttling.
		return fmt.Errorf("%w: %v", models.ErrThrottled, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp.StatusCode, body)
	}
	if readErr != nil {
		return fmt.Errorf("%w: failed to read response body: %v", models.ErrThrottled, readErr)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

func classifyStatus(code int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	msg := strings.TrimSpace(string(body))
	var typed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &typed) == nil && typed.Error != "" {
		msg = typed.Error
	}

	var kind error
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusServiceUnavailable:
		kind = models.ErrThrottled
	case code == http.StatusGatewayTimeout:
		kind = models.ErrTimeout
	case code >= 500:
		kind = models.ErrThrottled
	default:
		kind = models.ErrRejected
	}
	return &StatusError{Code: code, Message: msg, kind: kind}
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: provider returned status %d: %s", e.kind, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}
