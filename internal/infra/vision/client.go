// Package vision is a client for the Azure Computer Vision Read API: submit an
// image, poll the operation until it is terminal, and collect the text lines.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"ocr2docx/internal/config"
	"ocr2docx/internal/domain"
	"ocr2docx/internal/infra/logging"
)

const (
	headerSubscriptionKey   = "Ocp-Apim-Subscription-Key"
	headerOperationLocation = "Operation-Location"

	maxErrorBody = 4 << 10
)

// Client talks to one Computer Vision resource.
type Client struct {
	endpoint     string
	key          string
	apiPath      string
	pollInterval time.Duration
	waitBudget   time.Duration
	maxAttempts  int
	httpClient   *http.Client
}

// NewClient builds a Client from configuration.
func NewClient(cfg config.VisionConfig) *Client {
	apiPath := strings.Trim(cfg.APIPath, "/")
	if apiPath == "" {
		apiPath = "vision/v3.2"
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Client{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		key:          cfg.SubscriptionKey,
		apiPath:      apiPath,
		pollInterval: interval,
		waitBudget:   cfg.WaitBudget,
		maxAttempts:  cfg.MaxAttempts,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func (c *Client) url(parts ...string) string {
	return c.endpoint + "/" + c.apiPath + "/" + strings.Join(parts, "/")
}

// Submit starts a read operation for image and returns its identifier, the
// final path segment of the Operation-Location header.
func (c *Client) Submit(ctx context.Context, image []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("read", "analyze"), bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("submit: build request: %w", err)
	}
	req.Header.Set(headerSubscriptionKey, c.key)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.do(ctx, "submit", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	loc := resp.Header.Get(headerOperationLocation)
	if loc == "" {
		return "", errors.New("submit: response has no Operation-Location header")
	}
	id := OperationID(loc)
	if id == "" {
		return "", fmt.Errorf("submit: cannot take operation id from %q", loc)
	}
	return id, nil
}

// OperationID returns the final path segment of an Operation-Location value.
func OperationID(location string) string {
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		location = u.Path
	}
	location = strings.TrimRight(location, "/")
	if location == "" {
		return ""
	}
	return path.Base(location)
}

// Result fetches the current state of a read operation.
func (c *Client) Result(ctx context.Context, operationID string) (*ReadOperation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("read", "analyzeResults", url.PathEscape(operationID)), nil)
	if err != nil {
		return nil, fmt.Errorf("poll: build request: %w", err)
	}
	req.Header.Set(headerSubscriptionKey, c.key)

	resp, err := c.do(ctx, "poll", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var op ReadOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("poll: decode read result: %w", err)
	}
	return &op, nil
}

// Recognize submits image, polls at the fixed interval while the operation is
// in progress and returns the recognized text. Polling is bounded by the wait
// budget, the attempt cap and ctx.
func (c *Client) Recognize(ctx context.Context, image []byte) (domain.ExtractedText, error) {
	if c.waitBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.waitBudget)
		defer cancel()
	}

	opID, err := c.Submit(ctx, image)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &domain.TimeoutError{Err: err}
		}
		return "", err
	}
	logging.Info("OCR operation submitted", "operation_id", opID, "bytes", len(image))

	var (
		op       *ReadOperation
		attempts int
	)
	for {
		op, err = c.Result(ctx, opID)
		attempts++
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return "", &domain.TimeoutError{OperationID: opID, Attempts: attempts, Err: err}
			}
			return "", err
		}
		if !op.Status.InProgress() {
			break
		}
		logging.Debug("OCR operation in progress", "operation_id", opID, "status", string(op.Status), "attempt", attempts)

		if c.maxAttempts > 0 && attempts >= c.maxAttempts {
			return "", &domain.TimeoutError{OperationID: opID, Attempts: attempts, LastStatus: string(op.Status)}
		}
		if err := c.wait(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return "", &domain.TimeoutError{OperationID: opID, Attempts: attempts, LastStatus: string(op.Status), Err: err}
			}
			return "", err
		}
	}

	if !op.Status.Succeeded() {
		return "", &domain.OCRFailure{OperationID: opID, Status: string(op.Status)}
	}
	lines := op.Lines()
	logging.Info("OCR operation succeeded", "operation_id", opID, "lines", len(lines), "polls", attempts)
	return domain.JoinLines(lines), nil
}

func (c *Client) wait(ctx context.Context) error {
	t := time.NewTimer(c.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// do sends req and turns connection failures and non-2xx responses into
// *domain.TransportError. Context expiry is returned as the context error.
func (c *Client) do(ctx context.Context, op string, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	terr := &domain.TransportError{Op: op, StatusCode: resp.StatusCode}
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
		terr.Code = env.Error.Code
		terr.Message = env.Error.Message
	} else if msg := strings.TrimSpace(string(body)); msg != "" {
		terr.Message = msg
	} else {
		terr.Message = http.StatusText(resp.StatusCode)
	}
	return nil, terr
}
