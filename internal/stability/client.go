// Package stability is an HTTP client for Stability AI's image-to-video
// endpoint. A generation is started with a multipart upload and its result
// is fetched by id: 202 while running, 200 with the video bytes when done.
package stability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Static errors for Stability client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is configured or found in the environment.
	ErrAPIKeyNotSet = errors.New("stability: STABILITY_API_KEY environment variable is not set")
	// ErrImageRequired is returned when Submit is called without image data.
	ErrImageRequired = errors.New("stability: image is required")
	// ErrGenerationIDRequired is returned when Poll is called without an id.
	ErrGenerationIDRequired = errors.New("stability: generation ID is required")
	// ErrNoGenerationID is returned when the submit response contains no id.
	ErrNoGenerationID = errors.New("stability: submit failed: no generation ID returned")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("stability: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("stability: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("stability: request failed")
	// ErrEmptyVideo is reported when a finished generation has no video bytes.
	ErrEmptyVideo = errors.New("stability: empty video in result")
)

// Client defines the interface for interacting with the Stability API.
type Client interface {
	// Submit uploads the source image and returns the generation id.
	Submit(ctx context.Context, image []byte, opts SubmitOptions) (id string, err error)

	// Poll checks the generation and returns the video once complete.
	Poll(ctx context.Context, id string) (PollResult, error)
}

// HTTPClient is the HTTP implementation of the Stability Client interface.
type HTTPClient struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the Stability API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		if url != "" {
			hc.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(hc *HTTPClient) {
		hc.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseBackoff = d
	}
}

// NewClient creates a new Stability HTTP client.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable STABILITY_API_KEY.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:     "https://api.stability.ai",
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("STABILITY_API_KEY")
	}

	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// Submit uploads the image with the motion parameters.
func (c *HTTPClient) Submit(ctx context.Context, image []byte, opts SubmitOptions) (string, error) {
	if len(image) == 0 {
		return "", ErrImageRequired
	}
	if opts.Filename == "" {
		opts.Filename = "image.png"
	}

	body, contentType, err := buildMultipart(image, opts)
	if err != nil {
		return "", fmt.Errorf("stability: build request: %w", err)
	}

	url := c.baseURL + "/v2beta/image-to-video"
	headers := http.Header{
		"Content-Type": []string{contentType},
		"Accept":       []string{"application/json"},
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, url, body, headers)
	if err != nil {
		return "", err
	}

	var sr submitResponse
	if err := json.Unmarshal(resp.body, &sr); err != nil {
		return "", fmt.Errorf("stability: unmarshal response: %w", err)
	}
	if sr.ID == "" {
		return "", ErrNoGenerationID
	}

	return sr.ID, nil
}

// Poll fetches the generation result. A 202 means it is still running.
func (c *HTTPClient) Poll(ctx context.Context, id string) (PollResult, error) {
	if id == "" {
		return PollResult{}, ErrGenerationIDRequired
	}

	url := fmt.Sprintf("%s/v2beta/image-to-video/result/%s", c.baseURL, id)
	headers := http.Header{"Accept": []string{"video/*"}}

	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, url, nil, headers)
	if err != nil {
		return PollResult{}, err
	}

	if resp.status == http.StatusAccepted {
		return PollResult{Status: StatusInProgress}, nil
	}

	result := PollResult{
		Status:       StatusComplete,
		Video:        resp.body,
		MIMEType:     resp.header.Get("Content-Type"),
		FinishReason: resp.header.Get("Finish-Reason"),
	}

	switch {
	case result.FinishReason == "CONTENT_FILTERED":
		result.Status = StatusFailed
		result.Video = nil
		result.Error = "stability: output was filtered by content moderation"
	case len(result.Video) == 0:
		result.Status = StatusFailed
		result.Error = ErrEmptyVideo.Error()
	}

	return result, nil
}

func buildMultipart(image []byte, opts SubmitOptions) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", opts.Filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"seed":             strconv.Itoa(opts.Seed),
		"cfg_scale":        strconv.FormatFloat(opts.CfgScale, 'f', -1, 64),
		"motion_bucket_id": strconv.Itoa(opts.MotionBucketID),
	}
	for _, k := range []string{"seed", "cfg_scale", "motion_bucket_id"} {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// response is the part of an HTTP response the client keeps.
type response struct {
	status int
	header http.Header
	body   []byte
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, method, url string, body *bytes.Buffer, headers http.Header) (response, error) {
	var lastErr error
	backoff := c.baseBackoff

	var payload []byte
	if body != nil {
		payload = body.Bytes()
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return response{}, fmt.Errorf("stability: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}

		resp, err := c.doRequest(ctx, method, url, payload, headers)
		if err == nil {
			return resp, nil
		}

		if !isRetryable(err) {
			return response{}, err
		}

		lastErr = err
	}

	return response{}, fmt.Errorf("stability: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, payload []byte, headers http.Header) (response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return response{}, fmt.Errorf("stability: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range headers {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return response{}, fmt.Errorf("stability: request cancelled: %w", ctx.Err())
		}
		return response{}, &retryableError{err: fmt.Errorf("stability: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, &retryableError{err: fmt.Errorf("stability: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 5xx errors are retryable
		if resp.StatusCode >= 500 {
			return response{}, &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, errorMessage(respBody))}
		}
		// 429 (rate limit) is retryable
		if resp.StatusCode == http.StatusTooManyRequests {
			return response{}, &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, errorMessage(respBody))}
		}
		return response{}, fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, errorMessage(respBody))
	}

	return response{status: resp.StatusCode, header: resp.Header, body: respBody}, nil
}

// errorMessage extracts the error list from a JSON error body, falling back
// to the raw body.
func errorMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && (er.Name != "" || len(er.Errors) > 0) {
		return strings.TrimSpace(er.Name + ": " + strings.Join(er.Errors, "; "))
	}
	return string(body)
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
