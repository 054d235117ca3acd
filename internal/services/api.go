// API client for a running download server
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
)

const (
	defaultAPIBaseURL = "http://localhost:8000"

	// SubmitTimeout bounds POST /download; the server answers before any work starts.
	SubmitTimeout = 10 * time.Second
)

// APIService provides raw and typed access to the download server's HTTP API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API client for the server at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// BaseURL returns the server address the client talks to.
func (a *APIService) BaseURL() string { return a.baseURL }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// APIError is returned by the typed calls when the server answers with an unexpected status.
//
// It unwraps to the sentinel matching the status code so callers can use [errors.Is].
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return shared.ErrInvalidInput
	case http.StatusNotFound:
		return shared.ErrNotFound
	case http.StatusConflict:
		return shared.ErrAlreadyTerminal
	case http.StatusServiceUnavailable:
		return shared.ErrCapacity
	default:
		return shared.ErrAPIRequest
	}
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	if data == nil {
		data = []byte{}
	}
	return a.do(ctx, http.MethodPost, path, data)
}

// Delete performs a DELETE request to the specified path and returns the raw response.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodDelete, path, nil)
}

// decode checks the status code and unmarshals the body into v.
func decode(resp *APIResponse, want int, v any) error {
	if resp.StatusCode != want {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body models.ErrorResponse
		if resp.IsJSON && json.Unmarshal(resp.Body, &body) == nil {
			apiErr.Message = body.Error
		}
		return apiErr
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
	}
	return nil
}

func (a *APIService) getJSON(ctx context.Context, path string, v any) error {
	resp, err := a.Get(ctx, path)
	if err != nil {
		return err
	}
	return decode(resp, http.StatusOK, v)
}

// Health returns the server's liveness report.
func (a *APIService) Health(ctx context.Context) (*models.HealthResponse, error) {
	var out models.HealthResponse
	if err := a.getJSON(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Config returns the server's public configuration.
func (a *APIService) Config(ctx context.Context) (*models.ConfigResponse, error) {
	var out models.ConfigResponse
	if err := a.getJSON(ctx, "/config", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit requests a new download and returns its id. Only a 200 response counts as accepted.
func (a *APIService) Submit(ctx context.Context, sourceURL, customName string) (string, error) {
	data, err := json.Marshal(models.DownloadRequest{URL: sourceURL, CustomName: customName})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, SubmitTimeout)
	defer cancel()

	resp, err := a.Post(ctx, "/download", data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", shared.ErrTimeout, err)
		}
		return "", err
	}

	var out models.DownloadResponse
	if err := decode(resp, http.StatusOK, &out); err != nil {
		return "", err
	}
	if out.DownloadID == "" {
		return "", fmt.Errorf("%w: response has no download_id", shared.ErrAPIRequest)
	}
	return out.DownloadID, nil
}

// Download returns one job.
func (a *APIService) Download(ctx context.Context, id string) (*models.Job, error) {
	var out models.JobResponse
	if err := a.getJSON(ctx, "/downloads/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

// Downloads returns every job keyed by id.
func (a *APIService) Downloads(ctx context.Context) (map[string]models.Job, error) {
	out := map[string]models.Job{}
	if err := a.getJSON(ctx, "/downloads", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel cancels a queued or running job and returns its final record.
func (a *APIService) Cancel(ctx context.Context, id string) (*models.Job, error) {
	resp, err := a.Delete(ctx, "/downloads/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var out models.JobResponse
	if err := decode(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

// Files lists the converted files in the server's output directory.
func (a *APIService) Files(ctx context.Context) ([]models.File, error) {
	var out []models.File
	if err := a.getJSON(ctx, "/files", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns job counts and disk usage.
func (a *APIService) Stats(ctx context.Context) (*models.Stats, error) {
	var out models.Stats
	if err := a.getJSON(ctx, "/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
